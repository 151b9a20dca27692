package cache

import "fmt"

// RateLimitKey namespaces a per-client request counter. client is an API key
// prefix or, for anonymous callers, a remote IP.
func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
