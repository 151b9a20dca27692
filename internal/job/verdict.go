package job

import "strings"

// Sentinel verdicts. Each one is terminal, exactly like a recognizer label.
const (
	VerdictNotFound = "NOT_FOUND"
	VerdictTimeout  = "TIMEOUT"
	VerdictUnknown  = "UNKNOWN"

	errorVerdictPrefix = "ERROR:"
)

// ErrorVerdict encodes a failed recognizer invocation.
func ErrorVerdict(detail string) string {
	return errorVerdictPrefix + detail
}

// IsErrorVerdict reports whether v was produced by ErrorVerdict.
func IsErrorVerdict(v string) bool {
	return strings.HasPrefix(v, errorVerdictPrefix)
}
