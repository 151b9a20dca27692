package submission

import (
	"fmt"
	"path"
	"strings"

	"github.com/kiranshivaraju/facequeue/internal/job"
)

// DefaultExtensions are the accepted image extensions, lower case, without the dot.
var DefaultExtensions = []string{"jpg", "jpeg", "png"}

// Validation error codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeFileTooLarge   = "FILE_TOO_LARGE"
)

// ValidationError is a rejected upload. Message is safe to show to the client.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// SanitizeFilename drops any directory part and replaces every character
// outside [A-Za-z0-9._-] with an underscore. The result is capped at
// job.MaxFilenameLen bytes, keeping the extension. It returns "" when nothing
// usable is left.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return job.TruncateName(b.String(), job.MaxFilenameLen)
}

// AllowedExtension reports whether the segment after the last dot of name is
// in allowed, ignoring case. A name without a dot is never allowed.
func AllowedExtension(name string, allowed []string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	ext := strings.ToLower(name[i+1:])
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// validate checks an upload and returns the filename to store it under.
func (s *Service) validate(u Upload) (string, error) {
	if u.Body == nil {
		return "", invalid("No file uploaded")
	}
	if strings.TrimSpace(u.Filename) == "" {
		return "", invalid("No filename provided")
	}

	filename := SanitizeFilename(u.Filename)
	if filename == "" {
		return "", invalid("Invalid filename")
	}
	if !AllowedExtension(filename, s.opts.AllowedExtensions) {
		return "", invalid("File type not allowed; accepted: %s", strings.Join(s.opts.AllowedExtensions, ", "))
	}
	if u.Size > s.opts.MaxUploadBytes {
		return "", &ValidationError{
			Code:    CodeFileTooLarge,
			Message: fmt.Sprintf("File exceeds the %d byte limit", s.opts.MaxUploadBytes),
		}
	}
	return filename, nil
}
