package job

import (
	"strings"
	"unicode/utf8"
)

// MaxFilenameLen is the longest filename kept in a message body. Together
// with the temp file pattern it stays well below the 255 byte path component
// limit of common filesystems.
const MaxFilenameLen = 200

// TruncateName shortens name to at most max bytes. The last extension
// segment is kept when it fits, and the cut never splits a UTF-8 sequence.
func TruncateName(name string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(name) <= max {
		return name
	}

	ext := ""
	if i := strings.LastIndex(name, "."); i > 0 && len(name)-i < max {
		ext = name[i:]
	}

	cut := max - len(ext)
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut] + ext
}
