package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxFilenameBytes = 255

var (
	illegalFilenameChars = regexp.MustCompile(`[/?<>\\:*|"]`)
	controlFilenameChars = regexp.MustCompile(`[\x00-\x1F\x80-\x9F]`)
	reservedFilename     = regexp.MustCompile(`^\.+$`)
	windowsReserved      = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	windowsTrailing      = regexp.MustCompile(`[. ]+$`)
)

// Filename makes s safe to use as a single path element on common
// filesystems: separators, reserved characters and names, control characters
// and trailing dots or spaces are removed and the result is truncated to 255
// bytes without splitting a rune.
func Filename(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = illegalFilenameChars.ReplaceAllString(s, "")
	s = controlFilenameChars.ReplaceAllString(s, "")
	s = reservedFilename.ReplaceAllString(s, "")
	s = windowsReserved.ReplaceAllString(s, "")
	s = windowsTrailing.ReplaceAllString(s, "")
	return truncate(s, maxFilenameBytes)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
