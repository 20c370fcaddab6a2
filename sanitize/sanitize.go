// Package sanitize cleans strings before they enter the report model.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/acarl005/stripansi"
)

// invalidXMLChars matches code points that XML 1.0 forbids in character data
// (plus the discouraged C1 controls and non-characters) and that show up in
// stack traces and captured console output.
var invalidXMLChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x84\x86-\x9F\x{FDD0}-\x{FDEF}\x{FFFE}\x{FFFF}]`)

// StripANSI removes ANSI color and cursor escape sequences.
func StripANSI(s string) string {
	if s == "" {
		return s
	}
	return stripansi.Strip(s)
}

// RemoveInvalidCharacters drops characters that cannot appear in an XML
// document, including bytes that are not valid UTF-8.
func RemoveInvalidCharacters(s string) string {
	if s == "" {
		return s
	}
	return invalidXMLChars.ReplaceAllString(strings.ToValidUTF8(s, ""), "")
}

// Text strips ANSI sequences and invalid XML characters.
func Text(s string) string {
	return RemoveInvalidCharacters(StripANSI(s))
}
