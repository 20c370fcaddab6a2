package runner

import (
	"path"
	"strings"
	"unicode/utf16"

	"github.com/drone/drone-xray-junit/sanitize"
)

// maxScreenshotNameUnits bounds the name in UTF-16 code units, the way the
// runner measures it.
const maxScreenshotNameUnits = 250

// ScreenshotPath returns where the runner stores the automatic failure
// screenshot of t: <folder>/<test file>/<parent titles joined by " -- "> -- <title> (failed).png.
func ScreenshotPath(folder, file string, t *Test) string {
	var parents []string
	for s := t.Parent; s != nil && s.Title != ""; s = s.Parent {
		parents = append([]string{sanitize.Filename(s.Title) + " -- "}, parents...)
	}
	// ", " is removed from the joined parents only, never from the test title.
	name := strings.ReplaceAll(strings.Join(parents, ""), ", ", "")
	name = truncateUTF16(name+sanitize.Filename(t.Title)+" (failed)", maxScreenshotNameUnits)

	folder = strings.ReplaceAll(folder, "\\", "/")
	return path.Join(folder, path.Base(file), name+".png")
}

// truncateUTF16 keeps at most n UTF-16 code units of s. A rune that would
// be split across the limit is dropped whole.
func truncateUTF16(s string, n int) string {
	units := 0
	for i, r := range s {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}
		if units+w > n {
			return s[:i]
		}
		units += w
	}
	return s
}
