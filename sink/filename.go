// Package sink resolves the report path and writes the finished document.
package sink

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/drone/drone-xray-junit/report"
	"github.com/drone/drone-xray-junit/sanitize"
)

// Placeholders recognized in the report path template.
const (
	PlaceholderHash            = "[hash]"
	PlaceholderTestsuitesTitle = "[testsuitesTitle]"
	PlaceholderRootSuiteTitle  = "[rootSuiteTitle]"
	PlaceholderSuiteFilename   = "[suiteFilename]"
	PlaceholderSuiteName       = "[suiteName]"
)

// Titles are the configured report and root suite titles.
type Titles struct {
	Testsuites string
	RootSuite  string
}

// ReportFilename substitutes the first occurrence of each placeholder in
// pattern. [suiteFilename] is the file of the first suite and [suiteName] the
// name of the second; when that suite is missing the placeholder name without
// brackets is used.
func ReportFilename(pattern string, doc []byte, titles Titles, suites []*report.SuiteRecord) string {
	name := pattern

	if strings.Contains(name, PlaceholderHash) {
		sum := md5.Sum(doc)
		name = strings.Replace(name, PlaceholderHash, hex.EncodeToString(sum[:]), 1)
	}
	if strings.Contains(name, PlaceholderTestsuitesTitle) {
		name = strings.Replace(name, PlaceholderTestsuitesTitle, sanitize.Filename(titles.Testsuites), 1)
	}
	if strings.Contains(name, PlaceholderRootSuiteTitle) {
		name = strings.Replace(name, PlaceholderRootSuiteTitle, sanitize.Filename(titles.RootSuite), 1)
	}
	if strings.Contains(name, PlaceholderSuiteFilename) {
		file := "suiteFilename"
		if len(suites) > 0 && suites[0].File != "" {
			file = suites[0].File
		}
		name = strings.Replace(name, PlaceholderSuiteFilename, sanitize.Filename(file), 1)
	}
	if strings.Contains(name, PlaceholderSuiteName) {
		suiteName := "suiteName"
		if len(suites) > 1 {
			suiteName = suites[1].Name
		}
		name = strings.Replace(name, PlaceholderSuiteName, sanitize.Filename(suiteName), 1)
	}
	return name
}
