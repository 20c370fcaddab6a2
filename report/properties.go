package report

import (
	"encoding/base64"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/drone/drone-xray-junit/runner"
	"github.com/drone/drone-xray-junit/sanitize"
)

const (
	commentOpen  = "{color:#ff0000}"
	commentClose = "{color}"
)

// Extractor derives the auxiliary properties of a test case.
type Extractor struct {
	IssueKeys       bool
	RequireIssueKey bool
	Evidence        bool
	// ScreenshotsFolder enables the conventional failure screenshot path for
	// failed tests that report no screenshots.
	ScreenshotsFolder string
	ReadFile          func(name string) ([]byte, error)
	Log               logrus.FieldLogger
}

// Properties returns the issue key, evidence and comment properties of a test
// case, in that order, each only when it applies. missingKey is set when an
// issue key is required but the test declares none.
func (e *Extractor) Properties(t *runner.Test, tc *TestCase) (props []Property, missingKey bool) {
	if e.IssueKeys {
		if key := strings.TrimSpace(t.IssueKey); key != "" {
			props = append(props, Property{Name: PropertyIssueKey, Value: sanitize.Text(key)})
		} else if e.RequireIssueKey && !t.Hook {
			missingKey = true
		}
	}

	if e.Evidence {
		if items := e.evidence(t); len(items) > 0 {
			props = append(props, Property{Name: PropertyEvidence, Items: items})
		}
	}

	if tc.Failure != nil && tc.Failure.Text != "" {
		props = append(props, Property{Name: PropertyComment, Text: commentOpen + tc.Failure.Text + commentClose})
	}
	return props, missingKey
}

// evidence embeds the test's screenshots, most recent first. Screenshots that
// cannot be read are skipped with a warning.
func (e *Extractor) evidence(t *runner.Test) []Item {
	shots := make([]runner.Screenshot, len(t.Screenshots))
	copy(shots, t.Screenshots)
	if len(shots) == 0 && e.ScreenshotsFolder != "" && t.State == runner.StateFailed {
		shots = append(shots, runner.Screenshot{Path: runner.ScreenshotPath(e.ScreenshotsFolder, testFile(t.Parent), t)})
	}
	sort.SliceStable(shots, func(i, j int) bool {
		return shots[i].TakenAt.After(shots[j].TakenAt)
	})

	var items []Item
	for _, shot := range shots {
		data, err := e.ReadFile(shot.Path)
		if err != nil {
			e.Log.WithError(err).WithFields(logrus.Fields{
				"Test":       t.FullTitle(),
				"Screenshot": shot.Path,
			}).Warn("Screenshot not found, evidence omitted")
			continue
		}
		items = append(items, Item{
			Name:    sanitize.Text(filepath.Base(filepath.FromSlash(shot.Path))),
			Content: base64.StdEncoding.EncodeToString(data),
		})
	}
	return items
}

// testFile is the first file recorded on the suite or its ancestors.
func testFile(s *runner.Suite) string {
	for ; s != nil; s = s.Parent {
		if s.File != "" {
			return s.File
		}
	}
	return ""
}
