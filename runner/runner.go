// Package runner describes the lifecycle events a test runner emits and the
// suite and test records they carry.
package runner

import (
	"strings"
	"time"
)

// State is the final state of a test.
type State string

// Test states reported by the runner.
const (
	StatePassed  State = "passed"
	StateFailed  State = "failed"
	StatePending State = "pending"
	StateSkipped State = "skipped"
)

// Executed reports whether the test actually ran.
func (s State) Executed() bool {
	return s != StatePending && s != StateSkipped
}

// Suite is a node of the runner's suite tree.
type Suite struct {
	ID     string
	Title  string
	Root   bool
	File   string
	Parent *Suite
	Suites []*Suite
	Tests  []*Test
}

// Anonymous reports whether the suite is the unnamed root container.
func (s *Suite) Anonymous() bool {
	return s.Root && s.Title == ""
}

// FullTitle joins the non-empty titles from the root down to s with spaces.
func (s *Suite) FullTitle() string {
	var titles []string
	for p := s; p != nil; p = p.Parent {
		if p.Title != "" {
			titles = append([]string{p.Title}, titles...)
		}
	}
	return strings.Join(titles, " ")
}

// Screenshot is an image captured while a test ran.
type Screenshot struct {
	Path    string
	TakenAt time.Time
}

// Test is a single test, or a hook reported in place of one.
type Test struct {
	ID       string
	Title    string
	Parent   *Suite
	State    State
	Duration time.Duration
	Hook     bool

	// IssueKey is the issue tracker key declared in the test configuration.
	IssueKey string

	ConsoleOutputs []string
	ConsoleErrors  []string
	Attachments    []string
	Screenshots    []Screenshot
}

// FullTitle is the parent's full title followed by the test title.
func (t *Test) FullTitle() string {
	if t.Parent == nil {
		return t.Title
	}
	if parent := t.Parent.FullTitle(); parent != "" {
		return parent + " " + t.Title
	}
	return t.Title
}

// TestError is the error a failed test was reported with.
type TestError struct {
	Name    string
	Message string
	Stack   string
	// Inspect is the runner's printable form of the error, used when the
	// error carries no message.
	Inspect string

	Expected    interface{}
	Actual      interface{}
	HasExpected bool
}

// Stats is the runner's own summary of the run.
type Stats struct {
	Suites   int
	Tests    int
	Passes   int
	Pending  int
	Failures int
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Listener receives runner lifecycle events in emission order.
type Listener interface {
	OnRunStart(root *Suite) error
	OnSuiteBegin(suite *Suite) error
	OnSuiteEnd(suite *Suite) error
	OnTestEnd(test *Test, err *TestError) error
	OnRunEnd(stats Stats) error
}
