package runner

import (
	"encoding/json"
	"time"
)

// event is one line of a JSON-lines event stream.
type event struct {
	Event string          `json:"event"`
	Root  *suiteNode      `json:"root,omitempty"`
	Suite string          `json:"suite,omitempty"`
	Test  *testNode       `json:"test,omitempty"`
	Err   json.RawMessage `json:"err,omitempty"`
	Stats *statsNode      `json:"stats,omitempty"`
}

// suiteNode is a suite of the tree sent with the start event.
type suiteNode struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Root   bool         `json:"root"`
	File   string       `json:"file"`
	Suites []*suiteNode `json:"suites"`
	Tests  []*testNode  `json:"tests"`
}

// testNode is a test declared in the tree or reported by a test end event.
type testNode struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Parent         string           `json:"parent"`
	State          string           `json:"state"`
	Duration       *float64         `json:"duration"`
	Hook           bool             `json:"hook"`
	IssueKey       string           `json:"issueKey"`
	ConsoleOutputs []string         `json:"consoleOutputs"`
	ConsoleErrors  []string         `json:"consoleErrors"`
	Attachments    []string         `json:"attachments"`
	Screenshots    []screenshotNode `json:"screenshots"`
}

type screenshotNode struct {
	Path    string    `json:"path"`
	TakenAt time.Time `json:"takenAt"`
}

// errorNode is the error attached to a failed test end event.
type errorNode struct {
	Name     string          `json:"name"`
	Message  string          `json:"message"`
	Stack    string          `json:"stack"`
	Inspect  string          `json:"inspect"`
	Expected json.RawMessage `json:"expected"`
	Actual   json.RawMessage `json:"actual"`
}

// statsNode is the runner summary sent with the end event. Durations are
// milliseconds.
type statsNode struct {
	Suites   int        `json:"suites"`
	Tests    int        `json:"tests"`
	Passes   int        `json:"passes"`
	Pending  int        `json:"pending"`
	Failures int        `json:"failures"`
	Start    *time.Time `json:"start"`
	End      *time.Time `json:"end"`
	Duration float64    `json:"duration"`
}
