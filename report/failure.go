package report

import (
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/drone/drone-xray-junit/runner"
	"github.com/drone/drone-xray-junit/sanitize"
)

// FormatFailure turns a test error into a failure record. The diagnostic
// text is the stack, or the message when there is none, followed by a
// unified diff of actual against expected unless hideDiff is set.
func FormatFailure(err *runner.TestError, hideDiff bool) *Failure {
	if err == nil {
		return &Failure{}
	}

	message := err.Message
	if message == "" {
		message = err.Inspect
	}

	text := err.Stack
	if text == "" {
		text = message
	}
	if !hideDiff && err.HasExpected {
		if diff := valueDiff(err.Actual, err.Expected); diff != "" {
			text += "\n" + diff
		}
	}

	return &Failure{
		Message: sanitize.Text(message),
		Type:    sanitize.Text(err.Name),
		Text:    sanitize.Text(text),
	}
}

func valueDiff(actual, expected interface{}) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(stringify(actual)),
		B:        difflib.SplitLines(stringify(expected)),
		FromFile: "actual",
		ToFile:   "expected",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// stringify renders strings as they are and everything else as indented
// JSON, which sorts object keys.
func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
