// Package report aggregates runner events into the suite and test case
// records a JUnit document is rendered from.
package report

import (
	"time"

	"github.com/drone/drone-xray-junit/runner"
)

// Property names attached to test cases.
const (
	PropertyIssueKey = "test_key"
	PropertyEvidence = "testrun_evidence"
	PropertyComment  = "testrun_comment"
)

// Model is the report of one run. Suites are in discovery order.
type Model struct {
	Suites []*SuiteRecord
	// Stats is the runner's own summary. Its counts are authoritative for the
	// run totals even when they disagree with the suite records.
	Stats    runner.Stats
	Finished bool
}

// SuiteRecord is a reported suite.
type SuiteRecord struct {
	Name  string
	Start time.Time
	// Duration stays zero when the suite never ended.
	Duration   time.Duration
	File       string
	Tests      int
	Properties []Property
	TestCases  []*TestCase
	// Synthesized is set for suites created for a test whose suite never began.
	Synthesized bool
}

// Failures counts the test cases carrying a failure.
func (s *SuiteRecord) Failures() int {
	n := 0
	for _, tc := range s.TestCases {
		if tc.Failure != nil {
			n++
		}
	}
	return n
}

// Skipped counts the test cases carrying a skip marker.
func (s *SuiteRecord) Skipped() int {
	n := 0
	for _, tc := range s.TestCases {
		if tc.Skipped != "" {
			n++
		}
	}
	return n
}

// Outcome is the result of an executed test case.
type Outcome string

// Test case outcomes.
const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// TestCase is one executed test.
type TestCase struct {
	Name      string
	Classname string
	Duration  time.Duration
	// SystemOut and SystemErr are empty when nothing was captured.
	SystemOut string
	SystemErr string
	Failure   *Failure
	// Skipped holds the skip reason of a test case kept in the report but
	// not counted as run.
	Skipped    string
	Properties []Property
}

// Outcome derives the outcome from the failure and skip markers.
func (tc *TestCase) Outcome() Outcome {
	switch {
	case tc.Failure != nil:
		return OutcomeFailed
	case tc.Skipped != "":
		return OutcomeSkipped
	default:
		return OutcomePassed
	}
}

// Failure describes why a test case failed.
type Failure struct {
	Message string
	Type    string
	// Text is the stack trace or message, followed by the value diff when
	// one was computed.
	Text string
}

// Property is a name/value pair. Evidence properties carry Items instead of a
// value and comment properties carry Text.
type Property struct {
	Name  string
	Value string
	Items []Item
	Text  string
}

// Item is a named piece of embedded evidence.
type Item struct {
	Name    string
	Content string
}
