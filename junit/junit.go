package junit

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"time"

	"github.com/drone/drone-xray-junit/report"
)

const timestampLayout = "2006-01-02T15:04:05"

// Build converts a finished model into the document tree. Suite failure and
// skip counts are recounted from the test cases; the run totals come from the
// runner stats except for tests, which sums the suites' declared tests.
func Build(m *report.Model, title string) Testsuites {
	doc := Testsuites{
		Name:     title,
		Time:     seconds(m.Stats.Duration),
		Failures: m.Stats.Failures,
		Skipped:  m.Stats.Pending,
		Suites:   make([]Testsuite, 0, len(m.Suites)),
	}

	for _, rec := range m.Suites {
		suite := Testsuite{
			Name:       rec.Name,
			Timestamp:  timestamp(rec.Start),
			Tests:      rec.Tests,
			Time:       seconds(rec.Duration),
			Failures:   rec.Failures(),
			Skipped:    rec.Skipped(),
			File:       rec.File,
			Properties: properties(rec.Properties),
			Testcases:  make([]Testcase, 0, len(rec.TestCases)),
		}
		for _, tc := range rec.TestCases {
			suite.Testcases = append(suite.Testcases, testcase(tc))
		}
		doc.Tests += rec.Tests
		doc.Suites = append(doc.Suites, suite)
	}
	return doc
}

// Serialize renders the model as an indented, declaration-prefixed document.
// The same model always yields the same bytes.
func Serialize(m *report.Model, title string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(Build(m, title)); err != nil {
		return nil, fmt.Errorf("failed to encode JUnit XML: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("failed to encode JUnit XML: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func testcase(tc *report.TestCase) Testcase {
	out := Testcase{
		Name:       tc.Name,
		Classname:  tc.Classname,
		Time:       seconds(tc.Duration),
		Properties: properties(tc.Properties),
	}
	if tc.SystemOut != "" {
		out.SystemOut = &Output{Data: tc.SystemOut}
	}
	if tc.SystemErr != "" {
		out.SystemErr = &Output{Data: tc.SystemErr}
	}
	if tc.Failure != nil {
		out.Failure = &Failure{
			Message: tc.Failure.Message,
			Type:    tc.Failure.Type,
			Data:    tc.Failure.Text,
		}
	}
	if tc.Skipped != "" {
		out.Skipped = &Skipped{Message: tc.Skipped}
	}
	return out
}

func properties(props []report.Property) *Properties {
	if len(props) == 0 {
		return nil
	}
	out := make([]Property, 0, len(props))
	for _, p := range props {
		prop := Property{Name: p.Name, Data: p.Text}
		switch {
		case len(p.Items) > 0:
			for _, item := range p.Items {
				prop.Items = append(prop.Items, Item{Name: item.Name, Data: item.Content})
			}
		case p.Text == "":
			value := p.Value
			prop.Value = &value
		}
		out = append(out, prop)
	}
	return &Properties{Property: out}
}

// seconds formats d as seconds with exactly three decimals.
func seconds(d time.Duration) string {
	s := d.Seconds()
	if math.IsNaN(s) || math.IsInf(s, 0) {
		s = 0
	}
	return fmt.Sprintf("%.3f", s)
}

// timestamp formats t in UTC to the second, without a zone designator.
func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
