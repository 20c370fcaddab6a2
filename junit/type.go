// Package junit renders a report model as a JUnit XML document.
package junit

import "encoding/xml"

// Testsuites is the document element summarizing the whole run.
type Testsuites struct {
	XMLName  xml.Name    `xml:"testsuites"`
	Name     string      `xml:"name,attr"`
	Time     string      `xml:"time,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Skipped  int         `xml:"skipped,attr,omitempty"`
	Suites   []Testsuite `xml:"testsuite"`
}

// Testsuite represents a reported suite.
type Testsuite struct {
	Name       string      `xml:"name,attr"`
	Timestamp  string      `xml:"timestamp,attr"`
	Tests      int         `xml:"tests,attr"`
	Time       string      `xml:"time,attr"`
	Failures   int         `xml:"failures,attr"`
	Skipped    int         `xml:"skipped,attr,omitempty"`
	File       string      `xml:"file,attr,omitempty"`
	Properties *Properties `xml:"properties,omitempty"`
	Testcases  []Testcase  `xml:"testcase"`
}

// Testcase represents an executed test.
type Testcase struct {
	Name       string      `xml:"name,attr"`
	Classname  string      `xml:"classname,attr"`
	Time       string      `xml:"time,attr"`
	SystemOut  *Output     `xml:"system-out,omitempty"`
	SystemErr  *Output     `xml:"system-err,omitempty"`
	Failure    *Failure    `xml:"failure,omitempty"`
	Skipped    *Skipped    `xml:"skipped,omitempty"`
	Properties *Properties `xml:"properties,omitempty"`
}

// Output is captured console text.
type Output struct {
	Data string `xml:",cdata"`
}

// Failure holds the message, error type and diagnostic text of a failure.
type Failure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Data    string `xml:",cdata"`
}

// Skipped marks a test case kept in the report but not counted as run.
type Skipped struct {
	Message string `xml:"message,attr"`
}

// Properties wraps the property list so that an empty list emits no
// element at all.
type Properties struct {
	Property []Property `xml:"property"`
}

// Property is a name/value pair, or a named container of evidence items or
// of a text body.
type Property struct {
	Name  string  `xml:"name,attr"`
	Value *string `xml:"value,attr,omitempty"`
	Items []Item  `xml:"item,omitempty"`
	Data  string  `xml:",cdata"`
}

// Item is an embedded evidence file.
type Item struct {
	Name string `xml:"name,attr"`
	Data string `xml:",chardata"`
}
