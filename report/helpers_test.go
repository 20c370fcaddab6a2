package report

import (
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/drone/drone-xray-junit/runner"
)

// clock is a manually advanced time source.
type clock struct {
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func rootSuite() *runner.Suite {
	return &runner.Suite{ID: "root", Root: true, File: "cypress/e2e/cart.cy.js"}
}

func addSuite(parent *runner.Suite, title string) *runner.Suite {
	s := &runner.Suite{ID: parent.ID + "/" + title, Title: title, Parent: parent}
	parent.Suites = append(parent.Suites, s)
	return s
}

func addTest(parent *runner.Suite, title string) *runner.Test {
	t := &runner.Test{ID: parent.ID + "#" + title, Title: title, Parent: parent, State: runner.StatePassed}
	parent.Tests = append(parent.Tests, t)
	return t
}

func newTestBuilder(opts Options) (*Builder, *clock, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c := newClock()
	if opts.RootSuiteTitle == "" {
		opts.RootSuiteTitle = "Root Suite"
	}
	if opts.SuiteTitleSeparator == "" {
		opts.SuiteTitleSeparator = " "
	}
	opts.Logger = logger
	opts.Now = c.Now
	return NewBuilder(opts), c, hook
}

func warnings(hook *logtest.Hook) []string {
	var msgs []string
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			msgs = append(msgs, entry.Message)
		}
	}
	return msgs
}
