package report

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drone/drone-xray-junit/runner"
	"github.com/drone/drone-xray-junit/sanitize"
)

var (
	// ErrInvalidTopology is returned for suite trees the builder cannot
	// classify. The report would be corrupt, so the run must be aborted.
	ErrInvalidTopology = errors.New("invalid suite topology")
	// ErrRunFinished is returned for events delivered after the run ended.
	ErrRunFinished = errors.New("run already finished")
)

// Options configures a Builder.
type Options struct {
	RootSuiteTitle      string
	UseFullSuiteTitle   bool
	SuiteTitleSeparator string

	JenkinsMode            bool
	JenkinsClassnamePrefix string
	SwitchClassnameAndName bool

	Outputs     bool
	Attachments bool
	HideDiff    bool

	IssueKeys         bool
	RequireIssueKey   bool
	Evidence          bool
	ScreenshotsFolder string

	// Properties are attached to every suite.
	Properties []Property

	// ShortenLog logs progress at debug level instead of info.
	ShortenLog bool
	Logger     logrus.FieldLogger
	Now        func() time.Time
	ReadFile   func(name string) ([]byte, error)
}

// Builder reconstructs the report model from runner events. A Builder serves
// a single run and must not be shared between goroutines.
type Builder struct {
	opts      Options
	titles    TitleResolver
	extractor *Extractor
	log       logrus.FieldLogger
	now       func() time.Time

	model   Model
	handles map[*runner.Suite]int
	missing []string
}

// NewBuilder returns a Builder for one run.
func NewBuilder(opts Options) *Builder {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	return &Builder{
		opts:   opts,
		titles: NewTitleResolver(opts),
		extractor: &Extractor{
			IssueKeys:         opts.IssueKeys,
			RequireIssueKey:   opts.RequireIssueKey,
			Evidence:          opts.Evidence,
			ScreenshotsFolder: opts.ScreenshotsFolder,
			ReadFile:          opts.ReadFile,
			Log:               opts.Logger,
		},
		log:     opts.Logger,
		now:     opts.Now,
		handles: make(map[*runner.Suite]int),
	}
}

// Model returns the report model. It is complete once OnRunEnd returned.
func (b *Builder) Model() *Model {
	return &b.model
}

// MissingIssueKeys lists the full titles of tests that lacked a required
// issue key.
func (b *Builder) MissingIssueKeys() []string {
	return b.missing
}

// OnRunStart implements runner.Listener.
func (b *Builder) OnRunStart(root *runner.Suite) error {
	if b.model.Finished {
		return ErrRunFinished
	}
	fields := logrus.Fields{"IssueKeys": b.opts.IssueKeys}
	if root != nil {
		fields["Suites"] = len(root.Suites)
	}
	b.log.WithFields(fields).Info("Creating XML report")
	return nil
}

// OnSuiteBegin implements runner.Listener. Invalid suites are ignored.
func (b *Builder) OnSuiteBegin(suite *runner.Suite) error {
	if b.model.Finished {
		return ErrRunFinished
	}
	shape, err := classify(suite)
	if err != nil {
		return err
	}
	if invalid(suite, shape) {
		b.log.WithField("Suite", suite.ID).Debug("Ignoring suite without title or children")
		return nil
	}
	if idx, ok := b.handles[suite]; ok {
		b.progress("Suite already recorded", b.model.Suites[idx].Name)
		return nil
	}

	rec := b.record(suite)
	b.progress("Analyzing suite", rec.Name)
	return nil
}

// OnSuiteEnd implements runner.Listener. A suite whose begin event produced no
// record is ignored.
func (b *Builder) OnSuiteEnd(suite *runner.Suite) error {
	if b.model.Finished {
		return ErrRunFinished
	}
	shape, err := classify(suite)
	if err != nil {
		return err
	}
	if invalid(suite, shape) || len(suite.Tests) == 0 {
		return nil
	}
	idx, ok := b.handles[suite]
	if !ok {
		b.log.WithField("Suite", suite.ID).Debug("Suite ended without a record")
		return nil
	}
	rec := b.model.Suites[idx]
	rec.Duration = b.now().Sub(rec.Start)
	b.progress("Successfully analyzed suite", rec.Name)
	return nil
}

// OnTestEnd implements runner.Listener. Pending and skipped tests are left
// out of the report, and so are tests lacking a required issue key; those
// are listed by MissingIssueKeys. A test whose suite never began gets its suite record
// synthesized.
func (b *Builder) OnTestEnd(test *runner.Test, testErr *runner.TestError) error {
	if b.model.Finished {
		return ErrRunFinished
	}
	if test == nil || test.Parent == nil {
		return fmt.Errorf("%w: test without parent suite", ErrInvalidTopology)
	}
	if _, err := classify(test.Parent); err != nil {
		return err
	}
	if !test.State.Executed() {
		b.progress("Skipping test case", test.FullTitle())
		return nil
	}

	tc, missingKey := b.testCase(test, testErr)
	if missingKey {
		b.missing = append(b.missing, test.FullTitle())
		b.log.WithField("Test", test.FullTitle()).Warn("Missing issue key, test case skipped from report")
		return nil
	}
	rec := b.suiteFor(test.Parent)
	rec.TestCases = append(rec.TestCases, tc)
	b.progress("Properly analyzed test case", test.FullTitle())
	return nil
}

// OnRunEnd implements runner.Listener. The model is immutable afterwards.
func (b *Builder) OnRunEnd(stats runner.Stats) error {
	if b.model.Finished {
		return ErrRunFinished
	}
	b.model.Stats = stats
	b.model.Finished = true

	if len(b.missing) > 0 {
		b.log.WithField("Tests", b.missing).Warnf("Missing issue key in %d test case(s)", len(b.missing))
	}
	b.log.WithField("Suites", len(b.model.Suites)).Info("All suites have been parsed")
	return nil
}

func (b *Builder) suiteFor(suite *runner.Suite) *SuiteRecord {
	if idx, ok := b.handles[suite]; ok {
		return b.model.Suites[idx]
	}
	rec := b.record(suite)
	rec.Synthesized = true
	b.log.WithField("Suite", rec.Name).Warn("Test ended before its suite began, suite synthesized")
	return rec
}

func (b *Builder) record(suite *runner.Suite) *SuiteRecord {
	rec := &SuiteRecord{
		Name:       b.titles.SuiteTitle(suite),
		Start:      b.now(),
		File:       sourceFile(suite.File),
		Tests:      len(suite.Tests),
		Properties: b.opts.Properties,
	}
	b.handles[suite] = len(b.model.Suites)
	b.model.Suites = append(b.model.Suites, rec)
	return rec
}

func (b *Builder) testCase(test *runner.Test, testErr *runner.TestError) (*TestCase, bool) {
	name := test.FullTitle()
	if b.opts.JenkinsMode {
		name = jenkinsClassname(test, b.opts.JenkinsClassnamePrefix, b.opts.SuiteTitleSeparator)
	}
	classname := test.Title
	if b.opts.SwitchClassnameAndName {
		name, classname = classname, name
	}

	tc := &TestCase{
		Name:      sanitize.Text(name),
		Classname: sanitize.Text(classname),
		Duration:  test.Duration,
	}

	// A test case holds at most one system-out, so console lines and
	// attachments share it.
	var out []string
	if b.opts.Outputs {
		out = append(out, test.ConsoleOutputs...)
	}
	if b.opts.Attachments {
		for _, file := range test.Attachments {
			out = append(out, "[[ATTACHMENT|"+file+"]]")
		}
	}
	if len(out) > 0 {
		tc.SystemOut = sanitize.Text(strings.Join(out, "\n"))
	}
	if b.opts.Outputs && len(test.ConsoleErrors) > 0 {
		tc.SystemErr = sanitize.Text(strings.Join(test.ConsoleErrors, "\n"))
	}

	if testErr != nil {
		tc.Failure = FormatFailure(testErr, b.opts.HideDiff)
	}

	props, missingKey := b.extractor.Properties(test, tc)
	tc.Properties = props
	return tc, missingKey
}

func (b *Builder) progress(msg, title string) {
	entry := b.log.WithField("Title", title)
	if b.opts.ShortenLog {
		entry.Debug(msg)
		return
	}
	entry.Info(msg)
}

type shape int

const (
	shapeEmpty shape = iota
	shapeTests
	shapeSuites
	shapeMixed
)

// classify sorts a suite by its direct children after checking that the
// children point back at it and that its ancestor chain ends.
func classify(suite *runner.Suite) (shape, error) {
	if suite == nil {
		return 0, fmt.Errorf("%w: nil suite", ErrInvalidTopology)
	}
	for _, child := range suite.Suites {
		if child == nil || child.Parent != suite {
			return 0, fmt.Errorf("%w: child suite of %q is detached", ErrInvalidTopology, suite.Title)
		}
	}
	for _, test := range suite.Tests {
		if test == nil || test.Parent != suite {
			return 0, fmt.Errorf("%w: test of %q is detached", ErrInvalidTopology, suite.Title)
		}
	}
	seen := map[*runner.Suite]bool{}
	for s := suite; s != nil; s = s.Parent {
		if seen[s] {
			return 0, fmt.Errorf("%w: suite %q is its own ancestor", ErrInvalidTopology, suite.Title)
		}
		seen[s] = true
	}

	switch hasTests, hasSuites := len(suite.Tests) > 0, len(suite.Suites) > 0; {
	case hasTests && hasSuites:
		return shapeMixed, nil
	case hasTests:
		return shapeTests, nil
	case hasSuites:
		return shapeSuites, nil
	default:
		return shapeEmpty, nil
	}
}

func invalid(suite *runner.Suite, sh shape) bool {
	return (!suite.Root && suite.Title == "") || sh == shapeEmpty
}

func sourceFile(file string) string {
	if strings.ContainsAny(file, `/\`) {
		return path.Base(strings.ReplaceAll(file, `\`, "/"))
	}
	return file
}
