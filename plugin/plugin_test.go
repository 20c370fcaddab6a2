package plugin

import (
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/drone/drone-xray-junit/junit"
	"github.com/drone/drone-xray-junit/report"
	"github.com/drone/drone-xray-junit/runner"
)

// LogEntry captures a single log entry.
type LogEntry struct {
	Level   logrus.Level
	Message string
	Fields  logrus.Fields
}

// MockLogHook is a hook to capture log entries.
type MockLogHook struct {
	Entries []LogEntry
}

// Fire is called for each log entry.
func (hook *MockLogHook) Fire(entry *logrus.Entry) error {
	hook.Entries = append(hook.Entries, LogEntry{
		Level:   entry.Level,
		Message: entry.Message,
		Fields:  entry.Data,
	})
	return nil
}

// Levels returns the log levels supported by the hook.
func (hook *MockLogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// NewMockLogHook creates a new instance of MockLogHook.
func NewMockLogHook() *MockLogHook {
	return &MockLogHook{}
}

// captureLogs installs a MockLogHook on the standard logger for the duration
// of the test.
func captureLogs(t *testing.T) *MockLogHook {
	t.Helper()
	hook := NewMockLogHook()
	logrus.AddHook(hook)
	t.Cleanup(func() {
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	})
	return hook
}

// Messages returns the messages logged at level.
func (hook *MockLogHook) Messages(level logrus.Level) []string {
	var msgs []string
	for _, entry := range hook.Entries {
		if entry.Level == level {
			msgs = append(msgs, entry.Message)
		}
	}
	return msgs
}

// memorySink is a sink.Sink keeping everything in memory.
type memorySink struct {
	removed   []string
	written   map[string]string
	echoed    []string
	removeErr error
	writeErr  error
	echoErr   error
}

func newMemorySink() *memorySink {
	return &memorySink{written: make(map[string]string)}
}

func (s *memorySink) Remove(name string) error {
	s.removed = append(s.removed, name)
	return s.removeErr
}

func (s *memorySink) Write(name string, content []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written[name] = string(content)
	return nil
}

func (s *memorySink) Echo(content []byte) error {
	if s.echoErr != nil {
		return s.echoErr
	}
	s.echoed = append(s.echoed, string(content))
	return nil
}

func validArgs() Args {
	return Args{
		EventsFile:      "../testdata/cart-run.jsonl",
		ReportFile:      "test-results.xml",
		TestsuitesTitle: "Mocha Tests",
		RootSuiteTitle:  "Root Suite",
	}
}

func boolPtr(b bool) *bool { return &b }

func stringPtr(s string) *string { return &s }

// TestValidateInputs tests the ValidateInputs function with various cases
func TestValidateInputs(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Args)
		expectErr bool
		errMsg    string
		warnings  []string
	}{
		{
			name:   "ValidInputs",
			modify: func(*Args) {},
		},
		{
			name:      "MissingEventsFile",
			modify:    func(a *Args) { a.EventsFile = "" },
			expectErr: true,
			errMsg:    "missing required parameter: EventsFile",
		},
		{
			name:      "BlankReportFile",
			modify:    func(a *Args) { a.ReportFile = "  " },
			expectErr: true,
			errMsg:    "missing required parameter: ReportFile",
		},
		{
			name:      "EmptyRootSuiteTitle",
			modify:    func(a *Args) { a.RootSuiteTitle = "" },
			expectErr: true,
			errMsg:    "titles must not be empty",
		},
		{
			name:     "RequiredKeyWithoutXrayMode",
			modify:   func(a *Args) { a.RequiredIssueKey = true },
			warnings: []string{"RequiredIssueKey has no effect while XrayMode is disabled"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hook := captureLogs(t)
			args := validArgs()
			tc.modify(&args)

			err := ValidateInputs(args)

			if tc.expectErr {
				if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("ValidateInputs() expected error %q but got %v", tc.errMsg, err)
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("ValidateInputs() error %v does not wrap ErrInvalidConfig", err)
				}
			} else if err != nil {
				t.Errorf("ValidateInputs() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.warnings, hook.Messages(logrus.WarnLevel)); diff != "" {
				t.Errorf("warnings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPropertiesDecode(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected Properties
		errMsg   string
	}{
		{
			name:     "Ordered",
			value:    "env:staging, browser : chrome,build:42",
			expected: Properties{{"env", "staging"}, {"browser", "chrome"}, {"build", "42"}},
		},
		{
			name:     "ValueWithColon",
			value:    "url:https://shop.example.com",
			expected: Properties{{"url", "https://shop.example.com"}},
		},
		{
			name:     "MissingValue",
			value:    "flaky,",
			expected: Properties{{"flaky", ""}},
		},
		{
			name:  "Empty",
			value: "",
		},
		{
			name:   "MissingName",
			value:  "env:staging,:orphan",
			errMsg: "missing name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var props Properties
			err := props.Decode(tc.value)
			if tc.errMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("Decode() expected error %q but got %v", tc.errMsg, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.expected, props); diff != "" {
				t.Errorf("properties mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPropertiesReport(t *testing.T) {
	props := Properties{{"env", "staging"}, {"browser", "chrome"}}
	expected := []report.Property{{Name: "env", Value: "staging"}, {Name: "browser", Value: "chrome"}}
	if diff := cmp.Diff(expected, props.Report()); diff != "" {
		t.Errorf("report properties mismatch (-want +got):\n%s", diff)
	}
	if Properties(nil).Report() != nil {
		t.Error("expected no report properties for an empty list")
	}
}

func TestOptions(t *testing.T) {
	type naming struct {
		UseFull   bool
		Separator string
		Switch    bool
	}

	tests := []struct {
		name     string
		modify   func(*Args)
		expected naming
	}{
		{
			name:     "Defaults",
			modify:   func(*Args) {},
			expected: naming{Separator: " "},
		},
		{
			name:     "JenkinsDefaults",
			modify:   func(a *Args) { a.JenkinsMode = true },
			expected: naming{UseFull: true, Separator: ".", Switch: true},
		},
		{
			name: "JenkinsOverrides",
			modify: func(a *Args) {
				a.JenkinsMode = true
				a.UseFullSuiteTitle = boolPtr(false)
				a.SwitchClassnameAndName = boolPtr(false)
				a.SuiteTitleSeparator = stringPtr(" / ")
			},
			expected: naming{Separator: " / "},
		},
		{
			name: "ExplicitWithoutJenkins",
			modify: func(a *Args) {
				a.UseFullSuiteTitle = boolPtr(true)
				a.SuiteTitleSeparator = stringPtr("::")
			},
			expected: naming{UseFull: true, Separator: "::"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := validArgs()
			tc.modify(&args)
			opts := options(args)

			got := naming{UseFull: opts.UseFullSuiteTitle, Separator: opts.SuiteTitleSeparator, Switch: opts.SwitchClassnameAndName}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("naming options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOptionsMapsFeatures(t *testing.T) {
	args := validArgs()
	args.XrayMode = true
	args.RequiredIssueKey = true
	args.AttachScreenshot = true
	args.ScreenshotsFolder = "cypress/screenshots"
	args.Outputs = true
	args.Attachments = true
	args.HideDiff = true
	args.ShortenLogMode = true
	args.JenkinsClassnamePrefix = "e2e"

	opts := options(args)
	if !opts.IssueKeys || !opts.RequireIssueKey || !opts.Evidence || !opts.Outputs || !opts.Attachments || !opts.HideDiff || !opts.ShortenLog {
		t.Errorf("feature flags not mapped: %+v", opts)
	}
	if opts.ScreenshotsFolder != "cypress/screenshots" || opts.JenkinsClassnamePrefix != "e2e" || opts.RootSuiteTitle != "Root Suite" {
		t.Errorf("settings not mapped: %+v", opts)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"Success", nil, ExitSuccess},
		{"Config", ErrInvalidConfig, ExitConfigError},
		{"WrappedConfig", errors.Join(errors.New("open events.jsonl"), ErrInvalidConfig), ExitConfigError},
		{"MissingKeys", ErrMissingIssueKeys, ExitMissingIssueKeys},
		{"Generation", report.ErrInvalidTopology, ExitGenerationError},
		{"Malformed", runner.ErrMalformedEvent, ExitGenerationError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.expected {
				t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.expected)
			}
		})
	}
}

func TestReporterFlush(t *testing.T) {
	captureLogs(t)
	args := validArgs()
	args.ReportFile = "results/[suiteName]-[hash].xml"
	args.ToConsole = true
	s := newMemorySink()

	rep := NewReporter(args, s)
	events, err := os.Open(args.EventsFile)
	if err != nil {
		t.Fatal(err)
	}
	defer events.Close()
	if err := runner.Replay(context.Background(), events, rep); err != nil {
		t.Fatalf("Replay() unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{args.ReportFile}, s.removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(rep.Filename(), "results/Cart-") || !strings.HasSuffix(rep.Filename(), ".xml") {
		t.Errorf("unexpected report filename %q", rep.Filename())
	}
	if got := s.written[rep.Filename()]; got != string(rep.XML()) {
		t.Errorf("written report differs from the flushed document")
	}
	if diff := cmp.Diff([]string{string(rep.XML())}, s.echoed); diff != "" {
		t.Errorf("echoed mismatch (-want +got):\n%s", diff)
	}

	var doc junit.Testsuites
	if err := xml.Unmarshal(rep.XML(), &doc); err != nil {
		t.Fatalf("report does not parse: %v", err)
	}
	var names []string
	for _, suite := range doc.Suites {
		names = append(names, suite.Name)
	}
	if diff := cmp.Diff([]string{"Root Suite", "Cart", "Checkout"}, names); diff != "" {
		t.Errorf("suite names mismatch (-want +got):\n%s", diff)
	}
	if doc.Tests != 4 || doc.Failures != 1 || doc.Skipped != 1 || doc.Time != "0.180" {
		t.Errorf("unexpected totals: tests=%d failures=%d skipped=%d time=%s", doc.Tests, doc.Failures, doc.Skipped, doc.Time)
	}
	if got := len(doc.Suites[2].Testcases); got != 1 {
		t.Errorf("Checkout test cases = %d, want 1 as pending tests are left out", got)
	}
}

func TestReporterSinkFailuresAreContained(t *testing.T) {
	hook := captureLogs(t)
	args := validArgs()
	args.ToConsole = true
	s := newMemorySink()
	s.removeErr = errors.New("permission denied")
	s.writeErr = errors.New("disk full")
	s.echoErr = errors.New("broken pipe")

	rep := newReporter(args, report.Options{RootSuiteTitle: "Root Suite", SuiteTitleSeparator: " "}, s)
	if err := rep.OnRunStart(&runner.Suite{Root: true}); err != nil {
		t.Fatalf("OnRunStart() unexpected error: %v", err)
	}
	if err := rep.OnRunEnd(runner.Stats{}); err != nil {
		t.Fatalf("OnRunEnd() unexpected error: %v", err)
	}

	if len(rep.XML()) == 0 {
		t.Error("expected the document to be generated despite sink failures")
	}
	if diff := cmp.Diff([]string{"Failed to remove previous report"}, hook.Messages(logrus.WarnLevel)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	errs := hook.Messages(logrus.ErrorLevel)
	if len(errs) != 1 || errs[0] != "Failed to deliver report" {
		t.Fatalf("expected one delivery error, got %v", errs)
	}
	for _, entry := range hook.Entries {
		if entry.Message != "Failed to deliver report" {
			continue
		}
		msg := entry.Fields[logrus.ErrorKey].(error).Error()
		if !strings.Contains(msg, "disk full") || !strings.Contains(msg, "broken pipe") {
			t.Errorf("delivery error does not combine both failures: %s", msg)
		}
	}
}

func TestExec(t *testing.T) {
	tests := []struct {
		name       string
		events     string
		modify     func(*Args)
		expectErr  error
		exitCode   int
		suites     []string
		reportFile bool
	}{
		{
			name:       "CompleteRun",
			events:     "../testdata/cart-run.jsonl",
			modify:     func(*Args) {},
			suites:     []string{"Root Suite", "Cart", "Checkout"},
			reportFile: true,
		},
		{
			name:       "HookFailure",
			events:     "../testdata/hook-failure.jsonl",
			modify:     func(*Args) {},
			suites:     []string{"Root Suite", "Login", "Orders"},
			reportFile: true,
		},
		{
			name:       "TruncatedStream",
			events:     "../testdata/truncated.jsonl",
			modify:     func(*Args) {},
			suites:     []string{"Root Suite", "Profile"},
			reportFile: true,
		},
		{
			name:   "MissingKeysTolerated",
			events: "../testdata/hook-failure.jsonl",
			modify: func(a *Args) {
				a.XrayMode = true
				a.RequiredIssueKey = true
			},
			suites:     []string{"Root Suite", "Login", "Orders"},
			reportFile: true,
		},
		{
			name:   "MissingKeysFail",
			events: "../testdata/hook-failure.jsonl",
			modify: func(a *Args) {
				a.XrayMode = true
				a.RequiredIssueKey = true
				a.FailOnMissingKeys = true
			},
			expectErr:  ErrMissingIssueKeys,
			exitCode:   ExitMissingIssueKeys,
			suites:     []string{"Root Suite", "Login", "Orders"},
			reportFile: true,
		},
		{
			name:      "MissingEventsFile",
			events:    "../testdata/does-not-exist.jsonl",
			modify:    func(*Args) {},
			expectErr: ErrInvalidConfig,
			exitCode:  ExitConfigError,
		},
		{
			name:      "MalformedStream",
			events:    "",
			modify:    func(*Args) {},
			expectErr: runner.ErrMalformedEvent,
			exitCode:  ExitGenerationError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			captureLogs(t)
			dir := t.TempDir()
			args := validArgs()
			args.ReportFile = filepath.Join(dir, "reports", "results.xml")
			args.EventsFile = tc.events
			if tc.events == "" {
				args.EventsFile = filepath.Join(dir, "events.jsonl")
				if err := os.WriteFile(args.EventsFile, []byte(`{"event":"suite","suite":"s1"}`+"\n"), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			tc.modify(&args)

			err := Exec(context.Background(), args)

			if tc.expectErr != nil {
				if !errors.Is(err, tc.expectErr) {
					t.Fatalf("Exec() expected error %v but got %v", tc.expectErr, err)
				}
			} else if err != nil {
				t.Fatalf("Exec() unexpected error: %v", err)
			}
			if got := ExitCode(err); got != tc.exitCode {
				t.Errorf("ExitCode() = %d, want %d", got, tc.exitCode)
			}

			content, readErr := os.ReadFile(args.ReportFile)
			if !tc.reportFile {
				if readErr == nil {
					t.Error("expected no report to be written")
				}
				return
			}
			if readErr != nil {
				t.Fatalf("report not written: %v", readErr)
			}
			var doc junit.Testsuites
			if err := xml.Unmarshal(content, &doc); err != nil {
				t.Fatalf("report does not parse: %v", err)
			}
			var names []string
			for _, suite := range doc.Suites {
				names = append(names, suite.Name)
			}
			if diff := cmp.Diff(tc.suites, names); diff != "" {
				t.Errorf("suite names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecReplacesPreviousReport(t *testing.T) {
	captureLogs(t)
	dir := t.TempDir()
	args := validArgs()
	args.ReportFile = filepath.Join(dir, "results.xml")
	if err := os.WriteFile(args.ReportFile, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Exec(context.Background(), args); err != nil {
		t.Fatalf("Exec() unexpected error: %v", err)
	}
	content, err := os.ReadFile(args.ReportFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(content), xml.Header) {
		t.Errorf("expected a fresh report, got %q", content)
	}
}
