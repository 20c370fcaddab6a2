package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/drone/drone-xray-junit/report"
	"github.com/drone/drone-xray-junit/runner"
	"github.com/drone/drone-xray-junit/sink"
)

// Args represents the plugin's configurable arguments.
type Args struct {
	EventsFile      string `envconfig:"PLUGIN_EVENTS_FILE"`
	ReportFile      string `envconfig:"PLUGIN_REPORT_FILE" default:"test-results.xml"`
	TestsuitesTitle string `envconfig:"PLUGIN_TESTSUITES_TITLE" default:"Mocha Tests"`
	RootSuiteTitle  string `envconfig:"PLUGIN_ROOT_SUITE_TITLE" default:"Root Suite"`

	// Unset pointers take the jenkins mode defaults.
	UseFullSuiteTitle      *bool   `envconfig:"PLUGIN_USE_FULL_SUITE_TITLE"`
	SuiteTitleSeparator    *string `envconfig:"PLUGIN_SUITE_TITLE_SEPARATOR"`
	SwitchClassnameAndName *bool   `envconfig:"PLUGIN_SWITCH_CLASSNAME_AND_NAME"`
	JenkinsMode            bool    `envconfig:"PLUGIN_JENKINS_MODE"`
	JenkinsClassnamePrefix string  `envconfig:"PLUGIN_JENKINS_CLASSNAME_PREFIX"`

	XrayMode          bool   `envconfig:"PLUGIN_XRAY_MODE"`
	RequiredIssueKey  bool   `envconfig:"PLUGIN_REQUIRED_ISSUE_KEY"`
	FailOnMissingKeys bool   `envconfig:"PLUGIN_FAIL_ON_MISSING_KEYS"`
	AttachScreenshot  bool   `envconfig:"PLUGIN_ATTACH_SCREENSHOT"`
	ScreenshotsFolder string `envconfig:"PLUGIN_SCREENSHOTS_FOLDER"`

	Outputs     bool `envconfig:"PLUGIN_OUTPUTS"`
	Attachments bool `envconfig:"PLUGIN_ATTACHMENTS"`
	HideDiff    bool `envconfig:"PLUGIN_HIDE_DIFF"`
	ToConsole   bool `envconfig:"PLUGIN_TO_CONSOLE"`

	Properties     Properties `envconfig:"PLUGIN_PROPERTIES"`
	ShortenLogMode bool       `envconfig:"PLUGIN_SHORTEN_LOG_MODE"`
	Level          string     `envconfig:"PLUGIN_LOG_LEVEL"`
}

// ValidateInputs ensures the user inputs meet the plugin requirements.
func ValidateInputs(args Args) error {
	if args.EventsFile == "" {
		return fmt.Errorf("%w: missing required parameter: EventsFile. Please specify the runner event stream to report", ErrInvalidConfig)
	}
	if strings.TrimSpace(args.ReportFile) == "" {
		return fmt.Errorf("%w: missing required parameter: ReportFile. Please specify where to write the report", ErrInvalidConfig)
	}
	if strings.TrimSpace(args.TestsuitesTitle) == "" || strings.TrimSpace(args.RootSuiteTitle) == "" {
		return fmt.Errorf("%w: report and root suite titles must not be empty", ErrInvalidConfig)
	}
	if args.RequiredIssueKey && !args.XrayMode {
		logrus.Warn("RequiredIssueKey has no effect while XrayMode is disabled")
	}
	return nil
}

// Exec replays the runner event stream and writes the JUnit report.
func Exec(ctx context.Context, args Args) error {
	if err := ValidateInputs(args); err != nil {
		return err
	}

	events, err := openEvents(args.EventsFile)
	if err != nil {
		logrus.WithError(err).WithField("File", args.EventsFile).Error("Failed to open event stream")
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	defer events.Close()

	rep := NewReporter(args, sink.NewFileSink(os.Stdout))
	err = runner.Replay(ctx, events, rep)
	if errors.Is(err, runner.ErrTruncated) {
		logrus.WithField("File", args.EventsFile).Warn("Event stream ended before the run finished, suites without an end event report no time")
		err = nil
	}
	if err != nil {
		logrus.WithError(err).WithField("File", args.EventsFile).Error("Failed to build report")
		return fmt.Errorf("failed to build report: %w", err)
	}

	logSummary(rep.Model())

	if missing := rep.MissingIssueKeys(); len(missing) > 0 && args.FailOnMissingKeys {
		return fmt.Errorf("%w: %d test case(s)", ErrMissingIssueKeys, len(missing))
	}
	return nil
}

// options maps the arguments onto builder options, applying the jenkins mode
// defaults to settings that were not given explicitly.
func options(args Args) report.Options {
	useFull, switchNames, separator := args.JenkinsMode, args.JenkinsMode, " "
	if args.JenkinsMode {
		separator = "."
	}
	if args.UseFullSuiteTitle != nil {
		useFull = *args.UseFullSuiteTitle
	}
	if args.SwitchClassnameAndName != nil {
		switchNames = *args.SwitchClassnameAndName
	}
	if args.SuiteTitleSeparator != nil {
		separator = *args.SuiteTitleSeparator
	}

	return report.Options{
		RootSuiteTitle:         args.RootSuiteTitle,
		UseFullSuiteTitle:      useFull,
		SuiteTitleSeparator:    separator,
		JenkinsMode:            args.JenkinsMode,
		JenkinsClassnamePrefix: args.JenkinsClassnamePrefix,
		SwitchClassnameAndName: switchNames,
		Outputs:                args.Outputs,
		Attachments:            args.Attachments,
		HideDiff:               args.HideDiff,
		IssueKeys:              args.XrayMode,
		RequireIssueKey:        args.RequiredIssueKey,
		Evidence:               args.AttachScreenshot,
		ScreenshotsFolder:      args.ScreenshotsFolder,
		Properties:             args.Properties.Report(),
		ShortenLog:             args.ShortenLogMode,
		Logger:                 logrus.StandardLogger(),
	}
}

func openEvents(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

// logSummary logs the totals of the finished report.
func logSummary(m *report.Model) {
	cases, failures, skipped := 0, 0, 0
	for _, suite := range m.Suites {
		cases += len(suite.TestCases)
		failures += suite.Failures()
		skipped += suite.Skipped()
	}

	logrus.Infof("===============================================")
	logrus.Infof("Suites: %d | Test Cases: %d | Failures: %d | Skips: %d", len(m.Suites), cases, failures, skipped)
	logrus.Infof("Run Tests: %d | Failures: %d | Pending: %d | Duration: %.3f s", m.Stats.Tests, m.Stats.Failures, m.Stats.Pending, m.Stats.Duration.Seconds())
	logrus.Infof("===============================================")
}
