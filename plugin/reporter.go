package plugin

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/drone/drone-xray-junit/junit"
	"github.com/drone/drone-xray-junit/report"
	"github.com/drone/drone-xray-junit/runner"
	"github.com/drone/drone-xray-junit/sink"
)

// Reporter is the runner.Listener that builds the report model and hands
// the finished document to the sink when the run ends.
type Reporter struct {
	*report.Builder

	args Args
	sink sink.Sink

	xml      []byte
	filename string
}

var _ runner.Listener = (*Reporter)(nil)

// NewReporter returns a Reporter for one run.
func NewReporter(args Args, s sink.Sink) *Reporter {
	return newReporter(args, options(args), s)
}

func newReporter(args Args, opts report.Options, s sink.Sink) *Reporter {
	return &Reporter{
		Builder: report.NewBuilder(opts),
		args:    args,
		sink:    s,
	}
}

// OnRunStart removes the report left by a previous run.
func (r *Reporter) OnRunStart(root *runner.Suite) error {
	if err := r.sink.Remove(r.args.ReportFile); err != nil {
		logrus.WithError(err).WithField("File", r.args.ReportFile).Warn("Failed to remove previous report")
	} else {
		logrus.WithField("File", r.args.ReportFile).Debug("Removed previous report")
	}
	return r.Builder.OnRunStart(root)
}

// OnRunEnd finalizes the model and flushes the document.
func (r *Reporter) OnRunEnd(stats runner.Stats) error {
	if err := r.Builder.OnRunEnd(stats); err != nil {
		return err
	}
	return r.flush()
}

// XML returns the flushed document.
func (r *Reporter) XML() []byte {
	return r.xml
}

// Filename returns the path the document was written to.
func (r *Reporter) Filename() string {
	return r.filename
}

// flush serializes the model, writes it and optionally echoes it. Sink
// failures are logged and do not fail the run.
func (r *Reporter) flush() error {
	doc, err := junit.Serialize(r.Model(), r.args.TestsuitesTitle)
	if err != nil {
		return fmt.Errorf("failed to generate XML: %w", err)
	}
	r.xml = doc
	r.filename = sink.ReportFilename(r.args.ReportFile, doc, sink.Titles{
		Testsuites: r.args.TestsuitesTitle,
		RootSuite:  r.args.RootSuiteTitle,
	}, r.Model().Suites)

	var result *multierror.Error
	if err := r.sink.Write(r.filename, doc); err != nil {
		result = multierror.Append(result, err)
	} else {
		logrus.WithField("File", r.filename).Info("Report written")
	}
	if r.args.ToConsole {
		if err := r.sink.Echo(doc); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logrus.WithError(err).WithField("File", r.filename).Error("Failed to deliver report")
	}
	return nil
}
