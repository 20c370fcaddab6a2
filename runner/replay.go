package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

const maxEventBytes = 16 * 1024 * 1024

// Event names of the JSON-lines stream.
const (
	EventStart    = "start"
	EventSuite    = "suite"
	EventSuiteEnd = "suite end"
	EventTestEnd  = "test end"
	EventEnd      = "end"
)

var (
	// ErrMalformedEvent is returned for events that fail validation.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrTruncated is returned when the stream ends before the end event. The
	// listener has already received an end event built from the events seen.
	ErrTruncated = errors.New("event stream ended before the run finished")
)

type replay struct {
	listener Listener
	root     *Suite
	suites   map[string]*Suite
	tests    map[string]*Test
	ended    bool
	tally    Stats
}

// Replay reads a JSON-lines event stream from r and delivers every event to l
// in order.
func Replay(ctx context.Context, r io.Reader, l Listener) error {
	rp := &replay{
		listener: l,
		suites:   make(map[string]*Suite),
		tests:    make(map[string]*Test),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("line %d: %w: %v", line, ErrMalformedEvent, err)
		}
		if err := rp.dispatch(ev); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}

	if rp.root != nil && !rp.ended {
		if err := l.OnRunEnd(rp.tally); err != nil {
			return err
		}
		return ErrTruncated
	}
	if rp.root == nil {
		return fmt.Errorf("%w: no %q event in stream", ErrMalformedEvent, EventStart)
	}
	return nil
}

func (rp *replay) dispatch(ev event) error {
	if ev.Event != EventStart && rp.root == nil {
		return fmt.Errorf("%w: %q before %q", ErrMalformedEvent, ev.Event, EventStart)
	}
	if rp.ended {
		return fmt.Errorf("%w: %q after %q", ErrMalformedEvent, ev.Event, EventEnd)
	}

	switch ev.Event {
	case EventStart:
		if rp.root != nil {
			return fmt.Errorf("%w: duplicate %q", ErrMalformedEvent, EventStart)
		}
		if ev.Root == nil {
			return fmt.Errorf("%w: %q without root suite", ErrMalformedEvent, EventStart)
		}
		root, err := rp.buildSuite(ev.Root, nil)
		if err != nil {
			return err
		}
		root.Root = true
		rp.root = root
		rp.tally.Start = time.Now()
		return rp.listener.OnRunStart(root)

	case EventSuite, EventSuiteEnd:
		suite, ok := rp.suites[ev.Suite]
		if !ok {
			return fmt.Errorf("%w: %q references unknown suite %q", ErrMalformedEvent, ev.Event, ev.Suite)
		}
		if ev.Event == EventSuite {
			rp.tally.Suites++
			return rp.listener.OnSuiteBegin(suite)
		}
		return rp.listener.OnSuiteEnd(suite)

	case EventTestEnd:
		test, err := rp.resolveTest(ev.Test)
		if err != nil {
			return err
		}
		testErr, err := decodeError(ev.Err)
		if err != nil {
			return err
		}
		if testErr != nil && test.State == "" {
			test.State = StateFailed
		}
		if test.State == "" {
			return fmt.Errorf("%w: test %q has no state", ErrMalformedEvent, test.ID)
		}
		rp.count(test)
		return rp.listener.OnTestEnd(test, testErr)

	case EventEnd:
		rp.ended = true
		stats := rp.tally
		if ev.Stats != nil {
			stats = Stats{
				Suites:   ev.Stats.Suites,
				Tests:    ev.Stats.Tests,
				Passes:   ev.Stats.Passes,
				Pending:  ev.Stats.Pending,
				Failures: ev.Stats.Failures,
				Duration: millis(ev.Stats.Duration),
			}
			if ev.Stats.Start != nil {
				stats.Start = *ev.Stats.Start
			}
			if ev.Stats.End != nil {
				stats.End = *ev.Stats.End
			}
		}
		return rp.listener.OnRunEnd(stats)

	default:
		return fmt.Errorf("%w: unknown event %q", ErrMalformedEvent, ev.Event)
	}
}

func (rp *replay) buildSuite(node *suiteNode, parent *Suite) (*Suite, error) {
	if node.ID == "" {
		return nil, fmt.Errorf("%w: suite %q without id", ErrMalformedEvent, node.Title)
	}
	if _, ok := rp.suites[node.ID]; ok {
		return nil, fmt.Errorf("%w: duplicate suite id %q", ErrMalformedEvent, node.ID)
	}
	suite := &Suite{
		ID:     node.ID,
		Title:  node.Title,
		Root:   node.Root,
		File:   node.File,
		Parent: parent,
	}
	rp.suites[node.ID] = suite

	for _, tn := range node.Tests {
		if tn == nil || tn.ID == "" {
			return nil, fmt.Errorf("%w: test without id in suite %q", ErrMalformedEvent, node.ID)
		}
		if _, ok := rp.tests[tn.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate test id %q", ErrMalformedEvent, tn.ID)
		}
		test := &Test{ID: tn.ID, Parent: suite}
		applyTest(test, tn)
		rp.tests[tn.ID] = test
		suite.Tests = append(suite.Tests, test)
	}
	for _, sn := range node.Suites {
		if sn == nil {
			return nil, fmt.Errorf("%w: null child suite in %q", ErrMalformedEvent, node.ID)
		}
		child, err := rp.buildSuite(sn, suite)
		if err != nil {
			return nil, err
		}
		suite.Suites = append(suite.Suites, child)
	}
	return suite, nil
}

// resolveTest merges a test end payload into the declared test, or creates a
// hook pseudo-test attached to its parent suite.
func (rp *replay) resolveTest(tn *testNode) (*Test, error) {
	if tn == nil || tn.ID == "" {
		return nil, fmt.Errorf("%w: %q without test id", ErrMalformedEvent, EventTestEnd)
	}
	test, ok := rp.tests[tn.ID]
	if !ok {
		parent, ok := rp.suites[tn.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: test %q references unknown parent %q", ErrMalformedEvent, tn.ID, tn.Parent)
		}
		test = &Test{ID: tn.ID, Parent: parent, Hook: true}
		rp.tests[tn.ID] = test
	}
	applyTest(test, tn)

	switch test.State {
	case "", StatePassed, StateFailed, StatePending, StateSkipped:
	default:
		return nil, fmt.Errorf("%w: test %q has unknown state %q", ErrMalformedEvent, test.ID, test.State)
	}
	return test, nil
}

func applyTest(test *Test, tn *testNode) {
	if tn.Title != "" {
		test.Title = tn.Title
	}
	if tn.State != "" {
		test.State = State(tn.State)
	}
	if tn.Duration != nil {
		test.Duration = millis(*tn.Duration)
	}
	if tn.Hook {
		test.Hook = true
	}
	if tn.IssueKey != "" {
		test.IssueKey = tn.IssueKey
	}
	if tn.ConsoleOutputs != nil {
		test.ConsoleOutputs = tn.ConsoleOutputs
	}
	if tn.ConsoleErrors != nil {
		test.ConsoleErrors = tn.ConsoleErrors
	}
	if tn.Attachments != nil {
		test.Attachments = tn.Attachments
	}
	if tn.Screenshots != nil {
		test.Screenshots = make([]Screenshot, 0, len(tn.Screenshots))
		for _, s := range tn.Screenshots {
			test.Screenshots = append(test.Screenshots, Screenshot{Path: s.Path, TakenAt: s.TakenAt})
		}
	}
}

func decodeError(raw json.RawMessage) (*TestError, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var node errorNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("%w: err: %v", ErrMalformedEvent, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: err: %v", ErrMalformedEvent, err)
	}

	testErr := &TestError{
		Name:    node.Name,
		Message: node.Message,
		Stack:   node.Stack,
		Inspect: node.Inspect,
	}
	if _, ok := fields["expected"]; ok {
		testErr.HasExpected = true
		if err := unmarshalValue(node.Expected, &testErr.Expected); err != nil {
			return nil, err
		}
		if err := unmarshalValue(node.Actual, &testErr.Actual); err != nil {
			return nil, err
		}
	}
	return testErr, nil
}

func unmarshalValue(raw json.RawMessage, v *interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: err value: %v", ErrMalformedEvent, err)
	}
	return nil
}

func (rp *replay) count(test *Test) {
	switch test.State {
	case StatePending, StateSkipped:
		rp.tally.Pending++
	case StateFailed:
		rp.tally.Failures++
	case StatePassed:
		rp.tally.Passes++
	}
	if !test.Hook {
		rp.tally.Tests++
	}
	rp.tally.Duration = time.Since(rp.tally.Start)
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
