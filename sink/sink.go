package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink stores the finished report.
type Sink interface {
	// Remove deletes a previous report. A missing file is not an error.
	Remove(name string) error
	// Write creates the parent directories of name and writes content to it.
	Write(name string, content []byte) error
	// Echo prints content.
	Echo(content []byte) error
}

type fileSink struct {
	out io.Writer
}

// NewFileSink returns a Sink writing to the local filesystem and echoing to
// out.
func NewFileSink(out io.Writer) Sink {
	return fileSink{out: out}
}

func (s fileSink) Remove(name string) error {
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

func (s fileSink) Write(name string, content []byte) error {
	if dir := filepath.Dir(name); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(name, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s fileSink) Echo(content []byte) error {
	if _, err := s.out.Write(content); err != nil {
		return fmt.Errorf("failed to echo report: %w", err)
	}
	return nil
}
