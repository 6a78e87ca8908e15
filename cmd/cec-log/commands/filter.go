package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/cec-protocol/cec-go/pkg/log"
)

// Selection holds the event selection flags shared by view and filter,
// as typed by the user.
type Selection struct {
	RunID     string
	Test      string
	Opcode    string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
	Target    string
}

// optional parses s into *dst unless s is empty.
func optional[T any](s string, dst **T, parse func(string) (T, error)) error {
	if s == "" {
		return nil
	}
	v, err := parse(s)
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func parseTimeFlag(name string) func(string) (time.Time, error) {
	return func(s string) (time.Time, error) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid %s format: %w", name, err)
		}
		return t, nil
	}
}

func (o Selection) logFilter() (log.Filter, error) {
	f := log.Filter{RunID: o.RunID, Test: o.Test}
	for _, err := range []error{
		optional(o.TimeStart, &f.TimeStart, parseTimeFlag("time-start")),
		optional(o.TimeEnd, &f.TimeEnd, parseTimeFlag("time-end")),
		optional(o.Layer, &f.Layer, ParseLayerFlag),
		optional(o.Direction, &f.Direction, ParseDirectionFlag),
		optional(o.Category, &f.Category, ParseCategoryFlag),
		optional(o.Opcode, &f.Opcode, ParseOpcodeFlag),
		optional(o.Target, &f.Remote, ParseTargetFlag),
	} {
		if err != nil {
			return log.Filter{}, err
		}
	}
	return f, nil
}

// RunFilter copies the events of path that match sel into a new capture
// at output and returns how many were written.
func RunFilter(path, output string, sel Selection) (int, error) {
	filter, err := sel.logFilter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}

	var readErr error
	for {
		event, err := reader.Next()
		if err != nil {
			if err != io.EOF {
				readErr = fmt.Errorf("failed to read event: %w", err)
			}
			break
		}
		out.Log(event)
	}
	if err := out.Close(); err != nil && readErr == nil {
		readErr = fmt.Errorf("failed to write %s: %w", output, err)
	}
	return out.Count(), readErr
}
