package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
)

// exportRecord is the flattened, text-only form of an event written by
// both export formats.
type exportRecord struct {
	Timestamp string         `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Direction string         `json:"direction,omitempty"`
	Layer     string         `json:"layer"`
	Category  string         `json:"category"`
	Local     uint8          `json:"local"`
	Remote    uint8          `json:"remote"`
	Test      string         `json:"test,omitempty"`
	Frame     *exportFrame   `json:"frame,omitempty"`
	Verdict   *exportVerdict `json:"verdict,omitempty"`
	State     *exportState   `json:"state,omitempty"`
	Error     *exportError   `json:"error,omitempty"`
}

type exportFrame struct {
	Data   string `json:"data"`
	Opcode string `json:"opcode,omitempty"`
	Status string `json:"status,omitempty"`
}

type exportVerdict struct {
	Area     string `json:"area"`
	Test     string `json:"test"`
	Verdict  string `json:"verdict"`
	Expected string `json:"expected,omitempty"`
}

type exportState struct {
	Entity string `json:"entity"`
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

type exportError struct {
	Layer   string `json:"layer"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

func newExportRecord(e log.Event) exportRecord {
	r := exportRecord{
		Timestamp: e.Timestamp.UTC().Format(timeFormat),
		RunID:     e.RunID,
		Layer:     e.Layer.String(),
		Category:  e.Category.String(),
		Local:     e.Local,
		Remote:    e.Remote,
		Test:      e.Test,
	}
	if e.Layer == log.LayerBus {
		r.Direction = e.Direction.String()
	}
	switch {
	case e.Frame != nil:
		r.Frame = &exportFrame{Data: hexBytes(e.Frame.Data)}
		if f, err := cec.ParseFrame(e.Frame.Data); err == nil && !f.Poll {
			r.Frame.Opcode = f.Opcode.String()
		}
		if e.Direction == log.DirectionOut {
			r.Frame.Status = e.Frame.TxStatus.String()
		}
	case e.Verdict != nil:
		r.Verdict = &exportVerdict{Area: e.Verdict.Area, Test: e.Verdict.Test, Verdict: e.Verdict.Verdict, Expected: e.Verdict.Expected}
	case e.StateChange != nil:
		r.State = &exportState{Entity: e.StateChange.Entity.String(), From: e.StateChange.OldState, To: e.StateChange.NewState, Reason: e.StateChange.Reason}
	case e.Error != nil:
		r.Error = &exportError{Layer: e.Error.Layer.String(), Message: e.Error.Message, Context: e.Error.Context}
	}
	return r
}

// kind and detail are the CSV summary of the payload.
func (r exportRecord) kind() (string, string) {
	switch {
	case r.Frame != nil:
		return "frame", strings.TrimSpace(r.Frame.Data + " " + r.Frame.Opcode)
	case r.Verdict != nil:
		return "verdict", r.Verdict.Verdict
	case r.State != nil:
		return "state", r.State.To
	case r.Error != nil:
		return "error", r.Error.Message
	}
	return "unknown", ""
}

// recordSink receives export records in file order.
type recordSink interface {
	Put(exportRecord) error
	Flush() error
}

type jsonlSink struct{ enc *json.Encoder }

func (s jsonlSink) Put(r exportRecord) error { return s.enc.Encode(r) }
func (s jsonlSink) Flush() error             { return nil }

var csvColumns = []string{"timestamp", "run_id", "direction", "layer", "category", "local", "remote", "test", "type", "detail"}

type csvSink struct{ w *csv.Writer }

func newCSVSink(w io.Writer) (recordSink, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return nil, err
	}
	return csvSink{w: cw}, nil
}

func (s csvSink) Put(r exportRecord) error {
	kind, detail := r.kind()
	return s.w.Write([]string{
		r.Timestamp, r.RunID, r.Direction, r.Layer, r.Category,
		strconv.Itoa(int(r.Local)), strconv.Itoa(int(r.Remote)),
		r.Test, kind, detail,
	})
}

func (s csvSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

var exportFormats = map[string]func(io.Writer) (recordSink, error){
	"jsonl": func(w io.Writer) (recordSink, error) { return jsonlSink{enc: json.NewEncoder(w)}, nil },
	"csv":   newCSVSink,
}

// ExportFormats lists the supported export formats.
func ExportFormats() []string {
	names := make([]string, 0, len(exportFormats))
	for name := range exportFormats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RunExport converts a capture to format, writing to output or to stdout
// when output is empty. The format is checked before anything is created.
func RunExport(path, format, output string) error {
	newSink, ok := exportFormats[format]
	if !ok {
		return fmt.Errorf("unknown format: %s (supported: %s)", format, strings.Join(ExportFormats(), ", "))
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	sink, err := newSink(w)
	if err != nil {
		return fmt.Errorf("failed to start %s export: %w", format, err)
	}
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := sink.Put(newExportRecord(event)); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return sink.Flush()
}
