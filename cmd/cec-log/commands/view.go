// Package commands implements the cec-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
)

// timeFormat renders capture timestamps in UTC with microseconds.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// block collects the indented detail lines under an event header.
type block struct {
	lines []string
}

func (b *block) add(format string, args ...any) {
	b.lines = append(b.lines, "  "+fmt.Sprintf(format, args...))
}

// addIf adds "label: value" when value is non-empty.
func (b *block) addIf(label, value string) {
	if value != "" {
		b.add("%s: %s", label, value)
	}
}

// formatEvent prints a header line, the indented details and a blank line.
func formatEvent(w io.Writer, event log.Event) {
	dir := "-"
	if event.Layer != log.LayerEngine {
		dir = event.Direction.String()
	}

	var b block
	b.addIf("Test", event.Test)
	label := "Unknown"
	switch {
	case event.Frame != nil:
		label = "Frame"
		frameDetails(&b, event.Direction, event.Frame)
	case event.Verdict != nil:
		label = "Verdict"
		v := event.Verdict
		b.add("Target: %s", cec.LogicalAddress(event.Remote))
		b.add("%s / %s: %s", v.Area, v.Test, v.Verdict)
		b.addIf("Expected", v.Expected)
	case event.StateChange != nil:
		label = "State"
		stateDetails(&b, event.Remote, event.StateChange)
	case event.Error != nil:
		label = "Error"
		b.add("Layer: %s", event.Error.Layer)
		b.add("Message: %s", event.Error.Message)
		b.addIf("Context", event.Error.Context)
	}

	fmt.Fprintf(w, "%s [run:%s] %-3s %s %s\n",
		event.Timestamp.UTC().Format(timeFormat), shortenRunID(event.RunID), dir, event.Layer, label)
	for _, l := range b.lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w)
}

func shortenRunID(id string) string {
	return id[:min(len(id), 8)]
}

// frameDetails decodes the header block and the opcode. Frames that do not
// parse are shown raw with the reason.
func frameDetails(b *block, dir log.Direction, frame *log.FrameEvent) {
	b.add("Data: %s", hexBytes(frame.Data))
	f, err := cec.ParseFrame(frame.Data)
	if err != nil {
		b.add("Invalid: %v", err)
		return
	}
	dest := f.Destination.String()
	if f.Destination == cec.AddrBroadcast {
		dest = "Broadcast"
	}
	b.add("%s -> %s", f.Initiator, dest)
	if f.Poll {
		b.add("Poll")
	} else {
		b.add("Opcode: %s (0x%02x)", f.Opcode, uint8(f.Opcode))
	}
	if dir == log.DirectionOut {
		b.add("Status: %s", frame.TxStatus)
	}
}

func hexBytes(data []byte) string {
	var sb strings.Builder
	for i, v := range data {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02x", v)
	}
	return sb.String()
}

func stateDetails(b *block, remote uint8, sc *log.StateChangeEvent) {
	if sc.Entity == log.StateEntityTarget {
		b.add("Entity: %s (%s)", sc.Entity, cec.LogicalAddress(remote))
	} else {
		b.add("Entity: %s", sc.Entity)
	}
	from := ""
	if sc.OldState != "" {
		from = sc.OldState + " "
	}
	b.add("%s-> %s", from, sc.NewState)
	b.addIf("Reason", sc.Reason)
}

// RunView prints the events of path that match sel.
func RunView(path string, sel Selection, output io.Writer) error {
	filter, err := sel.logFilter()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
