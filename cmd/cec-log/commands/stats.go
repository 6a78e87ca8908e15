package commands

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
)

// tally counts occurrences per key.
type tally[K comparable] map[K]int

// write prints the non-zero counts in the given key order under title. The
// label column is width characters wide. Nothing is printed when every
// count is zero.
func (t tally[K]) write(w io.Writer, title string, width int, order []K, name func(K) string) {
	if len(t) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, k := range order {
		if n := t[k]; n > 0 {
			fmt.Fprintf(w, "  %-*s %d\n", width, name(k)+":", n)
		}
	}
	fmt.Fprintln(w)
}

func stringer[K fmt.Stringer](k K) string { return k.String() }

type runTotals struct {
	id          string
	first, last time.Time
	events      int
	frames      int
	verdicts    int
}

type targetTotals struct {
	out, in   int
	verdicts  tally[string]
	lastState string
}

// captureStats aggregates a capture in one pass.
type captureStats struct {
	events     int
	errors     int
	start, end time.Time

	layers     tally[log.Layer]
	categories tally[log.Category]
	directions tally[log.Direction]
	txStatus   tally[log.TxStatus]
	verdicts   tally[string]

	runs    map[string]*runTotals
	targets map[uint8]*targetTotals
}

func newCaptureStats() *captureStats {
	return &captureStats{
		layers:     tally[log.Layer]{},
		categories: tally[log.Category]{},
		directions: tally[log.Direction]{},
		txStatus:   tally[log.TxStatus]{},
		verdicts:   tally[string]{},
		runs:       map[string]*runTotals{},
		targets:    map[uint8]*targetTotals{},
	}
}

// RunStats prints aggregate counts for the capture at path.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	s := newCaptureStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		s.add(event)
	}
	s.print(w)
	return nil
}

func (s *captureStats) target(la uint8) *targetTotals {
	t := s.targets[la]
	if t == nil {
		t = &targetTotals{verdicts: tally[string]{}}
		s.targets[la] = t
	}
	return t
}

func (s *captureStats) run(e log.Event) *runTotals {
	r := s.runs[e.RunID]
	if r == nil {
		r = &runTotals{id: e.RunID, first: e.Timestamp, last: e.Timestamp}
		s.runs[e.RunID] = r
	}
	r.last = later(r.last, e.Timestamp)
	return r
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func (s *captureStats) add(e log.Event) {
	s.events++
	s.layers[e.Layer]++
	s.categories[e.Category]++
	if s.start.IsZero() || e.Timestamp.Before(s.start) {
		s.start = e.Timestamp
	}
	s.end = later(s.end, e.Timestamp)

	r := s.run(e)
	r.events++
	switch {
	case e.Frame != nil:
		r.frames++
		s.directions[e.Direction]++
		t := s.target(e.Remote)
		if e.Direction == log.DirectionIn {
			t.in++
			break
		}
		t.out++
		s.txStatus[e.Frame.TxStatus]++
	case e.Verdict != nil:
		r.verdicts++
		s.verdicts[e.Verdict.Verdict]++
		s.target(e.Remote).verdicts[e.Verdict.Verdict]++
	case e.StateChange != nil && e.StateChange.Entity == log.StateEntityTarget:
		s.target(e.Remote).lastState = e.StateChange.NewState
	}
	if e.Error != nil {
		s.errors++
	}
}

func (s *captureStats) print(w io.Writer) {
	fmt.Fprintln(w, "=== CEC Bus Capture Statistics ===")
	fmt.Fprintln(w)
	if s.events > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", s.start.Format(time.RFC3339), s.end.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n\n", s.end.Sub(s.start).Round(time.Second))
	}
	fmt.Fprintf(w, "Total Events: %d\n\n", s.events)

	s.layers.write(w, "Events by Layer:", 12,
		[]log.Layer{log.LayerBus, log.LayerEngine}, stringer[log.Layer])
	s.categories.write(w, "Events by Category:", 12,
		[]log.Category{log.CategoryFrame, log.CategoryVerdict, log.CategoryState, log.CategoryError}, stringer[log.Category])
	s.directions.write(w, "Frames by Direction:", 12,
		[]log.Direction{log.DirectionIn, log.DirectionOut}, stringer[log.Direction])
	s.txStatus.write(w, "Transmit Status:", 12,
		[]log.TxStatus{log.TxOK, log.TxNack, log.TxError, log.TxTimeout}, stringer[log.TxStatus])
	s.verdicts.write(w, "Verdicts:", 18, slices.Sorted(maps.Keys(s.verdicts)), func(v string) string { return v })

	fmt.Fprintf(w, "Runs: %d\n", len(s.runs))
	runs := slices.SortedFunc(maps.Values(s.runs), func(a, b *runTotals) int {
		return a.first.Compare(b.first)
	})
	for _, r := range runs {
		fmt.Fprintf(w, "  [%s] %d events, %d frames, %d verdicts, duration %s\n",
			shortenRunID(r.id), r.events, r.frames, r.verdicts, r.last.Sub(r.first).Round(time.Millisecond))
	}

	if len(s.targets) > 0 {
		fmt.Fprintln(w, "\nTargets:")
		for _, la := range slices.SortedFunc(maps.Keys(s.targets), cmp.Compare[uint8]) {
			t := s.targets[la]
			fmt.Fprintf(w, "  %s (%d): %d out, %d in", cec.LogicalAddress(la), la, t.out, t.in)
			if t.lastState != "" {
				fmt.Fprintf(w, ", %s", t.lastState)
			}
			fmt.Fprintln(w)
			for _, v := range slices.Sorted(maps.Keys(t.verdicts)) {
				fmt.Fprintf(w, "           %s: %d\n", v, t.verdicts[v])
			}
		}
	}

	if s.errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", s.errors)
	}
}
