package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cec-protocol/cec-go/pkg/log"
)

func TestStatsCountsByLayerAndCategory(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, powerStatusExchange(ts))

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total Events: 3",
		"BUS:         2",
		"ENGINE:      1",
		"FRAME:       2",
		"VERDICT:     1",
		"IN:          1",
		"OUT:         1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStatsTransmitStatusAndVerdicts(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := append(powerStatusExchange(ts),
		log.Event{
			Timestamp: ts.Add(time.Second),
			RunID:     "run-aaaa-bbbb",
			Direction: log.DirectionOut,
			Layer:     log.LayerBus,
			Category:  log.CategoryFrame,
			Remote:    8,
			Frame:     &log.FrameEvent{Data: []byte{0x48}, TxStatus: log.TxNack},
		},
		log.Event{
			Timestamp: ts.Add(2 * time.Second),
			RunID:     "run-aaaa-bbbb",
			Layer:     log.LayerEngine,
			Category:  log.CategoryVerdict,
			Remote:    0,
			Verdict:   &log.VerdictEvent{Area: "Core", Test: "Feature aborts", Verdict: "FAIL"},
		},
	)
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Transmit Status:",
		"OK:          1",
		"NACK:        1",
		"Verdicts:",
		"FAIL:              1",
		"OK:                1",
		"TV (0): 1 out, 1 in",
		"Playback Device 2 (8): 1 out, 0 in",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStatsCountsRuns(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, RunID: "aaaaaaaa-1111", Category: log.CategoryState, StateChange: &log.StateChangeEvent{Entity: log.StateEntityRun, NewState: "RUNNING"}},
		{Timestamp: ts.Add(time.Second), RunID: "aaaaaaaa-1111", Category: log.CategoryState, StateChange: &log.StateChangeEvent{Entity: log.StateEntityRun, NewState: "DONE"}},
		{Timestamp: ts.Add(time.Minute), RunID: "bbbbbbbb-2222", Category: log.CategoryState, StateChange: &log.StateChangeEvent{Entity: log.StateEntityRun, NewState: "RUNNING"}},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Runs: 2") {
		t.Errorf("expected 2 runs in output:\n%s", out)
	}
	if !strings.Contains(out, "[aaaaaaaa] 2 events") || !strings.Contains(out, "[bbbbbbbb] 1 events") {
		t.Errorf("expected per-run lines in output:\n%s", out)
	}
	if strings.Index(out, "[aaaaaaaa]") > strings.Index(out, "[bbbbbbbb]") {
		t.Error("runs should be listed in order of first appearance")
	}
}

func TestStatsTargetState(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Remote: 4, Category: log.CategoryState, StateChange: &log.StateChangeEvent{Entity: log.StateEntityTarget, NewState: "RUNNING"}},
		{Timestamp: ts, Remote: 4, Category: log.CategoryState, StateChange: &log.StateChangeEvent{Entity: log.StateEntityTarget, NewState: "DONE"}},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Playback Device 1 (4): 0 out, 0 in, DONE") {
		t.Errorf("expected final target state in output:\n%s", buf.String())
	}
}

func TestStatsErrorCount(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "one"}},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "two"}},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Errors: 2") {
		t.Errorf("expected error count in output:\n%s", buf.String())
	}
}
