package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cec-protocol/cec-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.clog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

// powerStatusExchange is a Give Device Power Status round trip between
// Playback Device 1 and the TV, followed by its verdict.
func powerStatusExchange(ts time.Time) []log.Event {
	return []log.Event{
		{
			Timestamp: ts,
			RunID:     "run-aaaa-bbbb",
			Direction: log.DirectionOut,
			Layer:     log.LayerBus,
			Category:  log.CategoryFrame,
			Local:     4,
			Remote:    0,
			Test:      "Give Device Power Status",
			Frame:     &log.FrameEvent{Data: []byte{0x40, 0x8f}, TxStatus: log.TxOK},
		},
		{
			Timestamp: ts.Add(20 * time.Millisecond),
			RunID:     "run-aaaa-bbbb",
			Direction: log.DirectionIn,
			Layer:     log.LayerBus,
			Category:  log.CategoryFrame,
			Local:     4,
			Remote:    0,
			Test:      "Give Device Power Status",
			Frame:     &log.FrameEvent{Data: []byte{0x04, 0x90, 0x00}},
		},
		{
			Timestamp: ts.Add(25 * time.Millisecond),
			RunID:     "run-aaaa-bbbb",
			Layer:     log.LayerEngine,
			Category:  log.CategoryVerdict,
			Local:     4,
			Remote:    0,
			Test:      "Give Device Power Status",
			Verdict:   &log.VerdictEvent{Area: "Power Status", Test: "Give Device Power Status", Verdict: "OK"},
		},
	}
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	path := createTestLogFile(t, powerStatusExchange(ts))
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	var first struct {
		RunID     string `json:"run_id"`
		Direction string `json:"direction"`
		Frame     *struct {
			Data   string `json:"data"`
			Opcode string `json:"opcode"`
			Status string `json:"status"`
		} `json:"frame"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if first.RunID != "run-aaaa-bbbb" || first.Direction != "OUT" {
		t.Errorf("unexpected envelope: %+v", first)
	}
	if first.Frame == nil || first.Frame.Data != "40:8f" || first.Frame.Opcode != "Give Device Power Status" || first.Frame.Status != "OK" {
		t.Errorf("unexpected frame payload: %+v", first.Frame)
	}

	var last map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("line 3 is not valid JSON: %v", err)
	}
	if _, ok := last["direction"]; ok {
		t.Error("engine events carry no direction")
	}
	verdict, ok := last["verdict"].(map[string]any)
	if !ok {
		t.Fatalf("expected verdict payload in last line, got %v", last["verdict"])
	}
	if verdict["verdict"] != "OK" || verdict["area"] != "Power Status" {
		t.Errorf("unexpected verdict: %v", verdict)
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	path := createTestLogFile(t, powerStatusExchange(ts))
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d records", len(records))
	}
	if records[0][0] != "timestamp" || records[0][9] != "detail" {
		t.Errorf("unexpected header: %v", records[0])
	}

	out1 := records[1]
	if out1[2] != "OUT" || out1[3] != "BUS" || out1[4] != "FRAME" {
		t.Errorf("unexpected direction/layer/category: %v", out1[2:5])
	}
	if out1[5] != "4" || out1[6] != "0" {
		t.Errorf("unexpected addresses: local=%s remote=%s", out1[5], out1[6])
	}
	if out1[9] != "40:8f Give Device Power Status" {
		t.Errorf("unexpected frame detail: %q", out1[9])
	}

	if records[3][8] != "verdict" || records[3][9] != "OK" {
		t.Errorf("unexpected verdict row: %v", records[3])
	}
}

func TestExportWritesToStdout(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, powerStatusExchange(ts)[:1])

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	oldStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = oldStdout }()

	exportErr := RunExport(path, "jsonl", "")
	w.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read pipe: %v", err)
	}
	if exportErr != nil {
		t.Fatalf("RunExport failed: %v", exportErr)
	}
	if !strings.Contains(buf.String(), "run-aaaa-bbbb") {
		t.Errorf("expected run ID on stdout, got %q", buf.String())
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, nil)
	out := filepath.Join(t.TempDir(), "out.xml")
	err := RunExport(path, "xml", out)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") || !strings.Contains(err.Error(), "csv, jsonl") {
		t.Errorf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output created for an unknown format: %v", statErr)
	}
}
