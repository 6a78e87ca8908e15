package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func captureJSON(t *testing.T, level slog.Level, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	adapter.Log(event)

	if buf.Len() == 0 {
		return nil
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func group(t *testing.T, entry map[string]any, name string) map[string]any {
	t.Helper()
	g, ok := entry[name].(map[string]any)
	if !ok {
		t.Fatalf("missing %s group in %v", name, entry)
	}
	return g
}

func TestSlogAdapterLogsFrameEvent(t *testing.T) {
	e := frameEvent("run-7", DirectionOut, 0x04, 0x46)
	e.Frame.TxStatus = TxNack
	entry := captureJSON(t, slog.LevelDebug, e)

	if entry["msg"] != "capture frame" || entry["level"] != "DEBUG" {
		t.Errorf("msg/level: got %v / %v", entry["msg"], entry["level"])
	}
	if entry["run"] != "run-7" || entry["layer"] != "BUS" || entry["dir"] != "OUT" {
		t.Errorf("envelope: got %v", entry)
	}
	frame := group(t, entry, "frame")
	if frame["data"] != "04 46" {
		t.Errorf("data: got %v", frame["data"])
	}
	if frame["status"] != "NACK" {
		t.Errorf("status: got %v", frame["status"])
	}
}

func TestSlogAdapterFramesHiddenAtInfo(t *testing.T) {
	if entry := captureJSON(t, slog.LevelInfo, frameEvent("run", DirectionIn, 0x40, 0x47)); entry != nil {
		t.Errorf("frame logged at Info: %v", entry)
	}
}

func TestSlogAdapterLogsVerdict(t *testing.T) {
	entry := captureJSON(t, slog.LevelInfo, Event{
		Timestamp: time.Now(),
		Layer:     LayerEngine,
		Category:  CategoryVerdict,
		Test:      "abort",
		Verdict:   &VerdictEvent{Area: "Core", Test: "Abort", Verdict: "FAIL", Expected: "FAIL"},
	})
	if entry["level"] != "INFO" || entry["test"] != "abort" {
		t.Errorf("envelope: got %v", entry)
	}
	if _, ok := entry["dir"]; ok {
		t.Error("engine events carry no direction")
	}
	v := group(t, entry, "verdict")
	if v["result"] != "FAIL" || v["expected"] != "FAIL" || v["area"] != "Core" {
		t.Errorf("verdict attrs: got %v", v)
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	entry := captureJSON(t, slog.LevelDebug, Event{
		Timestamp: time.Now(),
		Layer:     LayerEngine,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityTarget,
			OldState: "present",
			NewState: "lost",
			Reason:   "no poll ack",
		},
	})
	st := group(t, entry, "state")
	if st["entity"] != "TARGET" || st["to"] != "lost" || st["reason"] != "no poll ack" {
		t.Errorf("state attrs: got %v", st)
	}
}

func TestSlogAdapterLogsErrorAtWarn(t *testing.T) {
	entry := captureJSON(t, slog.LevelWarn, Event{
		Timestamp: time.Now(),
		Layer:     LayerBus,
		Category:  CategoryError,
		Error:     &ErrorEventData{Layer: LayerBus, Message: "adapter gone"},
	})
	if entry["level"] != "WARN" || group(t, entry, "error")["message"] != "adapter gone" {
		t.Errorf("error entry: got %v", entry)
	}
}
