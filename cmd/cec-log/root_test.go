package main

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cec-protocol/cec-go/pkg/log"
)

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.clog")
	logger, err := log.NewFileLogger(path)
	require.NoError(t, err)

	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	logger.Log(log.Event{
		Timestamp: ts,
		RunID:     "0f8e1c2a-5555",
		Direction: log.DirectionOut,
		Layer:     log.LayerBus,
		Category:  log.CategoryFrame,
		Local:     4,
		Test:      "Give OSD Name",
		Frame:     &log.FrameEvent{Data: []byte{0x40, 0x46}},
	})
	logger.Log(log.Event{
		Timestamp: ts.Add(30 * time.Millisecond),
		RunID:     "0f8e1c2a-5555",
		Direction: log.DirectionIn,
		Layer:     log.LayerBus,
		Category:  log.CategoryFrame,
		Local:     4,
		Test:      "Give OSD Name",
		Frame:     &log.FrameEvent{Data: []byte{0x04, 0x47, 'T', 'V'}},
	})
	require.NoError(t, logger.Close())
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestViewCommand(t *testing.T) {
	path := writeCapture(t)

	out, err := execute(t, "view", "--direction", "in", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Opcode: Set OSD Name (0x47)")
	assert.NotContains(t, out, "Give OSD Name (0x46)")
}

func TestViewRejectsBadFilter(t *testing.T) {
	path := writeCapture(t)

	_, err := execute(t, "view", "--layer", "wire", path)
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	path := writeCapture(t)

	out, err := execute(t, "stats", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total Events: 2")
	assert.Contains(t, out, "[0f8e1c2a] 2 events, 2 frames, 0 verdicts")
}

func TestFilterCommandRequiresOutput(t *testing.T) {
	path := writeCapture(t)

	_, err := execute(t, "filter", "--opcode", "0x47", path)
	assert.Error(t, err)

	out := filepath.Join(t.TempDir(), "osd.clog")
	_, err = execute(t, "filter", "--opcode", "0x47", "-o", out, path)
	require.NoError(t, err)

	stats, err := execute(t, "stats", out)
	require.NoError(t, err)
	assert.Contains(t, stats, "Total Events: 1")
}

func TestCommandsRequireFile(t *testing.T) {
	for _, name := range []string{"view", "export", "stats"} {
		_, err := execute(t, name)
		assert.Error(t, err, name)
	}
}
