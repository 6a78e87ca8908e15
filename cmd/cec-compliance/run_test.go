package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cec-protocol/cec-go/internal/testharness/reporter"
	"github.com/cec-protocol/cec-go/internal/testharness/runner"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

const fastConfig = `
[timeouts]
reply = "100ms"
record = "100ms"
long = "500ms"
poll_interval = "10ms"
settle = "10ms"
collect = "100ms"
observe = "10ms"
`

// startBridge serves a simulated bus on a loopback port.
func startBridge(t *testing.T) string {
	t.Helper()
	bus, err := simulatedBus([]string{"tv", "playback"}, "eng")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	srv, err := transport.NewServer(transport.ServerConfig{Address: "127.0.0.1:0", Adapter: bus})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop() })
	return srv.Addr().String()
}

func TestRunAgainstSimulatedBridge(t *testing.T) {
	addr := startBridge(t)
	cfg := writeFile(t, "run.toml", fastConfig)

	out, err := execute(t, "run", "-c", cfg, "--bridge", addr,
		"--target", "0", "--tags", "core", "--format", "json")
	require.NoError(t, err)

	var res reporter.JSONRunResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Targets, 1)
	assert.Equal(t, uint8(0), res.Targets[0].Address)
	assert.Equal(t, "DONE", res.Targets[0].State)
	assert.NotZero(t, res.Passed)
	assert.Zero(t, res.Failed)
}

func TestRunReportsExpectationFailure(t *testing.T) {
	addr := startBridge(t)
	cfg := writeFile(t, "run.toml", fastConfig)

	out, err := execute(t, "run", "-c", cfg, "--bridge", addr,
		"--target", "0", "--tags", "core", "--format", "json",
		"--expect", "Feature aborts Abort message=FAIL")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, exitCode(err))

	var res reporter.JSONRunResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Failed)
}

func TestRunConfigurationErrors(t *testing.T) {
	addr := startBridge(t)

	_, err := execute(t, "run", "--bridge", addr, "--expect", "no-such-test=OK")
	assert.Equal(t, ExitCommandError, exitCode(err))

	_, err = execute(t, "run", "--bridge", addr, "--target", "15")
	assert.Equal(t, ExitCommandError, exitCode(err))

	_, err = execute(t, "run", "--bridge", addr, "--format", "csv")
	assert.Equal(t, ExitCommandError, exitCode(err))

	_, err = execute(t, "run", "-c", writeFile(t, "bad.toml", "local = 99"))
	assert.Equal(t, ExitCommandError, exitCode(err))
}

func TestRunBridgeUnreachable(t *testing.T) {
	_, err := execute(t, "run", "--bridge", "127.0.0.1:1", "--dial-attempts", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, exitCode(err))
}

// countingDialer fails every dial and counts the attempts.
type countingDialer struct{ calls atomic.Int32 }

func (d *countingDialer) Dial(context.Context, string) (transport.Transport, error) {
	d.calls.Add(1)
	return nil, errors.New("connection refused")
}

var _ runner.Dialer = (*countingDialer)(nil)

func TestRunRejectsBadInputBeforeDialling(t *testing.T) {
	for name, args := range map[string][]string{
		"unknown expectation": {"--expect", "no-such-test=OK"},
		"bad verdict":         {"--expect", "give-osd-name=MAYBE"},
		"target out of range": {"--target", "15"},
		"report format":       {"--format", "csv"},
	} {
		t.Run(name, func(t *testing.T) {
			dialer := &countingDialer{}
			cmd := newRunCommandWith(&RunOptions{
				RootOptions: &RootOptions{LogFormat: "text"},
				Dialer:      dialer,
			})
			cmd.SetArgs(append([]string{"--bridge", "127.0.0.1:9"}, args...))
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(io.Discard)
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			err := cmd.Execute()
			assert.Equal(t, ExitCommandError, exitCode(err), "%v", err)
			assert.Zero(t, dialer.calls.Load(), "bridge dialled before input was checked")
		})
	}
}
