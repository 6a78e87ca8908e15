package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/internal/testharness/mock"
	"github.com/cec-protocol/cec-go/internal/testharness/remote"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
)

const local = cec.AddrPlayback1

func fastTimeouts() engine.Timeouts {
	return engine.Timeouts{
		Reply:        20 * time.Millisecond,
		Record:       20 * time.Millisecond,
		Long:         100 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Settle:       5 * time.Millisecond,
		Collect:      20 * time.Millisecond,
		Observe:      5 * time.Millisecond,
	}
}

func newBus(t *testing.T, devices ...*mock.Device) *mock.Controller {
	t.Helper()
	bus := mock.NewController(local, 0x1000)
	for _, d := range devices {
		require.NoError(t, bus.AddDevice(d))
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func newEngine(t *testing.T, bus *mock.Controller, areas ...engine.Area) (*engine.Engine, *engine.EngineConfig) {
	t.Helper()
	reg, err := engine.NewRegistry(areas...)
	require.NoError(t, err)
	cfg := engine.DefaultConfig()
	cfg.Timeouts = fastTimeouts()
	return engine.NewWithConfig(cfg, bus, reg), cfg
}

func returns(v engine.Verdict) engine.Body {
	return func(context.Context, *engine.Env) engine.Verdict { return v }
}

// captureLog collects capture events.
type captureLog struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLog) Log(ev log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureLog) byCategory(cat log.Category) []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []log.Event
	for _, ev := range c.events {
		if ev.Category == cat {
			out = append(out, ev)
		}
	}
	return out
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in   string
		want engine.Verdict
	}{
		{"0", engine.OK},
		{"OK", engine.OK},
		{"pass", engine.OK},
		{"3", engine.OKNotSupported},
		{"ok_not_supported", engine.OKNotSupported},
		{"ok-refused", engine.OKRefused},
		{"FAIL_CRITICAL", engine.FailCritical},
		{" 8 ", engine.NotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := engine.ParseVerdict(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "9", "-1", "6", "OK_EXPECTED_FAIL", "maybe"} {
		_, err := engine.ParseVerdict(bad)
		assert.ErrorIs(t, err, engine.ErrInvalidVerdict, bad)
	}
}

func TestVerdictStrings(t *testing.T) {
	assert.Equal(t, "OK (Not Supported)", engine.OKNotSupported.String())
	assert.Equal(t, "OK_NOT_SUPPORTED", engine.OKNotSupported.Name())
	assert.Equal(t, "VERDICT(42)", engine.Verdict(42).String())
	assert.True(t, engine.FailCritical.IsFailure())
	assert.False(t, engine.OKExpectedFail.IsFailure())

	var v engine.Verdict
	require.NoError(t, v.UnmarshalText([]byte("ok-presumed")))
	assert.Equal(t, engine.OKPresumed, v)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "give-osd-name", engine.SafeName("Give OSD Name"))
	assert.Equal(t, "recognized-unrecognized-message-consistency",
		engine.SafeName("Recognized/unrecognized message consistency"))
	assert.Equal(t, "standby-resume", engine.SafeName("  Standby / Resume!"))
	assert.Equal(t, "cdc-hec-discover", engine.SafeName("cdc-hec-discover"))
}

func TestRegistryDuplicates(t *testing.T) {
	// The same name with the same body in two areas is fine.
	_, err := engine.NewRegistry(
		engine.Area{Name: "A", Cases: []engine.Case{{Name: "User Control Pressed", Body: returns(engine.OK)}}},
		engine.Area{Name: "B", Cases: []engine.Case{{Name: "User Control Pressed", Body: returns(engine.OK)}}},
	)
	require.NoError(t, err)

	_, err = engine.NewRegistry(
		engine.Area{Name: "A", Cases: []engine.Case{{Name: "Give OSD Name", Key: "one", Body: returns(engine.OK)}}},
		engine.Area{Name: "B", Cases: []engine.Case{{Name: "give osd name", Key: "two", Body: returns(engine.OK)}}},
	)
	assert.ErrorIs(t, err, engine.ErrDuplicateCase)
}

func TestRegistryExpectations(t *testing.T) {
	reg, err := engine.NewRegistry(engine.Area{Name: "A", Cases: []engine.Case{{Name: "Give OSD Name", Body: returns(engine.OK)}}})
	require.NoError(t, err)

	require.NoError(t, reg.SetExpectedResult("give-osd-name", "3", true))
	exp, ok := reg.Expected("Give OSD Name")
	require.True(t, ok)
	assert.Equal(t, engine.OKNotSupported, exp.Verdict)
	assert.True(t, exp.NoWarnings)

	assert.ErrorIs(t, reg.SetExpectedResult("nope", "OK", false), engine.ErrUnknownCase)
	assert.ErrorIs(t, reg.SetExpectedResult("give-osd-name", "bogus", false), engine.ErrInvalidVerdict)

	name, token, err := engine.ParseExpectation(" give-osd-name = FAIL ")
	require.NoError(t, err)
	assert.Equal(t, "give-osd-name", name)
	assert.Equal(t, "FAIL", token)

	for _, bad := range []string{"give-osd-name", "=OK", "name="} {
		_, _, err := engine.ParseExpectation(bad)
		assert.ErrorIs(t, err, engine.ErrBadExpression, bad)
	}
}

func TestParseTags(t *testing.T) {
	tags, err := engine.ParseTags([]string{"deck-control", " Tuner-Control "})
	require.NoError(t, err)
	assert.Equal(t, engine.TagCore|engine.TagDeckControl|engine.TagTunerControl, tags)

	tags, err = engine.ParseTags([]string{"deck-control", "all"})
	require.NoError(t, err)
	assert.Equal(t, engine.TagAll, tags)

	_, err = engine.ParseTags([]string{"vcr"})
	assert.Error(t, err)

	assert.True(t, engine.TagDeckControl.Selects(tags))
	both := engine.TagPowerStatus | engine.TagStandbyResume
	assert.False(t, both.Selects(engine.TagCore|engine.TagPowerStatus))
	assert.Equal(t, "power-status|standby-resume", both.String())
	assert.Contains(t, engine.TagNames(), "one-touch-record")
}

func TestAwaitCondition(t *testing.T) {
	calls := 0
	err := engine.AwaitCondition(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	}, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = engine.AwaitCondition(context.Background(), func(context.Context) (bool, error) {
		calls++
		return false, nil
	}, time.Millisecond, 0)
	assert.ErrorIs(t, err, engine.ErrAwaitTimeout)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	err = engine.AwaitCondition(context.Background(), func(context.Context) (bool, error) {
		return false, boom
	}, time.Millisecond, time.Second)
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = engine.AwaitCondition(ctx, func(context.Context) (bool, error) { return false, nil }, time.Hour, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitConditionNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		calls := 0
		err := engine.AwaitCondition(context.Background(), func(context.Context) (bool, error) {
			calls++
			return calls == 2, nil
		}, interval, time.Second)
		require.NoError(t, err, "interval %s", interval)
		assert.Equal(t, 2, calls)
	}
}

func TestExchangeReply(t *testing.T) {
	bus := newBus(t, mock.NewTV(cec.AddrTV, 0))
	remotes := remote.NewTable()
	x := engine.NewExchanger(bus, remotes, local)
	x.SetDefaultTimeout(20 * time.Millisecond)
	ctx := context.Background()

	out, err := x.Exchange(ctx, cec.GiveOSDName(local, cec.AddrTV))
	require.NoError(t, err)
	require.True(t, out.HasReply)
	assert.Equal(t, engine.ClassOK, out.Class())
	assert.True(t, remotes.Get(cec.AddrTV).Recognized(cec.OpGiveOSDName))

	out, err = x.Exchange(ctx, cec.Raw(local, cec.AddrTV, 0xfe))
	require.NoError(t, err)
	assert.True(t, out.Unrecognized())
	assert.Equal(t, engine.ClassAborted, out.Class())
	v, ok := engine.AbortVerdict(out)
	assert.True(t, ok)
	assert.Equal(t, engine.OKNotSupported, v)
	assert.True(t, remotes.Get(cec.AddrTV).Unrecognized(0xfe))

	out, err = x.Exchange(ctx, cec.GiveOSDName(local, cec.AddrRecord1))
	require.NoError(t, err)
	assert.True(t, out.NoAck)
	assert.True(t, out.TimedOut)
	assert.Equal(t, engine.ClassTimedOut, out.Class())
}

func TestExchangeIgnoredAndPoll(t *testing.T) {
	tv := mock.NewTV(cec.AddrTV, 0)
	bus := newBus(t, tv)
	x := engine.NewExchanger(bus, nil, local)
	x.SetDefaultTimeout(10 * time.Millisecond)
	ctx := context.Background()

	out, err := x.Exchange(ctx, cec.UserControlReleased(local, cec.AddrTV))
	require.NoError(t, err)
	assert.False(t, out.HasReply)
	assert.True(t, out.TimedOut)
	assert.Equal(t, engine.ClassIgnored, out.Class())

	ok, err := x.Poll(ctx, cec.AddrTV)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = x.Poll(ctx, cec.AddrTuner1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExchangeFollowerQueue(t *testing.T) {
	tv := mock.NewTV(cec.AddrTV, 0)
	bus := newBus(t, tv)
	x := engine.NewExchanger(bus, nil, local)
	x.SetDefaultTimeout(10 * time.Millisecond)
	ctx := context.Background()

	// The TV broadcasts Report Power Status on its way to standby, which
	// does not answer Standby.
	_, err := x.Exchange(ctx, cec.Standby(local, cec.AddrTV), engine.WithMode(engine.ModeFollower))
	require.NoError(t, err)
	f, err := x.Receive(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, cec.OpReportPowerStatus, f.Opcode)

	_, err = x.Exchange(ctx, cec.ImageViewOn(local, cec.AddrTV), engine.WithMode(engine.ModeFollower))
	require.NoError(t, err)
	x.Flush()
	_, err = x.Receive(ctx, 10*time.Millisecond)
	assert.ErrorIs(t, err, engine.ErrNoFrame)
}

func TestExchangeBroadcastReply(t *testing.T) {
	bus := newBus(t, mock.NewTV(cec.AddrTV, 0), mock.NewPlayback(cec.AddrPlayback2, 0x2000))
	x := engine.NewExchanger(bus, nil, local)
	x.SetDefaultTimeout(20 * time.Millisecond)

	// Only the active source answers.
	bus.Inject(cec.SetStreamPath(cec.AddrTV, 0x2000))
	require.NoError(t, x.Collect(context.Background(), 10*time.Millisecond, time.Second, func(cec.Frame) bool { return true }))

	out, err := x.Exchange(context.Background(), cec.RequestActiveSource(local).WithReply(cec.OpActiveSource))
	require.NoError(t, err)
	require.True(t, out.HasReply)
	assert.Equal(t, cec.AddrPlayback2, out.Reply.Initiator)
}

func TestCollect(t *testing.T) {
	bus := newBus(t, mock.NewTV(cec.AddrTV, 0))
	x := engine.NewExchanger(bus, nil, local)

	for i := 0; i < 3; i++ {
		bus.Inject(cec.ReportPowerStatus(cec.AddrTV, cec.AddrBroadcast, cec.PowerOn))
	}
	n := 0
	err := x.Collect(context.Background(), 10*time.Millisecond, time.Second, func(cec.Frame) bool {
		n++
		return n < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = x.Collect(context.Background(), 10*time.Millisecond, time.Second, func(cec.Frame) bool {
		n++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRunOrderAndGating(t *testing.T) {
	bus := newBus(t, mock.NewTV(cec.AddrTV, 0))
	var ran []string
	record := func(name string, v engine.Verdict) engine.Body {
		return func(context.Context, *engine.Env) engine.Verdict {
			ran = append(ran, name)
			return v
		}
	}
	e, cfg := newEngine(t, bus,
		engine.Area{Name: "Core", Tags: engine.TagCore, Cases: []engine.Case{
			{Name: "first", Mask: cec.MaskAll, Body: record("first", engine.OK)},
			{Name: "playback only", Mask: cec.MaskPlayback, Body: record("playback only", engine.OK)},
			{Name: "cec 2.0", Mask: cec.MaskAll, ForCEC20: true, Body: record("cec 2.0", engine.OK)},
			{Name: "not applicable", Mask: cec.MaskAll, Body: record("not applicable", engine.NotApplicable)},
		}},
		engine.Area{Name: "Deck", Tags: engine.TagDeckControl, Cases: []engine.Case{
			{Name: "deck", Mask: cec.MaskAll, Body: record("deck", engine.OK)},
		}},
		engine.Area{Name: "Tuner", Tags: engine.TagTunerControl, Cases: []engine.Case{
			{Name: "last", Mask: cec.MaskAll, Body: record("last", engine.Fail)},
		}},
	)
	cfg.Tags = engine.TagCore | engine.TagTunerControl
	var states []engine.TargetState
	cfg.OnTargetState = func(_ cec.LogicalAddress, _, to engine.TargetState, _ string) { states = append(states, to) }

	res := e.Run(context.Background(), []cec.LogicalAddress{cec.AddrTV})
	assert.Equal(t, []string{"first", "not applicable", "last"}, ran)
	require.Len(t, res.Targets, 1)
	tr := res.Targets[0]
	assert.Equal(t, engine.TargetDone, tr.State)
	assert.Equal(t, 1, res.PassCount)
	assert.Equal(t, 1, res.SkipCount)
	assert.Equal(t, 1, res.FailCount)
	assert.True(t, res.Failed())
	assert.False(t, tr.Cases[1].Reported)
	assert.Equal(t, []engine.TargetState{
		engine.TargetEnsuringPowered, engine.TargetRunningArea, engine.TargetRunningArea, engine.TargetDone,
	}, states)
}

func TestFailCriticalStopsTarget(t *testing.T) {
	bus := newBus(t, mock.NewTV(cec.AddrTV, 0), mock.NewPlayback(cec.AddrPlayback2, 0x2000))
	var ran []cec.LogicalAddress
	e, _ := newEngine(t, bus, engine.Area{Name: "Core", Tags: engine.TagCore, Cases: []engine.Case{
		{Name: "critical", Mask: cec.MaskAll, Body: func(_ context.Context, env *engine.Env) engine.Verdict {
			if env.Target == cec.AddrTV {
				return env.Criticalf("TV is broken")
			}
			return engine.OK
		}},
		{Name: "after", Mask: cec.MaskAll, Body: func(_ context.Context, env *engine.Env) engine.Verdict {
			ran = append(ran, env.Target)
			return engine.OK
		}},
	}})

	res := e.Run(context.Background(), []cec.LogicalAddress{cec.AddrTV, cec.AddrPlayback2})
	require.Len(t, res.Targets, 2)
	assert.Equal(t, engine.TargetAbortedCritical, res.Targets[0].State)
	assert.Equal(t, "Core: critical", res.Targets[0].Reason)
	assert.Equal(t, engine.TargetDone, res.Targets[1].State)
	assert.Equal(t, []cec.LogicalAddress{cec.AddrPlayback2}, ran)
	assert.True(t, res.Failed())
}

func TestReconcile(t *testing.T) {
	bus := newBus(t, mock.NewPlayback(cec.AddrPlayback2, 0x2000))
	warn := func(_ context.Context, env *engine.Env) engine.Verdict {
		env.Warnf("careful")
		return engine.OK
	}
	e, _ := newEngine(t, bus, engine.Area{Name: "Core", Tags: engine.TagCore, Cases: []engine.Case{
		{Name: "expected fail", Mask: cec.MaskAll, Body: returns(engine.Fail)},
		{Name: "wrong expectation", Mask: cec.MaskAll, Body: returns(engine.OKPresumed)},
		{Name: "warns", Mask: cec.MaskAll, Body: warn},
		{Name: "tv only", Mask: cec.MaskTV | cec.MaskPlayback, Body: returns(engine.OK)},
	}})
	reg := e.Registry()
	require.NoError(t, reg.SetExpectedResult("expected-fail", "FAIL", false))
	require.NoError(t, reg.SetExpectedResult("wrong-expectation", "OK", false))
	require.NoError(t, reg.SetExpectedResult("warns", "OK", true))

	tr := e.RunTarget(context.Background(), cec.AddrPlayback2)
	require.Len(t, tr.Cases, 4)

	assert.Equal(t, engine.OKExpectedFail, tr.Cases[0].Verdict)
	assert.False(t, tr.Cases[0].Failed())

	assert.True(t, tr.Cases[1].ExpectationFailed)
	assert.Equal(t, "Expected 'OK', got 'OK (Presumed)'", tr.Cases[1].Message)
	assert.True(t, tr.Cases[1].Failed())

	assert.True(t, tr.Cases[2].ExpectationFailed)
	assert.Equal(t, 1, tr.Cases[2].Warnings)
	assert.Equal(t, "Expected no warnings, but got 1", tr.Cases[2].Message)

	assert.Equal(t, engine.OK, tr.Cases[3].Verdict)
}

func TestReconcileUnexpected(t *testing.T) {
	bus := newBus(t, mock.NewPlayback(cec.AddrSpecific, 0x2000))
	e, _ := newEngine(t, bus, engine.Area{Name: "Core", Tags: engine.TagCore, Cases: []engine.Case{
		{Name: "playback", Mask: cec.MaskPlayback, Body: returns(engine.OK)},
	}})
	m := e.Remotes().Get(cec.AddrSpecific)
	m.PrimaryType, m.HasPrimaryType = cec.PrimaryPlayback, true

	tr := e.RunTarget(context.Background(), cec.AddrSpecific)
	require.Len(t, tr.Cases, 1)
	assert.Equal(t, engine.OK, tr.Cases[0].Raw)
	assert.Equal(t, engine.OKUnexpected, tr.Cases[0].Verdict)
}

type stuckPower struct{}

func (stuckPower) EnsurePowered(context.Context, cec.LogicalAddress, bool) (bool, error) {
	return false, nil
}

func TestStandbyTargetSkipped(t *testing.T) {
	bus := newBus(t, mock.NewTV(cec.AddrTV, 0))
	e, cfg := newEngine(t, bus, engine.Area{Name: "Core", Tags: engine.TagCore, Cases: []engine.Case{
		{Name: "never", Mask: cec.MaskAll, Body: returns(engine.Fail)},
	}})

	cfg.Power = stuckPower{}
	tr := e.RunTarget(context.Background(), cec.AddrTV)
	assert.Equal(t, engine.TargetSkippedStandby, tr.State)
	assert.Empty(t, tr.Cases)

	cfg.Power = nil
	e.Remotes().Get(cec.AddrTV).InStandby = true
	tr = e.RunTarget(context.Background(), cec.AddrTV)
	assert.Equal(t, engine.TargetSkippedStandby, tr.State)
	assert.Equal(t, "remote device is in standby", tr.Reason)
}

func TestCaptureEvents(t *testing.T) {
	bus := newBus(t, mock.NewTV(cec.AddrTV, 0))
	capture := &captureLog{}
	reg, err := engine.NewRegistry(engine.Area{Name: "Core", Tags: engine.TagCore, Cases: []engine.Case{
		{Name: "osd name", Mask: cec.MaskAll, Body: func(ctx context.Context, env *engine.Env) engine.Verdict {
			if _, err := env.Exchange(ctx, cec.GiveOSDName(env.Local, env.Target)); err != nil {
				return env.Error(err)
			}
			return engine.OK
		}},
	}})
	require.NoError(t, err)
	cfg := engine.DefaultConfig()
	cfg.Timeouts = fastTimeouts()
	cfg.Capture = capture
	e := engine.NewWithConfig(cfg, bus, reg)

	e.RunTarget(context.Background(), cec.AddrTV)

	verdicts := capture.byCategory(log.CategoryVerdict)
	require.Len(t, verdicts, 1)
	assert.Equal(t, "OK", verdicts[0].Verdict.Verdict)
	assert.Equal(t, e.RunID(), verdicts[0].RunID)

	var tests []string
	for _, ev := range capture.byCategory(log.CategoryFrame) {
		tests = append(tests, ev.Test)
	}
	// Report Physical Address, Give OSD Name and Set OSD Name.
	assert.Equal(t, []string{"", "osd name", "osd name"}, tests)
	assert.NotEmpty(t, capture.byCategory(log.CategoryState))
}
