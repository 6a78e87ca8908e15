package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// now is replaced in tests.
var now = time.Now

// timerAt builds a timer starting on day at hour:minute.
func timerAt(day time.Time, hour, minute, durH, durM uint8, seq cec.RecordingSequence) cec.TimerSpec {
	return cec.TimerSpec{
		Day:             uint8(day.Day()),
		Month:           uint8(day.Month()),
		StartHour:       hour,
		StartMinute:     minute,
		DurationHours:   durH,
		DurationMinutes: durM,
		Sequence:        seq,
	}
}

func analogueTimerService(env *engine.Env) cec.AnalogueService {
	return cec.AnalogueService{Type: cec.AnalogueCable, Frequency: 7668, System: env.Remote.AnalogueSystem}
}

func digitalTimerService(env *engine.Env) cec.DigitalServiceID {
	return cec.DigitalServiceID{
		Method:        cec.ServiceByChannel,
		System:        env.Remote.DigitalSystem,
		ChannelFormat: cec.ChannelOnePart,
		Minor:         1,
	}
}

func externalTimerSource(env *engine.Env) cec.ExternalSource {
	return cec.ExternalSource{Specifier: cec.ExtSrcPhysAddr, PhysAddr: env.LocalPhysAddr}
}

// The timers of the set and clear cases. Clear must name exactly what
// set programmed.

func analogueTimerSpec() cec.TimerSpec {
	t := now()
	return timerAt(t.AddDate(0, 0, 1), uint8(t.Hour()), uint8(t.Minute()), 2, 30, 0x7f)
}

func digitalTimerSpec() cec.TimerSpec {
	t := now()
	return timerAt(t.AddDate(0, 0, 2), uint8(t.Hour()), uint8(t.Minute()), 4, 30, cec.RecSeqOnceOnly)
}

func externalTimerSpec() cec.TimerSpec {
	t := now()
	return timerAt(t.AddDate(0, 0, 3), uint8(t.Hour()), uint8(t.Minute()), 6, 30, cec.RecSeqOnceOnly)
}

// timerStatusError checks the semantic ranges of a Timer Status.
func timerStatusError(st cec.TimerStatus) error {
	if st.Media == cec.MediaFuture {
		return fmt.Errorf("invalid media info %d", st.Media)
	}
	if st.Programmed {
		if !st.Info.Valid() {
			return fmt.Errorf("invalid programmed info 0x%02x", uint8(st.Info))
		}
		return nil
	}
	if !st.Error.Valid() {
		return fmt.Errorf("invalid programmed error 0x%02x", uint8(st.Error))
	}
	return nil
}

// setTimer sends a set timer message and checks the answer.
func setTimer(ctx context.Context, env *engine.Env, f cec.Frame) engine.Verdict {
	out, err := transmit(ctx, env, f, engine.WithTimeout(env.Timeouts.Record))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.Failf("%s timed out", f.Opcode)
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	st, err := out.Reply.TimerStatusInfo()
	if err != nil {
		return env.Error(err)
	}
	if err := timerStatusError(st); err != nil {
		return env.Failf("%s: %v", f.Opcode, err)
	}
	return engine.OK
}

// clearTimer sends a clear timer message and checks the answer.
func clearTimer(ctx context.Context, env *engine.Env, f cec.Frame) engine.Verdict {
	out, err := transmit(ctx, env, f, engine.WithTimeout(env.Timeouts.Record))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.Failf("%s timed out", f.Opcode)
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	st, err := out.Reply.TimerClearedStatusInfo()
	if err != nil {
		return env.Error(err)
	}
	if !st.Valid() {
		return env.Failf("%s: invalid timer cleared status 0x%02x", f.Opcode, uint8(st))
	}
	return engine.OK
}

func timerSetAnalogue(ctx context.Context, env *engine.Env) engine.Verdict {
	return setTimer(ctx, env, cec.SetAnalogueTimer(env.Local, env.Target, analogueTimerSpec(), analogueTimerService(env)))
}

func timerSetDigital(ctx context.Context, env *engine.Env) engine.Verdict {
	return setTimer(ctx, env, cec.SetDigitalTimer(env.Local, env.Target, digitalTimerSpec(), digitalTimerService(env)))
}

func timerSetExternal(ctx context.Context, env *engine.Env) engine.Verdict {
	return setTimer(ctx, env, cec.SetExtTimer(env.Local, env.Target, externalTimerSpec(), externalTimerSource(env)))
}

func timerClearAnalogue(ctx context.Context, env *engine.Env) engine.Verdict {
	return clearTimer(ctx, env, cec.ClearAnalogueTimer(env.Local, env.Target, analogueTimerSpec(), analogueTimerService(env)))
}

func timerClearDigital(ctx context.Context, env *engine.Env) engine.Verdict {
	return clearTimer(ctx, env, cec.ClearDigitalTimer(env.Local, env.Target, digitalTimerSpec(), digitalTimerService(env)))
}

func timerClearExternal(ctx context.Context, env *engine.Env) engine.Verdict {
	return clearTimer(ctx, env, cec.ClearExtTimer(env.Local, env.Target, externalTimerSpec(), externalTimerSource(env)))
}

func timerSetProgramTitle(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.SetTimerProgramTitle(env.Local, env.Target, "Super-Hans II"))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	return engine.OKPresumed
}

// timerJanitor clears the analogue timers a case programmed.
type timerJanitor struct {
	env     *engine.Env
	pending []cec.TimerSpec
}

func (j *timerJanitor) add(t cec.TimerSpec) { j.pending = append(j.pending, t) }

func (j *timerJanitor) cleanup(ctx context.Context) error {
	var errs []error
	for _, t := range j.pending {
		f := cec.ClearAnalogueTimer(j.env.Local, j.env.Target, t, analogueTimerService(j.env))
		if _, err := reply(ctx, j.env, f, engine.WithTimeout(j.env.Timeouts.Record)); err != nil {
			errs = append(errs, fmt.Errorf("clear timer %s: %w", t, err))
		}
	}
	j.pending = nil
	return errors.Join(errs...)
}

var errTimerProgrammed = errors.New("timer was programmed")

// sendTimerError sets an analogue timer that must be refused, either with
// Feature Abort [Invalid operand] or with a Timer Status error. A date that
// does not exist should be reported as out of range.
func sendTimerError(ctx context.Context, env *engine.Env, t cec.TimerSpec) (*engine.Outcome, error) {
	out, err := transmit(ctx, env, cec.SetAnalogueTimer(env.Local, env.Target, t, analogueTimerService(env)),
		engine.WithTimeout(env.Timeouts.Record))
	if err != nil {
		return nil, err
	}
	if !out.HasReply {
		return out, fmt.Errorf("timer %s: Set Analogue Timer timed out", t)
	}
	if out.Aborted() {
		if !out.AbortedWith(cec.AbortInvalidOperand) {
			r, _ := out.AbortReason()
			return out, fmt.Errorf("timer %s: abort reason %s, want %s", t, r, cec.AbortInvalidOperand)
		}
		return out, nil
	}
	st, err := out.Reply.TimerStatusInfo()
	if err != nil {
		return out, err
	}
	if st.Programmed {
		return out, fmt.Errorf("timer %s: %w", t, errTimerProgrammed)
	}
	if errors.Is(t.Validate(cec.TimerYear(t.Month, now())), cec.ErrTimerDate) && st.Error != cec.ProgErrDateOutOfRange {
		env.Warnf("Timer %s was refused with %s instead of %s.", t, st.Error, cec.ProgErrDateOutOfRange)
	}
	return out, nil
}

// erroneousTimers returns timers that no recorder can program.
func erroneousTimers(t time.Time) []cec.TimerSpec {
	feb := cec.TimerSpec{Day: 29, Month: 2, StartHour: 6, DurationHours: 1}
	if cec.IsLeapYear(cec.TimerYear(2, t)) {
		feb.Day = 30
	}
	return []cec.TimerSpec{
		{Day: 31, Month: 11, StartHour: 6, DurationHours: 1},
		{Day: 32, Month: 12, StartHour: 6, DurationHours: 1},
		{Day: 0, Month: 1, StartHour: 6, DurationHours: 1},
		{Day: 5, Month: 0, StartHour: 6, DurationHours: 1},
		{Day: 5, Month: 13, StartHour: 6, DurationHours: 1},
		{Day: 5, Month: 8, StartHour: 24, DurationHours: 1},
		{Day: 5, Month: 8, StartHour: 0, StartMinute: 60, DurationHours: 1},
		{Day: 5, Month: 8, StartHour: 6},
		{Day: 5, Month: 8, StartHour: 6, DurationHours: 1, Sequence: 0xff},
		feb,
	}
}

func timerErrors(ctx context.Context, env *engine.Env) (v engine.Verdict) {
	j := &timerJanitor{env: env}
	defer func() {
		if err := j.cleanup(ctx); err != nil {
			v = env.Failf("%v", err)
		}
	}()

	for i, t := range erroneousTimers(now()) {
		out, err := sendTimerError(ctx, env, t)
		if i == 0 && out != nil && out.Unrecognized() {
			return engine.OKNotSupported
		}
		if errors.Is(err, errTimerProgrammed) {
			j.add(t)
		}
		if err != nil {
			return env.Failf("%v", err)
		}
	}

	// The same timer twice.
	start := now().Add(2 * time.Hour)
	dup := timerAt(start, uint8(start.Hour()), uint8(start.Minute()), 1, 0, cec.RecSeqOnceOnly)
	st, err := setAnalogueStatus(ctx, env, dup)
	if err != nil {
		return env.Failf("%v", err)
	}
	if !st.Programmed {
		return env.Failf("timer %s was not programmed: %s", dup, st.Error)
	}
	j.add(dup)
	if _, err := sendTimerError(ctx, env, dup); err != nil {
		return env.Failf("duplicate %v", err)
	}
	return engine.OK
}

// setAnalogueStatus sets an analogue timer and returns its Timer Status.
func setAnalogueStatus(ctx context.Context, env *engine.Env, t cec.TimerSpec) (cec.TimerStatus, error) {
	r, err := reply(ctx, env, cec.SetAnalogueTimer(env.Local, env.Target, t, analogueTimerService(env)),
		engine.WithTimeout(env.Timeouts.Record))
	if err != nil {
		return cec.TimerStatus{}, fmt.Errorf("timer %s: %w", t, err)
	}
	st, err := r.TimerStatusInfo()
	if err != nil {
		return cec.TimerStatus{}, err
	}
	if err := timerStatusError(st); err != nil {
		return st, fmt.Errorf("timer %s: %w", t, err)
	}
	return st, nil
}

func timerOverlap(ctx context.Context, env *engine.Env) (v engine.Verdict) {
	day := now().AddDate(0, 0, 1)
	timers := []cec.TimerSpec{
		timerAt(day, 8, 0, 2, 0, cec.RecSeqOnceOnly),
		timerAt(day, 10, 0, 0, 15, cec.RecSeqOnceOnly),
		timerAt(day, 7, 45, 0, 15, cec.RecSeqOnceOnly),
		timerAt(day, 9, 0, 2, 0, cec.RecSeqSunday),
		timerAt(day, 7, 0, 1, 30, cec.RecSeqSunday),
		timerAt(day, 8, 0, 0, 30, cec.RecSeqSunday),
		timerAt(day, 9, 30, 0, 30, cec.RecSeqSunday),
		timerAt(day, 6, 0, 6, 0, cec.RecSeqSunday),
		timerAt(day, 23, 30, 1, 0, cec.RecSeqOnceOnly),
		timerAt(day.AddDate(0, 0, 1), 0, 15, 0, 30, cec.RecSeqOnceOnly),
	}

	j := &timerJanitor{env: env}
	defer func() {
		if err := j.cleanup(ctx); err != nil {
			v = env.Failf("%v", err)
		}
	}()

	var programmed []cec.TimerSpec
	for i, t := range timers {
		out, err := transmit(ctx, env, cec.SetAnalogueTimer(env.Local, env.Target, t, analogueTimerService(env)),
			engine.WithTimeout(env.Timeouts.Record))
		if err != nil {
			return env.Error(err)
		}
		if i == 0 && out.Unrecognized() {
			return engine.OKNotSupported
		}
		if !out.HasReply {
			return env.Failf("timer %s: Set Analogue Timer timed out", t)
		}
		if out.Aborted() {
			return env.Failf("timer %s was feature aborted", t)
		}
		st, err := out.Reply.TimerStatusInfo()
		if err != nil {
			return env.Error(err)
		}
		if err := timerStatusError(st); err != nil {
			return env.Failf("timer %s: %v", t, err)
		}
		if !st.Programmed {
			return env.Failf("timer %s was not programmed: %s", t, st.Error)
		}
		j.add(t)

		want := false
		for _, p := range programmed {
			if t.Overlaps(p, now()) {
				want = true
				break
			}
		}
		if st.OverlapWarning != want {
			return env.Failf("timer %s: overlap warning %t, want %t", t, st.OverlapWarning, want)
		}
		programmed = append(programmed, t)
	}
	return engine.OK
}
