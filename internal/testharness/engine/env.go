package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cec-protocol/cec-go/internal/testharness/remote"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Env is what a case body sees: the addresses involved, the remote model,
// the exchange primitives and the diagnostic sinks.
type Env struct {
	Local            cec.LogicalAddress
	LocalPhysAddr    cec.PhysicalAddress
	LocalPrimaryType cec.PrimaryDeviceType
	LocalCEC20       bool

	Target cec.LogicalAddress

	// Remote is the model of Target; Remotes holds every device.
	Remote  *remote.Model
	Remotes *remote.Table

	Interactive bool

	// InStandby is set for cases that run with the target in standby.
	InStandby bool

	Timeouts Timeouts

	ex       *Exchanger
	prompter Prompter
	logger   *slog.Logger

	notes    []Note
	warnings int
}

// Exchange transmits f and waits for its reply. See Exchanger.Exchange.
func (e *Env) Exchange(ctx context.Context, f cec.Frame, opts ...ExchangeOption) (*Outcome, error) {
	return e.ex.Exchange(ctx, f, opts...)
}

// Poll reports whether la acknowledges a poll.
func (e *Env) Poll(ctx context.Context, la cec.LogicalAddress) (bool, error) {
	return e.ex.Poll(ctx, la)
}

// Receive waits up to window for an unsolicited frame.
func (e *Env) Receive(ctx context.Context, window time.Duration) (cec.Frame, error) {
	return e.ex.Receive(ctx, window)
}

// Collect receives unsolicited frames; see Exchanger.Collect.
func (e *Env) Collect(ctx context.Context, perMessage, maxWindow time.Duration, fn func(cec.Frame) bool) error {
	return e.ex.Collect(ctx, perMessage, maxWindow, fn)
}

// Flush discards frames queued by follower exchanges.
func (e *Env) Flush() { e.ex.Flush() }

// Await polls pred at Timeouts.PollInterval for at most deadline.
func (e *Env) Await(ctx context.Context, deadline time.Duration, pred func(context.Context) (bool, error)) error {
	return AwaitCondition(ctx, pred, e.Timeouts.PollInterval, deadline)
}

// Sleep pauses for d or until ctx is done.
func (e *Env) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Confirm asks the operator a yes/no question. It must only be called in
// interactive runs.
func (e *Env) Confirm(ctx context.Context, question string) (bool, error) {
	if e.prompter == nil {
		return false, fmt.Errorf("no prompter for question %q", question)
	}
	return e.prompter.Confirm(ctx, question)
}

// AtLeast2_0 reports whether the target declared CEC 2.0.
func (e *Env) AtLeast2_0() bool { return e.Remote.AtLeast2_0() }

// Warnings returns the number of warnings emitted so far.
func (e *Env) Warnings() int { return e.warnings }

func (e *Env) note(level NoteLevel, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	e.notes = append(e.notes, Note{Level: level, Text: msg})
	return msg
}

// Infof records an informational note.
func (e *Env) Infof(format string, args ...any) {
	e.logger.Info(e.note(NoteInfo, format, args...))
}

// Warnf records a warning.
func (e *Env) Warnf(format string, args ...any) {
	e.warnings++
	e.logger.Warn(e.note(NoteWarning, format, args...))
}

// Failf records a failure and returns Fail.
func (e *Env) Failf(format string, args ...any) Verdict {
	e.logger.Error(e.note(NoteFailure, format, args...))
	return Fail
}

// Criticalf records a failure and returns FailCritical.
func (e *Env) Criticalf(format string, args ...any) Verdict {
	e.logger.Error(e.note(NoteFailure, format, args...))
	return FailCritical
}

// Error reports a transport error inside a case as a failure.
func (e *Env) Error(err error) Verdict {
	return e.Failf("%v", err)
}

// FailOrWarn fails, unless the target is expected to be in standby, in
// which case it warns and returns OK.
func (e *Env) FailOrWarn(format string, args ...any) Verdict {
	if e.InStandby {
		e.Warnf(format, args...)
		return OK
	}
	return e.Failf(format, args...)
}

// FailOnV2 applies the version policy to a violated condition: it records a
// failure and returns true for CEC 2.0 targets, and only warns for older
// ones. A false cond does nothing.
func (e *Env) FailOnV2(cond bool, format string, args ...any) bool {
	if !cond {
		return false
	}
	if e.AtLeast2_0() {
		e.Failf(format, args...)
		return true
	}
	e.Warnf(format, args...)
	return false
}

// Presumed is the verdict for behavior that cannot be observed on the bus:
// OK when an operator can confirm it, OK_PRESUMED otherwise.
func (e *Env) Presumed() Verdict {
	if e.Interactive {
		return OK
	}
	return OKPresumed
}
