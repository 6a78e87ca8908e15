// Package engine runs CEC compliance cases against remote devices.
//
// The engine walks areas and cases in registry order for each target,
// gates every case on tags, device role, CEC version and standby
// preconditions, and reconciles the verdict with the operator's expected
// result table before reporting it.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/cec-protocol/cec-go/internal/testharness/remote"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
)

// Default timeouts.
const (
	DefaultReplyTimeout  = 1 * time.Second
	DefaultRecordTimeout = 10 * time.Second
	DefaultLongTimeout   = 60 * time.Second
)

// Timeouts groups every wait the cases use.
type Timeouts struct {
	// Reply is the default reply window.
	Reply time.Duration

	// Record is the window for recording and timer requests.
	Record time.Duration

	// Long bounds deck seeks and Set Stream Path.
	Long time.Duration

	// PollInterval is the AwaitCondition interval.
	PollInterval time.Duration

	// Settle is the pause before checking a delayed effect, e.g. an OSD
	// string that should have cleared.
	Settle time.Duration

	// Collect bounds collection of unsolicited broadcasts.
	Collect time.Duration

	// Observe is how long an operator gets to look at the device before a
	// question is asked.
	Observe time.Duration
}

// DefaultTimeouts returns the production timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Reply:        DefaultReplyTimeout,
		Record:       DefaultRecordTimeout,
		Long:         DefaultLongTimeout,
		PollInterval: 1 * time.Second,
		Settle:       3 * time.Second,
		Collect:      5 * time.Second,
		Observe:      20 * time.Second,
	}
}

// Prompter asks the operator yes/no questions in interactive runs.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// PowerController brings a target out of standby before its cases run.
// It reports false when the target could not be powered on.
type PowerController interface {
	EnsurePowered(ctx context.Context, target cec.LogicalAddress, interactive bool) (bool, error)
}

// EngineConfig configures the test engine.
type EngineConfig struct {
	// Local describes the adapter the engine transmits from.
	Local            cec.LogicalAddress
	LocalPhysAddr    cec.PhysicalAddress
	LocalPrimaryType cec.PrimaryDeviceType

	// LocalCEC20 is set when the adapter speaks CEC 2.0.
	LocalCEC20 bool

	// Interactive enables operator questions.
	Interactive bool

	// Tags selects areas. Zero means every area.
	Tags Tag

	Timeouts Timeouts

	// Logger for operational logging (optional).
	Logger *slog.Logger

	// Capture receives frame, verdict and state events (optional).
	Capture log.Logger

	// Remotes is the model table. A fresh one is created when nil.
	Remotes *remote.Table

	Power    PowerController
	Prompter Prompter

	// OnAreaStart is called before the first case of an area runs on a
	// target.
	OnAreaStart func(target cec.LogicalAddress, area string)

	// OnCaseComplete is called after each case, including suppressed
	// NOT_APPLICABLE results.
	OnCaseComplete func(result *CaseResult)

	// OnTargetState is called on every target state transition.
	OnTargetState func(target cec.LogicalAddress, from, to TargetState, reason string)
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Local:            cec.AddrPlayback1,
		LocalPhysAddr:    0x1000,
		LocalPrimaryType: cec.PrimaryPlayback,
		LocalCEC20:       true,
		Tags:             TagAll,
		Timeouts:         DefaultTimeouts(),
	}
}

// TargetState is the per-target schedule state.
type TargetState uint8

const (
	TargetNotStarted TargetState = iota
	TargetEnsuringPowered
	TargetRunningArea
	TargetDone
	TargetAbortedCritical
	TargetSkippedStandby
)

func (s TargetState) String() string {
	switch s {
	case TargetNotStarted:
		return "NOT_STARTED"
	case TargetEnsuringPowered:
		return "ENSURING_POWERED"
	case TargetRunningArea:
		return "RUNNING_AREA"
	case TargetDone:
		return "DONE"
	case TargetAbortedCritical:
		return "ABORTED_CRITICAL"
	case TargetSkippedStandby:
		return "SKIPPED_STANDBY"
	default:
		return "UNKNOWN"
	}
}

// NoteLevel grades a case diagnostic.
type NoteLevel uint8

const (
	NoteInfo NoteLevel = iota
	NoteWarning
	NoteFailure
)

func (l NoteLevel) String() string {
	switch l {
	case NoteWarning:
		return "warn"
	case NoteFailure:
		return "fail"
	default:
		return "info"
	}
}

// Note is one diagnostic emitted by a case body.
type Note struct {
	Level NoteLevel
	Text  string
}

// CaseResult is the outcome of one case on one target.
type CaseResult struct {
	Area   string
	Name   string
	Target cec.LogicalAddress

	// Raw is the verdict the body returned.
	Raw Verdict

	// Verdict is the reported verdict after reconciliation.
	Verdict Verdict

	// Reported is false for suppressed NOT_APPLICABLE results.
	Reported bool

	// Expected is the operator's expectation, if any.
	Expected *Expectation

	// ExpectationFailed marks a mismatch with the expected verdict or an
	// unwanted warning; Message explains it.
	ExpectationFailed bool
	Message           string

	Warnings int
	Notes    []Note

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Failed reports whether the result counts as a failure.
func (r *CaseResult) Failed() bool {
	return r.Reported && (r.ExpectationFailed || r.Verdict.IsFailure())
}

// TargetResult is the outcome of all cases on one target.
type TargetResult struct {
	Target cec.LogicalAddress
	State  TargetState

	// Reason explains a skipped or aborted target.
	Reason string

	Cases    []*CaseResult
	Duration time.Duration
}

// RunResult is the outcome of a run.
type RunResult struct {
	RunID   string
	Targets []*TargetResult

	PassCount int
	FailCount int
	SkipCount int
	WarnCount int

	Duration time.Duration
}

// Failed reports whether any case failed or any target aborted.
func (r *RunResult) Failed() bool {
	if r.FailCount > 0 {
		return true
	}
	for _, t := range r.Targets {
		if t.State == TargetAbortedCritical {
			return true
		}
	}
	return false
}

func (r *RunResult) add(t *TargetResult) {
	r.Targets = append(r.Targets, t)
	for _, c := range t.Cases {
		r.WarnCount += c.Warnings
		switch {
		case !c.Reported:
			r.SkipCount++
		case c.Failed():
			r.FailCount++
		default:
			r.PassCount++
		}
	}
}
