package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cec-protocol/cec-go/internal/testharness/remote"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// Engine executes the registry against remote devices.
type Engine struct {
	config   *EngineConfig
	registry *Registry
	ex       *Exchanger
	remotes  *remote.Table
	logger   *slog.Logger
	capture  log.Logger
	runID    string
}

// New creates an engine with the default configuration.
func New(t transport.Transport, reg *Registry) *Engine {
	return NewWithConfig(DefaultConfig(), t, reg)
}

// NewWithConfig creates an engine with the given configuration.
func NewWithConfig(config *EngineConfig, t transport.Transport, reg *Registry) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Tags == 0 {
		config.Tags = TagAll
	}
	if config.Timeouts == (Timeouts{}) {
		config.Timeouts = DefaultTimeouts()
	}
	remotes := config.Remotes
	if remotes == nil {
		remotes = remote.NewTable()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	capture := config.Capture
	if capture == nil {
		capture = log.NoopLogger{}
	}

	e := &Engine{
		config:   config,
		registry: reg,
		remotes:  remotes,
		logger:   logger,
		capture:  capture,
		runID:    uuid.NewString(),
	}
	e.ex = NewExchanger(t, remotes, config.Local)
	e.ex.SetLogger(logger)
	e.ex.SetCapture(capture, e.runID)
	e.ex.SetDefaultTimeout(config.Timeouts.Reply)
	return e
}

// RunID identifies this engine's run in capture events.
func (e *Engine) RunID() string { return e.runID }

// Remotes returns the model table.
func (e *Engine) Remotes() *remote.Table { return e.remotes }

// Exchanger returns the engine's exchange primitive.
func (e *Engine) Exchanger() *Exchanger { return e.ex }

// Registry returns the case registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Run tests each target in turn. A critical failure on one target does not
// affect the others.
func (e *Engine) Run(ctx context.Context, targets []cec.LogicalAddress) *RunResult {
	start := time.Now()
	res := &RunResult{RunID: e.runID}
	for _, la := range targets {
		if ctx.Err() != nil {
			break
		}
		res.add(e.RunTarget(ctx, la))
	}
	res.Duration = time.Since(start)
	return res
}

// RunTarget runs every selected case against one target.
func (e *Engine) RunTarget(ctx context.Context, la cec.LogicalAddress) *TargetResult {
	start := time.Now()
	tr := &TargetResult{Target: la, State: TargetNotStarted}
	defer func() { tr.Duration = time.Since(start) }()

	model := e.remotes.Get(la)
	logger := e.logger.With("target", la.String())

	e.transition(tr, TargetEnsuringPowered, "")
	if e.config.Power != nil {
		ok, err := e.config.Power.EnsurePowered(ctx, la, e.config.Interactive)
		if err != nil {
			logger.Warn("power check failed", "error", err)
		}
		if !ok {
			e.transition(tr, TargetSkippedStandby, "the remote device could not be powered on")
			return tr
		}
	}
	if model.InStandby && !e.config.Interactive {
		logger.Info("The remote device is in standby. It should be powered on when testing. Aborting.")
		e.transition(tr, TargetSkippedStandby, "remote device is in standby")
		return tr
	}
	if !model.PowerStatus.IsYes() {
		logger.Info("The device didn't support Give Device Power Status.")
		logger.Info("Assuming that the device is powered on.")
	}

	// Make sure the target knows our primary device type.
	rpa := cec.ReportPhysicalAddr(e.config.Local, e.config.LocalPhysAddr, e.config.LocalPrimaryType)
	if _, err := e.ex.Exchange(ctx, rpa); err != nil {
		logger.Warn("report physical address failed", "error", err)
	}

	for _, area := range e.registry.Areas() {
		if !area.Tags.Selects(e.config.Tags) {
			continue
		}
		e.transition(tr, TargetRunningArea, area.Name)
		if e.config.OnAreaStart != nil {
			e.config.OnAreaStart(la, area.Name)
		}
		for j := range area.Cases {
			c := &area.Cases[j]
			if ctx.Err() != nil {
				e.transition(tr, TargetDone, ctx.Err().Error())
				return tr
			}
			if !e.applicable(ctx, c, model) {
				continue
			}
			cr := e.runCase(ctx, area.Name, c, model)
			tr.Cases = append(tr.Cases, cr)
			if e.config.OnCaseComplete != nil {
				e.config.OnCaseComplete(cr)
			}
			if cr.Raw == FailCritical {
				e.transition(tr, TargetAbortedCritical, fmt.Sprintf("%s: %s", area.Name, c.Name))
				return tr
			}
		}
	}
	e.transition(tr, TargetDone, "")
	return tr
}

// applicable applies the role, version and standby gates.
func (e *Engine) applicable(ctx context.Context, c *Case, model *remote.Model) bool {
	if !c.Mask.Intersects(model.RoleMask()) {
		return false
	}
	if c.ForCEC20 && (!model.AtLeast2_0() || !e.config.LocalCEC20) {
		return false
	}
	if c.InStandby {
		mask, err := e.ex.Transport().LogicalAddresses(ctx)
		if err != nil || mask == 0 {
			return false
		}
	}
	return true
}

func (e *Engine) runCase(ctx context.Context, area string, c *Case, model *remote.Model) *CaseResult {
	cr := &CaseResult{
		Area:      area,
		Name:      c.Name,
		Target:    model.Address,
		StartTime: time.Now(),
	}
	env := &Env{
		Local:            e.config.Local,
		LocalPhysAddr:    e.config.LocalPhysAddr,
		LocalPrimaryType: e.config.LocalPrimaryType,
		LocalCEC20:       e.config.LocalCEC20,
		Target:           model.Address,
		Remote:           model,
		Remotes:          e.remotes,
		Interactive:      e.config.Interactive,
		InStandby:        c.InStandby,
		Timeouts:         e.config.Timeouts,
		ex:               e.ex,
		prompter:         e.config.Prompter,
		logger:           e.logger.With("target", model.Address.String(), "case", c.Name),
	}

	e.ex.Flush()
	e.ex.test = c.Name
	cr.Raw = c.Body(ctx, env)
	e.ex.test = ""

	cr.Notes = env.notes
	cr.Warnings = env.warnings
	e.reconcile(cr, c)

	cr.EndTime = time.Now()
	cr.Duration = cr.EndTime.Sub(cr.StartTime)
	e.logResult(cr)
	return cr
}

// reconcile turns the raw verdict into the reported one.
func (e *Engine) reconcile(cr *CaseResult, c *Case) {
	v := cr.Raw
	if !c.Mask.Has(cr.Target) && v != NotApplicable {
		v = OKUnexpected
	}
	cr.Verdict = v
	cr.Reported = true

	exp, ok := e.registry.Expected(c.Name)
	if !ok {
		cr.Reported = v != NotApplicable
		return
	}
	cr.Expected = &exp
	switch {
	case v != exp.Verdict:
		cr.ExpectationFailed = true
		cr.Message = fmt.Sprintf("Expected '%s', got '%s'", exp.Verdict, v)
	case cr.Warnings > 0 && exp.NoWarnings:
		cr.ExpectationFailed = true
		cr.Message = fmt.Sprintf("Expected no warnings, but got %d", cr.Warnings)
	case v == Fail:
		cr.Verdict = OKExpectedFail
	}
}

func (e *Engine) logResult(cr *CaseResult) {
	if cr.Reported {
		attrs := []any{"target", cr.Target.String(), "case", cr.Name, "verdict", cr.Verdict.Name()}
		if cr.ExpectationFailed {
			e.logger.Warn("expectation failed", append(attrs, "detail", cr.Message)...)
		} else {
			e.logger.Debug("case complete", attrs...)
		}
	}
	ev := &log.VerdictEvent{Area: cr.Area, Test: cr.Name, Verdict: cr.Verdict.Name()}
	if cr.Expected != nil {
		ev.Expected = cr.Expected.Verdict.Name()
	}
	e.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     e.runID,
		Direction: log.DirectionOut,
		Layer:     log.LayerEngine,
		Category:  log.CategoryVerdict,
		Local:     uint8(e.config.Local),
		Remote:    uint8(cr.Target),
		Test:      cr.Name,
		Verdict:   ev,
	})
}

func (e *Engine) transition(tr *TargetResult, to TargetState, reason string) {
	from := tr.State
	tr.State = to
	if to == TargetSkippedStandby || to == TargetAbortedCritical {
		tr.Reason = reason
	}
	e.logger.Debug("target state", "target", tr.Target.String(), "from", from.String(), "to", to.String(), "reason", reason)
	e.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     e.runID,
		Layer:     log.LayerEngine,
		Category:  log.CategoryState,
		Local:     uint8(e.config.Local),
		Remote:    uint8(tr.Target),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTarget,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
	if e.config.OnTargetState != nil {
		e.config.OnTargetState(tr.Target, from, to, reason)
	}
}
