package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/internal/testharness/remote"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// PowerController wakes targets before their cases run. It implements
// engine.PowerController.
type PowerController struct {
	x        *engine.Exchanger
	remotes  *remote.Table
	prompter engine.Prompter
	logger   *slog.Logger

	// Wait bounds the wait for a woken device to report On.
	Wait time.Duration

	// Interval is the pause between power status polls.
	Interval time.Duration
}

// NewPowerController creates a controller that talks through x. The
// prompter is only used in interactive runs and may be nil.
func NewPowerController(x *engine.Exchanger, remotes *remote.Table, prompter engine.Prompter, logger *slog.Logger) *PowerController {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PowerController{
		x:        x,
		remotes:  remotes,
		prompter: prompter,
		logger:   logger,
		Wait:     engine.DefaultLongTimeout,
		Interval: time.Second,
	}
}

var errNoPowerStatus = errors.New("no power status reply")

func (p *PowerController) status(ctx context.Context, la cec.LogicalAddress) (cec.PowerStatus, error) {
	out, err := p.x.Exchange(ctx, cec.GiveDevicePowerStatus(p.x.Local(), la))
	if err != nil {
		return 0, Classify(err)
	}
	if out.NoAck || !out.HasReply || out.Aborted() {
		return 0, errNoPowerStatus
	}
	return out.Reply.PowerStatusInfo()
}

// EnsurePowered reports whether target is on, waking it if needed. A
// device that does not report its power status is assumed to be on.
func (p *PowerController) EnsurePowered(ctx context.Context, target cec.LogicalAddress, interactive bool) (bool, error) {
	m := p.remotes.Get(target)
	logger := p.logger.With("target", target.String())

	st, err := p.status(ctx, target)
	switch {
	case errors.Is(err, errNoPowerStatus):
		return true, nil
	case err != nil:
		return false, err
	case st == cec.PowerOn:
		m.InStandby = false
		return true, nil
	}

	logger.Info("waking remote device", "power", st.String())
	if err := p.wake(ctx, m); err != nil {
		return false, err
	}
	deadline := time.Now().Add(p.Wait)
	for time.Now().Before(deadline) {
		if err := contextSleep(ctx, p.Interval); err != nil {
			return false, err
		}
		st, err = p.status(ctx, target)
		if err == nil && st == cec.PowerOn {
			m.InStandby = false
			return true, nil
		}
	}

	if interactive && p.prompter != nil {
		q := fmt.Sprintf("%s still reports %s. Power it on manually. Is it on now?", target, st)
		ok, err := p.prompter.Confirm(ctx, q)
		if err != nil {
			return false, err
		}
		if ok {
			m.InStandby = false
		}
		return ok, nil
	}
	m.InStandby = true
	return false, nil
}

// wake sends Image View On to a TV and the Power On key to anything else.
func (p *PowerController) wake(ctx context.Context, m *remote.Model) error {
	local := p.x.Local()
	frames := []cec.Frame{
		cec.UserControlPressed(local, m.Address, cec.UIPowerOn),
		cec.UserControlReleased(local, m.Address),
	}
	if m.IsTV() {
		frames = []cec.Frame{cec.ImageViewOn(local, m.Address)}
	}
	for _, f := range frames {
		if _, err := p.x.Exchange(ctx, f, engine.WithMode(engine.ModeInitiatorFollower)); err != nil {
			return Classify(err)
		}
	}
	return nil
}

var _ engine.PowerController = (*PowerController)(nil)
