package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

var errPowerStatusUnsupported = errors.New("device does not report its power status")

func powerStatusGive(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.GiveDevicePowerStatus(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply {
		return env.FailOrWarn("Give Device Power Status timed out")
	}
	if out.Unrecognized() {
		env.Remote.PowerStatus.Learn(false)
		if env.FailOnV2(true, "Give Device Power Status is mandatory") {
			return engine.Fail
		}
		return engine.OKNotSupported
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	st, err := out.Reply.PowerStatusInfo()
	if err != nil {
		return env.Error(err)
	}
	if st > cec.PowerToStandby {
		return env.Failf("invalid power status 0x%02x", uint8(st))
	}
	env.Remote.PowerStatus.Learn(true)
	env.Remote.InStandby = st == cec.PowerStandby || st == cec.PowerToStandby
	return engine.OK
}

// powerStatus asks the target for its power status.
func powerStatus(ctx context.Context, env *engine.Env) (cec.PowerStatus, error) {
	out, err := transmit(ctx, env, cec.GiveDevicePowerStatus(env.Local, env.Target))
	if err != nil {
		return 0, err
	}
	if !out.HasReply {
		return 0, fmt.Errorf("Give Device Power Status timed out")
	}
	if out.Unrecognized() {
		return 0, errPowerStatusUnsupported
	}
	if out.Aborted() {
		return 0, fmt.Errorf("Give Device Power Status was feature aborted")
	}
	return out.Reply.PowerStatusInfo()
}

// awaitPowerStatus polls until the target reports want. Transitional
// states keep the wait going.
func awaitPowerStatus(ctx context.Context, env *engine.Env, want cec.PowerStatus) (cec.PowerStatus, error) {
	var last cec.PowerStatus
	err := env.Await(ctx, env.Timeouts.Long, func(ctx context.Context) (bool, error) {
		st, err := powerStatus(ctx, env)
		if err != nil {
			return false, err
		}
		last = st
		return st == want, nil
	})
	return last, err
}

// Standby/Resume

func standbyEnter(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.Standby(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.Aborted() {
		return env.Failf("Standby was feature aborted")
	}
	if env.Remote.PowerStatus.IsNo() {
		env.Remote.InStandby = true
		if !confirmed(ctx, env, "Did the device go into standby?") {
			return env.Failf("the device did not go into standby")
		}
		return env.Presumed()
	}
	st, err := awaitPowerStatus(ctx, env, cec.PowerStandby)
	switch {
	case errors.Is(err, errPowerStatusUnsupported):
		env.Remote.PowerStatus.Learn(false)
		env.Remote.InStandby = true
		return engine.OKPresumed
	case errors.Is(err, engine.ErrAwaitTimeout):
		return env.Failf("the device still reports %s after %s", st, env.Timeouts.Long)
	case err != nil:
		return env.Error(err)
	}
	env.Remote.InStandby = true
	return engine.OK
}

// standbyPoll checks that a device in standby stays visible on the bus.
func standbyPoll(ctx context.Context, env *engine.Env) engine.Verdict {
	if !env.Remote.InStandby {
		return engine.NotApplicable
	}
	acked, err := env.Poll(ctx, env.Target)
	if err != nil {
		return env.Error(err)
	}
	if !acked {
		return env.Failf("the device does not acknowledge polls in standby")
	}
	rpa, err := reply(ctx, env, cec.GivePhysicalAddr(env.Local, env.Target))
	if err != nil {
		return env.Failf("a device in standby must still report its physical address: %v", err)
	}
	pa, _, err := rpa.PhysicalAddrInfo()
	if err != nil {
		return env.Error(err)
	}
	if env.Remote.HasPhysAddr && pa != env.Remote.PhysAddr {
		return env.Failf("physical address %s in standby differs from %s", pa, env.Remote.PhysAddr)
	}
	return engine.OK
}

// wake brings the target out of standby: Image View On for a TV, the
// Power On key for everything else.
func wake(ctx context.Context, env *engine.Env) error {
	if env.Remote.IsTV() {
		_, err := transmit(ctx, env, cec.ImageViewOn(env.Local, env.Target), engine.WithMode(engine.ModeInitiatorFollower))
		return err
	}
	out, err := transmit(ctx, env, cec.UserControlPressed(env.Local, env.Target, cec.UIPowerOn), engine.WithMode(engine.ModeInitiatorFollower))
	if err != nil || out.Unrecognized() {
		return err
	}
	_, err = transmit(ctx, env, cec.UserControlReleased(env.Local, env.Target), engine.WithMode(engine.ModeInitiatorFollower))
	return err
}

func standbyWake(ctx context.Context, env *engine.Env) engine.Verdict {
	if !env.Remote.InStandby {
		return engine.NotApplicable
	}
	if err := wake(ctx, env); err != nil {
		return env.Error(err)
	}
	if !env.Remote.PowerStatus.IsYes() {
		env.Remote.InStandby = false
		if !confirmed(ctx, env, "Did the device wake up?") {
			return env.Failf("the device did not wake up")
		}
		return env.Presumed()
	}
	st, err := awaitPowerStatus(ctx, env, cec.PowerOn)
	switch {
	case errors.Is(err, engine.ErrAwaitTimeout):
		return env.Failf("the device still reports %s after %s", st, env.Timeouts.Long)
	case err != nil:
		return env.Error(err)
	}
	env.Remote.InStandby = false
	return engine.OK
}

// standbyReportOnWake checks that a CEC 2.0 device broadcasts its new power
// state when woken.
func standbyReportOnWake(ctx context.Context, env *engine.Env) engine.Verdict {
	if !env.Remote.PowerStatus.IsYes() {
		return engine.NotApplicable
	}
	if _, err := transmit(ctx, env, cec.Standby(env.Local, env.Target)); err != nil {
		return env.Error(err)
	}
	if _, err := awaitPowerStatus(ctx, env, cec.PowerStandby); err != nil {
		return env.Failf("the device did not go into standby: %v", err)
	}
	env.Remote.InStandby = true
	env.Flush()

	if err := wake(ctx, env); err != nil {
		return env.Error(err)
	}
	var seen []cec.PowerStatus
	err := env.Collect(ctx, env.Timeouts.Collect, env.Timeouts.Long, func(f cec.Frame) bool {
		if f.Initiator != env.Target || !f.IsBroadcast() || f.Opcode != cec.OpReportPowerStatus {
			return true
		}
		st, err := f.PowerStatusInfo()
		if err != nil {
			return true
		}
		seen = append(seen, st)
		return st != cec.PowerOn
	})
	if err != nil {
		return env.Error(err)
	}
	if _, err := awaitPowerStatus(ctx, env, cec.PowerOn); err == nil {
		env.Remote.InStandby = false
	}
	if len(seen) == 0 || seen[len(seen)-1] != cec.PowerOn {
		return env.Failf("no Report Power Status [On] broadcast after waking up (saw %v)", seen)
	}
	return engine.OK
}
