package cases

import (
	"context"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Capability Discovery and Control

// cdcHECDiscover broadcasts HEC Discover and looks for the target's HEC
// Report State among the answers.
func cdcHECDiscover(ctx context.Context, env *engine.Env) engine.Verdict {
	if _, err := transmit(ctx, env, cec.HECDiscover(env.Local, env.LocalPhysAddr)); err != nil {
		return env.Error(err)
	}
	hasCDC := false
	var failed bool
	err := env.Collect(ctx, env.Timeouts.Reply, env.Timeouts.Collect, func(f cec.Frame) bool {
		if f.IsFeatureAbort() {
			op, _, err := f.AbortInfo()
			if err != nil || op != cec.OpCDCMessage {
				return true
			}
			if f.Initiator == env.Target {
				env.Failf("Device replied Feature Abort to broadcast message")
				failed = true
				return false
			}
			env.Warnf("Device %s replied Feature Abort to broadcast message", f.Initiator)
			return true
		}
		if f.Opcode != cec.OpCDCMessage {
			return true
		}
		_, op, err := f.CDCOperation()
		if err != nil || op != cec.CDCHECReportState {
			return true
		}
		r, err := f.HECReportInfo()
		if err != nil || r.TargetPhysAddr != env.LocalPhysAddr {
			return true
		}
		if r.PhysAddr == env.Remote.PhysAddr {
			hasCDC = true
			env.Infof("Received CDC HEC Report State from %s: %s", r.PhysAddr, r.HECState)
		}
		return true
	})
	if err != nil {
		return env.Error(err)
	}
	if failed {
		return engine.Fail
	}
	if !hasCDC {
		return engine.OKNotSupported
	}
	return engine.OK
}

// Routing Control

func routingActiveSource(ctx context.Context, env *engine.Env) engine.Verdict {
	interactiveInfo(env, "The TV should switch to this source")
	if _, err := transmit(ctx, env, cec.ActiveSource(env.Local, env.LocalPhysAddr)); err != nil {
		return env.Error(err)
	}
	if !confirmed(ctx, env, "Did the TV switch to this source?") {
		return env.Failf("the TV did not switch to this source")
	}
	return env.Presumed()
}

// routingRequestActiveSource claims the active source, then checks that
// nobody else answers Request Active Source.
func routingRequestActiveSource(ctx context.Context, env *engine.Env) engine.Verdict {
	if _, err := transmit(ctx, env, cec.ActiveSource(env.Local, env.LocalPhysAddr)); err != nil {
		return env.Error(err)
	}
	f := cec.RequestActiveSource(env.Local).WithReply(cec.OpActiveSource)
	out, err := transmit(ctx, env, f)
	if err != nil {
		return env.Error(err)
	}
	if out.HasReply {
		return env.Failf("%s claimed the active source after us", out.Reply.Initiator)
	}
	return engine.OK
}

func routingInactiveSource(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.InactiveSource(env.Local, env.Target, env.LocalPhysAddr),
		engine.WithMode(engine.ModeFollower))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}

	responded := false
	err = env.Collect(ctx, env.Timeouts.Reply, env.Timeouts.Settle, func(f cec.Frame) bool {
		if f.Initiator != cec.AddrTV {
			return true
		}
		switch f.Opcode {
		case cec.OpInactiveSource, cec.OpActiveSource, cec.OpSetStreamPath:
			responded = true
			return false
		}
		return true
	})
	if err != nil {
		return env.Error(err)
	}
	if env.Local == cec.AddrTV {
		if responded {
			return env.Failf("the TV answered Inactive Source sent in its own name")
		}
		return engine.OK
	}
	if !responded {
		env.Warnf("The TV did not respond to Inactive Source with a routing message.")
		if !confirmed(ctx, env, "Did the TV switch away from or stop showing this source?") {
			return env.Failf("the TV kept showing this source")
		}
	}
	return engine.OK
}

func routingSetStreamPath(ctx context.Context, env *engine.Env) engine.Verdict {
	isTV := env.Remote.IsTV()
	if isTV {
		interactiveInfo(env, "Ensure the TV is in standby before continuing")
	}
	env.Infof("Waiting up to %s for the device to become the active source", env.Timeouts.Long)

	f := cec.SetStreamPath(env.Local, env.Remote.PhysAddr).WithReply(cec.OpActiveSource)
	out, err := transmit(ctx, env, f, engine.WithTimeout(env.Timeouts.Long))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		if isTV {
			return engine.OKNotSupported
		}
		if !env.AtLeast2_0() {
			env.Warnf("Device did not respond to Set Stream Path.")
			return engine.OKNotSupported
		}
		return env.Failf("Device did not respond to Set Stream Path.")
	}
	pa, err := out.Reply.PhysAddrOperand()
	if err != nil {
		return env.Error(err)
	}
	if pa != env.Remote.PhysAddr {
		return env.Failf("Active Source names %s, want %s", pa, env.Remote.PhysAddr)
	}
	if isTV && !confirmed(ctx, env, "Did the device go out of standby?") {
		return env.Failf("the TV did not leave standby")
	}
	if env.Interactive || env.AtLeast2_0() {
		return engine.OK
	}
	return engine.OKPresumed
}
