package cases

import (
	"context"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// unknownOpcode is unused by every CEC version up to 2.0.
const unknownOpcode cec.Opcode = 0xfe

// coreUnknown checks that a directed unknown opcode is refused with
// Feature Abort [Unrecognized opcode] and a broadcast one is ignored.
func coreUnknown(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.Raw(env.Local, env.Target, unknownOpcode))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply {
		return env.FailOrWarn("Unknown Opcode timed out")
	}
	if !out.Aborted() {
		return env.Failf("unknown opcode was answered with %s instead of Feature Abort", out.Reply.Opcode)
	}
	op, reason, err := out.Reply.AbortInfo()
	if err != nil {
		return env.Error(err)
	}
	if reason != cec.AbortUnrecognizedOpcode {
		return env.Failf("abort reason %s, want %s", reason, cec.AbortUnrecognizedOpcode)
	}
	if op != unknownOpcode {
		return env.Failf("Feature Abort names %s, want %s", op, unknownOpcode)
	}

	bcast := cec.Raw(env.Local, cec.AddrBroadcast, unknownOpcode).WithReply(cec.OpFeatureAbort)
	out, err = transmit(ctx, env, bcast)
	if err != nil {
		return env.Error(err)
	}
	if out.HasReply {
		return env.Failf("broadcast unknown opcode was answered by %s", out.Reply.Initiator)
	}
	return engine.OK
}

// coreAbort checks that the Abort message is always feature aborted.
func coreAbort(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.Abort(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply {
		return env.FailOrWarn("Abort timed out")
	}
	if !out.Aborted() {
		return env.Failf("Abort was answered with %s instead of Feature Abort", out.Reply.Opcode)
	}
	return engine.OK
}

// postCheckRecognized audits the opcodes the device both accepted and
// refused as unrecognized during the run.
func postCheckRecognized(ctx context.Context, env *engine.Env) engine.Verdict {
	conflicts := env.Remote.Conflicts()
	for _, op := range conflicts {
		env.Failf("Opcode %s has been both recognized by and has been replied Feature Abort [Unrecognized Opcode] to by the device", op)
	}
	if len(conflicts) > 0 {
		return engine.Fail
	}
	return engine.OK
}
