package cases

import (
	"context"
	"fmt"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// transmit exchanges f and reports a missing acknowledgement as an error
// wrapping transport.ErrNoAck.
func transmit(ctx context.Context, env *engine.Env, f cec.Frame, opts ...engine.ExchangeOption) (*engine.Outcome, error) {
	out, err := env.Exchange(ctx, f, opts...)
	if err != nil {
		return nil, err
	}
	if out.NoAck {
		return out, fmt.Errorf("%s to %s: %w", f.Opcode, f.Destination, transport.ErrNoAck)
	}
	return out, nil
}

// reply exchanges f and requires a non-abort reply.
func reply(ctx context.Context, env *engine.Env, f cec.Frame, opts ...engine.ExchangeOption) (cec.Frame, error) {
	out, err := transmit(ctx, env, f, opts...)
	if err != nil {
		return cec.Frame{}, err
	}
	if !out.HasReply {
		return cec.Frame{}, fmt.Errorf("%s timed out", f.Opcode)
	}
	if out.Aborted() {
		r, _ := out.AbortReason()
		return cec.Frame{}, fmt.Errorf("%s was feature aborted: %s", f.Opcode, r)
	}
	return out.Reply, nil
}

// requireInvalidOperand sends f and requires Feature Abort [Invalid operand].
func requireInvalidOperand(ctx context.Context, env *engine.Env, f cec.Frame) error {
	out, err := transmit(ctx, env, f)
	if err != nil {
		return err
	}
	return checkInvalidOperand(out)
}

func checkInvalidOperand(out *engine.Outcome) error {
	if !out.Aborted() {
		return fmt.Errorf("%s with invalid operand %x was not feature aborted", out.Request.Opcode, out.Request.Operands())
	}
	if r, _ := out.AbortReason(); r != cec.AbortInvalidOperand {
		return fmt.Errorf("%s with invalid operand %x: abort reason %s, want %s",
			out.Request.Opcode, out.Request.Operands(), r, cec.AbortInvalidOperand)
	}
	return nil
}

// interactiveInfo tells the operator what to do or look for. It is a no-op
// in non-interactive runs.
func interactiveInfo(env *engine.Env, format string, args ...any) {
	if env.Interactive {
		env.Infof(format, args...)
	}
}

// question asks the operator and treats a prompt error as a "no".
func question(ctx context.Context, env *engine.Env, q string) bool {
	ok, err := env.Confirm(ctx, q)
	if err != nil {
		env.Warnf("could not ask %q: %v", q, err)
		return false
	}
	return ok
}

// confirmed reports whether an interactive check passed. Non-interactive
// runs always pass.
func confirmed(ctx context.Context, env *engine.Env, q string) bool {
	return !env.Interactive || question(ctx, env, q)
}
