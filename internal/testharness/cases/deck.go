package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// deckStatus asks for a one-shot Deck Status.
func deckStatus(ctx context.Context, env *engine.Env) (cec.DeckInfo, error) {
	r, err := reply(ctx, env, cec.GiveDeckStatus(env.Local, env.Target, cec.StatusRequestOnce))
	if err != nil {
		return 0, err
	}
	return r.DeckStatusInfo()
}

// awaitDeck polls the deck until it leaves transient, the state it is
// passing through on its way to the requested one.
func awaitDeck(ctx context.Context, env *engine.Env, transient cec.DeckInfo) (cec.DeckInfo, error) {
	var st cec.DeckInfo
	err := env.Await(ctx, env.Timeouts.Long, func(ctx context.Context) (bool, error) {
		var err error
		st, err = deckStatus(ctx, env)
		if err != nil {
			return false, err
		}
		return st != transient, nil
	})
	if errors.Is(err, engine.ErrAwaitTimeout) {
		return st, fmt.Errorf("deck stayed in %s for %s", transient, env.Timeouts.Long)
	}
	return st, err
}

// deckSupportCheck applies the Device Features deck control bit to the
// answer of a deck message. It returns true when the case must fail.
func deckSupportCheck(env *engine.Env, out *engine.Outcome) bool {
	caps := env.Remote.DeckControl
	if env.FailOnV2(caps.IsYes() && out.Unrecognized(),
		"Device Features declares deck control but %s was feature aborted", out.Request.Opcode) {
		return true
	}
	return env.FailOnV2(caps.IsNo() && !out.Unrecognized(),
		"Device Features does not declare deck control but %s was not feature aborted", out.Request.Opcode)
}

func deckGiveStatus(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.GiveDeckStatus(env.Local, env.Target, cec.StatusRequestOnce))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.Failf("Give Deck Status timed out")
	}
	if deckSupportCheck(env, out) {
		return engine.Fail
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	st, err := out.Reply.DeckStatusInfo()
	if err != nil {
		return env.Error(err)
	}
	if !st.Valid() {
		return env.Failf("invalid deck info 0x%02x", uint8(st))
	}

	r, err := reply(ctx, env, cec.GiveDeckStatus(env.Local, env.Target, cec.StatusRequestOn))
	if err != nil {
		return env.Failf("Give Deck Status [On]: %v", err)
	}
	if st, err = r.DeckStatusInfo(); err != nil {
		return env.Error(err)
	}
	if !st.Valid() {
		return env.Failf("invalid deck info 0x%02x", uint8(st))
	}

	out, err = transmit(ctx, env, cec.GiveDeckStatus(env.Local, env.Target, cec.StatusRequestOff))
	if err != nil {
		return env.Error(err)
	}
	if out.HasReply {
		return env.Failf("Give Deck Status [Off] was answered with %s", out.Reply.Opcode)
	}
	return engine.OK
}

func deckGiveStatusInvalid(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.GiveDeckStatus(env.Local, env.Target, 0))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if err := checkInvalidOperand(out); err != nil {
		return env.Failf("%v", err)
	}
	if err := requireInvalidOperand(ctx, env, cec.GiveDeckStatus(env.Local, env.Target, 4)); err != nil {
		return env.Failf("%v", err)
	}
	return engine.OK
}

func deckControl(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.DeckControl(env.Local, env.Target, cec.DeckCtlStop))
	if err != nil {
		return env.Error(err)
	}
	if deckSupportCheck(env, out) {
		return engine.Fail
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	if out.Aborted() {
		if !out.AbortedWith(cec.AbortIncorrectMode) {
			r, _ := out.AbortReason()
			return env.Failf("Deck Control [Stop] was feature aborted with %s", r)
		}
		st, err := deckStatus(ctx, env)
		if err != nil {
			return env.Error(err)
		}
		if st == cec.DeckNoMedia {
			env.Infof("Stop: no media")
		} else {
			env.Warnf("Deck has media but returned Feature Abort with Incorrect Mode")
		}
		return engine.OK
	}
	st, err := deckStatus(ctx, env)
	if err != nil {
		return env.Error(err)
	}
	if st != cec.DeckStop && st != cec.DeckNoMedia {
		return env.Failf("deck is in %s after Stop", st)
	}

	for _, skip := range []struct {
		mode      cec.DeckControlMode
		transient cec.DeckInfo
	}{
		{cec.DeckCtlSkipFwd, cec.DeckSkipFwd},
		{cec.DeckCtlSkipRev, cec.DeckSkipRev},
	} {
		out, err := transmit(ctx, env, cec.DeckControl(env.Local, env.Target, skip.mode))
		if err != nil {
			return env.Error(err)
		}
		if out.AbortedWith(cec.AbortIncorrectMode) {
			st, err := deckStatus(ctx, env)
			if err != nil {
				return env.Error(err)
			}
			if st != cec.DeckNoMedia {
				return env.Failf("Deck Control mode %d refused with Incorrect Mode while the deck is in %s", skip.mode, st)
			}
			env.Infof("Skip: no media")
			return engine.OK
		}
		if out.Aborted() {
			return env.Failf("Deck Control mode %d was feature aborted", skip.mode)
		}
		st, err := awaitDeck(ctx, env, skip.transient)
		if err != nil {
			return env.Failf("%v", err)
		}
		if st != cec.DeckPlay {
			return env.Failf("deck is in %s after skipping, want %s", st, cec.DeckPlay)
		}
	}

	out, err = transmit(ctx, env, cec.DeckControl(env.Local, env.Target, cec.DeckCtlEject))
	if err != nil {
		return env.Error(err)
	}
	if out.Aborted() {
		return env.Failf("Deck Control [Eject] was feature aborted")
	}
	if st, err = deckStatus(ctx, env); err != nil {
		return env.Error(err)
	}
	if st != cec.DeckNoMedia {
		return env.Failf("deck is in %s after Eject, want %s", st, cec.DeckNoMedia)
	}
	return engine.OK
}

func deckControlInvalid(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.DeckControl(env.Local, env.Target, 0))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if err := checkInvalidOperand(out); err != nil {
		return env.Failf("%v", err)
	}
	if err := requireInvalidOperand(ctx, env, cec.DeckControl(env.Local, env.Target, 5)); err != nil {
		return env.Failf("%v", err)
	}
	return engine.OK
}

// trickModes are the play modes walked after Play Forward, each followed by
// the state the deck should settle in.
var trickModes = []cec.PlayMode{
	cec.PlayStill,
	cec.PlayRev,
	cec.PlayFastFwdMin,
	cec.PlayFastRevMin,
	cec.PlayFastFwdMed,
	cec.PlayFastRevMed,
	cec.PlayFastFwdMax,
	cec.PlayFastRevMax,
	cec.PlaySlowFwdMin,
	cec.PlaySlowRevMin,
	cec.PlaySlowFwdMed,
	cec.PlaySlowRevMed,
	cec.PlaySlowFwdMax,
	cec.PlaySlowRevMax,
}

func deckPlay(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.Play(env.Local, env.Target, cec.PlayFwd))
	if err != nil {
		return env.Error(err)
	}
	if deckSupportCheck(env, out) {
		return engine.Fail
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	if out.Aborted() {
		if !out.AbortedWith(cec.AbortIncorrectMode) {
			return env.Failf("Play [Forward] was feature aborted")
		}
		st, err := deckStatus(ctx, env)
		if err != nil {
			return env.Error(err)
		}
		if st != cec.DeckNoMedia {
			return env.Failf("Play refused with Incorrect Mode while the deck is in %s", st)
		}
		env.Infof("Play: no media")
		return engine.OK
	}
	st, err := deckStatus(ctx, env)
	if err != nil {
		return env.Error(err)
	}
	if st != cec.DeckPlay {
		return env.Failf("deck is in %s after Play Forward", st)
	}

	for _, mode := range trickModes {
		want, _ := mode.DeckInfo()
		out, err := transmit(ctx, env, cec.Play(env.Local, env.Target, mode))
		if err != nil {
			return env.Error(err)
		}
		if out.Aborted() {
			return env.Failf("Play mode 0x%02x was feature aborted", uint8(mode))
		}
		st, err := deckStatus(ctx, env)
		if err != nil {
			return env.Error(err)
		}
		if st != want {
			return env.Failf("deck is in %s after Play mode 0x%02x, want %s", st, uint8(mode), want)
		}
	}

	if _, err := transmit(ctx, env, cec.DeckControl(env.Local, env.Target, cec.DeckCtlStop)); err != nil {
		return env.Error(err)
	}
	return engine.OK
}

func deckPlayInvalid(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.Play(env.Local, env.Target, 0))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if err := checkInvalidOperand(out); err != nil {
		return env.Failf("%v", err)
	}
	for _, mode := range []cec.PlayMode{4, 0x26} {
		if err := requireInvalidOperand(ctx, env, cec.Play(env.Local, env.Target, mode)); err != nil {
			return env.Failf("%v", err)
		}
	}
	return engine.OK
}
