package cases

import (
	"context"
	"slices"

	"github.com/google/go-cmp/cmp"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// maxTunerSteps bounds the channel scan for tuners that never wrap.
const maxTunerSteps = 256

func tunerStatus(ctx context.Context, env *engine.Env) (cec.TunerDeviceInfo, error) {
	r, err := reply(ctx, env, cec.GiveTunerDeviceStatus(env.Local, env.Target, cec.StatusRequestOnce))
	if err != nil {
		return cec.TunerDeviceInfo{}, err
	}
	return r.TunerInfo()
}

// selectService tunes to the service described by info.
func selectService(env *engine.Env, info cec.TunerDeviceInfo) cec.Frame {
	if info.IsAnalogue {
		return cec.SelectAnalogueService(env.Local, env.Target, info.Analogue)
	}
	return cec.SelectDigitalService(env.Local, env.Target, info.Digital)
}

// tunerControl scans the tuner's channel list with Tuner Step Increment,
// then selects every service found and checks that the tuner reports it.
func tunerControl(ctx context.Context, env *engine.Env) engine.Verdict {
	hasTuner := (cec.MaskTV | cec.MaskTuner).Has(env.Target)

	out, err := transmit(ctx, env, cec.GiveTunerDeviceStatus(env.Local, env.Target, cec.StatusRequestOnce))
	if err != nil {
		return env.Error(err)
	}
	if !hasTuner {
		if !out.TimedOut && !out.Aborted() {
			return env.Failf("a device without a tuner answered Give Tuner Device Status")
		}
		return engine.OKNotSupported
	}
	if out.TimedOut || out.Unrecognized() {
		return engine.OKNotSupported
	}
	if out.Aborted() {
		return engine.OKRefused
	}

	first, err := out.Reply.TunerInfo()
	if err != nil {
		return env.Error(err)
	}
	if err := first.ValidateService(); err != nil {
		return env.Failf("tuner reports %s: %v", first, err)
	}
	env.Infof("Start Channel: %s", first)

	warnedGeneric := false
	checkGeneric := func(info cec.TunerDeviceInfo) {
		if !info.IsAnalogue && info.Digital.System.Generic() && !warnedGeneric {
			env.Warnf("Generic digital broadcast systems should not be used.")
			warnedGeneric = true
		}
	}
	checkGeneric(first)

	services := []cec.TunerDeviceInfo{first}
	wrapped := false
	for range maxTunerSteps {
		out, err := transmit(ctx, env, cec.TunerStepIncrement(env.Local, env.Target))
		if err != nil {
			return env.Error(err)
		}
		if out.Unrecognized() {
			return env.Failf("tuner reports a service but does not recognize Tuner Step Increment")
		}
		if out.Refused() {
			env.Warnf("Tuner Step Increment was refused. The tuner does not wrap its channel list.")
			wrapped = true
			break
		}
		if out.Aborted() {
			env.Warnf("Tuner Step Increment was feature aborted.")
			wrapped = true
			break
		}
		info, err := tunerStatus(ctx, env)
		if err != nil {
			return env.Failf("%v", err)
		}
		// Any repeat means the list wrapped, even if it never comes back
		// to the start channel.
		if slices.Contains(services, info) {
			wrapped = true
			break
		}
		if err := info.ValidateService(); err != nil {
			return env.Failf("tuner reports %s: %v", info, err)
		}
		checkGeneric(info)
		env.Infof("Found Channel: %s", info)
		services = append(services, info)
	}
	if !wrapped {
		env.Warnf("Tuner did not repeat a channel within %d steps.", maxTunerSteps)
	}

	for _, want := range services {
		out, err := transmit(ctx, env, selectService(env, want))
		if err != nil {
			return env.Error(err)
		}
		if out.Aborted() {
			return env.Failf("selecting %s was feature aborted", want)
		}
		got, err := tunerStatus(ctx, env)
		if err != nil {
			return env.Failf("%v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			return env.Failf("tuner did not select %s (-want +got):\n%s", want, diff)
		}
	}

	badAnalogue := cec.AnalogueService{Type: 3, Frequency: 16000, System: 9}
	if err := requireInvalidOperand(ctx, env, cec.SelectAnalogueService(env.Local, env.Target, badAnalogue)); err != nil {
		return env.Failf("%v", err)
	}
	badDigital := cec.DigitalServiceID{Method: cec.ServiceByDigitalID, System: cec.DigDVBS2}
	if err := requireInvalidOperand(ctx, env, cec.SelectDigitalService(env.Local, env.Target, badDigital)); err != nil {
		return env.Failf("%v", err)
	}
	return engine.OK
}
