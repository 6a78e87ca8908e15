package cases

import (
	"context"
	"slices"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Dynamic Auto Lipsync

func dalRequestLatency(ctx context.Context, env *engine.Env) engine.Verdict {
	if !env.Remote.HasPhysAddr {
		return engine.NotApplicable
	}
	pa := env.Remote.PhysAddr
	out, err := transmit(ctx, env, cec.RequestCurrentLatency(env.Local, pa))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		env.Warnf("No Report Current Latency for %s.", pa)
		return engine.OKNotSupported
	}
	if out.Reply.Initiator != env.Target {
		return env.Failf("Report Current Latency for %s came from %s", pa, out.Reply.Initiator)
	}
	l, err := out.Reply.LatencyInfo()
	if err != nil {
		return env.Error(err)
	}
	if l.PhysAddr != pa {
		return env.Failf("Report Current Latency names %s, want %s", l.PhysAddr, pa)
	}
	if !cec.ValidLatency(l.VideoLatency) {
		return env.Failf("video latency %d is reserved", l.VideoLatency)
	}
	if l.AudioCompensated == cec.AudioCompPartial {
		if !l.HasAudioDelay {
			return env.Failf("partially compensated audio without an Audio Output Delay")
		}
		if !cec.ValidLatency(l.AudioDelay) {
			return env.Failf("audio output delay %d is reserved", l.AudioDelay)
		}
	} else if l.HasAudioDelay {
		env.Warnf("Audio Output Delay is present but Audio Output Compensated is %d.", l.AudioCompensated)
	}
	env.Infof("Video latency: %d, low latency mode: %t, audio output compensated: %d",
		l.VideoLatency, l.LowLatencyMode, l.AudioCompensated)
	return engine.OK
}

// dalForeignAddress asks for the latency of an address nobody holds.
func dalForeignAddress(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.RequestCurrentLatency(env.Local, cec.InvalidPhysicalAddress))
	if err != nil {
		return env.Error(err)
	}
	if out.HasReply && out.Reply.Initiator == env.Target {
		return env.Failf("device answered Request Current Latency for %s", cec.InvalidPhysicalAddress)
	}
	return engine.OK
}

// Audio Return Channel

// arcVerdict classifies a refused ARC exchange, failing a device whose
// features promised ARC but which does not know the message.
func arcVerdict(env *engine.Env, out *engine.Outcome) (engine.Verdict, bool) {
	if out.Unrecognized() {
		if env.Remote.ARC.IsYes() {
			return env.Failf("device features declare ARC support but %s is not recognized", out.Request.Opcode), true
		}
		env.Remote.ARC.Learn(false)
	}
	return engine.AbortVerdict(out)
}

func arcExchange(ctx context.Context, env *engine.Env, f cec.Frame) engine.Verdict {
	if env.Remote.ARC.IsNo() && env.Remote.Unrecognized(f.Opcode) {
		return engine.OKNotSupported
	}
	out, err := transmit(ctx, env, f)
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.FailOrWarn("%s timed out", f.Opcode)
	}
	if v, ok := arcVerdict(env, out); ok {
		return v
	}
	if env.Remote.ARC.IsNo() {
		env.Warnf("Device features do not declare ARC support, but %s was answered.", f.Opcode)
	}
	env.Remote.ARC.Learn(true)
	return engine.OK
}

// arcInitiateRx starts ARC on an audio system as if we were its TV.
func arcInitiateRx(ctx context.Context, env *engine.Env) engine.Verdict {
	return arcExchange(ctx, env, cec.InitiateARC(env.Local, env.Target))
}

func arcTerminateRx(ctx context.Context, env *engine.Env) engine.Verdict {
	if env.Remote.Unrecognized(cec.OpInitiateARC) {
		return engine.OKNotSupported
	}
	return arcExchange(ctx, env, cec.TerminateARC(env.Local, env.Target))
}

// arcInitiateTx asks a TV to start ARC and confirms the start the way an
// audio system would.
func arcInitiateTx(ctx context.Context, env *engine.Env) engine.Verdict {
	v := arcExchange(ctx, env, cec.RequestARCInitiation(env.Local, env.Target))
	if v != engine.OK {
		return v
	}
	if _, err := transmit(ctx, env, cec.ReportARCInitiated(env.Local, env.Target)); err != nil {
		return env.Error(err)
	}
	return engine.OK
}

func arcTerminateTx(ctx context.Context, env *engine.Env) engine.Verdict {
	if env.Remote.Unrecognized(cec.OpRequestARCInitiation) {
		return engine.OKNotSupported
	}
	v := arcExchange(ctx, env, cec.RequestARCTermination(env.Local, env.Target))
	if v != engine.OK {
		return v
	}
	if _, err := transmit(ctx, env, cec.ReportARCTerminated(env.Local, env.Target)); err != nil {
		return env.Error(err)
	}
	return engine.OK
}

// System Audio Control

func sacGiveAudioStatus(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.GiveAudioStatus(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.FailOrWarn("Give Audio Status timed out")
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	st, err := out.Reply.AudioStatusInfo()
	if err != nil {
		return env.Error(err)
	}
	if !st.Valid() {
		return env.Failf("volume %d is neither a percentage nor unknown", st.Volume)
	}
	env.Infof("Audio status: %s", st)
	return engine.OK
}

func sacGiveModeStatus(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.GiveSystemAudioModeStatus(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.FailOrWarn("Give System Audio Mode Status timed out")
	}
	if out.Unrecognized() {
		env.Remote.SystemAudio.Learn(false)
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	on, err := out.Reply.SystemAudioStatusInfo()
	if err != nil {
		return env.Failf("%v", err)
	}
	env.Remote.SystemAudio.Learn(true)
	env.Infof("System audio mode: %t", on)
	return engine.OK
}

// sacModeRequest asks the audio system to switch system audio and checks
// the announced mode.
func sacModeRequest(ctx context.Context, env *engine.Env, on bool) engine.Verdict {
	f := cec.SystemAudioModeRequest(env.Local, env.Target, env.LocalPhysAddr, on)
	out, err := transmit(ctx, env, f)
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.FailOrWarn("System Audio Mode Request timed out")
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	got, err := out.Reply.SystemAudioStatusInfo()
	if err != nil {
		return env.Failf("%v", err)
	}
	if got != on {
		return env.Failf("Set System Audio Mode reported %t after a request for %t", got, on)
	}
	return engine.OK
}

func sacModeOn(ctx context.Context, env *engine.Env) engine.Verdict {
	if env.Remote.SystemAudio.IsNo() {
		return engine.OKNotSupported
	}
	return sacModeRequest(ctx, env, true)
}

func sacModeOff(ctx context.Context, env *engine.Env) engine.Verdict {
	if env.Remote.SystemAudio.IsNo() || env.Remote.Unrecognized(cec.OpSystemAudioModeReq) {
		return engine.OKNotSupported
	}
	return sacModeRequest(ctx, env, false)
}

var sadFormats = []cec.AudioFormat{cec.AudioFormatLPCM, cec.AudioFormatAC3, cec.AudioFormatDTS}

func sacShortAudioDescriptor(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.RequestShortAudioDescriptor(env.Local, env.Target, sadFormats...))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.FailOrWarn("Request Short Audio Descriptor timed out")
	}
	if out.AbortedWith(cec.AbortInvalidOperand) {
		env.Warnf("Audio system decodes none of LPCM, AC-3 and DTS.")
		return engine.OKPresumed
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	sads, err := out.Reply.ShortAudioDescriptors()
	if err != nil {
		return env.Failf("%v", err)
	}
	for _, d := range sads {
		if !slices.ContainsFunc(sadFormats, func(a cec.AudioFormat) bool { return a.Code() == d.Code() }) {
			return env.Failf("descriptor %x has audio format code %d, which was not requested", d[:], d.Code())
		}
	}
	env.Infof("Short audio descriptors: %d", len(sads))
	return engine.OK
}

// Audio Rate Control

// audioRateSet has no reply; a missing Feature Abort is all there is to
// observe.
func audioRateSet(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.SetAudioRate(env.Local, env.Target, cec.AudioRateWideNormal))
	if err != nil {
		return env.Error(err)
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	if _, err := transmit(ctx, env, cec.SetAudioRate(env.Local, env.Target, cec.AudioRateOff)); err != nil {
		return env.Error(err)
	}
	return env.Presumed()
}

func audioRateInvalid(ctx context.Context, env *engine.Env) engine.Verdict {
	if env.Remote.Unrecognized(cec.OpSetAudioRate) {
		return engine.OKNotSupported
	}
	out, err := transmit(ctx, env, cec.SetAudioRate(env.Local, env.Target, cec.AudioRateNarrowSlow+1))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if err := checkInvalidOperand(out); err != nil {
		if env.FailOnV2(true, "%v", err) {
			return engine.Fail
		}
	}
	return engine.OK
}
