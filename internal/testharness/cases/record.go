package cases

import (
	"context"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// recordTVScreen asks the TV for the source a recorder should record.
func recordTVScreen(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.RecordTVScreen(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	caps := env.Remote.RecordTVScreen
	if env.FailOnV2(caps.IsYes() && out.Unrecognized(),
		"Device Features declares Record TV Screen but the message was not recognized") {
		return engine.Fail
	}
	if env.FailOnV2(caps.IsNo() && out.HasReply && !out.Unrecognized(),
		"Device Features does not declare Record TV Screen but the message was recognized") {
		return engine.Fail
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	// Only recorders may ask.
	if env.LocalPrimaryType != cec.PrimaryRecord {
		if out.HasReply {
			return env.Failf("Record TV Screen from a non-recording device was answered with %s", out.Reply.Opcode)
		}
		return engine.OK
	}
	if !out.HasReply {
		return env.Failf("Record TV Screen timed out")
	}
	src, err := out.Reply.RecordSourceInfo()
	if err != nil {
		return env.Error(err)
	}
	if err := src.Validate(); err != nil {
		return env.Failf("Record On from the TV: %v", err)
	}
	return engine.OK
}

// recordOnSend stops any running recording, then requests a new one and
// returns the Record Status.
func recordOnSend(ctx context.Context, env *engine.Env, src cec.RecordSource) (cec.RecordStatus, error) {
	if _, err := transmit(ctx, env, cec.RecordOff(env.Local, env.Target).WithoutReply()); err != nil {
		return 0, err
	}
	r, err := reply(ctx, env, cec.RecordOn(env.Local, env.Target, src), engine.WithTimeout(env.Timeouts.Record))
	if err != nil {
		return 0, err
	}
	return r.RecordStatusInfo()
}

var recordSources = []struct {
	src  cec.RecordSource
	want cec.RecordStatus
}{
	{
		cec.RecordSource{Type: cec.RecordSrcDigital, Digital: cec.DigitalServiceID{
			Method: cec.ServiceByDigitalID, System: cec.DigARIBBS,
			TransportID: 1032, ServiceID: 30203, OriginalNetworkID: 1,
		}},
		cec.RecStatusDigitalService,
	},
	{
		cec.RecordSource{Type: cec.RecordSrcDigital, Digital: cec.DigitalServiceID{
			Method: cec.ServiceByChannel, System: cec.DigATSCT,
			ChannelFormat: cec.ChannelTwoPart, Major: 4, Minor: 1,
		}},
		cec.RecStatusDigitalService,
	},
	{
		cec.RecordSource{Type: cec.RecordSrcDigital, Digital: cec.DigitalServiceID{
			Method: cec.ServiceByDigitalID, System: cec.DigDVBT,
			TransportID: 1004, ServiceID: 1040, OriginalNetworkID: 8945,
		}},
		cec.RecStatusDigitalService,
	},
	{
		cec.RecordSource{Type: cec.RecordSrcAnalogue, Analogue: cec.AnalogueService{
			Type: cec.AnalogueCable, Frequency: cec.FrequencyFromKHz(471250), System: cec.BcastPALBG,
		}},
		cec.RecStatusAnalogueService,
	},
	{
		cec.RecordSource{Type: cec.RecordSrcAnalogue, Analogue: cec.AnalogueService{
			Type: cec.AnalogueSatellite, Frequency: cec.FrequencyFromKHz(551250), System: cec.BcastSECAMBG,
		}},
		cec.RecStatusAnalogueService,
	},
	{
		cec.RecordSource{Type: cec.RecordSrcAnalogue, Analogue: cec.AnalogueService{
			Type: cec.AnalogueTerrestrial, Frequency: cec.FrequencyFromKHz(185250), System: cec.BcastPALDK,
		}},
		cec.RecStatusAnalogueService,
	},
	{cec.RecordSource{Type: cec.RecordSrcExtPlug, Plug: 1}, cec.RecStatusExternalInput},
	{cec.RecordSource{Type: cec.RecordSrcExtPhysAddr, PhysAddr: 0}, cec.RecStatusExternalInput},
}

func recordOn(ctx context.Context, env *engine.Env) engine.Verdict {
	own := cec.RecordSource{Type: cec.RecordSrcOwn}
	out, err := transmit(ctx, env, cec.RecordOn(env.Local, env.Target, own), engine.WithTimeout(env.Timeouts.Record))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.Failf("Record On timed out")
	}
	if out.Unrecognized() {
		if env.Remote.PrimaryType == cec.PrimaryRecord {
			return env.Failf("a recording device must recognize Record On")
		}
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	if out.Aborted() {
		return engine.OKPresumed
	}
	st, err := out.Reply.RecordStatusInfo()
	if err != nil {
		return env.Error(err)
	}
	if st != cec.RecStatusCurrentSource && !st.IsStartError() {
		return env.Failf("Record On [own source] answered with record status 0x%02x", uint8(st))
	}

	for _, rs := range recordSources {
		st, err := recordOnSend(ctx, env, rs.src)
		if err != nil {
			return env.Failf("Record On %d: %v", rs.src.Type, err)
		}
		if st != rs.want && !st.IsStartError() {
			return env.Failf("Record On %d answered with record status 0x%02x, want 0x%02x",
				rs.src.Type, uint8(st), uint8(rs.want))
		}
	}
	return engine.OK
}

var invalidRecordSources = []cec.RecordSource{
	{Type: cec.RecordSrcDigital, Digital: cec.DigitalServiceID{
		Method: cec.ServiceByChannel, System: 0x7f,
		ChannelFormat: cec.ChannelOnePart, Major: 0, Minor: 30203,
	}},
	{Type: cec.RecordSrcDigital, Digital: cec.DigitalServiceID{
		Method: cec.ServiceByChannel, System: cec.DigARIBBS,
		ChannelFormat: 0, Minor: 30609,
	}},
	{Type: cec.RecordSrcAnalogue, Analogue: cec.AnalogueService{
		Type: 0xff, Frequency: cec.FrequencyFromKHz(519250), System: cec.BcastPALBG,
	}},
	{Type: cec.RecordSrcAnalogue, Analogue: cec.AnalogueService{
		Type: cec.AnalogueSatellite, Frequency: cec.FrequencyFromKHz(703250), System: 0xff,
	}},
	{Type: cec.RecordSrcAnalogue, Analogue: cec.AnalogueService{
		Type: cec.AnalogueTerrestrial, Frequency: 0, System: cec.BcastNTSCM,
	}},
	{Type: cec.RecordSrcAnalogue, Analogue: cec.AnalogueService{
		Type: cec.AnalogueCable, Frequency: 0xffff, System: cec.BcastSECAML,
	}},
	{Type: cec.RecordSrcExtPlug, Plug: 0},
}

func recordOnInvalid(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.Raw(env.Local, env.Target, cec.OpRecordOn, 0), engine.WithTimeout(env.Timeouts.Record))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if err := checkInvalidOperand(out); err != nil {
		return env.Failf("%v", err)
	}
	if err := requireInvalidOperand(ctx, env, cec.Raw(env.Local, env.Target, cec.OpRecordOn, 6)); err != nil {
		return env.Failf("%v", err)
	}
	for _, src := range invalidRecordSources {
		if err := requireInvalidOperand(ctx, env, cec.RecordOn(env.Local, env.Target, src)); err != nil {
			return env.Failf("%v", err)
		}
	}
	return engine.OK
}

func recordOff(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.RecordOff(env.Local, env.Target), engine.WithTimeout(env.Timeouts.Record))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		if env.Remote.PrimaryType == cec.PrimaryRecord {
			return env.Failf("a recording device must recognize Record Off")
		}
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	if out.Aborted() || !out.HasReply {
		return engine.OKPresumed
	}
	st, err := out.Reply.RecordStatusInfo()
	if err != nil {
		return env.Error(err)
	}
	if st != cec.RecStatusTerminatedOK && st != cec.RecStatusAlreadyTerminated {
		return env.Failf("Record Off answered with record status 0x%02x", uint8(st))
	}
	return engine.OK
}
