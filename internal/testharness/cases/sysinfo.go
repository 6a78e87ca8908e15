package cases

import (
	"context"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

func systemInfoPolling(ctx context.Context, env *engine.Env) engine.Verdict {
	acked, err := env.Poll(ctx, env.Target)
	if err != nil {
		return env.Error(err)
	}
	if env.Remote.Present {
		if !acked {
			return env.Criticalf("Polling a valid remote LA failed")
		}
		return engine.OK
	}
	if acked {
		return env.Criticalf("Polling an invalid remote LA was successful")
	}
	return engine.OKNotSupported
}

// systemInfoPhysAddr is critical: without a physical address nothing else
// about the device can be trusted.
func systemInfoPhysAddr(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.GivePhysicalAddr(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply || out.Aborted() {
		if v := env.FailOrWarn("Give Physical Addr timed out"); v == engine.Fail {
			return engine.FailCritical
		}
		return engine.OK
	}
	pa, prim, err := out.Reply.PhysicalAddrInfo()
	if err != nil {
		return env.Error(err)
	}
	m := env.Remote
	if !m.HasPhysAddr {
		m.PhysAddr, m.HasPhysAddr = pa, true
	}
	if !m.HasPrimaryType {
		m.PrimaryType, m.HasPrimaryType = prim, true
	}
	if m.PhysAddr != pa {
		return env.Failf("physical address %s differs from %s reported earlier", pa, m.PhysAddr)
	}
	if m.PrimaryType != prim {
		return env.Failf("primary device type %s differs from %s reported earlier", prim, m.PrimaryType)
	}
	return engine.OK
}

func systemInfoVersion(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.GetCECVersion(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply {
		return env.FailOrWarn("Get CEC Version timed out")
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	v, err := out.Reply.VersionInfo()
	if err != nil {
		return env.Error(err)
	}
	if !v.Valid() {
		return env.Failf("invalid CEC version 0x%02x", uint8(v))
	}
	if env.Remote.Version == 0 {
		env.Remote.Version = v
	}
	if env.Remote.Version != v {
		return env.Failf("CEC version %s differs from %s reported earlier", v, env.Remote.Version)
	}
	return engine.OK
}

func systemInfoGetMenuLang(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.GetMenuLanguage(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply {
		return env.FailOrWarn("Get Menu Languages timed out")
	}
	isTV := env.Remote.IsTV()
	// Only TVs report a menu language.
	if !isTV && !out.Unrecognized() {
		return env.Failf("a device other than a TV must reply Feature Abort [Unrecognized opcode] to Get Menu Language")
	}
	if out.Unrecognized() {
		if isTV {
			env.Warnf("TV did not respond to Get Menu Language.")
		}
		return engine.OKNotSupported
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	lang, err := out.Reply.MenuLanguage()
	if err != nil {
		return env.Error(err)
	}
	if env.Remote.Language == "" {
		env.Remote.Language = lang
	}
	if env.Remote.Language != lang {
		return env.Failf("menu language %q differs from %q reported earlier", lang, env.Remote.Language)
	}
	return engine.OK
}

// systemInfoSetMenuLang broadcasts the language; nobody replies to it.
func systemInfoSetMenuLang(ctx context.Context, env *engine.Env) engine.Verdict {
	if _, err := transmit(ctx, env, cec.SetMenuLanguage(env.Local, "eng")); err != nil {
		return env.Error(err)
	}
	return engine.OKPresumed
}

func systemInfoGiveFeatures(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.GiveFeatures(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply {
		return env.FailOrWarn("Give Features timed out")
	}
	if out.Unrecognized() {
		if !env.AtLeast2_0() {
			return engine.OKNotSupported
		}
		env.Failf("a CEC 2.0 device must support Give Features")
		return engine.Fail
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	if !env.AtLeast2_0() {
		env.Infof("Device has CEC Version < 2.0 but supports Give Features.")
	}

	f, err := out.Reply.FeaturesInfo()
	if err != nil {
		return env.Error(err)
	}
	env.Infof("All Device Types: 0x%02x", uint8(f.AllDeviceTypes))
	env.Infof("RC Profile: 0x%02x", f.RCProfile)
	env.Infof("Device Features: 0x%02x", uint8(f.DeviceFeatures))

	la := env.Target
	df := f.DeviceFeatures
	if !(cec.MaskPlayback|cec.MaskRecord|cec.MaskTuner).Has(la) && df.Has(cec.FeatureSetAudioRate) {
		return env.Failf("Only Playback, Recording or Tuner devices shall set the Set Audio Rate bit")
	}
	if !(cec.MaskPlayback|cec.MaskRecord).Has(la) && df.Has(cec.FeatureDeckControl) {
		return env.Failf("Only Playback and Recording devices shall set the Supports Deck Control bit")
	}
	if !cec.MaskTV.Has(la) && df.Has(cec.FeatureRecordTVScreen) {
		return env.Failf("Only TVs shall set the Record TV Screen bit")
	}
	if cec.MaskPlayback.Has(la) && df.Has(cec.FeatureSinkARCTx) {
		return env.Failf("A Playback device cannot set the Sink Supports ARC Tx bit")
	}
	if cec.MaskTV.Has(la) && df.Has(cec.FeatureSourceARCRx) {
		return env.Failf("A TV cannot set the Source Supports ARC Rx bit")
	}

	m := env.Remote
	if !m.HasFeatures {
		m.LearnFeatures(f)
	}
	if m.Version != 0 && f.Version != m.Version {
		return env.Failf("Report Features version %s differs from CEC Version %s", f.Version, m.Version)
	}
	if f.RCProfile != m.RCProfile {
		return env.Failf("RC profile 0x%02x differs from 0x%02x reported earlier", f.RCProfile, m.RCProfile)
	}
	if f.DeviceFeatures != m.DeviceFeatures {
		return env.Failf("device features 0x%02x differ from 0x%02x reported earlier", uint8(f.DeviceFeatures), uint8(m.DeviceFeatures))
	}
	if f.AllDeviceTypes != m.AllDeviceTypes {
		return env.Failf("all device types 0x%02x differ from 0x%02x reported earlier", uint8(f.AllDeviceTypes), uint8(m.AllDeviceTypes))
	}
	return engine.OK
}
