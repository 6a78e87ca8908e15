package cases

import (
	"context"
	"fmt"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Vendor Specific Commands

func vendorID(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.GiveDeviceVendorID(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply {
		return env.FailOrWarn("Give Device Vendor ID timed out")
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	id, err := out.Reply.VendorID()
	if err != nil {
		return env.Error(err)
	}
	m := env.Remote
	if !m.HasVendorID {
		m.VendorID, m.HasVendorID = id, true
	}
	if m.VendorID != id {
		return env.Failf("vendor ID 0x%06x differs from 0x%06x reported earlier", id, m.VendorID)
	}
	return engine.OK
}

// Device OSD Transfer

func osdNameSet(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.SetOSDName(env.Local, env.Target, "Whatever"))
	if err != nil {
		return env.Error(err)
	}
	if out.Unrecognized() {
		if env.Remote.IsTV() && env.AtLeast2_0() {
			env.Warnf("TV feature aborted Set OSD Name")
		}
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	return engine.OKPresumed
}

func osdNameGive(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := env.Exchange(ctx, cec.GiveOSDName(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if out.NoAck || !out.HasReply {
		return env.FailOrWarn("Give OSD Name timed out")
	}
	if !env.Remote.IsTV() && out.Unrecognized() {
		return env.Failf("Give OSD Name is mandatory for devices other than TVs")
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	name, err := out.Reply.OSDName()
	if err != nil {
		return env.Error(err)
	}
	if name == "" {
		return env.Failf("empty OSD name")
	}
	if out.Reply.Len() != len(name)+2 {
		return env.Failf("OSD name %q is padded to %d bytes", name, out.Reply.Len()-2)
	}
	m := env.Remote
	if m.OSDName == "" {
		m.OSDName = name
	}
	if m.OSDName != name {
		return env.Failf("OSD name %q differs from %q reported earlier", name, m.OSDName)
	}
	return engine.OK
}

// OSD Display

func osdStringDefault(ctx context.Context, env *engine.Env) engine.Verdict {
	text := fmt.Sprintf("Rept %x from %x", uint8(env.Target), uint8(env.Local))
	interactiveInfo(env, "You should see %q appear on the screen", text)

	out, err := transmit(ctx, env, cec.SetOSDString(env.Local, env.Target, cec.DisplayDefault, text))
	if err != nil {
		return env.Error(err)
	}
	// Mandatory for a CEC 2.0 TV that declares it in its Device Features.
	if env.FailOnV2(out.Unrecognized() && env.Remote.DeviceFeatures.Has(cec.FeatureSetOSDString),
		"Set OSD String is declared in Device Features but not recognized") {
		return engine.Fail
	}
	if out.Unrecognized() {
		env.Remote.OSD.Learn(false)
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	unsuitable := false
	if out.Aborted() {
		env.Warnf("The device is in an unsuitable state or cannot display the complete message.")
		unsuitable = true
	}
	env.Remote.OSD.Learn(true)
	if !env.Interactive {
		return engine.OKPresumed
	}

	env.Infof("Waiting %s for OSD string to be cleared on the remote device", env.Timeouts.Observe)
	if err := env.Sleep(ctx, env.Timeouts.Observe); err != nil {
		return env.Error(err)
	}
	if !unsuitable && !question(ctx, env, "Did the string appear and then disappear?") {
		return env.Failf("the OSD string was not shown and cleared")
	}
	return engine.OK
}

func osdStringUntilCleared(ctx context.Context, env *engine.Env) engine.Verdict {
	if !env.Remote.OSD.IsYes() {
		return engine.NotApplicable
	}
	// Thirteen characters, the longest string the message carries.
	const text = "Appears 1 sec"
	interactiveInfo(env, "You should see %q appear on the screen for approximately three seconds.", text)

	out, err := transmit(ctx, env, cec.SetOSDString(env.Local, env.Target, cec.DisplayUntilCleared, text))
	if err != nil {
		return env.Error(err)
	}
	unsuitable := false
	if out.Aborted() && !out.Unrecognized() {
		env.Warnf("The device is in an unsuitable state or cannot display the complete message.")
		unsuitable = true
	}
	if err := env.Sleep(ctx, env.Timeouts.Settle); err != nil {
		return env.Error(err)
	}

	out, err = transmit(ctx, env, cec.SetOSDString(env.Local, env.Target, cec.DisplayClear, ""),
		engine.WithTimeout(env.Timeouts.Reply/4))
	if err != nil {
		return env.Error(err)
	}
	if out.Aborted() {
		return env.Failf("clearing the OSD string was feature aborted")
	}
	if !unsuitable && !confirmed(ctx, env, "Did the string appear?") {
		return env.Failf("the OSD string did not appear")
	}
	return env.Presumed()
}

func osdStringInvalid(ctx context.Context, env *engine.Env) engine.Verdict {
	if !env.Remote.OSD.IsYes() {
		return engine.NotApplicable
	}
	interactiveInfo(env, "You should observe no change on the on screen display")
	out, err := transmit(ctx, env, cec.SetOSDString(env.Local, env.Target, cec.DisplayControl(0xff), ""))
	if err != nil {
		return env.Error(err)
	}
	if !out.HasReply {
		return env.Failf("Set OSD String with an invalid display control timed out")
	}
	if !out.Aborted() {
		return env.Failf("Set OSD String with an invalid display control was not feature aborted")
	}
	if env.Interactive && question(ctx, env, "Did the display change?") {
		return env.Failf("the display changed")
	}
	return engine.OK
}

// Remote Control Passthrough

func userControlPressed(ctx context.Context, env *engine.Env) engine.Verdict {
	// The key does not matter.
	out, err := transmit(ctx, env, cec.UserControlPressed(env.Local, env.Target, cec.UIVolumeUp))
	if err != nil {
		return env.Error(err)
	}
	// Mandatory except for devices on the unregistered address.
	if env.FailOnV2(out.Unrecognized() && !cec.MaskUnregistered.Has(env.Target),
		"User Control Pressed is mandatory") {
		return engine.Fail
	}
	if out.Unrecognized() {
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	return engine.OKPresumed
}

// userControlReleased is only tried when the device accepted User Control
// Pressed; a Released without a Pressed means nothing.
func userControlReleased(ctx context.Context, env *engine.Env) engine.Verdict {
	if env.Remote.Unrecognized(cec.OpUserControlPressed) {
		env.Remote.RCPassthrough.Learn(false)
		return engine.OKNotSupported
	}
	out, err := transmit(ctx, env, cec.UserControlReleased(env.Local, env.Target))
	if err != nil {
		return env.Error(err)
	}
	if env.FailOnV2(out.Aborted() && !cec.MaskUnregistered.Has(env.Target),
		"User Control Released is mandatory") {
		return engine.Fail
	}
	if out.Unrecognized() {
		env.Remote.RCPassthrough.Learn(false)
		return engine.OKNotSupported
	}
	if out.Refused() {
		return engine.OKRefused
	}
	env.Remote.RCPassthrough.Learn(true)
	return engine.OKPresumed
}

// Device Menu Control

func menuRequest(ctx context.Context, env *engine.Env) engine.Verdict {
	out, err := transmit(ctx, env, cec.MenuRequest(env.Local, env.Target, cec.MenuQuery))
	if err != nil {
		return env.Error(err)
	}
	if v, ok := engine.AbortVerdict(out); ok {
		return v
	}
	if !out.HasReply {
		env.Warnf("Menu Request timed out")
		return engine.OKPresumed
	}
	if _, err := out.Reply.MenuStatusInfo(); err != nil {
		return env.Error(err)
	}
	if env.AtLeast2_0() {
		env.Warnf("The Device Menu Control feature is deprecated in CEC 2.0")
	}
	return engine.OK
}
