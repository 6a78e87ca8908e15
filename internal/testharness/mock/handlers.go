package mock

import (
	"github.com/cec-protocol/cec-go/pkg/cec"
)

func handleAbort(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.FeatureAbort(d.Address, f.Initiator, f.Opcode, cec.AbortRefused))
}

// System Information

func handleGivePhysicalAddr(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.ReportPhysicalAddr(d.Address, d.PhysAddr, d.Primary))
}

func handleGetCECVersion(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.CECVersion(d.Address, f.Initiator, d.Version))
}

func handleGetMenuLanguage(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.SetMenuLanguage(d.Address, d.Language))
}

func handleGiveFeatures(d *Device, f cec.Frame) []cec.Frame {
	feat := d.Features
	feat.Version = d.Version
	return d.directed(f, cec.ReportFeatures(d.Address, feat))
}

func handleGiveVendorID(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.DeviceVendorID(d.Address, d.VendorID))
}

// OSD

func handleGiveOSDName(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.SetOSDName(d.Address, f.Initiator, d.OSDName))
}

func handleSetOSDString(d *Device, f cec.Frame) []cec.Frame {
	ctl, text, err := f.OSDString()
	if err != nil || !ctl.Valid() {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	if ctl == cec.DisplayClear {
		d.osdText = ""
		return nil
	}
	d.osdText = text
	return nil
}

func handleMenuRequest(d *Device, f cec.Frame) []cec.Frame {
	b, ok := f.Operand(0)
	if !ok || cec.MenuRequestType(b) > cec.MenuQuery {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	return d.directed(f, cec.MenuStatus(d.Address, f.Initiator, cec.MenuActivated))
}

// Power

func handleGivePowerStatus(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.ReportPowerStatus(d.Address, f.Initiator, d.power))
}

// setPower changes the power state. CEC 2.0 devices announce every change
// with a broadcast Report Power Status.
func (d *Device) setPower(p cec.PowerStatus) []cec.Frame {
	if d.power == p {
		return nil
	}
	d.power = p
	if p == cec.PowerStandby {
		d.active = false
	}
	if d.Version < cec.Version2_0 {
		return nil
	}
	return []cec.Frame{cec.ReportPowerStatus(d.Address, cec.AddrBroadcast, p)}
}

func handleStandby(d *Device, _ cec.Frame) []cec.Frame {
	return d.setPower(cec.PowerStandby)
}

func handleWake(d *Device, _ cec.Frame) []cec.Frame {
	return d.setPower(cec.PowerOn)
}

func handleUserControlPressed(d *Device, f cec.Frame) []cec.Frame {
	b, ok := f.Operand(0)
	if !ok {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	switch cec.UICommand(b) {
	case cec.UIPowerOn:
		return d.setPower(cec.PowerOn)
	case cec.UIPowerOff:
		return d.setPower(cec.PowerStandby)
	case cec.UIPowerToggle:
		if d.power == cec.PowerOn {
			return d.setPower(cec.PowerStandby)
		}
		return d.setPower(cec.PowerOn)
	}
	return nil
}

// Routing

func handleActiveSource(d *Device, f cec.Frame) []cec.Frame {
	if f.Initiator != d.Address {
		d.active = false
	}
	return nil
}

func handleRequestActiveSource(d *Device, f cec.Frame) []cec.Frame {
	if !d.active {
		return nil
	}
	return []cec.Frame{cec.ActiveSource(d.Address, d.PhysAddr)}
}

func handleSetStreamPath(d *Device, f cec.Frame) []cec.Frame {
	pa, err := f.PhysAddrOperand()
	if err != nil {
		return nil
	}
	if pa != d.PhysAddr {
		d.active = false
		return nil
	}
	out := d.setPower(cec.PowerOn)
	d.active = true
	return append(out, cec.ActiveSource(d.Address, d.PhysAddr))
}

// handleInactiveSource lets the TV take over the screen when the active
// source goes away.
func handleInactiveSource(d *Device, f cec.Frame) []cec.Frame {
	if _, err := f.PhysAddrOperand(); err != nil {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	d.active = true
	return []cec.Frame{cec.ActiveSource(d.Address, d.PhysAddr)}
}

// Capability Discovery and Control

func handleCDC(d *Device, f cec.Frame) []cec.Frame {
	pa, op, err := f.CDCOperation()
	if err != nil || op != cec.CDCHECDiscover {
		return nil
	}
	return []cec.Frame{cec.HECReportState(d.Address, cec.HECReport{
		PhysAddr:       d.PhysAddr,
		TargetPhysAddr: pa,
		HECState:       cec.HECInactive,
	})}
}
