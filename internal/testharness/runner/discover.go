package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/internal/testharness/remote"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// DiscoverRemotes polls every device address other than the adapter's own
// and fills the model of each device that answers. It returns the mask of
// present devices.
func DiscoverRemotes(ctx context.Context, x *engine.Exchanger, remotes *remote.Table, own cec.AddressMask, logger *slog.Logger) (cec.AddressMask, error) {
	var present cec.AddressMask
	for la := cec.AddrTV; la < cec.AddrUnregistered; la++ {
		if own.Has(la) {
			continue
		}
		acked, err := x.Poll(ctx, la)
		if err != nil {
			return present, Classify(fmt.Errorf("poll %s: %w", la, err))
		}
		if !acked {
			continue
		}
		present |= la.Bit()
		m := remotes.Get(la)
		m.Present = true
		if err := learnRemote(ctx, x, m); err != nil {
			return present, err
		}
		logger.Debug("found remote device", "address", la.String(), "summary", DescribeRemote(m))
	}
	return present, nil
}

// learnRemote asks a present device for its identity. Timeouts and aborts
// leave the field unset; the system information cases judge them later.
func learnRemote(ctx context.Context, x *engine.Exchanger, m *remote.Model) error {
	local := x.Local()
	ask := func(f cec.Frame) (cec.Frame, bool, error) {
		out, err := x.Exchange(ctx, f)
		if err != nil {
			return cec.Frame{}, false, Classify(fmt.Errorf("%s to %s: %w", f.Opcode, f.Destination, err))
		}
		if out.NoAck || !out.HasReply || out.Aborted() {
			return cec.Frame{}, false, nil
		}
		return out.Reply, true, nil
	}

	if r, ok, err := ask(cec.GivePhysicalAddr(local, m.Address)); err != nil {
		return err
	} else if ok {
		if pa, prim, err := r.PhysicalAddrInfo(); err == nil {
			m.PhysAddr, m.HasPhysAddr = pa, true
			m.PrimaryType, m.HasPrimaryType = prim, true
		}
	}

	if r, ok, err := ask(cec.GetCECVersion(local, m.Address)); err != nil {
		return err
	} else if ok {
		if v, err := r.VersionInfo(); err == nil && v.Valid() {
			m.Version = v
		}
	}

	if r, ok, err := ask(cec.GiveDeviceVendorID(local, m.Address)); err != nil {
		return err
	} else if ok {
		if id, err := r.VendorID(); err == nil {
			m.VendorID, m.HasVendorID = id, true
		}
	}

	if r, ok, err := ask(cec.GiveOSDName(local, m.Address)); err != nil {
		return err
	} else if ok {
		if name, err := r.OSDName(); err == nil {
			m.OSDName = name
		}
	}

	if m.IsTV() {
		if r, ok, err := ask(cec.GetMenuLanguage(local, m.Address)); err != nil {
			return err
		} else if ok {
			if lang, err := r.MenuLanguage(); err == nil {
				m.Language = lang
			}
		}
	}

	out, err := x.Exchange(ctx, cec.GiveDevicePowerStatus(local, m.Address))
	if err != nil {
		return Classify(fmt.Errorf("%s to %s: %w", cec.OpGiveDevicePowerStatus, m.Address, err))
	}
	switch {
	case out.Unrecognized():
		m.PowerStatus.Learn(false)
	case out.HasReply && !out.Aborted():
		if st, err := out.Reply.PowerStatusInfo(); err == nil {
			m.PowerStatus.Learn(true)
			m.InStandby = st == cec.PowerStandby || st == cec.PowerToStandby
		}
	}
	return nil
}

// DescribeRemote is a one-line summary of what discovery learned.
func DescribeRemote(m *remote.Model) string {
	var parts []string
	if m.HasPhysAddr {
		parts = append(parts, "pa "+m.PhysAddr.String(), m.PrimaryType.String())
	}
	if m.Version != 0 {
		parts = append(parts, "CEC "+m.Version.String())
	}
	if m.HasVendorID {
		parts = append(parts, fmt.Sprintf("vendor 0x%06x", m.VendorID))
	}
	if m.OSDName != "" {
		parts = append(parts, fmt.Sprintf("name %q", m.OSDName))
	}
	if m.Language != "" {
		parts = append(parts, "lang "+m.Language)
	}
	switch {
	case !m.PowerStatus.IsYes():
		parts = append(parts, "power unknown")
	case m.InStandby:
		parts = append(parts, "standby")
	default:
		parts = append(parts, "on")
	}
	return strings.Join(parts, ", ")
}
