package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/internal/testharness/mock"
	"github.com/cec-protocol/cec-go/internal/testharness/reporter"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/discovery"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

func testTimeouts() engine.Timeouts {
	return engine.Timeouts{
		Reply:        20 * time.Millisecond,
		Record:       20 * time.Millisecond,
		Long:         200 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Settle:       5 * time.Millisecond,
		Collect:      50 * time.Millisecond,
		Observe:      5 * time.Millisecond,
	}
}

func newTestBus(t *testing.T, devices ...*mock.Device) *mock.Controller {
	t.Helper()
	bus := mock.NewController(cec.AddrPlayback1, 0x1000)
	for _, d := range devices {
		if err := bus.AddDevice(d); err != nil {
			t.Fatalf("add %s: %v", d.Address, err)
		}
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func newTestConfig(out *bytes.Buffer) *Config {
	cfg := DefaultConfig()
	cfg.LocalPhysAddr = 0x1000
	cfg.Timeouts = testTimeouts()
	cfg.Output = out
	cfg.OutputFormat = "json"
	return cfg
}

func TestRunDiscoversAndTestsEveryDevice(t *testing.T) {
	bus := newTestBus(t,
		mock.NewTV(cec.AddrTV, 0x0000),
		mock.NewPlayback(cec.AddrPlayback2, 0x2000))

	var out bytes.Buffer
	cfg := newTestConfig(&out)
	cfg.Tags = engine.TagCore | engine.TagSystemInformation | engine.TagPowerStatus | engine.TagDeviceOSDTransfer
	r, err := New(cfg, bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := cec.AddrTV.Bit() | cec.AddrPlayback2.Bit()
	if r.Present() != want {
		t.Errorf("present = %s, want %s", r.Present(), want)
	}
	if len(res.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(res.Targets))
	}
	if res.FailCount != 0 {
		for _, tr := range res.Targets {
			for _, c := range tr.Cases {
				if c.Failed() {
					t.Errorf("%s %s: %s %v", tr.Target, c.Name, c.Verdict, c.Notes)
				}
			}
		}
	}

	var decoded reporter.JSONRunResult
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.Total == 0 || decoded.Failed != 0 {
		t.Errorf("report total=%d failed=%d", decoded.Total, decoded.Failed)
	}
	if len(decoded.Targets) != 2 {
		t.Errorf("report has %d targets", len(decoded.Targets))
	}
}

func TestRunSelectedTarget(t *testing.T) {
	bus := newTestBus(t,
		mock.NewTV(cec.AddrTV, 0x0000),
		mock.NewPlayback(cec.AddrPlayback2, 0x2000))

	var out bytes.Buffer
	cfg := newTestConfig(&out)
	cfg.Targets = []cec.LogicalAddress{cec.AddrPlayback2}
	cfg.Tags = engine.TagCore | engine.TagSystemInformation
	r, err := New(cfg, bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Targets) != 1 || res.Targets[0].Target != cec.AddrPlayback2 {
		t.Fatalf("unexpected targets: %+v", res.Targets)
	}
	if res.Targets[0].State != engine.TargetDone {
		t.Errorf("state = %s (%s)", res.Targets[0].State, res.Targets[0].Reason)
	}
}

func TestRunTargetNotPresent(t *testing.T) {
	bus := newTestBus(t, mock.NewTV(cec.AddrTV, 0x0000))

	cfg := newTestConfig(&bytes.Buffer{})
	cfg.Targets = []cec.LogicalAddress{cec.AddrRecord1}
	r, err := New(cfg, bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = r.Run(context.Background())
	if !errors.Is(err, ErrTargetNotPresent) {
		t.Fatalf("expected ErrTargetNotPresent, got %v", err)
	}
	if KindOf(err) != KindDevice {
		t.Errorf("kind = %s", KindOf(err))
	}
}

func TestRunEmptyBus(t *testing.T) {
	bus := newTestBus(t)

	r, err := New(newTestConfig(&bytes.Buffer{}), bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}
}

func TestDiscoverLocalNotClaimed(t *testing.T) {
	bus := newTestBus(t, mock.NewTV(cec.AddrTV, 0x0000))

	cfg := newTestConfig(&bytes.Buffer{})
	cfg.Local = cec.AddrTuner1
	r, err := New(cfg, bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = r.Discover(context.Background())
	var ce *ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, ErrAddressNotClaimed) {
		t.Fatalf("expected ConfigError wrapping ErrAddressNotClaimed, got %v", err)
	}
}

func TestDiscoverPicksAdapterAddress(t *testing.T) {
	bus := newTestBus(t, mock.NewTV(cec.AddrTV, 0x0000))

	cfg := newTestConfig(&bytes.Buffer{})
	r, err := New(cfg, bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	present, err := r.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Local != cec.AddrPlayback1 {
		t.Errorf("local = %s", cfg.Local)
	}
	if present != cec.AddrTV.Bit() {
		t.Errorf("present = %s", present)
	}

	m := r.Remotes().Get(cec.AddrTV)
	if !m.Present || !m.HasPhysAddr || m.PhysAddr != 0x0000 {
		t.Errorf("physical address not learned: %+v", m)
	}
	if m.PrimaryType != cec.PrimaryTV || m.Version != cec.Version2_0 {
		t.Errorf("identity not learned: type %s version %s", m.PrimaryType, m.Version)
	}
	if m.OSDName == "" || m.Language != "eng" || !m.HasVendorID {
		t.Errorf("names not learned: %q %q %v", m.OSDName, m.Language, m.HasVendorID)
	}
	if !m.PowerStatus.IsYes() || m.InStandby {
		t.Errorf("power not learned: %v standby=%v", m.PowerStatus, m.InStandby)
	}
}

func TestDiscoverStandbyDevice(t *testing.T) {
	play := mock.NewPlayback(cec.AddrPlayback2, 0x2000)
	play.SetPowerStatus(cec.PowerStandby)
	bus := newTestBus(t, play)

	r, err := New(newTestConfig(&bytes.Buffer{}), bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Discover(context.Background()); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	m := r.Remotes().Get(cec.AddrPlayback2)
	if !m.InStandby {
		t.Error("expected standby to be recorded")
	}
	if m.Language != "" {
		t.Errorf("menu language asked of a non-TV: %q", m.Language)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.OutputFormat = "xml"
	_, err := New(cfg, newTestBus(t))
	var ce *ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}

func TestNewRejectsBadTarget(t *testing.T) {
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.Targets = []cec.LogicalAddress{cec.AddrBroadcast}
	_, err := New(cfg, newTestBus(t))
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "targets" {
		t.Fatalf("expected targets ConfigError, got %v", err)
	}
}

func TestNewAppliesExpectations(t *testing.T) {
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.Expectations = []string{"give-osd-name=OK_NOT_SUPPORTED"}
	cfg.ExpectationsNoWarnings = []string{"Polling Message=OK"}
	r, err := New(cfg, newTestBus(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	exp, ok := r.Registry().Expected("Give OSD Name")
	if !ok || exp.Verdict != engine.OKNotSupported || exp.NoWarnings {
		t.Errorf("Give OSD Name expectation = %+v, %v", exp, ok)
	}
	exp, ok = r.Registry().Expected("polling-message")
	if !ok || exp.Verdict != engine.OK || !exp.NoWarnings {
		t.Errorf("Polling Message expectation = %+v, %v", exp, ok)
	}
}

func TestNewRejectsUnknownExpectation(t *testing.T) {
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.Expectations = []string{"no-such-case=OK"}
	_, err := New(cfg, newTestBus(t))
	var ce *ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, engine.ErrUnknownCase) {
		t.Fatalf("expected unknown case error, got %v", err)
	}
}

func TestPrepareNeedsNoAdapter(t *testing.T) {
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.Expectations = []string{"no-such-case=OK"}
	if _, err := Prepare(cfg); !errors.Is(err, engine.ErrUnknownCase) {
		t.Fatalf("expected unknown case error, got %v", err)
	}

	cfg = newTestConfig(&bytes.Buffer{})
	r, err := Prepare(cfg)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close without adapter: %v", err)
	}
	r.Attach(newTestBus(t, mock.NewTV(cec.AddrTV, 0x0000)))
	present, err := r.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover after Attach: %v", err)
	}
	if !present.Has(cec.AddrTV) {
		t.Errorf("present = %v, want the TV", present)
	}
}

func TestNewRejectsMissingExpectationsFile(t *testing.T) {
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.ExpectationsFile = t.TempDir() + "/missing.yaml"
	_, err := New(cfg, newTestBus(t))
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

// --- power ---

type answer struct {
	ok    bool
	asked []string
}

func (a *answer) Confirm(_ context.Context, q string) (bool, error) {
	a.asked = append(a.asked, q)
	return a.ok, nil
}

func newPowerController(t *testing.T, bus *mock.Controller, p *answer) (*PowerController, *Runner) {
	t.Helper()
	r, err := New(newTestConfig(&bytes.Buffer{}), bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Discover(context.Background()); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	var prompter engine.Prompter
	if p != nil {
		prompter = p
	}
	pc := NewPowerController(r.engine.Exchanger(), r.Remotes(), prompter, nil)
	pc.Wait = 100 * time.Millisecond
	pc.Interval = 5 * time.Millisecond
	return pc, r
}

func TestPowerControllerWakesTV(t *testing.T) {
	tv := mock.NewTV(cec.AddrTV, 0x0000)
	tv.SetPowerStatus(cec.PowerStandby)
	bus := newTestBus(t, tv)
	pc, r := newPowerController(t, bus, nil)

	ok, err := pc.EnsurePowered(context.Background(), cec.AddrTV, false)
	if err != nil || !ok {
		t.Fatalf("EnsurePowered = %v, %v", ok, err)
	}
	if tv.PowerStatus() != cec.PowerOn {
		t.Errorf("TV power = %s", tv.PowerStatus())
	}
	if r.Remotes().Get(cec.AddrTV).InStandby {
		t.Error("model still in standby")
	}
}

func TestPowerControllerWakesPlayback(t *testing.T) {
	play := mock.NewPlayback(cec.AddrPlayback2, 0x2000)
	play.SetPowerStatus(cec.PowerStandby)
	bus := newTestBus(t, play)
	pc, _ := newPowerController(t, bus, nil)

	ok, err := pc.EnsurePowered(context.Background(), cec.AddrPlayback2, false)
	if err != nil || !ok {
		t.Fatalf("EnsurePowered = %v, %v", ok, err)
	}
	if play.PowerStatus() != cec.PowerOn {
		t.Errorf("power = %s", play.PowerStatus())
	}
}

func TestPowerControllerGivesUp(t *testing.T) {
	play := mock.NewPlayback(cec.AddrPlayback2, 0x2000)
	play.SetPowerStatus(cec.PowerStandby)
	play.SetHandler(cec.OpUserControlPressed, func(*mock.Device, cec.Frame) []cec.Frame { return nil })
	bus := newTestBus(t, play)
	pc, r := newPowerController(t, bus, nil)

	ok, err := pc.EnsurePowered(context.Background(), cec.AddrPlayback2, false)
	if err != nil || ok {
		t.Fatalf("EnsurePowered = %v, %v", ok, err)
	}
	if !r.Remotes().Get(cec.AddrPlayback2).InStandby {
		t.Error("model should stay in standby")
	}
}

func TestPowerControllerAsksOperator(t *testing.T) {
	play := mock.NewPlayback(cec.AddrPlayback2, 0x2000)
	play.SetPowerStatus(cec.PowerStandby)
	play.SetHandler(cec.OpUserControlPressed, func(*mock.Device, cec.Frame) []cec.Frame { return nil })
	bus := newTestBus(t, play)
	p := &answer{ok: true}
	pc, _ := newPowerController(t, bus, p)

	ok, err := pc.EnsurePowered(context.Background(), cec.AddrPlayback2, true)
	if err != nil || !ok {
		t.Fatalf("EnsurePowered = %v, %v", ok, err)
	}
	if len(p.asked) != 1 {
		t.Errorf("expected one question, got %q", p.asked)
	}
}

func TestPowerControllerAssumesOnWithoutStatus(t *testing.T) {
	play := mock.NewPlayback(cec.AddrPlayback2, 0x2000)
	play.SetHandler(cec.OpGiveDevicePowerStatus, nil)
	bus := newTestBus(t, play)
	pc, _ := newPowerController(t, bus, nil)

	ok, err := pc.EnsurePowered(context.Background(), cec.AddrPlayback2, false)
	if err != nil || !ok {
		t.Fatalf("EnsurePowered = %v, %v", ok, err)
	}
}

// --- connect ---

type fakeBrowser struct {
	svc    *discovery.BridgeService
	filter discovery.FilterFunc
}

func (b *fakeBrowser) Browse(ctx context.Context) (<-chan *discovery.BridgeService, error) {
	ch := make(chan *discovery.BridgeService, 1)
	ch <- b.svc
	close(ch)
	return ch, nil
}

func (b *fakeBrowser) FindFirst(_ context.Context, filter discovery.FilterFunc) (*discovery.BridgeService, error) {
	b.filter = filter
	if b.svc == nil || (filter != nil && !filter(b.svc)) {
		return nil, discovery.ErrNotFound
	}
	return b.svc, nil
}

func (b *fakeBrowser) Stop() {}

type recordingDialer struct {
	addresses []string
	t         transport.Transport
}

func (d *recordingDialer) Dial(_ context.Context, address string) (transport.Transport, error) {
	d.addresses = append(d.addresses, address)
	return d.t, nil
}

func TestConnectDirect(t *testing.T) {
	d := &recordingDialer{t: newTestBus(t)}
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.Bridge = "10.0.0.5:9526"

	tr, err := Connect(context.Background(), cfg, d, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if tr != d.t || len(d.addresses) != 1 || d.addresses[0] != "10.0.0.5:9526" {
		t.Errorf("dialed %q", d.addresses)
	}
}

func TestConnectBrowses(t *testing.T) {
	d := &recordingDialer{t: newTestBus(t)}
	b := &fakeBrowser{svc: &discovery.BridgeService{
		InstanceName: "living-room",
		Host:         "bridge.local",
		Port:         9526,
		Addresses:    []string{"192.168.1.20"},
	}}
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.BridgeInstance = "living-room"

	if _, err := Connect(context.Background(), cfg, d, b); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if b.filter == nil {
		t.Error("expected an instance filter")
	}
	if len(d.addresses) != 1 || d.addresses[0] != "192.168.1.20:9526" {
		t.Errorf("dialed %q", d.addresses)
	}
}

func TestConnectBridgeNotFound(t *testing.T) {
	d := &recordingDialer{}
	b := &fakeBrowser{svc: &discovery.BridgeService{InstanceName: "kitchen", Host: "k.local", Port: 9526}}
	cfg := newTestConfig(&bytes.Buffer{})
	cfg.BridgeInstance = "living-room"

	_, err := Connect(context.Background(), cfg, d, b)
	if !errors.Is(err, discovery.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if KindOf(err) != KindTransient {
		t.Errorf("kind = %s", KindOf(err))
	}
	if len(d.addresses) != 0 {
		t.Errorf("dialed %q", d.addresses)
	}
}

func TestConnectWithoutBridgeOrBrowser(t *testing.T) {
	_, err := Connect(context.Background(), newTestConfig(&bytes.Buffer{}), &recordingDialer{}, nil)
	if !errors.Is(err, ErrNoBridge) {
		t.Fatalf("expected ErrNoBridge, got %v", err)
	}
}
