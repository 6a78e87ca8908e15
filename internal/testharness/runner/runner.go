// Package runner provides test execution against real CEC devices: it
// opens the adapter, discovers the remote devices and runs the case
// catalogue against them.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cec-protocol/cec-go/internal/testharness/cases"
	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/internal/testharness/loader"
	"github.com/cec-protocol/cec-go/internal/testharness/remote"
	"github.com/cec-protocol/cec-go/internal/testharness/reporter"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// Runner errors.
var (
	ErrNoBridge          = errors.New("no bridge address and no browser")
	ErrAddressNotClaimed = errors.New("adapter does not hold the logical address")
	ErrNoTargets         = errors.New("no remote devices found")
	ErrTargetNotPresent  = errors.New("remote device not present")
	ErrUnknownFormat     = errors.New("unknown output format")
)

// Config configures the test runner.
type Config struct {
	// Bridge is the bridge server address (host:port). Empty means browse
	// for one over mDNS.
	Bridge string

	// BridgeInstance selects a bridge by mDNS instance name when browsing.
	BridgeInstance string

	// DialAttempts bounds bridge connection retries (default 3).
	DialAttempts int

	// Local is the adapter's logical address. AddrUnregistered picks the
	// first address the adapter holds.
	Local            cec.LogicalAddress
	LocalPhysAddr    cec.PhysicalAddress
	LocalPrimaryType cec.PrimaryDeviceType
	LocalCEC20       bool

	// Targets lists the remote devices to test. Empty means every device
	// that answers a poll.
	Targets []cec.LogicalAddress

	// Tags selects test areas. Zero selects every area.
	Tags engine.Tag

	// Interactive enables operator questions.
	Interactive bool

	Timeouts engine.Timeouts

	// ExpectationsFile is an expected-result file applied before the
	// command line expectations.
	ExpectationsFile string

	// Expectations are "name=verdict" expressions; ExpectationsNoWarnings
	// additionally require the case to finish without warnings.
	Expectations           []string
	ExpectationsNoWarnings []string

	// Output is where to write results.
	Output io.Writer

	// OutputFormat is "text", "json", or "junit".
	OutputFormat string

	// Verbose includes informational notes and durations in text output.
	Verbose bool

	// Logger for operational logging (optional).
	Logger *slog.Logger

	// ProtocolLogger receives frame and verdict events. Set to nil to
	// disable protocol capture.
	ProtocolLogger log.Logger

	// Prompter answers operator questions in interactive runs.
	Prompter engine.Prompter
}

// DefaultConfig returns a configuration that lets the adapter decide the
// local address and runs every area.
func DefaultConfig() *Config {
	ec := engine.DefaultConfig()
	return &Config{
		Local:            cec.AddrUnregistered,
		LocalPhysAddr:    ec.LocalPhysAddr,
		LocalPrimaryType: ec.LocalPrimaryType,
		LocalCEC20:       ec.LocalCEC20,
		Tags:             engine.TagAll,
		Timeouts:         ec.Timeouts,
		Output:           os.Stdout,
		OutputFormat:     "text",
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// Runner executes the case catalogue through one adapter.
type Runner struct {
	config    *Config
	transport transport.Transport
	registry  *engine.Registry
	reporter  reporter.Reporter
	text      *reporter.TextReporter
	remotes   *remote.Table
	engine    *engine.Engine
	present   cec.AddressMask
}

// New validates cfg and returns a runner driving t. It is Prepare followed
// by Attach.
func New(cfg *Config, t transport.Transport) (*Runner, error) {
	r, err := Prepare(cfg)
	if err != nil {
		return nil, err
	}
	r.Attach(t)
	return r, nil
}

// Prepare checks everything the operator supplied (expectations, targets,
// output format) without touching the bus, so configuration mistakes are
// reported before a bridge is dialled. The runner needs Attach before
// Discover or Run.
func Prepare(cfg *Config) (*Runner, error) {
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	reg, err := cases.NewRegistry()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		config:   cfg,
		registry: reg,
		remotes:  remote.NewTable(),
	}
	if err := r.loadExpectations(); err != nil {
		return nil, err
	}
	if err := r.setupReporter(); err != nil {
		return nil, err
	}
	if cfg.Tags == 0 {
		cfg.Tags = engine.TagAll
	}
	for _, la := range cfg.Targets {
		if la >= cec.AddrUnregistered {
			return nil, &ConfigError{Field: "targets", Err: fmt.Errorf("%d is not a device address", la)}
		}
	}
	return r, nil
}

// Attach sets the adapter the runner drives.
func (r *Runner) Attach(t transport.Transport) { r.transport = t }

func (r *Runner) loadExpectations() error {
	cfg := r.config
	if cfg.ExpectationsFile != "" {
		ef, err := loader.LoadExpectations(cfg.ExpectationsFile)
		if err != nil {
			return &ConfigError{Field: "expectations file", Err: err}
		}
		if err := ef.Apply(cfg.ExpectationsFile, r.registry); err != nil {
			return &ConfigError{Field: "expectations file", Err: err}
		}
		if len(cfg.Targets) == 0 {
			cfg.Targets = ef.TargetAddresses()
		}
		if cfg.Tags == 0 && len(ef.Tags) > 0 {
			tags, err := engine.ParseTags(ef.Tags)
			if err != nil {
				return &ConfigError{Field: "expectations file", Err: err}
			}
			cfg.Tags = tags
		}
	}

	apply := func(exprs []string, noWarnings bool) error {
		for _, expr := range exprs {
			name, token, err := engine.ParseExpectation(expr)
			if err != nil {
				return &ConfigError{Field: "expect", Err: err}
			}
			if err := r.registry.SetExpectedResult(name, token, noWarnings); err != nil {
				return &ConfigError{Field: "expect", Err: err}
			}
		}
		return nil
	}
	if err := apply(cfg.Expectations, false); err != nil {
		return err
	}
	return apply(cfg.ExpectationsNoWarnings, true)
}

func (r *Runner) setupReporter() error {
	cfg := r.config
	switch cfg.OutputFormat {
	case "", "text":
		// Replaced in buildEngine once the local address is known.
		r.text = reporter.NewTextReporter(cfg.Output, cfg.Local, cfg.Verbose)
		r.reporter = r.text
	case "json":
		r.reporter = reporter.NewJSONReporter(cfg.Output, true)
	case "junit":
		r.reporter = reporter.NewJUnitReporter(cfg.Output)
	default:
		return &ConfigError{Field: "output format", Err: fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.OutputFormat)}
	}
	return nil
}

// Registry returns the case registry with expectations applied.
func (r *Runner) Registry() *engine.Registry { return r.registry }

// Remotes returns the remote device models.
func (r *Runner) Remotes() *remote.Table { return r.remotes }

// Present returns the devices found by the last Discover.
func (r *Runner) Present() cec.AddressMask { return r.present }

// Discover resolves the local address and polls the bus. It is called by
// Run and may be called on its own to list devices.
func (r *Runner) Discover(ctx context.Context) (cec.AddressMask, error) {
	cfg := r.config
	own, err := r.transport.LogicalAddresses(ctx)
	if err != nil {
		return 0, Classify(fmt.Errorf("query logical addresses: %w", err))
	}
	if cfg.Local == cec.AddrUnregistered {
		addrs := own.Addresses()
		if len(addrs) == 0 {
			return 0, &ConfigError{Field: "local", Err: ErrAddressNotClaimed}
		}
		cfg.Local = addrs[0]
	} else if !own.Has(cfg.Local) {
		return 0, &ConfigError{Field: "local", Err: fmt.Errorf("%w: %s", ErrAddressNotClaimed, cfg.Local)}
	}

	r.buildEngine()
	present, err := DiscoverRemotes(ctx, r.engine.Exchanger(), r.remotes, own, cfg.logger())
	r.present = present
	return present, err
}

func (r *Runner) buildEngine() {
	cfg := r.config
	ec := engine.DefaultConfig()
	ec.Local = cfg.Local
	ec.LocalPhysAddr = cfg.LocalPhysAddr
	ec.LocalPrimaryType = cfg.LocalPrimaryType
	ec.LocalCEC20 = cfg.LocalCEC20
	ec.Interactive = cfg.Interactive
	ec.Tags = cfg.Tags
	ec.Timeouts = cfg.Timeouts
	ec.Logger = cfg.Logger
	ec.Capture = cfg.ProtocolLogger
	ec.Remotes = r.remotes
	ec.Prompter = cfg.Prompter
	if r.text != nil {
		r.text = reporter.NewTextReporter(cfg.Output, cfg.Local, cfg.Verbose)
		r.text.Attach(ec)
		r.reporter = r.text
	}

	r.engine = engine.NewWithConfig(ec, r.transport, r.registry)
	pc := NewPowerController(r.engine.Exchanger(), r.remotes, cfg.Prompter, cfg.Logger)
	pc.Wait = ec.Timeouts.Long
	pc.Interval = ec.Timeouts.PollInterval
	ec.Power = pc
}

// Run discovers the bus, tests every target and reports the results.
func (r *Runner) Run(ctx context.Context) (*engine.RunResult, error) {
	present, err := r.Discover(ctx)
	if err != nil {
		return nil, err
	}

	targets := r.config.Targets
	if len(targets) == 0 {
		targets = present.Addresses()
		if len(targets) == 0 {
			return nil, Device(ErrNoTargets)
		}
	}
	for _, la := range targets {
		if !present.Has(la) {
			return nil, Device(fmt.Errorf("%w: %s", ErrTargetNotPresent, la))
		}
	}

	logger := r.config.logger()
	for _, la := range targets {
		logger.Info("remote device", "address", la.String(), "summary", DescribeRemote(r.remotes.Get(la)))
	}

	res := r.engine.Run(ctx, targets)
	r.reporter.ReportRun(res)
	return res, nil
}

// Close releases the adapter, if one is attached.
func (r *Runner) Close() error {
	if r.transport == nil {
		return nil
	}
	return r.transport.Close()
}
