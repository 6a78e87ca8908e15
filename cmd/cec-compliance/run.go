package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/internal/testharness/interactive"
	"github.com/cec-protocol/cec-go/internal/testharness/runner"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/discovery"
	ceclog "github.com/cec-protocol/cec-go/pkg/log"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Bridge       string
	Instance     string
	DialAttempts int

	Local       int
	PhysAddr    string
	PrimaryType string
	CECVersion  string

	Targets     []int
	Tags        []string
	Interactive bool

	Expectations     string
	Expect           []string
	ExpectNoWarnings []string
	Format           string
	Output           string
	ProtocolLog      string

	ReplyTimeout time.Duration
	Timeout      time.Duration

	// Dialer and Browser override bridge access (for testing).
	Dialer  runner.Dialer
	Browser discovery.Browser
}

func newRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommandWith(&RunOptions{RootOptions: rootOpts})
}

// newRunCommandWith binds the run flags to opts, keeping any Dialer or
// Browser already set there.
func newRunCommandWith(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the compliance tests",
		Long: `Connect to a CEC bridge, poll the bus and test every remote device found
(or only the --target devices).

Without --bridge the first bridge advertised over mDNS is used.

Exit status is 0 when every reported test passed, 1 when a test failed or
the bus could not be tested, and 2 for configuration errors.

Example:
  cec-compliance run --bridge 192.168.1.50:9526
  cec-compliance run --target 0 --tags power-status,standby-resume -i
  cec-compliance run -c living-room.toml --format json -o results.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Bridge, "bridge", "b", "", "bridge address (host:port); browse mDNS when empty")
	f.StringVar(&opts.Instance, "instance", "", "mDNS instance name of the bridge to use")
	f.IntVar(&opts.DialAttempts, "dial-attempts", 3, "bridge connection attempts")
	f.IntVar(&opts.Local, "local", int(cec.AddrUnregistered), "local logical address (15 picks the adapter's)")
	f.StringVar(&opts.PhysAddr, "phys-addr", "", "local physical address (a.b.c.d)")
	f.StringVar(&opts.PrimaryType, "type", "", "local primary device type (tv, record, tuner, playback, audio, switch, processor)")
	f.StringVar(&opts.CECVersion, "cec-version", "", "CEC version the adapter speaks (1.4 or 2.0)")
	f.IntSliceVarP(&opts.Targets, "target", "t", nil, "remote logical address to test (repeatable)")
	f.StringSliceVar(&opts.Tags, "tags", nil, "test areas to run: all, "+strings.Join(engine.TagNames(), ", "))
	f.BoolVarP(&opts.Interactive, "interactive", "i", false, "enable tests that need the operator")
	f.StringVar(&opts.Expectations, "expectations", "", "expected results file (YAML or name=verdict lines)")
	f.StringArrayVarP(&opts.Expect, "expect", "e", nil, "expected result as name=verdict (repeatable)")
	f.StringArrayVar(&opts.ExpectNoWarnings, "expect-no-warnings", nil, "like --expect, and require no warnings")
	f.StringVar(&opts.Format, "format", "text", "report format (text|json|junit)")
	f.StringVarP(&opts.Output, "output", "o", "", "write the report to a file")
	f.StringVar(&opts.ProtocolLog, "protocol-log", "", "capture bus traffic to a file (CBOR)")
	f.DurationVar(&opts.ReplyTimeout, "reply-timeout", 0, "override the reply timeout")
	f.DurationVar(&opts.Timeout, "timeout", 0, "abort the run after this long (0 = no limit)")

	return cmd
}

// applyFlags overlays the flags the operator set onto s.
func applyFlags(cmd *cobra.Command, opts *RunOptions, s *settings) error {
	cfg := s.runner
	changed := cmd.Flags().Changed

	if changed("bridge") {
		cfg.Bridge = opts.Bridge
	}
	if changed("instance") {
		cfg.BridgeInstance = opts.Instance
	}
	if changed("dial-attempts") {
		cfg.DialAttempts = opts.DialAttempts
	}
	if changed("local") {
		la, err := parseLogicalAddress(opts.Local, true)
		if err != nil {
			return fmt.Errorf("--local: %w", err)
		}
		cfg.Local = la
	}
	if changed("phys-addr") {
		pa, err := cec.ParsePhysicalAddress(opts.PhysAddr)
		if err != nil {
			return fmt.Errorf("--phys-addr: %w", err)
		}
		cfg.LocalPhysAddr = pa
	}
	if changed("type") {
		t, err := cec.ParsePrimaryDeviceType(strings.ToLower(opts.PrimaryType))
		if err != nil {
			return fmt.Errorf("--type: %w", err)
		}
		cfg.LocalPrimaryType = t
	}
	if changed("cec-version") {
		cec20, err := parseCECVersion(opts.CECVersion)
		if err != nil {
			return fmt.Errorf("--cec-version: %w", err)
		}
		cfg.LocalCEC20 = cec20
	}
	if changed("target") {
		targets, err := parseTargets(opts.Targets)
		if err != nil {
			return fmt.Errorf("--target: %w", err)
		}
		cfg.Targets = targets
	}
	if changed("tags") {
		tags, err := engine.ParseTags(opts.Tags)
		if err != nil {
			return fmt.Errorf("--tags: %w", err)
		}
		cfg.Tags = tags
	}
	if changed("interactive") {
		cfg.Interactive = opts.Interactive
	}
	if changed("expectations") {
		cfg.ExpectationsFile = opts.Expectations
	}
	if changed("expect") {
		cfg.Expectations = append(cfg.Expectations, opts.Expect...)
	}
	if changed("expect-no-warnings") {
		cfg.ExpectationsNoWarnings = append(cfg.ExpectationsNoWarnings, opts.ExpectNoWarnings...)
	}
	if changed("format") {
		cfg.OutputFormat = opts.Format
	}
	if changed("output") {
		s.outputPath = opts.Output
	}
	if changed("protocol-log") {
		s.protocolLog = opts.ProtocolLog
	}
	if changed("reply-timeout") {
		if opts.ReplyTimeout <= 0 {
			return errors.New("--reply-timeout: must be positive")
		}
		cfg.Timeouts.Reply = opts.ReplyTimeout
	}
	cfg.Verbose = opts.Verbose
	return nil
}

func runTests(cmd *cobra.Command, opts *RunOptions) error {
	s := defaultSettings()
	if opts.Config != "" {
		if err := loadConfigFile(opts.Config, s); err != nil {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	}
	if err := applyFlags(cmd, opts, s); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	cfg := s.runner

	logger := newLogger(cmd.ErrOrStderr(), opts.LogFormat, opts.Verbose)
	cfg.Logger = logger

	cfg.Output = cmd.OutOrStdout()
	if s.outputPath != "" {
		f, err := os.Create(s.outputPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create report file", err)
		}
		defer f.Close()
		cfg.Output = f
	}

	capture, err := openCapture(s.protocolLog, logger, opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create protocol log", err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			logger.Warn("protocol log incomplete", "path", s.protocolLog, "error", err)
		}
	}()
	// Only set the logger when something listens, to keep capture off the
	// hot path.
	if capture.Len() > 0 {
		cfg.ProtocolLogger = capture
	}

	if cfg.Interactive {
		p, err := interactive.New()
		if err != nil {
			return WrapExitError(ExitCommandError, "interactive mode unavailable", err)
		}
		defer p.Close()
		cfg.Prompter = p
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r, err := runner.Prepare(cfg)
	if err != nil {
		return classifyRunError("invalid configuration", err)
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = runner.NewDialer(transport.BridgeConfig{})
	}
	browser := opts.Browser
	if browser == nil && cfg.Bridge == "" {
		b := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
		defer b.Stop()
		browser = b
	}

	t, err := runner.Connect(ctx, cfg, dialer, browser)
	if err != nil {
		return classifyRunError("failed to connect to the bridge", err)
	}

	r.Attach(t)
	defer r.Close()

	res, err := r.Run(ctx)
	if err != nil {
		return classifyRunError("run failed", err)
	}
	logger.Info("run complete", "run_id", res.RunID,
		"passed", res.PassCount, "failed", res.FailCount, "skipped", res.SkipCount)
	if res.FailCount > 0 {
		return errTestsFailed
	}
	return nil
}

// openCapture opens the protocol log. In verbose mode bus events are also
// written to the operational log. The result may have no destinations.
func openCapture(path string, logger *slog.Logger, verbose bool) (*ceclog.MultiLogger, error) {
	var fl ceclog.Logger
	if path != "" {
		f, err := ceclog.NewFileLogger(path)
		if err != nil {
			return nil, err
		}
		fl = f
	}
	var console ceclog.Logger
	if verbose {
		console = ceclog.NewSlogAdapter(logger)
	}
	return ceclog.NewMultiLogger(fl, console), nil
}

func classifyRunError(message string, err error) error {
	var ce *runner.ConfigError
	if errors.As(err, &ce) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
