package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/internal/testharness/runner"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// fileConfig mirrors the TOML run configuration. Every key is optional.
type fileConfig struct {
	Bridge       string `toml:"bridge"`
	Instance     string `toml:"instance"`
	DialAttempts int    `toml:"dial_attempts"`

	Local       int    `toml:"local"`
	PhysAddr    string `toml:"phys_addr"`
	PrimaryType string `toml:"primary_type"`
	CECVersion  string `toml:"cec_version"`

	Targets     []int    `toml:"targets"`
	Tags        []string `toml:"tags"`
	Interactive bool     `toml:"interactive"`

	Expectations     string   `toml:"expectations"`
	Expect           []string `toml:"expect"`
	ExpectNoWarnings []string `toml:"expect_no_warnings"`
	Format           string   `toml:"format"`
	Output           string   `toml:"output"`
	ProtocolLog      string   `toml:"protocol_log"`

	Timeouts fileTimeouts `toml:"timeouts"`
}

type fileTimeouts struct {
	Reply        string `toml:"reply"`
	Record       string `toml:"record"`
	Long         string `toml:"long"`
	PollInterval string `toml:"poll_interval"`
	Settle       string `toml:"settle"`
	Collect      string `toml:"collect"`
	Observe      string `toml:"observe"`
}

// settings is a run configuration plus the parts only the command uses.
type settings struct {
	runner      *runner.Config
	outputPath  string
	protocolLog string
}

func defaultSettings() *settings {
	cfg := runner.DefaultConfig()
	// Tags stay unset so an expectations file can choose them.
	cfg.Tags = 0
	return &settings{runner: cfg}
}

// loadConfigFile overlays the keys defined in path onto s.
func loadConfigFile(path string, s *settings) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	cfg := s.runner

	if meta.IsDefined("bridge") {
		cfg.Bridge = strings.TrimSpace(raw.Bridge)
	}
	if meta.IsDefined("instance") {
		cfg.BridgeInstance = strings.TrimSpace(raw.Instance)
	}
	if meta.IsDefined("dial_attempts") {
		cfg.DialAttempts = raw.DialAttempts
	}

	if meta.IsDefined("local") {
		la, err := parseLogicalAddress(raw.Local, true)
		if err != nil {
			return fmt.Errorf("parse local: %w", err)
		}
		cfg.Local = la
	}
	if meta.IsDefined("phys_addr") {
		pa, err := cec.ParsePhysicalAddress(strings.TrimSpace(raw.PhysAddr))
		if err != nil {
			return fmt.Errorf("parse phys_addr: %w", err)
		}
		cfg.LocalPhysAddr = pa
	}
	if meta.IsDefined("primary_type") {
		t, err := cec.ParsePrimaryDeviceType(strings.ToLower(strings.TrimSpace(raw.PrimaryType)))
		if err != nil {
			return fmt.Errorf("parse primary_type: %w", err)
		}
		cfg.LocalPrimaryType = t
	}
	if meta.IsDefined("cec_version") {
		cec20, err := parseCECVersion(raw.CECVersion)
		if err != nil {
			return fmt.Errorf("parse cec_version: %w", err)
		}
		cfg.LocalCEC20 = cec20
	}

	if meta.IsDefined("targets") {
		targets, err := parseTargets(raw.Targets)
		if err != nil {
			return fmt.Errorf("parse targets: %w", err)
		}
		cfg.Targets = targets
	}
	if meta.IsDefined("tags") {
		tags, err := engine.ParseTags(raw.Tags)
		if err != nil {
			return fmt.Errorf("parse tags: %w", err)
		}
		cfg.Tags = tags
	}
	if meta.IsDefined("interactive") {
		cfg.Interactive = raw.Interactive
	}

	if meta.IsDefined("expectations") {
		cfg.ExpectationsFile = strings.TrimSpace(raw.Expectations)
	}
	if meta.IsDefined("expect") {
		cfg.Expectations = raw.Expect
	}
	if meta.IsDefined("expect_no_warnings") {
		cfg.ExpectationsNoWarnings = raw.ExpectNoWarnings
	}
	if meta.IsDefined("format") {
		cfg.OutputFormat = strings.TrimSpace(raw.Format)
	}
	if meta.IsDefined("output") {
		s.outputPath = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("protocol_log") {
		s.protocolLog = strings.TrimSpace(raw.ProtocolLog)
	}

	timeouts := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"reply", raw.Timeouts.Reply, &cfg.Timeouts.Reply},
		{"record", raw.Timeouts.Record, &cfg.Timeouts.Record},
		{"long", raw.Timeouts.Long, &cfg.Timeouts.Long},
		{"poll_interval", raw.Timeouts.PollInterval, &cfg.Timeouts.PollInterval},
		{"settle", raw.Timeouts.Settle, &cfg.Timeouts.Settle},
		{"collect", raw.Timeouts.Collect, &cfg.Timeouts.Collect},
		{"observe", raw.Timeouts.Observe, &cfg.Timeouts.Observe},
	}
	for _, t := range timeouts {
		if !meta.IsDefined("timeouts", t.key) {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(t.raw))
		if err != nil {
			return fmt.Errorf("parse timeouts.%s: %w", t.key, err)
		}
		if d <= 0 {
			return fmt.Errorf("parse timeouts.%s: must be positive", t.key)
		}
		*t.dst = d
	}
	return nil
}

// parseLogicalAddress accepts 0-14, and 15 when unregistered is allowed.
func parseLogicalAddress(v int, unregistered bool) (cec.LogicalAddress, error) {
	limit := int(cec.AddrSpecific)
	if unregistered {
		limit = int(cec.AddrUnregistered)
	}
	if v < 0 || v > limit {
		return 0, fmt.Errorf("logical address %d out of range 0-%d", v, limit)
	}
	return cec.LogicalAddress(v), nil
}

func parseTargets(in []int) ([]cec.LogicalAddress, error) {
	out := make([]cec.LogicalAddress, 0, len(in))
	for _, v := range in {
		la, err := parseLogicalAddress(v, false)
		if err != nil {
			return nil, err
		}
		out = append(out, la)
	}
	return out, nil
}

// parseCECVersion reports whether s selects CEC 2.0.
func parseCECVersion(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "2.0", "2":
		return true, nil
	case "1.4", "1.4b":
		return false, nil
	}
	return false, fmt.Errorf("unsupported CEC version %q (want 1.4 or 2.0)", s)
}
