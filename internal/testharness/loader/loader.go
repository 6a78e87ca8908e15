package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// yamlFile mirrors ExpectationFile with the expectations left as a raw node
// so each entry keeps its line number.
type yamlFile struct {
	Device       DeviceInfo `yaml:"device"`
	Targets      []int      `yaml:"targets"`
	Tags         []string   `yaml:"tags"`
	Expectations yaml.Node  `yaml:"expectations"`
}

type yamlExpectation struct {
	Verdict    string `yaml:"verdict"`
	NoWarnings bool   `yaml:"no_warnings"`
}

// ParseExpectations parses expected results from YAML or from the
// line-oriented name=verdict form.
func ParseExpectations(data []byte) (*ExpectationFile, error) {
	var (
		ef  *ExpectationFile
		err error
	)
	if isYAMLFormat(data) {
		ef, err = parseYAML(data)
	} else {
		ef, err = parseKeyValue(data)
	}
	if err != nil {
		return nil, err
	}
	if err := ef.validate(); err != nil {
		return nil, err
	}
	if ef.Name == "" {
		ef.Name = ef.Device.Name
	}
	return ef, nil
}

// isYAMLFormat reports whether the first meaningful line is a YAML
// section marker.
func isYAMLFormat(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || trimmed == "---" {
			continue
		}
		for _, marker := range []string{"expectations:", "device:", "targets:", "tags:"} {
			if strings.HasPrefix(trimmed, marker) {
				return true
			}
		}
		return false
	}
	return false
}

func parseYAML(data []byte) (*ExpectationFile, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	ef := &ExpectationFile{Device: yf.Device, Targets: yf.Targets, Tags: yf.Tags}

	node := &yf.Expectations
	switch node.Kind {
	case 0:
		return ef, nil
	case yaml.MappingNode:
	default:
		return nil, &LoadError{Line: node.Line, Message: "expectations must be a mapping of test name to verdict"}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		exp := Expectation{Test: key.Value, Line: key.Line}
		switch val.Kind {
		case yaml.ScalarNode:
			exp.Verdict = val.Value
		case yaml.MappingNode:
			var ye yamlExpectation
			if err := val.Decode(&ye); err != nil {
				return nil, &LoadError{Line: val.Line, Message: "invalid expectation for " + key.Value, Cause: err}
			}
			exp.Verdict = ye.Verdict
			exp.NoWarnings = ye.NoWarnings
		default:
			return nil, &LoadError{Line: val.Line, Message: "invalid expectation for " + key.Value}
		}
		ef.Expectations = append(ef.Expectations, exp)
	}
	return ef, nil
}

// parseKeyValue reads one "name=verdict" per line. A trailing "!" on the
// verdict requires the case to finish without warnings.
func parseKeyValue(data []byte) (*ExpectationFile, error) {
	ef := &ExpectationFile{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, token, err := engine.ParseExpectation(line)
		if err != nil {
			return nil, &LoadError{Line: lineNum, Message: "invalid expectation line", Cause: err}
		}
		exp := Expectation{Test: name, Line: lineNum}
		if strings.HasSuffix(token, "!") {
			exp.NoWarnings = true
			token = strings.TrimSpace(strings.TrimSuffix(token, "!"))
		}
		exp.Verdict = token
		ef.Expectations = append(ef.Expectations, exp)
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Message: "failed to read expectations", Cause: err}
	}
	return ef, nil
}

func (ef *ExpectationFile) validate() error {
	seen := make(map[string]int)
	for _, e := range ef.Expectations {
		if e.Test == "" {
			return &LoadError{Line: e.Line, Message: "missing test name"}
		}
		if _, err := engine.ParseVerdict(e.Verdict); err != nil {
			return &LoadError{Line: e.Line, Message: "bad verdict for " + e.Test, Cause: err}
		}
		safe := engine.SafeName(e.Test)
		if prev, dup := seen[safe]; dup {
			return &LoadError{Line: e.Line, Message: fmt.Sprintf("%s already given on line %d", e.Test, prev)}
		}
		seen[safe] = e.Line
	}
	for _, t := range ef.Targets {
		if t < 0 || t > 14 {
			return &LoadError{Message: fmt.Sprintf("target %d is not a device logical address", t)}
		}
	}
	if _, err := engine.ParseTags(ef.Tags); err != nil {
		return &LoadError{Message: "invalid tags", Cause: err}
	}
	return nil
}

// LoadExpectations loads an expected-result file from disk.
func LoadExpectations(path string) (*ExpectationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	ef, err := ParseExpectations(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, err
	}

	if ef.Name == "" {
		ef.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ef, nil
}

// LoadDirectory loads every .yaml, .yml and .txt file in dir, sorted by
// file name.
func LoadDirectory(dir string) ([]*ExpectationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml", ".txt":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var files []*ExpectationFile
	for _, name := range names {
		ef, err := LoadExpectations(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		files = append(files, ef)
	}
	return files, nil
}

// Registrar accepts expected results. *engine.Registry implements it.
type Registrar interface {
	SetExpectedResult(name, token string, noWarnings bool) error
}

// Apply records every expectation in reg. The file path, if known, is used
// in errors.
func (ef *ExpectationFile) Apply(path string, reg Registrar) error {
	for _, e := range ef.Expectations {
		if err := reg.SetExpectedResult(e.Test, e.Verdict, e.NoWarnings); err != nil {
			return &LoadError{File: path, Line: e.Line, Message: "cannot apply expectation", Cause: err}
		}
	}
	return nil
}

// TargetAddresses returns Targets as logical addresses.
func (ef *ExpectationFile) TargetAddresses() []cec.LogicalAddress {
	out := make([]cec.LogicalAddress, 0, len(ef.Targets))
	for _, t := range ef.Targets {
		out = append(out, cec.LogicalAddress(t))
	}
	return out
}
