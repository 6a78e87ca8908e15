// Package loader reads expected-result files for known-quirky devices.
package loader

import "strconv"

// ExpectationFile is a parsed expected-result file.
type ExpectationFile struct {
	// Name is the file's base name without extension, or the device name.
	Name string

	// Device describes the device the expectations were written for.
	Device DeviceInfo `yaml:"device"`

	// Targets optionally restricts a run to these logical addresses.
	Targets []int `yaml:"targets,omitempty"`

	// Tags optionally selects test areas by tag name.
	Tags []string `yaml:"tags,omitempty"`

	// Expectations are listed in file order.
	Expectations []Expectation `yaml:"-"`
}

// DeviceInfo is free-form identification of the device under test.
type DeviceInfo struct {
	Name   string `yaml:"name,omitempty"`
	Vendor string `yaml:"vendor,omitempty"`
	Model  string `yaml:"model,omitempty"`
	Notes  string `yaml:"notes,omitempty"`
}

// Expectation overrides the verdict a single test case is expected to give.
type Expectation struct {
	// Test is the case name, in either display or safe form.
	Test string

	// Verdict is a verdict code or symbolic name.
	Verdict string

	// NoWarnings requires the case to finish without warnings.
	NoWarnings bool

	// Line is where the expectation appears in the file.
	Line int
}

// LoadError provides details about an expectation file loading error.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Line is the line number where the error occurred (0 if unknown).
	Line int

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Line > 0 {
		return e.File + ":" + strconv.Itoa(e.Line) + ": " + msg
	}
	return e.File + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
