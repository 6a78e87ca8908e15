package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Verdict is the outcome of one case run against one target.
//
// The numeric values are part of the operator interface: expectations may
// be given as "name=3" and are matched against these codes.
type Verdict int

const (
	OK             Verdict = 0
	Fail           Verdict = 1
	OKPresumed     Verdict = 2
	OKNotSupported Verdict = 3
	OKRefused      Verdict = 4
	OKUnexpected   Verdict = 5
	// OKExpectedFail marks a FAIL that matched its expectation. Case bodies
	// never return it.
	OKExpectedFail Verdict = 6
	FailCritical   Verdict = 7
	NotApplicable  Verdict = 8
)

// ErrInvalidVerdict is returned by ParseVerdict.
var ErrInvalidVerdict = errors.New("invalid verdict")

var verdictNames = [...]string{
	OK:             "OK",
	Fail:           "FAIL",
	OKPresumed:     "OK_PRESUMED",
	OKNotSupported: "OK_NOT_SUPPORTED",
	OKRefused:      "OK_REFUSED",
	OKUnexpected:   "OK_UNEXPECTED",
	OKExpectedFail: "OK_EXPECTED_FAIL",
	FailCritical:   "FAIL_CRITICAL",
	NotApplicable:  "NOT_APPLICABLE",
}

var verdictLabels = [...]string{
	OK:             "OK",
	Fail:           "FAIL",
	OKPresumed:     "OK (Presumed)",
	OKNotSupported: "OK (Not Supported)",
	OKRefused:      "OK (Refused)",
	OKUnexpected:   "OK (Unexpected)",
	OKExpectedFail: "OK (Expected Failure)",
	FailCritical:   "FAIL CRITICAL",
	NotApplicable:  "N/A",
}

func (v Verdict) valid() bool { return v >= OK && v <= NotApplicable }

// Name returns the symbolic token, e.g. OK_NOT_SUPPORTED.
func (v Verdict) Name() string {
	if !v.valid() {
		return fmt.Sprintf("VERDICT(%d)", int(v))
	}
	return verdictNames[v]
}

// String returns the label used in result lines.
func (v Verdict) String() string {
	if !v.valid() {
		return v.Name()
	}
	return verdictLabels[v]
}

// IsFailure reports FAIL and FAIL_CRITICAL.
func (v Verdict) IsFailure() bool { return v == Fail || v == FailCritical }

// ParseVerdict accepts a numeric code or a symbolic name. Names are
// case-insensitive; PASS is an alias for OK.
func ParseVerdict(s string) (Verdict, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidVerdict)
	}
	if s[0] >= '0' && s[0] <= '9' {
		n, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidVerdict, s)
		}
		v := Verdict(n)
		if !v.valid() || v == OKExpectedFail {
			return 0, fmt.Errorf("%w: code %d", ErrInvalidVerdict, n)
		}
		return v, nil
	}
	name := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	if name == "PASS" {
		return OK, nil
	}
	for v, n := range verdictNames {
		if n == name && Verdict(v) != OKExpectedFail {
			return Verdict(v), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidVerdict, s)
}

// MarshalText encodes the symbolic name.
func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.Name()), nil }

// UnmarshalText accepts anything ParseVerdict does.
func (v *Verdict) UnmarshalText(b []byte) error {
	p, err := ParseVerdict(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}
