package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Registry errors.
var (
	ErrDuplicateCase = errors.New("duplicate case name with a different body")
	ErrUnknownCase   = errors.New("unknown test case")
	ErrBadExpression = errors.New("expected result must have the form name=verdict")
)

// Body runs one case against env.Target and returns its verdict.
type Body func(ctx context.Context, env *Env) Verdict

// Case is one named test.
type Case struct {
	Name string

	// Key identifies the body. Two cases may share a name only when they
	// share a key. Empty means SafeName(Name).
	Key string

	// Mask lists the logical addresses the case is meaningful for.
	Mask cec.AddressMask

	// ForCEC20 restricts the case to CEC 2.0 targets and adapters.
	ForCEC20 bool

	// InStandby runs the case with the target expected to be in standby.
	// It needs an adapter that holds logical addresses.
	InStandby bool

	Body Body
}

func (c *Case) key() string {
	if c.Key != "" {
		return c.Key
	}
	return SafeName(c.Name)
}

// Area groups cases under one feature.
type Area struct {
	Name  string
	Tags  Tag
	Cases []Case
}

// Expectation is an operator supplied expected verdict.
type Expectation struct {
	Verdict    Verdict
	NoWarnings bool
}

// Registry holds the areas in schedule order and the expectation table.
type Registry struct {
	areas    []Area
	keys     map[string]string
	expected map[string]Expectation
}

// NewRegistry indexes areas. Reusing a case name for a different body is an
// error.
func NewRegistry(areas ...Area) (*Registry, error) {
	r := &Registry{
		areas:    areas,
		keys:     make(map[string]string),
		expected: make(map[string]Expectation),
	}
	for _, a := range areas {
		for i := range a.Cases {
			c := &a.Cases[i]
			name := SafeName(c.Name)
			if k, ok := r.keys[name]; ok && k != c.key() {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateCase, c.Name)
			}
			r.keys[name] = c.key()
		}
	}
	return r, nil
}

// Areas returns the areas in schedule order.
func (r *Registry) Areas() []Area { return r.areas }

// TestName is one entry of ListTestNames.
type TestName struct {
	Area string
	Name string
}

// ListTestNames returns every case in schedule order with its safe name.
func (r *Registry) ListTestNames() []TestName {
	var out []TestName
	for _, a := range r.areas {
		for _, c := range a.Cases {
			out = append(out, TestName{Area: a.Name, Name: SafeName(c.Name)})
		}
	}
	return out
}

// Has reports whether a case with this name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.keys[SafeName(name)]
	return ok
}

// SetExpectedResult records the verdict expected for name. Every case
// sharing the name is affected.
func (r *Registry) SetExpectedResult(name, token string, noWarnings bool) error {
	safe := SafeName(name)
	if _, ok := r.keys[safe]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCase, name)
	}
	v, err := ParseVerdict(token)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	r.expected[safe] = Expectation{Verdict: v, NoWarnings: noWarnings}
	return nil
}

// Expected returns the expectation for name, if any.
func (r *Registry) Expected(name string) (Expectation, bool) {
	e, ok := r.expected[SafeName(name)]
	return e, ok
}

// ParseExpectation splits "name=verdict".
func ParseExpectation(expr string) (name, token string, err error) {
	name, token, ok := strings.Cut(expr, "=")
	name = strings.TrimSpace(name)
	token = strings.TrimSpace(token)
	if !ok || name == "" || token == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadExpression, expr)
	}
	return name, token, nil
}

// SafeName lowercases name and replaces every run of non-alphanumeric
// characters with a single dash.
func SafeName(name string) string {
	var b strings.Builder
	sep := false
	for _, r := range name {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('-')
		}
		sep = false
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
