package engine

import "github.com/cec-protocol/cec-go/pkg/cec"

// Class is the coarse shape of a response.
type Class uint8

const (
	// ClassIgnored: no reply, none expected.
	ClassIgnored Class = iota
	// ClassTimedOut: a reply was expected but none arrived.
	ClassTimedOut
	// ClassAborted: the device answered with Feature Abort.
	ClassAborted
	// ClassOK: the expected reply arrived.
	ClassOK
)

func (c Class) String() string {
	switch c {
	case ClassIgnored:
		return "ignored"
	case ClassTimedOut:
		return "timed out"
	case ClassAborted:
		return "aborted"
	default:
		return "ok"
	}
}

// Response is a classified Outcome.
type Response struct {
	Class Class

	// Reason is set for ClassAborted.
	Reason cec.AbortReason

	// Payload is the reply for ClassOK and ClassAborted.
	Payload cec.Frame
}

// Classify maps an outcome to a Response. The checks run in a fixed order:
// missing reply first, then Feature Abort, then success.
func Classify(o *Outcome) Response {
	switch {
	case !o.HasReply && !o.Request.HasReply:
		return Response{Class: ClassIgnored}
	case !o.HasReply:
		return Response{Class: ClassTimedOut}
	case o.Reply.IsFeatureAbort():
		r, _ := o.AbortReason()
		return Response{Class: ClassAborted, Reason: r, Payload: o.Reply}
	default:
		return Response{Class: ClassOK, Payload: o.Reply}
	}
}

// Class is shorthand for Classify(o).Class.
func (o *Outcome) Class() Class { return Classify(o).Class }

// AbortVerdict maps the usual optional-feature abort reasons: Unrecognized
// opcode is OK_NOT_SUPPORTED, Refused is OK_REFUSED and anything else is
// OK_PRESUMED. The second result is false when o is not an abort.
func AbortVerdict(o *Outcome) (Verdict, bool) {
	r, ok := o.AbortReason()
	if !ok {
		return OK, false
	}
	switch r {
	case cec.AbortUnrecognizedOpcode:
		return OKNotSupported, true
	case cec.AbortRefused:
		return OKRefused, true
	default:
		return OKPresumed, true
	}
}
