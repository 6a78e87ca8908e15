package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cec-protocol/cec-go/internal/testharness/remote"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// Mode selects what happens to frames that arrive during an exchange but do
// not answer it.
type Mode uint8

const (
	// ModeInitiator drops unrelated frames.
	ModeInitiator Mode = iota
	// ModeFollower queues unrelated frames for Receive.
	ModeFollower
	// ModeInitiatorFollower behaves like ModeFollower while also
	// transmitting requests.
	ModeInitiatorFollower
)

func (m Mode) String() string {
	switch m {
	case ModeInitiator:
		return "initiator"
	case ModeFollower:
		return "follower"
	case ModeInitiatorFollower:
		return "initiator+follower"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

func (m Mode) follows() bool { return m != ModeInitiator }

// ErrNoFrame is returned by Receive when the window elapsed without traffic.
var ErrNoFrame = errors.New("no frame received")

// ExchangeOptions controls a single exchange.
type ExchangeOptions struct {
	Timeout time.Duration
	Mode    Mode
}

// ExchangeOption modifies ExchangeOptions.
type ExchangeOption func(*ExchangeOptions)

// WithTimeout sets the reply window.
func WithTimeout(d time.Duration) ExchangeOption {
	return func(o *ExchangeOptions) { o.Timeout = d }
}

// WithMode sets the exchange mode.
func WithMode(m Mode) ExchangeOption {
	return func(o *ExchangeOptions) { o.Mode = m }
}

// Outcome is the observable result of one exchange.
type Outcome struct {
	Request cec.Frame

	// Reply is the correlated frame, valid when HasReply is set.
	Reply    cec.Frame
	HasReply bool

	// NoAck is set when nobody acknowledged the request.
	NoAck bool

	// TimedOut is set when the window elapsed without a correlated frame.
	TimedOut bool

	Duration time.Duration
}

// Aborted reports a Feature Abort reply.
func (o *Outcome) Aborted() bool { return o.HasReply && o.Reply.IsFeatureAbort() }

// AbortReason returns the reason of a Feature Abort reply.
func (o *Outcome) AbortReason() (cec.AbortReason, bool) {
	if !o.Aborted() {
		return 0, false
	}
	_, reason, err := o.Reply.AbortInfo()
	if err != nil {
		return 0, false
	}
	return reason, true
}

// Unrecognized reports Feature Abort [Unrecognized opcode].
func (o *Outcome) Unrecognized() bool {
	r, ok := o.AbortReason()
	return ok && r == cec.AbortUnrecognizedOpcode
}

// Refused reports Feature Abort [Refused].
func (o *Outcome) Refused() bool {
	r, ok := o.AbortReason()
	return ok && r == cec.AbortRefused
}

// AbortedWith reports a Feature Abort carrying reason r.
func (o *Outcome) AbortedWith(r cec.AbortReason) bool {
	got, ok := o.AbortReason()
	return ok && got == r
}

// Exchanger sends requests and correlates replies. It is used from a single
// goroutine; the transport provides the synchronization.
type Exchanger struct {
	transport transport.Transport
	remotes   *remote.Table
	capture   log.Logger
	logger    *slog.Logger
	runID     string
	local     cec.LogicalAddress

	defaultTimeout time.Duration

	// test names capture events; set by the engine per case.
	test  string
	queue []cec.Frame
}

// NewExchanger creates an exchanger transmitting from local.
func NewExchanger(t transport.Transport, remotes *remote.Table, local cec.LogicalAddress) *Exchanger {
	return &Exchanger{
		transport:      t,
		remotes:        remotes,
		capture:        log.NoopLogger{},
		logger:         slog.New(slog.DiscardHandler),
		local:          local,
		defaultTimeout: DefaultReplyTimeout,
	}
}

// SetCapture installs the protocol capture logger and the run ID its events
// carry.
func (x *Exchanger) SetCapture(l log.Logger, runID string) {
	if l == nil {
		l = log.NoopLogger{}
	}
	x.capture = l
	x.runID = runID
}

// SetLogger sets the operational logger.
func (x *Exchanger) SetLogger(l *slog.Logger) {
	if l != nil {
		x.logger = l
	}
}

// SetDefaultTimeout sets the reply window used when no WithTimeout is given.
func (x *Exchanger) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		x.defaultTimeout = d
	}
}

// Local returns the transmitting address.
func (x *Exchanger) Local() cec.LogicalAddress { return x.local }

// Transport returns the underlying transport.
func (x *Exchanger) Transport() transport.Transport { return x.transport }

// Flush discards queued follower frames.
func (x *Exchanger) Flush() { x.queue = x.queue[:0] }

// Exchange transmits f and waits for its reply.
//
// A frame with an expected reply waits for that opcode, or for a Feature
// Abort naming f's opcode, from the destination (from anyone but ourselves
// for broadcasts). A directed frame without an expected reply waits the same
// window for a Feature Abort only. Broadcasts without a reply return as soon
// as they are acknowledged. A no-ack is reported on the Outcome; only
// transport failures are returned as errors.
func (x *Exchanger) Exchange(ctx context.Context, f cec.Frame, opts ...ExchangeOption) (*Outcome, error) {
	o := ExchangeOptions{Timeout: x.defaultTimeout, Mode: ModeInitiator}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	out := &Outcome{Request: f}

	err := x.transport.Send(ctx, f)
	x.logFrame(log.DirectionOut, f, transport.StatusOf(err))
	if err != nil {
		if errors.Is(err, transport.ErrNoAck) {
			out.NoAck = true
			out.TimedOut = f.HasReply
			out.Duration = time.Since(start)
			return out, nil
		}
		return nil, fmt.Errorf("send %s: %w", f, err)
	}
	if f.Poll || (f.IsBroadcast() && !f.HasReply) {
		out.Duration = time.Since(start)
		return out, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	for {
		rx, err := x.transport.Receive(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, transport.ErrTimeout) {
				out.TimedOut = true
				break
			}
			return nil, fmt.Errorf("receive reply to %s: %w", f, err)
		}
		x.logFrame(log.DirectionIn, rx, transport.TxOK)
		if x.correlates(f, rx) {
			out.Reply = rx
			out.HasReply = true
			break
		}
		x.unrelated(rx, o.Mode)
	}
	out.Duration = time.Since(start)
	x.learn(out)
	return out, nil
}

func (x *Exchanger) correlates(req, rx cec.Frame) bool {
	if rx.Poll || rx.Initiator == x.local {
		return false
	}
	fromTarget := req.IsBroadcast() || rx.Initiator == req.Destination
	if !fromTarget {
		return false
	}
	if rx.IsFeatureAbort() {
		op, _, err := rx.AbortInfo()
		return err == nil && op == req.Opcode
	}
	return req.HasReply && rx.Opcode == req.Reply
}

func (x *Exchanger) unrelated(rx cec.Frame, m Mode) {
	if m.follows() {
		x.queue = append(x.queue, rx)
		return
	}
	x.logger.Debug("discarding unrelated frame", "frame", rx.String())
}

func (x *Exchanger) learn(out *Outcome) {
	if x.remotes == nil || !out.HasReply || out.Request.IsBroadcast() {
		return
	}
	m := x.remotes.Get(out.Request.Destination)
	if out.Unrecognized() {
		m.RecordUnrecognized(out.Request.Opcode)
		return
	}
	if !out.Aborted() {
		m.RecordRecognized(out.Request.Opcode)
	}
}

// Poll sends a header-only frame and reports whether it was acknowledged.
func (x *Exchanger) Poll(ctx context.Context, to cec.LogicalAddress) (bool, error) {
	out, err := x.Exchange(ctx, cec.PollFrame(x.local, to))
	if err != nil {
		return false, err
	}
	return !out.NoAck, nil
}

// Receive returns the next queued or incoming frame, waiting at most
// window. It returns ErrNoFrame when the window elapses.
func (x *Exchanger) Receive(ctx context.Context, window time.Duration) (cec.Frame, error) {
	if len(x.queue) > 0 {
		f := x.queue[0]
		x.queue = x.queue[1:]
		return f, nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	for {
		rx, err := x.transport.Receive(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return cec.Frame{}, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, transport.ErrTimeout) {
				return cec.Frame{}, ErrNoFrame
			}
			return cec.Frame{}, fmt.Errorf("receive: %w", err)
		}
		if rx.Initiator == x.local && !rx.IsBroadcast() {
			continue
		}
		x.logFrame(log.DirectionIn, rx, transport.TxOK)
		return rx, nil
	}
}

// Collect receives frames until fn returns false, no frame arrives within
// perMessage, or maxWindow has elapsed in total.
func (x *Exchanger) Collect(ctx context.Context, perMessage, maxWindow time.Duration, fn func(cec.Frame) bool) error {
	deadline := time.Now().Add(maxWindow)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return nil
		}
		window := perMessage
		if left < window {
			window = left
		}
		f, err := x.Receive(ctx, window)
		if errors.Is(err, ErrNoFrame) {
			return nil
		}
		if err != nil {
			return err
		}
		if !fn(f) {
			return nil
		}
	}
}

func (x *Exchanger) logFrame(dir log.Direction, f cec.Frame, st transport.TxStatus) {
	data, err := f.Bytes()
	if err != nil {
		return
	}
	remoteAddr := f.Destination
	if dir == log.DirectionIn {
		remoteAddr = f.Initiator
	}
	x.capture.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     x.runID,
		Direction: dir,
		Layer:     log.LayerBus,
		Category:  log.CategoryFrame,
		Local:     uint8(x.local),
		Remote:    uint8(remoteAddr),
		Test:      x.test,
		Frame:     &log.FrameEvent{Data: data, TxStatus: captureStatus(st)},
	})
}

func captureStatus(st transport.TxStatus) log.TxStatus {
	switch st {
	case transport.TxOK:
		return log.TxOK
	case transport.TxNack:
		return log.TxNack
	default:
		return log.TxError
	}
}
