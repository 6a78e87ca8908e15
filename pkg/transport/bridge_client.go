package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// BridgeConfig configures a bridge client.
type BridgeConfig struct {
	// ConnectTimeout bounds dialing and the Hello exchange (default: 10s).
	ConnectTimeout time.Duration

	// TxTimeout bounds the wait for a TxResult (default: 5s).
	TxTimeout time.Duration

	// ReceiveBuffer is the number of received frames queued before the
	// oldest is dropped (default: 64).
	ReceiveBuffer int

	// KeepAlive configuration. Leave zero for defaults.
	KeepAlive KeepAliveConfig
}

func (c BridgeConfig) withDefaults() BridgeConfig {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.TxTimeout == 0 {
		c.TxTimeout = 5 * time.Second
	}
	if c.ReceiveBuffer == 0 {
		c.ReceiveBuffer = 64
	}
	return c
}

// Bridge is a Transport talking to a remote adapter through a bridge
// Server.
type Bridge struct {
	config  BridgeConfig
	conn    net.Conn
	framer  *Framer
	session string

	seq     atomic.Uint32
	pending *xsync.MapOf[uint32, chan Envelope]
	rx      chan cec.Frame
	ka      *KeepAlive

	closeOnce sync.Once
	closeCh   chan struct{}
	closeErr  atomic.Value
}

// DialBridge connects to a bridge server and performs the Hello exchange.
func DialBridge(ctx context.Context, address string, config BridgeConfig) (*Bridge, error) {
	config = config.withDefaults()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w", err)
	}

	b := &Bridge{
		config:  config,
		conn:    conn,
		framer:  NewFramer(conn),
		session: uuid.New().String(),
		pending: xsync.NewMapOf[uint32, chan Envelope](),
		rx:      make(chan cec.Frame, config.ReceiveBuffer),
		closeCh: make(chan struct{}),
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if err := writeEnvelope(b.framer, Envelope{Type: EnvHello, Session: b.session}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bridge hello: %w", err)
	}
	reply, err := readEnvelope(b.framer)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bridge hello: %w", err)
	}
	if reply.Type != EnvHello || reply.Session != b.session {
		conn.Close()
		return nil, fmt.Errorf("bridge hello: unexpected %s reply", reply.Type)
	}
	conn.SetDeadline(time.Time{})

	b.ka = NewKeepAlive(config.KeepAlive, func(seq uint32) error {
		return writeEnvelope(b.framer, Envelope{Type: EnvPing, Seq: seq})
	}, func() {
		b.shutdown(fmt.Errorf("%w: bridge stopped answering pings", ErrClosed))
	})

	go b.readLoop()
	b.ka.Start(context.Background())

	return b, nil
}

// Session returns the session UUID negotiated with the server.
func (b *Bridge) Session() string { return b.session }

// Send transmits f through the remote adapter.
func (b *Bridge) Send(ctx context.Context, f cec.Frame) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	res, err := b.call(ctx, Envelope{Type: EnvTransmit, Frame: data})
	if err != nil {
		return err
	}
	switch res.Status {
	case TxOK:
		return nil
	case TxNack:
		return ErrNoAck
	default:
		if res.Error != "" {
			return fmt.Errorf("%w: %s: %s", ErrTxFailed, res.Status, res.Error)
		}
		return fmt.Errorf("%w: %s", ErrTxFailed, res.Status)
	}
}

// Receive returns the next frame pushed by the server.
func (b *Bridge) Receive(ctx context.Context) (cec.Frame, error) {
	select {
	case f := <-b.rx:
		return f, nil
	case <-ctx.Done():
		return cec.Frame{}, ctx.Err()
	case <-b.closeCh:
		return cec.Frame{}, b.err()
	}
}

// LogicalAddresses queries the addresses held by the remote adapter.
func (b *Bridge) LogicalAddresses(ctx context.Context) (cec.AddressMask, error) {
	res, err := b.call(ctx, Envelope{Type: EnvQueryAddresses})
	if err != nil {
		return 0, err
	}
	return cec.AddressMask(res.Mask), nil
}

// Close ends the session.
func (b *Bridge) Close() error {
	select {
	case <-b.closeCh:
		return nil
	default:
	}
	_ = writeEnvelope(b.framer, Envelope{Type: EnvClose})
	b.shutdown(ErrClosed)
	return nil
}

// call sends a request envelope and waits for the envelope with the same
// sequence number.
func (b *Bridge) call(ctx context.Context, req Envelope) (Envelope, error) {
	select {
	case <-b.closeCh:
		return Envelope{}, b.err()
	default:
	}

	req.Seq = b.seq.Add(1)
	ch := make(chan Envelope, 1)
	b.pending.Store(req.Seq, ch)
	defer b.pending.Delete(req.Seq)

	if err := writeEnvelope(b.framer, req); err != nil {
		return Envelope{}, fmt.Errorf("bridge %s: %w", req.Type, err)
	}

	timer := time.NewTimer(b.config.TxTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, nil
	case <-timer.C:
		return Envelope{}, fmt.Errorf("%w: no %s result after %s", ErrTimeout, req.Type, b.config.TxTimeout)
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	case <-b.closeCh:
		return Envelope{}, b.err()
	}
}

func (b *Bridge) readLoop() {
	for {
		env, err := readEnvelope(b.framer)
		if err != nil {
			if errors.Is(err, io.EOF) {
				b.shutdown(fmt.Errorf("%w: bridge closed the session", ErrClosed))
			} else {
				b.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			}
			return
		}

		switch env.Type {
		case EnvTxResult, EnvAddresses:
			if ch, ok := b.pending.Load(env.Seq); ok {
				select {
				case ch <- env:
				default:
				}
			}
		case EnvReceived:
			f, err := cec.ParseFrame(env.Frame)
			if err != nil {
				continue
			}
			b.enqueue(f)
		case EnvPing:
			_ = writeEnvelope(b.framer, Envelope{Type: EnvPong, Seq: env.Seq})
		case EnvPong:
			b.ka.PongReceived(env.Seq)
		case EnvClose:
			b.shutdown(fmt.Errorf("%w: bridge closed the session", ErrClosed))
			return
		}
	}
}

// enqueue pushes f, dropping the oldest queued frame when full.
func (b *Bridge) enqueue(f cec.Frame) {
	for {
		select {
		case b.rx <- f:
			return
		default:
		}
		select {
		case <-b.rx:
		default:
		}
	}
}

func (b *Bridge) shutdown(err error) {
	b.closeOnce.Do(func() {
		b.closeErr.Store(err)
		close(b.closeCh)
		b.ka.Stop()
		b.conn.Close()
	})
}

func (b *Bridge) err() error {
	if err, ok := b.closeErr.Load().(error); ok {
		return err
	}
	return ErrClosed
}
