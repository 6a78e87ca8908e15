package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// DefaultPort is the TCP port a bridge server listens on by default.
const DefaultPort = 9526

const (
	helloTimeout = 10 * time.Second
	receivePause = 50 * time.Millisecond
)

// ErrServerRunning is returned by Start on a server that is already
// serving.
var ErrServerRunning = errors.New("bridge server already running")

// ServerConfig configures a bridge server.
type ServerConfig struct {
	// Address to listen on, ":9526" when empty.
	Address string

	// Adapter is the local bus adapter shared by every client.
	Adapter Transport

	Logger *slog.Logger

	// OnConnect and OnDisconnect bracket each session that completed the
	// Hello exchange.
	OnConnect    func(conn *ServerConn)
	OnDisconnect func(conn *ServerConn)
}

// Server shares one adapter with any number of TCP clients. Received
// frames are fanned out to every session; transmits from any session go
// to the adapter in arrival order.
type Server struct {
	config ServerConfig

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	ctx      context.Context

	sessions *xsync.MapOf[*ServerConn, struct{}]
	wg       sync.WaitGroup
}

// NewServer validates config and returns an idle server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Adapter == nil {
		return nil, errors.New("bridge server: no adapter")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config:   config,
		sessions: xsync.NewMapOf[*ServerConn, struct{}](),
	}, nil
}

// Start listens and serves until ctx ends or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return ErrServerRunning
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("bridge listen %s: %w", s.config.Address, err)
	}
	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.accept(ln)
	go s.fanOut()
	s.config.Logger.Info("bridge listening", "addr", ln.Addr().String())
	return nil
}

// Stop closes the listener, ends every session and waits for them.
func (s *Server) Stop() error {
	s.mu.Lock()
	ln := s.listener
	if ln == nil {
		s.mu.Unlock()
		return nil
	}
	s.listener = nil
	s.cancel()
	s.mu.Unlock()

	err := ln.Close()
	s.sessions.Range(func(c *ServerConn, _ struct{}) bool {
		c.Close()
		return true
	})
	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Addr is the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount is the number of sessions past the handshake.
func (s *Server) ConnectionCount() int {
	return s.sessions.Size()
}

func (s *Server) accept(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			s.config.Logger.Warn("bridge accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

// fanOut copies adapter receptions to every session.
func (s *Server) fanOut() {
	defer s.wg.Done()
	for {
		f, err := s.config.Adapter.Receive(s.ctx)
		switch {
		case s.ctx.Err() != nil, errors.Is(err, ErrClosed):
			return
		case err != nil:
			s.config.Logger.Warn("bridge adapter receive failed", "error", err)
			if contextPause(s.ctx, receivePause) != nil {
				return
			}
			continue
		}

		data, err := f.Bytes()
		if err != nil {
			s.config.Logger.Debug("bridge dropped unencodable frame", "error", err)
			continue
		}
		env := Envelope{Type: EnvReceived, Frame: data}
		s.sessions.Range(func(c *ServerConn, _ struct{}) bool {
			if err := c.send(env); err != nil {
				c.Close()
			}
			return true
		})
	}
}

func (s *Server) serveConn(conn net.Conn) {
	c := &ServerConn{conn: conn, framer: NewFramer(conn), server: s}
	logger := s.config.Logger.With("remote", conn.RemoteAddr().String())
	stop := context.AfterFunc(s.ctx, func() { c.Close() })
	defer stop()

	if err := c.handshake(); err != nil {
		logger.Warn("bridge handshake failed", "error", err)
		c.Close()
		return
	}
	logger = logger.With("session", c.session)

	s.sessions.Store(c, struct{}{})
	logger.Info("bridge session started")
	if s.config.OnConnect != nil {
		s.config.OnConnect(c)
	}

	c.readLoop()

	s.sessions.Delete(c)
	logger.Info("bridge session ended")
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(c)
	}
}

// ServerConn is one client session.
type ServerConn struct {
	conn    net.Conn
	framer  *Framer
	server  *Server
	session string
	once    sync.Once
}

// Session is the UUID the client sent in its Hello.
func (c *ServerConn) Session() string { return c.session }

func (c *ServerConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close ends the session. Only the first call closes the connection.
func (c *ServerConn) Close() error {
	err := net.ErrClosed
	c.once.Do(func() { err = c.conn.Close() })
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// handshake expects a Hello carrying a session id and echoes it back.
func (c *ServerConn) handshake() error {
	if err := c.conn.SetDeadline(time.Now().Add(helloTimeout)); err != nil {
		return err
	}
	hello, err := readEnvelope(c.framer)
	if err != nil {
		return err
	}
	if hello.Type != EnvHello || hello.Session == "" {
		return fmt.Errorf("expected hello with session, got %s", hello.Type)
	}
	c.session = hello.Session
	if err := c.send(Envelope{Type: EnvHello, Session: c.session}); err != nil {
		return err
	}
	return c.conn.SetDeadline(time.Time{})
}

func (c *ServerConn) send(e Envelope) error {
	return writeEnvelope(c.framer, e)
}

func (c *ServerConn) readLoop() {
	defer c.Close()
	for {
		env, err := readEnvelope(c.framer)
		if err != nil {
			return
		}
		switch env.Type {
		case EnvTransmit:
			// Off the read loop so pings are answered while the bus is busy.
			go c.transmit(env.Seq, env.Frame)
		case EnvQueryAddresses:
			go c.addresses(env.Seq)
		case EnvPing:
			_ = c.send(Envelope{Type: EnvPong, Seq: env.Seq})
		case EnvClose:
			return
		default:
			c.server.config.Logger.Debug("bridge ignored envelope", "type", env.Type.String())
		}
	}
}

func (c *ServerConn) transmit(seq uint32, raw []byte) {
	f, err := cec.ParseFrame(raw)
	if err == nil {
		err = c.server.config.Adapter.Send(c.server.ctx, f)
	}
	res := Envelope{Type: EnvTxResult, Seq: seq, Status: StatusOf(err)}
	if err != nil && res.Status != TxNack {
		res.Error = err.Error()
	}
	_ = c.send(res)
}

func (c *ServerConn) addresses(seq uint32) {
	mask, err := c.server.config.Adapter.LogicalAddresses(c.server.ctx)
	if err != nil {
		c.server.config.Logger.Warn("bridge address query failed", "error", err)
	}
	_ = c.send(Envelope{Type: EnvAddresses, Seq: seq, Mask: uint16(mask)})
}

func contextPause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
