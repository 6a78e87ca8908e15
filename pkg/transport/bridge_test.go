package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// fakeAdapter acks frames addressed to present devices and lets tests push
// received frames.
type fakeAdapter struct {
	present cec.AddressMask
	local   cec.AddressMask
	rx      chan cec.Frame

	mu   sync.Mutex
	sent []cec.Frame
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		present: cec.MaskTV | cec.MaskPlayback,
		local:   cec.AddrPlayback1.Bit(),
		rx:      make(chan cec.Frame, 8),
	}
}

func (a *fakeAdapter) Send(_ context.Context, f cec.Frame) error {
	a.mu.Lock()
	a.sent = append(a.sent, f)
	a.mu.Unlock()
	if f.IsBroadcast() || a.present.Has(f.Destination) {
		return nil
	}
	return ErrNoAck
}

func (a *fakeAdapter) Receive(ctx context.Context) (cec.Frame, error) {
	select {
	case f := <-a.rx:
		return f, nil
	case <-ctx.Done():
		return cec.Frame{}, ctx.Err()
	}
}

func (a *fakeAdapter) LogicalAddresses(context.Context) (cec.AddressMask, error) {
	return a.local, nil
}

func (a *fakeAdapter) Close() error { return nil }

func startBridge(t *testing.T, adapter Transport) (*Server, *Bridge) {
	t.Helper()
	srv, err := NewServer(ServerConfig{Address: "127.0.0.1:0", Adapter: adapter})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { srv.Stop() })

	client, err := DialBridge(context.Background(), srv.Addr().String(), BridgeConfig{TxTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return srv, client
}

func TestBridgeSendReportsAck(t *testing.T) {
	adapter := newFakeAdapter()
	_, client := startBridge(t, adapter)
	ctx := context.Background()

	require.NoError(t, client.Send(ctx, cec.GiveOSDName(cec.AddrPlayback1, cec.AddrTV)))

	err := client.Send(ctx, cec.PollFrame(cec.AddrPlayback1, cec.AddrRecord1))
	assert.True(t, errors.Is(err, ErrNoAck), "got %v", err)

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	require.Len(t, adapter.sent, 2)
	assert.Equal(t, cec.OpGiveOSDName, adapter.sent[0].Opcode)
	assert.True(t, adapter.sent[1].Poll)
}

func TestBridgeForwardsReceivedFrames(t *testing.T) {
	adapter := newFakeAdapter()
	srv, client := startBridge(t, adapter)

	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	adapter.rx <- cec.SetOSDName(cec.AddrTV, cec.AddrPlayback1, "TV")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := client.Receive(ctx)
	require.NoError(t, err)
	name, err := f.OSDName()
	require.NoError(t, err)
	assert.Equal(t, "TV", name)
	assert.Equal(t, cec.AddrTV, f.Initiator)
}

func TestBridgeLogicalAddresses(t *testing.T) {
	_, client := startBridge(t, newFakeAdapter())

	mask, err := client.LogicalAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cec.AddrPlayback1.Bit(), mask)
	assert.NotEmpty(t, client.Session())
}

func TestBridgeCloseFailsPendingCalls(t *testing.T) {
	_, client := startBridge(t, newFakeAdapter())
	require.NoError(t, client.Close())

	err := client.Send(context.Background(), cec.GiveOSDName(cec.AddrPlayback1, cec.AddrTV))
	assert.True(t, errors.Is(err, ErrClosed), "got %v", err)

	_, err = client.Receive(context.Background())
	assert.True(t, errors.Is(err, ErrClosed), "got %v", err)
}

func TestBridgeServerStopEndsSession(t *testing.T) {
	srv, client := startBridge(t, newFakeAdapter())
	require.NoError(t, srv.Stop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := client.Receive(ctx)
	assert.True(t, errors.Is(err, ErrClosed), "got %v", err)
}

func TestKeepAliveDetectsDeadPeer(t *testing.T) {
	var pings atomic.Int32
	dead := make(chan struct{})
	ka := NewKeepAlive(KeepAliveConfig{
		PingInterval:   10 * time.Millisecond,
		PongTimeout:    5 * time.Millisecond,
		MaxMissedPongs: 2,
	}, func(uint32) error {
		pings.Add(1)
		return nil
	}, func() { close(dead) })

	ka.Start(context.Background())
	defer ka.Stop()

	select {
	case <-dead:
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive never declared the peer dead")
	}
	assert.GreaterOrEqual(t, pings.Load(), int32(2))
}

func TestKeepAliveStaysAliveWithPongs(t *testing.T) {
	dead := make(chan struct{})
	var ka *KeepAlive
	ka = NewKeepAlive(KeepAliveConfig{
		PingInterval:   10 * time.Millisecond,
		PongTimeout:    5 * time.Millisecond,
		MaxMissedPongs: 2,
	}, func(seq uint32) error {
		go ka.PongReceived(seq)
		return nil
	}, func() { close(dead) })

	ka.Start(context.Background())
	defer ka.Stop()

	select {
	case <-dead:
		t.Fatal("keep-alive declared an answering peer dead")
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, 0, ka.Missed())
}

func TestKeepAliveDefaults(t *testing.T) {
	c := DefaultKeepAliveConfig()
	assert.Equal(t, 10*time.Second*3+3*time.Second, c.DetectionDelay())
}

func TestBridgeServerStartTwice(t *testing.T) {
	srv, _ := startBridge(t, newFakeAdapter())
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerRunning)
	require.NoError(t, srv.Stop())
	assert.NoError(t, srv.Stop())
	assert.Nil(t, srv.Addr())
}
