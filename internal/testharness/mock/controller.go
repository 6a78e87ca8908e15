package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// rxQueueSize bounds frames waiting for Receive; further frames are dropped
// the way a saturated adapter drops them.
const rxQueueSize = 256

// maxHops bounds the frames one transmission may trigger on the bus.
const maxHops = 64

// Controller is a simulated CEC bus seen from the adapter under test. It
// implements transport.Transport: frames sent through it are delivered to
// the attached devices synchronously, and everything the devices send to
// the adapter (or broadcast) is queued for Receive.
type Controller struct {
	// Local is the logical address the adapter holds.
	Local cec.LogicalAddress

	// PhysAddr is the adapter's physical address.
	PhysAddr cec.PhysicalAddress

	// Handlers are callbacks for bus traffic.
	Handlers ControllerHandlers

	devices *xsync.MapOf[cec.LogicalAddress, *Device]
	rx      chan cec.Frame

	mu     sync.Mutex
	sent   []cec.Frame
	closed bool
	done   chan struct{}
}

// ControllerHandlers holds callbacks for bus traffic.
type ControllerHandlers struct {
	// OnFrame is called for every frame put on the bus, including the
	// adapter's own.
	OnFrame func(f cec.Frame)

	// OnDropped is called when the receive queue is full.
	OnDropped func(f cec.Frame)
}

// NewController creates an empty bus with the adapter at local.
func NewController(local cec.LogicalAddress, pa cec.PhysicalAddress) *Controller {
	return &Controller{
		Local:    local,
		PhysAddr: pa,
		devices:  xsync.NewMapOf[cec.LogicalAddress, *Device](),
		rx:       make(chan cec.Frame, rxQueueSize),
		done:     make(chan struct{}),
	}
}

// AddDevice attaches d to the bus.
func (c *Controller) AddDevice(d *Device) error {
	if d.Address == cec.AddrBroadcast || d.Address == c.Local {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, d.Address)
	}
	if _, loaded := c.devices.LoadOrStore(d.Address, d); loaded {
		return fmt.Errorf("%w: %s", ErrAddressInUse, d.Address)
	}
	return nil
}

// RemoveDevice detaches the device at la.
func (c *Controller) RemoveDevice(la cec.LogicalAddress) {
	c.devices.Delete(la)
}

// Device returns the device at la, or nil.
func (c *Controller) Device(la cec.LogicalAddress) *Device {
	d, _ := c.devices.Load(la)
	return d
}

// Sent returns a copy of every frame the adapter transmitted.
func (c *Controller) Sent() []cec.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cec.Frame(nil), c.sent...)
}

// Send implements transport.Transport.
func (c *Controller) Send(ctx context.Context, f cec.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	c.sent = append(c.sent, f)
	c.mu.Unlock()

	if !f.IsBroadcast() {
		if _, ok := c.devices.Load(f.Destination); !ok {
			c.notify(f)
			return fmt.Errorf("%s: %w", f.Destination, transport.ErrNoAck)
		}
	}
	if f.Poll {
		c.notify(f)
		return nil
	}
	c.dispatch(f)
	return nil
}

// dispatch delivers f and everything it triggers, breadth first.
func (c *Controller) dispatch(f cec.Frame) {
	queue := []cec.Frame{f}
	for hops := 0; len(queue) > 0 && hops < maxHops; hops++ {
		g := queue[0]
		queue = queue[1:]
		c.notify(g)

		if g.Initiator != c.Local && (g.IsBroadcast() || g.Destination == c.Local) {
			c.enqueue(g)
		}
		c.devices.Range(func(la cec.LogicalAddress, d *Device) bool {
			if la == g.Initiator {
				return true
			}
			if g.IsBroadcast() || g.Destination == la {
				queue = append(queue, d.Handle(g)...)
			}
			return true
		})
	}
}

func (c *Controller) notify(f cec.Frame) {
	if c.Handlers.OnFrame != nil {
		c.Handlers.OnFrame(f)
	}
}

func (c *Controller) enqueue(f cec.Frame) {
	select {
	case c.rx <- f:
	default:
		if c.Handlers.OnDropped != nil {
			c.Handlers.OnDropped(f)
		}
	}
}

// Inject puts a frame on the bus as if a device had sent it. The frame is
// delivered to the adapter and to every other device it addresses.
func (c *Controller) Inject(f cec.Frame) {
	c.dispatch(f)
}

// Receive implements transport.Transport.
func (c *Controller) Receive(ctx context.Context) (cec.Frame, error) {
	select {
	case f := <-c.rx:
		return f, nil
	case <-c.done:
		return cec.Frame{}, transport.ErrClosed
	case <-ctx.Done():
		return cec.Frame{}, ctx.Err()
	}
}

// LogicalAddresses implements transport.Transport.
func (c *Controller) LogicalAddresses(ctx context.Context) (cec.AddressMask, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, transport.ErrClosed
	}
	return c.Local.Bit(), nil
}

// Close implements transport.Transport.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

var _ transport.Transport = (*Controller)(nil)
