package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Conn is the gateway's view of one live websocket. The transport drains
// Outbound and stops when Done is closed.
type Conn struct {
	id   uuid.UUID
	send chan []byte

	state   atomic.Int32
	session atomic.Pointer[Session]

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConn creates a connection in StateConnecting whose outbound queue holds
// up to buffer frames.
func NewConn(parent context.Context, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Conn{
		id:     uuid.New(),
		send:   make(chan []byte, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Conn) ID() uuid.UUID { return c.id }

// Session returns the bound session, or nil before authentication succeeds.
func (c *Conn) Session() *Session { return c.session.Load() }

func (c *Conn) State() State { return State(c.state.Load()) }

// Outbound yields encoded frames in the order they were queued.
func (c *Conn) Outbound() <-chan []byte { return c.send }

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} { return c.ctx.Done() }

// Context is cancelled when the connection closes.
func (c *Conn) Context() context.Context { return c.ctx }

// transition moves from one state to another and reports whether it did.
func (c *Conn) transition(from, to State) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// close marks the connection closed and returns the state it left.
// Frames still queued are abandoned.
func (c *Conn) close() State {
	prev := State(c.state.Swap(int32(StateClosed)))
	c.closeOnce.Do(c.cancel)
	return prev
}

// trySend queues frame without blocking. It fails when the connection is
// closed or its queue is full.
func (c *Conn) trySend(frame []byte) bool {
	if c.State() == StateClosed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}
