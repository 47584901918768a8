package service

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Role distinguishes the single broadcaster socket from listener sockets.
type Role string

const (
	RoleBroadcaster Role = "broadcaster"
	RoleListener    Role = "listener"
)

// outboundQueueDepth bounds each listener's send buffer: roughly 4s of audio
// at a typical opus/webm chunking rate.
const outboundQueueDepth = 32

// Frame is a queued message awaiting delivery to a peer's socket, tagged
// with the gorilla/websocket message type (TextMessage or BinaryMessage).
type Frame struct {
	MessageType int
	Data        []byte
}

// Peer is one WebSocket connection attached to a Session, in either role.
type Peer struct {
	Role Role
	Conn *websocket.Conn

	// Send is the peer's outbound queue; the handler's write pump selects
	// on it alongside Done, since Send itself is never closed.
	Send chan Frame

	// overflowStreak counts consecutive queue-overflow events for a
	// listener within the current attach lifetime; it resets whenever a
	// send succeeds without overflow. Used to terminate chronically slow
	// consumers.
	overflowStreak int

	done     chan struct{}
	doneOnce sync.Once
}

func newPeer(role Role, conn *websocket.Conn) *Peer {
	return &Peer{
		Role: role,
		Conn: conn,
		Send: make(chan Frame, outboundQueueDepth),
		done: make(chan struct{}),
	}
}

// Done returns a channel closed once the peer has been detached, so the
// write pump can stop reading from Send without Send itself ever being
// closed (sends can otherwise race the hub's detach under concurrency).
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Close signals Done exactly once.
func (p *Peer) Close() {
	p.doneOnce.Do(func() { close(p.done) })
}

// enqueue delivers a frame to the peer's outbound queue. On overflow it
// drops the oldest queued frame and enqueues the new one, and reports
// whether this counts as an overflow, so the caller can track consecutive
// overflows and decide on slow-consumer disconnection.
func (p *Peer) enqueue(messageType int, data []byte) (overflowed bool) {
	frame := Frame{MessageType: messageType, Data: data}
	select {
	case p.Send <- frame:
		return false
	default:
	}
	// Queue full: drop oldest, enqueue newest.
	select {
	case <-p.Send:
	default:
	}
	select {
	case p.Send <- frame:
	default:
	}
	return true
}
