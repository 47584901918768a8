package service

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/protocol"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/recording"
)

// maxConsecutiveOverflow is how many back-to-back queue overflows a
// listener tolerates before the hub disconnects it as a slow consumer.
const maxConsecutiveOverflow = 8

// Hub is the per-session fan-out engine: it takes binary chunks from the
// one broadcaster peer and forwards them to the recording sink and every
// attached listener peer, with bounded per-listener buffering and
// broadcaster backpressure signalling. One Hub exists per live session, so
// the hot fan-out path never needs a session lookup.
type Hub struct {
	mu sync.Mutex

	broadcaster *Peer
	listeners   map[*Peer]struct{}

	initSegment         []byte
	initSegmentReceived bool

	recording *recording.Sink
	draining  bool

	log *zap.Logger

	maxListeners int

	slowConsumer func(p *Peer) // invoked to disconnect a peer outside the hub's own lock
}

func newHub(rec *recording.Sink, maxListeners int, log *zap.Logger) *Hub {
	return &Hub{
		listeners:    make(map[*Peer]struct{}),
		recording:    rec,
		maxListeners: maxListeners,
		log:          log,
	}
}

// ListenerCount returns the current attached-listener count.
func (h *Hub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// capacityReached reports whether the listener set is already at the cap,
// used for a pre-upgrade fast-path rejection before the socket handshake
// completes. attachListener re-checks under lock on the admitting path,
// which remains the authoritative check under concurrency.
func (h *Hub) capacityReached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners) >= h.maxListeners
}

// attachBroadcaster binds the broadcaster slot. Fails if already occupied.
func (h *Hub) attachBroadcaster(p *Peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.broadcaster != nil {
		return false
	}
	h.broadcaster = p
	return true
}

// detachBroadcaster clears the broadcaster slot if it currently holds p.
func (h *Hub) detachBroadcaster(p *Peer) {
	h.mu.Lock()
	if h.broadcaster == p {
		h.broadcaster = nil
	}
	h.mu.Unlock()
	p.Close()
}

// attachListener admits a listener if capacity allows and bootstraps it
// with broadcast-started/the cached init segment before the peer becomes
// visible to forward(), so a chunk arriving from the broadcaster's
// read-pump goroutine at the same moment can never be delivered ahead of
// the peer's own bootstrap frames on its single outbound queue. Returns
// false if at capacity.
func (h *Hub) attachListener(p *Peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.listeners) >= h.maxListeners {
		return false
	}
	if h.broadcaster != nil {
		h.sendJSON(p, protocol.NewBroadcastStarted())
	}
	if h.initSegmentReceived {
		h.sendInitSegment(p, h.initSegment)
	}
	h.listeners[p] = struct{}{}
	return true
}

// detachListener removes a listener from the fan-out set. Idempotent.
func (h *Hub) detachListener(p *Peer) {
	h.mu.Lock()
	delete(h.listeners, p)
	h.mu.Unlock()
	p.Close()
}

// announceBroadcastStarted notifies every currently attached listener that
// the broadcaster has attached. Called once, at attach time.
func (h *Hub) announceBroadcastStarted() {
	h.mu.Lock()
	peers := h.snapshotListeners()
	h.mu.Unlock()
	for _, p := range peers {
		h.sendJSON(p, protocol.NewBroadcastStarted())
	}
}

func (h *Hub) snapshotListeners() []*Peer {
	peers := make([]*Peer, 0, len(h.listeners))
	for p := range h.listeners {
		peers = append(peers, p)
	}
	return peers
}

// forward is the hot path: one binary chunk from the broadcaster, cached as
// the init segment if it is the first, appended to the recording, and
// fanned out to every listener without blocking on any single slow one. A
// listener attached before any chunk ever arrived has no cached init
// segment to bootstrap with, so when this is that first chunk every
// currently attached listener gets the init-segment announcement here,
// immediately ahead of the chunk itself.
func (h *Hub) forward(data []byte) {
	h.mu.Lock()
	isFirstChunk := !h.initSegmentReceived
	if isFirstChunk {
		h.initSegmentReceived = true
		initCopy := make([]byte, len(data))
		copy(initCopy, data)
		h.initSegment = initCopy
	}
	peers := h.snapshotListeners()
	broadcaster := h.broadcaster
	h.mu.Unlock()

	for _, p := range peers {
		if isFirstChunk {
			h.sendJSON(p, protocol.NewInitSegmentAnnouncement(len(data)))
		}
		h.deliverChunk(p, data)
	}

	if h.recording != nil {
		accepted := h.recording.Write(data)
		h.mu.Lock()
		wasDraining := h.draining
		if !accepted {
			h.draining = true
		}
		h.mu.Unlock()
		if !accepted && !wasDraining && broadcaster != nil {
			h.sendJSON(broadcaster, protocol.NewBackpressure())
			h.recording.OnDrain(func() {
				h.mu.Lock()
				h.draining = false
				bc := h.broadcaster
				h.mu.Unlock()
				if bc != nil {
					h.sendJSON(bc, protocol.NewDrain())
				}
			})
		}
	}
}

// deliverChunk enqueues a binary frame to one listener, applying the
// overflow policy and disconnecting chronically slow consumers.
func (h *Hub) deliverChunk(p *Peer, data []byte) {
	overflowed := p.enqueue(websocket.BinaryMessage, data)
	if overflowed {
		p.overflowStreak++
		if p.overflowStreak >= maxConsecutiveOverflow {
			h.detachListener(p)
			if h.slowConsumer != nil {
				h.slowConsumer(p)
			}
		}
		return
	}
	p.overflowStreak = 0
}

// sendInitSegment delivers the {type:"init-segment"} announcement followed
// immediately by the binary init segment, before any live chunk.
func (h *Hub) sendInitSegment(p *Peer, seg []byte) {
	h.sendJSON(p, protocol.NewInitSegmentAnnouncement(len(seg)))
	p.enqueue(websocket.BinaryMessage, seg)
}

func (h *Hub) sendJSON(p *Peer, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("relay: marshal failed", zap.Error(err))
		return
	}
	p.enqueue(websocket.TextMessage, raw)
}

// broadcastListenerCount notifies the broadcaster of the current listener
// count. Called after any listener attach or detach.
func (h *Hub) broadcastListenerCount() {
	h.mu.Lock()
	bc := h.broadcaster
	count := len(h.listeners)
	h.mu.Unlock()
	if bc != nil {
		h.sendJSON(bc, protocol.NewListenerCount(count))
	}
}
