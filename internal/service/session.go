package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/errs"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/protocol"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/recording"
)

// Session is the aggregate state for one live broadcast: id, secret token,
// expiry, broadcaster/listener attachment (delegated to its Hub), the
// recording sink, and the one-shot teardown flag.
type Session struct {
	ID        string
	Token     string
	CreatedAt time.Time
	ExpireAt  time.Time

	RecordingPath string

	hub       *Hub
	recording *recording.Sink
	lifecycle *LifecycleController

	mu          sync.Mutex
	active      bool
	expiryTimer *time.Timer

	log *zap.Logger
}

// AttachBroadcaster binds the broadcaster slot. Succeeds only if the slot is
// empty and the session is active.
func (s *Session) AttachBroadcaster(conn *websocket.Conn) (*Peer, error) {
	if !s.IsActive() {
		return nil, errs.ErrSessionNotLive
	}
	p := newPeer(RoleBroadcaster, conn)
	if !s.hub.attachBroadcaster(p) {
		return nil, errs.ErrBroadcasterAlreadyPresent
	}
	s.hub.announceBroadcastStarted()
	return p, nil
}

// DetachBroadcaster clears the broadcaster slot if it currently holds p.
func (s *Session) DetachBroadcaster(p *Peer) {
	s.hub.detachBroadcaster(p)
}

// AttachListener admits a listener. Succeeds if active and capacity allows.
// The admission confirmation {type:"ok"} is queued first, so it precedes
// the broadcast-started/init-segment frames the Hub may queue on attach.
func (s *Session) AttachListener(conn *websocket.Conn) (*Peer, error) {
	if !s.IsActive() {
		return nil, errs.ErrSessionNotLive
	}
	p := newPeer(RoleListener, conn)
	if raw, err := json.Marshal(protocol.NewOK(s.ID)); err == nil {
		p.enqueue(websocket.TextMessage, raw)
	}
	if !s.hub.attachListener(p) {
		return nil, errs.ErrCapacityExceeded
	}
	s.hub.broadcastListenerCount()
	return p, nil
}

// DetachListener removes a listener from the fan-out set.
func (s *Session) DetachListener(p *Peer) {
	s.hub.detachListener(p)
	s.hub.broadcastListenerCount()
}

// Forward is the entry point for a binary frame from the broadcaster; it
// delegates to the Hub and is a no-op once teardown has begun.
func (s *Session) Forward(data []byte) {
	if !s.IsActive() {
		return
	}
	s.hub.forward(data)
}

// ListenerCount returns the number of currently attached listeners.
func (s *Session) ListenerCount() int {
	return s.hub.ListenerCount()
}

// ListenerCapacityReached reports whether the listener set is already at
// MAX_LISTENERS, for the UpgradeGate's pre-upgrade rejection.
func (s *Session) ListenerCapacityReached() bool {
	return s.hub.capacityReached()
}

// IsActive reports whether the session still admits attaches and forwards.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Teardown runs the one-shot teardown procedure for the given reason.
func (s *Session) Teardown(reason string) {
	s.lifecycle.teardown(s, reason)
}
