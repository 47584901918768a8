package service

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/protocol"
)

// LifecycleController coordinates session teardown: broadcaster disconnect,
// the stop API, expiry, or process shutdown all converge on the same
// idempotent procedure, guaranteeing listeners are notified, the recording
// is flushed, and the session is reclaimed from its store exactly once.
type LifecycleController struct {
	store *SessionStore
	log   *zap.Logger

	torn sync.Map // sessionID -> *sync.Once, guards per-session teardown
}

func newLifecycleController(store *SessionStore, log *zap.Logger) *LifecycleController {
	return &LifecycleController{store: store, log: log}
}

// teardown runs the teardown procedure exactly once per session no matter
// how many triggers fire concurrently.
func (lc *LifecycleController) teardown(s *Session, reason string) {
	onceVal, _ := lc.torn.LoadOrStore(s.ID, &sync.Once{})
	once := onceVal.(*sync.Once)
	once.Do(func() {
		lc.run(s, reason)
	})
}

func (lc *LifecycleController) run(s *Session, reason string) {
	// 1. Flip active so new attaches/forwards become no-ops.
	s.mu.Lock()
	s.active = false
	timer := s.expiryTimer
	s.mu.Unlock()

	// 2. Cancel the expiry timer.
	if timer != nil {
		timer.Stop()
	}

	// 3. Close the broadcaster socket if present. The broadcaster isn't
	// sent a frame: session-ended is a listener-only notification.
	s.hub.mu.Lock()
	broadcaster := s.hub.broadcaster
	s.hub.broadcaster = nil
	listeners := s.hub.snapshotListeners()
	s.hub.mu.Unlock()

	if broadcaster != nil {
		broadcaster.Close()
	}

	// 4. Notify and close every listener, then clear the set.
	for _, p := range listeners {
		lc.notifyAndClose(p, protocol.NewSessionEnded(reason))
	}
	s.hub.mu.Lock()
	s.hub.listeners = make(map[*Peer]struct{})
	s.hub.mu.Unlock()

	// 5. Close the recording sink (flushes file).
	if s.recording != nil {
		if err := s.recording.Close(); err != nil {
			lc.log.Warn("lifecycle: recording close failed", zap.String("session_id", s.ID), zap.Error(err))
		}
	}

	// 6. Remove from SessionStore.
	lc.store.remove(s.ID)

	lc.log.Info("session torn down", zap.String("session_id", s.ID), zap.String("reason", reason))
}

// notifyAndClose queues a final JSON message on the peer's own outbound
// queue and signals Close. The message is written by the peer's write-pump
// goroutine, never directly from here: gorilla/websocket forbids concurrent
// writers on one connection, and the write pump may be writing to this same
// conn at the moment teardown runs.
func (lc *LifecycleController) notifyAndClose(p *Peer, msg protocol.SessionEnded) {
	if raw, err := json.Marshal(msg); err == nil {
		p.enqueue(websocket.TextMessage, raw)
	}
	p.Close()
}
