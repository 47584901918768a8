package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/protocol"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	dir := t.TempDir()
	return NewSessionStore(dir, 10, time.Hour, nopLogger())
}

func TestSessionStoreCreateAssignsIDAndToken(t *testing.T) {
	store := newTestStore(t)
	s, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(s.ID) != 8 {
		t.Fatalf("expected 8-char session id, got %q", s.ID)
	}
	if len(s.Token) != 32 {
		t.Fatalf("expected 32-char token, got %q", s.Token)
	}
	if !s.IsActive() {
		t.Fatal("expected freshly created session to be active")
	}

	got, ok := store.Get(s.ID)
	if !ok || got != s {
		t.Fatal("expected Get to return the created session")
	}
}

func TestSessionStoreCreateOpensRecordingFile(t *testing.T) {
	store := newTestStore(t)
	s, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	path := filepath.Join(store.recordingsDir, s.RecordingPath)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected recording file to exist: %v", err)
	}
}

func TestSessionTeardownRemovesFromStoreAndIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	s, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s.Teardown("stopped-by-broadcaster")
	if s.IsActive() {
		t.Fatal("expected session inactive after teardown")
	}
	if _, ok := store.Get(s.ID); ok {
		t.Fatal("expected session removed from store after teardown")
	}

	// A second teardown trigger must not panic or double-run the procedure.
	s.Teardown("expired")
}

func TestSessionTeardownNotifiesListenersAndClosesBroadcaster(t *testing.T) {
	store := newTestStore(t)
	s, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bc, _ := newPeerPair(t, RoleBroadcaster)
	s.hub.attachBroadcaster(bc)
	listener, _ := newPeerPair(t, RoleListener)
	s.hub.attachListener(listener)
	drainText(t, listener, &protocol.BroadcastStarted{})

	s.Teardown("stopped-by-broadcaster")

	// The broadcaster gets no session-ended frame: it's closed outright, with
	// no message queued on its Send channel.
	select {
	case f := <-bc.Send:
		t.Fatalf("expected no frame queued for broadcaster, got %+v", f)
	default:
	}
	select {
	case <-bc.Done():
	case <-time.After(time.Second):
		t.Fatal("expected broadcaster peer to be closed")
	}

	var ended protocol.SessionEnded
	drainText(t, listener, &ended)
	if ended.Type != protocol.TypeSessionEnded || ended.Reason != "stopped-by-broadcaster" {
		t.Fatalf("unexpected listener session-ended frame: %+v", ended)
	}
}

func TestSessionForwardIsNoOpAfterTeardown(t *testing.T) {
	store := newTestStore(t)
	s, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Teardown("expired")
	// Forward on a torn-down session must not panic even though the hub's
	// broadcaster/listener maps have already been cleared.
	s.Forward([]byte("late chunk"))
}

func TestSessionStoreTeardownAllClearsEverySession(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := store.Create(); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	store.TeardownAll("shutdown")

	store.mu.RLock()
	remaining := len(store.sessions)
	store.mu.RUnlock()
	if remaining != 0 {
		t.Fatalf("expected no sessions to remain after TeardownAll, got %d", remaining)
	}
}

func TestSessionListenerCapacityBoundary(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir, 1, time.Hour, nopLogger())
	s, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	l1, _ := newPeerPair(t, RoleListener)
	if !s.hub.attachListener(l1) {
		t.Fatal("expected first listener admitted under MAX_LISTENERS_PER_SESSION = 1")
	}
	if !s.ListenerCapacityReached() {
		t.Fatal("expected capacity reached at MAX_LISTENERS_PER_SESSION = 1")
	}

	l2, _ := newPeerPair(t, RoleListener)
	if s.hub.attachListener(l2) {
		t.Fatal("expected second listener rejected once at capacity")
	}
}

func TestSessionAttachListenerSendsOKBeforeBroadcastStarted(t *testing.T) {
	store := newTestStore(t)
	s, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	broadcasterConn, _ := newConnPair(t)
	if _, err := s.AttachBroadcaster(broadcasterConn); err != nil {
		t.Fatalf("attach broadcaster: %v", err)
	}

	listenerConn, _ := newConnPair(t)
	peer, err := s.AttachListener(listenerConn)
	if err != nil {
		t.Fatalf("attach listener: %v", err)
	}

	var ok protocol.OK
	drainText(t, peer, &ok)
	if ok.Type != protocol.TypeOK || ok.SessionID != s.ID {
		t.Fatalf("expected ok frame first, got %+v", ok)
	}

	var started protocol.BroadcastStarted
	drainText(t, peer, &started)
	if started.Type != protocol.TypeBroadcastStarted {
		t.Fatalf("expected broadcast-started second, got %+v", started)
	}
}
