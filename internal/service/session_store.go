package service

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/idgen"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/recording"
)

// SessionStore is the process-wide registry mapping session id to Session.
// All operations are safe under concurrent callers.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	recordingsDir string
	maxListeners  int
	sessionTTL    time.Duration

	log       *zap.Logger
	lifecycle *LifecycleController
}

// NewSessionStore builds an empty store bound to the given recordings
// directory, per-session listener cap, default TTL, and logger.
func NewSessionStore(recordingsDir string, maxListeners int, sessionTTL time.Duration, log *zap.Logger) *SessionStore {
	store := &SessionStore{
		sessions:      make(map[string]*Session),
		recordingsDir: recordingsDir,
		maxListeners:  maxListeners,
		sessionTTL:    sessionTTL,
		log:           log,
	}
	store.lifecycle = newLifecycleController(store, log)
	return store
}

// Create allocates a fresh id and token, opens the RecordingSink, schedules
// expiry, inserts the session, and returns it. Never returns an id
// collision against a currently-live session.
func (st *SessionStore) Create() (*Session, error) {
	id, err := st.freshID()
	if err != nil {
		return nil, fmt.Errorf("session store: generate id: %w", err)
	}
	token, err := idgen.Token()
	if err != nil {
		return nil, fmt.Errorf("session store: generate token: %w", err)
	}

	now := time.Now()
	createdAtTag := now.UnixMilli()
	fileName := fmt.Sprintf("broadcast-%s-%d.webm", id, createdAtTag)
	path := filepath.Join(st.recordingsDir, fileName)

	sink, err := recording.New(path, st.log)
	if err != nil {
		return nil, fmt.Errorf("session store: open recording sink: %w", err)
	}

	hub := newHub(sink, st.maxListeners, st.log)
	s := &Session{
		ID:            id,
		Token:         token,
		CreatedAt:     now,
		ExpireAt:      now.Add(st.sessionTTL),
		RecordingPath: fileName,
		hub:           hub,
		recording:     sink,
		lifecycle:     st.lifecycle,
		active:        true,
		log:           st.log,
	}
	hub.slowConsumer = func(p *Peer) {
		_ = p.Conn.Close()
	}

	s.expiryTimer = time.AfterFunc(st.sessionTTL, func() {
		s.Teardown("expired")
	})

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	st.log.Info("session created", zap.String("session_id", id), zap.Duration("ttl", st.sessionTTL))
	return s, nil
}

// freshID generates a session id, retrying on the vanishingly unlikely
// chance of a collision against a currently-live session.
func (st *SessionStore) freshID() (string, error) {
	for i := 0; i < 10; i++ {
		id, err := idgen.SessionID()
		if err != nil {
			return "", err
		}
		st.mu.RLock()
		_, exists := st.sessions[id]
		st.mu.RUnlock()
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("session store: could not allocate a unique id")
}

// Get looks up a session by id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// remove deletes the mapping for id. Idempotent.
func (st *SessionStore) remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// TeardownAll tears down every live session with the given reason, used on
// process shutdown.
func (st *SessionStore) TeardownAll(reason string) {
	st.mu.RLock()
	all := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		all = append(all, s)
	}
	st.mu.RUnlock()
	for _, s := range all {
		s.Teardown(reason)
	}
}
