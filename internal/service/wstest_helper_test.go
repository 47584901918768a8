package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// newConnPair starts a local WebSocket server and dials it, returning the
// server-side connection (what a Peer wraps) and the client-side connection
// (what a test uses to observe what the peer receives).
func newConnPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	serverCh := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverCh <- c
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	sc := <-serverCh
	t.Cleanup(func() { _ = sc.Close() })
	return sc, c
}

func newPeerPair(t *testing.T, role Role) (*Peer, *websocket.Conn) {
	t.Helper()
	server, client := newConnPair(t)
	return newPeer(role, server), client
}
