package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/errs"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/protocol"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/service"
)

// maxBinaryFrameBytes bounds a single inbound binary frame.
const maxBinaryFrameBytes = 10 << 20

// RelayWSHandler authenticates and admits incoming WebSocket upgrades,
// resolves role, enforces capacity, and binds the socket to a Session.
// Admission failures destroy the connection without an HTTP body — they are
// the sole admission control for the relay.
type RelayWSHandler struct {
	store    *service.SessionStore
	upgrader websocket.Upgrader
	log      *zap.Logger

	idleTimeout time.Duration
}

// NewRelayWSHandler builds the upgrade gate bound to a session store.
func NewRelayWSHandler(store *service.SessionStore, idleTimeout time.Duration, log *zap.Logger) *RelayWSHandler {
	return &RelayWSHandler{
		store:       store,
		idleTimeout: idleTimeout,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS runs the admission checklist against
// "ws(s)://host/?sid=<id>&role=<broadcaster|listener>[&t=<token>]", then
// hands the upgraded socket to the resolved Session.
func (h *RelayWSHandler) ServeWS(c *gin.Context) {
	sid := c.Query("sid")
	role := c.Query("role")
	token := c.Query("t")

	// 1. Missing sid or role, or an unrecognized role: destroy without
	// upgrading (see rejectUpgrade).
	if sid == "" || role == "" || (role != string(service.RoleBroadcaster) && role != string(service.RoleListener)) {
		h.log.Debug("upgrade rejected", zap.Error(errs.ErrMalformedUpgrade))
		rejectUpgrade(c)
		return
	}

	// 2. Session must exist and be active.
	sess, ok := h.store.Get(sid)
	if !ok || !sess.IsActive() {
		h.log.Debug("upgrade rejected", zap.String("sid", sid), zap.Error(errs.ErrSessionNotFound))
		rejectUpgrade(c)
		return
	}

	// 3. Listener must present the correct token.
	if role == string(service.RoleListener) && token != sess.Token {
		h.log.Debug("upgrade rejected", zap.String("sid", sid), zap.Error(errs.ErrBadToken))
		rejectUpgrade(c)
		return
	}

	// 4. Listener capacity is enforced here as a fast-path pre-check; the
	// Hub re-checks under lock on attach (authoritative under concurrency).
	if role == string(service.RoleListener) && sess.ListenerCapacityReached() {
		rejectUpgrade(c)
		return
	}

	// 5. Complete the upgrade and bind the socket to the session.
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxBinaryFrameBytes)

	if role == string(service.RoleBroadcaster) {
		h.serveBroadcaster(sess, conn)
		return
	}
	h.serveListener(sess, conn)
}

// rejectUpgrade destroys the client connection without writing any HTTP
// response: the socket is hijacked from the server and closed.
func rejectUpgrade(c *gin.Context) {
	conn, _, err := c.Writer.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}

func (h *RelayWSHandler) serveBroadcaster(sess *service.Session, conn *websocket.Conn) {
	peer, err := sess.AttachBroadcaster(conn)
	if err != nil {
		writeErrorAndClose(conn, err.Error())
		return
	}
	h.runPumps(sess, peer, conn, true)
}

func (h *RelayWSHandler) serveListener(sess *service.Session, conn *websocket.Conn) {
	peer, err := sess.AttachListener(conn)
	if err != nil {
		_ = conn.Close()
		return
	}
	h.runPumps(sess, peer, conn, false)
}

func (h *RelayWSHandler) runPumps(sess *service.Session, peer *service.Peer, conn *websocket.Conn, isBroadcaster bool) {
	go h.writePump(peer)
	h.readPump(sess, peer, conn, isBroadcaster)
}

// readPump is the broadcaster/listener socket read loop. A broadcaster idle
// for longer than idleTimeout is treated as disconnected.
func (h *RelayWSHandler) readPump(sess *service.Session, peer *service.Peer, conn *websocket.Conn, isBroadcaster bool) {
	defer func() {
		_ = conn.Close()
		if isBroadcaster {
			sess.DetachBroadcaster(peer)
			sess.Teardown("broadcaster-disconnected")
		} else {
			sess.DetachListener(peer)
		}
	}()

	if isBroadcaster && h.idleTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
		})
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if isBroadcaster && h.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
		}
		if mt != websocket.BinaryMessage {
			// Control frames from broadcaster/listener are optional JSON;
			// unknown types are ignored.
			continue
		}
		if isBroadcaster {
			sess.Forward(data)
		}
		// Listeners don't send media back in this relay.
	}
}

func (h *RelayWSHandler) writePump(p *service.Peer) {
	defer func() {
		_ = p.Conn.Close()
	}()
	for {
		select {
		case frame := <-p.Send:
			if err := p.Conn.WriteMessage(frame.MessageType, frame.Data); err != nil {
				return
			}
		case <-p.Done():
			// A final frame (e.g. session-ended) may have been queued right
			// before Close; drain it so it reaches the wire before the
			// socket closes instead of racing Done in the select above.
			for {
				select {
				case frame := <-p.Send:
					if err := p.Conn.WriteMessage(frame.MessageType, frame.Data); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func writeErrorAndClose(conn *websocket.Conn, message string) {
	if raw, err := json.Marshal(protocol.NewError(message)); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, raw)
	}
	_ = conn.Close()
}
