package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/errs"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/model"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/service"
)

// SessionHandler implements POST /api/session/create and
// POST /api/session/:id/stop.
type SessionHandler struct {
	store  *service.SessionStore
	listen *service.ListenURLBuilder
}

// NewSessionHandler builds the session HTTP handler.
func NewSessionHandler(store *service.SessionStore, listenBaseURL string) *SessionHandler {
	return &SessionHandler{
		store:  store,
		listen: &service.ListenURLBuilder{BaseURL: listenBaseURL},
	}
}

// CreateSession handles POST /api/session/create.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sess, err := h.store.Create()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusOK, model.CreateSessionResponse{
		SessionID: sess.ID,
		Token:     sess.Token,
		ListenURL: h.listen.ListenURL(sess.ID, sess.Token),
		ExpiresAt: sess.ExpireAt,
	})
}

// StopSession handles POST /api/session/:id/stop.
func (h *SessionHandler) StopSession(c *gin.Context) {
	id := c.Param("id")
	sess, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrSessionNotFound.Error()})
		return
	}
	sess.Teardown("stopped-by-broadcaster")
	c.JSON(http.StatusOK, model.StopSessionResponse{
		OK:        true,
		Recording: sess.RecordingPath,
	})
}
