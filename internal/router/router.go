package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/handler"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/middleware"
	"github.com/nobledeveloper01/AudioBroadcaster/pkg/constants"
)

// New builds the HTTP + WebSocket router.
func New(
	sessionHandler *handler.SessionHandler,
	relayWS *handler.RelayWSHandler,
	recordingHandler *handler.RecordingHandler,
	health *handler.HealthHandler,
	log *zap.Logger,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(log))

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	r.POST(constants.PathSessionCreate, sessionHandler.CreateSession)
	r.POST(constants.PathSessionStop, sessionHandler.StopSession)
	r.GET(constants.PathRecording, recordingHandler.Download)

	r.GET(constants.PathRelay, relayWS.ServeWS)

	return r
}
