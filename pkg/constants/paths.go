package constants

// HTTP route paths for the REST surface.
const (
	PathHealth = "/health"
	PathReady  = "/ready"

	PathSessionCreate = "/api/session/create"
	PathSessionStop   = "/api/session/:id/stop"
	PathRecording     = "/api/recording/:file"

	// PathRelay is the WebSocket endpoint; role, session id, and token are
	// query parameters, not path segments.
	PathRelay = "/"
)
