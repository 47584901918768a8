package model

import "time"

// CreateSessionResponse is the response for POST /api/session/create.
type CreateSessionResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ListenURL string    `json:"listenUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StopSessionResponse is the response for POST /api/session/:id/stop.
type StopSessionResponse struct {
	OK        bool   `json:"ok"`
	Recording string `json:"recording"`
}
