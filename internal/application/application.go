package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/nobledeveloper01/AudioBroadcaster/internal/config"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/handler"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/router"
	"github.com/nobledeveloper01/AudioBroadcaster/internal/service"
)

// API is the HTTP + WebSocket relay application.
type API struct {
	cfg   *config.Config
	srv   *http.Server
	log   *zap.Logger
	store *service.SessionStore
}

// NewAPI builds the application from an already loaded config: creates the
// recordings directory, and wires the session store, handlers, and router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := os.MkdirAll(cfg.RecordingsDir, 0o755); err != nil {
		return nil, fmt.Errorf("recordings dir: %w", err)
	}

	logger, err := buildLogger(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	store := service.NewSessionStore(cfg.RecordingsDir, cfg.MaxListenersPerSession, cfg.SessionTTL, logger)

	sessionHandler := handler.NewSessionHandler(store, "")
	relayWS := handler.NewRelayWSHandler(store, cfg.BroadcasterIdleTimeout, logger)
	recordingHandler := handler.NewRecordingHandler(cfg.RecordingsDir)
	health := handler.NewHealthHandler()

	r := router.New(sessionHandler, relayWS, recordingHandler, health, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, log: logger, store: store}, nil
}

func buildLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Run starts the HTTP server and blocks until ctx is cancelled, then tears
// down every live session and shuts the server down gracefully.
func (a *API) Run(ctx context.Context) error {
	defer a.log.Sync()

	host := a.cfg.Hostname
	base := "http://" + host + ":" + a.cfg.Port
	log.Printf("HTTP server listening on %s", a.srv.Addr)
	log.Printf("  Health:    %s/health", base)
	log.Printf("  Ready:     %s/ready", base)
	log.Printf("  Session:   %s/api/session/create", base)
	log.Printf("  Relay:     ws://%s:%s/?sid=&role=&t=", host, a.cfg.Port)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	a.store.TeardownAll("shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
