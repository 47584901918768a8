package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds AudioBroadcaster's environment-derived configuration.
type Config struct {
	AppEnv string // APP_ENV, selects zap.NewDevelopment vs NewProduction

	Port     string // PORT
	Hostname string // HOSTNAME

	SessionTTL time.Duration // SESSION_TTL_MS

	RecordingsDir string // RECORDINGS_DIR

	MaxListenersPerSession int // MAX_LISTENERS_PER_SESSION

	BroadcasterIdleTimeout time.Duration // BROADCASTER_IDLE_TIMEOUT_MS
}

// Load loads config from the environment, with a .env file loaded first if
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ttlMS, _ := strconv.Atoi(getEnv("SESSION_TTL_MS", "900000"))
	maxListeners, _ := strconv.Atoi(getEnv("MAX_LISTENERS_PER_SESSION", "200"))
	idleMS, _ := strconv.Atoi(getEnv("BROADCASTER_IDLE_TIMEOUT_MS", "30000"))

	cfg := &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),
		Port:                   getEnv("PORT", "3000"),
		Hostname:               getEnv("HOSTNAME", "localhost"),
		SessionTTL:             time.Duration(ttlMS) * time.Millisecond,
		RecordingsDir:          getEnv("RECORDINGS_DIR", "./recordings"),
		MaxListenersPerSession: maxListeners,
		BroadcasterIdleTimeout: time.Duration(idleMS) * time.Millisecond,
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
