package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the auricle command-line
// tools. Library consumers configure the SDK through SessionConfig
// directly; this package only serves cmd/.
type Config struct {
	AgentID         string
	APIKey          string
	TokenServiceURL string
	ParticipantName string

	// Direct connection settings, used when the token service is
	// bypassed.
	ServerURL        string
	RoomName         string
	ParticipantToken string

	Transport         string
	AgentReadyTimeout time.Duration
	MetricsNamespace  string

	// Token server settings.
	BindAddr         string
	ShutdownTimeout  time.Duration
	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	TokenTTL         time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		AgentID:           envTrimmed("AURICLE_AGENT_ID"),
		APIKey:            envTrimmed("AURICLE_API_KEY"),
		TokenServiceURL:   envOrDefault("AURICLE_TOKEN_SERVICE_URL", "http://localhost:8080"),
		ParticipantName:   envOrDefault("AURICLE_PARTICIPANT_NAME", "user"),
		ServerURL:         envTrimmed("AURICLE_SERVER_URL"),
		RoomName:          envTrimmed("AURICLE_ROOM_NAME"),
		ParticipantToken:  envTrimmed("AURICLE_PARTICIPANT_TOKEN"),
		Transport:         envOrDefault("AURICLE_TRANSPORT", "livekit"),
		MetricsNamespace:  envOrDefault("AURICLE_METRICS_NAMESPACE", "auricle"),
		BindAddr:          envOrDefault("AURICLE_BIND_ADDR", ":8080"),
		LiveKitURL:        envOrDefault("LIVEKIT_URL", "ws://localhost:7880"),
		LiveKitAPIKey:     envTrimmed("LIVEKIT_API_KEY"),
		LiveKitAPISecret:  envTrimmed("LIVEKIT_API_SECRET"),
		AgentReadyTimeout: 10 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		TokenTTL:          15 * time.Minute,
	}

	var err error
	cfg.AgentReadyTimeout, err = durationFromEnv("AURICLE_AGENT_READY_TIMEOUT", cfg.AgentReadyTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("AURICLE_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenTTL, err = durationFromEnv("AURICLE_TOKEN_TTL", cfg.TokenTTL)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case "livekit", "websocket":
	default:
		return Config{}, fmt.Errorf("AURICLE_TRANSPORT must be livekit or websocket")
	}
	if cfg.AgentReadyTimeout < time.Second {
		return Config{}, fmt.Errorf("AURICLE_AGENT_READY_TIMEOUT must be at least 1s")
	}
	if cfg.TokenTTL < time.Minute {
		return Config{}, fmt.Errorf("AURICLE_TOKEN_TTL must be at least 1m")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}
