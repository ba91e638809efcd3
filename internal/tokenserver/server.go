// Package tokenserver is a development token service for the SDK. It
// mints short-lived LiveKit room tokens so example clients can join a
// conversation without standing up real account infrastructure.
package tokenserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/auricle-ai/auricle-go/observability"
)

// Config holds the credentials the server signs tokens with.
type Config struct {
	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	TokenTTL         time.Duration

	// APIKey, when set, is required as a bearer token on every token
	// request.
	APIKey string

	Logger *slog.Logger
}

type Server struct {
	cfg Config
}

func New(cfg Config) (*Server, error) {
	if cfg.LiveKitAPIKey == "" || cfg.LiveKitAPISecret == "" {
		return nil, fmt.Errorf("tokenserver: LiveKit API key and secret are required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, req)
	})
	r.Get("/v1/conversation/token", s.handleToken)
	return r
}

type videoGrant struct {
	Room           string `json:"room,omitempty"`
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	CanPublish     bool   `json:"canPublish,omitempty"`
	CanSubscribe   bool   `json:"canSubscribe,omitempty"`
	CanPublishData bool   `json:"canPublishData,omitempty"`
}

type roomClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video videoGrant `json:"video"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.cfg.APIKey != "" {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got != s.cfg.APIKey {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
	}

	agentID := strings.TrimSpace(r.URL.Query().Get("agent_id"))
	if agentID == "" {
		http.Error(w, "agent_id is required", http.StatusBadRequest)
		return
	}
	participant := strings.TrimSpace(r.URL.Query().Get("participant_name"))
	if participant == "" {
		participant = "user"
	}

	roomName := fmt.Sprintf("conv-%s-%s", agentID, uuid.NewString()[:8])
	identity := fmt.Sprintf("%s-%s", participant, uuid.NewString()[:8])

	signed, err := s.mintToken(roomName, identity, participant)
	if err != nil {
		s.cfg.Logger.Error("token mint failed", "err", err)
		http.Error(w, "token mint failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"server_url":        s.cfg.LiveKitURL,
		"room_name":         roomName,
		"participant_name":  identity,
		"participant_token": signed,
	})
}

func (s *Server) mintToken(room, identity, name string) (string, error) {
	now := time.Now()
	claims := roomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.LiveKitAPIKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
		Name: name,
		Video: videoGrant{
			Room:           room,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.LiveKitAPISecret))
}
