package tokenserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	s, err := New(Config{
		LiveKitURL:       "ws://localhost:7880",
		LiveKitAPIKey:    "lk-key",
		LiveKitAPISecret: "lk-secret",
		TokenTTL:         5 * time.Minute,
		APIKey:           apiKey,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenEndpointMintsJoinableToken(t *testing.T) {
	srv := newTestServer(t, "")

	res, err := http.Get(srv.URL + "/v1/conversation/token?agent_id=agent-1&participant_name=sam")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var payload struct {
		ServerURL        string `json:"server_url"`
		RoomName         string `json:"room_name"`
		ParticipantName  string `json:"participant_name"`
		ParticipantToken string `json:"participant_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ServerURL != "ws://localhost:7880" {
		t.Fatalf("server_url = %q", payload.ServerURL)
	}
	if !strings.HasPrefix(payload.RoomName, "conv-agent-1-") {
		t.Fatalf("room_name = %q", payload.RoomName)
	}

	var claims roomClaims
	_, err = jwt.ParseWithClaims(payload.ParticipantToken, &claims, func(*jwt.Token) (any, error) {
		return []byte("lk-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Issuer != "lk-key" {
		t.Fatalf("issuer = %q, want lk-key", claims.Issuer)
	}
	if claims.Video.Room != payload.RoomName || !claims.Video.RoomJoin {
		t.Fatalf("video grant = %+v, want join grant for %q", claims.Video, payload.RoomName)
	}
	if !claims.Video.CanPublishData {
		t.Fatal("video grant missing canPublishData")
	}
}

func TestTokenEndpointRequiresAgentID(t *testing.T) {
	srv := newTestServer(t, "")

	res, err := http.Get(srv.URL + "/v1/conversation/token")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestTokenEndpointEnforcesAPIKey(t *testing.T) {
	srv := newTestServer(t, "sk-test")

	res, err := http.Get(srv.URL + "/v1/conversation/token?agent_id=agent-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", res.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/conversation/token?agent_id=agent-1", nil)
	req.Header.Set("Authorization", "Bearer sk-test")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with key: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status with key = %d, want 200", res.StatusCode)
	}
}
