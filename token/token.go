// Package token resolves room connection details from a token service.
// The service authenticates the caller and returns the room URL plus a
// short-lived participant token scoped to one conversation.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auricle-ai/auricle-go/internal/reliability"
	"github.com/auricle-ai/auricle-go/transport"
)

const (
	maxAttempts = 3
	backoffBase = 100 * time.Millisecond
	backoffCap  = time.Second
)

// AuthenticationError is returned when the token service rejects the
// caller's credentials.
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("token service rejected credentials (status %d)", e.StatusCode)
}

// StatusError is returned for any other non-2xx token service response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("token service status %d: %s", e.StatusCode, e.Body)
}

// MalformedResponseError is returned when the token service answered 2xx
// but the body is not a usable token payload.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed token response: %s", e.Reason)
}

// Client fetches conversation tokens over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient builds a token client for baseURL. apiKey may be empty for
// public agents.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type tokenResponse struct {
	ServerURL        string `json:"server_url"`
	RoomName         string `json:"room_name"`
	ParticipantName  string `json:"participant_name"`
	ParticipantToken string `json:"participant_token"`
}

// FetchConnectionDetails asks the token service for room credentials
// scoped to agentID. Transient failures are retried with capped
// backoff; credential rejections are not.
func (c *Client) FetchConnectionDetails(ctx context.Context, agentID, participantName string) (transport.ConnectionDetails, error) {
	endpoint := fmt.Sprintf("%s/v1/conversation/token?agent_id=%s", c.baseURL, url.QueryEscape(agentID))
	if participantName != "" {
		endpoint += "&participant_name=" + url.QueryEscape(participantName)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(reliability.ExponentialBackoff(attempt-1, backoffBase, backoffCap)):
			case <-ctx.Done():
				return transport.ConnectionDetails{}, ctx.Err()
			}
		}
		details, retryable, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			return details, nil
		}
		lastErr = err
		if !retryable {
			return transport.ConnectionDetails{}, err
		}
	}
	return transport.ConnectionDetails{}, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) (transport.ConnectionDetails, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return transport.ConnectionDetails{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return transport.ConnectionDetails{}, true, fmt.Errorf("request token: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return transport.ConnectionDetails{}, false, &AuthenticationError{StatusCode: res.StatusCode, Body: string(body)}
	case res.StatusCode < 200 || res.StatusCode >= 300:
		err := &StatusError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
		return transport.ConnectionDetails{}, reliability.IsRetryableHTTPStatus(res.StatusCode), err
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return transport.ConnectionDetails{}, false, &MalformedResponseError{Reason: err.Error()}
	}
	if payload.ServerURL == "" || payload.ParticipantToken == "" {
		return transport.ConnectionDetails{}, false, &MalformedResponseError{Reason: "missing server_url or participant_token"}
	}

	return transport.ConnectionDetails{
		ServerURL:        payload.ServerURL,
		RoomName:         payload.RoomName,
		ParticipantName:  payload.ParticipantName,
		ParticipantToken: payload.ParticipantToken,
	}, false, nil
}
