package auricle

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/auricle-ai/auricle-go/transport"
)

var (
	// ErrNotConnected is returned by commands that need an active
	// conversation when there is none.
	ErrNotConnected = errors.New("auricle: conversation not active")

	// ErrAlreadyActive is returned when a session is started on a
	// conversation that is already connecting or active.
	ErrAlreadyActive = errors.New("auricle: conversation already active")

	// ErrAgentTimeout reports that the remote agent never became ready
	// within the configured deadline.
	ErrAgentTimeout = transport.ErrAgentTimeout

	// ErrRoomUnavailable reports that the room connection is gone.
	ErrRoomUnavailable = transport.ErrRoomUnavailable

	// ErrFeedbackUnavailable is returned when feedback is sent with no
	// new agent response to attach it to.
	ErrFeedbackUnavailable = errors.New("auricle: no agent response to rate")

	// ErrConversationEnded reports that the conversation was ended by
	// the caller while startup was still in flight.
	ErrConversationEnded = errors.New("auricle: conversation ended")

	// ErrAgentDeparted reports that the agent left the room while the
	// conversation was active.
	ErrAgentDeparted = errors.New("auricle: agent left the room")
)

// ConnectionError wraps a room connection failure. LocalNetworkHint is
// set when the room URL points at a private address, where the usual
// culprit is missing local-network permission rather than the service
// being down.
type ConnectionError struct {
	Detail           string
	LocalNetworkHint bool
	Err              error
}

func (e *ConnectionError) Error() string {
	if e.LocalNetworkHint {
		return fmt.Sprintf("auricle: %s (is local network access allowed?)", e.Detail)
	}
	return "auricle: " + e.Detail
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MicrophoneError wraps a microphone permission or capture failure.
type MicrophoneError struct {
	Err error
}

func (e *MicrophoneError) Error() string {
	return "auricle: microphone unavailable: " + e.Err.Error()
}

func (e *MicrophoneError) Unwrap() error { return e.Err }

// StartupError reports which startup phase failed and carries the
// timings collected up to the failure.
type StartupError struct {
	Phase   StartupPhase
	Metrics StartupMetrics
	Err     error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("auricle: startup failed during %s: %v", e.Phase, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// StartupMetrics records how long each startup phase took. Durations are
// zero for phases that never ran.
type StartupMetrics struct {
	TokenResolution      time.Duration
	MicrophonePermission time.Duration
	RoomConnect          time.Duration
	AgentReadyWait       time.Duration
	PostReadyDelay       time.Duration
	InitHandshake        time.Duration
	Total                time.Duration
	InitAttempts         int

	// AgentReadyViaGraceTimeout is set when readiness came from the
	// subscription grace period elapsing rather than an audio track.
	AgentReadyViaGraceTimeout bool

	// AgentReadyTimedOut is set when the agent never became ready within
	// the configured deadline.
	AgentReadyTimedOut bool
}

// isLocalNetworkURL reports whether raw points at a private or loopback
// host, the case where a connect failure usually means a permission or
// firewall problem on the caller's side.
func isLocalNetworkURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" || strings.HasSuffix(host, ".local") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
