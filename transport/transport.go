// Package transport carries conversation traffic over a real-time room.
// It defines the narrow Room surface the SDK needs, the readiness
// detector that decides when the remote agent can hear us, and the
// connection manager that serializes access to both.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrRoomUnavailable is returned when an operation needs a live
	// room connection and there is none.
	ErrRoomUnavailable = errors.New("transport: room unavailable")

	// ErrAgentTimeout is returned when the remote agent did not become
	// ready within the caller's deadline.
	ErrAgentTimeout = errors.New("transport: timed out waiting for agent")
)

// ConnectionDetails identifies the room a session should join.
type ConnectionDetails struct {
	ServerURL        string
	RoomName         string
	ParticipantName  string
	ParticipantToken string
}

// RoomCallbacks delivers room lifecycle and data events. Implementations
// may invoke them from transport-owned goroutines; handlers must not
// block.
type RoomCallbacks struct {
	OnParticipantConnected    func(identity string)
	OnParticipantDisconnected func(identity string)
	OnTrackSubscribed         func(participantIdentity string)
	OnDataReceived            func(data []byte, participantIdentity string)
	OnDisconnected            func(err error)
}

// Room is the transport surface the SDK depends on. livekitroom provides
// the production implementation; wsroom is a plain websocket fallback
// for environments without WebRTC connectivity.
type Room interface {
	Connect(ctx context.Context, details ConnectionDetails, callbacks RoomCallbacks) error
	Disconnect() error
	PublishData(ctx context.Context, payload []byte) error
	SetMicrophoneEnabled(ctx context.Context, enabled bool) error
	RemoteParticipantCount() int
}
