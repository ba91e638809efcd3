// Package wsroom implements transport.Room over a plain websocket. It
// is a fallback for environments without WebRTC connectivity: events
// travel as text frames, there is no audio capture, and the agent is
// modeled as a single remote peer that "joins" when the socket opens.
package wsroom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/auricle-ai/auricle-go/transport"
)

// Room is a transport.Room backed by one websocket connection.
type Room struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	callbacks transport.RoomCallbacks

	writeMu   sync.Mutex
	closeOnce *sync.Once
}

func New() *Room {
	return &Room{closeOnce: &sync.Once{}}
}

func (r *Room) Connect(ctx context.Context, details transport.ConnectionDetails, callbacks transport.RoomCallbacks) error {
	u, err := url.Parse(strings.TrimRight(details.ServerURL, "/"))
	if err != nil {
		return fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	if details.RoomName != "" {
		q.Set("room", details.RoomName)
	}
	u.RawQuery = q.Encode()

	headers := http.Header{}
	if details.ParticipantToken != "" {
		headers.Set("Authorization", "Bearer "+details.ParticipantToken)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return fmt.Errorf("dial room websocket: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.callbacks = callbacks
	r.closeOnce = &sync.Once{}
	r.mu.Unlock()

	go r.readLoop(conn, callbacks)
	if callbacks.OnParticipantConnected != nil {
		callbacks.OnParticipantConnected("agent")
	}
	return nil
}

func (r *Room) readLoop(conn *websocket.Conn, callbacks transport.RoomCallbacks) {
	firstFrame := true
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.dropped(conn, err)
			return
		}
		if firstFrame {
			firstFrame = false
			// The first frame proves the agent side is live, which is
			// the closest thing this transport has to a track.
			if callbacks.OnTrackSubscribed != nil {
				callbacks.OnTrackSubscribed("agent")
			}
		}
		if callbacks.OnDataReceived != nil {
			callbacks.OnDataReceived(data, "agent")
		}
	}
}

func (r *Room) dropped(conn *websocket.Conn, err error) {
	r.mu.Lock()
	active := r.conn == conn
	once := r.closeOnce
	callbacks := r.callbacks
	if active {
		r.conn = nil
	}
	r.mu.Unlock()
	if !active {
		return
	}
	once.Do(func() {
		_ = conn.Close()
		if callbacks.OnDisconnected != nil {
			callbacks.OnDisconnected(err)
		}
	})
}

func (r *Room) Disconnect() error {
	r.mu.Lock()
	conn := r.conn
	once := r.closeOnce
	r.conn = nil
	r.mu.Unlock()
	if conn == nil {
		return nil
	}
	var retErr error
	once.Do(func() {
		retErr = conn.Close()
	})
	return retErr
}

func (r *Room) PublishData(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return transport.ErrRoomUnavailable
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// SetMicrophoneEnabled is a no-op: this transport is text-only.
func (r *Room) SetMicrophoneEnabled(ctx context.Context, _ bool) error {
	return ctx.Err()
}

func (r *Room) RemoteParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return 1
	}
	return 0
}
