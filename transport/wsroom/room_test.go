package wsroom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/auricle-ai/auricle-go/transport"
)

func wsServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectAndReceive(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping","ping_event":{"event_id":1}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	joined := make(chan string, 1)
	subscribed := make(chan string, 1)
	received := make(chan []byte, 1)

	r := New()
	err := r.Connect(context.Background(), transport.ConnectionDetails{
		ServerURL:        wsURL(srv),
		RoomName:         "conv-1",
		ParticipantToken: "tok",
	}, transport.RoomCallbacks{
		OnParticipantConnected: func(id string) { joined <- id },
		OnTrackSubscribed:      func(id string) { subscribed <- id },
		OnDataReceived:         func(data []byte, _ string) { received <- data },
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer r.Disconnect()

	for name, ch := range map[string]chan string{"join": joined, "subscription": subscribed} {
		select {
		case id := <-ch:
			if id != "agent" {
				t.Fatalf("%s identity = %q, want agent", name, id)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s never signaled", name)
		}
	}
	select {
	case data := <-received:
		if !strings.Contains(string(data), `"type":"ping"`) {
			t.Fatalf("received %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("frame never delivered")
	}
	if got := r.RemoteParticipantCount(); got != 1 {
		t.Fatalf("RemoteParticipantCount = %d, want 1", got)
	}
}

func TestPublishData(t *testing.T) {
	got := make(chan []byte, 1)
	srv := wsServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		got <- data
	})

	r := New()
	if err := r.Connect(context.Background(), transport.ConnectionDetails{ServerURL: wsURL(srv)}, transport.RoomCallbacks{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer r.Disconnect()

	if err := r.PublishData(context.Background(), []byte(`{"type":"pong","event_id":1}`)); err != nil {
		t.Fatalf("PublishData: %v", err)
	}
	select {
	case data := <-got:
		if !strings.Contains(string(data), `"type":"pong"`) {
			t.Fatalf("server received %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestServerCloseReportsDisconnect(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	dropped := make(chan error, 1)
	r := New()
	err := r.Connect(context.Background(), transport.ConnectionDetails{ServerURL: wsURL(srv)}, transport.RoomCallbacks{
		OnDisconnected: func(err error) { dropped <- err },
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	select {
	case err := <-dropped:
		if err == nil {
			t.Fatal("OnDisconnected fired with nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("OnDisconnected never fired")
	}
	if got := r.RemoteParticipantCount(); got != 0 {
		t.Fatalf("RemoteParticipantCount = %d, want 0 after drop", got)
	}
}

func TestPublishWithoutConnection(t *testing.T) {
	r := New()
	if err := r.PublishData(context.Background(), []byte("x")); err != transport.ErrRoomUnavailable {
		t.Fatalf("PublishData = %v, want ErrRoomUnavailable", err)
	}
}
