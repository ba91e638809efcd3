package transport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ManagerConfig tunes a Manager. Zero values get sane defaults.
type ManagerConfig struct {
	// SubscriptionGrace bounds the wait for an agent audio track after
	// the agent joins. Defaults to DefaultSubscriptionGrace.
	SubscriptionGrace time.Duration

	// OnData receives application payloads published by the agent.
	OnData func(payload []byte)

	// OnAgentLeft fires when the last remote participant leaves the
	// room.
	OnAgentLeft func()

	// OnDisconnected fires when the room drops out from under us.
	OnDisconnected func(err error)
}

type readyWaiter struct {
	id string
	ch chan error
}

// Manager is the connection facade over a Room. It owns the readiness
// detector, a set of waiters blocked on agent readiness, and the cached
// readiness outcome; waiters registered before resolution are released
// together, in registration order, and later callers observe the cached
// result without blocking.
type Manager struct {
	room     Room
	cfg      ManagerConfig
	detector *AgentReadyDetector

	mu            sync.Mutex
	connected     bool
	readyResolved bool
	readyErr      error
	readySource   ReadySource
	waiters       []readyWaiter
}

// NewManager wraps room with readiness tracking and publish guards.
func NewManager(room Room, cfg ManagerConfig) *Manager {
	m := &Manager{room: room, cfg: cfg}
	m.detector = NewAgentReadyDetector(cfg.SubscriptionGrace, func(source ReadySource) {
		m.mu.Lock()
		m.readySource = source
		m.mu.Unlock()
		m.resolveReady(nil)
	})
	return m
}

// Connect joins the room and starts readiness detection. Remote
// participants that joined before us count as the agent being present.
func (m *Manager) Connect(ctx context.Context, details ConnectionDetails) error {
	m.mu.Lock()
	m.readyResolved = false
	m.readyErr = nil
	m.readySource = ""
	m.mu.Unlock()
	m.detector.Reset()

	callbacks := RoomCallbacks{
		OnParticipantConnected: func(string) {
			m.detector.ParticipantJoined()
		},
		OnParticipantDisconnected: func(string) {
			m.detector.ParticipantLeft()
			if m.room.RemoteParticipantCount() == 0 && m.cfg.OnAgentLeft != nil {
				m.cfg.OnAgentLeft()
			}
		},
		OnTrackSubscribed: func(string) {
			m.detector.TrackSubscribed()
		},
		OnDataReceived: func(payload []byte, _ string) {
			if m.cfg.OnData != nil {
				m.cfg.OnData(payload)
			}
		},
		OnDisconnected: func(err error) {
			m.handleRoomDropped(err)
		},
	}

	if err := m.room.Connect(ctx, details, callbacks); err != nil {
		return err
	}

	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()

	if m.room.RemoteParticipantCount() > 0 {
		m.detector.ParticipantJoined()
	}
	m.detector.RoomConnected()
	return nil
}

// Disconnect leaves the room. Waiters still blocked on readiness are
// released with ErrRoomUnavailable.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	wasConnected := m.connected
	m.connected = false
	m.mu.Unlock()

	m.resolveReady(ErrRoomUnavailable)
	m.detector.Reset()
	if !wasConnected {
		return nil
	}
	return m.room.Disconnect()
}

// WaitForAgentReady blocks until the agent is ready, the readiness
// outcome is already known, the timeout elapses, or ctx is canceled.
func (m *Manager) WaitForAgentReady(ctx context.Context, timeout time.Duration) error {
	m.mu.Lock()
	if m.readyResolved {
		err := m.readyErr
		m.mu.Unlock()
		return err
	}
	w := readyWaiter{id: uuid.NewString(), ch: make(chan error, 1)}
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-w.ch:
		return err
	case <-timer.C:
		m.removeWaiter(w.id)
		return ErrAgentTimeout
	case <-ctx.Done():
		m.removeWaiter(w.id)
		return ctx.Err()
	}
}

// PublishData sends payload to the room with reliable delivery.
func (m *Manager) PublishData(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	connected := m.connected
	m.mu.Unlock()
	if !connected {
		return ErrRoomUnavailable
	}
	return m.room.PublishData(ctx, payload)
}

// SetMicrophoneEnabled toggles the local audio track.
func (m *Manager) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	connected := m.connected
	m.mu.Unlock()
	if !connected {
		return ErrRoomUnavailable
	}
	return m.room.SetMicrophoneEnabled(ctx, enabled)
}

// ReadySource says how readiness was decided. Empty until the detector
// has fired.
func (m *Manager) ReadySource() ReadySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readySource
}

// Connected reports whether the room link is up.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// resolveReady records the readiness outcome once and releases every
// pending waiter in registration order. Later resolutions are ignored so
// the first outcome sticks.
func (m *Manager) resolveReady(err error) {
	m.mu.Lock()
	if m.readyResolved {
		m.mu.Unlock()
		return
	}
	m.readyResolved = true
	m.readyErr = err
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()

	for _, w := range waiters {
		w.ch <- err
	}
}

func (m *Manager) removeWaiter(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.waiters {
		if w.id == id {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

func (m *Manager) handleRoomDropped(err error) {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()

	if err == nil {
		err = ErrRoomUnavailable
	}
	m.resolveReady(err)
	m.detector.Reset()
	if m.cfg.OnDisconnected != nil {
		m.cfg.OnDisconnected(err)
	}
}
