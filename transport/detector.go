package transport

import (
	"sync"
	"time"
)

// DefaultSubscriptionGrace is how long the detector waits for an audio
// track subscription after the agent participant appears before
// declaring readiness anyway. Text-only agents never publish audio, so
// the grace expiry is a normal path, not an error.
const DefaultSubscriptionGrace = 500 * time.Millisecond

type detectorState int

const (
	detectorIdle detectorState = iota
	detectorWaitingForSubscription
	detectorReady
)

// ReadySource says how agent readiness was decided.
type ReadySource string

const (
	// ReadyViaTrack means an audio track from the agent was subscribed.
	ReadyViaTrack ReadySource = "track_subscribed"

	// ReadyViaGrace means the agent joined but published no audio before
	// the grace period elapsed, which is the normal path for text-only
	// agents.
	ReadyViaGrace ReadySource = "grace_timeout"
)

// AgentReadyDetector watches room signals and fires its callback exactly
// once per session when the remote agent is considered ready: either an
// audio track from the agent was subscribed, or the subscription grace
// period elapsed after the room was joined. Reset rearms the detector
// after the agent leaves or the room reconnects.
//
// All methods are safe for concurrent use; the callback runs without the
// detector's lock held.
type AgentReadyDetector struct {
	grace   time.Duration
	onReady func(source ReadySource)

	mu            sync.Mutex
	state         detectorState
	roomConnected bool
	agentPresent  bool
	timer         *time.Timer
}

// NewAgentReadyDetector builds a detector that calls onReady once the
// agent is usable. A non-positive grace falls back to
// DefaultSubscriptionGrace.
func NewAgentReadyDetector(grace time.Duration, onReady func(source ReadySource)) *AgentReadyDetector {
	if grace <= 0 {
		grace = DefaultSubscriptionGrace
	}
	return &AgentReadyDetector{grace: grace, onReady: onReady}
}

// RoomConnected records that the local participant finished joining and
// starts the subscription wait immediately. A room with no qualifying
// track, agent present or not, resolves ready via the grace timer.
func (d *AgentReadyDetector) RoomConnected() {
	d.mu.Lock()
	d.roomConnected = true
	if d.state == detectorIdle {
		d.beginWaitLocked()
	}
	d.mu.Unlock()
}

// ParticipantJoined records a remote participant. The first remote
// participant is treated as the agent.
func (d *AgentReadyDetector) ParticipantJoined() {
	d.mu.Lock()
	d.agentPresent = true
	if d.roomConnected && d.state == detectorIdle {
		d.beginWaitLocked()
	}
	d.mu.Unlock()
}

// TrackSubscribed records that a remote track became readable, which
// makes the agent ready immediately.
func (d *AgentReadyDetector) TrackSubscribed() {
	d.mu.Lock()
	fire := d.markReadyLocked()
	d.mu.Unlock()
	if fire {
		d.onReady(ReadyViaTrack)
	}
}

// ParticipantLeft rearms the detector so a rejoining agent is detected
// again.
func (d *AgentReadyDetector) ParticipantLeft() {
	d.mu.Lock()
	d.agentPresent = false
	d.resetLocked()
	d.mu.Unlock()
}

// Reset returns the detector to idle, e.g. across a room reconnect.
func (d *AgentReadyDetector) Reset() {
	d.mu.Lock()
	d.agentPresent = false
	d.roomConnected = false
	d.resetLocked()
	d.mu.Unlock()
}

func (d *AgentReadyDetector) beginWaitLocked() {
	d.state = detectorWaitingForSubscription
	d.timer = time.AfterFunc(d.grace, d.graceExpired)
}

func (d *AgentReadyDetector) graceExpired() {
	d.mu.Lock()
	fire := d.markReadyLocked()
	d.mu.Unlock()
	if fire {
		d.onReady(ReadyViaGrace)
	}
}

func (d *AgentReadyDetector) markReadyLocked() bool {
	if d.state == detectorReady {
		return false
	}
	d.state = detectorReady
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return true
}

func (d *AgentReadyDetector) resetLocked() {
	d.state = detectorIdle
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
