package transport

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDetectorFiresOnceOnTrackSubscription(t *testing.T) {
	var fired atomic.Int32
	d := NewAgentReadyDetector(time.Hour, func(ReadySource) { fired.Add(1) })

	d.RoomConnected()
	d.ParticipantJoined()
	d.TrackSubscribed()
	d.TrackSubscribed()
	d.ParticipantJoined()
	d.TrackSubscribed()

	if got := fired.Load(); got != 1 {
		t.Fatalf("onReady fired %d times, want 1", got)
	}
}

func TestDetectorGraceTimeoutFiresWithoutTrack(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewAgentReadyDetector(10*time.Millisecond, func(ReadySource) { fired <- struct{}{} })

	d.RoomConnected()
	d.ParticipantJoined()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("detector never fired after grace period")
	}
}

func TestDetectorArmsGraceOnRoomConnect(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewAgentReadyDetector(10*time.Millisecond, func(ReadySource) { fired <- struct{}{} })

	d.RoomConnected()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("detector never fired for an agent-less room")
	}
}

func TestDetectorHandlesJoinBeforeRoomConnected(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewAgentReadyDetector(10*time.Millisecond, func(ReadySource) { fired <- struct{}{} })

	d.ParticipantJoined()
	select {
	case <-fired:
		t.Fatal("detector fired before the room was connected")
	case <-time.After(50 * time.Millisecond):
	}

	d.RoomConnected()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("detector never fired after room connect")
	}
}

func TestDetectorRearmsAfterParticipantLeaves(t *testing.T) {
	var fired atomic.Int32
	d := NewAgentReadyDetector(time.Hour, func(ReadySource) { fired.Add(1) })

	d.RoomConnected()
	d.ParticipantJoined()
	d.TrackSubscribed()
	if got := fired.Load(); got != 1 {
		t.Fatalf("onReady fired %d times, want 1", got)
	}

	d.ParticipantLeft()
	d.ParticipantJoined()
	d.TrackSubscribed()
	if got := fired.Load(); got != 2 {
		t.Fatalf("onReady fired %d times after rejoin, want 2", got)
	}
}

func TestDetectorTrackCancelsGraceTimer(t *testing.T) {
	var fired atomic.Int32
	d := NewAgentReadyDetector(10*time.Millisecond, func(ReadySource) { fired.Add(1) })

	d.RoomConnected()
	d.ParticipantJoined()
	d.TrackSubscribed()

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("onReady fired %d times, want exactly 1", got)
	}
}

func TestDetectorReportsReadySource(t *testing.T) {
	sources := make(chan ReadySource, 1)

	d := NewAgentReadyDetector(time.Hour, func(s ReadySource) { sources <- s })
	d.RoomConnected()
	d.ParticipantJoined()
	d.TrackSubscribed()
	if got := <-sources; got != ReadyViaTrack {
		t.Fatalf("source = %q, want %q", got, ReadyViaTrack)
	}

	d = NewAgentReadyDetector(10*time.Millisecond, func(s ReadySource) { sources <- s })
	d.RoomConnected()
	d.ParticipantJoined()
	select {
	case got := <-sources:
		if got != ReadyViaGrace {
			t.Fatalf("source = %q, want %q", got, ReadyViaGrace)
		}
	case <-time.After(time.Second):
		t.Fatal("detector never fired after grace period")
	}
}

func TestDetectorResetCancelsPendingGrace(t *testing.T) {
	var fired atomic.Int32
	d := NewAgentReadyDetector(10*time.Millisecond, func(ReadySource) { fired.Add(1) })

	d.RoomConnected()
	d.ParticipantJoined()
	d.Reset()

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("onReady fired %d times after reset, want 0", got)
	}
}
