// Package livekitroom implements transport.Room on a LiveKit WebRTC
// room. Conversation events travel as reliable data packets; the local
// microphone is a PCM track published on first unmute.
package livekitroom

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	lkmedia "github.com/livekit/server-sdk-go/v2/pkg/media"
	"github.com/pion/webrtc/v4"

	"github.com/auricle-ai/auricle-go/transport"
)

const (
	defaultSampleRate  = 16000
	defaultNumChannels = 1
	micTrackName       = "microphone"
)

// Options tunes the room adapter. Zero values get sane defaults.
type Options struct {
	SampleRate  int
	NumChannels int
	Logger      *slog.Logger
}

// Room is a transport.Room backed by the LiveKit client SDK.
type Room struct {
	opts Options

	mu     sync.Mutex
	room   *lksdk.Room
	mic    *lkmedia.PCMLocalTrack
	micPub *lksdk.LocalTrackPublication
}

func New(opts Options) *Room {
	if opts.SampleRate <= 0 {
		opts.SampleRate = defaultSampleRate
	}
	if opts.NumChannels <= 0 {
		opts.NumChannels = defaultNumChannels
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Room{opts: opts}
}

func (r *Room) Connect(ctx context.Context, details transport.ConnectionDetails, callbacks transport.RoomCallbacks) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	roomCB := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(_ *webrtc.TrackRemote, _ *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if callbacks.OnTrackSubscribed != nil {
					callbacks.OnTrackSubscribed(rp.Identity())
				}
			},
			OnDataPacket: func(data lksdk.DataPacket, params lksdk.DataReceiveParams) {
				packet, ok := data.(*lksdk.UserDataPacket)
				if !ok {
					return
				}
				if callbacks.OnDataReceived != nil {
					callbacks.OnDataReceived(packet.Payload, params.SenderIdentity)
				}
			},
		},
		OnParticipantConnected: func(rp *lksdk.RemoteParticipant) {
			if callbacks.OnParticipantConnected != nil {
				callbacks.OnParticipantConnected(rp.Identity())
			}
		},
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			if callbacks.OnParticipantDisconnected != nil {
				callbacks.OnParticipantDisconnected(rp.Identity())
			}
		},
		OnDisconnectedWithReason: func(reason lksdk.DisconnectionReason) {
			if callbacks.OnDisconnected != nil {
				callbacks.OnDisconnected(fmt.Errorf("room disconnected: %s", reason))
			}
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(
		details.ServerURL,
		details.ParticipantToken,
		roomCB,
		lksdk.WithAutoSubscribe(true),
	)
	if err != nil {
		return fmt.Errorf("connect to room: %w", err)
	}

	r.mu.Lock()
	r.room = room
	r.mu.Unlock()

	r.opts.Logger.Debug("joined room", "room", details.RoomName, "url", details.ServerURL)
	return nil
}

func (r *Room) Disconnect() error {
	r.mu.Lock()
	room := r.room
	mic := r.mic
	r.room = nil
	r.mic = nil
	r.micPub = nil
	r.mu.Unlock()

	if mic != nil {
		mic.Close()
	}
	if room != nil {
		room.Disconnect()
	}
	return nil
}

func (r *Room) PublishData(ctx context.Context, payload []byte) error {
	r.mu.Lock()
	room := r.room
	r.mu.Unlock()
	if room == nil {
		return transport.ErrRoomUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return room.LocalParticipant.PublishDataPacket(
		lksdk.UserData(payload),
		lksdk.WithDataPublishReliable(true),
	)
}

// SetMicrophoneEnabled publishes the microphone track on first enable
// and toggles publication mute afterwards.
func (r *Room) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room == nil {
		return transport.ErrRoomUnavailable
	}

	if r.micPub == nil {
		if !enabled {
			return nil
		}
		track, err := lkmedia.NewPCMLocalTrack(r.opts.SampleRate, r.opts.NumChannels, nil)
		if err != nil {
			return fmt.Errorf("create microphone track: %w", err)
		}
		pub, err := r.room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
			Name:   micTrackName,
			Source: livekit.TrackSource_MICROPHONE,
		})
		if err != nil {
			track.Close()
			return fmt.Errorf("publish microphone track: %w", err)
		}
		r.mic = track
		r.micPub = pub
		return nil
	}

	r.micPub.SetMuted(!enabled)
	return nil
}

func (r *Room) RemoteParticipantCount() int {
	r.mu.Lock()
	room := r.room
	r.mu.Unlock()
	if room == nil {
		return 0
	}
	return len(room.GetRemoteParticipants())
}
