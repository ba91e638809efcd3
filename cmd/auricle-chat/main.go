// auricle-chat is a terminal client for talking to a conversational
// agent. It starts a session, prints transcripts as they arrive, and
// sends each stdin line as a user message.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	auricle "github.com/auricle-ai/auricle-go"
	"github.com/auricle-ai/auricle-go/internal/config"
	"github.com/auricle-ai/auricle-go/token"
	"github.com/auricle-ai/auricle-go/transport"
	"github.com/auricle-ai/auricle-go/transport/livekitroom"
	"github.com/auricle-ai/auricle-go/transport/wsroom"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var room transport.Room
	switch cfg.Transport {
	case "websocket":
		room = wsroom.New()
	default:
		room = livekitroom.New(livekitroom.Options{})
	}

	sessionCfg := auricle.SessionConfig{
		AgentID:         cfg.AgentID,
		ParticipantName: cfg.ParticipantName,
		Room:            room,
		ClientTools: map[string]auricle.ClientToolHandler{
			"get_time": func(context.Context, map[string]any) (any, error) {
				return map[string]any{"time": time.Now().Format(time.RFC3339)}, nil
			},
		},
	}
	if cfg.ServerURL != "" {
		sessionCfg.ConnectionDetails = &transport.ConnectionDetails{
			ServerURL:        cfg.ServerURL,
			RoomName:         cfg.RoomName,
			ParticipantName:  cfg.ParticipantName,
			ParticipantToken: cfg.ParticipantToken,
		}
	} else {
		if cfg.AgentID == "" {
			log.Fatal("set AURICLE_AGENT_ID, or AURICLE_SERVER_URL and AURICLE_PARTICIPANT_TOKEN")
		}
		sessionCfg.Tokens = token.NewClient(cfg.TokenServiceURL, cfg.APIKey)
	}

	callbacks := auricle.Callbacks{
		OnStartupPhaseChange: func(phase auricle.StartupPhase) {
			fmt.Printf("... %s\n", phase)
		},
		OnConnect: func(id string) {
			fmt.Printf("connected, conversation %s\n", id)
		},
		OnUserTranscript: func(text string) {
			fmt.Printf("you: %s\n", text)
		},
		OnAgentResponse: func(text string) {
			fmt.Printf("agent: %s\n", text)
		},
		OnAgentResponseUpdate: func(partial string) {
			fmt.Printf("\ragent (typing): %s", partial)
		},
		OnAgentResponseCorrection: func(_, corrected string) {
			fmt.Printf("agent (corrected): %s\n", corrected)
		},
		OnAgentModeChange: func(mode auricle.AgentMode) {
			fmt.Printf("[agent %s]\n", mode)
		},
		OnDisconnect: func(reason error) {
			if reason != nil {
				fmt.Printf("disconnected: %v\n", reason)
			}
		},
		OnError: func(err error) {
			fmt.Printf("agent error: %v\n", err)
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conv, err := auricle.StartSession(ctx, sessionCfg, callbacks)
	if err != nil {
		log.Fatalf("start session: %v", err)
	}
	defer conv.End()

	go func() {
		<-ctx.Done()
		conv.End()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("type a message and press enter; /quit to leave")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/mute":
			if err := conv.SetMuted(true); err != nil {
				fmt.Printf("mute: %v\n", err)
			}
		case line == "/unmute":
			if err := conv.SetMuted(false); err != nil {
				fmt.Printf("unmute: %v\n", err)
			}
		default:
			if err := conv.SendUserMessage(line); err != nil {
				fmt.Printf("send: %v\n", err)
				return
			}
		}
	}
}
