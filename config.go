package auricle

import (
	"context"
	"log/slog"
	"time"

	"github.com/auricle-ai/auricle-go/observability"
	"github.com/auricle-ai/auricle-go/protocol"
	"github.com/auricle-ai/auricle-go/transport"
)

// Status is the lifecycle state of a Conversation.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusEnded      Status = "ended"
	StatusError      Status = "error"
)

// AgentMode is the coarse activity of the remote agent, derived from
// the event stream.
type AgentMode string

const (
	// AgentListening means no agent output was seen recently.
	AgentListening AgentMode = "listening"

	// AgentThinking means the user's turn was committed and the agent
	// has not started answering yet.
	AgentThinking AgentMode = "thinking"

	// AgentSpeaking means agent output is flowing.
	AgentSpeaking AgentMode = "speaking"
)

// Role says who produced a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one entry in the conversation transcript. While the agent
// is streaming, the last agent message is replaced on every delta with
// the concatenation so far.
type Message struct {
	Role Role
	Text string
}

// StartupPhase names the step the startup orchestrator is in. Phases
// advance strictly forward; a failed startup reports the phase it died
// in.
type StartupPhase string

const (
	PhaseResolvingToken          StartupPhase = "resolving_token"
	PhaseConnectingRoom          StartupPhase = "connecting_room"
	PhaseWaitingForAgent         StartupPhase = "waiting_for_agent"
	PhaseAgentReady              StartupPhase = "agent_ready"
	PhaseSendingConversationInit StartupPhase = "sending_conversation_init"
	PhaseActive                  StartupPhase = "active"
)

const (
	// DefaultAgentReadyTimeout bounds the wait for the agent after the
	// room is joined.
	DefaultAgentReadyTimeout = 10 * time.Second

	// DefaultInitAttemptTimeout bounds the wait for the conversation
	// metadata acknowledging one init attempt.
	DefaultInitAttemptTimeout = 2 * time.Second
)

// DefaultInitRetryDelays is the pause before each conversation-init
// attempt. Three entries means three attempts.
func DefaultInitRetryDelays() []time.Duration {
	return []time.Duration{0, 200 * time.Millisecond, 500 * time.Millisecond}
}

// ClientToolHandler executes one agent-requested client tool. The
// returned value is serialized into the tool result; a non-nil error
// marks the result as failed.
type ClientToolHandler func(ctx context.Context, parameters map[string]any) (any, error)

// MicrophonePermission asks the host environment for capture
// permission. Implementations for headless environments can return nil
// unconditionally.
type MicrophonePermission interface {
	Request(ctx context.Context) error
}

type grantedMicrophone struct{}

func (grantedMicrophone) Request(context.Context) error { return nil }

// TokenResolver exchanges an agent ID for room connection details.
// token.Client is the production implementation.
type TokenResolver interface {
	FetchConnectionDetails(ctx context.Context, agentID, participantName string) (transport.ConnectionDetails, error)
}

// SessionConfig configures one conversation session. AgentID plus either
// Tokens or ConnectionDetails is required; everything else has working
// defaults.
type SessionConfig struct {
	AgentID         string
	ParticipantName string

	// Tokens resolves connection details from a token service. Ignored
	// when ConnectionDetails is set.
	Tokens TokenResolver

	// ConnectionDetails skips token resolution entirely, for callers
	// that mint room credentials themselves.
	ConnectionDetails *transport.ConnectionDetails

	// Room carries the conversation. Required.
	Room transport.Room

	// Microphone gates audio capture. Defaults to always granted.
	Microphone MicrophonePermission

	// TextOnly skips microphone permission and capture entirely; the
	// session exchanges typed messages only.
	TextOnly bool

	// ContinueWithoutMicrophone downgrades a microphone enable failure
	// during startup from fatal to a logged warning.
	ContinueWithoutMicrophone bool

	// ProceedOnAgentTimeout lets startup continue past an agent-ready
	// timeout instead of aborting; the timeout is still recorded in
	// StartupMetrics.
	ProceedOnAgentTimeout bool

	// PostReadyDelay is an optional fixed pause between agent readiness
	// and the init handshake, for agents that need warm-up time.
	PostReadyDelay time.Duration

	AgentReadyTimeout  time.Duration
	SubscriptionGrace  time.Duration
	InitAttemptTimeout time.Duration
	InitRetryDelays    []time.Duration

	// Conversation-init payload sections, forwarded verbatim.
	ConfigOverride   map[string]any
	CustomLLMExtra   map[string]any
	DynamicVariables map[string]any

	// ClientTools maps tool names to local handlers. Tools the agent
	// requests that are not registered produce an error result.
	ClientTools map[string]ClientToolHandler

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

func (c SessionConfig) withDefaults() SessionConfig {
	out := c
	if out.Microphone == nil {
		out.Microphone = grantedMicrophone{}
	}
	if out.AgentReadyTimeout <= 0 {
		out.AgentReadyTimeout = DefaultAgentReadyTimeout
	}
	if out.InitAttemptTimeout <= 0 {
		out.InitAttemptTimeout = DefaultInitAttemptTimeout
	}
	if len(out.InitRetryDelays) == 0 {
		out.InitRetryDelays = DefaultInitRetryDelays()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Callbacks surfaces conversation events to the application. All fields
// are optional. Callbacks run on the conversation's coordination
// goroutine and must not block; OnAgentModeChange can additionally fire
// from the timer that returns the agent to listening.
type Callbacks struct {
	OnStatusChange       func(status Status)
	OnStartupPhaseChange func(phase StartupPhase)
	OnConnect            func(conversationID string)
	OnDisconnect         func(reason error)

	// OnInitAttempt fires before each conversation-init publish with the
	// 1-based attempt number.
	OnInitAttempt func(attempt int)

	OnAgentModeChange func(mode AgentMode)

	OnUserTranscript          func(text string)
	OnTentativeUserTranscript func(text string)
	OnAgentResponse           func(text string)
	OnAgentResponseCorrection func(original, corrected string)

	// OnAgentResponseUpdate fires for each streaming delta with the
	// concatenation so far; the previous partial is superseded, not
	// extended, so renderers should replace it.
	OnAgentResponseUpdate func(partial string)

	OnAudio        func(audio protocol.Audio)
	OnInterruption func(eventID int64)
	OnVADScore     func(score float64)

	// OnClientToolCall fires for tool calls with no registered handler,
	// leaving execution to the application. The call stays in
	// PendingClientTools until SendToolResult answers it.
	OnClientToolCall func(call protocol.ClientToolCall)

	// OnMCPToolCall fires whenever a server tool call is created or
	// updated; calls are keyed by tool call ID.
	OnMCPToolCall           func(call protocol.MCPToolCall)
	OnMCPConnectionStatus   func(integrations []protocol.MCPIntegrationStatus)
	OnCanSendFeedbackChange func(canSend bool)

	OnAgentToolRequest  func(req protocol.AgentToolRequest)
	OnAgentToolResponse func(res protocol.AgentToolResponse)

	OnError func(err error)
}
