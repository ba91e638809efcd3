// Package protocol defines the JSON event protocol spoken over the
// conversation data channel and the codec that maps wire payloads to a
// closed set of typed events. The codec is stateless and safe for
// concurrent use.
package protocol

// EventType identifies data-channel payload variants.
type EventType string

// Incoming event discriminators.
const (
	TypeUserTranscript          EventType = "user_transcript"
	TypeTentativeUserTranscript EventType = "tentative_user_transcript"
	TypeAgentResponse           EventType = "agent_response"
	TypeAgentResponseCorrection EventType = "agent_response_correction"
	TypeAgentChatResponsePart   EventType = "agent_chat_response_part"
	TypeAudio                   EventType = "audio"
	TypeInterruption            EventType = "interruption"
	TypeVADScore                EventType = "vad_score"
	TypeConversationMetadata    EventType = "conversation_initiation_metadata"
	TypePing                    EventType = "ping"
	TypeClientToolCall          EventType = "client_tool_call"
	TypeAgentToolRequest        EventType = "agent_tool_request"
	TypeAgentToolResponse       EventType = "agent_tool_response"
	TypeMCPToolCall             EventType = "mcp_tool_call"
	TypeMCPConnectionStatus     EventType = "mcp_connection_status"
	TypeASRMetadata             EventType = "asr_initiation_metadata"
	TypeError                   EventType = "error"
)

// Outgoing event discriminators.
const (
	TypePong                EventType = "pong"
	TypeUserMessage         EventType = "user_message"
	TypeConversationInit    EventType = "conversation_initiation_client_data"
	TypeFeedback            EventType = "feedback"
	TypeClientToolResult    EventType = "client_tool_result"
	TypeContextualUpdate    EventType = "contextual_update"
	TypeUserActivity        EventType = "user_activity"
	TypeMCPApprovalResult   EventType = "mcp_tool_approval_result"
)

// Incoming is the closed union of events the agent can send. New kinds
// require extending the union and the codec; there is no open extension
// point by design of the wire protocol.
type Incoming interface {
	incomingType() EventType
}

// Outgoing is the closed union of events the client can send.
type Outgoing interface {
	outgoingType() EventType
}

// ResponsePartKind is the nested discriminator of a streaming text part.
type ResponsePartKind string

const (
	PartStart ResponsePartKind = "start"
	PartDelta ResponsePartKind = "delta"
	PartStop  ResponsePartKind = "stop"
)

// MCPToolCallState tracks the remote lifecycle of an MCP tool call.
type MCPToolCallState string

const (
	MCPStateLoading           MCPToolCallState = "loading"
	MCPStateAwaitingApproval  MCPToolCallState = "awaiting_approval"
	MCPStateSuccess           MCPToolCallState = "success"
	MCPStateFailure           MCPToolCallState = "failure"
)

// FeedbackScore rates an agent response.
type FeedbackScore string

const (
	FeedbackLike    FeedbackScore = "like"
	FeedbackDislike FeedbackScore = "dislike"
)

// UserTranscript is a committed transcription of user speech.
type UserTranscript struct {
	Text    string
	EventID int64
}

func (UserTranscript) incomingType() EventType { return TypeUserTranscript }

// TentativeUserTranscript is an in-progress transcription that may still
// be revised.
type TentativeUserTranscript struct {
	Text string
}

func (TentativeUserTranscript) incomingType() EventType { return TypeTentativeUserTranscript }

// AgentResponse is a complete agent utterance.
type AgentResponse struct {
	Text    string
	EventID int64
}

func (AgentResponse) incomingType() EventType { return TypeAgentResponse }

// AgentResponseCorrection replaces a previously sent agent response, for
// example after a truncation caused by an interruption.
type AgentResponseCorrection struct {
	Original  string
	Corrected string
}

func (AgentResponseCorrection) incomingType() EventType { return TypeAgentResponseCorrection }

// AgentChatResponsePart is one piece of a streamed agent text response.
type AgentChatResponsePart struct {
	Part ResponsePartKind
	Text string
}

func (AgentChatResponsePart) incomingType() EventType { return TypeAgentChatResponsePart }

// AudioAlignment carries per-character timing for an audio chunk.
type AudioAlignment struct {
	Chars            []string `json:"chars"`
	CharStartTimesMS []int64  `json:"char_start_times_ms"`
	CharDurationsMS  []int64  `json:"char_durations_ms"`
}

// Audio is a chunk of agent speech audio.
type Audio struct {
	Base64    string
	EventID   int64
	Alignment *AudioAlignment
}

func (Audio) incomingType() EventType { return TypeAudio }

// Interruption reports that the agent's utterance was cut off.
type Interruption struct {
	EventID int64
}

func (Interruption) incomingType() EventType { return TypeInterruption }

// VADScore is the voice-activity-detection score for the user, 0.0-1.0.
type VADScore struct {
	Score float64
}

func (VADScore) incomingType() EventType { return TypeVADScore }

// ConversationMetadata acknowledges conversation initiation.
type ConversationMetadata struct {
	ConversationID   string
	AgentAudioFormat string
	UserAudioFormat  string
}

func (ConversationMetadata) incomingType() EventType { return TypeConversationMetadata }

// Ping is a server keepalive; it must be answered with a Pong echoing the
// same event id.
type Ping struct {
	EventID int64
	PingMS  *int64
}

func (Ping) incomingType() EventType { return TypePing }

// ClientToolCall asks the client application to execute a tool locally.
type ClientToolCall struct {
	ToolName        string
	ToolCallID      string
	Parameters      map[string]any
	ExpectsResponse bool
}

func (ClientToolCall) incomingType() EventType { return TypeClientToolCall }

// AgentToolRequest announces that the agent started a server-side tool.
type AgentToolRequest struct {
	ToolName   string
	ToolCallID string
}

func (AgentToolRequest) incomingType() EventType { return TypeAgentToolRequest }

// AgentToolResponse reports the outcome of a server-side tool.
type AgentToolResponse struct {
	ToolName   string
	ToolCallID string
	ToolType   string
	IsError    bool
}

func (AgentToolResponse) incomingType() EventType { return TypeAgentToolResponse }

// MCPToolCall reports the lifecycle of a tool call routed through an MCP
// integration. Repeated events for the same ToolCallID update earlier
// state rather than denoting new calls.
type MCPToolCall struct {
	ServiceID           string
	ToolCallID          string
	ToolName            string
	ToolDescription     string
	Parameters          map[string]any
	State               MCPToolCallState
	ApprovalTimeoutSecs int64
	Result              []map[string]any
	ErrorMessage        string
}

func (MCPToolCall) incomingType() EventType { return TypeMCPToolCall }

// MCPIntegrationStatus describes one MCP integration's connectivity.
type MCPIntegrationStatus struct {
	IntegrationID   string `json:"integration_id"`
	IntegrationType string `json:"integration_type"`
	IsConnected     bool   `json:"is_connected"`
	ToolCount       int    `json:"tool_count"`
}

// MCPConnectionStatus lists the connectivity of all MCP integrations.
type MCPConnectionStatus struct {
	Integrations []MCPIntegrationStatus
}

func (MCPConnectionStatus) incomingType() EventType { return TypeMCPConnectionStatus }

// ASRMetadata acknowledges speech-recognition initiation. The payload is
// carried opaquely; no field of it drives client behavior today.
type ASRMetadata struct {
	Raw map[string]any
}

func (ASRMetadata) incomingType() EventType { return TypeASRMetadata }

// AgentError is an application-level error reported by the agent.
type AgentError struct {
	Message string
	Code    string
}

func (AgentError) incomingType() EventType { return TypeError }

// Pong answers a Ping, echoing its event id.
type Pong struct {
	EventID int64
}

func (Pong) outgoingType() EventType { return TypePong }

// UserMessage is a typed text message from the user.
type UserMessage struct {
	Text string
}

func (UserMessage) outgoingType() EventType { return TypeUserMessage }

// ConversationInit is the protocol initialization handshake event. All
// fields are optional overrides; an empty value sends a bare handshake.
type ConversationInit struct {
	ConfigOverride   map[string]any
	CustomLLMExtra   map[string]any
	DynamicVariables map[string]any
}

func (ConversationInit) outgoingType() EventType { return TypeConversationInit }

// Feedback rates the agent response identified by EventID.
type Feedback struct {
	Score   FeedbackScore
	EventID int64
}

func (Feedback) outgoingType() EventType { return TypeFeedback }

// ClientToolResult returns the outcome of a ClientToolCall. Result may be
// any JSON-representable value; non-string results are JSON-encoded into
// the wire's string field, falling back to a plain string description for
// values JSON cannot represent.
type ClientToolResult struct {
	ToolCallID string
	Result     any
	IsError    bool
}

func (ClientToolResult) outgoingType() EventType { return TypeClientToolResult }

// ContextualUpdate feeds non-conversational context to the agent.
type ContextualUpdate struct {
	Text string
}

func (ContextualUpdate) outgoingType() EventType { return TypeContextualUpdate }

// UserActivity signals that the user is present without speaking.
type UserActivity struct{}

func (UserActivity) outgoingType() EventType { return TypeUserActivity }

// MCPApprovalResult approves or rejects a pending MCP tool call.
type MCPApprovalResult struct {
	ToolCallID string
	IsApproved bool
}

func (MCPApprovalResult) outgoingType() EventType { return TypeMCPApprovalResult }
