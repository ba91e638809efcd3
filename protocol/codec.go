package protocol

import (
	"encoding/json"
	"fmt"
)

// UnknownEventTypeError reports a discriminator the codec does not know.
// It is a forward-compatibility signal: callers should skip the event,
// not tear down the conversation.
type UnknownEventTypeError struct {
	Type string
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// InvalidEventDataError reports a known discriminator whose payload is
// missing required fields or is mistyped.
type InvalidEventDataError struct {
	Type   EventType
	Reason string
}

func (e *InvalidEventDataError) Error() string {
	return fmt.Sprintf("invalid %s event: %s", e.Type, e.Reason)
}

func invalidEvent(t EventType, format string, args ...any) error {
	return &InvalidEventDataError{Type: t, Reason: fmt.Sprintf(format, args...)}
}

type envelope struct {
	Type EventType `json:"type"`
}

type userTranscriptionEvent struct {
	UserTranscript string `json:"user_transcript"`
	EventID        int64  `json:"event_id"`
}

type agentResponseEvent struct {
	AgentResponse string `json:"agent_response"`
	EventID       int64  `json:"event_id"`
}

type agentResponseCorrectionEvent struct {
	OriginalAgentResponse  string `json:"original_agent_response"`
	CorrectedAgentResponse string `json:"corrected_agent_response"`
}

type textResponsePart struct {
	Type ResponsePartKind `json:"type"`
	Text string           `json:"text"`
}

type audioEvent struct {
	AudioBase64 string          `json:"audio_base_64"`
	EventID     int64           `json:"event_id"`
	Alignment   *AudioAlignment `json:"alignment,omitempty"`
}

type interruptionEvent struct {
	EventID int64 `json:"event_id"`
}

type vadScoreEvent struct {
	VADScore *float64 `json:"vad_score"`
}

type conversationMetadataEvent struct {
	ConversationID         string `json:"conversation_id"`
	AgentOutputAudioFormat string `json:"agent_output_audio_format"`
	UserInputAudioFormat   string `json:"user_input_audio_format"`
}

type pingEvent struct {
	EventID *int64 `json:"event_id"`
	PingMS  *int64 `json:"ping_ms"`
}

type clientToolCallPayload struct {
	ToolName        string         `json:"tool_name"`
	ToolCallID      string         `json:"tool_call_id"`
	Parameters      map[string]any `json:"parameters"`
	ExpectsResponse *bool          `json:"expects_response"`
}

type agentToolPayload struct {
	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id"`
	ToolType   string `json:"tool_type"`
	IsError    bool   `json:"is_error"`
}

type mcpToolCallPayload struct {
	ServiceID           string           `json:"service_id"`
	ToolCallID          string           `json:"tool_call_id"`
	ToolName            string           `json:"tool_name"`
	ToolDescription     string           `json:"tool_description"`
	Parameters          map[string]any   `json:"parameters"`
	State               MCPToolCallState `json:"state"`
	ApprovalTimeoutSecs int64            `json:"approval_timeout_secs"`
	Result              []map[string]any `json:"result"`
	ErrorMessage        string           `json:"error_message"`
}

type mcpConnectionStatusPayload struct {
	Integrations []MCPIntegrationStatus `json:"integrations"`
}

type errorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Decode maps one wire payload to its typed incoming event. It returns
// *UnknownEventTypeError for unrecognized discriminators and
// *InvalidEventDataError for known discriminators with bad payloads; the
// two are distinguishable so callers can skip the former and log the
// latter.
func Decode(raw []byte) (Incoming, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid event envelope: %w", err)
	}

	switch env.Type {
	case TypeUserTranscript:
		var msg struct {
			Event userTranscriptionEvent `json:"user_transcription_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Event.UserTranscript == "" {
			return nil, invalidEvent(env.Type, "missing user_transcript")
		}
		return UserTranscript{Text: msg.Event.UserTranscript, EventID: msg.Event.EventID}, nil

	case TypeTentativeUserTranscript:
		var msg struct {
			Event userTranscriptionEvent `json:"tentative_user_transcription_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		return TentativeUserTranscript{Text: msg.Event.UserTranscript}, nil

	case TypeAgentResponse:
		var msg struct {
			Event agentResponseEvent `json:"agent_response_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Event.AgentResponse == "" {
			return nil, invalidEvent(env.Type, "missing agent_response")
		}
		return AgentResponse{Text: msg.Event.AgentResponse, EventID: msg.Event.EventID}, nil

	case TypeAgentResponseCorrection:
		var msg struct {
			Event agentResponseCorrectionEvent `json:"agent_response_correction_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Event.CorrectedAgentResponse == "" {
			return nil, invalidEvent(env.Type, "missing corrected_agent_response")
		}
		return AgentResponseCorrection{
			Original:  msg.Event.OriginalAgentResponse,
			Corrected: msg.Event.CorrectedAgentResponse,
		}, nil

	case TypeAgentChatResponsePart:
		var msg struct {
			Part textResponsePart `json:"text_response_part"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		switch msg.Part.Type {
		case PartStart, PartDelta, PartStop:
		default:
			return nil, invalidEvent(env.Type, "bad part type %q", msg.Part.Type)
		}
		return AgentChatResponsePart{Part: msg.Part.Type, Text: msg.Part.Text}, nil

	case TypeAudio:
		var msg struct {
			Event audioEvent `json:"audio_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Event.AudioBase64 == "" {
			return nil, invalidEvent(env.Type, "missing audio_base_64")
		}
		return Audio{
			Base64:    msg.Event.AudioBase64,
			EventID:   msg.Event.EventID,
			Alignment: msg.Event.Alignment,
		}, nil

	case TypeInterruption:
		var msg struct {
			Event interruptionEvent `json:"interruption_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		return Interruption{EventID: msg.Event.EventID}, nil

	case TypeVADScore:
		var msg struct {
			Event vadScoreEvent `json:"vad_score_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Event.VADScore == nil {
			return nil, invalidEvent(env.Type, "missing vad_score")
		}
		return VADScore{Score: *msg.Event.VADScore}, nil

	case TypeConversationMetadata:
		var msg struct {
			Event conversationMetadataEvent `json:"conversation_initiation_metadata_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Event.ConversationID == "" {
			return nil, invalidEvent(env.Type, "missing conversation_id")
		}
		return ConversationMetadata{
			ConversationID:   msg.Event.ConversationID,
			AgentAudioFormat: msg.Event.AgentOutputAudioFormat,
			UserAudioFormat:  msg.Event.UserInputAudioFormat,
		}, nil

	case TypePing:
		var msg struct {
			Event pingEvent `json:"ping_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Event.EventID == nil {
			return nil, invalidEvent(env.Type, "missing event_id")
		}
		return Ping{EventID: *msg.Event.EventID, PingMS: msg.Event.PingMS}, nil

	case TypeClientToolCall:
		var msg struct {
			Call clientToolCallPayload `json:"client_tool_call"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Call.ToolName == "" || msg.Call.ToolCallID == "" {
			return nil, invalidEvent(env.Type, "missing tool_name or tool_call_id")
		}
		expects := true
		if msg.Call.ExpectsResponse != nil {
			expects = *msg.Call.ExpectsResponse
		}
		return ClientToolCall{
			ToolName:        msg.Call.ToolName,
			ToolCallID:      msg.Call.ToolCallID,
			Parameters:      msg.Call.Parameters,
			ExpectsResponse: expects,
		}, nil

	case TypeAgentToolRequest:
		var msg struct {
			Request agentToolPayload `json:"agent_tool_request"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Request.ToolName == "" {
			return nil, invalidEvent(env.Type, "missing tool_name")
		}
		return AgentToolRequest{
			ToolName:   msg.Request.ToolName,
			ToolCallID: msg.Request.ToolCallID,
		}, nil

	case TypeAgentToolResponse:
		var msg struct {
			Response agentToolPayload `json:"agent_tool_response"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Response.ToolName == "" {
			return nil, invalidEvent(env.Type, "missing tool_name")
		}
		return AgentToolResponse{
			ToolName:   msg.Response.ToolName,
			ToolCallID: msg.Response.ToolCallID,
			ToolType:   msg.Response.ToolType,
			IsError:    msg.Response.IsError,
		}, nil

	case TypeMCPToolCall:
		var msg struct {
			Call mcpToolCallPayload `json:"mcp_tool_call"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		if msg.Call.ToolCallID == "" {
			return nil, invalidEvent(env.Type, "missing tool_call_id")
		}
		switch msg.Call.State {
		case MCPStateLoading, MCPStateAwaitingApproval, MCPStateSuccess, MCPStateFailure:
		default:
			return nil, invalidEvent(env.Type, "bad state %q", msg.Call.State)
		}
		return MCPToolCall{
			ServiceID:           msg.Call.ServiceID,
			ToolCallID:          msg.Call.ToolCallID,
			ToolName:            msg.Call.ToolName,
			ToolDescription:     msg.Call.ToolDescription,
			Parameters:          msg.Call.Parameters,
			State:               msg.Call.State,
			ApprovalTimeoutSecs: msg.Call.ApprovalTimeoutSecs,
			Result:              msg.Call.Result,
			ErrorMessage:        msg.Call.ErrorMessage,
		}, nil

	case TypeMCPConnectionStatus:
		var msg struct {
			Status mcpConnectionStatusPayload `json:"mcp_connection_status"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		return MCPConnectionStatus{Integrations: msg.Status.Integrations}, nil

	case TypeASRMetadata:
		var msg struct {
			Event map[string]any `json:"asr_initiation_metadata_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		return ASRMetadata{Raw: msg.Event}, nil

	case TypeError:
		var msg struct {
			Event errorEvent `json:"error_event"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, invalidEvent(env.Type, "%v", err)
		}
		return AgentError{Message: msg.Event.Message, Code: msg.Event.Code}, nil

	default:
		return nil, &UnknownEventTypeError{Type: string(env.Type)}
	}
}

// Encode maps one outgoing event to its wire payload. It is total for
// every union variant; only pathological tool-result values fall back to
// a string description.
func Encode(event Outgoing) ([]byte, error) {
	switch e := event.(type) {
	case Pong:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			EventID int64     `json:"event_id"`
		}{TypePong, e.EventID})

	case UserMessage:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Text string    `json:"text"`
		}{TypeUserMessage, e.Text})

	case ConversationInit:
		return json.Marshal(struct {
			Type             EventType      `json:"type"`
			ConfigOverride   map[string]any `json:"conversation_config_override,omitempty"`
			CustomLLMExtra   map[string]any `json:"custom_llm_extra_body,omitempty"`
			DynamicVariables map[string]any `json:"dynamic_variables,omitempty"`
		}{TypeConversationInit, e.ConfigOverride, e.CustomLLMExtra, e.DynamicVariables})

	case Feedback:
		return json.Marshal(struct {
			Type    EventType     `json:"type"`
			Score   FeedbackScore `json:"score"`
			EventID int64         `json:"event_id"`
		}{TypeFeedback, e.Score, e.EventID})

	case ClientToolResult:
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			ToolCallID string    `json:"tool_call_id"`
			Result     string    `json:"result"`
			IsError    bool      `json:"is_error"`
		}{TypeClientToolResult, e.ToolCallID, stringifyToolResult(e.Result), e.IsError})

	case ContextualUpdate:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Text string    `json:"text"`
		}{TypeContextualUpdate, e.Text})

	case UserActivity:
		return json.Marshal(struct {
			Type EventType `json:"type"`
		}{TypeUserActivity})

	case MCPApprovalResult:
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			ToolCallID string    `json:"tool_call_id"`
			IsApproved bool      `json:"is_approved"`
		}{TypeMCPApprovalResult, e.ToolCallID, e.IsApproved})

	default:
		return nil, fmt.Errorf("unsupported outgoing event %T", event)
	}
}

// stringifyToolResult fits an arbitrary tool result into the wire's
// string field: strings pass through, everything else is JSON-encoded,
// and values JSON cannot represent degrade to a plain description.
func stringifyToolResult(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
