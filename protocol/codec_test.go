package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeUserTranscript(t *testing.T) {
	raw := []byte(`{"type":"user_transcript","user_transcription_event":{"user_transcript":"hello there","event_id":7}}`)
	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ut, ok := ev.(UserTranscript)
	if !ok {
		t.Fatalf("Decode returned %T, want UserTranscript", ev)
	}
	if ut.Text != "hello there" || ut.EventID != 7 {
		t.Fatalf("got %+v, want text %q event_id 7", ut, "hello there")
	}
}

func TestDecodeAgentResponsePart(t *testing.T) {
	cases := []struct {
		raw  string
		kind ResponsePartKind
		text string
	}{
		{`{"type":"agent_chat_response_part","text_response_part":{"type":"start","text":""}}`, PartStart, ""},
		{`{"type":"agent_chat_response_part","text_response_part":{"type":"delta","text":"Hello "}}`, PartDelta, "Hello "},
		{`{"type":"agent_chat_response_part","text_response_part":{"type":"stop","text":""}}`, PartStop, ""},
	}
	for _, tc := range cases {
		ev, err := Decode([]byte(tc.raw))
		if err != nil {
			t.Fatalf("Decode(%s): %v", tc.raw, err)
		}
		part, ok := ev.(AgentChatResponsePart)
		if !ok {
			t.Fatalf("Decode returned %T, want AgentChatResponsePart", ev)
		}
		if part.Part != tc.kind || part.Text != tc.text {
			t.Fatalf("got %+v, want part %q text %q", part, tc.kind, tc.text)
		}
	}
}

func TestDecodeResponsePartRejectsBadKind(t *testing.T) {
	raw := []byte(`{"type":"agent_chat_response_part","text_response_part":{"type":"pause","text":"x"}}`)
	_, err := Decode(raw)
	var invalid *InvalidEventDataError
	if !errors.As(err, &invalid) {
		t.Fatalf("Decode error = %v, want *InvalidEventDataError", err)
	}
	if invalid.Type != TypeAgentChatResponsePart {
		t.Fatalf("invalid.Type = %q, want %q", invalid.Type, TypeAgentChatResponsePart)
	}
}

func TestDecodePing(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"ping","ping_event":{"event_id":42,"ping_ms":120}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ping, ok := ev.(Ping)
	if !ok {
		t.Fatalf("Decode returned %T, want Ping", ev)
	}
	if ping.EventID != 42 {
		t.Fatalf("EventID = %d, want 42", ping.EventID)
	}
	if ping.PingMS == nil || *ping.PingMS != 120 {
		t.Fatalf("PingMS = %v, want 120", ping.PingMS)
	}
}

func TestDecodePingWithoutEventID(t *testing.T) {
	_, err := Decode([]byte(`{"type":"ping","ping_event":{}}`))
	var invalid *InvalidEventDataError
	if !errors.As(err, &invalid) {
		t.Fatalf("Decode error = %v, want *InvalidEventDataError", err)
	}
}

func TestDecodeClientToolCallDefaultsExpectsResponse(t *testing.T) {
	raw := []byte(`{"type":"client_tool_call","client_tool_call":{"tool_name":"get_weather","tool_call_id":"tc-1","parameters":{"city":"Oslo"}}}`)
	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	call := ev.(ClientToolCall)
	if !call.ExpectsResponse {
		t.Fatal("ExpectsResponse = false, want true when field is absent")
	}
	if call.Parameters["city"] != "Oslo" {
		t.Fatalf("Parameters = %v, want city Oslo", call.Parameters)
	}
}

func TestDecodeMCPToolCall(t *testing.T) {
	raw := []byte(`{"type":"mcp_tool_call","mcp_tool_call":{"service_id":"svc","tool_call_id":"m-1","tool_name":"search","state":"awaiting_approval","approval_timeout_secs":30}}`)
	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	call := ev.(MCPToolCall)
	if call.State != MCPStateAwaitingApproval {
		t.Fatalf("State = %q, want %q", call.State, MCPStateAwaitingApproval)
	}
	if call.ApprovalTimeoutSecs != 30 {
		t.Fatalf("ApprovalTimeoutSecs = %d, want 30", call.ApprovalTimeoutSecs)
	}
}

func TestDecodeUnknownTypeIsDistinguishable(t *testing.T) {
	_, err := Decode([]byte(`{"type":"hologram_update","hologram_update_event":{}}`))
	var unknown *UnknownEventTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Decode error = %v, want *UnknownEventTypeError", err)
	}
	if unknown.Type != "hologram_update" {
		t.Fatalf("unknown.Type = %q, want hologram_update", unknown.Type)
	}
	var invalid *InvalidEventDataError
	if errors.As(err, &invalid) {
		t.Fatal("unknown-type error must not match InvalidEventDataError")
	}
}

func TestDecodeConversationMetadata(t *testing.T) {
	raw := []byte(`{"type":"conversation_initiation_metadata","conversation_initiation_metadata_event":{"conversation_id":"conv-9","agent_output_audio_format":"pcm_16000","user_input_audio_format":"pcm_16000"}}`)
	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	md := ev.(ConversationMetadata)
	if md.ConversationID != "conv-9" {
		t.Fatalf("ConversationID = %q, want conv-9", md.ConversationID)
	}
}

func TestEncodePong(t *testing.T) {
	data, err := Encode(Pong{EventID: 42})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal encoded pong: %v", err)
	}
	if got["type"] != "pong" || got["event_id"] != float64(42) {
		t.Fatalf("encoded pong = %v", got)
	}
}

func TestEncodeConversationInitOmitsEmptySections(t *testing.T) {
	data, err := Encode(ConversationInit{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if want := `{"type":"conversation_initiation_client_data"}`; string(data) != want {
		t.Fatalf("encoded init = %s, want %s", data, want)
	}
}

func TestEncodeToolResultStringification(t *testing.T) {
	cases := []struct {
		result any
		want   string
	}{
		{"plain", "plain"},
		{map[string]any{"ok": true}, `{"ok":true}`},
		{nil, ""},
		{42, "42"},
	}
	for _, tc := range cases {
		data, err := Encode(ClientToolResult{ToolCallID: "tc-1", Result: tc.result})
		if err != nil {
			t.Fatalf("Encode(%v): %v", tc.result, err)
		}
		var got struct {
			Result string `json:"result"`
		}
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Result != tc.want {
			t.Fatalf("result for %v = %q, want %q", tc.result, got.Result, tc.want)
		}
	}
}

func TestEncodeToolResultUnmarshalableFallsBack(t *testing.T) {
	data, err := Encode(ClientToolResult{ToolCallID: "tc-1", Result: func() {}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"result"`) {
		t.Fatalf("encoded payload missing result field: %s", data)
	}
}

func TestDecodeGarbageEnvelope(t *testing.T) {
	if _, err := Decode([]byte(`{{not json`)); err == nil {
		t.Fatal("Decode accepted malformed JSON")
	}
}
