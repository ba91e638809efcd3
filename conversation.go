// Package auricle is a client SDK for real-time voice and text
// conversations with a remote agent over a room transport. A session is
// started with StartSession, which resolves credentials, joins the
// room, waits for the agent, performs the init handshake, and hands
// back an active Conversation.
package auricle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/auricle-ai/auricle-go/protocol"
	"github.com/auricle-ai/auricle-go/transport"
)

const publishTimeout = 5 * time.Second

// backToListeningDelay is how long after the last agent output the agent
// is still considered speaking.
const backToListeningDelay = 2 * time.Second

// endCallToolName is the agent tool whose successful completion means
// the agent decided to hang up.
const endCallToolName = "end_call"

// Conversation is one live session with a remote agent. All exported
// methods are safe for concurrent use. Incoming events are routed on a
// single coordination goroutine, so callback invocations for one
// conversation never overlap.
type Conversation struct {
	cfg       SessionConfig
	callbacks Callbacks
	logger    *slog.Logger
	manager   *transport.Manager

	events     chan protocol.Incoming
	done       chan struct{}
	closeOnce  sync.Once
	metadataCh chan protocol.ConversationMetadata

	mu                  sync.Mutex
	status              Status
	conversationID      string
	muted               bool
	pendingMute         *bool
	pendingTools        map[string]protocol.ClientToolCall
	lastAgentEventID    int64
	lastFeedbackEventID int64
	canFeedback         bool
	startupMetrics      StartupMetrics
	messages            []Message
	partialMsgOpen      bool
	agentMode           AgentMode
	modeTimer           *time.Timer

	mcpCalls []protocol.MCPToolCall

	// Router-goroutine state, never touched elsewhere.
	partial       strings.Builder
	partialActive bool
}

func newConversation(cfg SessionConfig, callbacks Callbacks) *Conversation {
	c := &Conversation{
		cfg:          cfg,
		callbacks:    callbacks,
		logger:       cfg.Logger,
		events:       make(chan protocol.Incoming, 64),
		done:         make(chan struct{}),
		metadataCh:   make(chan protocol.ConversationMetadata, 1),
		status:       StatusIdle,
		agentMode:    AgentListening,
		pendingTools: make(map[string]protocol.ClientToolCall),
	}
	c.manager = transport.NewManager(cfg.Room, transport.ManagerConfig{
		SubscriptionGrace: cfg.SubscriptionGrace,
		OnData:            c.ingest,
		OnAgentLeft:       c.handleAgentLeft,
		OnDisconnected:    c.handleTransportDrop,
	})
	return c
}

// Restart begins a new session on a conversation that has ended,
// reusing its configuration and callbacks. Every piece of
// conversation-scoped state is reset first.
func (c *Conversation) Restart(ctx context.Context) error {
	return c.start(ctx)
}

// Status reports the conversation lifecycle state.
func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ConversationID is the server-assigned session ID, empty until the
// init handshake completes.
func (c *Conversation) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Muted reports the requested microphone mute state, including a mute
// buffered during startup.
func (c *Conversation) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingMute != nil {
		return *c.pendingMute
	}
	return c.muted
}

// AgentMode reports the agent's current derived activity.
func (c *Conversation) AgentMode() AgentMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agentMode
}

// Messages returns a snapshot of the transcript so far, oldest first.
// The last entry may still be streaming.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// StartupMetrics returns the timings collected during startup. Zero
// until the session is active; failed startups carry their metrics on
// the returned *StartupError instead.
func (c *Conversation) StartupMetrics() StartupMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startupMetrics
}

// CanSendFeedback reports whether there is a fresh agent response that
// feedback could attach to.
func (c *Conversation) CanSendFeedback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canFeedback
}

// PendingClientTools lists tool call IDs whose handlers are still
// running.
func (c *Conversation) PendingClientTools() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.pendingTools))
	for id := range c.pendingTools {
		ids = append(ids, id)
	}
	return ids
}

// SendUserMessage sends a typed user message to the agent.
func (c *Conversation) SendUserMessage(text string) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	return c.publish(protocol.UserMessage{Text: text})
}

// SendContextualUpdate pushes non-turn context to the agent.
func (c *Conversation) SendContextualUpdate(text string) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	return c.publish(protocol.ContextualUpdate{Text: text})
}

// SendUserActivity signals that the user is present, resetting the
// agent's idle timers.
func (c *Conversation) SendUserActivity() error {
	if err := c.requireActive(); err != nil {
		return err
	}
	return c.publish(protocol.UserActivity{})
}

// SendFeedback rates the most recent agent response. It fails with
// ErrFeedbackUnavailable when that response was already rated or no
// response arrived yet.
func (c *Conversation) SendFeedback(score protocol.FeedbackScore) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	c.mu.Lock()
	if !c.canFeedback {
		c.mu.Unlock()
		return ErrFeedbackUnavailable
	}
	eventID := c.lastAgentEventID
	c.canFeedback = false
	c.lastFeedbackEventID = eventID
	c.mu.Unlock()

	if c.callbacks.OnCanSendFeedbackChange != nil {
		c.callbacks.OnCanSendFeedbackChange(false)
	}
	return c.publish(protocol.Feedback{Score: score, EventID: eventID})
}

// SendToolResult reports the outcome of a tool call the application
// executed itself, outside the registered handler set. Answering a call
// removes it from the pending list; calls handed to the application are
// never removed any other way.
func (c *Conversation) SendToolResult(toolCallID string, result any, isError bool) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.pendingTools, toolCallID)
	c.mu.Unlock()
	return c.publish(protocol.ClientToolResult{
		ToolCallID: toolCallID,
		Result:     result,
		IsError:    isError,
	})
}

// SendMCPApproval answers a server tool call that is awaiting user
// approval.
func (c *Conversation) SendMCPApproval(toolCallID string, approved bool) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	return c.publish(protocol.MCPApprovalResult{ToolCallID: toolCallID, IsApproved: approved})
}

// SetMuted controls the local microphone. During startup the request is
// buffered and applied once the session becomes active.
func (c *Conversation) SetMuted(muted bool) error {
	c.mu.Lock()
	switch c.status {
	case StatusConnecting:
		m := muted
		c.pendingMute = &m
		c.mu.Unlock()
		return nil
	case StatusActive:
		c.muted = muted
		c.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		return c.manager.SetMicrophoneEnabled(ctx, !muted)
	default:
		c.mu.Unlock()
		return ErrNotConnected
	}
}

// End terminates the conversation and leaves the room. It is valid both
// while active and while still connecting; ending an already ended
// conversation is a no-op.
func (c *Conversation) End() error {
	c.mu.Lock()
	switch c.status {
	case StatusEnded, StatusError:
		c.mu.Unlock()
		return nil
	case StatusIdle:
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.status = StatusEnded
	c.mu.Unlock()

	c.shutdown()
	err := c.manager.Disconnect()
	if c.callbacks.OnStatusChange != nil {
		c.callbacks.OnStatusChange(StatusEnded)
	}
	if c.callbacks.OnDisconnect != nil {
		c.callbacks.OnDisconnect(nil)
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ActiveConversations.Dec()
	}
	return err
}

func (c *Conversation) requireActive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusActive {
		return ErrNotConnected
	}
	return nil
}

// setStatus transitions the lifecycle state. Ended and error are
// absorbing; once reached, later transitions are ignored.
func (c *Conversation) setStatus(status Status) {
	c.mu.Lock()
	if c.status == status || c.status == StatusEnded || c.status == StatusError {
		c.mu.Unlock()
		return
	}
	c.status = status
	c.mu.Unlock()
	if c.callbacks.OnStatusChange != nil {
		c.callbacks.OnStatusChange(status)
	}
}

func (c *Conversation) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.modeTimer != nil {
			c.modeTimer.Stop()
			c.modeTimer = nil
		}
		c.mu.Unlock()
	})
}

// resetForRestartLocked clears every piece of conversation-scoped state
// so an ended conversation can start a fresh session. The previous
// router goroutine has exited by the time this runs; fresh channels and
// a fresh done signal replace the spent ones. Caller holds c.mu.
func (c *Conversation) resetForRestartLocked() {
	c.status = StatusIdle
	c.conversationID = ""
	c.pendingMute = nil
	c.pendingTools = make(map[string]protocol.ClientToolCall)
	c.lastAgentEventID = 0
	c.lastFeedbackEventID = 0
	c.canFeedback = false
	c.startupMetrics = StartupMetrics{}
	c.messages = nil
	c.partialMsgOpen = false
	c.agentMode = AgentListening
	if c.modeTimer != nil {
		c.modeTimer.Stop()
		c.modeTimer = nil
	}
	c.mcpCalls = nil
	c.partial.Reset()
	c.partialActive = false
	c.events = make(chan protocol.Incoming, 64)
	c.metadataCh = make(chan protocol.ConversationMetadata, 1)
	c.done = make(chan struct{})
	c.closeOnce = sync.Once{}
}

func (c *Conversation) setAgentMode(mode AgentMode) {
	c.mu.Lock()
	if c.agentMode == mode {
		c.mu.Unlock()
		return
	}
	c.agentMode = mode
	c.mu.Unlock()
	if c.callbacks.OnAgentModeChange != nil {
		c.callbacks.OnAgentModeChange(mode)
	}
}

// markAgentSpeaking flags agent output and rearms the debounce that
// returns the agent to listening once output stops flowing.
func (c *Conversation) markAgentSpeaking() {
	c.mu.Lock()
	changed := c.agentMode != AgentSpeaking
	c.agentMode = AgentSpeaking
	if c.modeTimer != nil {
		c.modeTimer.Stop()
	}
	c.modeTimer = time.AfterFunc(backToListeningDelay, c.backToListening)
	c.mu.Unlock()
	if changed && c.callbacks.OnAgentModeChange != nil {
		c.callbacks.OnAgentModeChange(AgentSpeaking)
	}
}

func (c *Conversation) backToListening() {
	c.mu.Lock()
	if c.agentMode != AgentSpeaking {
		c.mu.Unlock()
		return
	}
	c.agentMode = AgentListening
	c.mu.Unlock()
	if c.callbacks.OnAgentModeChange != nil {
		c.callbacks.OnAgentModeChange(AgentListening)
	}
}

// forceListening cancels the debounce and drops straight to listening,
// used on interruption.
func (c *Conversation) forceListening() {
	c.mu.Lock()
	if c.modeTimer != nil {
		c.modeTimer.Stop()
		c.modeTimer = nil
	}
	changed := c.agentMode != AgentListening
	c.agentMode = AgentListening
	c.mu.Unlock()
	if changed && c.callbacks.OnAgentModeChange != nil {
		c.callbacks.OnAgentModeChange(AgentListening)
	}
}

// ingest decodes one wire payload and queues it for the router. Unknown
// event types are skipped; malformed payloads are reported but do not
// kill the session.
func (c *Conversation) ingest(payload []byte) {
	ev, err := protocol.Decode(payload)
	if err != nil {
		var unknown *protocol.UnknownEventTypeError
		if errors.As(err, &unknown) {
			c.logger.Debug("skipping unknown event", "type", unknown.Type)
			return
		}
		c.logger.Warn("dropping malformed event", "err", err)
		if c.callbacks.OnError != nil {
			c.callbacks.OnError(err)
		}
		return
	}
	c.mu.Lock()
	events, done := c.events, c.done
	c.mu.Unlock()
	select {
	case events <- ev:
	case <-done:
	}
}

func (c *Conversation) runLoop() {
	c.mu.Lock()
	events, done := c.events, c.done
	c.mu.Unlock()
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			c.route(ev)
		}
	}
}

func (c *Conversation) route(ev protocol.Incoming) {
	switch e := ev.(type) {
	case protocol.Ping:
		c.countEvent("ping")
		if err := c.publish(protocol.Pong{EventID: e.EventID}); err != nil {
			c.logger.Warn("pong failed", "err", err)
		}

	case protocol.ConversationMetadata:
		c.countEvent("conversation_metadata")
		c.mu.Lock()
		c.conversationID = e.ConversationID
		c.mu.Unlock()
		select {
		case c.metadataCh <- e:
		default:
		}

	case protocol.UserTranscript:
		c.countEvent("user_transcript")
		c.appendMessage(RoleUser, e.Text)
		if c.AgentMode() == AgentListening {
			c.setAgentMode(AgentThinking)
		}
		if c.callbacks.OnUserTranscript != nil {
			c.callbacks.OnUserTranscript(e.Text)
		}

	case protocol.TentativeUserTranscript:
		c.countEvent("tentative_user_transcript")
		if c.callbacks.OnTentativeUserTranscript != nil {
			c.callbacks.OnTentativeUserTranscript(e.Text)
		}

	case protocol.AgentResponse:
		c.countEvent("agent_response")
		c.noteAgentEvent(e.EventID)
		c.finalizeAgentMessage(e.Text)
		c.markAgentSpeaking()
		if c.callbacks.OnAgentResponse != nil {
			c.callbacks.OnAgentResponse(e.Text)
		}

	case protocol.AgentResponseCorrection:
		c.countEvent("agent_response_correction")
		c.correctAgentMessage(e.Corrected)
		if c.callbacks.OnAgentResponseCorrection != nil {
			c.callbacks.OnAgentResponseCorrection(e.Original, e.Corrected)
		}

	case protocol.AgentChatResponsePart:
		c.countEvent("agent_chat_response_part")
		c.handleResponsePart(e)

	case protocol.Audio:
		c.countEvent("audio")
		c.noteAgentEvent(e.EventID)
		c.markAgentSpeaking()
		if c.callbacks.OnAudio != nil {
			c.callbacks.OnAudio(e)
		}

	case protocol.Interruption:
		c.countEvent("interruption")
		c.partial.Reset()
		c.partialActive = false
		c.discardStreamingMessage()
		c.forceListening()
		c.disableFeedback()
		if c.callbacks.OnInterruption != nil {
			c.callbacks.OnInterruption(e.EventID)
		}

	case protocol.VADScore:
		c.countEvent("vad_score")
		if c.callbacks.OnVADScore != nil {
			c.callbacks.OnVADScore(e.Score)
		}

	case protocol.ClientToolCall:
		c.countEvent("client_tool_call")
		if _, ok := c.cfg.ClientTools[e.ToolName]; ok {
			go c.executeClientTool(e)
		} else if c.callbacks.OnClientToolCall != nil {
			c.mu.Lock()
			c.pendingTools[e.ToolCallID] = e
			c.mu.Unlock()
			c.callbacks.OnClientToolCall(e)
		} else {
			c.countToolCall(e.ToolName, "unregistered")
			c.logger.Warn("agent requested unregistered tool", "tool", e.ToolName)
			if e.ExpectsResponse {
				go c.publishToolResult(e.ToolCallID, fmt.Sprintf("tool %q is not registered", e.ToolName), true)
			}
		}

	case protocol.AgentToolRequest:
		c.countEvent("agent_tool_request")
		if c.callbacks.OnAgentToolRequest != nil {
			c.callbacks.OnAgentToolRequest(e)
		}

	case protocol.AgentToolResponse:
		c.countEvent("agent_tool_response")
		if c.callbacks.OnAgentToolResponse != nil {
			c.callbacks.OnAgentToolResponse(e)
		}
		if e.ToolName == endCallToolName && !e.IsError {
			go c.End()
		}

	case protocol.MCPToolCall:
		c.countEvent("mcp_tool_call")
		c.upsertMCPToolCall(e)
		if c.callbacks.OnMCPToolCall != nil {
			c.callbacks.OnMCPToolCall(e)
		}

	case protocol.MCPConnectionStatus:
		c.countEvent("mcp_connection_status")
		if c.callbacks.OnMCPConnectionStatus != nil {
			c.callbacks.OnMCPConnectionStatus(e.Integrations)
		}

	case protocol.ASRMetadata:
		c.countEvent("asr_metadata")

	case protocol.AgentError:
		c.countEvent("error")
		if c.callbacks.OnError != nil {
			c.callbacks.OnError(fmt.Errorf("agent error %s: %s", e.Code, e.Message))
		}
	}
}

// handleResponsePart assembles the streamed agent response. Each delta
// supersedes the previous partial with the concatenation so far; a
// delta with no preceding start opens a stream implicitly.
func (c *Conversation) handleResponsePart(part protocol.AgentChatResponsePart) {
	switch part.Part {
	case protocol.PartStart:
		c.partial.Reset()
		c.partialActive = true
		c.markAgentSpeaking()
		if part.Text != "" {
			c.partial.WriteString(part.Text)
			c.emitPartial()
		}
	case protocol.PartDelta:
		if !c.partialActive {
			c.partial.Reset()
			c.partialActive = true
		}
		c.partial.WriteString(part.Text)
		c.markAgentSpeaking()
		c.emitPartial()
	case protocol.PartStop:
		if part.Text != "" && c.partialActive {
			c.partial.WriteString(part.Text)
			c.emitPartial()
		}
		c.partialActive = false
		c.closeStreamingMessage()
	}
}

func (c *Conversation) emitPartial() {
	c.updateStreamingMessage(c.partial.String())
	if c.callbacks.OnAgentResponseUpdate != nil {
		c.callbacks.OnAgentResponseUpdate(c.partial.String())
	}
}

// appendMessage adds a finished transcript entry.
func (c *Conversation) appendMessage(role Role, text string) {
	c.mu.Lock()
	c.messages = append(c.messages, Message{Role: role, Text: text})
	c.mu.Unlock()
}

// updateStreamingMessage replaces the open streaming agent entry with
// the concatenation so far, opening one if none exists.
func (c *Conversation) updateStreamingMessage(text string) {
	c.mu.Lock()
	if c.partialMsgOpen && len(c.messages) > 0 {
		c.messages[len(c.messages)-1] = Message{Role: RoleAgent, Text: text}
	} else {
		c.messages = append(c.messages, Message{Role: RoleAgent, Text: text})
		c.partialMsgOpen = true
	}
	c.mu.Unlock()
}

func (c *Conversation) closeStreamingMessage() {
	c.mu.Lock()
	c.partialMsgOpen = false
	c.mu.Unlock()
}

// discardStreamingMessage drops the open partial entry after an
// interruption.
func (c *Conversation) discardStreamingMessage() {
	c.mu.Lock()
	if c.partialMsgOpen && len(c.messages) > 0 {
		c.messages = c.messages[:len(c.messages)-1]
	}
	c.partialMsgOpen = false
	c.mu.Unlock()
}

// finalizeAgentMessage records the complete utterance, replacing the
// streamed partial when one is open.
func (c *Conversation) finalizeAgentMessage(text string) {
	c.mu.Lock()
	if c.partialMsgOpen && len(c.messages) > 0 {
		c.messages[len(c.messages)-1] = Message{Role: RoleAgent, Text: text}
	} else {
		c.messages = append(c.messages, Message{Role: RoleAgent, Text: text})
	}
	c.partialMsgOpen = false
	c.mu.Unlock()
}

// correctAgentMessage rewrites the most recent agent entry, e.g. after
// the server truncated an interrupted utterance.
func (c *Conversation) correctAgentMessage(text string) {
	c.mu.Lock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAgent {
			c.messages[i].Text = text
			break
		}
	}
	c.mu.Unlock()
}

// upsertMCPToolCall replaces the tracked call with the same ID, or
// appends it when it is new.
func (c *Conversation) upsertMCPToolCall(call protocol.MCPToolCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.mcpCalls {
		if existing.ToolCallID == call.ToolCallID {
			c.mcpCalls[i] = call
			return
		}
	}
	c.mcpCalls = append(c.mcpCalls, call)
}

// MCPToolCalls returns a snapshot of the server tool calls observed in
// this session, oldest first.
func (c *Conversation) MCPToolCalls() []protocol.MCPToolCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.MCPToolCall(nil), c.mcpCalls...)
}

// disableFeedback withdraws feedback availability, e.g. after the
// rated-candidate response was interrupted.
func (c *Conversation) disableFeedback() {
	c.mu.Lock()
	changed := c.canFeedback
	c.canFeedback = false
	c.mu.Unlock()
	if changed && c.callbacks.OnCanSendFeedbackChange != nil {
		c.callbacks.OnCanSendFeedbackChange(false)
	}
}

func (c *Conversation) noteAgentEvent(eventID int64) {
	c.mu.Lock()
	changed := false
	if eventID > c.lastFeedbackEventID && !c.canFeedback {
		c.canFeedback = true
		changed = true
	}
	if eventID > c.lastAgentEventID {
		c.lastAgentEventID = eventID
	}
	c.mu.Unlock()
	if changed && c.callbacks.OnCanSendFeedbackChange != nil {
		c.callbacks.OnCanSendFeedbackChange(true)
	}
}

// executeClientTool runs one registered tool handler and, when the
// agent expects one, publishes the result.
func (c *Conversation) executeClientTool(call protocol.ClientToolCall) {
	c.mu.Lock()
	c.pendingTools[call.ToolCallID] = call
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pendingTools, call.ToolCallID)
		c.mu.Unlock()
	}()

	handler := c.cfg.ClientTools[call.ToolName]
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout*6)
	defer cancel()
	result, err := handler(ctx, call.Parameters)
	if err != nil {
		c.countToolCall(call.ToolName, "error")
		if call.ExpectsResponse {
			c.publishToolResult(call.ToolCallID, err.Error(), true)
		}
		return
	}
	c.countToolCall(call.ToolName, "ok")
	if call.ExpectsResponse {
		c.publishToolResult(call.ToolCallID, result, false)
	}
}

func (c *Conversation) publishToolResult(toolCallID string, result any, isError bool) {
	err := c.publish(protocol.ClientToolResult{
		ToolCallID: toolCallID,
		Result:     result,
		IsError:    isError,
	})
	if err != nil {
		c.logger.Warn("tool result publish failed", "tool_call_id", toolCallID, "err", err)
	}
}

func (c *Conversation) publish(ev protocol.Outgoing) error {
	payload, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return c.manager.PublishData(ctx, payload)
}

// handleAgentLeft ends the session when the agent abandons an active
// room. Departures during startup are left to the readiness detector,
// which rearms for a rejoin.
func (c *Conversation) handleAgentLeft() {
	c.mu.Lock()
	active := c.status == StatusActive
	c.mu.Unlock()
	if !active {
		return
	}
	c.handleTransportDrop(ErrAgentDeparted)
	c.manager.Disconnect()
}

func (c *Conversation) handleTransportDrop(reason error) {
	c.mu.Lock()
	terminal := c.status == StatusEnded || c.status == StatusError
	c.mu.Unlock()
	if terminal {
		return
	}
	c.setStatus(StatusError)
	c.shutdown()
	if c.callbacks.OnDisconnect != nil {
		c.callbacks.OnDisconnect(reason)
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ActiveConversations.Dec()
	}
}

func (c *Conversation) countEvent(name string) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ConversationEvents.WithLabelValues(name).Inc()
	}
}

func (c *Conversation) countToolCall(tool, outcome string) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ClientToolCalls.WithLabelValues(tool, outcome).Inc()
	}
}
