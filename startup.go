package auricle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/auricle-ai/auricle-go/protocol"
	"github.com/auricle-ai/auricle-go/transport"
)

// StartSession resolves credentials, joins the room, waits for the
// agent, performs the init handshake, and returns an active
// Conversation. On failure it returns a *StartupError naming the phase
// that failed and carrying the timings collected so far; the room is
// left disconnected.
func StartSession(ctx context.Context, cfg SessionConfig, callbacks Callbacks) (*Conversation, error) {
	if cfg.Room == nil {
		return nil, errors.New("auricle: SessionConfig.Room is required")
	}
	if cfg.ConnectionDetails == nil && cfg.Tokens == nil {
		return nil, errors.New("auricle: SessionConfig needs Tokens or ConnectionDetails")
	}
	cfg = cfg.withDefaults()

	c := newConversation(cfg, callbacks)
	if err := c.start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conversation) start(ctx context.Context) error {
	c.mu.Lock()
	switch c.status {
	case StatusIdle:
	case StatusEnded:
		c.resetForRestartLocked()
	default:
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.mu.Unlock()

	started := time.Now()
	var metrics StartupMetrics
	fail := func(phase StartupPhase, err error) error {
		metrics.Total = time.Since(started)
		c.setStatus(StatusError)
		c.shutdown()
		c.manager.Disconnect()
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.StartupFailures.WithLabelValues(string(phase)).Inc()
		}
		return &StartupError{Phase: phase, Metrics: metrics, Err: err}
	}

	c.setStatus(StatusConnecting)
	c.setPhase(PhaseResolvingToken)

	// Token resolution and microphone permission run in parallel; both
	// must succeed before the room is touched.
	var (
		details  transport.ConnectionDetails
		tokenErr error
		micErr   error
		wg       sync.WaitGroup
	)
	wg.Add(2)
	tokenStart := time.Now()
	go func() {
		defer wg.Done()
		if c.cfg.ConnectionDetails != nil {
			details = *c.cfg.ConnectionDetails
			return
		}
		details, tokenErr = c.cfg.Tokens.FetchConnectionDetails(ctx, c.cfg.AgentID, c.cfg.ParticipantName)
	}()
	go func() {
		defer wg.Done()
		if c.cfg.TextOnly {
			return
		}
		micStart := time.Now()
		micErr = c.cfg.Microphone.Request(ctx)
		metrics.MicrophonePermission = time.Since(micStart)
	}()
	wg.Wait()
	metrics.TokenResolution = time.Since(tokenStart)

	// Cancellation surfaces as cancellation, not as a startup failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		fail(PhaseResolvingToken, ctxErr)
		return ctxErr
	}

	if micErr != nil {
		return fail(PhaseResolvingToken, &MicrophoneError{Err: micErr})
	}
	if tokenErr != nil {
		return fail(PhaseResolvingToken, tokenErr)
	}

	c.setPhase(PhaseConnectingRoom)
	roomStart := time.Now()
	err := c.manager.Connect(ctx, details)
	metrics.RoomConnect = time.Since(roomStart)
	if err != nil {
		return fail(PhaseConnectingRoom, &ConnectionError{
			Detail:           fmt.Sprintf("room connect failed: %v", err),
			LocalNetworkHint: isLocalNetworkURL(details.ServerURL),
			Err:              err,
		})
	}

	if !c.cfg.TextOnly {
		if micErr := c.manager.SetMicrophoneEnabled(ctx, true); micErr != nil {
			if !c.cfg.ContinueWithoutMicrophone {
				return fail(PhaseConnectingRoom, &MicrophoneError{Err: micErr})
			}
			c.logger.Warn("continuing without microphone", "err", micErr)
		}
	}

	// Routing starts now so pings and metadata arriving during startup
	// are handled.
	go c.runLoop()

	c.setPhase(PhaseWaitingForAgent)
	readyStart := time.Now()
	err = c.manager.WaitForAgentReady(ctx, c.cfg.AgentReadyTimeout)
	metrics.AgentReadyWait = time.Since(readyStart)
	switch {
	case err == nil:
		metrics.AgentReadyViaGraceTimeout = c.manager.ReadySource() == transport.ReadyViaGrace
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.ObserveAgentReadyLatency(metrics.AgentReadyWait)
		}
	case errors.Is(err, ErrAgentTimeout) && c.cfg.ProceedOnAgentTimeout:
		metrics.AgentReadyTimedOut = true
		c.logger.Warn("agent not ready in time, continuing", "timeout", c.cfg.AgentReadyTimeout)
	default:
		metrics.AgentReadyTimedOut = errors.Is(err, ErrAgentTimeout)
		return fail(PhaseWaitingForAgent, err)
	}
	c.setPhase(PhaseAgentReady)

	if c.cfg.PostReadyDelay > 0 {
		select {
		case <-time.After(c.cfg.PostReadyDelay):
			metrics.PostReadyDelay = c.cfg.PostReadyDelay
		case <-ctx.Done():
			fail(PhaseAgentReady, ctx.Err())
			return ctx.Err()
		}
	}

	c.setPhase(PhaseSendingConversationInit)
	initStart := time.Now()
	md, attempts, err := c.initHandshake(ctx)
	metrics.InitHandshake = time.Since(initStart)
	metrics.InitAttempts = attempts
	if err != nil {
		return fail(PhaseSendingConversationInit, err)
	}

	metrics.Total = time.Since(started)

	c.mu.Lock()
	if c.status != StatusConnecting {
		c.mu.Unlock()
		return fail(PhaseSendingConversationInit, ErrConversationEnded)
	}
	c.status = StatusActive
	c.startupMetrics = metrics
	pendingMute := c.pendingMute
	c.pendingMute = nil
	if pendingMute != nil {
		c.muted = *pendingMute
	}
	c.mu.Unlock()
	if c.callbacks.OnStatusChange != nil {
		c.callbacks.OnStatusChange(StatusActive)
	}
	c.setPhase(PhaseActive)

	if pendingMute != nil && *pendingMute {
		muteCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := c.manager.SetMicrophoneEnabled(muteCtx, false); err != nil {
			c.logger.Warn("applying buffered mute failed", "err", err)
		}
		cancel()
	}

	if c.callbacks.OnConnect != nil {
		c.callbacks.OnConnect(md.ConversationID)
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ActiveConversations.Inc()
		c.cfg.Metrics.ObserveStartupLatency(time.Since(started))
	}
	c.logger.Info("conversation active",
		"conversation_id", md.ConversationID,
		"init_attempts", attempts,
		"startup", time.Since(started))
	return nil
}

// initHandshake publishes the conversation-init payload until the
// server acknowledges with conversation metadata. One attempt is made
// per entry in the retry delay schedule, pausing by that entry's delay
// first.
func (c *Conversation) initHandshake(ctx context.Context) (protocol.ConversationMetadata, int, error) {
	init := protocol.ConversationInit{
		ConfigOverride:   c.cfg.ConfigOverride,
		CustomLLMExtra:   c.cfg.CustomLLMExtra,
		DynamicVariables: c.cfg.DynamicVariables,
	}

	attempts := 0
	for _, delay := range c.cfg.InitRetryDelays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return protocol.ConversationMetadata{}, attempts, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return protocol.ConversationMetadata{}, attempts, err
		}

		attempts++
		if c.callbacks.OnInitAttempt != nil {
			c.callbacks.OnInitAttempt(attempts)
		}
		if err := c.publish(init); err != nil {
			return protocol.ConversationMetadata{}, attempts, fmt.Errorf("publish conversation init: %w", err)
		}

		select {
		case md := <-c.metadataCh:
			return md, attempts, nil
		case <-time.After(c.cfg.InitAttemptTimeout):
		case <-ctx.Done():
			return protocol.ConversationMetadata{}, attempts, ctx.Err()
		}
	}
	return protocol.ConversationMetadata{}, attempts,
		fmt.Errorf("conversation init not acknowledged after %d attempts", attempts)
}

func (c *Conversation) setPhase(phase StartupPhase) {
	if c.callbacks.OnStartupPhaseChange != nil {
		c.callbacks.OnStartupPhaseChange(phase)
	}
}
