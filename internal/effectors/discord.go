// Package effectors executes queued actions against the outside world. The
// Discord effector polls the outbox and delivers send_message actions, with
// bounded retry for transient failures.
package effectors

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/doppelbot/doppel/internal/logging"
	"github.com/doppelbot/doppel/internal/types"
)

const (
	// DefaultMaxRetryDuration bounds how long a failing action is retried
	DefaultMaxRetryDuration = 5 * time.Minute

	maxBackoff = 60 * time.Second

	// Discord caps message length at 2000 characters
	maxMessageLen = 2000
)

// retryState tracks backoff for one failing action
type retryState struct {
	attempts     int
	firstFailure time.Time
	nextRetry    time.Time
}

// DiscordEffector sends messages to Discord
type DiscordEffector struct {
	session          *discordgo.Session
	pollInterval     time.Duration
	maxRetryDuration time.Duration
	getActions       func() []*types.Action
	markComplete     func(id string)
	markFailed       func(id string)

	retryMu     sync.Mutex
	retryStates map[string]*retryState

	onError func(actionID, actionType, errMsg string)
	onRetry func(actionID, actionType, errMsg string, attempt int, nextRetry time.Duration)

	stopChan chan struct{}
}

// NewDiscordEffector creates a Discord effector sharing the sense's session
func NewDiscordEffector(session *discordgo.Session, getActions func() []*types.Action, markComplete, markFailed func(id string)) *DiscordEffector {
	return &DiscordEffector{
		session:          session,
		pollInterval:     100 * time.Millisecond,
		maxRetryDuration: DefaultMaxRetryDuration,
		getActions:       getActions,
		markComplete:     markComplete,
		markFailed:       markFailed,
		retryStates:      make(map[string]*retryState),
		stopChan:         make(chan struct{}),
	}
}

// SetOnError registers a callback for permanent action failures
func (e *DiscordEffector) SetOnError(callback func(actionID, actionType, errMsg string)) {
	e.onError = callback
}

// SetOnRetry registers a callback for scheduled retries
func (e *DiscordEffector) SetOnRetry(callback func(actionID, actionType, errMsg string, attempt int, nextRetry time.Duration)) {
	e.onRetry = callback
}

// SetMaxRetryDuration overrides the retry window
func (e *DiscordEffector) SetMaxRetryDuration(d time.Duration) {
	e.maxRetryDuration = d
}

// Start begins polling the outbox for actions
func (e *DiscordEffector) Start() {
	go e.pollLoop()
	logging.Info("discord-effector", "started")
}

// Stop halts the effector
func (e *DiscordEffector) Stop() {
	close(e.stopChan)
}

func (e *DiscordEffector) pollLoop() {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.processActions()
		}
	}
}

func (e *DiscordEffector) processActions() {
	now := time.Now()
	for _, action := range e.getActions() {
		if action.Effector != "discord" || action.Status != "pending" {
			continue
		}
		if !e.shouldRetryNow(action.ID, now) {
			continue
		}

		if err := e.executeAction(action); err != nil {
			if !e.handleActionError(action, err, now) {
				e.markFailed(action.ID)
			}
			continue
		}

		e.clearRetryState(action.ID)
		e.markComplete(action.ID)
		logging.Debug("discord-effector", "completed action %s (%s)", action.ID, action.Type)
	}
}

func (e *DiscordEffector) executeAction(action *types.Action) error {
	switch action.Type {
	case "send_message":
		return e.sendMessage(action)
	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

func (e *DiscordEffector) sendMessage(action *types.Action) error {
	channelID, ok := action.Payload["channel_id"].(string)
	if !ok {
		return fmt.Errorf("missing channel_id")
	}

	content, ok := action.Payload["content"].(string)
	if !ok {
		return fmt.Errorf("missing content")
	}

	for _, chunk := range chunkMessage(content, maxMessageLen) {
		if _, err := e.session.ChannelMessageSend(channelID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// shouldRetryNow reports whether the action is outside any backoff window
func (e *DiscordEffector) shouldRetryNow(actionID string, now time.Time) bool {
	e.retryMu.Lock()
	defer e.retryMu.Unlock()

	state, ok := e.retryStates[actionID]
	if !ok {
		return true
	}
	return !now.Before(state.nextRetry)
}

// handleActionError schedules a retry with exponential backoff, or reports a
// permanent failure. Returns true when a retry was scheduled.
func (e *DiscordEffector) handleActionError(action *types.Action, err error, now time.Time) bool {
	if isNonRetryableError(err) {
		e.clearRetryState(action.ID)
		e.reportError(action, err)
		return false
	}

	e.retryMu.Lock()
	state, ok := e.retryStates[action.ID]
	if !ok {
		state = &retryState{firstFailure: now}
		e.retryStates[action.ID] = state
	}

	if now.Sub(state.firstFailure) > e.maxRetryDuration {
		delete(e.retryStates, action.ID)
		e.retryMu.Unlock()
		e.reportError(action, err)
		return false
	}

	state.attempts++
	backoff := time.Duration(1<<(state.attempts-1)) * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	state.nextRetry = now.Add(backoff)
	attempts := state.attempts
	e.retryMu.Unlock()

	logging.Warn("discord-effector", "action %s failed (attempt %d), retrying in %s: %v",
		action.ID, attempts, backoff, err)
	if e.onRetry != nil {
		e.onRetry(action.ID, action.Type, err.Error(), attempts, backoff)
	}
	return true
}

func (e *DiscordEffector) clearRetryState(actionID string) {
	e.retryMu.Lock()
	delete(e.retryStates, actionID)
	e.retryMu.Unlock()
}

func (e *DiscordEffector) reportError(action *types.Action, err error) {
	logging.Warn("discord-effector", "action %s failed permanently: %v", action.ID, err)
	if e.onError != nil {
		e.onError(action.ID, action.Type, err.Error())
	}
}

// isNonRetryableError reports whether the error is a client-side Discord
// rejection that retrying cannot fix
func isNonRetryableError(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	if !ok || restErr.Response == nil {
		return false
	}
	code := restErr.Response.StatusCode
	return code >= 400 && code < 500
}

// chunkMessage splits content into pieces within Discord's length limit,
// preferring paragraph, line, then word boundaries
func chunkMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}

	var chunks []string
	for len(content) > maxLen {
		pt := findSplitPoint(content, maxLen)
		chunks = append(chunks, content[:pt])
		content = content[pt:]
	}
	if content != "" {
		chunks = append(chunks, content)
	}
	return chunks
}

// findSplitPoint picks where to cut, never below maxLen/2 for a natural break
func findSplitPoint(content string, maxLen int) int {
	if len(content) <= maxLen {
		return len(content)
	}
	window := content[:maxLen]

	if idx := strings.LastIndex(window, "\n\n"); idx > maxLen/2 {
		return idx + 2
	}
	if idx := strings.LastIndex(window, "\n"); idx > maxLen/2 {
		return idx + 1
	}
	if idx := strings.LastIndex(window, " "); idx > maxLen/2 {
		return idx + 1
	}
	return maxLen
}
