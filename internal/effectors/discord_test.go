package effectors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/doppelbot/doppel/internal/types"
)

// newTestEffectorNoSession creates a DiscordEffector with no session (for retry logic tests)
func newTestEffectorNoSession() *DiscordEffector {
	return &DiscordEffector{
		pollInterval:     100 * time.Millisecond,
		maxRetryDuration: DefaultMaxRetryDuration,
		retryStates:      make(map[string]*retryState),
		stopChan:         make(chan struct{}),
	}
}

func newTestAction(id string) *types.Action {
	return &types.Action{
		ID:       id,
		Effector: "discord",
		Type:     "send_message",
		Payload:  map[string]any{"channel_id": "123", "content": "hello"},
	}
}

// --- isNonRetryableError ---

func TestIsNonRetryableError_GenericError(t *testing.T) {
	if isNonRetryableError(errors.New("network timeout")) {
		t.Error("generic error should be retryable")
	}
}

func TestIsNonRetryableError_4xxStatus(t *testing.T) {
	for _, code := range []int{400, 401, 403, 404, 429} {
		err := &discordgo.RESTError{
			Response: &http.Response{StatusCode: code},
		}
		if !isNonRetryableError(err) {
			t.Errorf("HTTP %d should be non-retryable", code)
		}
	}
}

func TestIsNonRetryableError_5xxStatus(t *testing.T) {
	for _, code := range []int{500, 502, 503} {
		err := &discordgo.RESTError{
			Response: &http.Response{StatusCode: code},
		}
		if isNonRetryableError(err) {
			t.Errorf("HTTP %d should be retryable (server error)", code)
		}
	}
}

func TestIsNonRetryableError_NilResponse(t *testing.T) {
	err := &discordgo.RESTError{Response: nil}
	if isNonRetryableError(err) {
		t.Error("RESTError with nil response should be retryable")
	}
}

// --- handleActionError ---

func TestHandleActionError_RetryableFirstAttempt(t *testing.T) {
	e := newTestEffectorNoSession()
	action := newTestAction("act-1")
	now := time.Now()

	retried := e.handleActionError(action, errors.New("network error"), now)

	if !retried {
		t.Error("expected action to be scheduled for retry")
	}

	e.retryMu.Lock()
	state := e.retryStates["act-1"]
	e.retryMu.Unlock()

	if state == nil {
		t.Fatal("expected retry state to be recorded")
	}
	if state.attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", state.attempts)
	}
	if got := state.nextRetry.Sub(now); got != time.Second {
		t.Errorf("expected 1s backoff, got %v", got)
	}
}

func TestHandleActionError_ExponentialBackoff(t *testing.T) {
	e := newTestEffectorNoSession()
	action := newTestAction("act-2")
	now := time.Now()

	expectedBackoffs := []time.Duration{1, 2, 4, 8, 16, 32, 60, 60} // seconds, capped at 60s
	for i, expected := range expectedBackoffs {
		if !e.handleActionError(action, errors.New("transient"), now) {
			t.Fatalf("attempt %d: expected retry", i+1)
		}

		e.retryMu.Lock()
		state := e.retryStates["act-2"]
		e.retryMu.Unlock()

		if got := state.nextRetry.Sub(now); got != expected*time.Second {
			t.Errorf("attempt %d: expected %vs backoff, got %v", i+1, expected, got)
		}
	}
}

func TestHandleActionError_MaxDurationExceeded(t *testing.T) {
	e := newTestEffectorNoSession()
	e.SetMaxRetryDuration(100 * time.Millisecond)
	action := newTestAction("act-3")

	var permanentErr string
	e.SetOnError(func(actionID, actionType, errMsg string) {
		permanentErr = errMsg
	})

	now := time.Now()
	if !e.handleActionError(action, errors.New("transient"), now) {
		t.Error("first attempt should schedule retry")
	}

	later := now.Add(200 * time.Millisecond)
	if e.handleActionError(action, errors.New("transient"), later) {
		t.Error("after max duration, action should not be retried")
	}
	if permanentErr == "" {
		t.Error("expected onError callback to be called")
	}

	e.retryMu.Lock()
	_, exists := e.retryStates["act-3"]
	e.retryMu.Unlock()
	if exists {
		t.Error("retry state should be cleared after permanent failure")
	}
}

func TestHandleActionError_NonRetryable(t *testing.T) {
	e := newTestEffectorNoSession()
	action := newTestAction("act-4")

	var errorCalled bool
	e.SetOnError(func(actionID, actionType, errMsg string) {
		errorCalled = true
	})

	restErr := &discordgo.RESTError{
		Response: &http.Response{StatusCode: 403},
	}
	if e.handleActionError(action, restErr, time.Now()) {
		t.Error("non-retryable error should not be retried")
	}
	if !errorCalled {
		t.Error("expected onError callback to be called")
	}
}

func TestHandleActionError_RetryCallback(t *testing.T) {
	e := newTestEffectorNoSession()
	action := newTestAction("act-5")

	var retryAttempt int
	e.SetOnRetry(func(actionID, actionType, errMsg string, attempt int, nextRetry time.Duration) {
		retryAttempt = attempt
	})

	e.handleActionError(action, errors.New("transient"), time.Now())

	if retryAttempt != 1 {
		t.Errorf("expected attempt=1, got %d", retryAttempt)
	}
}

// --- shouldRetryNow ---

func TestShouldRetryNow_FirstAttempt(t *testing.T) {
	e := newTestEffectorNoSession()
	if !e.shouldRetryNow("new-action", time.Now()) {
		t.Error("first attempt with no state should allow retry")
	}
}

func TestShouldRetryNow_InBackoff(t *testing.T) {
	e := newTestEffectorNoSession()
	now := time.Now()

	e.handleActionError(newTestAction("act-6"), errors.New("transient"), now)

	if e.shouldRetryNow("act-6", now.Add(100*time.Millisecond)) {
		t.Error("should not retry while in backoff period")
	}
}

func TestShouldRetryNow_BackoffExpired(t *testing.T) {
	e := newTestEffectorNoSession()
	now := time.Now()

	e.handleActionError(newTestAction("act-7"), errors.New("transient"), now)

	if !e.shouldRetryNow("act-7", now.Add(2*time.Second)) {
		t.Error("should retry after backoff period has expired")
	}
}

// --- chunkMessage ---

func TestChunkMessage_ShortMessage(t *testing.T) {
	chunks := chunkMessage("hello", 2000)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("expected single chunk, got %v", chunks)
	}
}

func TestChunkMessage_ExactLength(t *testing.T) {
	msg := strings.Repeat("a", 2000)
	if chunks := chunkMessage(msg, 2000); len(chunks) != 1 {
		t.Errorf("expected 1 chunk for exact max length, got %d", len(chunks))
	}
}

func TestChunkMessage_SplitOnParagraph(t *testing.T) {
	msg := strings.Repeat("a", 1500) + "\n\n" + strings.Repeat("b", 1500)
	if chunks := chunkMessage(msg, 2000); len(chunks) != 2 {
		t.Errorf("expected 2 chunks split on paragraph, got %d", len(chunks))
	}
}

func TestChunkMessage_SplitOnLine(t *testing.T) {
	msg := strings.Repeat("a", 1500) + "\n" + strings.Repeat("b", 1500)
	if chunks := chunkMessage(msg, 2000); len(chunks) != 2 {
		t.Errorf("expected 2 chunks split on newline, got %d", len(chunks))
	}
}

func TestChunkMessage_SplitOnWord(t *testing.T) {
	msg := strings.Repeat("a", 1500) + " " + strings.Repeat("b", 1500)
	if chunks := chunkMessage(msg, 2000); len(chunks) != 2 {
		t.Errorf("expected 2 chunks split on space, got %d", len(chunks))
	}
}

func TestChunkMessage_AllChunksWithinLimit(t *testing.T) {
	// 5000 chars with no natural break points
	msg := strings.Repeat("x", 5000)
	chunks := chunkMessage(msg, 2000)

	for i, chunk := range chunks {
		if len(chunk) > 2000 {
			t.Errorf("chunk %d exceeds max length: %d", i, len(chunk))
		}
	}

	if rejoined := strings.Join(chunks, ""); rejoined != msg {
		t.Error("chunked content doesn't match original")
	}
}

func TestChunkMessage_EmptyString(t *testing.T) {
	chunks := chunkMessage("", 2000)
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("expected single empty chunk, got %v", chunks)
	}
}

// --- findSplitPoint ---

func TestFindSplitPoint_ShortContent(t *testing.T) {
	if pt := findSplitPoint("hello", 2000); pt != 5 {
		t.Errorf("expected 5, got %d", pt)
	}
}

func TestFindSplitPoint_ForcedSplitWhenNoBreaks(t *testing.T) {
	content := strings.Repeat("x", 3000)
	if pt := findSplitPoint(content, 2000); pt != 2000 {
		t.Errorf("expected forced split at 2000, got %d", pt)
	}
}
