// Package memory holds the durable queues shared between the assistant core
// and its effectors. The outbox is a JSONL-backed action queue: the core
// enqueues sends, the effector polls and executes them, and a restart replays
// whatever never completed.
package memory

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doppelbot/doppel/internal/types"
)

// Outbox manages pending effector actions
type Outbox struct {
	mu      sync.RWMutex
	actions map[string]*types.Action
	path    string
}

// NewOutbox creates a new outbox backed by the given JSONL file
func NewOutbox(path string) *Outbox {
	return &Outbox{
		actions: make(map[string]*types.Action),
		path:    path,
	}
}

// EnqueueSend queues a send_message action and appends it to the log
func (o *Outbox) EnqueueSend(channelID, content string) (*types.Action, error) {
	action := &types.Action{
		ID:       uuid.NewString(),
		Effector: "discord",
		Type:     "send_message",
		Payload: map[string]any{
			"channel_id": channelID,
			"content":    content,
		},
	}
	return action, o.append(action)
}

// Send queues a message for delivery. Satisfies the scheduler's Sender.
func (o *Outbox) Send(channelID, content string) error {
	_, err := o.EnqueueSend(channelID, content)
	return err
}

func (o *Outbox) append(action *types.Action) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	action.Status = "pending"
	action.Timestamp = time.Now()
	o.actions[action.ID] = action

	file, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(action)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// Pending returns all pending actions
func (o *Outbox) Pending() []*types.Action {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]*types.Action, 0)
	for _, action := range o.actions {
		if action.Status == "pending" {
			result = append(result, action)
		}
	}
	return result
}

// MarkComplete marks an action as complete
func (o *Outbox) MarkComplete(id string) {
	o.setStatus(id, "complete")
}

// MarkFailed marks an action as failed
func (o *Outbox) MarkFailed(id string) {
	o.setStatus(id, "failed")
}

func (o *Outbox) setStatus(id, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if action, ok := o.actions[id]; ok {
		action.Status = status
	}
}

// CleanupCompleted removes completed actions older than maxAge
func (o *Outbox) CleanupCompleted(maxAge time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0
	for id, action := range o.actions {
		if action.Status == "complete" && action.Timestamp.Before(cutoff) {
			delete(o.actions, id)
			cleaned++
		}
	}
	return cleaned
}

// Load reads the outbox from its JSONL file. Later entries override earlier
// ones, so a rewritten status wins over the original append.
func (o *Outbox) Load() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	file, err := os.Open(o.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	o.actions = make(map[string]*types.Action)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var action types.Action
		if err := json.Unmarshal(scanner.Bytes(), &action); err != nil {
			continue // skip malformed lines
		}
		o.actions[action.ID] = &action
	}
	return scanner.Err()
}

// Save rewrites the JSONL file from current state, compacting the log
func (o *Outbox) Save() error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	file, err := os.Create(o.path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, action := range o.actions {
		data, err := json.Marshal(action)
		if err != nil {
			continue
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}
