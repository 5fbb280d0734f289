package effectors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/doppelbot/doppel/internal/logging"
	"github.com/doppelbot/doppel/internal/types"
)

// DryRunEffector captures actions to a JSONL file instead of sending them.
// Used to preview what the bot would say without touching Discord.
type DryRunEffector struct {
	outputPath   string
	pollInterval time.Duration
	getActions   func() []*types.Action
	markComplete func(id string)

	mu       sync.Mutex
	stopChan chan struct{}
}

// NewDryRunEffector creates a dry-run effector writing under statePath
func NewDryRunEffector(statePath string, getActions func() []*types.Action, markComplete func(id string)) *DryRunEffector {
	return &DryRunEffector{
		outputPath:   filepath.Join(statePath, "dryrun_output.jsonl"),
		pollInterval: 100 * time.Millisecond,
		getActions:   getActions,
		markComplete: markComplete,
		stopChan:     make(chan struct{}),
	}
}

// Start begins polling the outbox for actions
func (e *DryRunEffector) Start() {
	go e.pollLoop()
	logging.Info("dryrun-effector", "started, capturing to %s", e.outputPath)
}

// Stop halts the effector
func (e *DryRunEffector) Stop() {
	close(e.stopChan)
}

func (e *DryRunEffector) pollLoop() {
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

func (e *DryRunEffector) processActions() {
	for _, action := range e.getActions() {
		if action.Status != "pending" {
			continue
		}
		if err := e.capture(action); err != nil {
			logging.Warn("dryrun-effector", "failed to capture action %s: %v", action.ID, err)
			continue
		}
		e.markComplete(action.ID)

		if content, ok := action.Payload["content"].(string); ok {
			logging.Info("dryrun-effector", "would send: %s", logging.Truncate(content, 80))
		}
	}
}

func (e *DryRunEffector) capture(action *types.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.OpenFile(e.outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(action)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}
