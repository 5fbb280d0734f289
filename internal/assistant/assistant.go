// Package assistant is the coordinator: it routes inbound messages to
// learning, gating, or command handling, and owns the single goroutine that
// mutates the style profile.
package assistant

import (
	"strings"
	"time"

	"github.com/doppelbot/doppel/internal/autoreply"
	"github.com/doppelbot/doppel/internal/config"
	"github.com/doppelbot/doppel/internal/extract"
	"github.com/doppelbot/doppel/internal/logging"
	"github.com/doppelbot/doppel/internal/profile"
	"github.com/doppelbot/doppel/internal/synth"
	"github.com/doppelbot/doppel/internal/types"
)

const inboxSize = 256

// Assistant wires the senses to the style engine and the auto-reply
// scheduler. All profile writes happen on its single run loop, so the
// read-modify-write on the owner's profile is never concurrent.
type Assistant struct {
	cfg       config.Config
	ownerID   string
	store     *profile.Store
	extractor *extract.Extractor
	updater   *profile.Updater
	synth     *synth.Synthesizer
	scheduler *autoreply.Scheduler
	send      autoreply.Sender

	inbox    chan types.Message
	stopChan chan struct{}
	done     chan struct{}

	startedAt time.Time
}

// New creates the assistant coordinator.
func New(cfg config.Config, ownerID string, store *profile.Store, syn *synth.Synthesizer, scheduler *autoreply.Scheduler, send autoreply.Sender) *Assistant {
	updater := profile.NewUpdater()
	updater.TemplateCap = cfg.Learning.TemplateCap
	updater.StarterCap = cfg.Learning.StarterCap
	updater.TopicCap = cfg.Learning.TopicCap

	return &Assistant{
		cfg:       cfg,
		ownerID:   ownerID,
		store:     store,
		extractor: extract.NewExtractor(),
		updater:   updater,
		synth:     syn,
		scheduler: scheduler,
		send:      send,
		inbox:     make(chan types.Message, inboxSize),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the run loop.
func (a *Assistant) Start() {
	a.startedAt = time.Now()
	go a.run()
	logging.Info("assistant", "started (owner %s)", a.ownerID)
}

// Stop shuts the run loop down and waits for it to drain.
func (a *Assistant) Stop() {
	close(a.stopChan)
	<-a.done
}

// HandleMessage is the sense callback. It never blocks the sense: when the
// inbox is full the message is dropped with a warning.
func (a *Assistant) HandleMessage(msg types.Message) {
	select {
	case a.inbox <- msg:
	default:
		logging.Warn("assistant", "inbox full, dropping message from %s", msg.SenderID)
	}
}

func (a *Assistant) run() {
	defer close(a.done)
	for {
		select {
		case <-a.stopChan:
			return
		case msg := <-a.inbox:
			a.dispatch(msg)
		}
	}
}

func (a *Assistant) dispatch(msg types.Message) {
	if a.isCommand(msg.Text) {
		// Only the owner steers the bot
		if msg.IsOwner {
			a.handleCommand(msg)
		}
		return
	}

	if msg.IsOwner {
		a.learn(msg)
		return
	}
	a.observe(msg)
}

// learn folds one owner message into the style profile.
func (a *Assistant) learn(msg types.Message) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	features := a.extractor.Extract(msg.Text)
	if err := a.store.LogMessage(msg.SenderID, msg.Text, features); err != nil {
		logging.Warn("assistant", "conversation log failed: %v", err)
	}

	p, err := a.store.Load(a.ownerID)
	if err != nil {
		logging.Warn("assistant", "profile load failed, skipping update: %v", err)
		return
	}
	a.updater.Apply(p, features)
	if err := a.store.Save(a.ownerID, p); err != nil {
		logging.Warn("assistant", "profile save failed: %v", err)
		return
	}
	logging.Debug("assistant", "learned from owner message (%d analyzed, confidence %.2f)",
		p.MessagesAnalyzed, p.ConfidenceScore)
}

// observe records a counterpart message and hands it to the gate.
func (a *Assistant) observe(msg types.Message) {
	features := a.extractor.Extract(msg.Text)
	if err := a.store.LogMessage(msg.SenderID, msg.Text, features); err != nil {
		logging.Warn("assistant", "conversation log failed: %v", err)
	}
	a.scheduler.Observe(msg)
}

func (a *Assistant) isCommand(text string) bool {
	return a.cfg.CommandPrefix != "" && strings.HasPrefix(strings.TrimSpace(text), a.cfg.CommandPrefix)
}

// reply sends command feedback through the outbox.
func (a *Assistant) reply(channelID, text string) {
	if err := a.send.Send(channelID, text); err != nil {
		logging.Warn("assistant", "reply failed: %v", err)
	}
}
