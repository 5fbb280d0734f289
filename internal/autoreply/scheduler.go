// Package autoreply decides whether and when to autonomously send a styled
// reply on the owner's behalf. Per counterpart it runs a small state machine
// (disabled, idle, pending, cooling) with at most one live scheduled reply
// per target at any time.
package autoreply

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/doppelbot/doppel/internal/extract"
	"github.com/doppelbot/doppel/internal/logging"
	"github.com/doppelbot/doppel/internal/profile"
	"github.com/doppelbot/doppel/internal/types"
)

// State of the scheduler for one counterpart.
type State string

const (
	StateDisabled State = "disabled"
	StateIdle     State = "idle"
	StatePending  State = "pending"
	StateCooling  State = "cooling"
)

// Sender delivers outbound text. The core treats sends as fire-and-forget;
// failures are logged and never retried here.
type Sender interface {
	Send(channelID, text string) error
}

// Synthesizer drafts a styled reply for an incoming message.
type Synthesizer interface {
	Synthesize(incoming extract.MessageFeatures, p *profile.StyleProfile, context []string) string
}

// ProfileSource loads the owner's style profile for reply styling.
type ProfileSource interface {
	Load(userID string) (*profile.StyleProfile, error)
}

// Config holds gating and timing knobs.
type Config struct {
	CommandPrefix   string
	BaseRate        float64
	SkipProbability float64
	MaxRate         float64
	MinDelay        time.Duration
	MaxDelay        time.Duration
	DelayFloor      time.Duration
	DelayCeil       time.Duration
	Cooldown        time.Duration
	BurstCap        int

	// referenceInterval anchors the counterpart typing-speed scaling
	ReferenceInterval time.Duration
}

// DefaultConfig mirrors the shipped defaults.
func DefaultConfig() Config {
	return Config{
		CommandPrefix:     "!",
		BaseRate:          0.6,
		SkipProbability:   0.1,
		MaxRate:           0.95,
		MinDelay:          5 * time.Second,
		MaxDelay:          15 * time.Second,
		DelayFloor:        2 * time.Second,
		DelayCeil:         30 * time.Second,
		Cooldown:          2 * time.Minute,
		BurstCap:          3,
		ReferenceInterval: 30 * time.Second,
	}
}

// ScheduledReply is the single outstanding delayed send for one target.
type ScheduledReply struct {
	TargetID  string
	ChannelID string
	Trigger   types.Message
	FireAt    time.Time

	timer     *time.Timer
	cancelled bool
}

// Scheduler owns the per-counterpart auto-reply state machines.
type Scheduler struct {
	mu sync.Mutex

	cfg       Config
	rng       *rand.Rand
	extractor *extract.Extractor
	synth     Synthesizer
	profiles  ProfileSource
	send      Sender
	ownerID   string

	defaultOn   bool
	enabled     map[string]bool
	pending     map[string]*ScheduledReply
	lastFired   map[string]time.Time
	fires       map[string][]time.Time // send times, for the burst cap
	patterns    map[string]*Pattern
	lastChannel map[string]string

	lastProactive map[string]time.Time
	stopProactive chan struct{}
}

// New creates a scheduler. The random source is injectable so tests can
// seed determinism.
func New(cfg Config, rng *rand.Rand, ownerID string, profiles ProfileSource, synth Synthesizer, send Sender) *Scheduler {
	if cfg.ReferenceInterval <= 0 {
		cfg.ReferenceInterval = 30 * time.Second
	}
	return &Scheduler{
		cfg:           cfg,
		rng:           rng,
		extractor:     extract.NewExtractor(),
		synth:         synth,
		profiles:      profiles,
		send:          send,
		ownerID:       ownerID,
		enabled:       make(map[string]bool),
		pending:       make(map[string]*ScheduledReply),
		lastFired:     make(map[string]time.Time),
		fires:         make(map[string][]time.Time),
		patterns:      make(map[string]*Pattern),
		lastChannel:   make(map[string]string),
		lastProactive: make(map[string]time.Time),
	}
}

// Enable turns auto-reply on for a counterpart.
func (s *Scheduler) Enable(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[userID] = true
	logging.Info("autoreply", "enabled for %s", userID)
}

// Disable turns auto-reply off and cancels any pending reply. The pending
// entry's scheduled send must not occur after this returns.
func (s *Scheduler) Disable(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[userID] = false
	s.cancelPendingLocked(userID)
	logging.Info("autoreply", "disabled for %s", userID)
}

// EnableAll turns auto-reply on for every counterpart, clearing per-user
// overrides.
func (s *Scheduler) EnableAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultOn = true
	s.enabled = make(map[string]bool)
	logging.Info("autoreply", "enabled for all counterparts")
}

// DisableAll turns auto-reply off everywhere and cancels all pending
// replies.
func (s *Scheduler) DisableAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultOn = false
	s.enabled = make(map[string]bool)
	for userID := range s.pending {
		s.cancelPendingLocked(userID)
	}
	logging.Info("autoreply", "disabled for all counterparts")
}

// Enabled reports whether auto-reply is on for a counterpart.
func (s *Scheduler) Enabled(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabledLocked(userID)
}

func (s *Scheduler) enabledLocked(userID string) bool {
	if on, ok := s.enabled[userID]; ok {
		return on
	}
	return s.defaultOn
}

// StateFor derives the current state for a counterpart.
func (s *Scheduler) StateFor(userID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.enabledLocked(userID):
		return StateDisabled
	case s.pending[userID] != nil:
		return StatePending
	case time.Since(s.lastFired[userID]) < s.cfg.Cooldown:
		return StateCooling
	default:
		return StateIdle
	}
}

// Observe feeds one counterpart message through the gating policy and, on
// acceptance, schedules a delayed styled reply. Creating a new entry for a
// target cancels any prior pending entry for that target.
func (s *Scheduler) Observe(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pattern := s.patternLocked(msg.SenderID)
	pattern.Record(msg)
	s.lastChannel[msg.SenderID] = msg.ChannelID

	if !s.enabledLocked(msg.SenderID) {
		return
	}
	if !s.acceptLocked(msg, pattern) {
		return
	}

	delay := s.computeDelayLocked(pattern)
	s.scheduleLocked(msg, delay)
}

// scheduleLocked creates the pending entry and arms its timer.
func (s *Scheduler) scheduleLocked(msg types.Message, delay time.Duration) {
	s.cancelPendingLocked(msg.SenderID)

	entry := &ScheduledReply{
		TargetID:  msg.SenderID,
		ChannelID: msg.ChannelID,
		Trigger:   msg,
		FireAt:    time.Now().Add(delay),
	}
	entry.timer = time.AfterFunc(delay, func() { s.fire(entry) })
	s.pending[msg.SenderID] = entry
	logging.Info("autoreply", "reply to %s scheduled in %s", msg.SenderID, delay.Round(time.Millisecond))
}

func (s *Scheduler) cancelPendingLocked(userID string) {
	if entry := s.pending[userID]; entry != nil {
		entry.cancelled = true
		entry.timer.Stop()
		delete(s.pending, userID)
		logging.Debug("autoreply", "cancelled pending reply to %s", userID)
	}
}

// fire runs on the timer goroutine. It re-checks cancellation and enablement
// immediately before the side-effecting send: disabling mid-flight must win.
func (s *Scheduler) fire(entry *ScheduledReply) {
	s.mu.Lock()
	if entry.cancelled || !s.enabledLocked(entry.TargetID) {
		s.mu.Unlock()
		return
	}
	delete(s.pending, entry.TargetID)
	s.lastFired[entry.TargetID] = time.Now()
	s.fires[entry.TargetID] = append(s.fires[entry.TargetID], time.Now())

	text := s.composeLocked(entry)
	s.mu.Unlock()

	if text == "" {
		return
	}
	if err := s.send.Send(entry.ChannelID, text); err != nil {
		// Dropped, not retried: a late duplicate is worse than a miss.
		logging.Warn("autoreply", "send to %s failed: %v", entry.TargetID, err)
		return
	}
	logging.Info("autoreply", "sent to %s: %s", entry.TargetID, logging.Truncate(text, 50))
}

// composeLocked synthesizes the styled reply text. Any failure defaults to
// "do not send".
func (s *Scheduler) composeLocked(entry *ScheduledReply) string {
	p, err := s.profiles.Load(s.ownerID)
	if err != nil {
		logging.Warn("autoreply", "profile load failed, using defaults: %v", err)
		p = profile.New(s.ownerID)
	}
	features := s.extractor.Extract(entry.Trigger.Text)
	return s.synth.Synthesize(features, p, nil)
}

// Stop cancels every pending reply and the proactive loop, for shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for userID := range s.pending {
		s.cancelPendingLocked(userID)
	}
	stop := s.stopProactive
	s.stopProactive = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// PendingCount reports how many replies are currently scheduled.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// isCommand reports whether the message is addressed to the bot itself.
func (s *Scheduler) isCommand(text string) bool {
	return s.cfg.CommandPrefix != "" && strings.HasPrefix(strings.TrimSpace(text), s.cfg.CommandPrefix)
}
