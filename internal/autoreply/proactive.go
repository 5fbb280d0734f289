package autoreply

import (
	"time"

	"github.com/doppelbot/doppel/internal/logging"
)

const (
	proactiveTick  = 5 * time.Minute
	activityWindow = 6 * time.Hour
)

// checkInTemplate picks a default check-in for the hour of day.
func checkInTemplate(hour int) string {
	switch {
	case hour < 12:
		return "morning! how's it going?"
	case hour < 18:
		return "hey, how's your day going?"
	default:
		return "hey, how'd your day go?"
	}
}

// StartProactive launches a background loop that sends occasional check-in
// messages to enabled counterparts who have been quiet for a while. Off by
// default; callers opt in explicitly.
func (s *Scheduler) StartProactive(cooldown time.Duration) {
	s.mu.Lock()
	if s.stopProactive != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stopProactive = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(proactiveTick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.proactiveSweep(cooldown)
			}
		}
	}()
	logging.Info("autoreply", "proactive check-ins enabled (cooldown %s)", cooldown)
}

// proactiveSweep sends at most one check-in per eligible counterpart. A
// counterpart is eligible when auto-reply is on, they were active within the
// activity window but not in the last hour, nothing is pending for them, and
// the per-target proactive cooldown has passed.
func (s *Scheduler) proactiveSweep(cooldown time.Duration) {
	now := time.Now()

	s.mu.Lock()
	type target struct{ userID, channelID string }
	var targets []target
	for userID := range s.patterns {
		if !s.enabledLocked(userID) || s.pending[userID] != nil {
			continue
		}
		if now.Sub(s.lastProactive[userID]) < cooldown {
			continue
		}
		last := s.patternLocked(userID).LastSeen()
		if last.IsZero() {
			continue
		}
		quiet := now.Sub(last)
		if quiet < time.Hour || quiet > activityWindow {
			continue
		}
		channelID := s.lastChannel[userID]
		if channelID == "" {
			continue
		}
		s.lastProactive[userID] = now
		targets = append(targets, target{userID, channelID})
	}
	s.mu.Unlock()

	for _, t := range targets {
		text := s.styledCheckIn()
		if err := s.send.Send(t.channelID, text); err != nil {
			logging.Warn("autoreply", "proactive send to %s failed: %v", t.userID, err)
			continue
		}
		logging.Info("autoreply", "proactive check-in sent to %s", t.userID)
	}
}

// styledCheckIn renders the check-in in the owner's greeting style when a
// profile is available.
func (s *Scheduler) styledCheckIn() string {
	p, err := s.profiles.Load(s.ownerID)
	if err != nil || p == nil || len(p.ConversationStarters) == 0 {
		return checkInTemplate(time.Now().Hour())
	}
	s.mu.Lock()
	pick := p.ConversationStarters[s.rng.Intn(len(p.ConversationStarters))]
	s.mu.Unlock()
	return pick
}
