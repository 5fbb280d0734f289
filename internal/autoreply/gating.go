package autoreply

import (
	"strings"
	"time"

	"github.com/doppelbot/doppel/internal/types"
)

const (
	questionBoost     = 0.15
	lengthBoost       = 0.1
	emotionBoost      = 0.1
	rapidFirePenalty  = 0.15
	rapidFireWindow   = time.Minute
	rapidFireMessages = 3
	longMessageWords  = 10
)

var emotionalKeywords = []string{
	"excited", "worried", "happy", "sad", "angry", "stressed",
	"nervous", "thrilled", "upset", "frustrated",
}

// AcceptProbability computes the chance of auto-replying to a message given
// how many messages the counterpart sent in the last minute. Exported for
// policy inspection; the clamp ceiling is the configured max rate.
func (s *Scheduler) AcceptProbability(text string, recentFromSender int) float64 {
	p := s.cfg.BaseRate
	lower := strings.ToLower(text)

	if strings.Contains(text, "?") {
		p += questionBoost
	}
	if len(strings.Fields(text)) > longMessageWords {
		p += lengthBoost
	}
	for _, kw := range emotionalKeywords {
		if strings.Contains(lower, kw) {
			p += emotionBoost
			break
		}
	}
	if recentFromSender >= rapidFireMessages {
		// Mid-burst replies read as interruptions; wait the burst out.
		p -= rapidFirePenalty
	}

	if p > s.cfg.MaxRate {
		p = s.cfg.MaxRate
	}
	if p < 0 {
		p = 0
	}
	return p
}

// acceptLocked runs the full gating policy for one observed message.
func (s *Scheduler) acceptLocked(msg types.Message, pattern *Pattern) bool {
	if s.isCommand(msg.Text) || strings.TrimSpace(msg.Text) == "" {
		return false
	}
	if s.burstExhaustedLocked(msg.SenderID) {
		return false
	}
	// Unconditional skip keeps the bot from feeling mechanical.
	if s.rng.Float64() < s.cfg.SkipProbability {
		return false
	}

	recent := pattern.CountSince(time.Now().Add(-rapidFireWindow))
	return s.rng.Float64() < s.AcceptProbability(msg.Text, recent)
}

// burstExhaustedLocked enforces the per-counterpart send cap over one
// cooldown window.
func (s *Scheduler) burstExhaustedLocked(userID string) bool {
	cutoff := time.Now().Add(-s.cfg.Cooldown)
	kept := s.fires[userID][:0]
	for _, t := range s.fires[userID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.fires[userID] = kept
	return len(kept) >= s.cfg.BurstCap
}

// computeDelayLocked draws a humanlike delay and scales it by how fast the
// counterpart typically messages, clamped to the global floor and ceiling.
func (s *Scheduler) computeDelayLocked(pattern *Pattern) time.Duration {
	span := s.cfg.MaxDelay - s.cfg.MinDelay
	delay := s.cfg.MinDelay
	if span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span)))
	}

	if avg := pattern.AverageInterval(); avg > 0 {
		scale := float64(avg) / float64(s.cfg.ReferenceInterval)
		delay = time.Duration(float64(delay) * scale)
	}

	// Mirror the counterpart's register: quick for rapid-fire senders,
	// unhurried for long-form ones.
	switch pattern.Style() {
	case "enthusiastic":
		delay = time.Duration(float64(delay) * 0.8)
	case "detailed":
		delay = time.Duration(float64(delay) * 1.2)
	}

	if delay < s.cfg.DelayFloor {
		delay = s.cfg.DelayFloor
	}
	if delay > s.cfg.DelayCeil {
		delay = s.cfg.DelayCeil
	}
	return delay
}
