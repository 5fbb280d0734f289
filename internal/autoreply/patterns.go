package autoreply

import (
	"strings"
	"time"

	"github.com/doppelbot/doppel/internal/types"
)

const patternWindow = 50

// patternEntry captures what Style and the timing heuristics need from one
// message.
type patternEntry struct {
	ts     time.Time
	length int
	bang   bool
}

// Pattern tracks one counterpart's recent messaging rhythm and rough style,
// over a sliding window of their last messages. Every statistic derives from
// the window, so old habits age out as new messages arrive.
type Pattern struct {
	UserID string

	entries []patternEntry
}

func newPattern(userID string) *Pattern {
	return &Pattern{UserID: userID}
}

// patternLocked returns (creating if needed) the pattern for a counterpart.
func (s *Scheduler) patternLocked(userID string) *Pattern {
	p := s.patterns[userID]
	if p == nil {
		p = newPattern(userID)
		s.patterns[userID] = p
	}
	return p
}

// PatternFor exposes a counterpart's pattern for status reporting.
func (s *Scheduler) PatternFor(userID string) *Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patternLocked(userID)
}

// Record folds one message into the sliding window.
func (p *Pattern) Record(msg types.Message) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	p.entries = append(p.entries, patternEntry{
		ts:     ts,
		length: len(msg.Text),
		bang:   strings.Contains(msg.Text, "!"),
	})
	if len(p.entries) > patternWindow {
		p.entries = p.entries[1:]
	}
}

// CountSince reports how many recorded messages arrived after the cutoff.
func (p *Pattern) CountSince(cutoff time.Time) int {
	n := 0
	for i := len(p.entries) - 1; i >= 0; i-- {
		if !p.entries[i].ts.After(cutoff) {
			break
		}
		n++
	}
	return n
}

// AverageInterval is the mean gap between consecutive messages in the
// window, or zero when fewer than two messages have been seen.
func (p *Pattern) AverageInterval() time.Duration {
	if len(p.entries) < 2 {
		return 0
	}
	span := p.entries[len(p.entries)-1].ts.Sub(p.entries[0].ts)
	return span / time.Duration(len(p.entries)-1)
}

// LastSeen is the timestamp of the most recent recorded message.
func (p *Pattern) LastSeen() time.Time {
	if len(p.entries) == 0 {
		return time.Time{}
	}
	return p.entries[len(p.entries)-1].ts
}

// Style classifies the counterpart's messaging style from the window.
func (p *Pattern) Style() string {
	if len(p.entries) < 5 {
		return "neutral"
	}
	totalLen, bangs := 0, 0
	for _, e := range p.entries {
		totalLen += e.length
		if e.bang {
			bangs++
		}
	}
	avgLen := totalLen / len(p.entries)

	bangRatio := float64(bangs) / float64(len(p.entries))
	switch {
	case bangRatio > 0.4:
		return "enthusiastic"
	case avgLen > 120:
		return "detailed"
	case avgLen < 40:
		return "casual"
	default:
		return "neutral"
	}
}
