package profile

import (
	"time"
)

// LengthPreference buckets the owner's preferred message length.
type LengthPreference string

const (
	LengthShort  LengthPreference = "short"
	LengthMedium LengthPreference = "medium"
	LengthLong   LengthPreference = "long"
)

// Punctuation style descriptors derived from observed habits.
const (
	PunctStandard         = "standard"
	PunctMinimal          = "minimal"
	PunctExclamationHeavy = "exclamation_heavy"
	PunctEllipsisProne    = "ellipsis_prone"
)

// Tone renderings learned per tone label. The synthesizer only acts on
// these two; anything else is treated as neutral.
const (
	RenderCapsExclamations = "caps_multiple_exclamations"
	RenderLowercaseMinimal = "lowercase_minimal_punctuation"
	RenderExpressive       = "expressive"
)

// StyleProfile is the persisted per-user summary of learned communication
// patterns. The owning user has the canonical profile.
type StyleProfile struct {
	UserID string `json:"user_id"`

	// Smoothed numeric maps (exponential smoothing, see Updater)
	CommonPhrases map[string]float64 `json:"common_phrases"`
	EmojiUsage    map[string]float64 `json:"emoji_usage"`
	ToneScores    map[string]float64 `json:"tone_scores"`

	ResponseLengthPreference LengthPreference `json:"response_length_preference"`
	FormalityLevel           float64          `json:"formality_level"`
	CapsUsageFrequency       float64          `json:"caps_usage_frequency"`
	PunctuationStyle         string           `json:"punctuation_style"`
	GreetingStyle            string           `json:"greeting_style"`

	// Learned rendering per tone label (excited, casual)
	MoodPatterns map[string]string `json:"mood_patterns"`

	// Bounded exemplar lists used as synthesis seeds
	GreetingTemplates    []string `json:"greeting_templates"`
	QuestionTemplates    []string `json:"question_templates"`
	SupportiveTemplates  []string `json:"supportive_templates"`
	HumorTemplates       []string `json:"humor_templates"`
	ConversationStarters []string `json:"conversation_starters"`

	FavoriteTopics []string `json:"favorite_topics"`

	ConfidenceScore  float64   `json:"confidence_score"`
	MessagesAnalyzed int       `json:"messages_analyzed"`
	LastUpdated      time.Time `json:"last_updated"`
}

// New returns a fresh profile with initialized maps.
func New(userID string) *StyleProfile {
	return &StyleProfile{
		UserID:                   userID,
		CommonPhrases:            map[string]float64{},
		EmojiUsage:               map[string]float64{},
		ToneScores:               map[string]float64{},
		MoodPatterns:             map[string]string{},
		ResponseLengthPreference: LengthMedium,
		FormalityLevel:           0.5,
		PunctuationStyle:         PunctStandard,
	}
}

// normalize repairs nil maps in a profile loaded from storage so the
// updater never has to care where the profile came from.
func (p *StyleProfile) normalize() {
	if p.CommonPhrases == nil {
		p.CommonPhrases = map[string]float64{}
	}
	if p.EmojiUsage == nil {
		p.EmojiUsage = map[string]float64{}
	}
	if p.ToneScores == nil {
		p.ToneScores = map[string]float64{}
	}
	if p.MoodPatterns == nil {
		p.MoodPatterns = map[string]string{}
	}
	if p.ResponseLengthPreference == "" {
		p.ResponseLengthPreference = LengthMedium
	}
	if p.PunctuationStyle == "" {
		p.PunctuationStyle = PunctStandard
	}
}

// Reliability returns the band label for the current confidence score.
func (p *StyleProfile) Reliability() string {
	switch {
	case p.MessagesAnalyzed < 10:
		return "low"
	case p.MessagesAnalyzed < 50:
		return "medium"
	case p.MessagesAnalyzed < 200:
		return "high"
	default:
		return "very_high"
	}
}

// ConfidenceFor is the step function mapping messages analyzed to a
// confidence score. Deterministic and monotone.
func ConfidenceFor(messagesAnalyzed int) float64 {
	switch {
	case messagesAnalyzed < 10:
		return 0.2
	case messagesAnalyzed < 50:
		return 0.5
	case messagesAnalyzed < 200:
		return 0.8
	default:
		return 0.95
	}
}

// EmojiUsageLevel classifies how much the user relies on emojis.
// "low" suppresses emoji injection during synthesis entirely.
func (p *StyleProfile) EmojiUsageLevel() string {
	total := 0.0
	for _, w := range p.EmojiUsage {
		total += w
	}
	switch {
	case total < 0.5:
		return "low"
	case total < 2.0:
		return "medium"
	default:
		return "high"
	}
}

// TopPhrase returns the highest-weight learned phrase and its weight.
func (p *StyleProfile) TopPhrase() (string, float64) {
	best := ""
	bestW := 0.0
	for phrase, w := range p.CommonPhrases {
		if w > bestW || (w == bestW && phrase < best) {
			best, bestW = phrase, w
		}
	}
	return best, bestW
}

// TopEmojis returns up to n learned emojis ordered by descending weight.
func (p *StyleProfile) TopEmojis(n int) []string {
	type weighted struct {
		glyph string
		w     float64
	}
	items := make([]weighted, 0, len(p.EmojiUsage))
	for glyph, w := range p.EmojiUsage {
		items = append(items, weighted{glyph, w})
	}
	// insertion sort: the map stays tiny
	for i := 1; i < len(items); i++ {
		for j := i; j > 0; j-- {
			a, b := items[j-1], items[j]
			if b.w > a.w || (b.w == a.w && b.glyph < a.glyph) {
				items[j-1], items[j] = b, a
			} else {
				break
			}
		}
	}
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.glyph
	}
	return out
}
