package profile

import (
	"strings"
	"time"

	"github.com/doppelbot/doppel/internal/extract"
)

const (
	// Retain is the exponential smoothing constant for every smoothed map:
	// new = old*Retain + observed*(1-Retain). Entries absent from the
	// current message keep their old weight.
	Retain = 0.8

	// CapsRetain smooths the scalar caps-usage frequency more slowly.
	CapsRetain = 0.9
)

// Caps for the bounded exemplar lists. Once full, no further insertion:
// early exemplars are intentionally kept to avoid oscillating seed quality.
const (
	DefaultTemplateCap = 10
	DefaultStarterCap  = 20
	DefaultTopicCap    = 50
)

// Updater folds message features into a style profile. Update never
// errors; malformed feature fields are treated as absent.
type Updater struct {
	TemplateCap int
	StarterCap  int
	TopicCap    int
	now         func() time.Time
}

// NewUpdater returns an updater with the default list caps.
func NewUpdater() *Updater {
	return &Updater{
		TemplateCap: DefaultTemplateCap,
		StarterCap:  DefaultStarterCap,
		TopicCap:    DefaultTopicCap,
		now:         time.Now,
	}
}

// Apply updates the profile in place from one message's features. Only
// call this for messages authored by the profile's owning user; the
// caller is responsible for persisting the result.
func (u *Updater) Apply(p *StyleProfile, f extract.MessageFeatures) {
	p.normalize()

	smoothCounts(p.CommonPhrases, f.Phrases)
	smoothEmoji(p.EmojiUsage, f.EmojiUsage)
	smoothScores(p.ToneScores, f.Tones)

	// Length preference tracks the latest message's bucket, not a rolling
	// average. Kept for compatibility with the learned data format.
	if f.Length > 0 {
		p.ResponseLengthPreference = lengthBucket(f.Length)
	}

	if f.WordCount > 0 {
		p.FormalityLevel = f.Formality
		p.CapsUsageFrequency = p.CapsUsageFrequency*CapsRetain + f.CapsRatio*(1-CapsRetain)
		p.PunctuationStyle = punctuationStyle(f)
	}

	if f.GreetingStyle != "" {
		p.GreetingStyle = f.GreetingStyle
	}

	u.updateMoodPatterns(p, f)
	u.updateTemplates(p, f)
	u.updateTopics(p, f.Keywords)

	p.MessagesAnalyzed++
	p.ConfidenceScore = ConfidenceFor(p.MessagesAnalyzed)
	p.LastUpdated = u.now()
}

func smoothCounts(dst map[string]float64, observed map[string]int) {
	for key, count := range observed {
		if count < 0 {
			count = 0
		}
		dst[key] = dst[key]*Retain + float64(count)*(1-Retain)
	}
}

func smoothEmoji(dst map[string]float64, observed map[string]int) {
	smoothCounts(dst, observed)
}

func smoothScores(dst map[string]float64, observed map[string]float64) {
	for key, score := range observed {
		if score < 0 {
			score = 0
		}
		dst[key] = dst[key]*Retain + score*(1-Retain)
	}
}

func lengthBucket(chars int) LengthPreference {
	switch {
	case chars < 50:
		return LengthShort
	case chars <= 150:
		return LengthMedium
	default:
		return LengthLong
	}
}

// punctuationStyle derives a descriptor from the latest message's habits.
func punctuationStyle(f extract.MessageFeatures) string {
	switch {
	case f.Punctuation.MultipleExclamations || f.ExclamationCount >= 2:
		return PunctExclamationHeavy
	case f.Punctuation.Ellipsis:
		return PunctEllipsisProne
	case !f.Punctuation.UsesPeriods && f.ExclamationCount == 0:
		return PunctMinimal
	default:
		return PunctStandard
	}
}

// updateMoodPatterns learns how the user renders strong tones: heavy caps
// or stacked exclamations map the excited tone to the caps+exclamations
// rendering, and flat lowercase casual messages map the casual tone to
// the minimal rendering.
func (u *Updater) updateMoodPatterns(p *StyleProfile, f extract.MessageFeatures) {
	if f.Tones[extract.ToneExcited] > 0.5 {
		if f.CapsRatio > 0.3 || f.ExclamationCount > 2 {
			p.MoodPatterns[extract.ToneExcited] = RenderCapsExclamations
		} else {
			p.MoodPatterns[extract.ToneExcited] = RenderExpressive
		}
	}
	if f.Tones[extract.ToneCasual] > 0.5 {
		if f.CapsRatio < 0.1 && !f.Punctuation.UsesPeriods && f.ExclamationCount == 0 {
			p.MoodPatterns[extract.ToneCasual] = RenderLowercaseMinimal
		} else {
			p.MoodPatterns[extract.ToneCasual] = RenderExpressive
		}
	}
}

// updateTemplates stores the raw message as an exemplar for its category.
// Insert-if-novel with a hard cap; at cap, no further insertion.
func (u *Updater) updateTemplates(p *StyleProfile, f extract.MessageFeatures) {
	msg := strings.TrimSpace(f.Text)
	if msg == "" {
		return
	}
	lower := strings.ToLower(msg)

	switch {
	case f.MessageType == extract.TypeGreeting:
		p.GreetingTemplates = insertIfNovel(p.GreetingTemplates, msg, u.TemplateCap)
	case f.MessageType == extract.TypeQuestion && hasWhWord(lower):
		p.QuestionTemplates = insertIfNovel(p.QuestionTemplates, msg, u.TemplateCap)
	}

	if isSupportive(lower) {
		p.SupportiveTemplates = insertIfNovel(p.SupportiveTemplates, msg, u.TemplateCap)
	}
	if f.Tones[extract.ToneHumorous] > 0 || hasLaughingEmoji(f.EmojiUsage) {
		p.HumorTemplates = insertIfNovel(p.HumorTemplates, msg, u.TemplateCap)
	}
	if isConversationStarter(lower) {
		p.ConversationStarters = insertIfNovel(p.ConversationStarters, msg, u.StarterCap)
	}
}

func (u *Updater) updateTopics(p *StyleProfile, keywords []string) {
	for _, kw := range keywords {
		if len(p.FavoriteTopics) >= u.TopicCap {
			return
		}
		if !containsString(p.FavoriteTopics, kw) {
			p.FavoriteTopics = append(p.FavoriteTopics, kw)
		}
	}
}

func insertIfNovel(list []string, msg string, limit int) []string {
	if len(list) >= limit || containsString(list, msg) {
		return list
	}
	return append(list, msg)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var whWords = []string{"how", "what", "why", "when", "where", "who"}

func hasWhWord(lower string) bool {
	for _, w := range whWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var supportiveMarkers = []string{"thanks", "thank you", "great", "awesome", "good job", "well done"}

func isSupportive(lower string) bool {
	for _, m := range supportiveMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var laughingEmojis = []string{"😂", "🤣", "😆", "😄"}

func hasLaughingEmoji(usage map[string]int) bool {
	for _, glyph := range laughingEmojis {
		if usage[glyph] > 0 {
			return true
		}
	}
	return false
}

var starterMarkers = []string{"hello", "hi", "hey", "good morning", "how are you", "what's up", "hope you're"}

func isConversationStarter(lower string) bool {
	for _, m := range starterMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
