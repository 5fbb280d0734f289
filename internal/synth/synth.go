// Package synth drafts replies and imprints the learned style profile onto
// them: template selection, length/punctuation/caps adaptation, phrase and
// emoji injection, and a final tone pass. Randomized flourishes draw from an
// injectable source so tests can seed determinism.
package synth

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"

	"github.com/doppelbot/doppel/internal/extract"
	"github.com/doppelbot/doppel/internal/logging"
	"github.com/doppelbot/doppel/internal/profile"
)

const (
	phraseInjectChance    = 0.15
	phraseWeightThreshold = 0.5
	elaborationChance     = 0.3
	exclaimSwapChance     = 0.4
	ellipsisChance        = 0.2
	capsThreshold         = 0.2
	minExemplars          = 1
)

// Synthesizer produces outgoing text for an incoming message, parameterized
// by the owning user's style profile. Safe for concurrent use; the mutex
// serializes draws from the rand source.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a synthesizer using the given random source.
func New(rng *rand.Rand) *Synthesizer {
	return &Synthesizer{rng: rng}
}

// Synthesize drafts a reply to the incoming message and styles it to the
// profile. It never returns an empty string; if any styling step misbehaves
// the unstyled draft is returned instead.
func (s *Synthesizer) Synthesize(incoming extract.MessageFeatures, p *profile.StyleProfile, context []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	category := classifyResponse(incoming)
	draft := s.selectTemplate(category, p)
	if draft == "" {
		draft = fallbackResponse
	}

	styled := s.applyStyle(draft, category, p)
	if strings.TrimSpace(styled) == "" {
		logging.Debug("synth", "styling produced empty output, returning draft")
		return draft
	}
	return styled
}

// classifyResponse maps incoming message type and sentiment to a response
// category.
func classifyResponse(incoming extract.MessageFeatures) Category {
	switch incoming.MessageType {
	case extract.TypeGreeting:
		return CategoryGreeting
	case extract.TypeQuestion:
		return CategoryQuestion
	case extract.TypeHelpRequest:
		return CategoryEmpathy
	case extract.TypeGratitude:
		return CategoryEncouragement
	}
	switch incoming.Sentiment {
	case "positive":
		return CategoryAgreement
	case "negative":
		return CategoryEmpathy
	default:
		return CategoryCuriosity
	}
}

// selectTemplate prefers the profile's learned exemplars, falling back to
// the built-in bank when the category has too few.
func (s *Synthesizer) selectTemplate(category Category, p *profile.StyleProfile) string {
	exemplars := exemplarsFor(category, p)
	if len(exemplars) >= minExemplars {
		return exemplars[s.rng.Intn(len(exemplars))]
	}
	bank := builtinBank[category]
	if len(bank) == 0 {
		return fallbackResponse
	}
	return bank[s.rng.Intn(len(bank))]
}

func exemplarsFor(category Category, p *profile.StyleProfile) []string {
	switch category {
	case CategoryGreeting:
		return p.GreetingTemplates
	case CategoryQuestion:
		return p.QuestionTemplates
	case CategoryEmpathy, CategoryEncouragement:
		return p.SupportiveTemplates
	default:
		return nil
	}
}

func (s *Synthesizer) applyStyle(draft string, category Category, p *profile.StyleProfile) string {
	out := s.adjustLength(draft, p)
	out = s.applyPunctuation(out, p)
	out = s.applyCaps(out, p)
	out = s.injectPhrase(out, p)
	out = s.injectEmoji(out, p)
	out = s.applyTonePass(out, p)
	if category == CategoryGreeting {
		out = restyleGreeting(out, p.GreetingStyle)
	}
	return out
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

func (s *Synthesizer) adjustLength(response string, p *profile.StyleProfile) string {
	parts := sentenceSplitRe.Split(response, -1)
	var sentences []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	switch p.ResponseLengthPreference {
	case profile.LengthShort:
		if len(sentences) > 2 {
			return strings.Join(sentences[:2], ". ") + "."
		}
	case profile.LengthLong:
		if len(sentences) < 3 && s.rng.Float64() < elaborationChance {
			return response + " " + elaborations[s.rng.Intn(len(elaborations))]
		}
	}
	return response
}

var midPeriodRe = regexp.MustCompile(`\.(\s+)([A-Z])`)

func (s *Synthesizer) applyPunctuation(response string, p *profile.StyleProfile) string {
	switch p.PunctuationStyle {
	case profile.PunctExclamationHeavy:
		if s.rng.Float64() < exclaimSwapChance {
			response = strings.ReplaceAll(response, ".", "!")
		}
	case profile.PunctMinimal:
		response = midPeriodRe.ReplaceAllString(response, "$1$2")
		response = strings.TrimSuffix(response, ".")
	case profile.PunctEllipsisProne:
		if s.rng.Float64() < ellipsisChance && strings.HasSuffix(response, ".") {
			response = strings.TrimSuffix(response, ".") + "..."
		}
	}
	return response
}

// emphasisWords is the whitelist eligible for ALL-CAPS emphasis.
var emphasisWords = map[string]bool{
	"amazing": true, "awesome": true, "wow": true, "yes": true, "definitely": true,
}

func (s *Synthesizer) applyCaps(response string, p *profile.StyleProfile) string {
	if p.CapsUsageFrequency <= capsThreshold {
		return response
	}
	words := strings.Split(response, " ")
	for i, word := range words {
		bare := strings.Trim(word, ".,!?")
		if emphasisWords[strings.ToLower(bare)] && s.rng.Float64() < p.CapsUsageFrequency*0.5 {
			words[i] = strings.Replace(word, bare, strings.ToUpper(bare), 1)
		}
	}
	return strings.Join(words, " ")
}

var (
	humorPhrases      = map[string]bool{"lol": true, "haha": true, "lmao": true, "hehe": true}
	transitionPhrases = map[string]bool{"btw": true, "oh": true}
	agreementPhrases  = map[string]bool{"facts": true, "absolutely": true, "definitely": true, "for sure": true, "yeah": true}
)

// injectPhrase adds at most one learned phrase: humor appended, transitions
// and agreements prepended.
func (s *Synthesizer) injectPhrase(response string, p *profile.StyleProfile) string {
	phrase, weight := p.TopPhrase()
	if phrase == "" || weight < phraseWeightThreshold {
		return response
	}
	if s.rng.Float64() >= phraseInjectChance {
		return response
	}

	switch {
	case humorPhrases[phrase]:
		return response + " " + phrase
	case transitionPhrases[phrase]:
		return capitalize(phrase) + ", " + strings.ToLower(response[:1]) + response[1:]
	case agreementPhrases[phrase]:
		return capitalize(phrase) + "! " + response
	}
	return response
}

type emojiContext struct {
	glyphs   []string
	keywords []string
	chance   float64
}

var emojiContexts = []emojiContext{
	{[]string{"😂", "🤣", "😄"}, []string{"funny", "haha", "joke", "lol"}, 0.6},
	{[]string{"🔥", "💯", "⭐"}, []string{"awesome", "amazing", "great", "perfect"}, 0.5},
	{[]string{"🤔", "🧐"}, []string{"think", "consider", "maybe", "wonder"}, 0.4},
	{[]string{"💪", "🙌", "👏"}, []string{"great job", "well done", "success", "achieve"}, 0.5},
}

// injectEmoji appends at most one high-weight learned emoji whose context
// matches the drafted response. Profiles with low emoji usage never get one.
func (s *Synthesizer) injectEmoji(response string, p *profile.StyleProfile) string {
	if p.EmojiUsageLevel() == "low" {
		return response
	}
	lower := strings.ToLower(response)

	for _, glyph := range p.TopEmojis(10) {
		for _, ctx := range emojiContexts {
			if !containsGlyph(ctx.glyphs, glyph) || !containsAny(lower, ctx.keywords) {
				continue
			}
			if s.rng.Float64() < ctx.chance {
				return response + " " + glyph
			}
			return response
		}
	}
	return response
}

var (
	excitedKeywords = []string{"excited", "amazing", "awesome", "incredible"}
	casualKeywords  = []string{"okay", "sure", "cool", "alright"}
	excitedCapsRe   = regexp.MustCompile(`\b(wow|amazing|awesome|incredible)\b`)
)

// applyTonePass renders excited or casual content the way the user does,
// driven by the learned per-tone rendering enum.
func (s *Synthesizer) applyTonePass(response string, p *profile.StyleProfile) string {
	lower := strings.ToLower(response)

	if containsAny(lower, excitedKeywords) &&
		p.MoodPatterns[extract.ToneExcited] == profile.RenderCapsExclamations {
		response = strings.ReplaceAll(response, "!", "!!!")
		response = excitedCapsRe.ReplaceAllStringFunc(response, strings.ToUpper)
		return response
	}

	if containsAny(lower, casualKeywords) &&
		p.MoodPatterns[extract.ToneCasual] == profile.RenderLowercaseMinimal {
		response = strings.ToLower(response)
		response = strings.ReplaceAll(response, "!", "")
		response = strings.ReplaceAll(response, ".", "")
		return strings.TrimSpace(response)
	}
	return response
}

type greetingSwap struct {
	re *regexp.Regexp
	to string
}

var greetingReplacements = map[string][]greetingSwap{
	"casual": {
		{regexp.MustCompile(`(?i)\bhello\b`), "hey"},
		{regexp.MustCompile(`(?i)\bhi\b`), "yo"},
		{regexp.MustCompile(`(?i)\bgood morning\b`), "morning"},
	},
	"enthusiastic": {
		{regexp.MustCompile(`(?i)\bhello\b`), "hey there!"},
		{regexp.MustCompile(`(?i)\bhi\b`), "hi there!"},
	},
	"formal": {
		{regexp.MustCompile(`(?i)\bhey\b`), "hello"},
		{regexp.MustCompile(`(?i)\byo\b`), "good day"},
	},
}

func restyleGreeting(response, style string) string {
	for _, swap := range greetingReplacements[style] {
		if swap.re.MatchString(response) {
			return swap.re.ReplaceAllString(response, swap.to)
		}
	}
	return response
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func containsGlyph(glyphs []string, glyph string) bool {
	for _, g := range glyphs {
		if g == glyph {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
