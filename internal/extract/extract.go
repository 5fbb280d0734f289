package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/tsawler/prose/v3"
)

// MessageType classifies what kind of message this is, first-match-wins.
type MessageType string

const (
	TypeGreeting    MessageType = "greeting"
	TypeQuestion    MessageType = "question"
	TypeHelpRequest MessageType = "help_request"
	TypeGratitude   MessageType = "gratitude"
	TypeStatement   MessageType = "statement"
)

// PunctuationFlags describes the punctuation habits visible in one message.
type PunctuationFlags struct {
	UsesPeriods          bool
	MultipleExclamations bool
	MultipleQuestions    bool
	Ellipsis             bool
	CommaFrequency       float64
}

// MessageFeatures is the transient result of analyzing one message.
// It is never persisted; the profile updater folds it into the style profile.
type MessageFeatures struct {
	Text             string
	Length           int
	WordCount        int
	SentenceCount    int
	ExclamationCount int
	QuestionCount    int
	CapsRatio        float64
	EmojiUsage       map[string]int
	Phrases          map[string]int
	Tones            map[string]float64
	Punctuation      PunctuationFlags
	Keywords         []string
	GreetingStyle    string // casual, formal, enthusiastic, or empty
	Agreement        string // agreement, disagreement, or empty
	MessageType      MessageType
	Sentiment        string // positive, negative, neutral
	Excitement       float64
	Formality        float64
}

// Tone labels tracked by the extractor.
const (
	ToneExcited     = "excited"
	ToneCasual      = "casual"
	ToneQuestioning = "questioning"
	ToneEmphatic    = "emphatic"
	TonePositive    = "positive"
	ToneNegative    = "negative"
	ToneTechnical   = "technical"
	ToneHumorous    = "humorous"
)

const (
	// minPhraseChars filters noise from very short n-grams
	minPhraseChars = 10

	// excitementCeiling bounds the excitement score so one manic message
	// can't dominate downstream smoothing
	excitementCeiling = 2.0
)

// Extractor pulls structured style signals out of raw message text.
// Extraction is pure: identical input always yields identical features,
// and malformed input yields zeroed features rather than an error.
type Extractor struct {
	expressions    []*regexp.Regexp
	toneRules      map[string]*regexp.Regexp
	excitementRe   *regexp.Regexp
	capsWordRe     *regexp.Regexp
	wordRe         *regexp.Regexp
	sentenceRe     *regexp.Regexp
	greetingStyles []greetingRule
	agreementRe    *regexp.Regexp
	disagreementRe *regexp.Regexp
}

type greetingRule struct {
	style string
	re    *regexp.Regexp
}

// NewExtractor compiles the extraction rule set.
func NewExtractor() *Extractor {
	return &Extractor{
		expressions: compileAll([]string{
			`\blol\b`, `\bhaha\b`, `\blmao\b`, `\bhehe\b`,
			`\bno way\b`, `\bno cap\b`, `\bfacts\b`, `\bfor sure\b`,
			`\babsolutely\b`, `\bdefinitely\b`, `\bwow\b`,
			`\byeah\b`, `\bnah\b`, `\bok\b`, `\bokay\b`, `\balright\b`,
			`\bbtw\b`, `\bomg\b`, `\bcool\b`,
		}),
		toneRules: map[string]*regexp.Regexp{
			ToneExcited:   regexp.MustCompile(`!{2,}|wow+|amazing|awesome|incredible`),
			ToneCasual:    regexp.MustCompile(`\byeah\b|\bokay\b|\bcool\b|\balright\b`),
			TonePositive:  regexp.MustCompile(`good|great|nice|love|like|happy|glad`),
			ToneNegative:  regexp.MustCompile(`bad|hate|sad|angry|annoying|terrible`),
			ToneTechnical: regexp.MustCompile(`api|code|python|javascript|github|programming`),
			ToneHumorous:  regexp.MustCompile(`lol|haha|lmao|funny|joke|meme`),
		},
		excitementRe:   regexp.MustCompile(`\b(wow|amazing|awesome|incredible|fantastic|omg|yooo|no way)\b`),
		capsWordRe:     regexp.MustCompile(`\b[A-Z]{2,}\b`),
		wordRe:         regexp.MustCompile(`\b[a-zA-Z]+\b`),
		sentenceRe:     regexp.MustCompile(`[.!?]+`),
		greetingStyles: []greetingRule{
			// Order matters: the enthusiastic forms contain the casual ones.
			{"enthusiastic", regexp.MustCompile(`\b(hey there|hi there|hello there)\b`)},
			{"formal", regexp.MustCompile(`\b(good morning|good afternoon|good evening|greetings)\b`)},
			{"casual", regexp.MustCompile(`\b(hey|hi|hello|yo|sup|what's up)\b`)},
		},
		agreementRe:    regexp.MustCompile(`\b(yes|yeah|yep|absolutely|definitely|for sure|exactly|true|facts)\b`),
		disagreementRe: regexp.MustCompile(`\b(no|nah|nope|not really|disagree|wrong)\b`),
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Extract analyzes one message. Never fails; empty input yields neutral features.
func (e *Extractor) Extract(message string) MessageFeatures {
	f := MessageFeatures{
		Text:       message,
		EmojiUsage: map[string]int{},
		Phrases:    map[string]int{},
		Tones:      map[string]float64{},
		Formality:  0.5,
	}
	if strings.TrimSpace(message) == "" {
		f.MessageType = TypeStatement
		f.Sentiment = "neutral"
		return f
	}

	lower := strings.ToLower(message)
	words := strings.Fields(message)

	f.Length = len(message)
	f.WordCount = len(words)
	f.SentenceCount = e.countSentences(message)
	f.ExclamationCount = strings.Count(message, "!")
	f.QuestionCount = strings.Count(message, "?")
	f.CapsRatio = capsRatio(message)
	f.EmojiUsage = extractEmojis(message)
	f.Phrases = e.extractPhrases(lower)
	f.Tones = e.scoreTones(message, lower, f.WordCount)
	f.Punctuation = analyzePunctuation(message)
	f.Keywords = e.extractKeywords(lower)
	f.GreetingStyle = e.detectGreetingStyle(lower)
	f.Agreement = e.detectAgreement(lower)
	f.MessageType = e.classify(lower, message)
	f.Sentiment = e.sentiment(lower)
	f.Excitement = e.measureExcitement(message, lower)
	f.Formality = Formality(lower)
	return f
}

// countSentences uses prose segmentation with a regex fallback. Tagging and
// entity extraction are disabled so the document skips the perceptron model;
// only the punkt segmenter runs.
func (e *Extractor) countSentences(message string) int {
	doc, err := prose.NewDocument(message,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false))
	if err == nil {
		if n := len(doc.Sentences()); n > 0 {
			return n
		}
	}
	n := 0
	for _, part := range e.sentenceRe.Split(message, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// extractPhrases collects 2-5 word sliding windows above the minimum length,
// plus hits from the known-expression bank (which catches short fillers like
// "ok" and "lol" that the length filter would drop).
func (e *Extractor) extractPhrases(lower string) map[string]int {
	phrases := map[string]int{}

	words := strings.Fields(lower)
	for i := 0; i < len(words)-1; i++ {
		for j := i + 2; j <= i+5 && j <= len(words); j++ {
			phrase := strings.Join(words[i:j], " ")
			if len(phrase) > minPhraseChars {
				phrases[phrase]++
			}
		}
	}

	for _, re := range e.expressions {
		for _, m := range re.FindAllString(lower, -1) {
			phrases[m]++
		}
	}
	return phrases
}

// scoreTones counts tone indicator hits normalized by word count so longer
// messages don't dominate purely by volume.
func (e *Extractor) scoreTones(message, lower string, wordCount int) map[string]float64 {
	counts := map[string]int{
		ToneQuestioning: strings.Count(message, "?"),
		ToneEmphatic:    strings.Count(message, "!"),
	}
	for tone, re := range e.toneRules {
		counts[tone] = len(re.FindAllString(lower, -1))
	}

	norm := float64(wordCount)
	if norm < 1 {
		norm = 1
	}
	tones := make(map[string]float64, len(counts))
	for tone, n := range counts {
		tones[tone] = float64(n) / norm
	}
	return tones
}

func analyzePunctuation(message string) PunctuationFlags {
	commaFreq := 0.0
	if len(message) > 0 {
		commaFreq = float64(strings.Count(message, ",")) / float64(len(message))
	}
	return PunctuationFlags{
		UsesPeriods:          strings.Contains(message, "."),
		MultipleExclamations: strings.Contains(message, "!!"),
		MultipleQuestions:    strings.Contains(message, "??"),
		Ellipsis:             strings.Contains(message, "...") || strings.Contains(message, "…"),
		CommaFrequency:       commaFreq,
	}
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "i": true, "you": true, "he": true,
	"she": true, "it": true, "we": true, "they": true, "my": true, "your": true,
	"his": true, "her": true, "our": true, "their": true, "this": true,
	"that": true, "these": true, "those": true,
}

// extractKeywords returns deduplicated topic keywords (stop words removed).
func (e *Extractor) extractKeywords(lower string) []string {
	seen := map[string]bool{}
	var keywords []string
	for _, word := range e.wordRe.FindAllString(lower, -1) {
		if len(word) <= 3 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}
	return keywords
}

func (e *Extractor) detectGreetingStyle(lower string) string {
	for _, rule := range e.greetingStyles {
		if rule.re.MatchString(lower) {
			return rule.style
		}
	}
	return ""
}

func (e *Extractor) detectAgreement(lower string) string {
	if e.agreementRe.MatchString(lower) {
		return "agreement"
	}
	if e.disagreementRe.MatchString(lower) {
		return "disagreement"
	}
	return ""
}

var (
	helpRe      = regexp.MustCompile(`\b(help|problem|issue|trouble|stuck|worried)\b`)
	gratitudeRe = regexp.MustCompile(`\b(thanks|thank you|appreciate)\b`)
)

// classify is first-match-wins: greeting, question, help-request, gratitude,
// then statement. Question detection is simply presence of '?'.
func (e *Extractor) classify(lower, message string) MessageType {
	if e.detectGreetingStyle(lower) != "" {
		return TypeGreeting
	}
	if strings.Contains(message, "?") {
		return TypeQuestion
	}
	if helpRe.MatchString(lower) {
		return TypeHelpRequest
	}
	if gratitudeRe.MatchString(lower) {
		return TypeGratitude
	}
	return TypeStatement
}

var (
	positiveRe = regexp.MustCompile(`\b(good|great|awesome|happy|love|excellent)\b`)
	negativeRe = regexp.MustCompile(`\b(bad|terrible|sad|hate|awful|horrible)\b`)
)

func (e *Extractor) sentiment(lower string) string {
	pos := len(positiveRe.FindAllString(lower, -1))
	neg := len(negativeRe.FindAllString(lower, -1))
	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}

// measureExcitement combines exclamations, ALL-CAPS words, excitement
// keywords, and repeated-letter runs, clamped to the ceiling.
func (e *Extractor) measureExcitement(message, lower string) float64 {
	score := float64(strings.Count(message, "!")) * 0.3
	score += float64(len(e.capsWordRe.FindAllString(message, -1))) * 0.5
	score += float64(len(e.excitementRe.FindAllString(lower, -1))) * 0.4
	score += float64(countRepeatRuns(lower)) * 0.2
	if score > excitementCeiling {
		score = excitementCeiling
	}
	return score
}

// countRepeatRuns counts runs of 3+ identical letters ("soooo", "yesss").
// RE2 has no backreferences so this is a manual scan.
func countRepeatRuns(s string) int {
	runs := 0
	var prev rune
	runLen := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			prev, runLen = 0, 0
			continue
		}
		if r == prev {
			runLen++
			if runLen == 3 {
				runs++
			}
		} else {
			prev, runLen = r, 1
		}
	}
	return runs
}

func capsRatio(message string) float64 {
	if len(message) == 0 {
		return 0
	}
	upper := 0
	total := 0
	for _, r := range message {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(total)
}

var (
	formalIndicators = []string{"please", "thank you", "would", "could", "kindly", "sincerely"}
	casualIndicators = []string{"lol", "haha", "yeah", "nah", "gonna", "wanna", "btw"}
)

// Formality is formal hits / (formal + casual hits), 0.5 when neither appears.
func Formality(lower string) float64 {
	formal := 0
	for _, w := range formalIndicators {
		if strings.Contains(lower, w) {
			formal++
		}
	}
	casual := 0
	for _, w := range casualIndicators {
		if strings.Contains(lower, w) {
			casual++
		}
	}
	if formal+casual == 0 {
		return 0.5
	}
	return float64(formal) / float64(formal+casual)
}
