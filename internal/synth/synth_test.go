package synth

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/doppelbot/doppel/internal/extract"
	"github.com/doppelbot/doppel/internal/profile"
)

func newSynth(seed int64) *Synthesizer {
	return New(rand.New(rand.NewSource(seed)))
}

func TestSynthesizeNeverEmpty(t *testing.T) {
	e := extract.NewExtractor()
	p := profile.New("owner")

	inputs := []string{
		"", "hey!", "what do you think?", "thanks a lot",
		"I have a problem", "the sky is blue", "WOW AMAZING!!!",
	}
	for seed := int64(0); seed < 20; seed++ {
		s := newSynth(seed)
		for _, in := range inputs {
			if out := s.Synthesize(e.Extract(in), p, nil); strings.TrimSpace(out) == "" {
				t.Fatalf("seed %d input %q: empty response", seed, in)
			}
		}
	}
}

// One synthesizer instance serves both the command handler and the
// scheduler's timer goroutines; concurrent calls must be safe.
func TestSynthesizeConcurrent(t *testing.T) {
	e := extract.NewExtractor()
	p := profile.New("owner")
	s := newSynth(1)

	inputs := []string{"hey!", "what do you think?", "thanks a lot", "WOW AMAZING!!!"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				in := inputs[(n+j)%len(inputs)]
				if out := s.Synthesize(e.Extract(in), p, nil); strings.TrimSpace(out) == "" {
					t.Errorf("empty response for %q", in)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestCategoryMapping(t *testing.T) {
	e := extract.NewExtractor()

	tests := []struct {
		msg  string
		want Category
	}{
		{"hey there", CategoryGreeting},
		{"what time works for you?", CategoryQuestion},
		{"I'm having trouble with this", CategoryEmpathy},
		{"thanks so much", CategoryEncouragement},
		{"that was a great show", CategoryAgreement},
		{"that movie was terrible", CategoryEmpathy},
		{"the package arrived", CategoryCuriosity},
	}
	for _, tt := range tests {
		if got := classifyResponse(e.Extract(tt.msg)); got != tt.want {
			t.Errorf("classifyResponse(%q) = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestLearnedExemplarsPreferred(t *testing.T) {
	e := extract.NewExtractor()
	p := profile.New("owner")
	p.GreetingTemplates = []string{"yo yo what's good"}

	s := newSynth(1)
	out := s.Synthesize(e.Extract("hello!"), p, nil)
	if !strings.Contains(out, "yo yo") {
		t.Errorf("expected learned greeting exemplar to seed the reply, got %q", out)
	}
}

// A profile whose emoji usage classifies low must never get an emoji,
// regardless of content keywords or random draws.
func TestLowEmojiUsageNeverInjects(t *testing.T) {
	p := profile.New("owner")
	p.EmojiUsage["😂"] = 0.1 // total weight below the low threshold

	for seed := int64(0); seed < 50; seed++ {
		s := newSynth(seed)
		out := s.injectEmoji("haha that was so funny and awesome, great job", p)
		for glyph := range p.EmojiUsage {
			if strings.Contains(out, glyph) {
				t.Fatalf("seed %d: emoji %q injected despite low usage", seed, glyph)
			}
		}
	}
}

func TestEmojiInjectionMatchesContext(t *testing.T) {
	p := profile.New("owner")
	p.EmojiUsage["😂"] = 3.0 // high usage

	injected := false
	for seed := int64(0); seed < 50; seed++ {
		s := newSynth(seed)
		out := s.injectEmoji("haha that joke was funny", p)
		if strings.Contains(out, "😂") {
			injected = true
		}
		// a laughing emoji never lands on unrelated content
		if other := s.injectEmoji("the invoice is attached", p); strings.Contains(other, "😂") {
			t.Fatalf("seed %d: emoji injected without matching context", seed)
		}
	}
	if !injected {
		t.Error("laughing emoji never injected on matching content across 50 seeds")
	}
}

func TestShortPreferenceTruncates(t *testing.T) {
	p := profile.New("owner")
	p.ResponseLengthPreference = profile.LengthShort

	s := newSynth(1)
	out := s.adjustLength("First sentence. Second sentence. Third sentence. Fourth sentence.", p)
	if n := len(sentenceSplitRe.Split(strings.TrimSuffix(out, "."), -1)); n > 2 {
		t.Errorf("short preference kept %d sentences: %q", n, out)
	}
}

func TestLongPreferenceElaborates(t *testing.T) {
	p := profile.New("owner")
	p.ResponseLengthPreference = profile.LengthLong

	grew := false
	draft := "Short answer."
	for seed := int64(0); seed < 50; seed++ {
		s := newSynth(seed)
		if out := s.adjustLength(draft, p); len(out) > len(draft) {
			grew = true
			break
		}
	}
	if !grew {
		t.Error("long preference never elaborated a short draft across 50 seeds")
	}
}

func TestExcitedTonePass(t *testing.T) {
	p := profile.New("owner")
	p.MoodPatterns[extract.ToneExcited] = profile.RenderCapsExclamations

	s := newSynth(1)
	out := s.applyTonePass("That is amazing! Great work!", p)
	if !strings.Contains(out, "!!!") {
		t.Errorf("expected tripled exclamations, got %q", out)
	}
	if !strings.Contains(out, "AMAZING") {
		t.Errorf("expected uppercased excitement word, got %q", out)
	}
}

func TestCasualTonePass(t *testing.T) {
	p := profile.New("owner")
	p.MoodPatterns[extract.ToneCasual] = profile.RenderLowercaseMinimal

	s := newSynth(1)
	out := s.applyTonePass("Okay. Sounds good!", p)
	if out != "okay sounds good" {
		t.Errorf("casual rendering = %q, want %q", out, "okay sounds good")
	}
}

func TestTonePassNeutralWithoutLearnedRendering(t *testing.T) {
	p := profile.New("owner")

	s := newSynth(1)
	in := "That is amazing! Great work!"
	if out := s.applyTonePass(in, p); out != in {
		t.Errorf("tone pass altered text without a learned rendering: %q", out)
	}
}

func TestPhraseInjectionAtMostOne(t *testing.T) {
	p := profile.New("owner")
	p.CommonPhrases["lol"] = 2.0

	for seed := int64(0); seed < 100; seed++ {
		s := newSynth(seed)
		out := s.injectPhrase("That was a good one.", p)
		if n := strings.Count(out, "lol"); n > 1 {
			t.Fatalf("seed %d: phrase injected %d times", seed, n)
		}
	}
}

func TestGreetingRestyle(t *testing.T) {
	tests := []struct {
		style string
		in    string
		want  string
	}{
		{"casual", "Hello, good to see you", "hey, good to see you"},
		{"formal", "hey, good to see you", "hello, good to see you"},
		{"unknown", "Hello there", "Hello there"},
	}
	for _, tt := range tests {
		if got := restyleGreeting(tt.in, tt.style); got != tt.want {
			t.Errorf("restyleGreeting(%q, %s) = %q, want %q", tt.in, tt.style, got, tt.want)
		}
	}
}
