package profile

import (
	"testing"

	"github.com/doppelbot/doppel/internal/extract"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	p := New("owner")
	p.CommonPhrases["lol"] = 0.6
	p.EmojiUsage["😂"] = 1.1
	p.MessagesAnalyzed = 42
	p.ConfidenceScore = ConfidenceFor(42)
	p.GreetingTemplates = []string{"hey there!"}

	if err := store.Save("owner", p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("owner")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.CommonPhrases["lol"] != 0.6 {
		t.Errorf("phrase weight = %f, want 0.6", loaded.CommonPhrases["lol"])
	}
	if loaded.MessagesAnalyzed != 42 {
		t.Errorf("messages analyzed = %d, want 42", loaded.MessagesAnalyzed)
	}
	if len(loaded.GreetingTemplates) != 1 {
		t.Errorf("greeting templates = %d, want 1", len(loaded.GreetingTemplates))
	}
}

func TestLoadMissingProfileReturnsDefault(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	p, err := store.Load("nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.MessagesAnalyzed != 0 {
		t.Errorf("fresh profile has %d messages analyzed", p.MessagesAnalyzed)
	}
	if p.CommonPhrases == nil || p.EmojiUsage == nil {
		t.Error("fresh profile has nil maps")
	}
	if p.ResponseLengthPreference != LengthMedium {
		t.Errorf("fresh profile length preference = %s, want medium", p.ResponseLengthPreference)
	}
}

func TestMalformedStoredProfileDegradesToDefault(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := store.db.Exec(
		`INSERT INTO profiles (user_id, data, updated_at) VALUES ('bad', 'not json', CURRENT_TIMESTAMP)`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	p, err := store.Load("bad")
	if err != nil {
		t.Fatalf("Load should recover, got %v", err)
	}
	if p.MessagesAnalyzed != 0 {
		t.Error("expected a fresh default profile for malformed data")
	}
}

func TestConversationLog(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	e := extract.NewExtractor()
	for _, msg := range []string{"first message", "second message", "third message"} {
		if err := store.LogMessage("u1", msg, e.Extract(msg)); err != nil {
			t.Fatalf("LogMessage: %v", err)
		}
	}

	msgs, err := store.RecentMessages("u1", 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}
