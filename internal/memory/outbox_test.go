package memory

import (
	"path/filepath"
	"testing"
	"time"
)

func TestOutboxEnqueueAndComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.jsonl")
	o := NewOutbox(path)

	action, err := o.EnqueueSend("chan-1", "hey there")
	if err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}
	if action.ID == "" {
		t.Fatal("action has no id")
	}
	if action.Status != "pending" {
		t.Fatalf("status = %s, want pending", action.Status)
	}

	pending := o.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	o.MarkComplete(action.ID)
	if got := o.Pending(); len(got) != 0 {
		t.Errorf("pending after complete = %d, want 0", len(got))
	}
}

func TestOutboxSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.jsonl")
	o := NewOutbox(path)

	first, err := o.EnqueueSend("chan-1", "first")
	if err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}
	if _, err := o.EnqueueSend("chan-1", "second"); err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}
	o.MarkComplete(first.ID)
	if err := o.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewOutbox(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	pending := reloaded.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending after reload = %d, want 1", len(pending))
	}
	if content := pending[0].Payload["content"]; content != "second" {
		t.Errorf("surviving action content = %v, want second", content)
	}
}

func TestOutboxLoadMissingFile(t *testing.T) {
	o := NewOutbox(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err := o.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(o.Pending()) != 0 {
		t.Error("missing file produced pending actions")
	}
}

func TestCleanupCompleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.jsonl")
	o := NewOutbox(path)

	action, err := o.EnqueueSend("chan-1", "old")
	if err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}
	o.MarkComplete(action.ID)
	action.Timestamp = time.Now().Add(-2 * time.Hour)

	if n := o.CleanupCompleted(time.Hour); n != 1 {
		t.Errorf("cleaned = %d, want 1", n)
	}
}
