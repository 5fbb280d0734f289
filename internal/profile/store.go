package profile

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/doppelbot/doppel/internal/extract"
	"github.com/doppelbot/doppel/internal/logging"
)

// Store persists style profiles and the conversation log in SQLite.
// The core treats it as a narrow load/save interface; a malformed or
// missing stored profile degrades to a fresh default.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the profile database under statePath.
func Open(statePath string) (*Store, error) {
	dbPath := filepath.Join(statePath, "doppel.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id    TEXT NOT NULL,
		text         TEXT NOT NULL,
		message_type TEXT,
		sentiment    TEXT,
		created_at   TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_sender
		ON conversations(sender_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the stored profile for userID, or a fresh default when
// none exists or the stored blob is unreadable.
func (s *Store) Load(userID string) (*StyleProfile, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return New(userID), nil
	}
	if err != nil {
		return New(userID), fmt.Errorf("failed to load profile: %w", err)
	}

	var p StyleProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		logging.Warn("store", "malformed profile for %s, starting fresh: %v", userID, err)
		return New(userID), nil
	}
	p.UserID = userID
	p.normalize()
	return &p, nil
}

// Save upserts the profile.
func (s *Store) Save(userID string, p *StyleProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// LogMessage appends one observed message to the conversation log.
func (s *Store) LogMessage(senderID, text string, f extract.MessageFeatures) error {
	_, err := s.db.Exec(`
		INSERT INTO conversations (sender_id, text, message_type, sentiment, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		senderID, text, string(f.MessageType), f.Sentiment, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}
	return nil
}

// RecentMessages returns the last n logged messages from a sender,
// newest first.
func (s *Store) RecentMessages(senderID string, n int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT text FROM conversations WHERE sender_id = ?
		ORDER BY created_at DESC LIMIT ?`, senderID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, rows.Err()
}
