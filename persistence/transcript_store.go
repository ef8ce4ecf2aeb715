package persistence

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/lexcodex/slashcmd/framework"
)

// TranscriptEntry is one slash command output inserted into a context
// document.
type TranscriptEntry struct {
	ID                string
	DocumentID        string
	Command           string
	Argument          string
	Text              string
	Sections          []framework.Section
	RunCommandsInText bool
	CreatedAt         time.Time
}

// TranscriptStore persists inserted command output.
type TranscriptStore interface {
	Append(ctx context.Context, entry *TranscriptEntry) error
	List(ctx context.Context, documentID string, limit int) ([]TranscriptEntry, error)
	Clear(ctx context.Context, documentID string) error
	Close() error
}

// SQLiteTranscriptStore keeps transcripts in a SQLite database.
type SQLiteTranscriptStore struct {
	db *sql.DB

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

var _ TranscriptStore = (*SQLiteTranscriptStore)(nil)

// NewSQLiteTranscriptStore opens or creates the database at path.
func NewSQLiteTranscriptStore(path string) (*SQLiteTranscriptStore, error) {
	if path == "" {
		return nil, errors.New("transcript path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	store := &SQLiteTranscriptStore{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteTranscriptStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcript (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		command TEXT NOT NULL,
		argument TEXT,
		text TEXT NOT NULL,
		sections TEXT,
		run_commands_in_text BOOLEAN,
		created_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_document ON transcript(document_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteTranscriptStore) newID(now time.Time) (string, error) {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Append stores entry, filling in ID and CreatedAt when empty.
func (s *SQLiteTranscriptStore) Append(ctx context.Context, entry *TranscriptEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.DocumentID == "" {
		return errors.New("document id required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.ID == "" {
		id, err := s.newID(entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("transcript id: %w", err)
		}
		entry.ID = id
	}
	sections, err := json.Marshal(entry.Sections)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcript (id, document_id, command, argument, text, sections, run_commands_in_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.DocumentID, entry.Command, entry.Argument, entry.Text,
		string(sections), entry.RunCommandsInText, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// List returns entries oldest first. An empty documentID lists every
// document; limit <= 0 means no limit, otherwise the newest limit entries
// are returned.
func (s *SQLiteTranscriptStore) List(ctx context.Context, documentID string, limit int) ([]TranscriptEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := `SELECT id, document_id, command, argument, text, sections, run_commands_in_text, created_at FROM transcript`
	var args []interface{}
	if documentID != "" {
		query += ` WHERE document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TranscriptEntry
	for rows.Next() {
		var entry TranscriptEntry
		var argument, sections sql.NullString
		var runCommands sql.NullBool
		if err := rows.Scan(&entry.ID, &entry.DocumentID, &entry.Command, &argument, &entry.Text,
			&sections, &runCommands, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Argument = argument.String
		entry.RunCommandsInText = runCommands.Bool
		if sections.Valid && sections.String != "" && sections.String != "null" {
			if err := json.Unmarshal([]byte(sections.String), &entry.Sections); err != nil {
				return nil, fmt.Errorf("decode sections of %s: %w", entry.ID, err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Clear removes a document's entries, or every entry when documentID is
// empty.
func (s *SQLiteTranscriptStore) Clear(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if documentID == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM transcript`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM transcript WHERE document_id = ?`, documentID)
	}
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteTranscriptStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
