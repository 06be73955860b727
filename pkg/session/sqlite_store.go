package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-go-golems/palaver/pkg/conversation"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const sqliteSessionsSchemaV1 = `
CREATE TABLE IF NOT EXISTS sessions (
    name TEXT PRIMARY KEY,
    payload_json TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore keeps every session as one JSON payload row in a SQLite database.
type SQLiteStore struct {
	mu     sync.RWMutex
	path   string
	db     *sql.DB
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite session store: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "could not create session database directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open session database")
	}
	s := &SQLiteStore{
		path: path,
		db:   db,
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(sqliteSessionsSchemaV1); err != nil {
		return errors.Wrap(err, "could not migrate session database")
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	payload, ok, err := s.payloadLocked(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return conversation.Conversation{}, nil
	}
	conv, err := DecodeJSONConversation(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load session %s", name)
	}
	return conv, nil
}

func (s *SQLiteStore) Save(ctx context.Context, conv conversation.Conversation, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	payload, err := EncodeJSONConversation(conv)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions(name, payload_json, updated_at_ms) VALUES(?, ?, ?)
ON CONFLICT(name) DO UPDATE SET payload_json = excluded.payload_json, updated_at_ms = excluded.updated_at_ms
`, name, string(payload), time.Now().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "could not save session %s", name)
	}
	log.Debug().Str("session", name).Int("messages", len(conv)).Msg("saved session to sqlite")
	return nil
}

func (s *SQLiteStore) ResolvePath(name string, requireExists bool) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if requireExists {
		if s.ensureOpen() != nil {
			return "", false
		}
		_, ok, err := s.payloadLocked(context.Background(), name)
		if err != nil || !ok {
			return "", false
		}
	}
	return fmt.Sprintf("%s#%s", s.path, name), true
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sessions ORDER BY name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "could not list sessions")
	}
	defer func() {
		_ = rows.Close()
	}()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "could not list sessions")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(err, "could not delete session %s", name)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) Rename(ctx context.Context, oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "could not start rename")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE name = ?`, oldName).Scan(&exists)
	if err != nil {
		return errors.Wrapf(err, "could not rename session %s", oldName)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	if oldName == newName {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, newName); err != nil {
		return errors.Wrapf(err, "could not rename session %s", oldName)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET name = ?, updated_at_ms = ? WHERE name = ?`,
		newName, time.Now().UnixMilli(), oldName)
	if err != nil {
		return errors.Wrapf(err, "could not rename session %s", oldName)
	}
	return errors.Wrap(tx.Commit(), "could not commit rename")
}

func (s *SQLiteStore) Dump(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	payload, ok, err := s.payloadLocked(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return payload, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) payloadLocked(ctx context.Context, name string) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload_json FROM sessions WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "could not read session %s", name)
	}
	return []byte(payload), true, nil
}

func (s *SQLiteStore) ensureOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not read affected rows")
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
