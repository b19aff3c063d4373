/**
 * API credential persistence
 *
 * A single credential row survives restarts. An explicit clear is
 * remembered so the fallback key does not silently reappear after a
 * user removed theirs.
 */

package credentials

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/pagelens/ocr-gateway/internal/errors"
	"github.com/pagelens/ocr-gateway/internal/logging"
)

// Store persists the OCR API credential
type Store interface {
	// Load returns the stored key, falling back to fallbackKey unless the
	// credential was explicitly cleared.
	Load(ctx context.Context, fallbackKey string) (string, error)
	Save(ctx context.Context, apiKey string) error
	Clear(ctx context.Context) error
	// Subscribe registers a callback invoked after every Save or Clear.
	Subscribe(fn func(apiKey string))
}

// PostgresStore keeps the credential in a one-row table
type PostgresStore struct {
	db        *sql.DB
	logger    *logging.Logger
	mu        sync.Mutex
	listeners []func(string)
}

// NewPostgresStore connects and ensures the credential table exists
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS api_credentials (
			id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			api_key TEXT NOT NULL DEFAULT '',
			cleared BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create credentials table: %w", err)
	}

	return &PostgresStore{
		db:     db,
		logger: logging.NewLogger("credentials"),
	}, nil
}

// Load returns the persisted key, or fallbackKey when none was ever saved
func (s *PostgresStore) Load(ctx context.Context, fallbackKey string) (string, error) {
	var apiKey string
	var cleared bool

	err := s.db.QueryRowContext(ctx,
		`SELECT api_key, cleared FROM api_credentials WHERE id = 1`,
	).Scan(&apiKey, &cleared)
	if err == sql.ErrNoRows {
		return fallbackKey, nil
	}
	if err != nil {
		return "", errors.NewStorageError("failed to load credential", err)
	}

	if cleared {
		return "", nil
	}
	if apiKey == "" {
		return fallbackKey, nil
	}
	return apiKey, nil
}

// Save persists apiKey and resets the cleared flag
func (s *PostgresStore) Save(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return errors.NewValidationError("API key must not be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_credentials (id, api_key, cleared, updated_at)
		VALUES (1, $1, FALSE, NOW())
		ON CONFLICT (id) DO UPDATE
		SET api_key = EXCLUDED.api_key, cleared = FALSE, updated_at = NOW()`,
		apiKey)
	if err != nil {
		return errors.NewStorageError("failed to save credential", err)
	}

	s.logger.Info("API credential updated")
	s.notify(apiKey)
	return nil
}

// Clear removes the stored key and remembers that it was removed
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_credentials (id, api_key, cleared, updated_at)
		VALUES (1, '', TRUE, NOW())
		ON CONFLICT (id) DO UPDATE
		SET api_key = '', cleared = TRUE, updated_at = NOW()`)
	if err != nil {
		// Clearing is best effort; the caller's session already dropped the key
		s.logger.Warn("Failed to clear stored credential", "error", err.Error())
		return nil
	}

	s.logger.Info("API credential cleared")
	s.notify("")
	return nil
}

// Subscribe registers a credential change listener
func (s *PostgresStore) Subscribe(fn func(apiKey string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *PostgresStore) notify(apiKey string) {
	s.mu.Lock()
	listeners := make([]func(string), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(apiKey)
	}
}

// Close releases the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// MemoryStore keeps the credential in memory, used when no database is
// configured and by tests
type MemoryStore struct {
	mu        sync.Mutex
	apiKey    string
	saved     bool
	cleared   bool
	listeners []func(string)
}

// NewMemoryStore creates an in-memory credential store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored key, honoring an explicit clear
func (m *MemoryStore) Load(ctx context.Context, fallbackKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cleared {
		return "", nil
	}
	if !m.saved || m.apiKey == "" {
		return fallbackKey, nil
	}
	return m.apiKey, nil
}

// Save stores apiKey and resets the cleared flag
func (m *MemoryStore) Save(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return errors.NewValidationError("API key must not be empty")
	}

	m.mu.Lock()
	m.apiKey = apiKey
	m.saved = true
	m.cleared = false
	listeners := make([]func(string), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(apiKey)
	}
	return nil
}

// Clear removes the stored key
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.apiKey = ""
	m.saved = false
	m.cleared = true
	listeners := make([]func(string), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn("")
	}
	return nil
}

// Subscribe registers a credential change listener
func (m *MemoryStore) Subscribe(fn func(apiKey string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}
