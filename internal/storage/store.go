package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// InMemory selects a private in-memory database.
const InMemory = ":memory:"

// SQLiteStore persists derived data that is safe to keep across restarts.
// It never stores images or form state, only text keyed by an image hash.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the database at dbPath. An empty path or
// InMemory opens an in-memory database that lives as long as the store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	memory := dbPath == "" || dbPath == InMemory

	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	if memory {
		dsn = InMemory
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	if !memory {
		if err := os.Chmod(dbPath, 0600); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", dbPath).Msg("failed to restrict database permissions")
		}
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS extraction_cache (
		image_hash TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create extraction_cache table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetExtraction retrieves cached extracted text by image hash. ok is false
// when no entry exists.
func (s *SQLiteStore) GetExtraction(imageHash string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var text string
	err := s.db.QueryRow(
		"SELECT text FROM extraction_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&text)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query extraction cache: %w", err)
	}
	return text, true, nil
}

// SetExtraction stores extracted text in the cache, replacing any previous
// entry for the hash.
func (s *SQLiteStore) SetExtraction(imageHash, model, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO extraction_cache (image_hash, model, text)
		VALUES (?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			model = excluded.model,
			text = excluded.text,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, model, text)

	if err != nil {
		return fmt.Errorf("failed to cache extraction: %w", err)
	}
	return nil
}

// CountExtractions returns the number of cached extractions.
func (s *SQLiteStore) CountExtractions() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM extraction_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count extractions: %w", err)
	}
	return count, nil
}
