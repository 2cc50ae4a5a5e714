package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// PartnerSession is a stored backend login for one CLI profile.
type PartnerSession struct {
	Profile     string
	Token       string
	BackendURL  string
	LastUpdated time.Time
}

// SQLiteStore persists analysis results and partner sessions. Session tokens
// are encrypted at rest.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
	now           func() time.Time
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
// encryptionKey may be nil when no sessions are stored, in which case
// session methods fail.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// WAL and busy timeout for concurrent readers
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
		now:           time.Now,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.Chmod(dbPath, 0600); err != nil {
			log.Warn().Err(err).Str("path", dbPath).Msg("failed to restrict database permissions")
		}
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	analysisCacheQuery := `
	CREATE TABLE IF NOT EXISTS analysis_cache (
		image_hash TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(analysisCacheQuery); err != nil {
		return fmt.Errorf("failed to create analysis_cache table: %w", err)
	}

	sessionsQuery := `
	CREATE TABLE IF NOT EXISTS partner_sessions (
		profile TEXT PRIMARY KEY,
		encrypted_token TEXT NOT NULL,
		backend_url TEXT NOT NULL DEFAULT '',
		last_updated INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(sessionsQuery); err != nil {
		return fmt.Errorf("failed to create partner_sessions table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAnalysisCache returns the cached payload for imageHash.
// Returns nil, nil if there is no entry or it is older than maxAge.
// A zero maxAge disables expiry.
func (s *SQLiteStore) GetAnalysisCache(imageHash string, maxAge time.Duration) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	var createdAt int64
	err := s.db.QueryRow(
		"SELECT payload, created_at FROM analysis_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&payload, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}

	if maxAge > 0 && s.now().Sub(time.Unix(createdAt, 0)) > maxAge {
		return nil, nil
	}
	return []byte(payload), nil
}

// SetAnalysisCache stores an analysis payload, replacing any existing entry.
func (s *SQLiteStore) SetAnalysisCache(imageHash string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO analysis_cache (image_hash, payload, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at
	`, imageHash, string(payload), s.now().Unix())

	if err != nil {
		return fmt.Errorf("failed to cache analysis result: %w", err)
	}
	return nil
}

// PruneAnalysisCache removes entries older than maxAge and returns how many
// were removed.
func (s *SQLiteStore) PruneAnalysisCache(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge).Unix()
	res, err := s.db.Exec("DELETE FROM analysis_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analysis cache: %w", err)
	}
	return res.RowsAffected()
}

// GetSession retrieves the session for a profile.
// Returns nil, nil if the profile has no session.
func (s *SQLiteStore) GetSession(profile string) (*PartnerSession, error) {
	if len(s.encryptionKey) == 0 {
		return nil, ErrEmptyPassphrase
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var encryptedToken, backendURL string
	var lastUpdated int64
	err := s.db.QueryRow(
		"SELECT encrypted_token, backend_url, last_updated FROM partner_sessions WHERE profile = ?",
		profile,
	).Scan(&encryptedToken, &backendURL, &lastUpdated)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	token, err := Decrypt(encryptedToken, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	return &PartnerSession{
		Profile:     profile,
		Token:       string(token),
		BackendURL:  backendURL,
		LastUpdated: time.Unix(lastUpdated, 0),
	}, nil
}

// SaveSession stores or updates a session.
func (s *SQLiteStore) SaveSession(session *PartnerSession) error {
	if len(s.encryptionKey) == 0 {
		return ErrEmptyPassphrase
	}
	if strings.TrimSpace(session.Token) == "" {
		return fmt.Errorf("session token is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	encryptedToken, err := Encrypt([]byte(session.Token), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	session.LastUpdated = s.now()

	_, err = s.db.Exec(`
		INSERT INTO partner_sessions (profile, encrypted_token, backend_url, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			encrypted_token = excluded.encrypted_token,
			backend_url = excluded.backend_url,
			last_updated = excluded.last_updated
	`, session.Profile, encryptedToken, session.BackendURL, session.LastUpdated.Unix())

	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteSession removes the session for a profile.
func (s *SQLiteStore) DeleteSession(profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM partner_sessions WHERE profile = ?", profile); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
