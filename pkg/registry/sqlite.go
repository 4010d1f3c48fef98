package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NicolasHaas/homevoice/pkg/crypto"
	"github.com/NicolasHaas/homevoice/pkg/model"
)

// Store is the SQLite-backed Registry.
type Store struct {
	db *sql.DB
}

var _ Registry = (*Store)(nil)

// New opens (or creates) the registry database and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}

	ctx := context.Background()

	// WAL for concurrent reads, busy timeout to avoid "database is locked"
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: set WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: set busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS credentials (
		id       INTEGER PRIMARY KEY CHECK(id = 1),
		pin_hash TEXT NOT NULL,
		pin_salt TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		name       TEXT    PRIMARY KEY CHECK(length(name) > 0 AND length(name) <= 32),
		enrolled   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT    NOT NULL DEFAULT (datetime('now'))
	);
	`
	ctx := context.Background()
	if err := s.ensureSchemaMigrations(ctx); err != nil {
		return err
	}
	currentVersion, err := s.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	migrations := []struct {
		version    int
		statements []string
	}{
		{
			version: 1,
			statements: []string{
				schema,
				"INSERT OR IGNORE INTO profiles (name) VALUES ('" + model.DefaultProfile + "')",
			},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("registry: migrate: %w", err)
			}
		}
		if err := s.setSchemaVersion(ctx, m.version); err != nil {
			return err
		}
	}

	// The default profile row survives even if it was deleted out-of-band.
	_, err = s.db.ExecContext(ctx, "INSERT OR IGNORE INTO profiles (name) VALUES (?)", model.DefaultProfile)
	if err != nil {
		return fmt.Errorf("registry: ensure default profile: %w", err)
	}
	return nil
}

func (s *Store) ensureSchemaMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("registry: create schema_migrations: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("registry: check schema_migrations: %w", err)
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (0)"); err != nil {
			return fmt.Errorf("registry: init schema_migrations: %w", err)
		}
	}
	return nil
}

func (s *Store) getSchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("registry: read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) setSchemaVersion(ctx context.Context, version int) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE schema_migrations SET version = ?", version); err != nil {
		return fmt.Errorf("registry: update schema version: %w", err)
	}
	return nil
}

const dbTimeLayout = "2006-01-02 15:04:05"

func parseDBTime(value string) (time.Time, error) {
	return time.ParseInLocation(dbTimeLayout, value, time.UTC)
}

// ---- Credentials ----

// HasPIN reports whether an admin PIN has been set.
func (s *Store) HasPIN() (bool, error) {
	var count int
	err := s.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM credentials").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("registry: has pin: %w", err)
	}
	return count > 0, nil
}

// SetPIN validates and stores a new admin PIN (hashed at rest).
func (s *Store) SetPIN(pin string) error {
	if err := model.ValidatePIN(pin); err != nil {
		return err
	}
	hash, salt, err := crypto.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("registry: set pin: %w", err)
	}
	_, err = s.db.ExecContext(context.Background(),
		"INSERT INTO credentials (id, pin_hash, pin_salt) VALUES (1, ?, ?) ON CONFLICT(id) DO UPDATE SET pin_hash = excluded.pin_hash, pin_salt = excluded.pin_salt",
		hash, salt)
	if err != nil {
		return fmt.Errorf("registry: set pin: %w", err)
	}
	return nil
}

// VerifyPIN checks a candidate PIN against the stored one.
func (s *Store) VerifyPIN(pin string) (bool, error) {
	var hash, salt string
	err := s.db.QueryRowContext(context.Background(), "SELECT pin_hash, pin_salt FROM credentials WHERE id = 1").Scan(&hash, &salt)
	if err == sql.ErrNoRows {
		return false, ErrNoPIN
	}
	if err != nil {
		return false, fmt.Errorf("registry: verify pin: %w", err)
	}
	if err := crypto.VerifyPIN(pin, hash, salt); err != nil {
		if err == crypto.ErrPINMismatch {
			return false, nil
		}
		return false, fmt.Errorf("registry: verify pin: %w", err)
	}
	return true, nil
}

// ---- Profiles ----

// ListProfiles returns all profiles, default first, then by creation order.
func (s *Store) ListProfiles() ([]model.Profile, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT name, enrolled, created_at FROM profiles ORDER BY name != ?, rowid", model.DefaultProfile)
	if err != nil {
		return nil, fmt.Errorf("registry: list profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(rows *sql.Rows) (model.Profile, error) {
	var p model.Profile
	var enrolledInt int
	var createdAt string
	if err := rows.Scan(&p.Name, &enrolledInt, &createdAt); err != nil {
		return model.Profile{}, fmt.Errorf("registry: scan profile: %w", err)
	}
	p.Enrolled = enrolledInt != 0
	parsed, err := parseDBTime(createdAt)
	if err != nil {
		return model.Profile{}, fmt.Errorf("registry: scan profile: %w", err)
	}
	p.CreatedAt = parsed
	return p, nil
}

// AddProfile creates a profile. Adding an existing name is a no-op.
func (s *Store) AddProfile(name string) error {
	if err := model.ValidateProfileName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(context.Background(), "INSERT OR IGNORE INTO profiles (name) VALUES (?)", name)
	if err != nil {
		return fmt.Errorf("registry: add profile: %w", err)
	}
	return nil
}

// RemoveProfile deletes a profile and its enrolled membership.
func (s *Store) RemoveProfile(name string) error {
	if name == model.DefaultProfile {
		return ErrDefaultProfile
	}
	_, err := s.db.ExecContext(context.Background(), "DELETE FROM profiles WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("registry: remove profile: %w", err)
	}
	return nil
}

// ListEnrolled returns the names of profiles with a voiceprint.
func (s *Store) ListEnrolled() ([]string, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT name FROM profiles WHERE enrolled = 1 ORDER BY name != ?, rowid", model.DefaultProfile)
	if err != nil {
		return nil, fmt.Errorf("registry: list enrolled: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("registry: scan enrolled: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// MarkEnrolled records that a profile has a voiceprint.
func (s *Store) MarkEnrolled(name string) error {
	res, err := s.db.ExecContext(context.Background(), "UPDATE profiles SET enrolled = 1 WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("registry: mark enrolled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry: mark enrolled: %w", err)
	}
	if n == 0 {
		return ErrUnknownProfile
	}
	return nil
}

// ResetAll clears the PIN and enrolled set and restores [default].
func (s *Store) ResetAll() error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("registry: reset: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM credentials"); err != nil {
		return fmt.Errorf("registry: reset credentials: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM profiles WHERE name != ?", model.DefaultProfile); err != nil {
		return fmt.Errorf("registry: reset profiles: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE profiles SET enrolled = 0"); err != nil {
		return fmt.Errorf("registry: reset enrolled: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("registry: reset: commit: %w", err)
	}
	return nil
}
