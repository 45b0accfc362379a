package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"pastebin/pkg/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
	defaultQueryTimeout = 5 * time.Second
	pruneBatchSize      = 100
	maxPruneBatches     = 10000
)

const dsnParams = "_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"

// SQLite owns the pastes table for one variant. Every method borrows a pooled
// connection for a single statement and hands it back before returning.
type SQLite struct {
	db           *sql.DB
	variant      domain.Variant
	queryTimeout time.Duration
}

func (s *SQLite) DB() *sql.DB {
	return s.db
}
func (s *SQLite) Variant() domain.Variant {
	return s.variant
}
func NewSQLite(path string, variant domain.Variant) (*SQLite, error) {
	return NewSQLiteWithConfig(path, variant, defaultMaxOpenConns, defaultMaxIdleConns, defaultQueryTimeout)
}
func NewSQLiteWithConfig(path string, variant domain.Variant, maxOpenConns, maxIdleConns int, queryTimeout time.Duration) (*SQLite, error) {
	if !variant.Valid() {
		return nil, errors.Errorf("unknown variant %q", variant)
	}
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping db")
	}
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	s := &SQLite{
		db:           db,
		variant:      variant,
		queryTimeout: queryTimeout,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migration failed")
	}
	return s, nil
}
func dsn(path string) string {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		if strings.Contains(path, "?") {
			return path + "&" + dsnParams
		}
		return path + "?" + dsnParams
	}
	return "file:" + path + "?" + dsnParams
}
func (s *SQLite) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS pastes (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		title TEXT,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP,
		password TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_pastes_created_at ON pastes(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return errors.Wrap(err, "create pastes table")
	}
	if !s.variant.HasLanguage() {
		return nil
	}
	has, err := s.hasColumn("pastes", "language")
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.db.Exec(`ALTER TABLE pastes ADD COLUMN language TEXT DEFAULT 'plaintext'`)
	return errors.Wrap(err, "add language column")
}
func (s *SQLite) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, errors.Wrap(err, "table info")
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, errors.Wrap(err, "scan table info")
		}
		if name == column {
			return true, nil
		}
	}
	return false, errors.Wrap(rows.Err(), "iterate table info")
}

// Create inserts p. A primary key clash is reported as domain.ErrIDCollision
// so the caller can decide whether to draw a new ID.
func (s *SQLite) Create(ctx context.Context, p *domain.Paste) error {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	var err error
	if s.variant.HasLanguage() {
		_, err = s.db.ExecContext(queryCtx,
			`INSERT INTO pastes (id, content, title, language, created_at, expires_at, password) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Content, p.Title, p.Language, p.CreatedAt.UTC(), nullTime(p.ExpiresAt), p.Password,
		)
	} else {
		_, err = s.db.ExecContext(queryCtx,
			`INSERT INTO pastes (id, content, title, created_at, expires_at, password) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Content, p.Title, p.CreatedAt.UTC(), nullTime(p.ExpiresAt), p.Password,
		)
	}
	if isPrimaryKeyViolation(err) {
		return errors.Wrap(domain.ErrIDCollision, p.ID)
	}
	return errors.Wrap(err, "db create")
}

// Get loads a paste by ID regardless of expires_at.
func (s *SQLite) Get(ctx context.Context, id string) (*domain.Paste, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	language := "NULL"
	if s.variant.HasLanguage() {
		language = "COALESCE(NULLIF(language, ''), 'plaintext')"
	}
	q := `
	SELECT id, content, COALESCE(NULLIF(title, ''), 'Untitled'), ` + language + `, created_at, expires_at, password
	FROM pastes WHERE id = ?
	`
	var (
		p        domain.Paste
		lang     sql.NullString
		expires  sql.NullTime
		password sql.NullString
	)
	err := s.db.QueryRowContext(queryCtx, q, id).Scan(
		&p.ID, &p.Content, &p.Title, &lang, &p.CreatedAt, &expires, &password,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPasteNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db get")
	}
	p.Language = lang.String
	if expires.Valid {
		t := expires.Time
		p.ExpiresAt = &t
	}
	if password.Valid {
		pw := password.String
		p.Password = &pw
	}
	return &p, nil
}

// ListRecent returns up to limit pastes that have not expired as of now,
// newest first.
func (s *SQLite) ListRecent(ctx context.Context, now time.Time, limit int) ([]domain.Summary, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `
	SELECT id, COALESCE(NULLIF(title, ''), 'Untitled'), created_at
	FROM pastes
	WHERE expires_at IS NULL OR expires_at > ?
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(queryCtx, q, now.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "db list recent")
	}
	defer rows.Close()
	out := make([]domain.Summary, 0, limit)
	for rows.Next() {
		var sm domain.Summary
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan summary")
		}
		out = append(out, sm)
	}
	return out, errors.Wrap(rows.Err(), "iterate summaries")
}

// DeleteExpired removes pastes whose expires_at is before now, in batches.
// It backs the prune admin command; the HTTP surface never deletes.
func (s *SQLite) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	totalDeleted := 0
	for i := 0; i < maxPruneBatches; i++ {
		select {
		case <-ctx.Done():
			return totalDeleted, ctx.Err()
		default:
		}
		queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		result, err := s.db.ExecContext(queryCtx, `
			DELETE FROM pastes
			WHERE id IN (
				SELECT id FROM pastes
				WHERE expires_at IS NOT NULL AND expires_at < ?
				LIMIT ?
			)
		`, now.UTC(), pruneBatchSize)
		cancel()
		if err != nil {
			return totalDeleted, errors.Wrap(err, "prune batch failed")
		}
		deleted, _ := result.RowsAffected()
		totalDeleted += int(deleted)
		if deleted < pruneBatchSize {
			return totalDeleted, nil
		}
	}
	return totalDeleted, errors.New("prune hit batch limit, more records may exist")
}
// Ping checks that a pooled connection can still reach the database file.
func (s *SQLite) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.PingContext(ctx), "ping sqlite")
}
func (s *SQLite) Close() error {
	return s.db.Close()
}
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
