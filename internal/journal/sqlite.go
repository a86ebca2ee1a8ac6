package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/lucasew/cachequota/internal/eviction"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Journal is an append-only record of evictions, kept for operators.
// The tenant directories stay authoritative; the journal is never read back
// by the eviction path.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

var _ eviction.Recorder = (*Journal)(nil)

// Record is one journaled eviction step.
type Record struct {
	ID        int64
	RunID     string
	Tenant    string
	Path      string
	Size      int64
	ModTime   time.Time
	Outcome   eviction.Outcome
	EvictedAt time.Time
}

// Open opens the journal database at path and applies pending migrations.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		errutil.Close(db, "Failed to close database")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		errutil.Close(db, "Failed to close database")
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	return &Journal{db: db, now: time.Now}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts one row per deletion in a single transaction.
func (j *Journal) Record(ctx context.Context, runID, tenant string, deletions []eviction.Deletion) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO evictions
		(run_id, tenant, path, size, mod_time, outcome, evicted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer errutil.Close(stmt, "Failed to close statement")

	at := j.now().UnixNano()
	for _, d := range deletions {
		_, err := stmt.ExecContext(ctx, runID, tenant, d.Path, d.Size, d.ModTime.UnixNano(), string(d.Outcome), at)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", d.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. An empty tenant matches
// every tenant.
func (j *Journal) Recent(ctx context.Context, tenant string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, run_id, tenant, path, size, mod_time, outcome, evicted_at FROM evictions`
	args := []any{}
	if tenant != "" {
		query += ` WHERE tenant = ?`
		args = append(args, tenant)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evictions: %w", err)
	}
	defer errutil.Close(rows, "Failed to close rows")

	var records []Record
	for rows.Next() {
		var (
			r         Record
			modTime   int64
			evictedAt int64
			outcome   string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Tenant, &r.Path, &r.Size, &modTime, &outcome, &evictedAt); err != nil {
			return nil, fmt.Errorf("failed to scan eviction: %w", err)
		}
		r.ModTime = time.Unix(0, modTime)
		r.EvictedAt = time.Unix(0, evictedAt)
		r.Outcome = eviction.Outcome(outcome)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read evictions: %w", err)
	}
	return records, nil
}
