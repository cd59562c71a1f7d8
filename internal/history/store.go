// Package history persists usage snapshots locally so the widget can chart
// utilization over time and survive restarts with data on screen.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
)

// Snapshot is one recorded fetch result.
type Snapshot struct {
	RecordedAt time.Time
	Session    claude.Window
	Weekly     claude.Window
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (creating if needed) the snapshot database at path.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening DB: %w", err)
	}

	store := NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS usage_snapshots (
			recorded_at TEXT NOT NULL,
			session_utilization REAL NOT NULL,
			session_resets_at TEXT,
			weekly_utilization REAL NOT NULL,
			weekly_resets_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_usage_snapshots_recorded_at ON usage_snapshots(recorded_at);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: init schema: %w", err)
		}
	}
	return nil
}

// Record stores one fetched usage pair stamped with the current time.
func (s *Store) Record(ctx context.Context, usage *claude.Usage) error {
	if usage == nil {
		return nil
	}
	recordedAt := s.now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_snapshots (
			recorded_at,
			session_utilization, session_resets_at,
			weekly_utilization, weekly_resets_at
		) VALUES (?, ?, ?, ?, ?)`,
		recordedAt.Format(time.RFC3339Nano),
		usage.FiveHour.Utilization, formatReset(usage.FiveHour.ResetsAt),
		usage.SevenDay.Utilization, formatReset(usage.SevenDay.ResetsAt),
	)
	if err != nil {
		return fmt.Errorf("history: record snapshot: %w", err)
	}
	return nil
}

// Recent returns up to limit snapshots, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at,
			session_utilization, session_resets_at,
			weekly_utilization, weekly_resets_at
		FROM usage_snapshots
		ORDER BY recorded_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			recordedAt   string
			sessionReset sql.NullString
			weeklyReset  sql.NullString
			snap         Snapshot
		)
		if err := rows.Scan(
			&recordedAt,
			&snap.Session.Utilization, &sessionReset,
			&snap.Weekly.Utilization, &weeklyReset,
		); err != nil {
			return nil, fmt.Errorf("history: scan snapshot: %w", err)
		}
		snap.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("history: parse recorded_at: %w", err)
		}
		snap.Session.ResetsAt = parseReset(sessionReset)
		snap.Weekly.ResetsAt = parseReset(weeklyReset)
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// Prune deletes snapshots recorded before the cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, keep time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-keep)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_snapshots WHERE recorded_at < ?`,
		cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("history: prune snapshots: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune rows affected: %w", err)
	}
	return removed, nil
}

func formatReset(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseReset(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}
