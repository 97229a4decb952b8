package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	SnapshotProducts   = "products"
	SnapshotCategories = "categories"
)

type SnapshotRepo struct{ db *sqlx.DB }

func NewSnapshotRepo(db *sqlx.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// FetchedAt reports when the named snapshot was taken. ok is false if it
// never was.
func (r *SnapshotRepo) FetchedAt(ctx context.Context, name string) (t time.Time, ok bool, err error) {
	var raw string
	err = r.db.GetContext(ctx, &raw, `SELECT fetched_at FROM snapshots WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func touchSnapshot(ctx context.Context, tx *sqlx.Tx, name string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots(name, fetched_at) VALUES(?, ?)
		ON CONFLICT(name) DO UPDATE SET fetched_at = excluded.fetched_at
	`, name, at.UTC().Format(time.RFC3339Nano))
	return err
}
