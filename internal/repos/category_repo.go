package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) ReplaceAll(ctx context.Context, names []string, fetchedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return err
	}
	for i, name := range names {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories(name, position) VALUES(?, ?)
			ON CONFLICT(name) DO NOTHING
		`, name, i); err != nil {
			return err
		}
	}
	if err := touchSnapshot(ctx, tx, SnapshotCategories, fetchedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CategoryRepo) List(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out, `SELECT name FROM categories ORDER BY position`)
	return out, err
}
