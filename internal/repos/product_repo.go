package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"shopapp/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

type productRow struct {
	ID          int             `db:"id"`
	Position    int             `db:"position"`
	Title       string          `db:"title"`
	Price       decimal.Decimal `db:"price"`
	Description string          `db:"description"`
	Category    string          `db:"category"`
	Image       string          `db:"image"`
	RatingRate  float64         `db:"rating_rate"`
	RatingCount int             `db:"rating_count"`
}

func (r productRow) product() domain.Product {
	return domain.Product{
		ID:          r.ID,
		Title:       r.Title,
		Price:       r.Price,
		Description: r.Description,
		Category:    r.Category,
		Image:       r.Image,
		Rating:      domain.Rating{Rate: r.RatingRate, Count: r.RatingCount},
	}
}

const productCols = `id, position, title, price, description, category, image, rating_rate, rating_count`

// ReplaceAll swaps the whole product snapshot in one transaction.
func (r *ProductRepo) ReplaceAll(ctx context.Context, products []domain.Product, fetchedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return err
	}
	for i, p := range products {
		// duplicate ids from upstream: first one wins
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products(`+productCols+`)
			VALUES(?,?,?,?,?,?,?,?,?)
			ON CONFLICT(id) DO NOTHING
		`, p.ID, i, p.Title, p.Price.String(), p.Description, p.Category, p.Image, p.Rating.Rate, p.Rating.Count); err != nil {
			return err
		}
	}
	if err := touchSnapshot(ctx, tx, SnapshotProducts, fetchedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the snapshot in catalog order.
func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+productCols+` FROM products ORDER BY position`); err != nil {
		return nil, err
	}
	out := make([]domain.Product, len(rows))
	for i, row := range rows {
		out[i] = row.product()
	}
	return out, nil
}

// Get returns sql.ErrNoRows when id is not in the snapshot.
func (r *ProductRepo) Get(ctx context.Context, id int) (domain.Product, error) {
	var row productRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+productCols+` FROM products WHERE id = ?`, id); err != nil {
		return domain.Product{}, err
	}
	return row.product(), nil
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products`)
	return n, err
}
