package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryRepository is the backend collection contract for categories.
//
// Insert is deliberately not idempotent: two inserts with the same name
// produce two distinct rows. Category names are not unique.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	Insert(ctx context.Context, name string) error
}

type categoryRepository struct {
	db *pgxpool.Pool
}

// NewCategoryRepository builds a CategoryRepository over a pgx pool.
func NewCategoryRepository(db *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *categoryRepository) Insert(ctx context.Context, name string) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO categories (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("catalog: insert category: %w", err)
	}
	return nil
}
