package buyers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the backend collection contract for buyers.
type Repository interface {
	List(ctx context.Context) ([]Buyer, error)
	Insert(ctx context.Context, b NewBuyer) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a Repository over a pgx pool.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Buyer, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, passport_data, created_at FROM buyers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("buyers: list: %w", err)
	}
	defer rows.Close()

	var result []Buyer
	for rows.Next() {
		var b Buyer
		if err := rows.Scan(&b.ID, &b.Name, &b.PassportData, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("buyers: scan: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *repository) Insert(ctx context.Context, b NewBuyer) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO buyers (name, passport_data) VALUES ($1, $2)`, b.Name, b.PassportData); err != nil {
		return fmt.Errorf("buyers: insert: %w", err)
	}
	return nil
}
