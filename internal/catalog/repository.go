package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retailpoint/retailpoint/internal/platform/httpx"
)

// ProductRepository is the backend collection contract for products.
type ProductRepository interface {
	List(ctx context.Context) ([]Product, error)
	Insert(ctx context.Context, p NewProduct) error
	Update(ctx context.Context, id int64, patch ProductPatch) error
	DecrementQuantity(ctx context.Context, id int64, by int) error
	ListLowStock(ctx context.Context, threshold int) ([]Product, error)
}

type productRepository struct {
	db *pgxpool.Pool
}

// NewProductRepository builds a ProductRepository over a pgx pool.
func NewProductRepository(db *pgxpool.Pool) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) List(ctx context.Context) ([]Product, error) {
	query := `SELECT id, barcode, name, category_id, quantity, price, created_at FROM products ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.CategoryID, &p.Quantity, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) Insert(ctx context.Context, p NewProduct) error {
	query := `INSERT INTO products (barcode, name, category_id, quantity, price) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, query, p.Barcode, p.Name, p.CategoryID, p.Quantity, p.Price); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("catalog: barcode %s: %w", p.Barcode, httpx.ErrDuplicateBarcode)
		}
		return fmt.Errorf("catalog: insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, id int64, patch ProductPatch) error {
	if patch.Empty() {
		return nil
	}

	query := `UPDATE products SET`
	args := []interface{}{}
	argCount := 0

	set := func(column string, value interface{}) {
		argCount++
		if argCount > 1 {
			query += `,`
		}
		query += ` ` + column + ` = $` + strconv.Itoa(argCount)
		args = append(args, value)
	}

	if patch.Barcode != nil {
		set("barcode", *patch.Barcode)
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.Quantity != nil {
		set("quantity", *patch.Quantity)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}

	argCount++
	query += ` WHERE id = $` + strconv.Itoa(argCount)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("catalog: update product %d: %w", id, httpx.ErrDuplicateBarcode)
		}
		return fmt.Errorf("catalog: update product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: product %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// DecrementQuantity performs the conditional decrement in a single statement
// so two concurrent sales of the same product cannot both read a stale
// quantity and drive it negative.
func (r *productRepository) DecrementQuantity(ctx context.Context, id int64, by int) error {
	query := `UPDATE products SET quantity = quantity - $2 WHERE id = $1 AND quantity >= $2`
	tag, err := r.db.Exec(ctx, query, id, by)
	if err != nil {
		return fmt.Errorf("catalog: decrement product %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("catalog: product %d: %w", id, httpx.ErrNotFound)
		}
		return fmt.Errorf("catalog: decrement product %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("catalog: product %d: %w", id, httpx.ErrNotFound)
	}
	return fmt.Errorf("catalog: product %d: %w", id, httpx.ErrInsufficientStock)
}

func (r *productRepository) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	query := `SELECT id, barcode, name, category_id, quantity, price, created_at FROM products WHERE quantity <= $1 ORDER BY quantity, id`
	rows, err := r.db.Query(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("catalog: list low stock: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.CategoryID, &p.Quantity, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
