package sales

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the backend collection contract for sales. The collection is
// append-only; there is no update.
type Repository interface {
	List(ctx context.Context) ([]Sale, error)
	Insert(ctx context.Context, s NewSale) error
	ListDetailed(ctx context.Context, f Filter) ([]SaleDetail, error)
	RevenueByDay(ctx context.Context, f Filter) ([]DayRevenue, error)
	RevenueByCategory(ctx context.Context, f Filter) ([]CategoryRevenue, error)
	TopProducts(ctx context.Context, f Filter, limit int) ([]ProductRevenue, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a Repository over a pgx pool.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Sale, error) {
	rows, err := r.db.Query(ctx, `SELECT id, buyer_id, product_id, quantity, total_price, date, created_at FROM sales ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sales: list: %w", err)
	}
	defer rows.Close()

	var result []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.BuyerID, &s.ProductID, &s.Quantity, &s.TotalPrice, &s.Date, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sales: scan: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *repository) Insert(ctx context.Context, s NewSale) error {
	query := `INSERT INTO sales (buyer_id, product_id, quantity, total_price, date) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, query, s.BuyerID, s.ProductID, s.Quantity, s.TotalPrice, s.Date); err != nil {
		return fmt.Errorf("sales: insert: %w", err)
	}
	return nil
}

// filterClause renders the shared WHERE conditions for read-side queries.
func filterClause(f Filter, args []interface{}) (string, []interface{}) {
	clause := ""
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		clause += ` AND s.date >= $` + strconv.Itoa(len(args))
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		clause += ` AND p.category_id = $` + strconv.Itoa(len(args))
	}
	if f.BuyerID != nil {
		args = append(args, *f.BuyerID)
		clause += ` AND s.buyer_id = $` + strconv.Itoa(len(args))
	}
	return clause, args
}

func (r *repository) ListDetailed(ctx context.Context, f Filter) ([]SaleDetail, error) {
	query := `
		SELECT s.id, s.buyer_id, s.product_id, s.quantity, s.total_price, s.date, s.created_at,
		       p.name, c.name, b.name
		FROM sales s
		JOIN products p ON p.id = s.product_id
		JOIN categories c ON c.id = p.category_id
		JOIN buyers b ON b.id = s.buyer_id
		WHERE 1=1`
	clause, args := filterClause(f, nil)
	query += clause + ` ORDER BY s.date`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: list detailed: %w", err)
	}
	defer rows.Close()

	var result []SaleDetail
	for rows.Next() {
		var d SaleDetail
		if err := rows.Scan(&d.ID, &d.BuyerID, &d.ProductID, &d.Quantity, &d.TotalPrice, &d.Date, &d.CreatedAt,
			&d.ProductName, &d.CategoryName, &d.BuyerName); err != nil {
			return nil, fmt.Errorf("sales: scan detail: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *repository) RevenueByDay(ctx context.Context, f Filter) ([]DayRevenue, error) {
	query := `
		SELECT date_trunc('day', s.date) AS day, COALESCE(SUM(s.total_price), 0), COUNT(*)
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE 1=1`
	clause, args := filterClause(f, nil)
	query += clause + ` GROUP BY day ORDER BY day`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: revenue by day: %w", err)
	}
	defer rows.Close()

	var result []DayRevenue
	for rows.Next() {
		var d DayRevenue
		if err := rows.Scan(&d.Day, &d.Revenue, &d.Count); err != nil {
			return nil, fmt.Errorf("sales: scan day revenue: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *repository) RevenueByCategory(ctx context.Context, f Filter) ([]CategoryRevenue, error) {
	query := `
		SELECT c.id, c.name, COALESCE(SUM(s.total_price), 0), COUNT(*)
		FROM sales s
		JOIN products p ON p.id = s.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE 1=1`
	clause, args := filterClause(f, nil)
	query += clause + ` GROUP BY c.id, c.name ORDER BY SUM(s.total_price) DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: revenue by category: %w", err)
	}
	defer rows.Close()

	var result []CategoryRevenue
	for rows.Next() {
		var c CategoryRevenue
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &c.Revenue, &c.Count); err != nil {
			return nil, fmt.Errorf("sales: scan category revenue: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *repository) TopProducts(ctx context.Context, f Filter, limit int) ([]ProductRevenue, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT p.id, p.name, COALESCE(SUM(s.quantity), 0), COALESCE(SUM(s.total_price), 0)
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE 1=1`
	clause, args := filterClause(f, nil)
	args = append(args, limit)
	query += clause + ` GROUP BY p.id, p.name ORDER BY SUM(s.total_price) DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: top products: %w", err)
	}
	defer rows.Close()

	var result []ProductRevenue
	for rows.Next() {
		var p ProductRevenue
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Units, &p.Revenue); err != nil {
			return nil, fmt.Errorf("sales: scan product revenue: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
