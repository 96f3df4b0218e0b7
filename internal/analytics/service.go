// Package analytics serves the read side of sales reporting: joined sale
// history and cached aggregate summaries.
package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/retailpoint/retailpoint/internal/platform/httpx"
	"github.com/retailpoint/retailpoint/internal/sales"
)

// Known reporting ranges.
const (
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeAll   = "all"
)

const topProductLimit = 10

// Repository exposes the read-side sale queries the service relies on.
type Repository interface {
	ListDetailed(ctx context.Context, f sales.Filter) ([]sales.SaleDetail, error)
	RevenueByDay(ctx context.Context, f sales.Filter) ([]sales.DayRevenue, error)
	RevenueByCategory(ctx context.Context, f sales.Filter) ([]sales.CategoryRevenue, error)
	TopProducts(ctx context.Context, f sales.Filter, limit int) ([]sales.ProductRevenue, error)
}

// Summary aggregates sales over a reporting range.
type Summary struct {
	Range      string                  `json:"range"`
	Revenue    float64                 `json:"revenue"`
	SaleCount  int                     `json:"sale_count"`
	ByDay      []sales.DayRevenue      `json:"by_day"`
	ByCategory []sales.CategoryRevenue `json:"by_category"`
	Top        []sales.ProductRevenue  `json:"top_products"`
}

// Service coordinates analytics query execution with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// SinceForRange resolves a reporting range to its date lower bound. The
// zero time means no bound.
func (s *Service) SinceForRange(rng string) (time.Time, error) {
	switch rng {
	case RangeWeek:
		return s.now().AddDate(0, 0, -7), nil
	case RangeMonth:
		return s.now().AddDate(0, 0, -30), nil
	case RangeAll, "":
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("analytics: unknown range %q: %w", rng, httpx.ErrValidation)
	}
}

// History returns the joined sale rows for the given range and optional
// category/buyer filters, in one backend round trip.
func (s *Service) History(ctx context.Context, rng string, categoryID, buyerID *int64) ([]sales.SaleDetail, error) {
	since, err := s.SinceForRange(rng)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDetailed(ctx, sales.Filter{Since: since, CategoryID: categoryID, BuyerID: buyerID})
}

// Summary computes (or serves from cache) the aggregate view for a range.
// The three aggregate queries run concurrently.
func (s *Service) Summary(ctx context.Context, rng string) (Summary, error) {
	since, err := s.SinceForRange(rng)
	if err != nil {
		return Summary{}, err
	}

	key, err := s.cache.BuildKey(ctx, "analytics", "summary", rng, s.now().Format("2006-01-02"))
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.buildSummary(ctx, rng, since)
	})
	return summary, err
}

func (s *Service) buildSummary(ctx context.Context, rng string, since time.Time) (Summary, error) {
	filter := sales.Filter{Since: since}
	summary := Summary{Range: rng}
	if rng == "" {
		summary.Range = RangeAll
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		byDay, err := s.repo.RevenueByDay(ctx, filter)
		if err != nil {
			return err
		}
		summary.ByDay = byDay
		return nil
	})
	g.Go(func() error {
		byCategory, err := s.repo.RevenueByCategory(ctx, filter)
		if err != nil {
			return err
		}
		summary.ByCategory = byCategory
		return nil
	})
	g.Go(func() error {
		top, err := s.repo.TopProducts(ctx, filter, topProductLimit)
		if err != nil {
			return err
		}
		summary.Top = top
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("analytics: build summary: %w", err)
	}

	for _, day := range summary.ByDay {
		summary.Revenue += day.Revenue
		summary.SaleCount += day.Count
	}
	return summary, nil
}

// Warm precomputes the summaries for every known range. Used by the
// background warmup job so the first dashboard hit after an invalidation is
// served from cache.
func (s *Service) Warm(ctx context.Context) error {
	for _, rng := range []string{RangeWeek, RangeMonth, RangeAll} {
		if _, err := s.Summary(ctx, rng); err != nil {
			return err
		}
	}
	return nil
}
