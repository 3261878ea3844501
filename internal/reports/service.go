package reports

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Repository exposes the aggregate queries the dashboard needs.
type Repository interface {
	ReceivablesTotal(ctx context.Context, companyID int64) (decimal.Decimal, error)
	PayablesTotal(ctx context.Context, companyID int64) (decimal.Decimal, error)
	SalesSummary(ctx context.Context, companyID int64, from, to time.Time) (DocumentSummary, error)
	PurchaseSummary(ctx context.Context, companyID int64, from, to time.Time) (DocumentSummary, error)
	LowStock(ctx context.Context, companyID int64, threshold decimal.Decimal, limit int) ([]LowStockItem, error)
}

// Service builds dashboard aggregates, caching them in Redis and collapsing
// concurrent builds of the same key into one query run.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group

	lowStockThreshold decimal.Decimal
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, lowStockThreshold: decimal.NewFromInt(10)}
}

// Dashboard returns the company overview for the period. A zero from/to
// defaults to the current month.
func (s *Service) Dashboard(ctx context.Context, companyID int64, from, to time.Time) (Dashboard, error) {
	if from.IsZero() || to.IsZero() {
		now := time.Now().UTC()
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}
	key, err := s.cache.BuildKey(ctx, "reports", "dashboard",
		strconv.FormatInt(companyID, 10), from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return Dashboard{}, err
	}
	var dashboard Dashboard
	err = s.cache.FetchJSON(ctx, key, &dashboard, func(ctx context.Context) (interface{}, error) {
		return s.buildOnce(ctx, key, companyID, from, to)
	})
	if err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// buildOnce collapses concurrent cache fills for the same key.
func (s *Service) buildOnce(ctx context.Context, key string, companyID int64, from, to time.Time) (interface{}, error) {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		return s.build(ctx, companyID, from, to)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		return res.Val, res.Err
	}
}

func (s *Service) build(ctx context.Context, companyID int64, from, to time.Time) (Dashboard, error) {
	receivables, err := s.repo.ReceivablesTotal(ctx, companyID)
	if err != nil {
		return Dashboard{}, err
	}
	payables, err := s.repo.PayablesTotal(ctx, companyID)
	if err != nil {
		return Dashboard{}, err
	}
	sales, err := s.repo.SalesSummary(ctx, companyID, from, to)
	if err != nil {
		return Dashboard{}, err
	}
	purchases, err := s.repo.PurchaseSummary(ctx, companyID, from, to)
	if err != nil {
		return Dashboard{}, err
	}
	lowStock, err := s.repo.LowStock(ctx, companyID, s.lowStockThreshold, 20)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Receivables: receivables,
		Payables:    payables,
		Sales:       sales,
		Purchases:   purchases,
		LowStock:    lowStock,
		From:        from,
		To:          to,
	}, nil
}
