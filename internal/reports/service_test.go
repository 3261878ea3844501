package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	receivables   decimal.Decimal
	payables      decimal.Decimal
	sales         DocumentSummary
	purchases     DocumentSummary
	lowStock      []LowStockItem
	calls         int
	lowStockCalls int
	lastThreshold decimal.Decimal
}

func (m *mockRepo) ReceivablesTotal(_ context.Context, _ int64) (decimal.Decimal, error) {
	m.calls++
	return m.receivables, nil
}

func (m *mockRepo) PayablesTotal(_ context.Context, _ int64) (decimal.Decimal, error) {
	return m.payables, nil
}

func (m *mockRepo) SalesSummary(_ context.Context, _ int64, _, _ time.Time) (DocumentSummary, error) {
	return m.sales, nil
}

func (m *mockRepo) PurchaseSummary(_ context.Context, _ int64, _, _ time.Time) (DocumentSummary, error) {
	return m.purchases, nil
}

func (m *mockRepo) LowStock(_ context.Context, _ int64, threshold decimal.Decimal, _ int) ([]LowStockItem, error) {
	m.lowStockCalls++
	m.lastThreshold = threshold
	return m.lowStock, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestDashboardCaches(t *testing.T) {
	repo := &mockRepo{
		receivables: decimal.NewFromInt(2200),
		payables:    decimal.NewFromInt(1400),
		sales:       DocumentSummary{Total: decimal.NewFromInt(9000), Count: 12, UnpaidCount: 3},
		purchases:   DocumentSummary{Total: decimal.NewFromInt(6000), Count: 7, UnpaidCount: 2},
		lowStock:    []LowStockItem{{ProductID: 100, Name: "Rice 5kg", Quantity: decimal.NewFromInt(4)}},
	}
	svc := newTestService(t, repo)

	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	dashboard, err := svc.Dashboard(ctx, 1, from, to)
	require.NoError(t, err)
	require.True(t, dashboard.Receivables.Equal(decimal.NewFromInt(2200)))
	require.Equal(t, int64(3), dashboard.Sales.UnpaidCount)
	require.Len(t, dashboard.LowStock, 1)
	require.Equal(t, 1, repo.calls)

	// second read is served from the cache
	_, err = svc.Dashboard(ctx, 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	// a different period builds its own entry
	_, err = svc.Dashboard(ctx, 1, from.AddDate(0, -1, 0), to.AddDate(0, -1, 0))
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestInvalidateForcesRebuild(t *testing.T) {
	repo := &mockRepo{receivables: decimal.NewFromInt(100)}
	svc := newTestService(t, repo)

	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	_, err := svc.Dashboard(ctx, 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	require.NoError(t, svc.Invalidate(ctx))
	repo.receivables = decimal.NewFromInt(250)

	dashboard, err := svc.Dashboard(ctx, 1, from, to)
	require.NoError(t, err)
	require.True(t, dashboard.Receivables.Equal(decimal.NewFromInt(250)))
	require.Equal(t, 2, repo.calls)
}

func TestDashboardDefaultsPeriod(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	dashboard, err := svc.Dashboard(context.Background(), 1, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.False(t, dashboard.From.IsZero())
	require.Equal(t, 1, dashboard.From.Day())
	require.True(t, dashboard.To.After(dashboard.From))
	require.True(t, repo.lastThreshold.Equal(decimal.NewFromInt(10)))
}
