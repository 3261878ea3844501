package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGRepository runs the dashboard aggregates against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ReceivablesTotal sums what customers currently owe.
func (r *PGRepository) ReceivablesTotal(ctx context.Context, companyID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM parties WHERE company_id=$1 AND is_customer AND balance > 0`,
		companyID).Scan(&total)
	return total, err
}

// PayablesTotal sums what is currently owed to suppliers.
func (r *PGRepository) PayablesTotal(ctx context.Context, companyID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM parties WHERE company_id=$1 AND is_supplier AND balance > 0`,
		companyID).Scan(&total)
	return total, err
}

func (r *PGRepository) SalesSummary(ctx context.Context, companyID int64, from, to time.Time) (DocumentSummary, error) {
	return r.documentSummary(ctx, "sales_orders", "delivered", companyID, from, to)
}

func (r *PGRepository) PurchaseSummary(ctx context.Context, companyID int64, from, to time.Time) (DocumentSummary, error) {
	return r.documentSummary(ctx, "purchase_orders", "completed", companyID, from, to)
}

func (r *PGRepository) documentSummary(ctx context.Context, table, realized string, companyID int64, from, to time.Time) (DocumentSummary, error) {
	var s DocumentSummary
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(grand_total), 0), COUNT(*),
  COUNT(*) FILTER (WHERE payment_status IN ('unpaid', 'partial'))
FROM `+table+`
WHERE company_id=$1 AND status=$2 AND invoice_date BETWEEN $3 AND $4`,
		companyID, realized, from, to).Scan(&s.Total, &s.Count, &s.UnpaidCount)
	return s, err
}

// LowStock lists tracked products at or below the threshold, lowest first.
func (r *PGRepository) LowStock(ctx context.Context, companyID int64, threshold decimal.Decimal, limit int) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, l.quantity
FROM stock_levels l
JOIN products p ON p.id = l.product_id
WHERE l.company_id=$1 AND p.track_stock AND p.is_active AND l.quantity <= $2
ORDER BY l.quantity, p.name
LIMIT $3`, companyID, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LowStockItem{}
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
