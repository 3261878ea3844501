// Package reports serves cached company-level aggregates for the dashboard.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentSummary aggregates one invoice family over a period.
type DocumentSummary struct {
	Total       decimal.Decimal `json:"total"`
	Count       int64           `json:"count"`
	UnpaidCount int64           `json:"unpaid_count"`
}

// LowStockItem is a tracked product running low.
type LowStockItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Dashboard is the company overview: open positions, period activity and
// stock that needs attention.
type Dashboard struct {
	Receivables decimal.Decimal `json:"receivables"`
	Payables    decimal.Decimal `json:"payables"`
	Sales       DocumentSummary `json:"sales"`
	Purchases   DocumentSummary `json:"purchases"`
	LowStock    []LowStockItem  `json:"low_stock"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
}
