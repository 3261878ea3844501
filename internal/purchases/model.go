// Package purchases manages purchase orders and purchase returns,
// orchestrating their stock, ledger and settlement effects.
package purchases

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/settlement"
)

// OrderStatus is the document lifecycle state. Financial and stock effects
// exist only while the order is completed.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// ReturnStatus is the lifecycle state of a purchase return.
type ReturnStatus string

const (
	ReturnPending   ReturnStatus = "pending"
	ReturnCompleted ReturnStatus = "completed"
	ReturnCancelled ReturnStatus = "cancelled"
)

// Order is a purchase invoice.
type Order struct {
	ID             int64                    `json:"id"`
	CompanyID      int64                    `json:"company_id"`
	PartyID        int64                    `json:"party_id"`
	InvoiceNumber  string                   `json:"invoice_number"`
	Status         OrderStatus              `json:"status"`
	PaymentStatus  settlement.PaymentStatus `json:"payment_status"`
	InvoiceDate    time.Time                `json:"invoice_date"`
	Subtotal       decimal.Decimal          `json:"subtotal"`
	DiscountAmount decimal.Decimal          `json:"discount_amount"`
	TaxAmount      decimal.Decimal          `json:"tax_amount"`
	GrandTotal     decimal.Decimal          `json:"grand_total"`
	PaidAmount     decimal.Decimal          `json:"paid_amount"`
	Notes          string                   `json:"notes,omitempty"`
	Items          []Item                   `json:"items"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// Item is one invoice line.
type Item struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitID      int64           `json:"unit_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Return is a purchase return against one completed invoice.
type Return struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	OrderID      int64           `json:"order_id"`
	PartyID      int64           `json:"party_id"`
	ReturnNumber string          `json:"return_number"`
	Status       ReturnStatus    `json:"status"`
	ReturnDate   time.Time       `json:"return_date"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Notes        string          `json:"notes,omitempty"`
	Items        []Item          `json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	CompanyID     int64
	PartyID       int64
	Status        OrderStatus
	PaymentStatus settlement.PaymentStatus
	Limit         int
	Offset        int
}
