package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemRequest is one requested invoice line. A zero unit price falls back to
// the product's selling price.
type ItemRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	UnitID    int64           `json:"unit_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest is the payload for creating a sales order.
type CreateOrderRequest struct {
	PartyID        int64           `json:"party_id" validate:"required,gt=0"`
	InvoiceDate    time.Time       `json:"invoice_date"`
	Items          []ItemRequest   `json:"items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Notes          string          `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateOrderRequest replaces the mutable fields of a pending order.
type UpdateOrderRequest struct {
	InvoiceDate    time.Time       `json:"invoice_date"`
	Items          []ItemRequest   `json:"items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Notes          string          `json:"notes" validate:"omitempty,max=1000"`
}

// CreateReturnRequest is the payload for creating a sales return.
type CreateReturnRequest struct {
	OrderID    int64         `json:"order_id" validate:"required,gt=0"`
	ReturnDate time.Time     `json:"return_date"`
	Items      []ItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes      string        `json:"notes" validate:"omitempty,max=1000"`
}
