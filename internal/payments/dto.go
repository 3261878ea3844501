package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRequest is the payload for recording a payment.
type CreateRequest struct {
	Type       Type            `json:"payment_type" validate:"required,oneof=received made customer_refund supplier_refund withdraw"`
	PartyID    *int64          `json:"party_id" validate:"omitempty,gt=0"`
	SaleID     *int64          `json:"sales_order_id" validate:"omitempty,gt=0"`
	PurchaseID *int64          `json:"purchase_order_id" validate:"omitempty,gt=0"`
	Method     Method          `json:"method" validate:"required,oneof=cash bank_transfer cheque mobile_banking"`
	Status     Status          `json:"status" validate:"omitempty,oneof=pending completed"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Reference  string          `json:"reference" validate:"omitempty,max=100"`
	Notes      string          `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateRequest carries the mutable fields of a payment. Changing the amount,
// status or method re-posts the payment's ledger rows.
type UpdateRequest struct {
	Method    Method          `json:"method" validate:"required,oneof=cash bank_transfer cheque mobile_banking"`
	Status    Status          `json:"status" validate:"required,oneof=pending completed cancelled"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference" validate:"omitempty,max=100"`
	Notes     string          `json:"notes" validate:"omitempty,max=1000"`
}
