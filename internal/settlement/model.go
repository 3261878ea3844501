package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceKind selects which invoice family an operation targets.
type InvoiceKind string

const (
	KindSale     InvoiceKind = "sale"
	KindPurchase InvoiceKind = "purchase"
)

// PaymentStatus is the derived settlement state of an invoice. It is never
// set directly; the calculator recomputes it from the invoice's financial
// activity.
type PaymentStatus string

const (
	StatusUnpaid   PaymentStatus = "unpaid"
	StatusPartial  PaymentStatus = "partial"
	StatusPaid     PaymentStatus = "paid"
	StatusOverpaid PaymentStatus = "overpaid"
)

// Invoice is the settlement view of a sales or purchase order: just the
// fields the calculator and allocation engine need.
type Invoice struct {
	ID          int64
	CompanyID   int64
	PartyID     int64
	Kind        InvoiceKind
	Number      string
	GrandTotal  decimal.Decimal
	PaidAmount  decimal.Decimal
	Status      PaymentStatus
	InvoiceDate time.Time
	CreatedAt   time.Time
}

// CashPayment is an allocation row the engine records against one invoice.
type CashPayment struct {
	CompanyID int64
	PartyID   int64
	Kind      InvoiceKind
	InvoiceID int64
	Amount    decimal.Decimal
	Date      time.Time
	Notes     string
}

// Allocation reports one slice of a payment applied to an invoice.
type Allocation struct {
	InvoiceID     int64           `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PaymentStatus   `json:"status"`
}

// ApplyInput describes a payment to allocate across a party's open invoices.
type ApplyInput struct {
	CompanyID       int64
	PartyID         int64
	Kind            InvoiceKind
	Amount          decimal.Decimal
	Date            time.Time
	PinnedInvoiceID *int64
}

// ApplyResult is the outcome of one allocation run. Unapplied is the portion
// of the payment no open invoice could absorb; nothing is recorded for it,
// the caller decides what to do with the remainder.
type ApplyResult struct {
	Allocations []Allocation    `json:"applied_to_invoices"`
	Unapplied   decimal.Decimal `json:"unapplied"`
}
