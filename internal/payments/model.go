package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/settlement"
)

// Type classifies the direction and purpose of a payment.
type Type string

const (
	// TypeReceived is money collected from a customer.
	TypeReceived Type = "received"
	// TypeMade is money paid to a supplier.
	TypeMade Type = "made"
	// TypeCustomerRefund returns a customer's advance to them.
	TypeCustomerRefund Type = "customer_refund"
	// TypeSupplierRefund is a supplier returning our advance.
	TypeSupplierRefund Type = "supplier_refund"
	// TypeWithdraw is an owner cash withdrawal, no party involved.
	TypeWithdraw Type = "withdraw"
)

// Method is how the money moved.
type Method string

const (
	MethodCash          Method = "cash"
	MethodBankTransfer  Method = "bank_transfer"
	MethodCheque        Method = "cheque"
	MethodMobileBanking Method = "mobile_banking"
)

// Status is the lifecycle state of a payment row. Only completed payments
// post ledger rows and count toward invoice settlement.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Payment is one money movement. Cash payments settled against invoices by
// the allocation engine carry the invoice link; manual payments stand alone.
type Payment struct {
	ID         int64           `json:"id"`
	CompanyID  int64           `json:"company_id"`
	Type       Type            `json:"payment_type"`
	PartyID    *int64          `json:"party_id,omitempty"`
	SaleID     *int64          `json:"sales_order_id,omitempty"`
	PurchaseID *int64          `json:"purchase_order_id,omitempty"`
	Method     Method          `json:"method"`
	Status     Status          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Reference  string          `json:"reference"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Result is the outcome of recording a payment. Cash payments applied by the
// allocation engine report the settled slices; the unapplied remainder stays
// on the party balance as an advance.
type Result struct {
	Payment     *Payment                `json:"payment,omitempty"`
	Allocations []settlement.Allocation `json:"applied_to_invoices,omitempty"`
	Unapplied   decimal.Decimal         `json:"unapplied"`
}

// ListFilter narrows payment listings.
type ListFilter struct {
	CompanyID int64
	PartyID   int64
	Type      Type
	Method    Method
	Status    Status
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
