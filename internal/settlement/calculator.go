package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// StatusTx exposes the per-invoice financial reads and the status write the
// calculator needs. Implementations run inside the caller's transaction.
type StatusTx interface {
	GetInvoice(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (Invoice, error)
	SumCompletedReturns(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (decimal.Decimal, error)
	SumCompletedCashPayments(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (decimal.Decimal, error)
	SetInvoicePayment(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64, paid decimal.Decimal, status PaymentStatus) error
}

// Calculator derives an invoice's outstanding balance and payment status from
// its completed returns and completed cash payments. Non-cash payments and
// pending documents never move the status.
type Calculator struct{}

// NewCalculator builds a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// OutstandingBalance returns grand total minus completed returns minus
// completed cash payments. Negative means the invoice is overpaid.
func (c *Calculator) OutstandingBalance(ctx context.Context, tx StatusTx, inv Invoice) (decimal.Decimal, error) {
	returns, err := tx.SumCompletedReturns(ctx, inv.CompanyID, inv.Kind, inv.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("settlement: sum returns: %w", err)
	}
	payments, err := tx.SumCompletedCashPayments(ctx, inv.CompanyID, inv.Kind, inv.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("settlement: sum payments: %w", err)
	}
	return inv.GrandTotal.Sub(returns).Sub(payments), nil
}

// StatusFromBalance maps an outstanding balance onto the payment status.
// The zero check precedes the unpaid check so a fully returned or zero-total
// invoice reads as paid.
func (c *Calculator) StatusFromBalance(outstanding, grandTotal decimal.Decimal) PaymentStatus {
	switch {
	case outstanding.IsNegative():
		return StatusOverpaid
	case outstanding.IsZero():
		return StatusPaid
	case outstanding.GreaterThanOrEqual(grandTotal):
		return StatusUnpaid
	default:
		return StatusPartial
	}
}

// Refresh recomputes and persists the invoice's paid amount and payment
// status. It is idempotent; running it twice in a row leaves the same state.
func (c *Calculator) Refresh(ctx context.Context, tx StatusTx, inv Invoice) (PaymentStatus, decimal.Decimal, error) {
	outstanding, err := c.OutstandingBalance(ctx, tx, inv)
	if err != nil {
		return "", decimal.Zero, err
	}
	paid, err := tx.SumCompletedCashPayments(ctx, inv.CompanyID, inv.Kind, inv.ID)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("settlement: sum payments: %w", err)
	}
	status := c.StatusFromBalance(outstanding, inv.GrandTotal)
	if err := tx.SetInvoicePayment(ctx, inv.CompanyID, inv.Kind, inv.ID, paid, status); err != nil {
		return "", decimal.Zero, fmt.Errorf("settlement: set invoice payment: %w", err)
	}
	return status, outstanding, nil
}

// RefreshByID loads the invoice and recomputes its settlement state.
func (c *Calculator) RefreshByID(ctx context.Context, tx StatusTx, companyID int64, kind InvoiceKind, invoiceID int64) (PaymentStatus, error) {
	inv, err := tx.GetInvoice(ctx, companyID, kind, invoiceID)
	if err != nil {
		return "", err
	}
	status, _, err := c.Refresh(ctx, tx, inv)
	return status, err
}
