package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/observability"
)

var (
	// ErrInvalidAmount indicates a non-positive payment amount.
	ErrInvalidAmount = errors.New("settlement: payment amount must be greater than zero")
	// ErrInvoiceNotFound indicates the pinned invoice does not exist for the party.
	ErrInvoiceNotFound = errors.New("settlement: invoice not found")
)

// Tx is the transactional surface the allocation engine runs on. It extends
// the status reads with row-locked candidate selection and the ledger
// operations, so one payment allocates atomically across several invoices.
type Tx interface {
	StatusTx
	ledger.Tx
	LockCandidates(ctx context.Context, companyID, partyID int64, kind InvoiceKind) ([]Invoice, error)
	LockInvoice(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (Invoice, error)
	InsertCashPayment(ctx context.Context, p CashPayment) (int64, error)
}

// Engine applies a cash payment across a party's open invoices oldest first.
// Each allocated slice becomes its own completed cash payment row plus a
// balanced ledger pair, so the status calculator and the party balance both
// see it.
type Engine struct {
	ledger  *ledger.Store
	calc    *Calculator
	metrics *observability.Metrics
	now     func() time.Time
}

// NewEngine builds an Engine.
func NewEngine(ledgerStore *ledger.Store, calc *Calculator, metrics *observability.Metrics) *Engine {
	return &Engine{ledger: ledgerStore, calc: calc, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Apply walks the party's open invoices in first-in-first-out order and
// settles each one until the payment runs out. A pinned invoice is settled
// first regardless of its age. Candidate rows are locked before their
// outstanding balance is read, so two concurrent payments for the same party
// cannot both settle the same invoice slice. Whatever no invoice can absorb
// is returned as Unapplied without recording anything for it.
func (e *Engine) Apply(ctx context.Context, tx Tx, in ApplyInput) (ApplyResult, error) {
	if !in.Amount.IsPositive() {
		return ApplyResult{}, ErrInvalidAmount
	}
	candidates, err := e.collectCandidates(ctx, tx, in)
	if err != nil {
		return ApplyResult{}, err
	}

	result := ApplyResult{Allocations: []Allocation{}, Unapplied: in.Amount}
	for _, inv := range candidates {
		if !result.Unapplied.IsPositive() {
			break
		}
		outstanding, err := e.calc.OutstandingBalance(ctx, tx, inv)
		if err != nil {
			return ApplyResult{}, err
		}
		if !outstanding.IsPositive() {
			continue
		}
		applied := decimal.Min(outstanding, result.Unapplied)
		if err := e.allocate(ctx, tx, in, inv, applied); err != nil {
			return ApplyResult{}, err
		}
		status, _, err := e.calc.Refresh(ctx, tx, inv)
		if err != nil {
			return ApplyResult{}, err
		}
		result.Allocations = append(result.Allocations, Allocation{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			Amount:        applied,
			Status:        status,
		})
		result.Unapplied = result.Unapplied.Sub(applied)
	}
	e.metrics.CountSettlementAllocations(string(in.Kind), len(result.Allocations))
	return result, nil
}

// collectCandidates locks the open invoices in allocation order, putting the
// pinned invoice first and dropping its duplicate from the tail.
func (e *Engine) collectCandidates(ctx context.Context, tx Tx, in ApplyInput) ([]Invoice, error) {
	var pinned *Invoice
	if in.PinnedInvoiceID != nil {
		inv, err := tx.LockInvoice(ctx, in.CompanyID, in.Kind, *in.PinnedInvoiceID)
		if err != nil {
			return nil, err
		}
		if inv.PartyID != in.PartyID {
			return nil, ErrInvoiceNotFound
		}
		pinned = &inv
	}
	open, err := tx.LockCandidates(ctx, in.CompanyID, in.PartyID, in.Kind)
	if err != nil {
		return nil, fmt.Errorf("settlement: lock candidates: %w", err)
	}
	if pinned == nil {
		return open, nil
	}
	candidates := []Invoice{*pinned}
	for _, inv := range open {
		if inv.ID != pinned.ID {
			candidates = append(candidates, inv)
		}
	}
	return candidates, nil
}

// allocate records one settled slice: a completed cash payment row linked to
// the invoice and a ledger pair crediting the party against cash. The ledger
// rows carry the invoice as their source so removing the invoice removes its
// settlement history with it.
func (e *Engine) allocate(ctx context.Context, tx Tx, in ApplyInput, inv Invoice, amount decimal.Decimal) error {
	paymentID, err := tx.InsertCashPayment(ctx, CashPayment{
		CompanyID: in.CompanyID,
		PartyID:   in.PartyID,
		Kind:      in.Kind,
		InvoiceID: inv.ID,
		Amount:    amount,
		Date:      in.Date,
		Notes:     fmt.Sprintf("Payment for %s", inv.Number),
	})
	if err != nil {
		return fmt.Errorf("settlement: insert payment: %w", err)
	}
	txnType := ledger.TxnPaymentReceived
	docType := ledger.DocTypeSale
	if in.Kind == KindPurchase {
		txnType = ledger.TxnPaymentMade
		docType = ledger.DocTypePurchase
	}
	_, err = e.ledger.PostPair(ctx, tx, ledger.PairInput{
		CompanyID:      in.CompanyID,
		PartyID:        in.PartyID,
		Source:         &ledger.SourceRef{DocType: docType, DocID: inv.ID},
		Date:           in.Date,
		TxnID:          fmt.Sprintf("PAY-%d", paymentID),
		TxnType:        txnType,
		Description:    fmt.Sprintf("Payment for %s", inv.Number),
		Amount:         amount,
		PartySide:      ledger.SideCredit,
		CounterAccount: ledger.AccountCash,
	})
	if err != nil {
		return fmt.Errorf("settlement: post payment pair: %w", err)
	}
	return nil
}
