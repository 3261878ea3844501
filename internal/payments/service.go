package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/party"
	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/settlement"
	"github.com/dokanhq/dokan/internal/shared"
)

var (
	// ErrNotFound indicates the payment does not exist in the company.
	ErrNotFound = errors.New("payments: not found")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("payments: amount must be greater than zero")
	// ErrPartyRequired indicates a party-bound type without a party.
	ErrPartyRequired = errors.New("payments: this payment type requires a party")
	// ErrPartyNotAllowed indicates a withdraw with a party attached.
	ErrPartyNotAllowed = errors.New("payments: a withdrawal cannot reference a party")
	// ErrWrongRole indicates a party whose role does not match the type.
	ErrWrongRole = errors.New("payments: party role does not match payment type")
	// ErrWrongInvoiceLink indicates an invoice link that contradicts the type.
	ErrWrongInvoiceLink = errors.New("payments: invoice link does not match payment type")
	// ErrNoAdvance indicates a refund larger than the party's advance.
	ErrNoAdvance = errors.New("payments: refund exceeds the party's advance")
)

// TxRepository is the transactional surface a payment mutation runs on. It
// composes the settlement surface so cash payments allocate across invoices
// in the same transaction.
type TxRepository interface {
	settlement.Tx
	GetParty(ctx context.Context, companyID, partyID int64) (party.Party, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	GetPaymentForUpdate(ctx context.Context, companyID, paymentID int64) (Payment, error)
	UpdatePayment(ctx context.Context, p Payment) error
	DeletePayment(ctx context.Context, companyID, paymentID int64) error
	DeleteLedgerForTxn(ctx context.Context, companyID int64, txnID string) (int64, error)
}

// RepositoryPort is the persistence surface the payments service needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPayment(ctx context.Context, companyID, paymentID int64) (Payment, error)
	ListPayments(ctx context.Context, filter ListFilter) ([]Payment, error)
}

// AuditPort records mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records, updates and removes payments. Completed cash payments for
// a customer or supplier are handed to the allocation engine; everything else
// is a single payment row with a ledger pair while it stays completed.
type Service struct {
	repo     RepositoryPort
	engine   *settlement.Engine
	ledger   *ledger.Store
	calc     *settlement.Calculator
	audit    AuditPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, engine *settlement.Engine, ledgerStore *ledger.Store, calc *settlement.Calculator, audit AuditPort) *Service {
	return &Service{
		repo:     repo,
		engine:   engine,
		ledger:   ledgerStore,
		calc:     calc,
		audit:    audit,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create records a payment. A completed cash payment received from a customer
// or made to a supplier is allocated across the party's open invoices oldest
// first; an invoice link pins that invoice to the front of the queue.
func (s *Service) Create(ctx context.Context, companyID int64, req CreateRequest) (Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return Result{}, errors.Join(httpx.ErrValidation, err)
	}
	if !req.Amount.IsPositive() {
		return Result{}, errors.Join(httpx.ErrValidation, ErrInvalidAmount)
	}
	if err := validateLinks(req); err != nil {
		return Result{}, errors.Join(httpx.ErrValidation, err)
	}
	status := req.Status
	if status == "" {
		status = StatusCompleted
	}
	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	reference := req.Reference
	if reference == "" {
		reference = newReference()
	}

	var out Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if req.PartyID != nil {
			p, err := tx.GetParty(ctx, companyID, *req.PartyID)
			if err != nil {
				return err
			}
			if err := checkRole(req.Type, p); err != nil {
				return errors.Join(httpx.ErrValidation, err)
			}
		}

		if kind, ok := allocatable(req, status); ok {
			result, err := s.engine.Apply(ctx, tx, settlement.ApplyInput{
				CompanyID:       companyID,
				PartyID:         *req.PartyID,
				Kind:            kind,
				Amount:          req.Amount,
				Date:            date,
				PinnedInvoiceID: pinnedInvoice(req),
			})
			if err != nil {
				return err
			}
			if _, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, *req.PartyID); err != nil {
				return err
			}
			out = Result{Allocations: result.Allocations, Unapplied: result.Unapplied}
			return nil
		}

		now := s.now()
		created, err := tx.InsertPayment(ctx, Payment{
			CompanyID:  companyID,
			Type:       req.Type,
			PartyID:    req.PartyID,
			SaleID:     req.SaleID,
			PurchaseID: req.PurchaseID,
			Method:     req.Method,
			Status:     status,
			Amount:     req.Amount,
			Date:       date,
			Reference:  reference,
			Notes:      req.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return err
		}
		if created.Status == StatusCompleted {
			if err := s.postLedger(ctx, tx, created); err != nil {
				return err
			}
		}
		if err := s.refreshLinked(ctx, tx, created); err != nil {
			return err
		}
		if created.PartyID != nil {
			if _, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, *created.PartyID); err != nil {
				return err
			}
		}
		out = Result{Payment: &created, Unapplied: decimal.Zero}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if out.Payment != nil {
		s.recordAudit(ctx, companyID, "payments.create", out.Payment.ID)
	}
	return out, nil
}

// Update rewrites a payment's mutable fields. A change to the amount, status
// or method deletes the payment's ledger rows and posts them again from the
// new values.
func (s *Service) Update(ctx context.Context, companyID, paymentID int64, req UpdateRequest) (Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return Payment{}, errors.Join(httpx.ErrValidation, err)
	}
	if !req.Amount.IsPositive() {
		return Payment{}, errors.Join(httpx.ErrValidation, ErrInvalidAmount)
	}
	var out Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPaymentForUpdate(ctx, companyID, paymentID)
		if err != nil {
			return err
		}
		repost := !p.Amount.Equal(req.Amount) || p.Status != req.Status || p.Method != req.Method
		p.Method = req.Method
		p.Status = req.Status
		p.Amount = req.Amount
		if !req.Date.IsZero() {
			p.Date = req.Date
		}
		if req.Reference != "" {
			p.Reference = req.Reference
		}
		p.Notes = req.Notes
		p.UpdatedAt = s.now()
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		if repost {
			if _, err := tx.DeleteLedgerForTxn(ctx, companyID, txnID(p.ID)); err != nil {
				return err
			}
			if p.Status == StatusCompleted {
				if err := s.postLedger(ctx, tx, p); err != nil {
					return err
				}
			}
			if err := s.refreshLinked(ctx, tx, p); err != nil {
				return err
			}
			if p.PartyID != nil {
				if _, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, *p.PartyID); err != nil {
					return err
				}
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	s.recordAudit(ctx, companyID, "payments.update", paymentID)
	return out, nil
}

// Delete removes a payment together with its ledger rows and re-derives the
// linked invoice's payment status and the party balance.
func (s *Service) Delete(ctx context.Context, companyID, paymentID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPaymentForUpdate(ctx, companyID, paymentID)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteLedgerForTxn(ctx, companyID, txnID(p.ID)); err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, companyID, p.ID); err != nil {
			return err
		}
		if err := s.refreshLinked(ctx, tx, p); err != nil {
			return err
		}
		if p.PartyID != nil {
			if _, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, *p.PartyID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, companyID, "payments.delete", paymentID)
	return nil
}

// Get loads one payment.
func (s *Service) Get(ctx context.Context, companyID, paymentID int64) (Payment, error) {
	return s.repo.GetPayment(ctx, companyID, paymentID)
}

// List lists payments.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.ListPayments(ctx, filter)
}

// postLedger writes the ledger rows for one completed payment. Refunds first
// verify the party actually holds an advance covering the amount.
func (s *Service) postLedger(ctx context.Context, tx TxRepository, p Payment) error {
	switch p.Type {
	case TypeWithdraw:
		return s.postWithdraw(ctx, tx, p)
	case TypeCustomerRefund, TypeSupplierRefund:
		balance, err := s.ledger.RecomputePartyBalance(ctx, tx, p.CompanyID, *p.PartyID)
		if err != nil {
			return err
		}
		if !balance.IsNegative() || p.Amount.GreaterThan(balance.Neg()) {
			return errors.Join(httpx.ErrValidation, ErrNoAdvance)
		}
		_, err = s.ledger.PostPair(ctx, tx, ledger.PairInput{
			CompanyID:      p.CompanyID,
			PartyID:        *p.PartyID,
			Source:         &ledger.SourceRef{DocType: ledger.DocTypePayment, DocID: p.ID},
			Date:           p.Date,
			TxnID:          txnID(p.ID),
			TxnType:        ledger.TxnRefund,
			Description:    fmt.Sprintf("Refund %s", p.Reference),
			Amount:         p.Amount,
			PartySide:      ledger.SideDebit,
			CounterAccount: ledger.AccountCash,
		})
		return err
	default:
		txnType := ledger.TxnPaymentReceived
		if p.Type == TypeMade {
			txnType = ledger.TxnPaymentMade
		}
		_, err := s.ledger.PostPair(ctx, tx, ledger.PairInput{
			CompanyID:      p.CompanyID,
			PartyID:        *p.PartyID,
			Source:         paymentSource(p),
			Date:           p.Date,
			TxnID:          txnID(p.ID),
			TxnType:        txnType,
			Description:    fmt.Sprintf("Payment %s", p.Reference),
			Amount:         p.Amount,
			PartySide:      ledger.SideCredit,
			CounterAccount: ledger.AccountCash,
		})
		return err
	}
}

// postWithdraw records an owner withdrawal as a partyless pair: cash down,
// adjustments up.
func (s *Service) postWithdraw(ctx context.Context, tx TxRepository, p Payment) error {
	source := &ledger.SourceRef{DocType: ledger.DocTypePayment, DocID: p.ID}
	description := fmt.Sprintf("Withdrawal %s", p.Reference)
	_, err := s.ledger.Post(ctx, tx, ledger.EntryInput{
		CompanyID:   p.CompanyID,
		Account:     ledger.AccountAdjustments,
		Source:      source,
		Date:        p.Date,
		TxnID:       txnID(p.ID),
		TxnType:     ledger.TxnWithdraw,
		Description: description,
		Debit:       p.Amount,
	})
	if err != nil {
		return err
	}
	_, err = s.ledger.Post(ctx, tx, ledger.EntryInput{
		CompanyID:   p.CompanyID,
		Account:     ledger.AccountCash,
		Source:      source,
		Date:        p.Date,
		TxnID:       txnID(p.ID),
		TxnType:     ledger.TxnWithdraw,
		Description: description,
		Credit:      p.Amount,
	})
	return err
}

// refreshLinked re-derives the payment status of the invoice a payment is
// linked to, if any.
func (s *Service) refreshLinked(ctx context.Context, tx TxRepository, p Payment) error {
	switch {
	case p.SaleID != nil:
		_, err := s.calc.RefreshByID(ctx, tx, p.CompanyID, settlement.KindSale, *p.SaleID)
		return err
	case p.PurchaseID != nil:
		_, err := s.calc.RefreshByID(ctx, tx, p.CompanyID, settlement.KindPurchase, *p.PurchaseID)
		return err
	}
	return nil
}

// allocatable reports whether the request goes through the allocation engine:
// a completed cash payment received from a customer or made to a supplier.
func allocatable(req CreateRequest, status Status) (settlement.InvoiceKind, bool) {
	if req.Method != MethodCash || status != StatusCompleted {
		return "", false
	}
	switch req.Type {
	case TypeReceived:
		return settlement.KindSale, true
	case TypeMade:
		return settlement.KindPurchase, true
	}
	return "", false
}

func pinnedInvoice(req CreateRequest) *int64 {
	if req.Type == TypeReceived {
		return req.SaleID
	}
	return req.PurchaseID
}

// validateLinks checks party presence and invoice links against the type.
func validateLinks(req CreateRequest) error {
	switch req.Type {
	case TypeWithdraw:
		if req.PartyID != nil {
			return ErrPartyNotAllowed
		}
		if req.SaleID != nil || req.PurchaseID != nil {
			return ErrWrongInvoiceLink
		}
	case TypeReceived:
		if req.PartyID == nil {
			return ErrPartyRequired
		}
		if req.PurchaseID != nil {
			return ErrWrongInvoiceLink
		}
	case TypeMade:
		if req.PartyID == nil {
			return ErrPartyRequired
		}
		if req.SaleID != nil {
			return ErrWrongInvoiceLink
		}
	default:
		if req.PartyID == nil {
			return ErrPartyRequired
		}
		if req.SaleID != nil || req.PurchaseID != nil {
			return ErrWrongInvoiceLink
		}
	}
	return nil
}

func checkRole(t Type, p party.Party) error {
	switch t {
	case TypeReceived, TypeCustomerRefund:
		if !p.IsCustomer {
			return ErrWrongRole
		}
	case TypeMade, TypeSupplierRefund:
		if !p.IsSupplier {
			return ErrWrongRole
		}
	}
	return nil
}

func txnID(paymentID int64) string {
	return fmt.Sprintf("PAY-%d", paymentID)
}

// newReference generates a short human-quotable payment reference.
func newReference() string {
	return "PMT-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *Service) recordAudit(ctx context.Context, companyID int64, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		CompanyID: companyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    "payment",
		EntityID:  strconv.FormatInt(entityID, 10),
		At:        s.now(),
	})
}

func paymentSource(p Payment) *ledger.SourceRef {
	switch {
	case p.SaleID != nil:
		return &ledger.SourceRef{DocType: ledger.DocTypeSale, DocID: *p.SaleID}
	case p.PurchaseID != nil:
		return &ledger.SourceRef{DocType: ledger.DocTypePurchase, DocID: *p.PurchaseID}
	}
	return &ledger.SourceRef{DocType: ledger.DocTypePayment, DocID: p.ID}
}
