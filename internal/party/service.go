package party

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/shared"
)

var (
	// ErrNotFound indicates the party does not exist in the company.
	ErrNotFound = errors.New("party: not found")
	// ErrNoRole indicates a party with neither the customer nor supplier role.
	ErrNoRole = errors.New("party: must be a customer, a supplier, or both")
)

// TxRepository is the transactional surface for balance work: the ledger
// operations plus the party rows they anchor to.
type TxRepository interface {
	ledger.Tx
	GetParty(ctx context.Context, companyID, partyID int64) (Party, error)
	SetOpeningBalance(ctx context.Context, companyID, partyID int64, amount decimal.Decimal) error
}

// RepositoryPort is the persistence surface the party service needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Create(ctx context.Context, p Party) (Party, error)
	Update(ctx context.Context, p Party) (Party, error)
	Get(ctx context.Context, companyID, partyID int64) (Party, error)
	List(ctx context.Context, companyID int64, role string, limit, offset int) ([]Party, error)
}

// AuditPort records mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements party management and balance maintenance.
type Service struct {
	repo     RepositoryPort
	ledger   *ledger.Store
	audit    AuditPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, ledgerStore *ledger.Store, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledgerStore, audit: audit, validate: validator.New(), now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create registers a party. When an opening balance is given the matching
// ledger entry and cached balance are written in the same transaction.
func (s *Service) Create(ctx context.Context, companyID int64, req CreateRequest) (Party, error) {
	if err := s.validate.Struct(req); err != nil {
		return Party{}, errors.Join(httpx.ErrValidation, err)
	}
	if !req.IsCustomer && !req.IsSupplier {
		return Party{}, errors.Join(httpx.ErrValidation, ErrNoRole)
	}
	now := s.now()
	created, err := s.repo.Create(ctx, Party{
		CompanyID:      companyID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		IsCustomer:     req.IsCustomer,
		IsSupplier:     req.IsSupplier,
		OpeningBalance: req.OpeningBalance,
		Balance:        req.OpeningBalance,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Party{}, err
	}
	if !req.OpeningBalance.IsZero() {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := s.ledger.UpsertOpeningBalance(ctx, tx, companyID, created.ID, created.Name, req.OpeningBalance, now); err != nil {
				return err
			}
			balance, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, created.ID)
			if err != nil {
				return err
			}
			created.Balance = balance
			return nil
		})
		if err != nil {
			return Party{}, err
		}
	}
	s.recordAudit(ctx, companyID, "party.create", created.ID)
	return created, nil
}

// Update edits party fields. Roles can be widened or narrowed; removing the
// last role is rejected.
func (s *Service) Update(ctx context.Context, companyID, partyID int64, req UpdateRequest) (Party, error) {
	if err := s.validate.Struct(req); err != nil {
		return Party{}, errors.Join(httpx.ErrValidation, err)
	}
	if !req.IsCustomer && !req.IsSupplier {
		return Party{}, errors.Join(httpx.ErrValidation, ErrNoRole)
	}
	p, err := s.repo.Get(ctx, companyID, partyID)
	if err != nil {
		return Party{}, err
	}
	p.Name = req.Name
	p.Phone = req.Phone
	p.Email = req.Email
	p.Address = req.Address
	p.IsCustomer = req.IsCustomer
	p.IsSupplier = req.IsSupplier
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Party{}, err
	}
	s.recordAudit(ctx, companyID, "party.update", partyID)
	return updated, nil
}

// Get loads one party.
func (s *Service) Get(ctx context.Context, companyID, partyID int64) (Party, error) {
	return s.repo.Get(ctx, companyID, partyID)
}

// List lists company parties, optionally filtered by role.
func (s *Service) List(ctx context.Context, companyID int64, role string, limit, offset int) ([]Party, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, companyID, role, limit, offset)
}

// SetOpeningBalance changes the configured opening balance, keeps the ledger
// entry in sync and recomputes the cached balance, all atomically.
func (s *Service) SetOpeningBalance(ctx context.Context, companyID, partyID int64, amount decimal.Decimal) (Party, error) {
	var out Party
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetParty(ctx, companyID, partyID)
		if err != nil {
			return err
		}
		if err := tx.SetOpeningBalance(ctx, companyID, partyID, amount); err != nil {
			return err
		}
		if err := s.ledger.UpsertOpeningBalance(ctx, tx, companyID, partyID, p.Name, amount, s.now()); err != nil {
			return err
		}
		balance, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, partyID)
		if err != nil {
			return err
		}
		p.OpeningBalance = amount
		p.Balance = balance
		out = p
		return nil
	})
	if err != nil {
		return Party{}, err
	}
	s.recordAudit(ctx, companyID, "party.opening_balance", partyID)
	return out, nil
}

// RecomputeBalance re-derives the cached balance from the ledger. Exposed as
// a repair endpoint; mutations keep the cache fresh on their own.
func (s *Service) RecomputeBalance(ctx context.Context, companyID, partyID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetParty(ctx, companyID, partyID); err != nil {
			return err
		}
		var err error
		balance, err = s.ledger.RecomputePartyBalance(ctx, tx, companyID, partyID)
		return err
	})
	return balance, err
}

func (s *Service) recordAudit(ctx context.Context, companyID int64, action string, partyID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		CompanyID: companyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    "party",
		EntityID:  strconv.FormatInt(partyID, 10),
		At:        s.now(),
	})
}
