package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidEntry indicates a row that violates the one-sided invariant.
	ErrInvalidEntry = errors.New("ledger: entry must have exactly one positive side")
	// ErrInvalidAmount indicates a non-positive pair amount.
	ErrInvalidAmount = errors.New("ledger: pair amount must be greater than zero")
)

// Tx exposes the transactional ledger operations. Implementations wrap a live
// database transaction so posting composes into the caller's atomic scope.
type Tx interface {
	InsertEntry(ctx context.Context, entry Entry) (Entry, error)
	DeleteForSource(ctx context.Context, companyID int64, ref SourceRef) (int64, error)
	SumPartyEntries(ctx context.Context, companyID, partyID int64) (PartySums, error)
	GetPartyOpeningBalance(ctx context.Context, companyID, partyID int64) (decimal.Decimal, error)
	SetPartyBalance(ctx context.Context, companyID, partyID int64, balance decimal.Decimal) error
	FindOpeningEntry(ctx context.Context, companyID, partyID int64) (*Entry, error)
	UpdateOpeningEntry(ctx context.Context, entryID int64, debit, credit decimal.Decimal, description string) error
	DeleteOpeningEntries(ctx context.Context, companyID, partyID int64) error
}

// Store posts and removes double-entry rows and maintains the cached party
// balance. It holds no state; every mutation runs on the caller's Tx.
type Store struct {
	now func() time.Time
}

// NewStore builds a Store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post writes a single row after validating the one-sided invariant.
func (s *Store) Post(ctx context.Context, tx Tx, in EntryInput) (Entry, error) {
	if in.Debit.IsNegative() || in.Credit.IsNegative() {
		return Entry{}, ErrInvalidEntry
	}
	if in.Debit.IsPositive() == in.Credit.IsPositive() {
		return Entry{}, ErrInvalidEntry
	}
	entry := Entry{
		CompanyID:   in.CompanyID,
		PartyID:     in.PartyID,
		Account:     in.Account,
		Source:      in.Source,
		Date:        in.Date,
		TxnID:       in.TxnID,
		TxnType:     in.TxnType,
		Description: in.Description,
		Debit:       in.Debit,
		Credit:      in.Credit,
		CreatedAt:   s.now(),
	}
	return tx.InsertEntry(ctx, entry)
}

// PostPair writes one balanced transaction: the party row on the requested
// side and a counter row of the same amount on the opposite side, so debits
// always equal credits per source document.
func (s *Store) PostPair(ctx context.Context, tx Tx, in PairInput) ([]Entry, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	partyID := in.PartyID
	party := EntryInput{
		CompanyID:   in.CompanyID,
		PartyID:     &partyID,
		Account:     AccountParty,
		Source:      in.Source,
		Date:        in.Date,
		TxnID:       in.TxnID,
		TxnType:     in.TxnType,
		Description: in.Description,
	}
	counter := EntryInput{
		CompanyID:   in.CompanyID,
		Account:     in.CounterAccount,
		Source:      in.Source,
		Date:        in.Date,
		TxnID:       in.TxnID,
		TxnType:     in.TxnType,
		Description: in.Description,
	}
	if in.PartySide == SideDebit {
		party.Debit = in.Amount
		counter.Credit = in.Amount
	} else {
		party.Credit = in.Amount
		counter.Debit = in.Amount
	}
	first, err := s.Post(ctx, tx, party)
	if err != nil {
		return nil, err
	}
	second, err := s.Post(ctx, tx, counter)
	if err != nil {
		return nil, err
	}
	return []Entry{first, second}, nil
}

// DeleteForSource removes every entry tied to a source document. Zero rows is
// not an error; callers re-post afterwards when a document is edited.
func (s *Store) DeleteForSource(ctx context.Context, tx Tx, companyID int64, ref SourceRef) (int64, error) {
	return tx.DeleteForSource(ctx, companyID, ref)
}

// RecomputePartyBalance sums the party's rows and writes the cached balance.
// The party's configured opening balance is added when no opening-balance
// entry exists in the ledger yet.
func (s *Store) RecomputePartyBalance(ctx context.Context, tx Tx, companyID, partyID int64) (decimal.Decimal, error) {
	sums, err := tx.SumPartyEntries(ctx, companyID, partyID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: sum party entries: %w", err)
	}
	balance := sums.Debit.Sub(sums.Credit)
	if !sums.HasOpening {
		opening, err := tx.GetPartyOpeningBalance(ctx, companyID, partyID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("ledger: opening balance: %w", err)
		}
		balance = balance.Add(opening)
	}
	if err := tx.SetPartyBalance(ctx, companyID, partyID, balance); err != nil {
		return decimal.Zero, fmt.Errorf("ledger: set party balance: %w", err)
	}
	return balance, nil
}

// UpsertOpeningBalance creates, updates or removes the opening-balance entry
// so it mirrors the party's configured opening balance.
func (s *Store) UpsertOpeningBalance(ctx context.Context, tx Tx, companyID, partyID int64, partyName string, opening decimal.Decimal, asOf time.Time) error {
	if opening.IsZero() {
		return tx.DeleteOpeningEntries(ctx, companyID, partyID)
	}
	debit := decimal.Zero
	credit := decimal.Zero
	if opening.IsPositive() {
		debit = opening
	} else {
		credit = opening.Abs()
	}
	description := fmt.Sprintf("Opening Balance - %s", partyName)
	existing, err := tx.FindOpeningEntry(ctx, companyID, partyID)
	if err != nil {
		return err
	}
	if existing != nil {
		return tx.UpdateOpeningEntry(ctx, existing.ID, debit, credit, description)
	}
	_, err = s.Post(ctx, tx, EntryInput{
		CompanyID:   companyID,
		PartyID:     &partyID,
		Account:     AccountParty,
		Date:        asOf,
		TxnID:       fmt.Sprintf("OB-%d", partyID),
		TxnType:     TxnOpeningBalance,
		Description: description,
		Debit:       debit,
		Credit:      credit,
	})
	return err
}
