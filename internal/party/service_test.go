package party

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/platform/httpx"
)

type memRepo struct {
	parties map[int64]*Party
	nextID  int64
	entries []ledger.Entry
	nextEID int64
}

func newMemRepo() *memRepo {
	return &memRepo{parties: map[int64]*Party{}, nextID: 1, nextEID: 1}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) Create(_ context.Context, p Party) (Party, error) {
	p.ID = m.nextID
	m.nextID++
	cp := p
	m.parties[p.ID] = &cp
	return p, nil
}

func (m *memRepo) Update(_ context.Context, p Party) (Party, error) {
	if _, ok := m.parties[p.ID]; !ok {
		return Party{}, ErrNotFound
	}
	cp := p
	m.parties[p.ID] = &cp
	return p, nil
}

func (m *memRepo) Get(_ context.Context, companyID, partyID int64) (Party, error) {
	p, ok := m.parties[partyID]
	if !ok || p.CompanyID != companyID {
		return Party{}, ErrNotFound
	}
	return *p, nil
}

func (m *memRepo) List(_ context.Context, companyID int64, role string, _, _ int) ([]Party, error) {
	out := []Party{}
	for _, p := range m.parties {
		if p.CompanyID != companyID {
			continue
		}
		if role == "customer" && !p.IsCustomer {
			continue
		}
		if role == "supplier" && !p.IsSupplier {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memRepo) GetParty(ctx context.Context, companyID, partyID int64) (Party, error) {
	return m.Get(ctx, companyID, partyID)
}

func (m *memRepo) SetOpeningBalance(_ context.Context, _, partyID int64, amount decimal.Decimal) error {
	if p, ok := m.parties[partyID]; ok {
		p.OpeningBalance = amount
	}
	return nil
}

func (m *memRepo) InsertEntry(_ context.Context, entry ledger.Entry) (ledger.Entry, error) {
	entry.ID = m.nextEID
	m.nextEID++
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memRepo) DeleteForSource(_ context.Context, _ int64, ref ledger.SourceRef) (int64, error) {
	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.Source != nil && *e.Source == ref {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

func (m *memRepo) SumPartyEntries(_ context.Context, companyID, partyID int64) (ledger.PartySums, error) {
	sums := ledger.PartySums{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, e := range m.entries {
		if e.CompanyID != companyID || e.PartyID == nil || *e.PartyID != partyID {
			continue
		}
		sums.Debit = sums.Debit.Add(e.Debit)
		sums.Credit = sums.Credit.Add(e.Credit)
		if e.TxnType == ledger.TxnOpeningBalance {
			sums.HasOpening = true
		}
	}
	return sums, nil
}

func (m *memRepo) GetPartyOpeningBalance(_ context.Context, _, partyID int64) (decimal.Decimal, error) {
	if p, ok := m.parties[partyID]; ok {
		return p.OpeningBalance, nil
	}
	return decimal.Zero, nil
}

func (m *memRepo) SetPartyBalance(_ context.Context, _, partyID int64, balance decimal.Decimal) error {
	if p, ok := m.parties[partyID]; ok {
		p.Balance = balance
	}
	return nil
}

func (m *memRepo) FindOpeningEntry(_ context.Context, companyID, partyID int64) (*ledger.Entry, error) {
	for i := range m.entries {
		e := m.entries[i]
		if e.CompanyID == companyID && e.PartyID != nil && *e.PartyID == partyID && e.TxnType == ledger.TxnOpeningBalance {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *memRepo) UpdateOpeningEntry(_ context.Context, entryID int64, debit, credit decimal.Decimal, description string) error {
	for i := range m.entries {
		if m.entries[i].ID == entryID {
			m.entries[i].Debit = debit
			m.entries[i].Credit = credit
			m.entries[i].Description = description
		}
	}
	return nil
}

func (m *memRepo) DeleteOpeningEntries(_ context.Context, companyID, partyID int64) error {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.CompanyID == companyID && e.PartyID != nil && *e.PartyID == partyID && e.TxnType == ledger.TxnOpeningBalance {
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateRequiresARole(t *testing.T) {
	svc := NewService(newMemRepo(), ledger.NewStore(), nil)
	_, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Acme"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateWithOpeningBalancePostsLedgerEntry(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, ledger.NewStore(), nil)

	p, err := svc.Create(context.Background(), 1, CreateRequest{
		Name: "Acme", IsCustomer: true, OpeningBalance: dec("500"),
	})
	require.NoError(t, err)
	require.True(t, p.Balance.Equal(dec("500")))
	require.Len(t, repo.entries, 1)
	require.Equal(t, ledger.TxnOpeningBalance, repo.entries[0].TxnType)
	require.True(t, repo.entries[0].Debit.Equal(dec("500")))
}

func TestSetOpeningBalanceReplacesEntryAndRecomputes(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, ledger.NewStore(), nil)

	p, err := svc.Create(context.Background(), 1, CreateRequest{
		Name: "Acme", IsCustomer: true, OpeningBalance: dec("500"),
	})
	require.NoError(t, err)

	updated, err := svc.SetOpeningBalance(context.Background(), 1, p.ID, dec("-200"))
	require.NoError(t, err)
	require.True(t, updated.OpeningBalance.Equal(dec("-200")))
	require.True(t, updated.Balance.Equal(dec("-200")))
	require.Len(t, repo.entries, 1)
	require.True(t, repo.entries[0].Credit.Equal(dec("200")))

	cleared, err := svc.SetOpeningBalance(context.Background(), 1, p.ID, decimal.Zero)
	require.NoError(t, err)
	require.True(t, cleared.Balance.IsZero())
	require.Empty(t, repo.entries)
}

func TestUpdateCannotRemoveLastRole(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, ledger.NewStore(), nil)

	p, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Acme", IsCustomer: true})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 1, p.ID, UpdateRequest{Name: "Acme"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	updated, err := svc.Update(context.Background(), 1, p.ID, UpdateRequest{Name: "Acme Ltd", IsSupplier: true})
	require.NoError(t, err)
	require.True(t, updated.IsSupplier)
	require.False(t, updated.IsCustomer)
}

func TestRecomputeBalanceFromLedger(t *testing.T) {
	repo := newMemRepo()
	store := ledger.NewStore()
	svc := NewService(repo, store, nil)

	p, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Acme", IsCustomer: true})
	require.NoError(t, err)

	ref := ledger.SourceRef{DocType: ledger.DocTypeSale, DocID: 1}
	_, err = store.PostPair(context.Background(), repo, ledger.PairInput{
		CompanyID: 1, PartyID: p.ID, Source: &ref, TxnID: "INV-2026-00001",
		TxnType: ledger.TxnSale, Amount: dec("300"),
		PartySide: ledger.SideDebit, CounterAccount: ledger.AccountSales,
	})
	require.NoError(t, err)

	balance, err := svc.RecomputeBalance(context.Background(), 1, p.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("300")))
	require.True(t, repo.parties[p.ID].Balance.Equal(dec("300")))
}
