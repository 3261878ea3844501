package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memTx struct {
	entries  []Entry
	nextID   int64
	openings map[int64]decimal.Decimal
	balances map[int64]decimal.Decimal
}

func newMemTx() *memTx {
	return &memTx{
		nextID:   1,
		openings: map[int64]decimal.Decimal{},
		balances: map[int64]decimal.Decimal{},
	}
}

func (m *memTx) InsertEntry(_ context.Context, entry Entry) (Entry, error) {
	entry.ID = m.nextID
	m.nextID++
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memTx) DeleteForSource(_ context.Context, companyID int64, ref SourceRef) (int64, error) {
	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.CompanyID == companyID && e.Source != nil && *e.Source == ref {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

func (m *memTx) SumPartyEntries(_ context.Context, companyID, partyID int64) (PartySums, error) {
	sums := PartySums{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, e := range m.entries {
		if e.CompanyID != companyID || e.PartyID == nil || *e.PartyID != partyID || e.Account != AccountParty {
			continue
		}
		sums.Debit = sums.Debit.Add(e.Debit)
		sums.Credit = sums.Credit.Add(e.Credit)
		if e.TxnType == TxnOpeningBalance {
			sums.HasOpening = true
		}
	}
	return sums, nil
}

func (m *memTx) GetPartyOpeningBalance(_ context.Context, _, partyID int64) (decimal.Decimal, error) {
	if v, ok := m.openings[partyID]; ok {
		return v, nil
	}
	return decimal.Zero, nil
}

func (m *memTx) SetPartyBalance(_ context.Context, _, partyID int64, balance decimal.Decimal) error {
	m.balances[partyID] = balance
	return nil
}

func (m *memTx) FindOpeningEntry(_ context.Context, companyID, partyID int64) (*Entry, error) {
	for i := range m.entries {
		e := m.entries[i]
		if e.CompanyID == companyID && e.PartyID != nil && *e.PartyID == partyID && e.TxnType == TxnOpeningBalance {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *memTx) UpdateOpeningEntry(_ context.Context, entryID int64, debit, credit decimal.Decimal, description string) error {
	for i := range m.entries {
		if m.entries[i].ID == entryID {
			m.entries[i].Debit = debit
			m.entries[i].Credit = credit
			m.entries[i].Description = description
		}
	}
	return nil
}

func (m *memTx) DeleteOpeningEntries(_ context.Context, companyID, partyID int64) error {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.CompanyID == companyID && e.PartyID != nil && *e.PartyID == partyID && e.TxnType == TxnOpeningBalance {
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

func TestPostRejectsTwoSidedEntries(t *testing.T) {
	store := NewStore()
	tx := newMemTx()
	partyID := int64(7)

	_, err := store.Post(context.Background(), tx, EntryInput{
		CompanyID: 1, PartyID: &partyID, Account: AccountParty,
		Debit: dec("100"), Credit: dec("100"),
	})
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = store.Post(context.Background(), tx, EntryInput{
		CompanyID: 1, PartyID: &partyID, Account: AccountParty,
	})
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = store.Post(context.Background(), tx, EntryInput{
		CompanyID: 1, PartyID: &partyID, Account: AccountParty,
		Debit: dec("-5"),
	})
	require.ErrorIs(t, err, ErrInvalidEntry)
}

func TestPostPairBalancesDebitsAndCredits(t *testing.T) {
	store := NewStore()
	tx := newMemTx()
	ref := SourceRef{DocType: DocTypeSale, DocID: 42}

	entries, err := store.PostPair(context.Background(), tx, PairInput{
		CompanyID:      1,
		PartyID:        7,
		Source:         &ref,
		Date:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		TxnID:          "INV-2026-00001",
		TxnType:        TxnSale,
		Amount:         dec("250.50"),
		PartySide:      SideDebit,
		CounterAccount: AccountSales,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, AccountParty, entries[0].Account)
	require.True(t, entries[0].Debit.Equal(dec("250.50")))
	require.True(t, entries[0].Credit.IsZero())

	require.Equal(t, AccountSales, entries[1].Account)
	require.True(t, entries[1].Credit.Equal(dec("250.50")))
	require.Nil(t, entries[1].PartyID)

	totalDebit := entries[0].Debit.Add(entries[1].Debit)
	totalCredit := entries[0].Credit.Add(entries[1].Credit)
	require.True(t, totalDebit.Equal(totalCredit))
}

func TestPostPairRejectsNonPositiveAmount(t *testing.T) {
	store := NewStore()
	tx := newMemTx()

	_, err := store.PostPair(context.Background(), tx, PairInput{
		CompanyID: 1, PartyID: 7, Amount: decimal.Zero,
		PartySide: SideCredit, CounterAccount: AccountCash,
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDeleteForSourceIsIdempotent(t *testing.T) {
	store := NewStore()
	tx := newMemTx()
	ref := SourceRef{DocType: DocTypePayment, DocID: 9}

	_, err := store.PostPair(context.Background(), tx, PairInput{
		CompanyID: 1, PartyID: 7, Source: &ref, TxnID: "PAY-9",
		TxnType: TxnPaymentReceived, Amount: dec("80"),
		PartySide: SideCredit, CounterAccount: AccountCash,
	})
	require.NoError(t, err)

	removed, err := store.DeleteForSource(context.Background(), tx, 1, ref)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	removed, err = store.DeleteForSource(context.Background(), tx, 1, ref)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestRecomputePartyBalance(t *testing.T) {
	store := NewStore()
	tx := newMemTx()
	partyID := int64(7)

	saleRef := SourceRef{DocType: DocTypeSale, DocID: 1}
	_, err := store.PostPair(context.Background(), tx, PairInput{
		CompanyID: 1, PartyID: partyID, Source: &saleRef, TxnID: "INV-2026-00001",
		TxnType: TxnSale, Amount: dec("1000"),
		PartySide: SideDebit, CounterAccount: AccountSales,
	})
	require.NoError(t, err)

	payRef := SourceRef{DocType: DocTypePayment, DocID: 2}
	_, err = store.PostPair(context.Background(), tx, PairInput{
		CompanyID: 1, PartyID: partyID, Source: &payRef, TxnID: "PAY-2",
		TxnType: TxnPaymentReceived, Amount: dec("400"),
		PartySide: SideCredit, CounterAccount: AccountCash,
	})
	require.NoError(t, err)

	balance, err := store.RecomputePartyBalance(context.Background(), tx, 1, partyID)
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("600")))
	require.True(t, tx.balances[partyID].Equal(dec("600")))
}

func TestRecomputePartyBalanceAddsConfiguredOpening(t *testing.T) {
	store := NewStore()
	tx := newMemTx()
	partyID := int64(7)
	tx.openings[partyID] = dec("150")

	payRef := SourceRef{DocType: DocTypePayment, DocID: 3}
	_, err := store.PostPair(context.Background(), tx, PairInput{
		CompanyID: 1, PartyID: partyID, Source: &payRef, TxnID: "PAY-3",
		TxnType: TxnPaymentReceived, Amount: dec("50"),
		PartySide: SideCredit, CounterAccount: AccountCash,
	})
	require.NoError(t, err)

	balance, err := store.RecomputePartyBalance(context.Background(), tx, 1, partyID)
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("100")))
}

func TestRecomputePartyBalanceIgnoresConfiguredOpeningWhenEntryExists(t *testing.T) {
	store := NewStore()
	tx := newMemTx()
	partyID := int64(7)
	tx.openings[partyID] = dec("150")

	err := store.UpsertOpeningBalance(context.Background(), tx, 1, partyID, "Acme", dec("150"), time.Now())
	require.NoError(t, err)

	balance, err := store.RecomputePartyBalance(context.Background(), tx, 1, partyID)
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("150")))
}

func TestUpsertOpeningBalanceLifecycle(t *testing.T) {
	store := NewStore()
	tx := newMemTx()
	partyID := int64(7)

	err := store.UpsertOpeningBalance(context.Background(), tx, 1, partyID, "Acme", dec("200"), time.Now())
	require.NoError(t, err)
	require.Len(t, tx.entries, 1)
	require.True(t, tx.entries[0].Debit.Equal(dec("200")))

	err = store.UpsertOpeningBalance(context.Background(), tx, 1, partyID, "Acme", dec("-75"), time.Now())
	require.NoError(t, err)
	require.Len(t, tx.entries, 1)
	require.True(t, tx.entries[0].Credit.Equal(dec("75")))
	require.True(t, tx.entries[0].Debit.IsZero())

	err = store.UpsertOpeningBalance(context.Background(), tx, 1, partyID, "Acme", decimal.Zero, time.Now())
	require.NoError(t, err)
	require.Empty(t, tx.entries)
}
