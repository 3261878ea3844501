package settlement

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dokanhq/dokan/internal/ledger"
)

type memTx struct {
	invoices      map[int64]*Invoice
	returns       map[int64]decimal.Decimal
	payments      []CashPayment
	nextPaymentID int64
	entries       []ledger.Entry
	nextEntryID   int64
}

func newMemTx() *memTx {
	return &memTx{
		invoices:      map[int64]*Invoice{},
		returns:       map[int64]decimal.Decimal{},
		nextPaymentID: 1,
		nextEntryID:   1,
	}
}

func (m *memTx) addInvoice(inv Invoice) {
	cp := inv
	m.invoices[inv.ID] = &cp
}

func (m *memTx) GetInvoice(_ context.Context, _ int64, _ InvoiceKind, invoiceID int64) (Invoice, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return *inv, nil
}

func (m *memTx) LockInvoice(ctx context.Context, companyID int64, kind InvoiceKind, invoiceID int64) (Invoice, error) {
	return m.GetInvoice(ctx, companyID, kind, invoiceID)
}

func (m *memTx) LockCandidates(_ context.Context, companyID, partyID int64, kind InvoiceKind) ([]Invoice, error) {
	candidates := []Invoice{}
	for _, inv := range m.invoices {
		if inv.CompanyID != companyID || inv.PartyID != partyID || inv.Kind != kind {
			continue
		}
		if inv.Status == StatusPaid || inv.Status == StatusOverpaid {
			continue
		}
		candidates = append(candidates, *inv)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].InvoiceDate.Equal(candidates[j].InvoiceDate) {
			return candidates[i].InvoiceDate.Before(candidates[j].InvoiceDate)
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates, nil
}

func (m *memTx) SumCompletedReturns(_ context.Context, _ int64, _ InvoiceKind, invoiceID int64) (decimal.Decimal, error) {
	if v, ok := m.returns[invoiceID]; ok {
		return v, nil
	}
	return decimal.Zero, nil
}

func (m *memTx) SumCompletedCashPayments(_ context.Context, _ int64, kind InvoiceKind, invoiceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.Kind == kind && p.InvoiceID == invoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (m *memTx) SetInvoicePayment(_ context.Context, _ int64, _ InvoiceKind, invoiceID int64, paid decimal.Decimal, status PaymentStatus) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.PaidAmount = paid
	inv.Status = status
	return nil
}

func (m *memTx) InsertCashPayment(_ context.Context, p CashPayment) (int64, error) {
	id := m.nextPaymentID
	m.nextPaymentID++
	m.payments = append(m.payments, p)
	return id, nil
}

func (m *memTx) InsertEntry(_ context.Context, entry ledger.Entry) (ledger.Entry, error) {
	entry.ID = m.nextEntryID
	m.nextEntryID++
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memTx) DeleteForSource(_ context.Context, _ int64, _ ledger.SourceRef) (int64, error) {
	return 0, nil
}

func (m *memTx) SumPartyEntries(_ context.Context, _, _ int64) (ledger.PartySums, error) {
	return ledger.PartySums{Debit: decimal.Zero, Credit: decimal.Zero}, nil
}

func (m *memTx) GetPartyOpeningBalance(_ context.Context, _, _ int64) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *memTx) SetPartyBalance(_ context.Context, _, _ int64, _ decimal.Decimal) error {
	return nil
}

func (m *memTx) FindOpeningEntry(_ context.Context, _, _ int64) (*ledger.Entry, error) {
	return nil, nil
}

func (m *memTx) UpdateOpeningEntry(_ context.Context, _ int64, _, _ decimal.Decimal, _ string) error {
	return nil
}

func (m *memTx) DeleteOpeningEntries(_ context.Context, _, _ int64) error {
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func newEngine() *Engine {
	return NewEngine(ledger.NewStore(), NewCalculator(), nil)
}

func TestStatusFromBalance(t *testing.T) {
	calc := NewCalculator()
	cases := []struct {
		name        string
		outstanding string
		grandTotal  string
		want        PaymentStatus
	}{
		{"untouched invoice", "100", "100", StatusUnpaid},
		{"partially settled", "40", "100", StatusPartial},
		{"exactly settled", "0", "100", StatusPaid},
		{"settled past total", "-10", "100", StatusOverpaid},
		{"zero total invoice", "0", "0", StatusPaid},
		{"returns exceed payments", "120", "100", StatusUnpaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.StatusFromBalance(dec(tc.outstanding), dec(tc.grandTotal))
			require.Equal(t, tc.want, got)
		})
	}
}

func TestApplySettlesOldestFirst(t *testing.T) {
	tx := newMemTx()
	tx.addInvoice(Invoice{ID: 1, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00001",
		GrandTotal: dec("100"), Status: StatusUnpaid, InvoiceDate: day(1), CreatedAt: day(1)})
	tx.addInvoice(Invoice{ID: 2, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00002",
		GrandTotal: dec("200"), Status: StatusUnpaid, InvoiceDate: day(2), CreatedAt: day(2)})

	result, err := newEngine().Apply(context.Background(), tx, ApplyInput{
		CompanyID: 1, PartyID: 7, Kind: KindSale, Amount: dec("150"), Date: day(5),
	})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)
	require.True(t, result.Unapplied.IsZero())

	require.Equal(t, int64(1), result.Allocations[0].InvoiceID)
	require.True(t, result.Allocations[0].Amount.Equal(dec("100")))
	require.Equal(t, StatusPaid, result.Allocations[0].Status)

	require.Equal(t, int64(2), result.Allocations[1].InvoiceID)
	require.True(t, result.Allocations[1].Amount.Equal(dec("50")))
	require.Equal(t, StatusPartial, result.Allocations[1].Status)

	require.True(t, tx.invoices[1].PaidAmount.Equal(dec("100")))
	require.True(t, tx.invoices[2].PaidAmount.Equal(dec("50")))

	// one payment row and one balanced ledger pair per allocation
	require.Len(t, tx.payments, 2)
	require.Len(t, tx.entries, 4)
	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, e := range tx.entries {
		totalDebit = totalDebit.Add(e.Debit)
		totalCredit = totalCredit.Add(e.Credit)
	}
	require.True(t, totalDebit.Equal(totalCredit))
}

func TestApplyPinnedInvoiceFirst(t *testing.T) {
	tx := newMemTx()
	tx.addInvoice(Invoice{ID: 1, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00001",
		GrandTotal: dec("100"), Status: StatusUnpaid, InvoiceDate: day(1), CreatedAt: day(1)})
	tx.addInvoice(Invoice{ID: 2, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00002",
		GrandTotal: dec("100"), Status: StatusUnpaid, InvoiceDate: day(2), CreatedAt: day(2)})

	pinned := int64(2)
	result, err := newEngine().Apply(context.Background(), tx, ApplyInput{
		CompanyID: 1, PartyID: 7, Kind: KindSale, Amount: dec("120"), Date: day(5),
		PinnedInvoiceID: &pinned,
	})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)
	require.Equal(t, int64(2), result.Allocations[0].InvoiceID)
	require.True(t, result.Allocations[0].Amount.Equal(dec("100")))
	require.Equal(t, int64(1), result.Allocations[1].InvoiceID)
	require.True(t, result.Allocations[1].Amount.Equal(dec("20")))
}

func TestApplyPinnedInvoiceWrongPartyFails(t *testing.T) {
	tx := newMemTx()
	tx.addInvoice(Invoice{ID: 1, CompanyID: 1, PartyID: 8, Kind: KindSale, Number: "INV-2026-00001",
		GrandTotal: dec("100"), Status: StatusUnpaid, InvoiceDate: day(1), CreatedAt: day(1)})

	pinned := int64(1)
	_, err := newEngine().Apply(context.Background(), tx, ApplyInput{
		CompanyID: 1, PartyID: 7, Kind: KindSale, Amount: dec("50"), Date: day(5),
		PinnedInvoiceID: &pinned,
	})
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestApplyExcessStaysUnapplied(t *testing.T) {
	tx := newMemTx()
	tx.addInvoice(Invoice{ID: 1, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00001",
		GrandTotal: dec("100"), Status: StatusUnpaid, InvoiceDate: day(1), CreatedAt: day(1)})

	result, err := newEngine().Apply(context.Background(), tx, ApplyInput{
		CompanyID: 1, PartyID: 7, Kind: KindSale, Amount: dec("150"), Date: day(5),
	})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	require.True(t, result.Allocations[0].Amount.Equal(dec("100")))
	require.True(t, result.Unapplied.Equal(dec("50")))
	require.Equal(t, StatusPaid, tx.invoices[1].Status)
}

func TestApplyCountsCompletedReturns(t *testing.T) {
	tx := newMemTx()
	tx.addInvoice(Invoice{ID: 1, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00001",
		GrandTotal: dec("100"), Status: StatusUnpaid, InvoiceDate: day(1), CreatedAt: day(1)})
	tx.returns[1] = dec("30")

	result, err := newEngine().Apply(context.Background(), tx, ApplyInput{
		CompanyID: 1, PartyID: 7, Kind: KindSale, Amount: dec("70"), Date: day(5),
	})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	require.True(t, result.Allocations[0].Amount.Equal(dec("70")))
	require.Equal(t, StatusPaid, result.Allocations[0].Status)
	require.True(t, result.Unapplied.IsZero())
}

func TestApplySkipsSettledInvoices(t *testing.T) {
	tx := newMemTx()
	tx.addInvoice(Invoice{ID: 1, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00001",
		GrandTotal: dec("100"), Status: StatusUnpaid, InvoiceDate: day(1), CreatedAt: day(1)})
	tx.returns[1] = dec("100")
	tx.addInvoice(Invoice{ID: 2, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00002",
		GrandTotal: dec("50"), Status: StatusUnpaid, InvoiceDate: day(2), CreatedAt: day(2)})

	result, err := newEngine().Apply(context.Background(), tx, ApplyInput{
		CompanyID: 1, PartyID: 7, Kind: KindSale, Amount: dec("50"), Date: day(5),
	})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	require.Equal(t, int64(2), result.Allocations[0].InvoiceID)
}

func TestApplyRejectsNonPositiveAmount(t *testing.T) {
	_, err := newEngine().Apply(context.Background(), newMemTx(), ApplyInput{
		CompanyID: 1, PartyID: 7, Kind: KindSale, Amount: decimal.Zero,
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRefreshIsIdempotent(t *testing.T) {
	tx := newMemTx()
	inv := Invoice{ID: 1, CompanyID: 1, PartyID: 7, Kind: KindSale, Number: "INV-2026-00001",
		GrandTotal: dec("100"), Status: StatusUnpaid, InvoiceDate: day(1), CreatedAt: day(1)}
	tx.addInvoice(inv)
	tx.payments = append(tx.payments, CashPayment{Kind: KindSale, InvoiceID: 1, Amount: dec("40")})

	calc := NewCalculator()
	status, outstanding, err := calc.Refresh(context.Background(), tx, inv)
	require.NoError(t, err)
	require.Equal(t, StatusPartial, status)
	require.True(t, outstanding.Equal(dec("60")))

	again, outstanding, err := calc.Refresh(context.Background(), tx, inv)
	require.NoError(t, err)
	require.Equal(t, status, again)
	require.True(t, outstanding.Equal(dec("60")))
	require.True(t, tx.invoices[1].PaidAmount.Equal(dec("40")))
}
