package purchases

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dokanhq/dokan/internal/catalog"
	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/party"
	"github.com/dokanhq/dokan/internal/settlement"
	"github.com/dokanhq/dokan/internal/shared"
	"github.com/dokanhq/dokan/internal/stock"
)

type paymentRow struct {
	id        int64
	kind      settlement.InvoiceKind
	invoiceID int64
	amount    decimal.Decimal
	status    string
}

type memRepo struct {
	parties   map[int64]party.Party
	products  map[int64]catalog.Product
	units     map[int64]catalog.Unit
	levels    map[int64]decimal.Decimal
	movements []stock.Movement
	orders    map[int64]*Order
	returns   map[int64]*Return
	payments  []*paymentRow
	entries   []ledger.Entry
	balances  map[int64]decimal.Decimal
	seq       map[shared.DocumentType]int64
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		parties:  map[int64]party.Party{},
		products: map[int64]catalog.Product{},
		units:    map[int64]catalog.Unit{},
		levels:   map[int64]decimal.Decimal{},
		orders:   map[int64]*Order{},
		returns:  map[int64]*Return{},
		balances: map[int64]decimal.Decimal{},
		seq:      map[shared.DocumentType]int64{},
		nextID:   1,
	}
}

func (m *memRepo) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// RepositoryPort

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) GetOrder(_ context.Context, companyID, orderID int64) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok || o.CompanyID != companyID {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (m *memRepo) ListOrders(_ context.Context, filter ListFilter) ([]Order, error) {
	out := []Order{}
	for _, o := range m.orders {
		if o.CompanyID == filter.CompanyID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memRepo) GetReturn(_ context.Context, companyID, returnID int64) (Return, error) {
	ret, ok := m.returns[returnID]
	if !ok || ret.CompanyID != companyID {
		return Return{}, ErrNotFound
	}
	return *ret, nil
}

func (m *memRepo) ListReturns(_ context.Context, companyID, orderID int64, _, _ int) ([]Return, error) {
	out := []Return{}
	for _, ret := range m.returns {
		if ret.CompanyID == companyID && (orderID == 0 || ret.OrderID == orderID) {
			out = append(out, *ret)
		}
	}
	return out, nil
}

// purchases TxRepository

func (m *memRepo) NextDocumentNumber(_ context.Context, _ int64, docType shared.DocumentType) (string, error) {
	m.seq[docType]++
	return shared.FormatDocumentNumber(docType, 2026, m.seq[docType]), nil
}

func (m *memRepo) GetParty(_ context.Context, companyID, partyID int64) (party.Party, error) {
	p, ok := m.parties[partyID]
	if !ok || p.CompanyID != companyID {
		return party.Party{}, party.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) InsertOrder(_ context.Context, o Order) (Order, error) {
	o.ID = m.id()
	cp := o
	m.orders[o.ID] = &cp
	return o, nil
}

func (m *memRepo) ReplaceItems(_ context.Context, orderID int64, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		item.ID = m.id()
		item.OrderID = orderID
		out = append(out, item)
	}
	m.orders[orderID].Items = out
	return out, nil
}

func (m *memRepo) GetOrderForUpdate(ctx context.Context, companyID, orderID int64) (Order, error) {
	return m.GetOrder(ctx, companyID, orderID)
}

func (m *memRepo) UpdateOrderTotals(_ context.Context, o Order) error {
	stored, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	items := stored.Items
	cp := o
	cp.Items = items
	m.orders[o.ID] = &cp
	return nil
}

func (m *memRepo) SetOrderStatus(_ context.Context, _, orderID int64, status OrderStatus, updatedAt time.Time) error {
	m.orders[orderID].Status = status
	m.orders[orderID].UpdatedAt = updatedAt
	return nil
}

func (m *memRepo) CancelInvoicePayments(_ context.Context, _, orderID int64) error {
	for _, p := range m.payments {
		if p.kind == settlement.KindPurchase && p.invoiceID == orderID && p.status == "completed" {
			p.status = "cancelled"
		}
	}
	return nil
}

func (m *memRepo) HasActiveReturns(_ context.Context, _, orderID int64) (bool, error) {
	for _, ret := range m.returns {
		if ret.OrderID == orderID && ret.Status != ReturnCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) InsertReturn(_ context.Context, ret Return) (Return, error) {
	ret.ID = m.id()
	cp := ret
	m.returns[ret.ID] = &cp
	return ret, nil
}

func (m *memRepo) ReplaceReturnItems(_ context.Context, returnID int64, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		item.ID = m.id()
		item.OrderID = returnID
		out = append(out, item)
	}
	m.returns[returnID].Items = out
	return out, nil
}

func (m *memRepo) GetReturnForUpdate(ctx context.Context, companyID, returnID int64) (Return, error) {
	return m.GetReturn(ctx, companyID, returnID)
}

func (m *memRepo) SetReturnStatus(_ context.Context, _, returnID int64, status ReturnStatus, updatedAt time.Time) error {
	m.returns[returnID].Status = status
	m.returns[returnID].UpdatedAt = updatedAt
	return nil
}

func (m *memRepo) SumReturnedQuantities(_ context.Context, _, orderID int64) (map[int64]decimal.Decimal, error) {
	sums := map[int64]decimal.Decimal{}
	for _, ret := range m.returns {
		if ret.OrderID != orderID || ret.Status == ReturnCancelled {
			continue
		}
		for _, item := range ret.Items {
			unit := m.units[item.UnitID]
			sums[item.ProductID] = sums[item.ProductID].Add(unit.ToBase(item.Quantity))
		}
	}
	return sums, nil
}

// settlement.StatusTx

func (m *memRepo) GetInvoice(_ context.Context, companyID int64, kind settlement.InvoiceKind, invoiceID int64) (settlement.Invoice, error) {
	o, ok := m.orders[invoiceID]
	if !ok || o.CompanyID != companyID || kind != settlement.KindPurchase {
		return settlement.Invoice{}, settlement.ErrInvoiceNotFound
	}
	return settlement.Invoice{
		ID: o.ID, CompanyID: o.CompanyID, PartyID: o.PartyID, Kind: kind,
		Number: o.InvoiceNumber, GrandTotal: o.GrandTotal, PaidAmount: o.PaidAmount,
		Status: o.PaymentStatus, InvoiceDate: o.InvoiceDate, CreatedAt: o.CreatedAt,
	}, nil
}

func (m *memRepo) LockInvoice(ctx context.Context, companyID int64, kind settlement.InvoiceKind, invoiceID int64) (settlement.Invoice, error) {
	return m.GetInvoice(ctx, companyID, kind, invoiceID)
}

func (m *memRepo) LockCandidates(_ context.Context, companyID, partyID int64, kind settlement.InvoiceKind) ([]settlement.Invoice, error) {
	out := []settlement.Invoice{}
	for _, o := range m.orders {
		if o.CompanyID != companyID || o.PartyID != partyID || o.Status != StatusCompleted {
			continue
		}
		if o.PaymentStatus == settlement.StatusPaid || o.PaymentStatus == settlement.StatusOverpaid {
			continue
		}
		out = append(out, settlement.Invoice{
			ID: o.ID, CompanyID: o.CompanyID, PartyID: o.PartyID, Kind: kind,
			Number: o.InvoiceNumber, GrandTotal: o.GrandTotal, PaidAmount: o.PaidAmount,
			Status: o.PaymentStatus, InvoiceDate: o.InvoiceDate, CreatedAt: o.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].InvoiceDate.Equal(out[j].InvoiceDate) {
			return out[i].InvoiceDate.Before(out[j].InvoiceDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memRepo) SumCompletedReturns(_ context.Context, _ int64, _ settlement.InvoiceKind, invoiceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, ret := range m.returns {
		if ret.OrderID == invoiceID && ret.Status == ReturnCompleted {
			sum = sum.Add(ret.GrandTotal)
		}
	}
	return sum, nil
}

func (m *memRepo) SumCompletedCashPayments(_ context.Context, _ int64, kind settlement.InvoiceKind, invoiceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.kind == kind && p.invoiceID == invoiceID && p.status == "completed" {
			sum = sum.Add(p.amount)
		}
	}
	return sum, nil
}

func (m *memRepo) SetInvoicePayment(_ context.Context, _ int64, _ settlement.InvoiceKind, invoiceID int64, paid decimal.Decimal, status settlement.PaymentStatus) error {
	o, ok := m.orders[invoiceID]
	if !ok {
		return settlement.ErrInvoiceNotFound
	}
	o.PaidAmount = paid
	o.PaymentStatus = status
	return nil
}

func (m *memRepo) InsertCashPayment(_ context.Context, p settlement.CashPayment) (int64, error) {
	row := &paymentRow{id: m.id(), kind: p.Kind, invoiceID: p.InvoiceID, amount: p.Amount, status: "completed"}
	m.payments = append(m.payments, row)
	return row.id, nil
}

// stock.Tx

func (m *memRepo) GetProduct(_ context.Context, _, productID int64) (catalog.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *memRepo) GetUnit(_ context.Context, _, unitID int64) (catalog.Unit, error) {
	u, ok := m.units[unitID]
	if !ok {
		return catalog.Unit{}, catalog.ErrUnitNotFound
	}
	return u, nil
}

func (m *memRepo) LockLevel(_ context.Context, _, productID int64) (decimal.Decimal, error) {
	return m.levels[productID], nil
}

func (m *memRepo) SetLevel(_ context.Context, _, productID int64, qty decimal.Decimal) error {
	m.levels[productID] = qty
	return nil
}

func (m *memRepo) InsertMovement(_ context.Context, mv stock.Movement) error {
	m.movements = append(m.movements, mv)
	return nil
}

// ledger.Tx

func (m *memRepo) InsertEntry(_ context.Context, entry ledger.Entry) (ledger.Entry, error) {
	entry.ID = m.id()
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memRepo) DeleteForSource(_ context.Context, companyID int64, ref ledger.SourceRef) (int64, error) {
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
	m.balances[partyID] = balance
	return nil
}

func (m *memRepo) FindOpeningEntry(_ context.Context, _, _ int64) (*ledger.Entry, error) {
	return nil, nil
}

func (m *memRepo) UpdateOpeningEntry(_ context.Context, _ int64, _, _ decimal.Decimal, _ string) error {
	return nil
}

func (m *memRepo) DeleteOpeningEntries(_ context.Context, _, _ int64) error {
	return nil
}

// fixtures

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedRepo() *memRepo {
	repo := newMemRepo()
	repo.parties[1] = party.Party{ID: 1, CompanyID: 1, Name: "Karim Traders", IsCustomer: true}
	repo.parties[2] = party.Party{ID: 2, CompanyID: 1, Name: "Mills Ltd", IsSupplier: true}
	repo.units[10] = catalog.Unit{ID: 10, CompanyID: 1, Name: "Piece", Symbol: "pc"}
	repo.products[100] = catalog.Product{ID: 100, CompanyID: 1, Name: "Rice 5kg", UnitID: 10,
		SellingPrice: dec("650"), PurchasePrice: dec("600"), TrackStock: true}
	repo.levels[100] = dec("50")
	return repo
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, stock.NewService(), ledger.NewStore(), settlement.NewCalculator(), nil)
}

func createOrder(t *testing.T, svc *Service, qty, paid string) Order {
	t.Helper()
	order, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		PartyID: 2,
		Items:   []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec(qty)}},
		PaidAmount: func() decimal.Decimal {
			if paid == "" {
				return decimal.Zero
			}
			return dec(paid)
		}(),
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderIsInert(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	order := createOrder(t, svc, "10", "")
	require.Equal(t, "PINV-2026-00001", order.InvoiceNumber)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, settlement.StatusUnpaid, order.PaymentStatus)
	require.True(t, order.GrandTotal.Equal(dec("6000")))
	require.True(t, order.Items[0].UnitPrice.Equal(dec("600")))

	require.True(t, repo.levels[100].Equal(dec("50")))
	require.Empty(t, repo.entries)
}

func TestCreateOrderRejectsNonSupplier(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		PartyID: 1,
		Items:   []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, ErrNotSupplier)
}

func TestCompleteReceivesStockAndPostsLedger(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "10", "")

	completed, err := svc.Complete(context.Background(), 1, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.Equal(t, settlement.StatusUnpaid, completed.PaymentStatus)

	require.True(t, repo.levels[100].Equal(dec("60")))
	require.Len(t, repo.entries, 2)
	require.True(t, repo.balances[2].Equal(dec("6000")))

	// completing twice is rejected
	_, err = svc.Complete(context.Background(), 1, order.ID)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestCompleteWithUpfrontPayment(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "10", "6000")

	completed, err := svc.Complete(context.Background(), 1, order.ID)
	require.NoError(t, err)
	require.Equal(t, settlement.StatusPaid, completed.PaymentStatus)
	require.True(t, repo.balances[2].IsZero())
	require.Len(t, repo.payments, 1)
	require.True(t, repo.orders[order.ID].PaidAmount.Equal(dec("6000")))
}

func TestCancelCompletedReversesEverything(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "10", "2000")

	_, err := svc.Complete(context.Background(), 1, order.ID)
	require.NoError(t, err)
	require.True(t, repo.levels[100].Equal(dec("60")))

	cancelled, err := svc.Cancel(context.Background(), 1, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	require.True(t, repo.levels[100].Equal(dec("50")))
	require.Empty(t, repo.entries)
	require.True(t, repo.balances[2].IsZero())
	require.Equal(t, "cancelled", repo.payments[0].status)
	require.Equal(t, settlement.StatusUnpaid, repo.orders[order.ID].PaymentStatus)
	require.True(t, repo.orders[order.ID].PaidAmount.IsZero())
}

func TestCancelFailsWhenStockAlreadyGone(t *testing.T) {
	repo := seedRepo()
	repo.levels[100] = dec("0")
	svc := newTestService(repo)
	order := createOrder(t, svc, "10", "")

	_, err := svc.Complete(context.Background(), 1, order.ID)
	require.NoError(t, err)
	require.True(t, repo.levels[100].Equal(dec("10")))

	// the received goods were sold on in the meantime
	repo.levels[100] = dec("3")

	_, err = svc.Cancel(context.Background(), 1, order.ID)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.Equal(t, StatusCompleted, repo.orders[order.ID].Status)
}

func TestCancelBlockedByActiveReturn(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "10", "")
	_, err := svc.Complete(context.Background(), 1, order.ID)
	require.NoError(t, err)

	_, err = svc.CreateReturn(context.Background(), 1, CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("2")}},
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), 1, order.ID)
	require.ErrorIs(t, err, ErrHasReturns)
}

func TestUpdateOnlyWhilePending(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "10", "")

	updated, err := svc.Update(context.Background(), 1, order.ID, UpdateOrderRequest{
		Items: []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("4"), UnitPrice: dec("550")}},
	})
	require.NoError(t, err)
	require.True(t, updated.GrandTotal.Equal(dec("2200")))

	_, err = svc.Complete(context.Background(), 1, order.ID)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 1, order.ID, UpdateOrderRequest{
		Items: []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, ErrNotPending)
}

func TestReturnLifecycle(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "10", "6000")
	_, err := svc.Complete(context.Background(), 1, order.ID)
	require.NoError(t, err)
	require.True(t, repo.levels[100].Equal(dec("60")))

	ret, err := svc.CreateReturn(context.Background(), 1, CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("2")}},
	})
	require.NoError(t, err)
	require.Equal(t, "PRN-2026-00001", ret.ReturnNumber)
	require.Equal(t, ReturnPending, ret.Status)
	require.True(t, ret.GrandTotal.Equal(dec("1200")))
	// pending return has no effects yet
	require.True(t, repo.levels[100].Equal(dec("60")))

	completed, err := svc.CompleteReturn(context.Background(), 1, ret.ID)
	require.NoError(t, err)
	require.Equal(t, ReturnCompleted, completed.Status)
	require.True(t, repo.levels[100].Equal(dec("58")))
	// fully paid invoice with a completed return becomes overpaid
	require.Equal(t, settlement.StatusOverpaid, repo.orders[order.ID].PaymentStatus)
	require.True(t, repo.balances[2].Equal(dec("-1200")))

	cancelledRet, err := svc.CancelReturn(context.Background(), 1, ret.ID)
	require.NoError(t, err)
	require.Equal(t, ReturnCancelled, cancelledRet.Status)
	require.True(t, repo.levels[100].Equal(dec("60")))
	require.Equal(t, settlement.StatusPaid, repo.orders[order.ID].PaymentStatus)
	require.True(t, repo.balances[2].IsZero())
}

func TestReturnCannotExceedPurchasedQuantity(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "5", "")
	_, err := svc.Complete(context.Background(), 1, order.ID)
	require.NoError(t, err)

	_, err = svc.CreateReturn(context.Background(), 1, CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("6")}},
	})
	require.ErrorIs(t, err, ErrReturnExceedsOrder)

	_, err = svc.CreateReturn(context.Background(), 1, CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("3")}},
	})
	require.NoError(t, err)

	// a second live return may not push the total past what was bought
	_, err = svc.CreateReturn(context.Background(), 1, CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("3")}},
	})
	require.ErrorIs(t, err, ErrReturnExceedsOrder)
}

func TestReturnRequiresCompletedOrder(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "5", "")

	_, err := svc.CreateReturn(context.Background(), 1, CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ItemRequest{{ProductID: 100, UnitID: 10, Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, ErrNotCompleted)
}

func TestInvoiceNumbersAreSequential(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	for i := 1; i <= 3; i++ {
		order := createOrder(t, svc, "1", "")
		require.Equal(t, fmt.Sprintf("PINV-2026-%05d", i), order.InvoiceNumber)
	}
}
