package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/party"
	"github.com/dokanhq/dokan/internal/platform/httpx"
	"github.com/dokanhq/dokan/internal/settlement"
	"github.com/dokanhq/dokan/internal/shared"
	"github.com/dokanhq/dokan/internal/stock"
)

var (
	// ErrNotFound indicates the order or return does not exist in the company.
	ErrNotFound = errors.New("sales: not found")
	// ErrNotPending indicates a mutation that requires a pending document.
	ErrNotPending = errors.New("sales: document is not pending")
	// ErrNotDelivered indicates an operation that requires a delivered order.
	ErrNotDelivered = errors.New("sales: order is not delivered")
	// ErrNotCustomer indicates the party lacks the customer role.
	ErrNotCustomer = errors.New("sales: party is not a customer")
	// ErrHasReturns indicates a cancel blocked by live returns.
	ErrHasReturns = errors.New("sales: order has active returns")
	// ErrReturnExceedsOrder indicates a return of more than was sold.
	ErrReturnExceedsOrder = errors.New("sales: return quantity exceeds sold quantity")
)

// TxRepository is the transactional surface a sales mutation runs on: order
// rows plus the ledger, stock and settlement operations that must commit or
// roll back with them.
type TxRepository interface {
	settlement.Tx
	stock.Tx
	NextDocumentNumber(ctx context.Context, companyID int64, docType shared.DocumentType) (string, error)
	GetParty(ctx context.Context, companyID, partyID int64) (party.Party, error)
	InsertOrder(ctx context.Context, o Order) (Order, error)
	ReplaceItems(ctx context.Context, orderID int64, items []Item) ([]Item, error)
	GetOrderForUpdate(ctx context.Context, companyID, orderID int64) (Order, error)
	UpdateOrderTotals(ctx context.Context, o Order) error
	SetOrderStatus(ctx context.Context, companyID, orderID int64, status OrderStatus, updatedAt time.Time) error
	CancelInvoicePayments(ctx context.Context, companyID, orderID int64) error
	HasActiveReturns(ctx context.Context, companyID, orderID int64) (bool, error)
	InsertReturn(ctx context.Context, ret Return) (Return, error)
	ReplaceReturnItems(ctx context.Context, returnID int64, items []Item) ([]Item, error)
	GetReturnForUpdate(ctx context.Context, companyID, returnID int64) (Return, error)
	SetReturnStatus(ctx context.Context, companyID, returnID int64, status ReturnStatus, updatedAt time.Time) error
	SumReturnedQuantities(ctx context.Context, companyID, orderID int64) (map[int64]decimal.Decimal, error)
}

// RepositoryPort is the persistence surface the sales service needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, companyID, orderID int64) (Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, error)
	GetReturn(ctx context.Context, companyID, returnID int64) (Return, error)
	ListReturns(ctx context.Context, companyID, orderID int64, limit, offset int) ([]Return, error)
}

// AuditPort records mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the sales document lifecycle. Documents are inert
// until delivered; delivery deducts stock and posts the receivable, and
// cancellation reverses exactly what delivery did.
type Service struct {
	repo     RepositoryPort
	stock    *stock.Service
	ledger   *ledger.Store
	calc     *settlement.Calculator
	audit    AuditPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, stockSvc *stock.Service, ledgerStore *ledger.Store, calc *settlement.Calculator, audit AuditPort) *Service {
	return &Service{
		repo:     repo,
		stock:    stockSvc,
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

// Create records a pending sales order. No stock or ledger effect happens
// until the order is delivered.
func (s *Service) Create(ctx context.Context, companyID int64, req CreateOrderRequest) (Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return Order{}, errors.Join(httpx.ErrValidation, err)
	}
	var out Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetParty(ctx, companyID, req.PartyID)
		if err != nil {
			return err
		}
		if !p.IsCustomer {
			return errors.Join(httpx.ErrValidation, ErrNotCustomer)
		}
		items, subtotal, err := s.buildItems(ctx, tx, companyID, req.Items)
		if err != nil {
			return err
		}
		now := s.now()
		invoiceDate := req.InvoiceDate
		if invoiceDate.IsZero() {
			invoiceDate = now
		}
		number, err := tx.NextDocumentNumber(ctx, companyID, shared.DocumentTypeSale)
		if err != nil {
			return err
		}
		order := Order{
			CompanyID:      companyID,
			PartyID:        req.PartyID,
			InvoiceNumber:  number,
			Status:         StatusPending,
			PaymentStatus:  settlement.StatusUnpaid,
			InvoiceDate:    invoiceDate,
			Subtotal:       subtotal,
			DiscountAmount: req.DiscountAmount,
			TaxAmount:      req.TaxAmount,
			GrandTotal:     grandTotal(subtotal, req.DiscountAmount, req.TaxAmount),
			PaidAmount:     req.PaidAmount,
			Notes:          req.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		created, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		created.Items, err = tx.ReplaceItems(ctx, created.ID, items)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, companyID, "sales.create", out.ID)
	return out, nil
}

// Update replaces the lines and totals of a pending order.
func (s *Service) Update(ctx context.Context, companyID, orderID int64, req UpdateOrderRequest) (Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return Order{}, errors.Join(httpx.ErrValidation, err)
	}
	var out Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return errors.Join(httpx.ErrConflict, ErrNotPending)
		}
		items, subtotal, err := s.buildItems(ctx, tx, companyID, req.Items)
		if err != nil {
			return err
		}
		if !req.InvoiceDate.IsZero() {
			order.InvoiceDate = req.InvoiceDate
		}
		order.Subtotal = subtotal
		order.DiscountAmount = req.DiscountAmount
		order.TaxAmount = req.TaxAmount
		order.GrandTotal = grandTotal(subtotal, req.DiscountAmount, req.TaxAmount)
		order.PaidAmount = req.PaidAmount
		order.Notes = req.Notes
		order.UpdatedAt = s.now()
		if err := tx.UpdateOrderTotals(ctx, order); err != nil {
			return err
		}
		order.Items, err = tx.ReplaceItems(ctx, order.ID, items)
		if err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, companyID, "sales.update", orderID)
	return out, nil
}

// Deliver realizes a pending order: stock is deducted, the receivable is
// posted, any upfront payment is settled against the invoice and the payment
// status is derived, all in one transaction.
func (s *Service) Deliver(ctx context.Context, companyID, orderID int64) (Order, error) {
	var out Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return errors.Join(httpx.ErrConflict, ErrNotPending)
		}
		if err := s.stock.Deduct(ctx, tx, companyID, stockItems(order.Items), stockRef(order.ID)); err != nil {
			if errors.Is(err, stock.ErrInsufficientStock) {
				return errors.Join(httpx.ErrConflict, err)
			}
			return err
		}
		ref := ledger.SourceRef{DocType: ledger.DocTypeSale, DocID: order.ID}
		_, err = s.ledger.PostPair(ctx, tx, ledger.PairInput{
			CompanyID:      companyID,
			PartyID:        order.PartyID,
			Source:         &ref,
			Date:           order.InvoiceDate,
			TxnID:          order.InvoiceNumber,
			TxnType:        ledger.TxnSale,
			Description:    fmt.Sprintf("Sale %s", order.InvoiceNumber),
			Amount:         order.GrandTotal,
			PartySide:      ledger.SideDebit,
			CounterAccount: ledger.AccountSales,
		})
		if err != nil {
			return err
		}
		if err := tx.SetOrderStatus(ctx, companyID, order.ID, StatusDelivered, s.now()); err != nil {
			return err
		}
		if order.PaidAmount.IsPositive() {
			if err := s.settleUpfront(ctx, tx, order); err != nil {
				return err
			}
		}
		status, err := s.calc.RefreshByID(ctx, tx, companyID, settlement.KindSale, order.ID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, order.PartyID); err != nil {
			return err
		}
		order.Status = StatusDelivered
		order.PaymentStatus = status
		out = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, companyID, "sales.deliver", orderID)
	return out, nil
}

// Cancel voids an order. A pending order just flips state; a delivered order
// has its stock restored, its ledger rows removed and its linked payments
// cancelled, leaving the books as if the delivery never happened.
func (s *Service) Cancel(ctx context.Context, companyID, orderID int64) (Order, error) {
	var out Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case StatusPending:
		case StatusDelivered:
			active, err := tx.HasActiveReturns(ctx, companyID, order.ID)
			if err != nil {
				return err
			}
			if active {
				return errors.Join(httpx.ErrConflict, ErrHasReturns)
			}
			if err := s.stock.Restock(ctx, tx, companyID, stockItems(order.Items), stockRef(order.ID)); err != nil {
				return err
			}
			ref := ledger.SourceRef{DocType: ledger.DocTypeSale, DocID: order.ID}
			if _, err := s.ledger.DeleteForSource(ctx, tx, companyID, ref); err != nil {
				return err
			}
			if err := tx.CancelInvoicePayments(ctx, companyID, order.ID); err != nil {
				return err
			}
			if err := tx.SetInvoicePayment(ctx, companyID, settlement.KindSale, order.ID, decimal.Zero, settlement.StatusUnpaid); err != nil {
				return err
			}
			if _, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, order.PartyID); err != nil {
				return err
			}
		default:
			return errors.Join(httpx.ErrConflict, ErrNotPending)
		}
		if err := tx.SetOrderStatus(ctx, companyID, order.ID, StatusCancelled, s.now()); err != nil {
			return err
		}
		order.Status = StatusCancelled
		out = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, companyID, "sales.cancel", orderID)
	return out, nil
}

// Get loads one order with its items.
func (s *Service) Get(ctx context.Context, companyID, orderID int64) (Order, error) {
	return s.repo.GetOrder(ctx, companyID, orderID)
}

// List lists orders.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.ListOrders(ctx, filter)
}

// CreateReturn records a pending return against a delivered order. Quantities
// are capped at what was sold minus what earlier live returns already claim.
func (s *Service) CreateReturn(ctx context.Context, companyID int64, req CreateReturnRequest) (Return, error) {
	if err := s.validate.Struct(req); err != nil {
		return Return{}, errors.Join(httpx.ErrValidation, err)
	}
	var out Return
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, companyID, req.OrderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDelivered {
			return errors.Join(httpx.ErrConflict, ErrNotDelivered)
		}
		items, total, err := s.buildReturnItems(ctx, tx, companyID, order, req.Items)
		if err != nil {
			return err
		}
		now := s.now()
		returnDate := req.ReturnDate
		if returnDate.IsZero() {
			returnDate = now
		}
		number, err := tx.NextDocumentNumber(ctx, companyID, shared.DocumentTypeSaleReturn)
		if err != nil {
			return err
		}
		created, err := tx.InsertReturn(ctx, Return{
			CompanyID:    companyID,
			OrderID:      order.ID,
			PartyID:      order.PartyID,
			ReturnNumber: number,
			Status:       ReturnPending,
			ReturnDate:   returnDate,
			GrandTotal:   total,
			Notes:        req.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		created.Items, err = tx.ReplaceReturnItems(ctx, created.ID, items)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return Return{}, err
	}
	s.recordAudit(ctx, companyID, "sales.return.create", out.ID)
	return out, nil
}

// CompleteReturn realizes a pending return: stock comes back, the customer is
// credited and the parent invoice's payment status is re-derived.
func (s *Service) CompleteReturn(ctx context.Context, companyID, returnID int64) (Return, error) {
	var out Return
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ret, err := tx.GetReturnForUpdate(ctx, companyID, returnID)
		if err != nil {
			return err
		}
		if ret.Status != ReturnPending {
			return errors.Join(httpx.ErrConflict, ErrNotPending)
		}
		order, err := tx.GetOrderForUpdate(ctx, companyID, ret.OrderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDelivered {
			return errors.Join(httpx.ErrConflict, ErrNotDelivered)
		}
		if err := s.stock.Restock(ctx, tx, companyID, stockItems(ret.Items), returnStockRef(ret.ID)); err != nil {
			return err
		}
		ref := ledger.SourceRef{DocType: ledger.DocTypeSaleReturn, DocID: ret.ID}
		_, err = s.ledger.PostPair(ctx, tx, ledger.PairInput{
			CompanyID:      companyID,
			PartyID:        ret.PartyID,
			Source:         &ref,
			Date:           ret.ReturnDate,
			TxnID:          ret.ReturnNumber,
			TxnType:        ledger.TxnSaleReturn,
			Description:    fmt.Sprintf("Sales return %s", ret.ReturnNumber),
			Amount:         ret.GrandTotal,
			PartySide:      ledger.SideCredit,
			CounterAccount: ledger.AccountSales,
		})
		if err != nil {
			return err
		}
		if err := tx.SetReturnStatus(ctx, companyID, ret.ID, ReturnCompleted, s.now()); err != nil {
			return err
		}
		if _, err := s.calc.RefreshByID(ctx, tx, companyID, settlement.KindSale, order.ID); err != nil {
			return err
		}
		if _, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, ret.PartyID); err != nil {
			return err
		}
		ret.Status = ReturnCompleted
		out = ret
		return nil
	})
	if err != nil {
		return Return{}, err
	}
	s.recordAudit(ctx, companyID, "sales.return.complete", returnID)
	return out, nil
}

// CancelReturn voids a return. A completed return is reversed in full: the
// stock leaves again and the credit is withdrawn.
func (s *Service) CancelReturn(ctx context.Context, companyID, returnID int64) (Return, error) {
	var out Return
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ret, err := tx.GetReturnForUpdate(ctx, companyID, returnID)
		if err != nil {
			return err
		}
		if ret.Status == ReturnCompleted {
			if err := s.stock.Deduct(ctx, tx, companyID, stockItems(ret.Items), returnStockRef(ret.ID)); err != nil {
				if errors.Is(err, stock.ErrInsufficientStock) {
					return errors.Join(httpx.ErrConflict, err)
				}
				return err
			}
			ref := ledger.SourceRef{DocType: ledger.DocTypeSaleReturn, DocID: ret.ID}
			if _, err := s.ledger.DeleteForSource(ctx, tx, companyID, ref); err != nil {
				return err
			}
		} else if ret.Status != ReturnPending {
			return errors.Join(httpx.ErrConflict, ErrNotPending)
		}
		if err := tx.SetReturnStatus(ctx, companyID, ret.ID, ReturnCancelled, s.now()); err != nil {
			return err
		}
		if ret.Status == ReturnCompleted {
			if _, err := s.calc.RefreshByID(ctx, tx, companyID, settlement.KindSale, ret.OrderID); err != nil {
				return err
			}
			if _, err := s.ledger.RecomputePartyBalance(ctx, tx, companyID, ret.PartyID); err != nil {
				return err
			}
		}
		ret.Status = ReturnCancelled
		out = ret
		return nil
	})
	if err != nil {
		return Return{}, err
	}
	s.recordAudit(ctx, companyID, "sales.return.cancel", returnID)
	return out, nil
}

// GetReturn loads one return with its items.
func (s *Service) GetReturn(ctx context.Context, companyID, returnID int64) (Return, error) {
	return s.repo.GetReturn(ctx, companyID, returnID)
}

// ListReturns lists returns, optionally for one order.
func (s *Service) ListReturns(ctx context.Context, companyID, orderID int64, limit, offset int) ([]Return, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListReturns(ctx, companyID, orderID, limit, offset)
}

// settleUpfront records the payment taken at delivery time as a completed
// cash payment against the invoice, so the status calculator counts it.
func (s *Service) settleUpfront(ctx context.Context, tx TxRepository, order Order) error {
	paymentID, err := tx.InsertCashPayment(ctx, settlement.CashPayment{
		CompanyID: order.CompanyID,
		PartyID:   order.PartyID,
		Kind:      settlement.KindSale,
		InvoiceID: order.ID,
		Amount:    order.PaidAmount,
		Date:      order.InvoiceDate,
		Notes:     fmt.Sprintf("Payment for %s", order.InvoiceNumber),
	})
	if err != nil {
		return err
	}
	ref := ledger.SourceRef{DocType: ledger.DocTypeSale, DocID: order.ID}
	_, err = s.ledger.PostPair(ctx, tx, ledger.PairInput{
		CompanyID:      order.CompanyID,
		PartyID:        order.PartyID,
		Source:         &ref,
		Date:           order.InvoiceDate,
		TxnID:          fmt.Sprintf("PAY-%d", paymentID),
		TxnType:        ledger.TxnPaymentReceived,
		Description:    fmt.Sprintf("Payment for %s", order.InvoiceNumber),
		Amount:         order.PaidAmount,
		PartySide:      ledger.SideCredit,
		CounterAccount: ledger.AccountCash,
	})
	return err
}

// buildItems resolves products, fills prices and names, and totals the lines.
func (s *Service) buildItems(ctx context.Context, tx TxRepository, companyID int64, reqs []ItemRequest) ([]Item, decimal.Decimal, error) {
	items := make([]Item, 0, len(reqs))
	subtotal := decimal.Zero
	for _, req := range reqs {
		if !req.Quantity.IsPositive() {
			return nil, decimal.Zero, errors.Join(httpx.ErrValidation, errors.New("sales: item quantity must be greater than zero"))
		}
		product, err := tx.GetProduct(ctx, companyID, req.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if _, err := tx.GetUnit(ctx, companyID, req.UnitID); err != nil {
			return nil, decimal.Zero, err
		}
		price := req.UnitPrice
		if price.IsZero() {
			price = product.SellingPrice
		}
		lineTotal := req.Quantity.Mul(price)
		items = append(items, Item{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitID:      req.UnitID,
			Quantity:    req.Quantity,
			UnitPrice:   price,
			LineTotal:   lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

// buildReturnItems validates return lines against the order and totals them.
// Quantities are compared in base units so a return in cartons counts against
// a sale in pieces.
func (s *Service) buildReturnItems(ctx context.Context, tx TxRepository, companyID int64, order Order, reqs []ItemRequest) ([]Item, decimal.Decimal, error) {
	soldBase := map[int64]decimal.Decimal{}
	priceByProduct := map[int64]decimal.Decimal{}
	nameByProduct := map[int64]string{}
	for _, item := range order.Items {
		unit, err := tx.GetUnit(ctx, companyID, item.UnitID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		soldBase[item.ProductID] = soldBase[item.ProductID].Add(unit.ToBase(item.Quantity))
		priceByProduct[item.ProductID] = item.UnitPrice
		nameByProduct[item.ProductID] = item.ProductName
	}
	returnedBase, err := tx.SumReturnedQuantities(ctx, companyID, order.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	items := make([]Item, 0, len(reqs))
	total := decimal.Zero
	for _, req := range reqs {
		if !req.Quantity.IsPositive() {
			return nil, decimal.Zero, errors.Join(httpx.ErrValidation, errors.New("sales: return quantity must be greater than zero"))
		}
		sold, ok := soldBase[req.ProductID]
		if !ok {
			return nil, decimal.Zero, errors.Join(httpx.ErrValidation, ErrReturnExceedsOrder)
		}
		unit, err := tx.GetUnit(ctx, companyID, req.UnitID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		base := unit.ToBase(req.Quantity)
		if returnedBase[req.ProductID].Add(base).GreaterThan(sold) {
			return nil, decimal.Zero, errors.Join(httpx.ErrValidation, ErrReturnExceedsOrder)
		}
		price := req.UnitPrice
		if price.IsZero() {
			price = priceByProduct[req.ProductID]
		}
		lineTotal := req.Quantity.Mul(price)
		items = append(items, Item{
			ProductID:   req.ProductID,
			ProductName: nameByProduct[req.ProductID],
			UnitID:      req.UnitID,
			Quantity:    req.Quantity,
			UnitPrice:   price,
			LineTotal:   lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

func grandTotal(subtotal, discount, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(tax)
}

func stockItems(items []Item) []stock.Item {
	out := make([]stock.Item, 0, len(items))
	for _, item := range items {
		out = append(out, stock.Item{ProductID: item.ProductID, UnitID: item.UnitID, Quantity: item.Quantity})
	}
	return out
}

func stockRef(orderID int64) stock.Ref {
	return stock.Ref{DocType: "sale", DocID: orderID}
}

func returnStockRef(returnID int64) stock.Ref {
	return stock.Ref{DocType: "sale_return", DocID: returnID}
}

func (s *Service) recordAudit(ctx context.Context, companyID int64, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		CompanyID: companyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    "sales_order",
		EntityID:  strconv.FormatInt(entityID, 10),
		At:        s.now(),
	})
}
