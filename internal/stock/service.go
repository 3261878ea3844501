package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dokanhq/dokan/internal/catalog"
)

// ErrInsufficientStock indicates a deduction would drive a level negative.
var ErrInsufficientStock = errors.New("stock: insufficient quantity on hand")

// Tx exposes the transactional stock operations. Levels are locked before
// they are read so concurrent document transitions serialize per product.
type Tx interface {
	GetProduct(ctx context.Context, companyID, productID int64) (catalog.Product, error)
	GetUnit(ctx context.Context, companyID, unitID int64) (catalog.Unit, error)
	LockLevel(ctx context.Context, companyID, productID int64) (decimal.Decimal, error)
	SetLevel(ctx context.Context, companyID, productID int64, qty decimal.Decimal) error
	InsertMovement(ctx context.Context, m Movement) error
}

// Service applies stock effects of document transitions. All quantities are
// converted to the product's base unit before levels are touched.
type Service struct {
	now func() time.Time
}

// NewService constructs a Service.
func NewService() *Service {
	return &Service{now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Deduct removes the items' quantities from stock. Products that do not
// track stock are skipped. Fails without partial effect when any tracked
// product lacks enough quantity; the surrounding transaction rolls back.
func (s *Service) Deduct(ctx context.Context, tx Tx, companyID int64, items []Item, ref Ref) error {
	return s.move(ctx, tx, companyID, items, ref, MovementOut)
}

// Restock adds the items' quantities back to stock, the inverse of Deduct.
func (s *Service) Restock(ctx context.Context, tx Tx, companyID int64, items []Item, ref Ref) error {
	return s.move(ctx, tx, companyID, items, ref, MovementIn)
}

func (s *Service) move(ctx context.Context, tx Tx, companyID int64, items []Item, ref Ref, direction MovementType) error {
	for _, item := range items {
		product, err := tx.GetProduct(ctx, companyID, item.ProductID)
		if err != nil {
			return err
		}
		if !product.TrackStock {
			continue
		}
		baseQty, err := s.baseQuantity(ctx, tx, companyID, item)
		if err != nil {
			return err
		}
		if !baseQty.IsPositive() {
			continue
		}
		level, err := tx.LockLevel(ctx, companyID, item.ProductID)
		if err != nil {
			return fmt.Errorf("stock: lock level: %w", err)
		}
		next := level.Add(baseQty)
		if direction == MovementOut {
			next = level.Sub(baseQty)
			if next.IsNegative() {
				return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientStock, product.Name, level, baseQty)
			}
		}
		if err := tx.SetLevel(ctx, companyID, item.ProductID, next); err != nil {
			return fmt.Errorf("stock: set level: %w", err)
		}
		if err := tx.InsertMovement(ctx, Movement{
			CompanyID: companyID,
			ProductID: item.ProductID,
			Type:      direction,
			Quantity:  baseQty,
			DocType:   ref.DocType,
			DocID:     ref.DocID,
			CreatedAt: s.now(),
		}); err != nil {
			return fmt.Errorf("stock: insert movement: %w", err)
		}
	}
	return nil
}

func (s *Service) baseQuantity(ctx context.Context, tx Tx, companyID int64, item Item) (decimal.Decimal, error) {
	if item.UnitID == 0 {
		return item.Quantity, nil
	}
	unit, err := tx.GetUnit(ctx, companyID, item.UnitID)
	if err != nil {
		return decimal.Zero, err
	}
	return unit.ToBase(item.Quantity), nil
}
