package stock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dokanhq/dokan/internal/catalog"
)

type memTx struct {
	products  map[int64]catalog.Product
	units     map[int64]catalog.Unit
	levels    map[int64]decimal.Decimal
	movements []Movement
}

func newMemTx() *memTx {
	return &memTx{
		products: map[int64]catalog.Product{},
		units:    map[int64]catalog.Unit{},
		levels:   map[int64]decimal.Decimal{},
	}
}

func (m *memTx) GetProduct(_ context.Context, _, productID int64) (catalog.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *memTx) GetUnit(_ context.Context, _, unitID int64) (catalog.Unit, error) {
	u, ok := m.units[unitID]
	if !ok {
		return catalog.Unit{}, catalog.ErrUnitNotFound
	}
	return u, nil
}

func (m *memTx) LockLevel(_ context.Context, _, productID int64) (decimal.Decimal, error) {
	return m.levels[productID], nil
}

func (m *memTx) SetLevel(_ context.Context, _, productID int64, qty decimal.Decimal) error {
	m.levels[productID] = qty
	return nil
}

func (m *memTx) InsertMovement(_ context.Context, mv Movement) error {
	m.movements = append(m.movements, mv)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDeductAndRestockRoundTrip(t *testing.T) {
	tx := newMemTx()
	tx.products[1] = catalog.Product{ID: 1, Name: "Rice 5kg", TrackStock: true}
	tx.units[10] = catalog.Unit{ID: 10}
	tx.levels[1] = dec("20")

	svc := NewService()
	items := []Item{{ProductID: 1, UnitID: 10, Quantity: dec("5")}}
	ref := Ref{DocType: "sale", DocID: 42}

	require.NoError(t, svc.Deduct(context.Background(), tx, 1, items, ref))
	require.True(t, tx.levels[1].Equal(dec("15")))

	require.NoError(t, svc.Restock(context.Background(), tx, 1, items, ref))
	require.True(t, tx.levels[1].Equal(dec("20")))

	require.Len(t, tx.movements, 2)
	require.Equal(t, MovementOut, tx.movements[0].Type)
	require.Equal(t, MovementIn, tx.movements[1].Type)
	require.Equal(t, "sale", tx.movements[0].DocType)
}

func TestDeductConvertsToBaseUnit(t *testing.T) {
	tx := newMemTx()
	tx.products[1] = catalog.Product{ID: 1, Name: "Soap", TrackStock: true}
	base := int64(10)
	tx.units[11] = catalog.Unit{ID: 11, BaseUnitID: &base, ConversionFactor: dec("12")}
	tx.levels[1] = dec("30")

	svc := NewService()
	err := svc.Deduct(context.Background(), tx, 1,
		[]Item{{ProductID: 1, UnitID: 11, Quantity: dec("2")}}, Ref{DocType: "sale", DocID: 1})
	require.NoError(t, err)
	require.True(t, tx.levels[1].Equal(dec("6")))
	require.True(t, tx.movements[0].Quantity.Equal(dec("24")))
}

func TestDeductFailsOnInsufficientStock(t *testing.T) {
	tx := newMemTx()
	tx.products[1] = catalog.Product{ID: 1, Name: "Oil 1L", TrackStock: true}
	tx.units[10] = catalog.Unit{ID: 10}
	tx.levels[1] = dec("3")

	svc := NewService()
	err := svc.Deduct(context.Background(), tx, 1,
		[]Item{{ProductID: 1, UnitID: 10, Quantity: dec("5")}}, Ref{DocType: "sale", DocID: 1})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.True(t, tx.levels[1].Equal(dec("3")))
	require.Empty(t, tx.movements)
}

func TestDeductSkipsUntrackedProducts(t *testing.T) {
	tx := newMemTx()
	tx.products[1] = catalog.Product{ID: 1, Name: "Delivery Fee", TrackStock: false}

	svc := NewService()
	err := svc.Deduct(context.Background(), tx, 1,
		[]Item{{ProductID: 1, Quantity: dec("1")}}, Ref{DocType: "sale", DocID: 1})
	require.NoError(t, err)
	require.Empty(t, tx.movements)
}
