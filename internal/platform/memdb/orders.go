package memdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/rental/availability"
	"rental-backend/internal/rental/orders"
)

type orderStore struct{ d *DB }

func (s orderStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &orderTx{
		d:        s.d,
		products: map[uint64]bool{},
		orders:   map[string]orders.Order{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := s.d.popFault(); err != nil {
		return err
	}

	// commit
	for id, rented := range tx.products {
		p := s.d.products[id]
		p.Rented = rented
		s.d.products[id] = p
	}
	for id, o := range tx.orders {
		s.d.orders[id] = o
	}
	return nil
}

// orderTx stages writes until commit. d.mu is held by RunInTx for its whole life.
type orderTx struct {
	d        *DB
	products map[uint64]bool // product_id -> rented
	orders   map[string]orders.Order
}

func (t *orderTx) rented(id uint64) bool {
	if v, ok := t.products[id]; ok {
		return v
	}
	return t.d.products[id].Rented
}

func (t *orderTx) order(id string) (orders.Order, bool) {
	if o, ok := t.orders[id]; ok {
		return o, true
	}
	o, ok := t.d.orders[id]
	return o, ok
}

func (t *orderTx) LockProduct(_ context.Context, productID uint64) (availability.Product, error) {
	p, ok := t.d.products[productID]
	if !ok {
		return availability.Product{}, apierr.NotFound(fmt.Sprintf("product %d not found", productID))
	}
	return availability.Product{
		ProductID: p.ProductID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Rented:    t.rented(productID),
	}, nil
}

func (t *orderTx) SetProductRented(_ context.Context, productID uint64, from, to bool) (bool, error) {
	if _, ok := t.d.products[productID]; !ok || t.rented(productID) != from {
		return false, nil
	}
	t.products[productID] = to
	return true, nil
}

func (t *orderTx) InsertOrder(_ context.Context, o *orders.Order) error {
	if _, dup := t.order(o.OrderID); dup {
		return fmt.Errorf("memdb: duplicate order id %s", o.OrderID)
	}
	if _, ok := t.d.users[o.RenterID]; !ok {
		return apierr.NotFound("renter not found")
	}
	for _, cur := range t.d.orders {
		if cur.ProductID == o.ProductID && cur.State == orders.StateActive {
			if staged, ok := t.orders[cur.OrderID]; !ok || staged.State == orders.StateActive {
				return apierr.AlreadyRented(fmt.Sprintf("product %d is already rented", o.ProductID))
			}
		}
	}
	t.orders[o.OrderID] = *o
	return nil
}

func (t *orderTx) LockOrder(_ context.Context, orderID string) (orders.Order, error) {
	o, ok := t.order(orderID)
	if !ok {
		return orders.Order{}, apierr.NotFound("order not found")
	}
	return o, nil
}

func (t *orderTx) UpdateOrderState(_ context.Context, orderID string, from, to orders.State, at time.Time, by uint64) (bool, error) {
	o, ok := t.order(orderID)
	if !ok || o.State != from {
		return false, nil
	}
	o.State = to
	o.CancelledAt.Time, o.CancelledAt.Valid = at, true
	o.CancelledBy.Int64, o.CancelledBy.Valid = int64(by), true
	t.orders[orderID] = o
	return true, nil
}

// ---------- reads ----------

func (s orderStore) GetOrder(_ context.Context, orderID string) (orders.Order, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	o, ok := s.d.orders[orderID]
	if !ok {
		return orders.Order{}, apierr.NotFound("order not found")
	}
	return o, nil
}

func (s orderStore) ListOrdersByRenter(_ context.Context, renterID uint64, p orders.Page) ([]orders.Order, int64, error) {
	return s.list(func(o orders.Order) bool { return o.RenterID == renterID }, p)
}

func (s orderStore) ListOrdersByOwner(_ context.Context, ownerID uint64, p orders.Page) ([]orders.Order, int64, error) {
	return s.list(func(o orders.Order) bool { return o.OwnerID == ownerID }, p)
}

func (s orderStore) list(match func(orders.Order) bool, p orders.Page) ([]orders.Order, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var rows []orders.Order
	for _, o := range s.d.orders {
		if match(o) {
			rows = append(rows, o)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if p.Order == "asc" {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if p.Order == "asc" {
			return a.OrderID < b.OrderID
		}
		return a.OrderID > b.OrderID
	})
	return window(rows, p.Limit, p.Offset), int64(len(rows)), nil
}
