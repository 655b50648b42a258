// Package memdb is an in-process implementation of the order, product and user stores.
// Write transactions are serialised by one mutex and staged copy-on-write, so a
// failed transaction leaves no trace. Used for database.driver=memory and in tests.
package memdb

import (
	"context"
	"sync"

	"rental-backend/internal/products"
	"rental-backend/internal/rental/orders"
	"rental-backend/internal/users"
)

type DB struct {
	mu sync.Mutex

	users    map[uint64]users.User
	products map[uint64]products.Product
	orders   map[string]orders.Order

	nextUserID    uint64
	nextProductID uint64

	// 次の RunInTx で返すエラー（transient 失敗の再現用）
	txFaults []error
}

func New() *DB {
	return &DB{
		users:    map[uint64]users.User{},
		products: map[uint64]products.Product{},
		orders:   map[string]orders.Order{},
	}
}

// FailNextTx makes the next len(errs) transactions roll back with the given errors
// after their body has run.
func (d *DB) FailNextTx(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txFaults = append(d.txFaults, errs...)
}

func (d *DB) Users() users.Store       { return userStore{d} }
func (d *DB) Products() products.Store { return productStore{d} }
func (d *DB) Orders() orders.Store     { return orderStore{d} }

// PingContext satisfies the health check.
func (d *DB) PingContext(context.Context) error { return nil }

func (d *DB) popFault() error {
	if len(d.txFaults) == 0 {
		return nil
	}
	err := d.txFaults[0]
	d.txFaults = d.txFaults[1:]
	return err
}

func window[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
