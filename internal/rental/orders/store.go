package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/db"
	"rental-backend/internal/rental/availability"
)

// Tx is one open atomic unit. Locks taken through it are held until commit or rollback.
type Tx interface {
	availability.Tx
	InsertOrder(ctx context.Context, o *Order) error
	// LockOrder reads the order under its row lock. Missing orders yield NOT_FOUND.
	LockOrder(ctx context.Context, orderID string) (Order, error)
	// UpdateOrderState moves the order from -> to and reports whether a row changed.
	UpdateOrderState(ctx context.Context, orderID string, from, to State, at time.Time, by uint64) (bool, error)
}

// Store is the persistence gateway the order lifecycle runs against.
type Store interface {
	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrdersByRenter(ctx context.Context, renterID uint64, p Page) ([]Order, int64, error)
	ListOrdersByOwner(ctx context.Context, ownerID uint64, p Page) ([]Order, int64, error)
}

// MySQLStore implements Store on InnoDB: FOR UPDATE row locks + conditional UPDATEs.
type MySQLStore struct {
	conn *sql.DB
}

func NewStore(conn *sql.DB) *MySQLStore { return &MySQLStore{conn: conn} }

func (s *MySQLStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return db.RunInTx(ctx, s.conn, opts, func(ctx context.Context, q db.DBTX) error {
		return fn(ctx, &sqlTx{q: q})
	})
}

type sqlTx struct{ q db.DBTX }

func (t *sqlTx) LockProduct(ctx context.Context, productID uint64) (availability.Product, error) {
	const q = `SELECT product_id, owner_id, name, price, rented FROM products WHERE product_id = ? FOR UPDATE`
	var p availability.Product
	err := t.q.QueryRowContext(ctx, q, productID).Scan(&p.ProductID, &p.OwnerID, &p.Name, &p.UnitPrice, &p.Rented)
	if errors.Is(err, sql.ErrNoRows) {
		return availability.Product{}, apierr.NotFound(fmt.Sprintf("product %d not found", productID))
	}
	if err != nil {
		return availability.Product{}, err
	}
	return p, nil
}

func (t *sqlTx) SetProductRented(ctx context.Context, productID uint64, from, to bool) (bool, error) {
	const q = `
		UPDATE products
		SET rented = ?, updated_at = CURRENT_TIMESTAMP(6)
		WHERE product_id = ?
		AND rented = ?`
	res, err := t.q.ExecContext(ctx, q, to, productID, from)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

func (t *sqlTx) InsertOrder(ctx context.Context, o *Order) error {
	const q = `
	INSERT INTO orders
	(order_id, product_id, owner_id, renter_id, start_of_rent, end_of_rent, unit_price, total, state, created_at)
	VALUES
	(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.q.ExecContext(ctx, q,
		o.OrderID, o.ProductID, o.OwnerID, o.RenterID,
		o.StartOfRent, o.EndOfRent, o.UnitPrice, o.Total, o.State, o.CreatedAt,
	)
	// uq_orders_active_product: 商品ごとに active は1件まで
	if db.IsDuplicate(err) {
		return apierr.AlreadyRented(fmt.Sprintf("product %d is already rented", o.ProductID))
	}
	if db.IsMissingParent(err) {
		return apierr.NotFound("renter not found")
	}
	return err
}

func (t *sqlTx) LockOrder(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(t.q.QueryRowContext(ctx, selectOrder+` WHERE order_id = ? FOR UPDATE`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, apierr.NotFound("order not found")
	}
	return o, err
}

func (t *sqlTx) UpdateOrderState(ctx context.Context, orderID string, from, to State, at time.Time, by uint64) (bool, error) {
	const q = `
		UPDATE orders
		SET state = ?, cancelled_at = ?, cancelled_by = ?
		WHERE order_id = ?
		AND state = ?`
	res, err := t.q.ExecContext(ctx, q, to, at, by, orderID, from)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

// ---------- reads ----------

const selectOrder = `
	SELECT order_id, product_id, owner_id, renter_id, start_of_rent, end_of_rent,
	       unit_price, total, state, created_at, cancelled_at, cancelled_by
	FROM orders`

type rowScanner interface{ Scan(dest ...any) error }

func scanOrder(r rowScanner) (Order, error) {
	var o Order
	err := r.Scan(
		&o.OrderID, &o.ProductID, &o.OwnerID, &o.RenterID, &o.StartOfRent, &o.EndOfRent,
		&o.UnitPrice, &o.Total, &o.State, &o.CreatedAt, &o.CancelledAt, &o.CancelledBy,
	)
	return o, err
}

func (s *MySQLStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(s.conn.QueryRowContext(ctx, selectOrder+` WHERE order_id = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, apierr.NotFound("order not found")
	}
	return o, db.Classify(err)
}

func (s *MySQLStore) ListOrdersByRenter(ctx context.Context, renterID uint64, p Page) ([]Order, int64, error) {
	return s.listBy(ctx, "renter_id", renterID, p)
}

func (s *MySQLStore) ListOrdersByOwner(ctx context.Context, ownerID uint64, p Page) ([]Order, int64, error) {
	return s.listBy(ctx, "owner_id", ownerID, p)
}

// column は呼び出し元の固定値のみ（ユーザー入力は渡さない）
func (s *MySQLStore) listBy(ctx context.Context, column string, id uint64, p Page) (out []Order, total int64, err error) {
	p = p.normalize()
	dir := "DESC"
	if p.Order == "asc" {
		dir = "ASC"
	}

	err = db.ReadOnly(ctx, s.conn, func(ctx context.Context, q db.DBTX) error {
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE `+column+` = ?`, id).Scan(&total); err != nil {
			return err
		}

		rows, err := q.QueryContext(ctx,
			selectOrder+` WHERE `+column+` = ? ORDER BY created_at `+dir+`, order_id `+dir+` LIMIT ? OFFSET ?`,
			id, p.Limit, p.Offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return err
			}
			out = append(out, o)
		}
		return rows.Err()
	})
	return out, total, err
}
