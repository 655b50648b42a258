package memdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/products"
	"rental-backend/internal/rental/orders"
	"rental-backend/internal/users"
)

func seed(t *testing.T) (*DB, uint64, uint64, uint64) {
	t.Helper()
	ctx := context.Background()
	d := New()
	owner := users.User{Email: "owner@example.com"}
	renter := users.User{Email: "renter@example.com"}
	require.NoError(t, d.Users().Create(ctx, &owner))
	require.NoError(t, d.Users().Create(ctx, &renter))
	p := products.Product{OwnerID: owner.UserID, Name: "Tent", Price: 10, CreatedAt: time.Now()}
	require.NoError(t, d.Products().Insert(ctx, &p))
	return d, owner.UserID, renter.UserID, p.ProductID
}

func TestRollbackLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	d, owner, renter, pid := seed(t)

	boom := errors.New("boom")
	err := d.Orders().RunInTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		changed, err := tx.SetProductRented(ctx, pid, false, true)
		require.NoError(t, err)
		require.True(t, changed)
		require.NoError(t, tx.InsertOrder(ctx, &orders.Order{OrderID: "o1", ProductID: pid, OwnerID: owner, RenterID: renter, State: orders.StateActive}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := d.Products().GetByID(ctx, pid)
	require.NoError(t, err)
	assert.False(t, p.Rented)
	_, err = d.Orders().GetOrder(ctx, "o1")
	assert.ErrorIs(t, err, apierr.NotFound(""))
}

func TestInjectedFaultRollsBack(t *testing.T) {
	ctx := context.Background()
	d, _, _, pid := seed(t)
	fault := errors.New("deadlock")
	d.FailNextTx(fault)

	err := d.Orders().RunInTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.SetProductRented(ctx, pid, false, true)
		return err
	})
	assert.ErrorIs(t, err, fault)
	p, _ := d.Products().GetByID(ctx, pid)
	assert.False(t, p.Rented)

	// 次は通常どおり
	require.NoError(t, d.Orders().RunInTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.SetProductRented(ctx, pid, false, true)
		return err
	}))
	p, _ = d.Products().GetByID(ctx, pid)
	assert.True(t, p.Rented)
}

func TestUniqueActiveOrderPerProduct(t *testing.T) {
	ctx := context.Background()
	d, owner, renter, pid := seed(t)
	insert := func(id string) error {
		return d.Orders().RunInTx(ctx, func(ctx context.Context, tx orders.Tx) error {
			return tx.InsertOrder(ctx, &orders.Order{OrderID: id, ProductID: pid, OwnerID: owner, RenterID: renter, State: orders.StateActive})
		})
	}
	require.NoError(t, insert("o1"))
	assert.ErrorIs(t, insert("o2"), apierr.AlreadyRented(""))
}

func TestProductUpdateKeepsRentedFlag(t *testing.T) {
	ctx := context.Background()
	d, _, _, pid := seed(t)
	require.NoError(t, d.Orders().RunInTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.SetProductRented(ctx, pid, false, true)
		return err
	}))

	p, _ := d.Products().GetByID(ctx, pid)
	p.Rented = false
	p.Name = "Big tent"
	require.NoError(t, d.Products().UpdateDetails(ctx, &p))

	got, _ := d.Products().GetByID(ctx, pid)
	assert.Equal(t, "Big tent", got.Name)
	assert.True(t, got.Rented)
	assert.ErrorIs(t, d.Products().DeleteIfAvailable(ctx, pid), apierr.Conflict(""))
}

func TestUserDeleteCascades(t *testing.T) {
	ctx := context.Background()
	d, owner, renter, pid := seed(t)
	require.NoError(t, d.Orders().RunInTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return tx.InsertOrder(ctx, &orders.Order{OrderID: "o1", ProductID: pid, OwnerID: owner, RenterID: renter, State: orders.StateCancelled})
	}))

	require.NoError(t, d.Users().DeleteUnlessActive(ctx, owner))
	_, err := d.Products().GetByID(ctx, pid)
	assert.ErrorIs(t, err, apierr.NotFound(""))
	_, err = d.Orders().GetOrder(ctx, "o1")
	assert.ErrorIs(t, err, apierr.NotFound(""))
	_, err = d.Users().GetByID(ctx, renter)
	assert.NoError(t, err)
}

func TestEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	d, owner, _, _ := seed(t)
	assert.ErrorIs(t, d.Users().Create(ctx, &users.User{Email: "owner@example.com"}), apierr.Conflict(""))

	u, _ := d.Users().GetByID(ctx, owner)
	u.Email = "renter@example.com"
	assert.ErrorIs(t, d.Users().Update(ctx, &u), apierr.Conflict(""))
}
