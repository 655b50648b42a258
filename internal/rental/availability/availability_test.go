package availability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/platform/apierr"
)

// fakeTx は1行だけ持つ手書きのフェイク
type fakeTx struct {
	product *Product
	writes  int
	lockErr error
}

func (f *fakeTx) LockProduct(_ context.Context, id uint64) (Product, error) {
	if f.lockErr != nil {
		return Product{}, f.lockErr
	}
	if f.product == nil || f.product.ProductID != id {
		return Product{}, apierr.NotFound("product not found")
	}
	return *f.product, nil
}

func (f *fakeTx) SetProductRented(_ context.Context, id uint64, from, to bool) (bool, error) {
	if f.product == nil || f.product.ProductID != id || f.product.Rented != from {
		return false, nil
	}
	f.product.Rented = to
	f.writes++
	return true, nil
}

func TestCheckAvailable(t *testing.T) {
	ctx := context.Background()
	tx := &fakeTx{product: &Product{ProductID: 1, OwnerID: 9, UnitPrice: 100}}

	p, err := CheckAvailable(ctx, tx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), p.OwnerID)

	_, err = CheckAvailable(ctx, tx, 2)
	assert.ErrorIs(t, err, apierr.NotFound(""))

	tx.product.Rented = true
	_, err = CheckAvailable(ctx, tx, 1)
	assert.ErrorIs(t, err, apierr.AlreadyRented(""))

	boom := errors.New("lock wait")
	_, err = CheckAvailable(ctx, &fakeTx{lockErr: boom}, 1)
	assert.ErrorIs(t, err, boom)
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	tx := &fakeTx{product: &Product{ProductID: 1}}

	require.NoError(t, Reserve(ctx, tx, 1))
	assert.True(t, tx.product.Rented)

	err := Reserve(ctx, tx, 1)
	assert.ErrorIs(t, err, apierr.AlreadyRented(""))
	assert.Equal(t, 1, tx.writes)
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tx := &fakeTx{product: &Product{ProductID: 1, Rented: true}}

	require.NoError(t, Release(ctx, tx, 1))
	assert.False(t, tx.product.Rented)
	require.NoError(t, Release(ctx, tx, 1))
	assert.False(t, tx.product.Rented)
	assert.Equal(t, 1, tx.writes)
}
