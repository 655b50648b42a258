// Package availability owns the rented flag of a product. Only order create and
// cancel go through here; product edits never touch the flag.
package availability

import (
	"context"
	"fmt"

	"rental-backend/internal/platform/apierr"
)

// Product is the row snapshot read under lock.
type Product struct {
	ProductID uint64
	OwnerID   uint64
	Name      string
	UnitPrice int64
	Rented    bool
}

// Tx is the part of an open transaction availability needs.
type Tx interface {
	// LockProduct reads the product and holds its row lock until the transaction ends.
	// Missing products yield apierr NOT_FOUND.
	LockProduct(ctx context.Context, productID uint64) (Product, error)
	// SetProductRented writes rented=to only where rented=from and reports whether a row changed.
	SetProductRented(ctx context.Context, productID uint64, from, to bool) (bool, error)
}

// CheckAvailable locks the product and fails when it is already rented.
func CheckAvailable(ctx context.Context, tx Tx, productID uint64) (Product, error) {
	p, err := tx.LockProduct(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if p.Rented {
		return Product{}, apierr.AlreadyRented(fmt.Sprintf("product %d is already rented", productID))
	}
	return p, nil
}

// Reserve flips rented false->true. Zero rows changed means another order won.
func Reserve(ctx context.Context, tx Tx, productID uint64) error {
	changed, err := tx.SetProductRented(ctx, productID, false, true)
	if err != nil {
		return err
	}
	if !changed {
		return apierr.AlreadyRented(fmt.Sprintf("product %d is already rented", productID))
	}
	return nil
}

// Release flips rented true->false. Already available is a no-op.
func Release(ctx context.Context, tx Tx, productID uint64) error {
	_, err := tx.SetProductRented(ctx, productID, true, false)
	return err
}
