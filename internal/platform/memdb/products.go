package memdb

import (
	"context"
	"sort"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/textnorm"
	"rental-backend/internal/products"
)

type productStore struct{ d *DB }

var (
	errProductNotFound = apierr.NotFound("product not found")
	errProductRented   = apierr.Conflict("product is rented; cancel its order first")
)

func (s productStore) Insert(_ context.Context, p *products.Product) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.users[p.OwnerID]; !ok {
		return apierr.NotFound("owner not found")
	}
	s.d.nextProductID++
	p.ProductID = s.d.nextProductID
	p.Rented = false
	s.d.products[p.ProductID] = *p
	return nil
}

func (s productStore) GetByID(_ context.Context, id uint64) (products.Product, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p, ok := s.d.products[id]
	if !ok {
		return products.Product{}, errProductNotFound
	}
	return p, nil
}

func (s productStore) ListAvailable(_ context.Context, f products.Filter, p products.Page) ([]products.Product, int64, error) {
	return s.list(func(pr products.Product) bool {
		return !pr.Rented && textnorm.Contains(pr.Name, f.NameContains)
	}, p)
}

func (s productStore) ListByOwner(_ context.Context, ownerID uint64, p products.Page) ([]products.Product, int64, error) {
	return s.list(func(pr products.Product) bool { return pr.OwnerID == ownerID }, p)
}

func (s productStore) list(match func(products.Product) bool, p products.Page) ([]products.Product, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var rows []products.Product
	for _, pr := range s.d.products {
		if match(pr) {
			rows = append(rows, pr)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ProductID > rows[j].ProductID
	})
	return window(rows, p.Limit, p.Offset), int64(len(rows)), nil
}

func (s productStore) UpdateDetails(_ context.Context, p *products.Product) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	cur, ok := s.d.products[p.ProductID]
	if !ok {
		return errProductNotFound
	}
	// owner / rented は保持
	cur.Name, cur.Price, cur.Description = p.Name, p.Price, p.Description
	cur.Location, cur.PictureID, cur.UpdatedAt = p.Location, p.PictureID, p.UpdatedAt
	s.d.products[p.ProductID] = cur
	return nil
}

func (s productStore) DeleteIfAvailable(_ context.Context, id uint64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p, ok := s.d.products[id]
	if !ok {
		return errProductNotFound
	}
	if p.Rented {
		return errProductRented
	}
	s.d.deleteProductLocked(id)
	return nil
}

func (d *DB) deleteProductLocked(id uint64) {
	delete(d.products, id)
	for oid, o := range d.orders {
		if o.ProductID == id {
			delete(d.orders, oid)
		}
	}
}
