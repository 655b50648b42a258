package products

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/logging"
	"rental-backend/internal/platform/textnorm"
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// POST /products
func (s *Service) Create(ctx context.Context, ownerID uint64, in CreateProductRequest) (ProductResponse, error) {
	now := s.now()
	p := Product{
		OwnerID:     ownerID,
		Name:        textnorm.Name(in.Name),
		Price:       *in.Price,
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		PictureID:   toNullString(in.PictureID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, &p); err != nil {
		return ProductResponse{}, err
	}
	logging.FromContext(ctx).Info("product listed", zap.Uint64("product_id", p.ProductID))
	return toResponse(p), nil
}

func (s *Service) Get(ctx context.Context, id uint64) (ProductResponse, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return ProductResponse{}, err
	}
	return toResponse(p), nil
}

// GET /products?productName= 貸出可能なものだけ
func (s *Service) Search(ctx context.Context, name string, pg Page) (ListProductsResult, error) {
	pg = pg.normalize()
	rows, total, err := s.store.ListAvailable(ctx, Filter{NameContains: textnorm.Name(name)}, pg)
	if err != nil {
		return ListProductsResult{}, err
	}
	return toList(rows, total, pg)
}

// GET /users/me/products
func (s *Service) ListMine(ctx context.Context, ownerID uint64, pg Page) (ListProductsResult, error) {
	pg = pg.normalize()
	rows, total, err := s.store.ListByOwner(ctx, ownerID, pg)
	if err != nil {
		return ListProductsResult{}, err
	}
	return toList(rows, total, pg)
}

// PUT /products/:productId
func (s *Service) Update(ctx context.Context, requesterID, id uint64, in UpdateProductRequest) (ProductResponse, error) {
	p, err := s.owned(ctx, requesterID, id)
	if err != nil {
		return ProductResponse{}, err
	}

	if in.Name != nil {
		p.Name = textnorm.Name(*in.Name)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	if in.PictureID != nil {
		p.PictureID = toNullString(in.PictureID)
	}
	p.UpdatedAt = s.now()

	if err := s.store.UpdateDetails(ctx, &p); err != nil {
		return ProductResponse{}, err
	}
	return toResponse(p), nil
}

// DELETE /products/:productId
func (s *Service) Delete(ctx context.Context, requesterID, id uint64) error {
	if _, err := s.owned(ctx, requesterID, id); err != nil {
		return err
	}
	if err := s.store.DeleteIfAvailable(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("product deleted", zap.Uint64("product_id", id))
	return nil
}

func (s *Service) owned(ctx context.Context, requesterID, id uint64) (Product, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if p.OwnerID != requesterID {
		return Product{}, apierr.Forbidden("only the owner can change this product")
	}
	return p, nil
}

// helpers

func toNullString(s *string) (ns sql.NullString) {
	if s != nil && strings.TrimSpace(*s) != "" {
		ns.Valid, ns.String = true, *s
	}
	return
}

func nullToPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}

func toResponse(p Product) ProductResponse {
	return ProductResponse{
		ID:          p.ProductID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Location:    p.Location,
		PictureID:   nullToPtr(p.PictureID),
		Rented:      p.Rented,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toList(rows []Product, total int64, pg Page) (ListProductsResult, error) {
	if len(rows) == 0 {
		return ListProductsResult{}, apierr.NotFound("no products found")
	}
	items := make([]ProductResponse, 0, len(rows))
	for _, p := range rows {
		items = append(items, toResponse(p))
	}
	next := pg.Offset + pg.Limit
	if next >= int(total) {
		next = 0
	}
	return ListProductsResult{Items: items, Total: total, NextOffset: next}, nil
}
