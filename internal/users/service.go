package users

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/auth"
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

// POST /users
func (s *Service) Register(ctx context.Context, in RegisterRequest) (UserResponse, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return UserResponse{}, err
	}
	now := s.now()
	u := User{
		FirstName:    textnorm.Name(in.FirstName),
		LastName:     textnorm.Name(in.LastName),
		Email:        textnorm.Email(in.Email),
		PasswordHash: hash,
		Address:      in.Address,
		City:         in.City,
		State:        in.State,
		CEP:          in.CEP,
		Phone:        in.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, &u); err != nil {
		return UserResponse{}, err
	}
	logging.FromContext(ctx).Info("user registered", zap.Uint64("user_id", u.UserID))
	return toResponse(u), nil
}

func (s *Service) Get(ctx context.Context, id uint64) (UserResponse, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, err
	}
	return toResponse(u), nil
}

func (s *Service) List(ctx context.Context, p Page) (ListUsersResult, error) {
	p = p.normalize()
	rows, total, err := s.store.List(ctx, p)
	if err != nil {
		return ListUsersResult{}, err
	}
	if len(rows) == 0 {
		return ListUsersResult{}, apierr.NotFound("no users found")
	}
	items := make([]UserResponse, 0, len(rows))
	for _, u := range rows {
		items = append(items, toResponse(u))
	}
	next := p.Offset + p.Limit
	if next >= int(total) {
		next = 0
	}
	return ListUsersResult{Items: items, Total: total, NextOffset: next}, nil
}

// PUT /users/me
func (s *Service) Update(ctx context.Context, id uint64, in UpdateUserRequest) (UserResponse, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	if in.FirstName != nil {
		u.FirstName = textnorm.Name(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = textnorm.Name(*in.LastName)
	}
	if in.Email != nil {
		u.Email = textnorm.Email(*in.Email)
	}
	set(&u.Address, in.Address)
	set(&u.City, in.City)
	set(&u.State, in.State)
	set(&u.CEP, in.CEP)
	set(&u.Phone, in.Phone)
	if in.Password != nil {
		if u.PasswordHash, err = auth.HashPassword(*in.Password); err != nil {
			return UserResponse{}, err
		}
	}
	u.UpdatedAt = s.now()

	if err := s.store.Update(ctx, &u); err != nil {
		return UserResponse{}, err
	}
	return toResponse(u), nil
}

// DELETE /users/me  注文が active の間は削除不可
func (s *Service) Delete(ctx context.Context, id uint64) error {
	if err := s.store.DeleteUnlessActive(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("user deleted", zap.Uint64("user_id", id))
	return nil
}

// GetCredentialByEmail serves the session login.
func (s *Service) GetCredentialByEmail(ctx context.Context, email string) (auth.Credential, error) {
	u, err := s.store.GetByEmail(ctx, textnorm.Email(email))
	if err != nil {
		return auth.Credential{}, err
	}
	return auth.Credential{
		UserID:       u.UserID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
	}, nil
}

func toResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.UserID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Address:   u.Address,
		City:      u.City,
		State:     u.State,
		CEP:       u.CEP,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}
