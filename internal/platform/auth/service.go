package auth

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/logging"
	"rental-backend/internal/platform/textnorm"
)

var ErrInvalidCredentials = apierr.Unauthenticated("email or password is incorrect")

type SessionUser struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

type Service struct {
	creds   CredentialStore
	issuer  *Issuer
	compare func(hash, password string) bool
}

func NewService(creds CredentialStore, issuer *Issuer) *Service {
	return &Service{creds: creds, issuer: issuer, compare: CheckPassword}
}

// 未登録メールでも bcrypt 1回分の時間をかける
var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("rental-backend/no-such-user")
	return h
})

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	cred, err := s.creds.GetCredentialByEmail(ctx, textnorm.Email(email))
	if errors.Is(err, apierr.NotFound("")) {
		s.compare(dummyHash(), password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if !s.compare(cred.PasswordHash, password) {
		logging.FromContext(ctx).Info("login rejected", zap.Uint64("user_id", cred.UserID))
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(cred.UserID)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token: token,
		User: SessionUser{
			ID:        cred.UserID,
			FirstName: cred.FirstName,
			LastName:  cred.LastName,
			Email:     cred.Email,
		},
	}, nil
}

// HashPassword は bcrypt（DefaultCost）でハッシュ化する
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
