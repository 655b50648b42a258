package auth

import "context"

// Credential is what login needs from the user record.
type Credential struct {
	UserID       uint64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
}

// CredentialStore looks users up by normalised email. Unknown emails yield apierr NOT_FOUND.
type CredentialStore interface {
	GetCredentialByEmail(ctx context.Context, email string) (Credential, error)
}
