package auth

import (
	"context"
	"errors"
	"time"
)

// Repository errors.
var (
	ErrEmailExists     = errors.New("email already exists")
	ErrIdentityInvalid = errors.New("identity needs a user, provider and subject")
)

// Repository abstracts user persistence.
type Repository interface {
	Create(ctx context.Context, email, name, passwordHash string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, bool, error)
	GetByID(ctx context.Context, id int64) (User, bool, error)
	GetIdentity(ctx context.Context, provider, providerSubject string) (Identity, bool, error)
	GetIdentityByUser(ctx context.Context, userID int64, provider string) (Identity, bool, error)
	UpsertIdentity(ctx context.Context, identity Identity) (Identity, error)
}

// SessionStore remembers revoked token ids until the tokens expire.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
