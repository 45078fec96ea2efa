package userrepo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dtcinsights/dtc-insights/internal/domain/auth"
)

type providerSubject struct {
	provider string
	subject  string
}

type providerUser struct {
	provider string
	userID   int64
}

// MemoryRepository keeps operators in process memory. Used when no
// Postgres DSN is configured or the database is unreachable.
type MemoryRepository struct {
	mu      sync.RWMutex
	now     func() time.Time
	lastID  int64
	users   map[int64]auth.User
	byEmail map[string]int64

	lastIdentityID int64
	identities     map[providerSubject]auth.Identity
	byUser         map[providerUser]providerSubject
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:        func() time.Time { return time.Now().UTC() },
		users:      make(map[int64]auth.User),
		byEmail:    make(map[string]int64),
		identities: make(map[providerSubject]auth.Identity),
		byUser:     make(map[providerUser]providerSubject),
	}
}

// Create stores a user. Emails compare case-insensitively, matching the
// unique index of the Postgres schema.
func (r *MemoryRepository) Create(_ context.Context, email, name, passwordHash string) (auth.User, error) {
	key := strings.ToLower(email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[key]; taken {
		return auth.User{}, auth.ErrEmailExists
	}
	r.lastID++
	user := auth.User{
		ID:           r.lastID,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    r.now(),
	}
	r.users[user.ID] = user
	r.byEmail[key] = user.ID
	return user, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return auth.User{}, false, nil
	}
	return r.users[id], true, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	return user, ok, nil
}

func (r *MemoryRepository) GetIdentity(_ context.Context, provider, subject string) (auth.Identity, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[providerSubject{provider, subject}]
	return identity, ok, nil
}

func (r *MemoryRepository) GetIdentityByUser(_ context.Context, userID int64, provider string) (auth.Identity, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byUser[providerUser{provider, userID}]
	if !ok {
		return auth.Identity{}, false, nil
	}
	return r.identities[key], true, nil
}

// UpsertIdentity links a provider subject to a user. Updates keep the stored
// refresh token and email when the new values are empty.
func (r *MemoryRepository) UpsertIdentity(_ context.Context, identity auth.Identity) (auth.Identity, error) {
	if identity.UserID == 0 || identity.Provider == "" || identity.ProviderSubject == "" {
		return auth.Identity{}, auth.ErrIdentityInvalid
	}
	key := providerSubject{identity.Provider, identity.ProviderSubject}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.identities[key]; ok {
		if identity.RefreshToken != "" {
			existing.RefreshToken = identity.RefreshToken
		}
		if identity.ProviderEmail != "" {
			existing.ProviderEmail = identity.ProviderEmail
		}
		existing.UpdatedAt = now
		r.identities[key] = existing
		return existing, nil
	}
	r.lastIdentityID++
	identity.ID = r.lastIdentityID
	identity.CreatedAt, identity.UpdatedAt = now, now
	r.identities[key] = identity
	r.byUser[providerUser{identity.Provider, identity.UserID}] = key
	return identity, nil
}

var _ auth.Repository = (*MemoryRepository)(nil)
