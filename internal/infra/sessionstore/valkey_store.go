package sessionstore

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/dtcinsights/dtc-insights/internal/domain/auth"
)

// ValkeyStore shares revoked token ids across replicas. Keys expire with
// the token they refer to.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	now    func() time.Time
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "dtc"
	}
	return &ValkeyStore{client: client, prefix: prefix, now: time.Now}
}

func (s *ValkeyStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	cmd := s.client.B().Set().Key(s.key(tokenID)).Value("1").Ex(ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(s.key(tokenID)).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

func (s *ValkeyStore) key(tokenID string) string {
	return s.prefix + ":revoked:" + tokenID
}

var _ auth.SessionStore = (*ValkeyStore)(nil)
