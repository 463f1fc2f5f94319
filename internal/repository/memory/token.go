package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/icu-api/internal/repository"
)

// TokenStore keeps revoked token ids in process until the token would have
// expired anyway.
type TokenStore struct {
	revoked *cache.Cache
}

func NewTokenStore() *TokenStore {
	return &TokenStore{revoked: cache.New(time.Hour, 10*time.Minute)}
}

func (s *TokenStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	s.revoked.Set(tokenID, struct{}{}, ttl)
	return nil
}

func (s *TokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, found := s.revoked.Get(tokenID)
	return found, nil
}

var _ repository.TokenRepository = (*TokenStore)(nil)
