// internal/infrastructure/database/redis/session_store.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
)

// SessionStore persists checkout state in Redis
type SessionStore struct {
	client *Client
}

func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(id string) string {
	return fmt.Sprintf("checkout:session:%s", id)
}

func (s *SessionStore) Load(ctx context.Context, id string) (*checkout.State, error) {
	var state checkout.State
	if err := s.client.GetJSON(ctx, sessionKey(id), &state); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, checkout.ErrStateNotFound
		}
		return nil, err
	}
	return &state, nil
}

func (s *SessionStore) Save(ctx context.Context, id string, state checkout.State, ttl time.Duration) error {
	return s.client.SetJSON(ctx, sessionKey(id), state, ttl)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id))
}
