package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/store"
)

// RedisSessions is a store.SessionStore on redis. Rows expire natively via
// key TTLs, so the sweep is a no-op here.
type RedisSessions struct {
	Client *redis.Client
	Prefix string
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{Client: client, Prefix: "session:"}
}

func (r *RedisSessions) key(token string) string { return r.Prefix + token }

func (r *RedisSessions) PutSession(ctx context.Context, s *models.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.Client.Set(ctx, r.key(s.Token), payload, ttl).Err()
}

func (r *RedisSessions) GetSession(ctx context.Context, token string) (*models.Session, error) {
	payload, err := r.Client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	s.Token = token
	return &s, nil
}

func (r *RedisSessions) DeleteSession(ctx context.Context, token string) error {
	return r.Client.Del(ctx, r.key(token)).Err()
}

func (r *RedisSessions) DeleteExpiredSessions(context.Context, time.Time) error {
	return nil
}
