package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"payflow/internal/domain/checkout"
	"payflow/internal/store/repositories"

	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "payflow:checkout:"
	refKeyPrefix     = "payflow:checkout:ref:"
)

// SessionStore keeps checkout sessions in Redis so the pending transaction
// reference survives the redirect round trip even when the completion
// request lands on a different process. Keys are TTL-bounded; an expired
// session means an abandoned checkout.
type SessionStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewSessionStore(client *goredis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

var _ repositories.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Put(ctx context.Context, sess *checkout.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sess.InvitationKey, raw, s.ttl).Err(); err != nil {
		return err
	}
	if sess.PendingRef != "" {
		// Secondary index so webhook delivery, which only carries the
		// provider reference, can find its way back to the session.
		return s.client.Set(ctx, refKeyPrefix+sess.PendingRef, sess.InvitationKey, s.ttl).Err()
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, invitationKey string) (*checkout.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+invitationKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess checkout.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) GetByRef(ctx context.Context, pendingRef string) (*checkout.Session, error) {
	key, err := s.client.Get(ctx, refKeyPrefix+pendingRef).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

func (s *SessionStore) Delete(ctx context.Context, invitationKey string) error {
	sess, err := s.Get(ctx, invitationKey)
	if err == nil && sess.PendingRef != "" {
		_ = s.client.Del(ctx, refKeyPrefix+sess.PendingRef).Err()
	}
	return s.client.Del(ctx, sessionKeyPrefix+invitationKey).Err()
}
