package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vcanchor/internal/verification/models"
	"vcanchor/pkg/platform/sentinel"
)

type sessionJSON struct {
	ID           string           `json:"id"`
	CredentialID string           `json:"credential_id,omitempty"`
	Verifier     *models.Verifier `json:"verifier,omitempty"`
	State        string           `json:"state"`
	Result       *models.Result   `json:"result,omitempty"`
	CreatedAt    int64            `json:"created_at"`            // Unix nano
	ExpiresAt    int64            `json:"expires_at"`            // Unix nano
	BegunAt      *int64           `json:"begun_at,omitempty"`    // Unix nano
	ResolvedAt   *int64           `json:"resolved_at,omitempty"` // Unix nano
	Version      int64            `json:"version"`
}

func unixNano(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	n := t.UnixNano()
	return &n
}

func fromUnixNano(n *int64) *time.Time {
	if n == nil {
		return nil
	}
	t := time.Unix(0, *n).UTC()
	return &t
}

func sessionToJSON(s *models.Session) *sessionJSON {
	return &sessionJSON{
		ID:           s.ID,
		CredentialID: s.CredentialID,
		Verifier:     s.Verifier,
		State:        string(s.State),
		Result:       s.Result,
		CreatedAt:    s.CreatedAt.UnixNano(),
		ExpiresAt:    s.ExpiresAt.UnixNano(),
		BegunAt:      unixNano(s.BegunAt),
		ResolvedAt:   unixNano(s.ResolvedAt),
		Version:      s.Version,
	}
}

func sessionFromJSON(j *sessionJSON) *models.Session {
	return &models.Session{
		ID:           j.ID,
		CredentialID: j.CredentialID,
		Verifier:     j.Verifier,
		State:        models.State(j.State),
		Result:       j.Result,
		CreatedAt:    time.Unix(0, j.CreatedAt).UTC(),
		ExpiresAt:    time.Unix(0, j.ExpiresAt).UTC(),
		BegunAt:      fromUnixNano(j.BegunAt),
		ResolvedAt:   fromUnixNano(j.ResolvedAt),
		Version:      j.Version,
	}
}

// RedisStore shares sessions across instances so a holder's answer can land
// on any node. Keys expire at the session's ExpiresAt.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", sentinel.ErrExpired)
	}
	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKeyPrefix+session.ID, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	return s.get(ctx, s.client, id)
}

// Update writes session under WATCH, comparing Version like the memory store.
func (s *RedisStore) Update(ctx context.Context, session *models.Session) error {
	key := sessionKeyPrefix + session.ID
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		cur, err := s.get(ctx, rtx, session.ID)
		if err != nil {
			return err
		}
		if cur.Version != session.Version {
			return sentinel.ErrConflict
		}
		next := sessionToJSON(session)
		next.Version++
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return err
	}
	session.Version++
	return nil
}

// DeleteExpired is a no-op: key TTLs expire sessions.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) get(ctx context.Context, getter stringGetter, id string) (*models.Session, error) {
	data, err := getter.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var j sessionJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j), nil
}
