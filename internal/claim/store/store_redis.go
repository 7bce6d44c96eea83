package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vcanchor/internal/claim/models"
	"vcanchor/pkg/platform/sentinel"
)

type ticketJSON struct {
	ID           string `json:"id"`
	CredentialID string `json:"credential_id"`
	TokenHash    string `json:"token_hash"`
	ClaimURL     string `json:"claim_url"`
	CreatedAt    int64  `json:"created_at"`            // Unix nano
	ExpiresAt    int64  `json:"expires_at"`            // Unix nano
	ConsumedAt   *int64 `json:"consumed_at,omitempty"` // Unix nano
}

func ticketToJSON(t *models.Ticket) *ticketJSON {
	j := &ticketJSON{
		ID:           t.ID,
		CredentialID: t.CredentialID,
		TokenHash:    t.TokenHash,
		ClaimURL:     t.ClaimURL,
		CreatedAt:    t.CreatedAt.UnixNano(),
		ExpiresAt:    t.ExpiresAt.UnixNano(),
	}
	if t.ConsumedAt != nil {
		ts := t.ConsumedAt.UnixNano()
		j.ConsumedAt = &ts
	}
	return j
}

func ticketFromJSON(j *ticketJSON) *models.Ticket {
	t := &models.Ticket{
		ID:           j.ID,
		CredentialID: j.CredentialID,
		TokenHash:    j.TokenHash,
		ClaimURL:     j.ClaimURL,
		CreatedAt:    time.Unix(0, j.CreatedAt).UTC(),
		ExpiresAt:    time.Unix(0, j.ExpiresAt).UTC(),
	}
	if j.ConsumedAt != nil {
		ts := time.Unix(0, *j.ConsumedAt).UTC()
		t.ConsumedAt = &ts
	}
	return t
}

// RedisStore shares tickets across server instances. The credential index key
// doubles as the single-active guard: exclusive creates claim it with SETNX.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func ticketTTL(t *models.Ticket, now time.Time) time.Duration {
	ttl := t.ExpiresAt.Sub(now) + retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (s *RedisStore) Create(ctx context.Context, t *models.Ticket, exclusive bool) error {
	data, err := json.Marshal(ticketToJSON(t))
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	credKey := credentialKeyPrefix + t.CredentialID
	activeTTL := t.ExpiresAt.Sub(t.CreatedAt)
	if activeTTL <= 0 {
		return fmt.Errorf("ticket already expired: %w", sentinel.ErrExpired)
	}

	if exclusive {
		ok, err := s.client.SetNX(ctx, credKey, t.ID, activeTTL).Result()
		if err != nil {
			return fmt.Errorf("reserve credential index: %w", err)
		}
		if !ok {
			// The index may point at a ticket consumed before it expired.
			if _, err := s.FindActiveByCredential(ctx, t.CredentialID, t.CreatedAt); err == nil {
				return sentinel.ErrConflict
			}
			if err := s.client.Set(ctx, credKey, t.ID, activeTTL).Err(); err != nil {
				return fmt.Errorf("replace credential index: %w", err)
			}
		}
	}

	ttl := ticketTTL(t, t.CreatedAt)
	ok, err := s.client.SetNX(ctx, ticketKeyPrefix+t.ID, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, tokenKeyPrefix+t.TokenHash, t.ID, ttl)
	if !exclusive {
		pipe.Set(ctx, credKey, t.ID, activeTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index ticket: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	return s.get(ctx, s.client, id)
}

func (s *RedisStore) FindActiveByCredential(ctx context.Context, credID string, now time.Time) (*models.Ticket, error) {
	id, err := s.client.Get(ctx, credentialKeyPrefix+credID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket by credential: %w", err)
	}
	t, err := s.get(ctx, s.client, id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive(now) {
		return nil, sentinel.ErrNotFound
	}
	return t, nil
}

func (s *RedisStore) FindByTokenHash(ctx context.Context, hash string) (*models.Ticket, error) {
	id, err := s.client.Get(ctx, tokenKeyPrefix+hash).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket by token: %w", err)
	}
	return s.get(ctx, s.client, id)
}

// Consume marks the ticket used under WATCH so concurrent redemptions of the
// same ticket cannot both succeed.
func (s *RedisStore) Consume(ctx context.Context, id string, at time.Time) error {
	key := ticketKeyPrefix + id
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		t, err := s.get(ctx, rtx, id)
		if err != nil {
			return err
		}
		if t.IsConsumed() {
			return sentinel.ErrAlreadyUsed
		}
		ts := at.UTC()
		t.ConsumedAt = &ts
		data, err := json.Marshal(ticketToJSON(t))
		if err != nil {
			return fmt.Errorf("marshal ticket: %w", err)
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrAlreadyUsed
	}
	return err
}

// Reopen clears ConsumedAt, compensating a redemption whose credential write failed.
func (s *RedisStore) Reopen(ctx context.Context, id string) error {
	key := ticketKeyPrefix + id
	return s.client.Watch(ctx, func(rtx *redis.Tx) error {
		t, err := s.get(ctx, rtx, id)
		if err != nil {
			return err
		}
		t.ConsumedAt = nil
		data, err := json.Marshal(ticketToJSON(t))
		if err != nil {
			return fmt.Errorf("marshal ticket: %w", err)
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
}

// DeleteExpired is a no-op: key TTLs expire tickets.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) get(ctx context.Context, getter stringGetter, id string) (*models.Ticket, error) {
	data, err := getter.Get(ctx, ticketKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("ticket not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	var j ticketJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal ticket: %w", err)
	}
	return ticketFromJSON(&j), nil
}
