package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

const (
	sessionKeyPrefix = "session:"
	maxTxRetries     = 8
	scanBatch        = 100
)

// RedisSessionStore keeps one JSON snapshot per session under session:<id>.
// Every write refreshes the key's TTL.
type RedisSessionStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisSessionStore(rdb redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionStore) sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisSessionStore) Load(ctx context.Context, id string) (*model.Session, error) {
	key := r.sessionKey(id)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}
	return decodeSession(id, raw)
}

func (r *RedisSessionStore) Save(ctx context.Context, s *model.Session) error {
	if s == nil || s.ID == "" {
		return errx.Validation("session id is required", nil)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := r.sessionKey(s.ID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	key := r.sessionKey(id)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// List returns the ids of all stored sessions in lexical order.
func (r *RedisSessionStore) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	iter := r.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), sessionKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		logx.Error().Err(err).Msg("failed to scan session keys")
		return nil, errx.WrapRedis(err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Update runs fn inside a WATCH/MULTI transaction on the session key and
// retries when another writer changed the key in between. Errors returned by
// fn abort the update unchanged.
func (r *RedisSessionStore) Update(ctx context.Context, id string, fn func(*model.Session) (*model.Session, error)) (*model.Session, error) {
	key := r.sessionKey(id)

	var (
		result *model.Session
		fnErr  error
	)
	txf := func(tx *redis.Tx) error {
		var current *model.Session
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if current, err = decodeSession(id, raw); err != nil {
				fnErr = err
				return err
			}
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err
			return err
		}
		if next == nil {
			fnErr = fmt.Errorf("update of session %s produced no session", id)
			return fnErr
		}
		b, err := json.Marshal(next)
		if err != nil {
			fnErr = fmt.Errorf("marshal session: %w", err)
			return fnErr
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		fnErr = nil
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if fnErr != nil {
			return nil, fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			logx.Debug().Str("key", key).Int("attempt", attempt).Msg("session changed concurrently, retrying")
			continue
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to update session in redis")
		return nil, errx.WrapRedis(err)
	}
	return nil, errx.Upstream("session is too busy, please retry", redis.TxFailedErr)
}

// Prune deletes sessions whose last activity is older than maxAge. Each key
// is checked and deleted under WATCH, so a session refreshed by a concurrent
// turn is kept.
func (r *RedisSessionStore) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, id := range ids {
		deleted, err := r.pruneOne(ctx, id, cutoff)
		if errors.Is(err, redis.TxFailedErr) {
			logx.Debug().Str("session_id", id).Msg("session changed during prune, keeping it")
			continue
		}
		if err != nil {
			logx.Error().Err(err).Str("session_id", id).Msg("failed to prune session")
			return removed, errx.WrapRedis(err)
		}
		if deleted {
			removed++
		}
	}
	return removed, nil
}

func (r *RedisSessionStore) pruneOne(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	key := r.sessionKey(id)
	deleted := false
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		s, err := decodeSession(id, raw)
		if err != nil {
			logx.Warn().Err(err).Str("session_id", id).Msg("skipping unreadable session")
			return nil
		}
		if !s.LastActivity.Before(cutoff) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}, key)
	return deleted, err
}

func decodeSession(id string, raw []byte) (*model.Session, error) {
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		logx.Error().Err(err).Str("session_id", id).Msg("failed to unmarshal session")
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &s, nil
}

var _ model.SessionStore = (*RedisSessionStore)(nil)
