// Package redis keeps refresh token ids and verification codes in Redis so
// several service instances can share them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rawen554/shortlinks/internal/session"
)

const (
	refreshPrefix = "refresh:"
	verifyPrefix  = "verify:"

	fieldUserID    = "uid"
	fieldExpiresAt = "expires_at"
	fieldPurgeAt   = "purge_at"
	fieldCode      = "code"
	fieldAttempts  = "attempts"
)

// incrIfExists keeps HINCRBY from resurrecting a consumed code.
var incrIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
`)

type Store struct {
	rdb    *redis.Client
	prefix string
}

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("error connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// New namespaces every key with prefix.
func New(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) refreshKey(id string) string {
	return s.prefix + refreshPrefix + id
}

func (s *Store) verifyKey(email string) string {
	return s.prefix + verifyPrefix + email
}

func unixNano(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseUnixNano(v string) (time.Time, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing timestamp %q: %w", v, err)
	}
	return time.Unix(0, n), nil
}

func (s *Store) SaveRefresh(ctx context.Context, rec session.RefreshRecord) error {
	key := s.refreshKey(rec.ID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldUserID, rec.UserID,
			fieldExpiresAt, unixNano(rec.ExpiresAt),
			fieldPurgeAt, unixNano(rec.ExpiresAt),
		)
		pipe.PExpireAt(ctx, key, rec.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving refresh record: %w", err)
	}
	return nil
}

// ConsumeRefresh reads and deletes in one MULTI; only the caller whose DEL removed the key wins.
func (s *Store) ConsumeRefresh(ctx context.Context, id string) (*session.RefreshRecord, error) {
	key := s.refreshKey(id)
	var (
		fields *redis.StringStringMapCmd
		del    *redis.IntCmd
	)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, key)
		del = pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error consuming refresh record: %w", err)
	}
	if del.Val() != 1 {
		return nil, session.ErrNotFound
	}

	values := fields.Val()
	exp, err := parseUnixNano(values[fieldExpiresAt])
	if err != nil {
		return nil, err
	}
	return &session.RefreshRecord{ID: id, UserID: values[fieldUserID], ExpiresAt: exp}, nil
}

func (s *Store) SaveVerification(ctx context.Context, v session.Verification, retain time.Duration) error {
	key := s.verifyKey(v.Email)
	purgeAt := v.ExpiresAt.Add(retain)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldCode, v.Code,
			fieldExpiresAt, unixNano(v.ExpiresAt),
			fieldPurgeAt, unixNano(purgeAt),
			fieldAttempts, v.Attempts,
		)
		pipe.PExpireAt(ctx, key, purgeAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving verification code: %w", err)
	}
	return nil
}

func (s *Store) GetVerification(ctx context.Context, email string) (*session.Verification, error) {
	values, err := s.rdb.HGetAll(ctx, s.verifyKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading verification code: %w", err)
	}
	if len(values) == 0 {
		return nil, session.ErrNotFound
	}

	exp, err := parseUnixNano(values[fieldExpiresAt])
	if err != nil {
		return nil, err
	}
	attempts, err := strconv.Atoi(values[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("error parsing attempts: %w", err)
	}
	return &session.Verification{
		Email:     email,
		Code:      values[fieldCode],
		ExpiresAt: exp,
		Attempts:  attempts,
	}, nil
}

func (s *Store) IncrementAttempts(ctx context.Context, email string) (int, error) {
	n, err := incrIfExists.Run(ctx, s.rdb, []string{s.verifyKey(email)}, fieldAttempts).Int()
	if err != nil {
		return 0, fmt.Errorf("error counting attempt: %w", err)
	}
	if n < 0 {
		return 0, session.ErrNotFound
	}
	return n, nil
}

func (s *Store) DeleteVerification(ctx context.Context, email string) error {
	n, err := s.rdb.Del(ctx, s.verifyKey(email)).Result()
	if err != nil {
		return fmt.Errorf("error deleting verification code: %w", err)
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// PurgeExpired complements key TTLs for clocks that run ahead of the server's.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	purged := 0
	for _, pattern := range []string{s.prefix + refreshPrefix + "*", s.prefix + verifyPrefix + "*"} {
		iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			v, err := s.rdb.HGet(ctx, key, fieldPurgeAt).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return purged, fmt.Errorf("error reading %s: %w", key, err)
			}
			purgeAt, err := parseUnixNano(v)
			if err != nil {
				return purged, err
			}
			if now.Before(purgeAt) {
				continue
			}
			n, err := s.rdb.Del(ctx, key).Result()
			if err != nil {
				return purged, fmt.Errorf("error deleting %s: %w", key, err)
			}
			purged += int(n)
		}
		if err := iter.Err(); err != nil {
			return purged, fmt.Errorf("error scanning %s: %w", pattern, err)
		}
	}
	return purged, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
