package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rawen554/shortlinks/internal/session"
	"github.com/rawen554/shortlinks/internal/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ session.Store = (*Store)(nil)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(rdb, "test:")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStore(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T) session.Store {
		s, _ := newStore(t)
		return s
	})
}

func TestStore_KeysCarryTTL(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	svc, err := session.NewService(session.Config{
		Secret:     "secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, s, nil)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, "u1")
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "test:refresh:")
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	addr := mr.Addr()

	rdb, err := NewClient(context.Background(), addr, "", 0)
	require.NoError(t, err)
	assert.NoError(t, rdb.Close())

	mr.Close()
	_, err = NewClient(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
