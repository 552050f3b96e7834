package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rawen554/shortlinks/internal/cache"
	"github.com/rawen554/shortlinks/internal/config"
	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingSource struct {
	link *models.Link
	mu   sync.Mutex
	hits int
}

func (s *failingSource) GetLink(_ context.Context, _ string) (*models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	return s.link, nil
}

func (s *failingSource) IncrementClicks(_ context.Context, _ string) error {
	return errors.New("connection reset")
}

func newCoreLogic(t *testing.T) *logic.CoreLogic {
	t.Helper()
	cfg := &config.ServerConfig{RedirectBaseURL: "http://localhost:8080", CodeLength: 7}
	return logic.NewCoreLogic(cfg, memory.NewMemoryStorage(), zap.NewNop().Sugar())
}

func TestResolver_ParallelResolvesCountEveryClick(t *testing.T) {
	ctx := context.Background()
	cl := newCoreLogic(t)
	link, err := cl.CreateLink(ctx, "https://example.com/page", models.Owner{UserID: "u1"})
	require.NoError(t, err)

	c, err := cache.New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	r := New(cl, c, zap.NewNop().Sugar())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dest, err := r.Resolve(ctx, link.ShortCode)
			assert.NoError(t, err)
			assert.Equal(t, "https://example.com/page", dest)
		}()
	}
	wg.Wait()
	r.Wait()

	got, err := cl.GetLink(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.ClickCount)
}

func TestResolver_NotFound(t *testing.T) {
	r := New(newCoreLogic(t), nil, zap.NewNop().Sugar())

	_, err := r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, logic.ErrNotFound)
	r.Wait()
}

func TestResolver_UsesCache(t *testing.T) {
	src := &failingSource{link: &models.Link{ShortCode: "abc1234", DestinationURL: "https://example.com"}}
	c, err := cache.New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	r := New(src, c, zap.NewNop().Sugar())
	_, err = r.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	c.Wait()

	dest, err := r.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	r.Wait()
	assert.Equal(t, "https://example.com", dest)
	assert.Equal(t, 1, src.hits)
}

func TestResolver_FailedIncrementStillRedirects(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	src := &failingSource{link: &models.Link{ShortCode: "abc1234", DestinationURL: "https://example.com"}}
	r := New(src, nil, zap.New(core).Sugar())

	dest, err := r.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", dest)

	r.Wait()
	assert.Equal(t, 1, logs.Len())
}

// deletingSource drops the link from the cache while the lookup is in flight.
type deletingSource struct {
	failingSource
	cache *cache.Cache
}

func (s *deletingSource) GetLink(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.failingSource.GetLink(ctx, code)
	s.cache.Invalidate(code)
	return link, err
}

func TestResolver_DeleteDuringLookupIsNotCached(t *testing.T) {
	c, err := cache.New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	src := &deletingSource{
		failingSource: failingSource{link: &models.Link{ShortCode: "abc1234", DestinationURL: "https://example.com"}},
		cache:         c,
	}
	r := New(src, c, zap.NewNop().Sugar())

	dest, err := r.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", dest)
	r.Wait()
	c.Wait()

	_, ok := c.Get("abc1234")
	assert.False(t, ok, "a link deleted mid-lookup must not be served from the cache")
}
