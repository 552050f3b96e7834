// Package sessiontest runs one behavioural suite against every session.Store.
package sessiontest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rawen554/shortlinks/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type Factory func(t *testing.T) session.Store

func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("refresh consumed once", func(t *testing.T) { testConsumeOnce(t, newStore(t)) })
	t.Run("concurrent consume", func(t *testing.T) { testConcurrentConsume(t, newStore(t)) })
	t.Run("verification lifecycle", func(t *testing.T) { testVerification(t, newStore(t)) })
	t.Run("purge expired", func(t *testing.T) { testPurge(t, newStore(t)) })
	t.Run("parallel guesses", func(t *testing.T) { testParallelGuesses(t, newStore(t)) })
}

func testConsumeOnce(t *testing.T, s session.Store) {
	ctx := context.Background()
	rec := session.RefreshRecord{ID: "jti-1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.SaveRefresh(ctx, rec))

	got, err := s.ConsumeRefresh(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = s.ConsumeRefresh(ctx, "jti-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = s.ConsumeRefresh(ctx, "unknown")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func testConcurrentConsume(t *testing.T, s session.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveRefresh(ctx, session.RefreshRecord{ID: "jti-2", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeRefresh(ctx, "jti-2"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func testVerification(t *testing.T, s session.Store) {
	ctx := context.Background()
	exp := time.Now().Add(30 * time.Second).Truncate(time.Millisecond)
	v := session.Verification{Email: "a@b.com", Code: "012345", ExpiresAt: exp}
	require.NoError(t, s.SaveVerification(ctx, v, time.Hour))

	got, err := s.GetVerification(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "012345", got.Code)
	assert.True(t, exp.Equal(got.ExpiresAt))
	assert.Zero(t, got.Attempts)

	attempts, err := s.IncrementAttempts(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	attempts, err = s.IncrementAttempts(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	// A new code resets the attempt counter.
	require.NoError(t, s.SaveVerification(ctx, session.Verification{Email: "a@b.com", Code: "999999", ExpiresAt: exp}, time.Hour))
	got, err = s.GetVerification(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "999999", got.Code)
	assert.Zero(t, got.Attempts)

	require.NoError(t, s.DeleteVerification(ctx, "a@b.com"))
	assert.ErrorIs(t, s.DeleteVerification(ctx, "a@b.com"), session.ErrNotFound)
	_, err = s.GetVerification(ctx, "a@b.com")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = s.IncrementAttempts(ctx, "a@b.com")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func testPurge(t *testing.T, s session.Store) {
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.SaveRefresh(ctx, session.RefreshRecord{ID: "old", UserID: "u1", ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, s.SaveRefresh(ctx, session.RefreshRecord{ID: "live", UserID: "u1", ExpiresAt: now.Add(48 * time.Hour)}))
	require.NoError(t, s.SaveVerification(ctx, session.Verification{Email: "x@b.com", Code: "111111", ExpiresAt: now.Add(time.Minute)}, time.Hour))

	_, err := s.PurgeExpired(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)

	_, err = s.ConsumeRefresh(ctx, "old")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = s.GetVerification(ctx, "x@b.com")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = s.ConsumeRefresh(ctx, "live")
	assert.NoError(t, err)
}

type lastGuess struct{}

// gatedStore holds every verification read until all guessers have read the
// same record. The guesser marked with lastGuess counts its attempt last.
type gatedStore struct {
	session.Store
	read  sync.WaitGroup
	early sync.WaitGroup
}

func (g *gatedStore) GetVerification(ctx context.Context, email string) (*session.Verification, error) {
	v, err := g.Store.GetVerification(ctx, email)
	g.read.Done()
	g.read.Wait()
	return v, err
}

func (g *gatedStore) IncrementAttempts(ctx context.Context, email string) (int, error) {
	if ctx.Value(lastGuess{}) != nil {
		g.early.Wait()
		return g.Store.IncrementAttempts(ctx, email)
	}
	defer g.early.Done()
	return g.Store.IncrementAttempts(ctx, email)
}

func testParallelGuesses(t *testing.T, s session.Store) {
	ctx := context.Background()
	const (
		email  = "a@b.com"
		code   = "424242"
		misses = 40
	)
	v := session.Verification{Email: email, Code: code, ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, s.SaveVerification(ctx, v, time.Hour))

	gated := &gatedStore{Store: s}
	gated.read.Add(misses + 1)
	gated.early.Add(misses)
	svc, err := session.NewService(session.Config{Secret: "test-secret"}, gated, zap.NewNop().Sugar())
	require.NoError(t, err)

	errs := make([]error, misses+1)
	var wg sync.WaitGroup
	for i := 0; i <= misses; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guessCtx, guess := ctx, fmt.Sprintf("%06d", i)
			if i == misses {
				guessCtx, guess = context.WithValue(ctx, lastGuess{}, true), code
			}
			errs[i] = svc.Verify(guessCtx, email, guess)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.ErrorIs(t, err, session.ErrInvalid, "guess %d", i)
	}

	direct, err := session.NewService(session.Config{Secret: "test-secret"}, s, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.ErrorIs(t, direct.Verify(ctx, email, code), session.ErrInvalid, "the code is burned")
}
