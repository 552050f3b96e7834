// Package storetest runs one behavioural suite against every logic.Store backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) logic.Store

func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("code conflict", func(t *testing.T) { testCodeConflict(t, newStore(t)) })
	t.Run("concurrent create same code", func(t *testing.T) { testConcurrentCreate(t, newStore(t)) })
	t.Run("parallel increments", func(t *testing.T) { testParallelIncrements(t, newStore(t)) })
	t.Run("pagination", func(t *testing.T) { testPagination(t, newStore(t)) })
	t.Run("guest ownership", func(t *testing.T) { testGuestOwnership(t, newStore(t)) })
	t.Run("delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("malformed ids", func(t *testing.T) { testMalformedIDs(t, newStore(t)) })
	t.Run("stats", func(t *testing.T) { testStats(t, newStore(t)) })
}

// NewLink builds a link owned by owner created at the given time.
func NewLink(code string, owner models.Owner, createdAt time.Time) *models.Link {
	return &models.Link{
		ID:             uuid.NewString(),
		ShortCode:      code,
		DestinationURL: "https://example.com/" + code,
		OwnerID:        owner.UserID,
		GuestID:        owner.GuestID,
		CreatedAt:      createdAt.UTC(),
	}
}

func testCreateAndGet(t *testing.T, s logic.Store) {
	ctx := context.Background()
	owner := models.Owner{UserID: uuid.NewString()}
	link := NewLink("abc1234", owner, time.Now())
	require.NoError(t, s.CreateLink(ctx, link))

	first, err := s.GetLinkByCode(ctx, "abc1234")
	require.NoError(t, err)
	assert.Equal(t, link.ID, first.ID)
	assert.Equal(t, link.DestinationURL, first.DestinationURL)
	assert.Equal(t, owner.UserID, first.OwnerID)
	assert.Empty(t, first.GuestID)
	assert.Zero(t, first.ClickCount)
	assert.WithinDuration(t, link.CreatedAt, first.CreatedAt, time.Millisecond)

	second, err := s.GetLinkByCode(ctx, "abc1234")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	byID, err := s.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, first, byID)

	_, err = s.GetLinkByCode(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetLinkByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCodeConflict(t *testing.T, s logic.Store) {
	ctx := context.Background()
	first := NewLink("same", models.Owner{UserID: "u1"}, time.Now())
	require.NoError(t, s.CreateLink(ctx, first))

	second := NewLink("same", models.Owner{UserID: "u2"}, time.Now())
	assert.ErrorIs(t, s.CreateLink(ctx, second), store.ErrCodeConflict)

	got, err := s.GetLinkByCode(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "a conflicting insert must not overwrite")
}

func testConcurrentCreate(t *testing.T, s logic.Store) {
	ctx := context.Background()
	const n = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateLink(ctx, NewLink("race", models.Owner{UserID: uuid.NewString()}, time.Now()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, store.ErrCodeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func testParallelIncrements(t *testing.T, s logic.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLink(ctx, NewLink("hits", models.Owner{UserID: "u1"}, time.Now())))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementClicks(ctx, "hits"))
		}()
	}
	wg.Wait()

	got, err := s.GetLinkByCode(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.ClickCount)

	assert.ErrorIs(t, s.IncrementClicks(ctx, "missing"), store.ErrNotFound)
}

func testPagination(t *testing.T, s logic.Store) {
	ctx := context.Background()
	owner := models.Owner{UserID: "owner"}
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		require.NoError(t, s.CreateLink(ctx, NewLink(fmt.Sprintf("page%02d", i), owner, base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, s.CreateLink(ctx, NewLink("other", models.Owner{UserID: "someone"}, base)))

	tests := []struct {
		page      int
		wantCodes []string
	}{
		{page: 1, wantCodes: []string{"page11", "page10", "page09", "page08", "page07"}},
		{page: 2, wantCodes: []string{"page06", "page05", "page04", "page03", "page02"}},
		{page: 3, wantCodes: []string{"page01", "page00"}},
		{page: 4, wantCodes: []string{}},
	}
	for _, tt := range tests {
		limit, offset := store.Page(tt.page, 5)
		links, total, err := s.ListLinksByOwner(ctx, owner, limit, offset)
		require.NoError(t, err)
		assert.Equal(t, 12, total)

		codes := make([]string, 0, len(links))
		for _, l := range links {
			codes = append(codes, l.ShortCode)
		}
		assert.Equal(t, tt.wantCodes, codes, "page %d", tt.page)
	}

	links, total, err := s.ListLinksByOwner(ctx, models.Owner{UserID: "nobody"}, 5, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, links)
}

func testGuestOwnership(t *testing.T, s logic.Store) {
	ctx := context.Background()
	guest := models.Owner{GuestID: "guest-1"}
	require.NoError(t, s.CreateLink(ctx, NewLink("guest01", guest, time.Now())))
	require.NoError(t, s.CreateLink(ctx, NewLink("guest02", models.Owner{GuestID: "guest-2"}, time.Now())))
	require.NoError(t, s.CreateLink(ctx, NewLink("user01", models.Owner{UserID: "guest-1"}, time.Now())))

	links, total, err := s.ListLinksByOwner(ctx, guest, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, links, 1)
	assert.Equal(t, "guest01", links[0].ShortCode)
	assert.Equal(t, "guest-1", links[0].GuestID)
	assert.Empty(t, links[0].OwnerID)
}

func testDelete(t *testing.T, s logic.Store) {
	ctx := context.Background()
	link := NewLink("gone", models.Owner{UserID: "u1"}, time.Now())
	require.NoError(t, s.CreateLink(ctx, link))

	require.NoError(t, s.DeleteLink(ctx, link.ID))
	_, err := s.GetLinkByCode(ctx, "gone")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteLink(ctx, link.ID), store.ErrNotFound)

	// A deleted code is free again.
	require.NoError(t, s.CreateLink(ctx, NewLink("gone", models.Owner{UserID: "u2"}, time.Now())))
}

func testUsers(t *testing.T, s logic.Store) {
	ctx := context.Background()
	user := &models.User{
		ID:        uuid.NewString(),
		Name:      "Alice",
		Email:     "a@b.com",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(ctx, user, "hash-1"))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{ID: uuid.NewString(), Email: "a@b.com"}, "x"), store.ErrEmailTaken)

	got, err := s.GetUserByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.False(t, got.Verified)

	require.NoError(t, s.UpdatePendingUser(ctx, &models.User{ID: user.ID, Name: "Alice B"}, "hash-2"))
	hash, err := s.GetPasswordHash(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", hash)

	require.NoError(t, s.MarkUserVerified(ctx, user.ID))
	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Equal(t, "Alice B", got.Name)

	assert.ErrorIs(t, s.UpdatePendingUser(ctx, &models.User{ID: user.ID, Name: "Mallory"}, "hash-3"), store.ErrNotFound)

	_, err = s.GetUserByEmail(ctx, "nobody@b.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetPasswordHash(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.MarkUserVerified(ctx, uuid.NewString()), store.ErrNotFound)
}

func testMalformedIDs(t *testing.T, s logic.Store) {
	ctx := context.Background()
	link := NewLink("notid", models.Owner{UserID: "u1"}, time.Now())
	require.NoError(t, s.CreateLink(ctx, link))

	for _, ref := range []string{"notid", "", "1 OR 1=1", link.ID + "x"} {
		_, err := s.GetLinkByID(ctx, ref)
		assert.ErrorIs(t, err, store.ErrNotFound, ref)
		assert.ErrorIs(t, s.DeleteLink(ctx, ref), store.ErrNotFound, ref)
		_, err = s.GetUserByID(ctx, ref)
		assert.ErrorIs(t, err, store.ErrNotFound, ref)
		assert.ErrorIs(t, s.MarkUserVerified(ctx, ref), store.ErrNotFound, ref)
	}

	_, err := s.GetLinkByCode(ctx, "notid")
	require.NoError(t, err)
}

func testStats(t *testing.T, s logic.Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.CreateLink(ctx, NewLink("st1", models.Owner{UserID: "u1"}, time.Now())))
	require.NoError(t, s.CreateLink(ctx, NewLink("st2", models.Owner{GuestID: "g1"}, time.Now())))
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: uuid.NewString(), Email: "s@b.com", CreatedAt: time.Now()}, "h"))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Stats{URLs: 2, Users: 1}, stats)
}
