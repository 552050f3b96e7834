package client_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rawen554/shortlinks/internal/app"
	"github.com/rawen554/shortlinks/internal/config"
	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/session"
	"github.com/rawen554/shortlinks/internal/store/memory"
	"github.com/rawen554/shortlinks/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) SendVerificationCode(_ context.Context, to, code string, _ time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[to] = code
	return nil
}

func (i *inbox) code(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[email]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestClient_AgainstServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop().Sugar()
	conf := &config.ServerConfig{
		RedirectBaseURL: "http://sho.rt",
		Secret:          "secret",
		CodeLength:      7,
	}

	clk := &clock{now: time.Now()}
	sessions, err := session.NewService(session.Config{Secret: conf.Secret}, session.NewMemoryStore(), logger, session.WithClock(clk.Now))
	require.NoError(t, err)
	mail := &inbox{codes: make(map[string]string)}
	coreLogic := logic.NewCoreLogic(conf, memory.NewMemoryStorage(), logger, logic.WithSessions(sessions, mail))
	r, err := app.NewApp(conf, coreLogic, sessions, logger).SetupRouter()
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx := context.Background()
	c := client.New(srv.URL)

	v, err := c.SignUp(ctx, "Alice", "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, 30, v.ExpiresIn)

	s, err := c.VerifyCode(ctx, "alice@example.com", mail.code("alice@example.com"))
	require.NoError(t, err)
	assert.True(t, s.User.Verified)

	created, err := c.CreateAlias(ctx, "https://example.com/docs", "docs")
	require.NoError(t, err)
	assert.Equal(t, "http://sho.rt/docs", created.ShortURL)

	_, err = c.CreateURL(ctx, "https://example.com/blog")
	require.NoError(t, err)

	h, err := c.History(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, h.URLs, 2)
	assert.Equal(t, 1, h.TotalPages)

	before := c.Tokens()
	clk.Advance(session.DefaultAccessTTL + time.Minute)
	got, err := c.GetURL(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.NotEqual(t, before, c.Tokens())

	require.NoError(t, c.DeleteURL(ctx, created.ID))
	require.NoError(t, c.SignOut(ctx))
	assert.Equal(t, client.Tokens{}, c.Tokens())

	_, err = c.History(ctx, 1, 10)
	assert.ErrorIs(t, err, client.ErrSessionExpired)
}
