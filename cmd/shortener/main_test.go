package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/rawen554/shortlinks/internal/app"
	"github.com/rawen554/shortlinks/internal/config"
	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/mailer"
	"github.com/rawen554/shortlinks/internal/session"
	sessionRedis "github.com/rawen554/shortlinks/internal/session/redis"
	"github.com/rawen554/shortlinks/internal/store/memory"
	"github.com/rawen554/shortlinks/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name string
		conf *config.ServerConfig
		want any
	}{
		{name: "memory by default", conf: &config.ServerConfig{}, want: &memory.MemoryStorage{}},
		{name: "sqlite file", conf: &config.ServerConfig{SQLitePath: filepath.Join(t.TempDir(), "links.db")}, want: &sqlite.DBStore{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(context.Background(), tt.conf, zap.NewNop().Sugar())
			require.NoError(t, err)
			defer func() { assert.NoError(t, store.Close()) }()

			assert.IsType(t, tt.want, store)
			assert.NoError(t, store.Ping(context.Background()))
		})
	}
}

func TestNewStore_BadPostgresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), &config.ServerConfig{DatabaseDSN: "postgres://%zz"}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestNewSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	store, err := NewSessionStore(context.Background(), &config.ServerConfig{})
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, store)

	store, err = NewSessionStore(context.Background(), &config.ServerConfig{RedisAddr: addr})
	require.NoError(t, err)
	assert.IsType(t, &sessionRedis.Store{}, store)
	assert.NoError(t, store.Close())

	mr.Close()
	_, err = NewSessionStore(context.Background(), &config.ServerConfig{RedisAddr: addr})
	assert.Error(t, err)
}

func TestNewMailer(t *testing.T) {
	logger := zap.NewNop().Sugar()
	assert.IsType(t, &mailer.LogMailer{}, NewMailer(&config.ServerConfig{}, logger))
	assert.IsType(t, &mailer.SMTPMailer{}, NewMailer(&config.ServerConfig{SMTPHost: "smtp.example.com"}, logger))
}

func TestWiredRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop().Sugar()
	conf := &config.ServerConfig{
		RedirectBaseURL: "http://localhost:8080",
		FrontendURL:     "http://localhost:3000",
		SQLitePath:      filepath.Join(t.TempDir(), "links.db"),
		Secret:          "secret",
		GuestSessions:   true,
		CodeLength:      7,
	}

	store, err := NewStore(context.Background(), conf, logger)
	require.NoError(t, err)
	defer store.Close()
	sessionStore, err := NewSessionStore(context.Background(), conf)
	require.NoError(t, err)
	sessions, err := NewSessionService(conf, sessionStore, logger)
	require.NoError(t, err)

	coreLogic := logic.NewCoreLogic(conf, store, logger, logic.WithSessions(sessions, NewMailer(conf, logger)))
	r, err := app.NewApp(conf, coreLogic, sessions, logger).SetupRouter()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/url/create", strings.NewReader(`{"url":"https://ya.ru"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
