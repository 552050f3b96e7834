package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSessions(t *testing.T, now *time.Time) *session.Service {
	t.Helper()
	s, err := session.NewService(session.Config{
		Secret:     "secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		GuestTTL:   24 * time.Hour,
	}, session.NewMemoryStore(), zap.NewNop().Sugar(), session.WithClock(func() time.Time { return *now }))
	require.NoError(t, err)
	return s
}

func setupRouter(sessions Sessions, cfg GateConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Gate(sessions, cfg, zap.NewNop().Sugar()), func(c *gin.Context) {
		owner, ok := GetOwner(c)
		if !ok {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": owner.UserID, "guest": owner.GuestID})
	})
	return r
}

func TestGate_Bearer(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := newSessions(t, &now)
	r := setupRouter(sessions, GateConfig{Guests: true})

	pair, err := sessions.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		advance    time.Duration
		wantCode   int
		wantHeader string
	}{
		{name: "valid", header: "Bearer " + pair.AccessToken, wantCode: http.StatusOK},
		{name: "lower case scheme", header: "bearer " + pair.AccessToken, wantCode: http.StatusOK},
		{name: "refresh token", header: "Bearer " + pair.RefreshToken, wantCode: http.StatusForbidden},
		{name: "garbage", header: "Bearer abc", wantCode: http.StatusForbidden},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantCode: http.StatusForbidden},
		{name: "expired", header: "Bearer " + pair.AccessToken, advance: time.Minute, wantCode: http.StatusUnauthorized, wantHeader: expiredChallenge},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			now = now.Add(tt.advance)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantHeader, w.Header().Get("WWW-Authenticate"))
			if tt.wantCode == http.StatusOK {
				assert.JSONEq(t, `{"user":"user-1","guest":""}`, w.Body.String())
			}
			assert.Empty(t, w.Result().Cookies(), "bearer requests never get a guest cookie")
		})
	}
}

func TestGate_Guest(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := newSessions(t, &now)
	r := setupRouter(sessions, GateConfig{Guests: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, GuestCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)

	guestID, err := sessions.ValidateGuest(cookie.Value)
	require.NoError(t, err)

	// The same cookie keeps the same guest.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"","guest":"`+guestID+`"}`, w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	// A forged cookie is replaced by a new guest.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "forged"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Result().Cookies(), 1)
	assert.NotContains(t, w.Body.String(), guestID)
}

func TestGate_GuestsDisabled(t *testing.T) {
	now := time.Now()
	r := setupRouter(newSessions(t, &now), GateConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	assert.JSONEq(t, `{"statusCode":401,"message":"authorization required"}`, w.Body.String())
}

func TestGetOwner_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetOwner(c)
	assert.False(t, ok)

	c.Set(OwnerKey, models.Owner{UserID: "u"})
	owner, ok := GetOwner(c)
	assert.True(t, ok)
	assert.Equal(t, "u", owner.UserID)
}
