package app

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/store"
	"github.com/rawen554/shortlinks/internal/store/mocks"
	"github.com/stretchr/testify/assert"
)

var errStoreDown = errors.New("connection refused")

func Test_RedirectWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := mocks.NewMockStore(ctrl)
	gomock.InOrder(
		s.EXPECT().GetLinkByCode(gomock.Any(), "any").Return(&models.Link{ShortCode: "any", DestinationURL: "https://ya.ru/link"}, nil),
		s.EXPECT().IncrementClicks(gomock.Any(), "any").Return(errStoreDown),
	)
	s.EXPECT().GetLinkByCode(gomock.Any(), "broken").Return(nil, errStoreDown)

	env := newTestEnv(t, testConfig, s)

	tests := []struct {
		name         string
		path         string
		wantCode     int
		wantLocation string
	}{
		{name: "click count failure still redirects", path: "/any", wantCode: http.StatusTemporaryRedirect, wantLocation: "https://ya.ru/link"},
		{name: "store failure", path: "/broken", wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, nil)
			env.resolver.Wait()

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
		})
	}
}

func Test_ShortenURLWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := mocks.NewMockStore(ctrl)
	env := newTestEnv(t, testConfig, s)

	t.Run("every code taken", func(t *testing.T) {
		s.EXPECT().CreateLink(gomock.Any(), gomock.Any()).Return(store.ErrCodeConflict).Times(testConfig.CodeMaxAttempts)

		w := env.do(t, http.MethodPost, "/url/create", models.ShortenReq{URL: "https://ya.ru"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, http.StatusServiceUnavailable, decodeError(t, w).StatusCode)
	})

	t.Run("store failure", func(t *testing.T) {
		s.EXPECT().CreateLink(gomock.Any(), gomock.Any()).Return(errStoreDown)

		w := env.do(t, http.MethodPost, "/url/create", models.ShortenReq{URL: "https://ya.ru"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal server error", decodeError(t, w).Message)
	})

	t.Run("created after a collision", func(t *testing.T) {
		gomock.InOrder(
			s.EXPECT().CreateLink(gomock.Any(), gomock.Any()).Return(store.ErrCodeConflict),
			s.EXPECT().CreateLink(gomock.Any(), gomock.Any()).Return(nil),
		)

		w := env.do(t, http.MethodPost, "/url/create", models.ShortenReq{URL: "https://ya.ru"})
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func Test_HistoryWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := mocks.NewMockStore(ctrl)
	env := newTestEnv(t, testConfig, s)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.EXPECT().ListLinksByOwner(gomock.Any(), gomock.Any(), 100, 0).Return([]models.Link{
		{ID: "id-1", ShortCode: "abc1234", DestinationURL: "https://ya.ru", ClickCount: 4, CreatedAt: created},
	}, 101, nil)

	w := env.do(t, http.MethodGet, "/url/history?pageSize=500", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	res := decodeData[models.HistoryRes](t, w)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, []models.ShortenedURL{{
		ID:        "id-1",
		ShortCode: "abc1234",
		LongURL:   "https://ya.ru",
		ShortURL:  "http://localhost:8080/abc1234",
		Clicks:    4,
		CreatedAt: created,
	}}, res.URLs)
}

func Test_PingWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := mocks.NewMockStore(ctrl)
	gomock.InOrder(
		s.EXPECT().Ping(gomock.Any()).Return(nil),
		s.EXPECT().Ping(gomock.Any()).Return(errStoreDown),
	)
	env := newTestEnv(t, testConfig, s)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, pingPath, nil).Code)
	assert.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, pingPath, nil).Code)
}

func Test_StatsWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := mocks.NewMockStore(ctrl)
	s.EXPECT().GetStats(gomock.Any()).Return(nil, errStoreDown)
	env := newTestEnv(t, testConfig, s)

	w := env.do(t, http.MethodGet, "/api/internal/stats", nil, withHeader("X-Real-IP", "10.0.0.1"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
