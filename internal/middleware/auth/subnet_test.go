package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewSubnetChecker(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		subnet   string
		realIP   string
		wantCode int
	}{
		{name: "inside", subnet: "192.168.1.0/24", realIP: "192.168.1.10", wantCode: http.StatusOK},
		{name: "outside", subnet: "192.168.1.0/24", realIP: "10.0.0.1", wantCode: http.StatusForbidden},
		{name: "no header", subnet: "192.168.1.0/24", wantCode: http.StatusForbidden},
		{name: "bad header", subnet: "192.168.1.0/24", realIP: "localhost", wantCode: http.StatusForbidden},
		{name: "no subnet", subnet: "", realIP: "192.168.1.10", wantCode: http.StatusForbidden},
		{name: "bad subnet", subnet: "192.168.1.0", realIP: "192.168.1.10", wantCode: http.StatusForbidden},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/stats", NewSubnetChecker(tt.subnet, zap.NewNop().Sugar()), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
