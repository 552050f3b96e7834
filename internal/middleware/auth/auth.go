// Package auth resolves who is calling: an account through a bearer access
// token, or a guest through a signed session cookie.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/session"
	"go.uber.org/zap"
)

const (
	OwnerKey         = "owner"
	GuestCookieName  = "guest-session"
	bearerPrefix     = "Bearer "
	expiredChallenge = `Bearer error="invalid_token", error_description="token expired"`
)

type Sessions interface {
	ValidateAccess(token string) (string, error)
	IssueGuest() (string, string, error)
	ValidateGuest(token string) (string, error)
	GuestTTL() time.Duration
}

type GateConfig struct {
	// Guests lets requests without a bearer token act as a cookie-bound guest.
	Guests       bool
	SecureCookie bool
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// ok is false when the header is missing; present but malformed headers yield an empty token.
func BearerToken(c *gin.Context) (token string, ok bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", true
	}
	return strings.TrimSpace(header[len(bearerPrefix):]), true
}

// AbortTokenError answers 401 for expired tokens, so clients refresh, and 403 otherwise.
func AbortTokenError(c *gin.Context, err error) {
	if errors.Is(err, session.ErrExpired) {
		c.Header("WWW-Authenticate", expiredChallenge)
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			StatusCode: http.StatusUnauthorized,
			Message:    "token expired",
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
		StatusCode: http.StatusForbidden,
		Message:    "invalid token",
	})
}

func Gate(sessions Sessions, cfg GateConfig, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := BearerToken(c); ok {
			userID, err := sessions.ValidateAccess(token)
			if err != nil {
				AbortTokenError(c, err)
				return
			}
			c.Set(OwnerKey, models.Owner{UserID: userID})
			c.Next()
			return
		}

		if !cfg.Guests {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				StatusCode: http.StatusUnauthorized,
				Message:    "authorization required",
			})
			return
		}

		guestID, err := guestFromCookie(c, sessions)
		if err != nil {
			token, id, err := sessions.IssueGuest()
			if err != nil {
				logger.Errorf("error issuing guest session: %v", err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(GuestCookieName, token, int(sessions.GuestTTL().Seconds()), "/", "", cfg.SecureCookie, true)
			guestID = id
		}

		c.Set(OwnerKey, models.Owner{GuestID: guestID})
		c.Next()
	}
}

func guestFromCookie(c *gin.Context, sessions Sessions) (string, error) {
	cookie, err := c.Cookie(GuestCookieName)
	if err != nil {
		return "", err
	}
	return sessions.ValidateGuest(cookie)
}

// GetOwner returns the requester stored by Gate.
func GetOwner(c *gin.Context) (models.Owner, bool) {
	v, ok := c.Get(OwnerKey)
	if !ok {
		return models.Owner{}, false
	}
	owner, ok := v.(models.Owner)
	return owner, ok
}
