package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/session"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, models.Response{StatusCode: status, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{StatusCode: status, Message: message})
}

// statusFor maps domain errors onto HTTP statuses. Unknown errors are 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, logic.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, logic.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, logic.ErrAliasTaken):
		return http.StatusConflict, "alias is already in use"
	case errors.Is(err, logic.ErrEmailTaken):
		return http.StatusConflict, "email is already registered"
	case errors.Is(err, logic.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, logic.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, logic.ErrNotVerified):
		return http.StatusForbidden, "email is not verified"
	case errors.Is(err, logic.ErrAlreadyVerified):
		return http.StatusConflict, "email is already verified"
	case errors.Is(err, session.ErrResendTooEarly):
		return http.StatusTooManyRequests, "current code is still valid"
	case errors.Is(err, logic.ErrCapacityExhausted):
		return http.StatusServiceUnavailable, "no short code available, try again later"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (a *App) abortWithError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	respondError(c, status, message)
}

// abortWithCodeError maps verification code failures, which differ from token failures.
func (a *App) abortWithCodeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrExpired):
		respondError(c, http.StatusGone, "verification code expired")
	case errors.Is(err, session.ErrInvalid):
		respondError(c, http.StatusBadRequest, "invalid verification code")
	default:
		a.abortWithError(c, err)
	}
}
