package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rawen554/shortlinks/internal/middleware/auth"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/session"
)

func (a *App) SignUp(c *gin.Context) {
	var req models.SignUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "request body must be JSON with name, email and password")
		return
	}

	res, err := a.logic.SignUp(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}

func (a *App) SignIn(c *gin.Context) {
	var req models.SignInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "request body must be JSON with email and password")
		return
	}

	res, err := a.logic.SignIn(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (a *App) VerifyCode(c *gin.Context) {
	var req models.VerifyCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "request body must be JSON with email and code")
		return
	}

	res, err := a.logic.VerifyCode(c.Request.Context(), req.Email, string(req.Code))
	if err != nil {
		a.abortWithCodeError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (a *App) ResendCode(c *gin.Context) {
	var req models.ResendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "request body must be JSON with email")
		return
	}

	res, err := a.logic.ResendCode(c.Request.Context(), req.Email)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// Refresh rotates the pair behind the bearer refresh token. Any token failure is a 401: the client must sign in again.
func (a *App) Refresh(c *gin.Context) {
	token, ok := auth.BearerToken(c)
	if !ok || token == "" {
		c.Header("WWW-Authenticate", "Bearer")
		respondError(c, http.StatusUnauthorized, "refresh token required")
		return
	}

	res, err := a.logic.RefreshSession(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrInvalid) || errors.Is(err, session.ErrExpired) {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			respondError(c, http.StatusUnauthorized, "session expired, sign in again")
			return
		}
		a.abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (a *App) SignOut(c *gin.Context) {
	token, ok := auth.BearerToken(c)
	if !ok || token == "" {
		c.Header("WWW-Authenticate", "Bearer")
		respondError(c, http.StatusUnauthorized, "refresh token required")
		return
	}

	if err := a.logic.SignOut(c.Request.Context(), token); err != nil {
		if errors.Is(err, session.ErrInvalid) {
			auth.AbortTokenError(c, err)
			return
		}
		a.abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, "signed out")
}
