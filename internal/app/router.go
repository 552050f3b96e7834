package app

import (
	"errors"
	"fmt"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/rawen554/shortlinks/internal/middleware/auth"
	"github.com/rawen554/shortlinks/internal/middleware/compress"
	ginLogger "github.com/rawen554/shortlinks/internal/middleware/logger"
)

const pingPath = "/ping"

func (a *App) SetupRouter() (*gin.Engine, error) {
	if a.sessions == nil {
		return nil, errors.New("error initializing router: session service is required")
	}

	r := gin.New()
	if err := r.SetTrustedProxies(a.config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("error initializing router: %w", err)
	}
	r.Use(gin.Recovery())
	if a.config.ProfileMode {
		pprof.Register(r)
	}

	r.Use(ginLogger.Logger(a.logger.Named("middleware")))
	r.Use(compress.Compress(a.logger.Named("compress")))

	r.GET("/:id", a.RedirectToOriginal)
	r.GET(pingPath, a.Ping)

	authAPI := r.Group("/auth")
	{
		authAPI.POST("/signup", a.SignUp)
		authAPI.POST("/signin", a.SignIn)
		authAPI.GET("/refresh", a.Refresh)
		authAPI.POST("/verifyCode", a.VerifyCode)
		authAPI.POST("/verify", a.ResendCode)
		authAPI.POST("/logout", a.SignOut)
	}

	gate := auth.Gate(a.sessions, auth.GateConfig{
		Guests:       a.config.GuestSessions,
		SecureCookie: a.config.EnableHTTPS,
	}, a.logger.Named("auth_middleware"))

	create := []gin.HandlerFunc{}
	if a.limiter != nil {
		create = append(create, a.limiter.Limit())
	}

	urlAPI := r.Group("/url", gate)
	{
		urlAPI.POST("/create", append(create, a.ShortenURL)...)
		urlAPI.POST("/alias", append(create, a.ShortenWithAlias)...)
		urlAPI.GET("/history", a.GetHistory)
		urlAPI.GET("/:name", a.GetURL)
		urlAPI.DELETE("/:id", a.DeleteURL)
	}

	internalAPI := r.Group("/api/internal", auth.NewSubnetChecker(a.config.TrustedSubnet, a.logger.Named("subnet_checker")))
	{
		internalAPI.GET("/stats", a.GetStats)
	}

	return r, nil
}
