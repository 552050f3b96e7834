package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rawen554/shortlinks/internal/app"
	"github.com/rawen554/shortlinks/internal/cache"
	"github.com/rawen554/shortlinks/internal/config"
	"github.com/rawen554/shortlinks/internal/janitor"
	"github.com/rawen554/shortlinks/internal/logger"
	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/middleware/ratelimit"
	"github.com/rawen554/shortlinks/internal/resolver"
)

const (
	timeoutServerShutdown = 5 * time.Second
	readHeaderTimeout     = 5 * time.Second
	limiterIdle           = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	conf, err := config.ParseFlags()
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	logger, err := logger.NewLogger(conf.LogLevel)
	if err != nil {
		return fmt.Errorf("cannot build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := NewStore(ctx, conf, logger.Named("store"))
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Errorf("error closing store: %v", err)
		}
	}()

	sessionStore, err := NewSessionStore(ctx, conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			logger.Errorf("error closing session store: %v", err)
		}
	}()

	sessions, err := NewSessionService(conf, sessionStore, logger.Named("sessions"))
	if err != nil {
		return err
	}

	var linkCache *cache.Cache
	if conf.CacheEnabled {
		linkCache, err = cache.New(conf.CacheSize, conf.CacheTTL)
		if err != nil {
			return err
		}
		defer linkCache.Close()
	}

	coreLogic := logic.NewCoreLogic(conf, storage, logger.Named("logic"),
		logic.WithSessions(sessions, NewMailer(conf, logger.Named("mailer"))),
		logic.WithCache(linkCache),
	)
	linkResolver := resolver.New(coreLogic, linkCache, logger.Named("resolver"))
	limiter := ratelimit.New(conf.RateLimit, conf.RateBurst)

	cleaner, err := janitor.New(conf.JanitorSchedule, logger.Named("janitor"),
		janitor.Task{Name: "sessions", Run: sessions.PurgeExpired},
		janitor.Task{Name: "rate_limiter", Run: func(context.Context) (int, error) {
			return limiter.Cleanup(limiterIdle), nil
		}},
	)
	if err != nil {
		return err
	}
	cleaner.Start()

	a := app.NewApp(conf, coreLogic, sessions, logger,
		app.WithResolver(linkResolver),
		app.WithRateLimiter(limiter),
	)
	r, err := a.SetupRouter()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              conf.RunAddr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", conf.RunAddr)
		if conf.EnableHTTPS {
			if err := app.CreateCertificates(conf.TLSCertPath, conf.TLSKeyPath); err != nil {
				serveErr <- err
				return
			}
			serveErr <- srv.ListenAndServeTLS(conf.TLSCertPath, conf.TLSKeyPath)
			return
		}
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve returned err: %w", err)
		}
	case <-ctx.Done():
		logger.Info("got termination signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeoutServerShutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("an error occurred during server shutdown: %v", err)
	}
	if err := cleaner.Stop(shutdownCtx); err != nil {
		logger.Error(err)
	}
	linkResolver.Wait()

	logger.Info("server stopped")
	return nil
}
