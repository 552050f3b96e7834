package main

import (
	"context"
	"fmt"

	"github.com/rawen554/shortlinks/internal/config"
	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/mailer"
	"github.com/rawen554/shortlinks/internal/session"
	sessionRedis "github.com/rawen554/shortlinks/internal/session/redis"
	"github.com/rawen554/shortlinks/internal/store/memory"
	"github.com/rawen554/shortlinks/internal/store/postgres"
	"github.com/rawen554/shortlinks/internal/store/sqlite"
	"go.uber.org/zap"
)

const redisKeyPrefix = "shortlinks:"

// NewStore picks postgres, then sqlite, then the in-memory store.
func NewStore(ctx context.Context, conf *config.ServerConfig, logger *zap.SugaredLogger) (logic.Store, error) {
	switch {
	case conf.DatabaseDSN != "":
		store, err := postgres.NewPostgresStore(ctx, conf.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error creating postgres store: %w", err)
		}
		return store, nil
	case conf.SQLitePath != "":
		store, err := sqlite.NewSQLiteStore(ctx, conf.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("error creating sqlite store: %w", err)
		}
		return store, nil
	default:
		logger.Warn("no database configured, links are kept in memory and lost on restart")
		return memory.NewMemoryStorage(), nil
	}
}

func NewSessionStore(ctx context.Context, conf *config.ServerConfig) (session.Store, error) {
	if conf.RedisAddr == "" {
		return session.NewMemoryStore(), nil
	}
	rdb, err := sessionRedis.NewClient(ctx, conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
	if err != nil {
		return nil, err
	}
	return sessionRedis.New(rdb, redisKeyPrefix), nil
}

// NewMailer sends over SMTP when a host is configured and logs codes otherwise.
func NewMailer(conf *config.ServerConfig, logger *zap.SugaredLogger) mailer.Mailer {
	if conf.SMTPHost == "" {
		logger.Warn("SMTP is not configured, verification codes are only logged")
		return mailer.NewLogMailer(logger)
	}
	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     conf.SMTPHost,
		Port:     conf.SMTPPort,
		Username: conf.SMTPUsername,
		Password: conf.SMTPPassword,
		From:     conf.SMTPFrom,
	}, logger)
}

func NewSessionService(
	conf *config.ServerConfig,
	store session.Store,
	logger *zap.SugaredLogger,
) (*session.Service, error) {
	return session.NewService(session.Config{
		Secret:          conf.Secret,
		AccessTTL:       conf.AccessTTL,
		RefreshTTL:      conf.RefreshTTL,
		GuestTTL:        conf.GuestTTL,
		VerificationTTL: conf.VerificationTTL,
	}, store, logger)
}
