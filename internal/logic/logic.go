package logic

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rawen554/shortlinks/internal/codegen"
	"github.com/rawen554/shortlinks/internal/config"
	"github.com/rawen554/shortlinks/internal/mailer"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/store"
	"github.com/rawen554/shortlinks/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	ErrorJoinURL = "URL cannot be joined: %v"
)

// LinkCache drops cached destinations of deleted links.
type LinkCache interface {
	Invalidate(code string)
}

type Option func(*CoreLogic)

func WithSessions(sessions Sessions, m mailer.Mailer) Option {
	return func(cl *CoreLogic) {
		cl.sessions = sessions
		cl.mailer = m
	}
}

func WithCache(cache LinkCache) Option {
	return func(cl *CoreLogic) {
		cl.cache = cache
	}
}

func WithGenerator(g *codegen.Generator) Option {
	return func(cl *CoreLogic) {
		cl.codes = g
	}
}

func WithClock(now func() time.Time) Option {
	return func(cl *CoreLogic) {
		cl.now = now
	}
}

type CoreLogic struct {
	config      *config.ServerConfig
	store       Store
	codes       *codegen.Generator
	sessions    Sessions
	mailer      mailer.Mailer
	cache       LinkCache
	logger      *zap.SugaredLogger
	now         func() time.Time
	maxAttempts int
}

func NewCoreLogic(config *config.ServerConfig, store Store, logger *zap.SugaredLogger, opts ...Option) *CoreLogic {
	maxAttempts := config.CodeMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = codegen.DefaultMaxAttempts
	}
	cl := &CoreLogic{
		config:      config,
		store:       store,
		codes:       codegen.New(config.CodeLength),
		logger:      logger,
		now:         time.Now,
		maxAttempts: maxAttempts,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

func validation(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

func (cl *CoreLogic) newLink(code, destinationURL string, owner models.Owner) *models.Link {
	link := &models.Link{
		ID:             uuid.NewString(),
		ShortCode:      code,
		DestinationURL: destinationURL,
		CreatedAt:      cl.now().UTC(),
	}
	if owner.UserID != "" {
		link.OwnerID = owner.UserID
	} else {
		link.GuestID = owner.GuestID
	}
	return link
}

// CreateLink stores destinationURL under a fresh generated code, drawing again on collisions.
func (cl *CoreLogic) CreateLink(ctx context.Context, destinationURL string, owner models.Owner) (*models.Link, error) {
	if err := utils.ValidateURL(destinationURL); err != nil {
		return nil, validation(err)
	}
	if owner.IsZero() {
		return nil, ErrForbidden
	}

	for attempt := 1; attempt <= cl.maxAttempts; attempt++ {
		code, err := cl.codes.Generate()
		if err != nil {
			cl.logger.Error(err)
			return nil, err
		}
		if utils.IsReserved(code) {
			continue
		}

		link := cl.newLink(code, destinationURL, owner)
		err = cl.store.CreateLink(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, store.ErrCodeConflict) {
			err = fmt.Errorf("error saving link: %w", err)
			cl.logger.Error(err)
			return nil, err
		}
		cl.logger.Debugf("short code collision on attempt %d: %s", attempt, code)
	}

	cl.logger.Errorf("no free short code after %d attempts", cl.maxAttempts)
	return nil, ErrCapacityExhausted
}

// CreateLinkWithAlias stores destinationURL under a caller-chosen code. An existing code is never overwritten.
func (cl *CoreLogic) CreateLinkWithAlias(
	ctx context.Context,
	destinationURL string,
	alias string,
	owner models.Owner,
) (*models.Link, error) {
	if err := utils.ValidateURL(destinationURL); err != nil {
		return nil, validation(err)
	}
	if err := utils.ValidateAlias(alias); err != nil {
		return nil, validation(err)
	}
	if owner.IsZero() {
		return nil, ErrForbidden
	}

	link := cl.newLink(alias, destinationURL, owner)
	if err := cl.store.CreateLink(ctx, link); err != nil {
		if errors.Is(err, store.ErrCodeConflict) {
			return nil, ErrAliasTaken
		}
		err = fmt.Errorf("error saving aliased link: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	return link, nil
}

func (cl *CoreLogic) GetLink(ctx context.Context, shortCode string) (*models.Link, error) {
	link, err := cl.store.GetLinkByCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		err = fmt.Errorf("error getting link: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	return link, nil
}

// GetOwnedLink returns the link behind shortCode if owner may see its statistics.
func (cl *CoreLogic) GetOwnedLink(ctx context.Context, shortCode string, owner models.Owner) (*models.Link, error) {
	link, err := cl.GetLink(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if !owner.Owns(link) {
		return nil, ErrForbidden
	}
	return link, nil
}

// ListLinks pages through owner's links newest first. Pages past the end are empty.
func (cl *CoreLogic) ListLinks(ctx context.Context, owner models.Owner, page, pageSize int) (*models.LinkPage, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize == 0:
		pageSize = DefaultPageSize
	case pageSize < 1:
		pageSize = 1
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	limit, offset := store.Page(page, pageSize)
	links, total, err := cl.store.ListLinksByOwner(ctx, owner, limit, offset)
	if err != nil {
		err = fmt.Errorf("error listing links: %w", err)
		cl.logger.Error(err)
		return nil, err
	}

	return &models.LinkPage{
		Links:      links,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func (cl *CoreLogic) IncrementClicks(ctx context.Context, shortCode string) error {
	if err := cl.store.IncrementClicks(ctx, shortCode); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("error incrementing clicks: %w", err)
	}
	return nil
}

// DeleteLink removes the link whose id, or failing that short code, is ref.
func (cl *CoreLogic) DeleteLink(ctx context.Context, ref string, owner models.Owner) error {
	link, err := cl.store.GetLinkByID(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		link, err = cl.store.GetLinkByCode(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		err = fmt.Errorf("error getting link to delete: %w", err)
		cl.logger.Error(err)
		return err
	}

	if !owner.Owns(link) {
		return ErrForbidden
	}

	if err := cl.store.DeleteLink(ctx, link.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		err = fmt.Errorf("error deleting link: %w", err)
		cl.logger.Error(err)
		return err
	}
	if cl.cache != nil {
		cl.cache.Invalidate(link.ShortCode)
	}
	return nil
}

// ShortURL joins the redirect base URL and code.
func (cl *CoreLogic) ShortURL(code string) (string, error) {
	resultURL, err := url.JoinPath(cl.config.RedirectBaseURL, code)
	if err != nil {
		err = fmt.Errorf(ErrorJoinURL, err)
		cl.logger.Error(err)
		return "", err
	}
	return resultURL, nil
}

func (cl *CoreLogic) Ping(ctx context.Context) error {
	if err := cl.store.Ping(ctx); err != nil {
		err := fmt.Errorf("error opening connection to DB: %w", err)
		cl.logger.Error(err)
		return err
	}

	return nil
}

func (cl *CoreLogic) GetStats(ctx context.Context) (*models.Stats, error) {
	stats, err := cl.store.GetStats(ctx)
	if err != nil {
		err := fmt.Errorf("error getting service stats: %w", err)
		cl.logger.Error(err)

		return nil, err
	}

	return stats, nil
}
