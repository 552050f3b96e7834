package logic

import (
	"context"

	"github.com/rawen554/shortlinks/internal/models"
)

//go:generate mockgen -destination=../store/mocks/store.go -package=mocks github.com/rawen554/shortlinks/internal/logic Store

// Store persists links and users. Backends report store.ErrNotFound,
// store.ErrCodeConflict and store.ErrEmailTaken.
type Store interface {
	// CreateLink inserts link unless its short code is already taken.
	CreateLink(ctx context.Context, link *models.Link) error
	GetLinkByCode(ctx context.Context, code string) (*models.Link, error)
	GetLinkByID(ctx context.Context, id string) (*models.Link, error)
	// ListLinksByOwner returns one page newest first together with the owner's total.
	ListLinksByOwner(ctx context.Context, owner models.Owner, limit, offset int) ([]models.Link, int, error)
	IncrementClicks(ctx context.Context, code string) error
	DeleteLink(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user *models.User, passwordHash string) error
	// UpdatePendingUser replaces name and password of a user who never verified.
	UpdatePendingUser(ctx context.Context, user *models.User, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetPasswordHash(ctx context.Context, userID string) (string, error)
	MarkUserVerified(ctx context.Context, userID string) error

	GetStats(ctx context.Context) (*models.Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
