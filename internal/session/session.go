// Package session issues access, refresh and guest tokens and runs the
// e-mail verification code flow.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/utils"
	"go.uber.org/zap"
)

const issuer = "shortlinks"

var (
	ErrExpired = errors.New("expired")
	ErrInvalid = errors.New("invalid")
	// ErrResendTooEarly is returned while the current verification code is still live.
	ErrResendTooEarly = errors.New("verification code is still valid")
	// ErrNotFound is returned by Store implementations for missing records.
	ErrNotFound = errors.New("session record not found")
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindGuest   Kind = "guest"
)

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Kind   Kind   `json:"kind"`
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type RefreshRecord struct {
	ExpiresAt time.Time
	ID        string
	UserID    string
}

type Verification struct {
	ExpiresAt time.Time
	Email     string
	Code      string
	Attempts  int
}

// Store keeps the server side of sessions: live refresh token ids and pending codes.
type Store interface {
	SaveRefresh(ctx context.Context, rec RefreshRecord) error
	// ConsumeRefresh atomically removes and returns the record; a second call reports ErrNotFound.
	ConsumeRefresh(ctx context.Context, id string) (*RefreshRecord, error)
	// SaveVerification replaces any code for v.Email and keeps it until v.ExpiresAt+retain.
	SaveVerification(ctx context.Context, v Verification, retain time.Duration) error
	GetVerification(ctx context.Context, email string) (*Verification, error)
	// IncrementAttempts returns the failed attempt count after the increment.
	IncrementAttempts(ctx context.Context, email string) (int, error)
	// DeleteVerification reports ErrNotFound when there was nothing to delete.
	DeleteVerification(ctx context.Context, email string) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}

type Config struct {
	Secret          string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	GuestTTL        time.Duration
	VerificationTTL time.Duration
	// VerificationRetention keeps expired codes around so late attempts report ErrExpired.
	VerificationRetention time.Duration
	MaxVerifyAttempts     int
}

const (
	DefaultAccessTTL             = 15 * time.Minute
	DefaultRefreshTTL            = 7 * 24 * time.Hour
	DefaultGuestTTL              = 30 * 24 * time.Hour
	DefaultVerificationTTL       = 30 * time.Second
	DefaultVerificationRetention = 24 * time.Hour
	DefaultMaxVerifyAttempts     = 5
)

func withDefault(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	store  Store
	now    func() time.Time
	logger *zap.SugaredLogger
	secret []byte
	cfg    Config
}

func NewService(cfg Config, store Store, logger *zap.SugaredLogger, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is empty")
	}
	withDefault(&cfg.AccessTTL, DefaultAccessTTL)
	withDefault(&cfg.RefreshTTL, DefaultRefreshTTL)
	withDefault(&cfg.GuestTTL, DefaultGuestTTL)
	withDefault(&cfg.VerificationTTL, DefaultVerificationTTL)
	withDefault(&cfg.VerificationRetention, DefaultVerificationRetention)
	if cfg.MaxVerifyAttempts <= 0 {
		cfg.MaxVerifyAttempts = DefaultMaxVerifyAttempts
	}
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: logger,
		secret: []byte(cfg.Secret),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) VerificationTTL() time.Duration {
	return s.cfg.VerificationTTL
}

func (s *Service) GuestTTL() time.Duration {
	return s.cfg.GuestTTL
}

func (s *Service) sign(id, userID string, kind Kind, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
		Kind:   kind,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("error signing %s token: %w", kind, err)
	}
	return signed, nil
}

// parse checks signature, kind and expiry against the service clock.
func (s *Service) parse(tokenString string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.Kind != kind || claims.Issuer != issuer || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalid
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	return claims, nil
}

// Issue opens a session for userID that lasts RefreshTTL.
func (s *Service) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	return s.issue(ctx, userID, s.now().Add(s.cfg.RefreshTTL))
}

// issue signs a pair whose refresh token ends at sessionEnd. The access token
// never outlives the session.
func (s *Service) issue(ctx context.Context, userID string, sessionEnd time.Time) (*TokenPair, error) {
	accessExp := s.now().Add(s.cfg.AccessTTL)
	if accessExp.After(sessionEnd) {
		accessExp = sessionEnd
	}
	access, err := s.sign(uuid.NewString(), userID, KindAccess, accessExp)
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refresh, err := s.sign(jti, userID, KindRefresh, sessionEnd)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveRefresh(ctx, RefreshRecord{ID: jti, UserID: userID, ExpiresAt: sessionEnd}); err != nil {
		return nil, fmt.Errorf("error saving refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccess returns the user id carried by a live access token.
func (s *Service) ValidateAccess(token string) (string, error) {
	claims, err := s.parse(token, KindAccess)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// Refresh consumes refreshToken and issues a new pair. Each refresh token works
// once, and rotation keeps the expiry of the session it started from.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, string, error) {
	claims, err := s.parse(refreshToken, KindRefresh)
	if err != nil {
		return nil, "", err
	}

	rec, err := s.store.ConsumeRefresh(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalid
		}
		return nil, "", fmt.Errorf("error consuming refresh token: %w", err)
	}
	if rec.UserID != claims.UserID {
		return nil, "", ErrInvalid
	}

	pair, err := s.issue(ctx, claims.UserID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, "", err
	}
	return pair, claims.UserID, nil
}

// Revoke ends the session behind refreshToken. Expired or already used tokens are not an error.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parse(refreshToken, KindRefresh)
	if errors.Is(err, ErrExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.store.ConsumeRefresh(ctx, claims.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// StartVerification issues a fresh code for email, replacing any previous one.
func (s *Service) StartVerification(ctx context.Context, email string) (*Verification, error) {
	code, err := utils.GenerateDigits(models.VerificationCodeDigits)
	if err != nil {
		return nil, fmt.Errorf("error generating verification code: %w", err)
	}
	v := Verification{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().Add(s.cfg.VerificationTTL),
	}
	if err := s.store.SaveVerification(ctx, v, s.cfg.VerificationRetention); err != nil {
		return nil, fmt.Errorf("error saving verification code: %w", err)
	}
	return &v, nil
}

// ResendVerification replaces the code for email once the current one has expired.
func (s *Service) ResendVerification(ctx context.Context, email string) (*Verification, error) {
	current, err := s.store.GetVerification(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("error reading verification code: %w", err)
	}
	if current != nil && s.now().Before(current.ExpiresAt) && current.Attempts < s.cfg.MaxVerifyAttempts {
		return nil, ErrResendTooEarly
	}
	return s.StartVerification(ctx, email)
}

// Verify consumes the code for email. Every guess counts against
// MaxVerifyAttempts before it is compared, so parallel guesses cannot
// overrun the limit.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	v, err := s.store.GetVerification(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalid
		}
		return fmt.Errorf("error reading verification code: %w", err)
	}
	if !s.now().Before(v.ExpiresAt) {
		return ErrExpired
	}

	attempts, err := s.store.IncrementAttempts(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalid
		}
		return fmt.Errorf("error counting verification attempt: %w", err)
	}
	if attempts > s.cfg.MaxVerifyAttempts {
		return ErrInvalid
	}

	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) != 1 {
		if attempts == s.cfg.MaxVerifyAttempts {
			s.logger.Infof("verification code for %s burned after %d attempts", email, attempts)
		}
		return ErrInvalid
	}

	if err := s.store.DeleteVerification(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalid
		}
		return fmt.Errorf("error consuming verification code: %w", err)
	}
	return nil
}

// IssueGuest starts an anonymous session and returns its token and id.
func (s *Service) IssueGuest() (string, string, error) {
	guestID := uuid.NewString()
	token, err := s.sign(uuid.NewString(), guestID, KindGuest, s.now().Add(s.cfg.GuestTTL))
	if err != nil {
		return "", "", err
	}
	return token, guestID, nil
}

func (s *Service) ValidateGuest(token string) (string, error) {
	claims, err := s.parse(token, KindGuest)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// PurgeExpired drops refresh records and verification codes past their lifetime.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error purging sessions: %w", err)
	}
	return n, nil
}
