package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/session"
	"github.com/rawen554/shortlinks/internal/store"
	"github.com/rawen554/shortlinks/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const maxNameLength = 100

// Sessions is the part of session.Service account flows rely on.
type Sessions interface {
	Issue(ctx context.Context, userID string) (*session.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, string, error)
	Revoke(ctx context.Context, refreshToken string) error
	StartVerification(ctx context.Context, email string) (*session.Verification, error)
	ResendVerification(ctx context.Context, email string) (*session.Verification, error)
	Verify(ctx context.Context, email, code string) error
	VerificationTTL() time.Duration
}

var errNoSessions = errors.New("accounts are not configured")

func (cl *CoreLogic) sessionsReady() error {
	if cl.sessions == nil || cl.mailer == nil {
		cl.logger.Error(errNoSessions)
		return errNoSessions
	}
	return nil
}

func (cl *CoreLogic) sendCode(ctx context.Context, v *session.Verification) error {
	if err := cl.mailer.SendVerificationCode(ctx, v.Email, v.Code, cl.sessions.VerificationTTL()); err != nil {
		err = fmt.Errorf("error sending verification code: %w", err)
		cl.logger.Error(err)
		return err
	}
	return nil
}

func (cl *CoreLogic) verificationRes(v *session.Verification) *models.VerificationRes {
	return &models.VerificationRes{
		Email:     v.Email,
		ExpiresIn: int(v.ExpiresAt.Sub(cl.now()).Round(time.Second).Seconds()),
	}
}

// SignUp registers an unverified account and mails a verification code.
// Signing up again before verifying only resends the code, and only with the
// password the account was created with. The stored password never changes.
func (cl *CoreLogic) SignUp(ctx context.Context, req models.SignUpReq) (*models.VerificationRes, error) {
	if err := cl.sessionsReady(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, validation(errors.New("name is required and must be at most 100 characters"))
	}
	email, err := utils.NormalizeEmail(req.Email)
	if err != nil {
		return nil, validation(err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, validation(err)
	}

	existing, err := cl.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified:
		return nil, ErrEmailTaken
	case err == nil:
		return cl.resumeSignUp(ctx, existing, name, req.Password)
	case !errors.Is(err, store.ErrNotFound):
		err = fmt.Errorf("error looking up user: %w", err)
		cl.logger.Error(err)
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, validation(err)
		}
		err = fmt.Errorf("error hashing password: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	user := &models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: cl.now().UTC(),
	}
	if err := cl.store.CreateUser(ctx, user, string(hash)); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		err = fmt.Errorf("error creating user: %w", err)
		cl.logger.Error(err)
		return nil, err
	}

	v, err := cl.sessions.StartVerification(ctx, email)
	if err != nil {
		cl.logger.Error(err)
		return nil, err
	}
	if err := cl.sendCode(ctx, v); err != nil {
		return nil, err
	}
	return cl.verificationRes(v), nil
}

// resumeSignUp handles a repeated signup for a pending account. A different
// password reads as a taken e-mail, and a live code cannot be replaced.
func (cl *CoreLogic) resumeSignUp(
	ctx context.Context,
	user *models.User,
	name, password string,
) (*models.VerificationRes, error) {
	hash, err := cl.store.GetPasswordHash(ctx, user.ID)
	if err != nil {
		err = fmt.Errorf("error reading credentials: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrEmailTaken
	}

	v, err := cl.sessions.ResendVerification(ctx, user.Email)
	if err != nil {
		if !errors.Is(err, session.ErrResendTooEarly) {
			cl.logger.Error(err)
		}
		return nil, err
	}

	if name != user.Name {
		user.Name = name
		if err := cl.store.UpdatePendingUser(ctx, user, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrEmailTaken
			}
			err = fmt.Errorf("error updating pending user: %w", err)
			cl.logger.Error(err)
			return nil, err
		}
	}

	if err := cl.sendCode(ctx, v); err != nil {
		return nil, err
	}
	return cl.verificationRes(v), nil
}

func (cl *CoreLogic) authResponse(user *models.User, pair *session.TokenPair) *models.AuthResponse {
	return &models.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         *user,
	}
}

// VerifyCode completes signup and opens a session.
func (cl *CoreLogic) VerifyCode(ctx context.Context, email, code string) (*models.AuthResponse, error) {
	if err := cl.sessionsReady(); err != nil {
		return nil, err
	}
	email, err := utils.NormalizeEmail(email)
	if err != nil {
		return nil, validation(err)
	}

	user, err := cl.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, session.ErrInvalid
		}
		err = fmt.Errorf("error looking up user: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	if user.Verified {
		return nil, ErrAlreadyVerified
	}

	if err := cl.sessions.Verify(ctx, email, code); err != nil {
		if !errors.Is(err, session.ErrInvalid) && !errors.Is(err, session.ErrExpired) {
			cl.logger.Error(err)
		}
		return nil, err
	}

	if err := cl.store.MarkUserVerified(ctx, user.ID); err != nil {
		err = fmt.Errorf("error marking user verified: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	user.Verified = true

	pair, err := cl.sessions.Issue(ctx, user.ID)
	if err != nil {
		cl.logger.Error(err)
		return nil, err
	}
	return cl.authResponse(user, pair), nil
}

// ResendCode mails a new code once the previous one expired.
func (cl *CoreLogic) ResendCode(ctx context.Context, email string) (*models.VerificationRes, error) {
	if err := cl.sessionsReady(); err != nil {
		return nil, err
	}
	email, err := utils.NormalizeEmail(email)
	if err != nil {
		return nil, validation(err)
	}

	user, err := cl.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		err = fmt.Errorf("error looking up user: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	if user.Verified {
		return nil, ErrAlreadyVerified
	}

	v, err := cl.sessions.ResendVerification(ctx, email)
	if err != nil {
		if !errors.Is(err, session.ErrResendTooEarly) {
			cl.logger.Error(err)
		}
		return nil, err
	}
	if err := cl.sendCode(ctx, v); err != nil {
		return nil, err
	}
	return cl.verificationRes(v), nil
}

func (cl *CoreLogic) SignIn(ctx context.Context, req models.SignInReq) (*models.AuthResponse, error) {
	if err := cl.sessionsReady(); err != nil {
		return nil, err
	}
	email, err := utils.NormalizeEmail(req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := cl.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		err = fmt.Errorf("error looking up user: %w", err)
		cl.logger.Error(err)
		return nil, err
	}

	hash, err := cl.store.GetPasswordHash(ctx, user.ID)
	if err != nil {
		err = fmt.Errorf("error reading credentials: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}

	pair, err := cl.sessions.Issue(ctx, user.ID)
	if err != nil {
		cl.logger.Error(err)
		return nil, err
	}
	return cl.authResponse(user, pair), nil
}

// RefreshSession rotates the token pair behind refreshToken.
func (cl *CoreLogic) RefreshSession(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	if err := cl.sessionsReady(); err != nil {
		return nil, err
	}

	pair, userID, err := cl.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, session.ErrInvalid) && !errors.Is(err, session.ErrExpired) {
			cl.logger.Error(err)
		}
		return nil, err
	}

	user, err := cl.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, session.ErrInvalid
		}
		err = fmt.Errorf("error looking up user: %w", err)
		cl.logger.Error(err)
		return nil, err
	}
	return cl.authResponse(user, pair), nil
}

func (cl *CoreLogic) SignOut(ctx context.Context, refreshToken string) error {
	if err := cl.sessionsReady(); err != nil {
		return err
	}
	if err := cl.sessions.Revoke(ctx, refreshToken); err != nil {
		if !errors.Is(err, session.ErrInvalid) {
			cl.logger.Error(err)
		}
		return err
	}
	return nil
}
