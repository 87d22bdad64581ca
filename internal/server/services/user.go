// Package services contains server-side business logic. This file implements
// UserService, which drives the whole account lifecycle: registration with
// email confirmation, throttled login, stateless refresh rotation, password
// reset, and avatar updates.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/contacthub/contacthub/internal/common"
	"github.com/contacthub/contacthub/internal/logging"
	"github.com/contacthub/contacthub/internal/server/auth"
	"github.com/contacthub/contacthub/internal/server/avatars"
	"github.com/contacthub/contacthub/internal/server/cache"
	"github.com/contacthub/contacthub/internal/server/config"
	"github.com/contacthub/contacthub/internal/server/mail"
	"github.com/contacthub/contacthub/internal/server/models"
	"github.com/contacthub/contacthub/internal/server/repositories/repomanager"
)

const (
	confirmEmailPath = "/api/auth/confirmed_email/"
	resetPath        = "/api/auth/confirm_reset_password/"

	loginAttemptPrefix = "login:"

	mailSendTimeout = 30 * time.Second
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides authentication-related operations:
//   - Register / ConfirmEmail / ResendVerification: signup with confirmation
//   - Login: verify credentials under a lockout counter and mint tokens
//   - Refresh / Logout: rotate or retire refresh tokens via the guard
//   - RequestPasswordReset / ConfirmPasswordReset
//   - UpdateAvatar / GetUser: profile operations
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	guard       cache.Guard
	sender      mail.Sender
	avatars     avatars.Store
	logger      logging.Logger

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	verifyTokenValidityDuration  time.Duration
	resetTokenValidityDuration   time.Duration
	loginMaxAttempts             int64
	loginAttemptWindow           time.Duration
	publicBaseURL                string
}

// NewUserService constructs a UserService from its collaborators and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService,
	guard cache.Guard, sender mail.Sender, store avatars.Store, logger logging.Logger,
	cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		guard:       guard,
		sender:      sender,
		avatars:     store,
		logger:      logger,

		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		verifyTokenValidityDuration:  cfg.VerifyTokenValidityDuration,
		resetTokenValidityDuration:   cfg.ResetTokenValidityDuration,
		loginMaxAttempts:             int64(cfg.LoginMaxAttempts),
		loginAttemptWindow:           cfg.LoginAttemptWindow,
		publicBaseURL:                cfg.PublicBaseURL,
	}
}

// Register creates an unverified user and mails the confirmation link.
// Duplicate emails surface as common.ErrDuplicateEmail.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{Username: username, Email: email, PasswordHash: hash, Role: models.RoleUser}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.sendVerificationMail(ctx, u)
	return u, nil
}

// ConfirmEmail consumes a verification token and marks the account verified.
// Each token grants verification to exactly one caller; everyone else gets
// common.ErrTokenConsumed.
func (s *UserService) ConfirmEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(token, auth.KindVerifyEmail)
	if err != nil {
		return err
	}

	// Claim the jti before touching the user row so a replayed link can
	// never race past the winner.
	won, err := s.guard.MarkConsumed(ctx, claims.ID, consumptionTTL(claims.ExpiresAt.Time))
	if err != nil {
		return common.ErrorInternal
	}
	if !won {
		return common.ErrTokenConsumed
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrorInternal
	}
	if user.Verified {
		return common.ErrTokenConsumed
	}

	if err := s.repomanager.Users(s.db).SetVerified(ctx, user.ID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// ResendVerification mails a fresh confirmation link. It reports success even
// for unknown or already-verified addresses, so the endpoint cannot be used
// to probe which emails are registered.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}
	if user.Verified {
		return nil
	}
	s.sendVerificationMail(ctx, user)
	return nil
}

// Login verifies credentials and mints a token pair. Attempts are counted per
// email: once the lockout threshold is reached, every further call within the
// window fails with common.ErrTooManyAttempts even when the password is right.
// Bad email and bad password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	attemptKey := loginAttemptPrefix + email

	// The counter is read here and incremented only on failure. Concurrent
	// requests arriving at threshold-1 can each pass this check, so the
	// lockout may trip one or two attempts late under load. Successful
	// logins are never charged.
	count, err := s.guard.Attempts(ctx, attemptKey)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if count >= s.loginMaxAttempts {
		return nil, common.ErrTooManyAttempts
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.failAttempt(ctx, attemptKey)
		}
		return nil, common.ErrorInternal
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, s.failAttempt(ctx, attemptKey)
	}
	if !user.Verified {
		return nil, common.ErrAccountUnverified
	}

	return s.generateTokenPair(user.ID)
}

// Refresh validates a refresh token, retires its jti, and returns a fresh pair.
// A token presented twice is treated as stolen: the second caller gets
// common.ErrInvalidToken and the replay is logged.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken, auth.KindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	won, err := s.guard.MarkConsumed(ctx, claims.ID, consumptionTTL(claims.ExpiresAt.Time))
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !won {
		s.logger.Warn(ctx, "refresh token replay detected", "user_id", claims.UserID)
		return nil, common.ErrInvalidToken
	}

	return s.generateTokenPair(claims.UserID)
}

// Authenticate resolves a bearer access token to a user ID.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	claims, err := s.tokens.Validate(accessToken, auth.KindAccess)
	if err != nil {
		return "", common.ErrorUnauthorized
	}
	return claims.UserID, nil
}

// Logout retires the refresh token so it can never be rotated again.
// Retiring an already-retired token is a no-op.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Validate(refreshToken, auth.KindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			// nothing left to retire
			return nil
		}
		return common.ErrInvalidToken
	}
	if _, err := s.guard.MarkConsumed(ctx, claims.ID, consumptionTTL(claims.ExpiresAt.Time)); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// RequestPasswordReset mails a reset link to a verified account. Unknown
// addresses are reported as success, unverified ones as
// common.ErrAccountUnverified.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}
	if !user.Verified {
		return common.ErrAccountUnverified
	}

	token, _, err := s.tokens.Issue(user.ID, auth.KindResetPassword, s.resetTokenValidityDuration)
	if err != nil {
		return common.ErrorInternal
	}
	link := s.publicBaseURL + resetPath + token
	s.sendAsync(func(ctx context.Context) error {
		return s.sender.SendPasswordReset(ctx, user.Email, user.Username, link)
	})
	return nil
}

// ConfirmPasswordReset consumes a reset token and stores the new password.
// Like verification tokens, each reset token works exactly once.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.Validate(token, auth.KindResetPassword)
	if err != nil {
		return err
	}

	won, err := s.guard.MarkConsumed(ctx, claims.ID, consumptionTTL(claims.ExpiresAt.Time))
	if err != nil {
		return common.ErrorInternal
	}
	if !won {
		return common.ErrTokenConsumed
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, claims.UserID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrorInternal
	}
	return nil
}

// GetUser returns the user record for the given ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// UpdateAvatar uploads the image to object storage and records its URL on the
// user. Returns the public URL of the new avatar.
func (s *UserService) UpdateAvatar(ctx context.Context, userID, contentType string, body io.Reader) (string, error) {
	url, err := s.avatars.Upload(ctx, userID, contentType, body)
	if err != nil {
		return "", fmt.Errorf("error uploading avatar: %w", err)
	}
	if err := s.repomanager.Users(s.db).UpdateAvatar(ctx, userID, url); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", common.ErrorInternal
	}
	return url, nil
}

// --- helpers below ---

// consumptionTTL returns how long a token's jti must stay marked as consumed.
// Expiry validation tolerates ClockSkewLeeway, so a token is still accepted
// slightly past exp; the guard entry has to outlive that grace period or a
// replay inside it would find the mark already gone.
func consumptionTTL(exp time.Time) time.Duration {
	return time.Until(exp) + auth.ClockSkewLeeway
}

// failAttempt charges one failed login to the counter and returns the
// credential error the caller should surface.
func (s *UserService) failAttempt(ctx context.Context, key string) error {
	if _, err := s.guard.IncrAttempt(ctx, key, s.loginAttemptWindow); err != nil {
		return common.ErrorInternal
	}
	return common.ErrInvalidCredentials
}

func (s *UserService) sendVerificationMail(ctx context.Context, user *models.User) {
	token, _, err := s.tokens.Issue(user.ID, auth.KindVerifyEmail, s.verifyTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "issuing verification token", "error", err)
		return
	}
	link := s.publicBaseURL + confirmEmailPath + token
	s.sendAsync(func(ctx context.Context) error {
		return s.sender.SendVerification(ctx, user.Email, user.Username, link)
	})
}

// sendAsync fires the mail in the background; the triggering request never
// waits on SMTP and never fails because of it.
func (s *UserService) sendAsync(send func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Error(ctx, "sending mail", "error", err)
		}
	}()
}

func (s *UserService) generateTokenPair(userID string) (*TokenPair, error) {
	access, _, err := s.tokens.Issue(userID, auth.KindAccess, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, _, err := s.tokens.Issue(userID, auth.KindRefresh, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
