// Package auth implements the token service: issuing and validating signed,
// expiring JWTs for the access, refresh, verify-email and reset-password
// flows, plus password hashing.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/contacthub/contacthub/internal/common"
)

// Kind restricts where a token is accepted: an access token must never be
// honored where a refresh or verify token is expected, and vice versa.
type Kind string

const (
	KindAccess        Kind = "access"
	KindRefresh       Kind = "refresh"
	KindVerifyEmail   Kind = "verify_email"
	KindResetPassword Kind = "reset_password"
)

// ClockSkewLeeway is applied to expiry checks only, never to single-use
// consumption checks.
const ClockSkewLeeway = 60 * time.Second

// Claims carries the standard registered claims plus the subject user ID and
// the token kind. The registered ID (jti) identifies single-use tokens in
// the consumption guard.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Kind   Kind   `json:"kind"`
}

// TokenService signs and validates tokens with a single HMAC key. The key is
// injected once at construction; there is no package-level signing state.
type TokenService struct {
	secret []byte
	leeway time.Duration
}

// NewTokenService returns a TokenService for the given HMAC secret.
// An empty secret is a configuration error, surfaced at startup.
func NewTokenService(secret []byte) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty signing key", common.ErrConfig)
	}
	return &TokenService{secret: secret, leeway: ClockSkewLeeway}, nil
}

// Issue signs a token of the given kind for userID, valid for the given
// duration. It returns the signed token and its unique ID (jti).
func (s *TokenService) Issue(userID string, kind Kind, validity time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID: userID,
		Kind:   kind,
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}

	return tokenString, jti, nil
}

// Validate parses tokenString and checks signature integrity, expiry (with
// leeway) and the expected kind. On success it returns the claims, so callers
// get both the subject user ID and the jti for consumption tracking.
//
// Failure modes: common.ErrTokenExpired, common.ErrBadSignature,
// common.ErrWrongTokenKind, or common.ErrInvalidToken for anything else
// malformed.
func (s *TokenService) Validate(tokenString string, expected Kind) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(s.leeway))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, common.ErrBadSignature
		default:
			return nil, common.ErrInvalidToken
		}
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	// every issued token carries exp and jti; consumers rely on both
	if claims.ExpiresAt == nil || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	if claims.Kind != expected {
		return nil, common.ErrWrongTokenKind
	}

	return claims, nil
}
