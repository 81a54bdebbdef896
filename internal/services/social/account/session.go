package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/louisbranch/bloomy/internal/platform/clock"
	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
)

const (
	sessionIssuer     = "bloomy"
	defaultSessionTTL = 7 * 24 * time.Hour
	minSecretLength   = 32
)

// SessionClaims are the validated contents of a session token.
type SessionClaims struct {
	UserID    string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Sessions issues and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewSessions builds a token issuer. ttl <= 0 uses seven days.
func NewSessions(secret []byte, ttl time.Duration, c clock.Clock) (*Sessions, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if c == nil {
		c = clock.Real()
	}
	return &Sessions{secret: secret, ttl: ttl, clock: c}, nil
}

// Issue signs a token for user.
func (s *Sessions) Issue(user storage.User) (string, error) {
	now := s.clock.Now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Username: user.Username,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Verify checks signature, issuer, and expiry against the injected clock.
func (s *Sessions) Verify(token string) (SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return SessionClaims{}, apperrors.New(apperrors.CodeNotAuthenticated, "session token is required")
	}
	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return SessionClaims{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return SessionClaims{}, apperrors.New(apperrors.CodeSessionInvalid, "session subject is required")
	}
	claims := SessionClaims{
		UserID:    parsed.Subject,
		Username:  parsed.Username,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.Wrap(apperrors.CodeSessionInvalid, "session expired", err)
	}
	return apperrors.Wrap(apperrors.CodeSessionInvalid, "session token is invalid", err)
}
