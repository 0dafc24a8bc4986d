package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpiredToken indicates the session token's expiry has passed.
	ErrExpiredToken = errors.New("session token expired")
	// ErrInvalidToken indicates the token is malformed or its signature does
	// not verify.
	ErrInvalidToken = errors.New("invalid session token")
)

// SessionClaims are the claims encoded into a session token. There is no
// persisted representation; the signed token is the entire session.
type SessionClaims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

// SessionSigner signs and verifies session tokens with a shared symmetric
// secret (HS256).
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionSigner constructs a signer. The secret must be non-empty; ttl
// bounds token lifetime from issue time.
func NewSessionSigner(secret string, ttl time.Duration) (*SessionSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured session lifetime.
func (s *SessionSigner) TTL() time.Duration {
	return s.ttl
}

// Sign issues a token for the subject. The returned expiry mirrors the exp
// claim and feeds the cookie Expires attribute.
func (s *SessionSigner) Sign(userID int64, username string, isAdmin bool, issuedAt time.Time) (string, time.Time, error) {
	issuedAt = issuedAt.UTC()
	expiresAt := issuedAt.Add(s.ttl)

	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse verifies signature and expiry, returning the claims. Expiry and
// signature failures map to distinct sentinel errors so callers can respond
// differently to a stale session versus a forged one.
func (s *SessionSigner) Parse(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if parsed == nil || !parsed.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
