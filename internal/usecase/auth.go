package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/floodline/portal-api/internal/core/domain"
	"github.com/floodline/portal-api/internal/core/port"
	"github.com/floodline/portal-api/internal/infra/logger"
	"github.com/floodline/portal-api/internal/infra/security"
	"github.com/floodline/portal-api/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the username or password is incorrect.
	// Unknown usernames and wrong passwords map to the same error so callers
	// cannot probe for account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates a lookup miss outside the authentication path.
	ErrUserNotFound = errors.New("user not found")
)

// CookiePolicy carries the session cookie attributes for a response. Derived
// per request from the interface origin and the environment mode; never
// persisted.
type CookiePolicy struct {
	Name     domain.CookieName
	SameSite http.SameSite
	Secure   bool
	HTTPOnly bool
	Expires  time.Time
}

// LoginResult is what a successful login produces: the public user view, the
// signed session token, and the cookie policy to apply to the response.
type LoginResult struct {
	User   domain.PublicUser
	Token  string
	Cookie CookiePolicy
}

// AuthService verifies credentials and issues interface-scoped sessions.
type AuthService struct {
	users  port.UserRepository
	hasher *security.PasswordHasher
	signer *security.SessionSigner
	isDev  bool
	log    *zap.Logger
	now    func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users port.UserRepository, hasher *security.PasswordHasher, signer *security.SessionSigner, isDev bool, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:  users,
		hasher: hasher,
		signer: signer,
		isDev:  isDev,
		log:    log,
		now:    time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Authenticate validates a username/password pair against the store. The
// returned record has its secret material scrubbed.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = domain.NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsernameWithSecret(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	salt := ""
	if user.Salt != nil {
		salt = *user.Salt
	}

	if !s.hasher.Verify(password, user.PasswordDigest, salt) {
		return nil, ErrInvalidCredentials
	}

	user.PasswordDigest = ""
	user.Salt = nil

	return user, nil
}

// Login authenticates the credentials and issues a session token with the
// cookie policy for the requesting interface. The last-login timestamp update
// is not atomic with the credential read; losing that race at worst leaves a
// stale timestamp.
func (s *AuthService) Login(ctx context.Context, username, password, interfaceOrigin string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	token, expiresAt, err := s.signer.Sign(user.ID, user.Username, user.IsAdmin, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, issuedAt); err != nil {
		s.log.Warn("failed to update last login",
			zap.String("username", logger.MaskUsername(user.Username)),
			zap.Error(err),
		)
	}

	return &LoginResult{
		User:   user.PublicView(),
		Token:  token,
		Cookie: s.cookiePolicy(interfaceOrigin, expiresAt),
	}, nil
}

// ExpiredCookie builds the cookie policy for logout: same attributes as a
// login cookie but already expired, instructing the client to drop it. The
// token itself stays valid until its natural expiry; there is no server-side
// invalidation.
func (s *AuthService) ExpiredCookie(interfaceOrigin string) CookiePolicy {
	return s.cookiePolicy(interfaceOrigin, s.now().UTC().Add(-time.Second))
}

// CurrentUser returns the public view of the user a session resolves to.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (domain.PublicUser, error) {
	user, err := s.users.GetByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PublicUser{}, ErrUserNotFound
		}
		return domain.PublicUser{}, fmt.Errorf("lookup current user: %w", err)
	}

	return user.PublicView(), nil
}

// ListUsers returns the public projection of every user.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	public := make([]domain.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.PublicView())
	}

	return public, nil
}

func (s *AuthService) cookiePolicy(interfaceOrigin string, expires time.Time) CookiePolicy {
	policy := CookiePolicy{
		Name:     domain.ResolveCookieName(interfaceOrigin),
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
		HTTPOnly: true,
		Expires:  expires,
	}

	if s.isDev {
		policy.SameSite = http.SameSiteLaxMode
		policy.Secure = false
	}

	return policy
}
