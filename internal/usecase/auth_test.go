package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/floodline/portal-api/internal/core/domain"
	"github.com/floodline/portal-api/internal/infra/security"
	"github.com/floodline/portal-api/internal/repository"
)

type stubUserRepository struct {
	users       map[string]domain.User
	created     []domain.User
	createErr   error
	lastLoginID int64
	lastLoginAt time.Time
	updateErr   error
	listErr     error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{users: make(map[string]domain.User)}
}

func (r *stubUserRepository) Create(_ context.Context, user domain.User) (int64, error) {
	if r.createErr != nil {
		return 0, r.createErr
	}
	user.ID = int64(len(r.created) + 1)
	r.created = append(r.created, user)
	r.users[user.Username] = user
	return user.ID, nil
}

func (r *stubUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user.PasswordDigest = ""
	user.Salt = nil
	return &user, nil
}

func (r *stubUserRepository) GetByUsernameWithSecret(_ context.Context, username string) (*domain.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *stubUserRepository) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.lastLoginID = id
	r.lastLoginAt = at
	return nil
}

func (r *stubUserRepository) List(_ context.Context) ([]domain.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *stubUserRepository) add(t *testing.T, hasher *security.PasswordHasher, username, password string, admin bool) domain.User {
	t.Helper()
	digest, salt, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := domain.User{
		ID:             int64(len(r.users) + 1),
		Username:       username,
		DisplayName:    domain.DisplayNameFromUsername(username),
		PasswordDigest: digest,
		Salt:           &salt,
		IsAdmin:        admin,
	}
	r.users[username] = user
	return user
}

const testIterations = 1000

func newTestAuthService(t *testing.T, isDev bool) (*AuthService, *stubUserRepository) {
	t.Helper()
	hasher := security.NewPasswordHasher(testIterations)
	signer, err := security.NewSessionSigner("test-secret", 336*time.Hour)
	if err != nil {
		t.Fatalf("new session signer: %v", err)
	}
	repo := newStubUserRepository()
	return NewAuthService(repo, hasher, signer, isDev, nil), repo
}

func TestAuthenticateSuccess(t *testing.T) {
	svc, repo := newTestAuthService(t, false)
	repo.add(t, security.NewPasswordHasher(testIterations), "alice@example.org", "correct horse", false)

	user, err := svc.Authenticate(context.Background(), "Alice@Example.org", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Username != "alice@example.org" {
		t.Errorf("username = %q, want %q", user.Username, "alice@example.org")
	}
	if user.PasswordDigest != "" || user.Salt != nil {
		t.Error("secret material not scrubbed from authenticated user")
	}
}

func TestAuthenticateSameErrorForUnknownUserAndWrongPassword(t *testing.T) {
	svc, repo := newTestAuthService(t, false)
	repo.add(t, security.NewPasswordHasher(testIterations), "alice@example.org", "correct horse", false)

	_, unknownErr := svc.Authenticate(context.Background(), "nobody@example.org", "whatever")
	_, wrongErr := svc.Authenticate(context.Background(), "alice@example.org", "battery staple")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongErr)
	}
}

func TestAuthenticateEmptyInputs(t *testing.T) {
	svc, _ := newTestAuthService(t, false)

	for _, tc := range []struct{ username, password string }{
		{"", "password"},
		{"alice@example.org", ""},
		{"", ""},
	} {
		if _, err := svc.Authenticate(context.Background(), tc.username, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate(%q, %q) = %v, want ErrInvalidCredentials", tc.username, tc.password, err)
		}
	}
}

func TestAuthenticateLegacyDigest(t *testing.T) {
	svc, repo := newTestAuthService(t, false)
	repo.users["legacy@example.org"] = domain.User{
		ID:             7,
		Username:       "legacy@example.org",
		DisplayName:    "legacy",
		PasswordDigest: security.LegacyDigest("old password"),
		Salt:           nil,
	}

	if _, err := svc.Authenticate(context.Background(), "legacy@example.org", "old password"); err != nil {
		t.Fatalf("Authenticate legacy user: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "legacy@example.org", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong legacy password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	svc, repo := newTestAuthService(t, false)
	repo.add(t, security.NewPasswordHasher(testIterations), "alice@example.org", "correct horse", true)

	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return issued })

	result, err := svc.Login(context.Background(), "alice@example.org", "correct horse", "portal")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("empty session token")
	}
	if !result.User.IsAdmin {
		t.Error("admin flag lost in login result")
	}
	if result.Cookie.Name != domain.CookiePortal {
		t.Errorf("cookie name = %q, want %q", result.Cookie.Name, domain.CookiePortal)
	}
	wantExpiry := issued.Add(336 * time.Hour)
	if !result.Cookie.Expires.Equal(wantExpiry) {
		t.Errorf("cookie expires = %v, want %v", result.Cookie.Expires, wantExpiry)
	}
	if repo.lastLoginID != result.User.ID {
		t.Errorf("last login recorded for id %d, want %d", repo.lastLoginID, result.User.ID)
	}
}

func TestLoginSurvivesLastLoginFailure(t *testing.T) {
	svc, repo := newTestAuthService(t, false)
	repo.add(t, security.NewPasswordHasher(testIterations), "alice@example.org", "correct horse", false)
	repo.updateErr = errors.New("connection reset")

	if _, err := svc.Login(context.Background(), "alice@example.org", "correct horse", "portal"); err != nil {
		t.Fatalf("Login with failing last-login update: %v", err)
	}
}

func TestCookiePolicyByEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		isDev    bool
		origin   string
		wantName domain.CookieName
		wantSame http.SameSite
		wantSec  bool
	}{
		{"production portal", false, "portal", domain.CookiePortal, http.SameSiteNoneMode, true},
		{"production general", false, "mobile", domain.CookieGeneral, http.SameSiteNoneMode, true},
		{"production no origin", false, "", domain.CookieGeneral, http.SameSiteNoneMode, true},
		{"development portal", true, "portal", domain.CookiePortal, http.SameSiteLaxMode, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestAuthService(t, tc.isDev)
			repo.add(t, security.NewPasswordHasher(testIterations), "alice@example.org", "pw", false)

			result, err := svc.Login(context.Background(), "alice@example.org", "pw", tc.origin)
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			cookie := result.Cookie
			if cookie.Name != tc.wantName {
				t.Errorf("cookie name = %q, want %q", cookie.Name, tc.wantName)
			}
			if cookie.SameSite != tc.wantSame {
				t.Errorf("SameSite = %v, want %v", cookie.SameSite, tc.wantSame)
			}
			if cookie.Secure != tc.wantSec {
				t.Errorf("Secure = %v, want %v", cookie.Secure, tc.wantSec)
			}
			if !cookie.HTTPOnly {
				t.Error("HttpOnly must always be set")
			}
		})
	}
}

func TestExpiredCookie(t *testing.T) {
	svc, _ := newTestAuthService(t, false)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	cookie := svc.ExpiredCookie("portal")
	if cookie.Name != domain.CookiePortal {
		t.Errorf("cookie name = %q, want %q", cookie.Name, domain.CookiePortal)
	}
	if !cookie.Expires.Before(now) {
		t.Errorf("expired cookie expires at %v, not before %v", cookie.Expires, now)
	}
}

func TestCurrentUser(t *testing.T) {
	svc, repo := newTestAuthService(t, false)
	repo.add(t, security.NewPasswordHasher(testIterations), "alice@example.org", "pw", true)

	user, err := svc.CurrentUser(context.Background(), "alice@example.org")
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user.Username != "alice@example.org" || !user.IsAdmin {
		t.Errorf("unexpected current user: %+v", user)
	}

	if _, err := svc.CurrentUser(context.Background(), "nobody@example.org"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user error = %v, want ErrUserNotFound", err)
	}
}

func TestListUsers(t *testing.T) {
	svc, repo := newTestAuthService(t, false)
	hasher := security.NewPasswordHasher(testIterations)
	repo.add(t, hasher, "alice@example.org", "pw", true)
	repo.add(t, hasher, "bob@example.org", "pw", false)

	users, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
}
