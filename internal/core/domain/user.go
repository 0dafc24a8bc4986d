package domain

import (
	"strings"
	"time"
)

// User mirrors the persisted representation in the portal.users table.
// PasswordDigest and Salt are excluded from default repository projections and
// only populated by the credential-verification read path.
type User struct {
	ID             int64
	Username       string
	DisplayName    string
	PasswordDigest string
	Salt           *string
	IsAdmin        bool
	LastLogin      *time.Time
}

// PublicView strips the secret material from a user record.
func (u User) PublicView() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		IsAdmin:     u.IsAdmin,
	}
}

// PublicUser is the caller-facing projection of a user record.
type PublicUser struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

// NormalizeUsername lowercases a username for case-insensitive matching.
// Usernames are stored lowercase; every lookup and insert goes through this.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// DisplayNameFromUsername derives a default display name from the local part
// of an email-style username.
func DisplayNameFromUsername(username string) string {
	if at := strings.IndexByte(username, '@'); at > 0 {
		return username[:at]
	}
	return username
}
