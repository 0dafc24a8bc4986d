package domain

// InterfaceNameHeader is the request header carrying the client interface tag.
const InterfaceNameHeader = "X-Interface-Name"

// InterfaceOrigin identifies which client application issued a request. It
// drives session cookie naming only, never authorization.
type InterfaceOrigin string

const (
	InterfacePortal InterfaceOrigin = "portal"
)

// CookieName is the name of the session cookie issued for an interface.
type CookieName string

const (
	CookiePortal  CookieName = "portal-token"
	CookieGeneral CookieName = "general-token"
)

// ResolveCookieName maps an interface origin header value to a cookie name.
// Unknown or missing origins fall back to the general cookie; that fallback is
// the defined behavior, not an error.
func ResolveCookieName(origin string) CookieName {
	switch InterfaceOrigin(origin) {
	case InterfacePortal:
		return CookiePortal
	default:
		return CookieGeneral
	}
}
