package common

import "time"

// Cookie names shared by the HTTP layer and the session package.
const (
	SessionCookieName      = "gk_session"
	UsernameCookieName     = "username"
	SessionTokenCookieName = "session_token"
)

// DefaultSessionTTL is the inactivity window after which a session and its
// recovery cookies expire.
const DefaultSessionTTL = 30 * 24 * time.Hour
