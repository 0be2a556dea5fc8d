package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/session"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionIDKey = "sid"
	identityKey  = "gatekeeper.identity"
)

// errRecoveryRejected marks recovery attempts that failed because of what
// the client sent, as opposed to an unavailable backend.
var errRecoveryRejected = errors.New("recovery rejected")

// Identity is the authenticated principal attached to a request.
type Identity struct {
	SessionID string
	UserID    int64
	Username  string
}

// UserFinder looks users up by their normalized username.
type UserFinder interface {
	FindUser(ctx context.Context, username string) (*models.User, error)
}

// Synchronizer keeps the server-side session record, the signed session
// cookie and the two recovery cookies consistent with each other.
type Synchronizer struct {
	store   session.Store
	users   UserFinder
	secret  []byte
	ttl     time.Duration
	cookies session.CookieOptions
	log     logging.Logger
	now     func() time.Time
}

func NewSynchronizer(store session.Store, users UserFinder, secret []byte, ttl time.Duration, cookies session.CookieOptions, log logging.Logger) *Synchronizer {
	return &Synchronizer{
		store:   store,
		users:   users,
		secret:  secret,
		ttl:     ttl,
		cookies: cookies,
		log:     log.With("component", "synchronizer"),
		now:     time.Now,
	}
}

// CurrentIdentity returns the identity Resolve or Establish attached to c.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// Establish starts a fresh session for user: a new record, its id in the
// session cookie and both recovery cookies with the same expiry.
func (s *Synchronizer) Establish(c *gin.Context, user *models.User) error {
	ctx := c.Request.Context()
	now := s.now()

	sid, err := session.GenerateID()
	if err != nil {
		return err
	}

	rec := session.Session{
		ID:        sid,
		LoggedIn:  true,
		UserID:    user.ID,
		Username:  user.UserName,
		CreatedAt: now,
	}
	rec.Touch(now, s.ttl)

	if err := s.store.Create(ctx, rec); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	token, err := auth.GenerateToken(sid, user.ID, user.UserName, s.secret, now, rec.ExpiresAt)
	if err != nil {
		_ = s.store.Delete(ctx, sid)
		return fmt.Errorf("sign recovery token: %w", err)
	}

	if err := s.bind(c, sid); err != nil {
		_ = s.store.Delete(ctx, sid)
		return err
	}
	session.SetRecoveryCookies(c.Writer, user.UserName, token, rec.ExpiresAt, s.cookies)

	c.Set(identityKey, Identity{SessionID: sid, UserID: user.ID, Username: user.UserName})
	s.log.Info(ctx, "session established", "user_id", user.ID)
	return nil
}

// Destroy ends the current session, if any, and clears every auth cookie.
// It is safe to call on anonymous requests.
func (s *Synchronizer) Destroy(c *gin.Context) error {
	ctx := c.Request.Context()
	sess := sessions.Default(c)

	if sid, ok := sess.Get(sessionIDKey).(string); ok && sid != "" {
		if err := s.store.Delete(ctx, sid); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "session delete failed", "error", err)
			return fmt.Errorf("delete session: %w", err)
		}
	}

	sess.Clear()
	opts := sessionCookieOptions(s.ttl, s.cookies)
	opts.MaxAge = -1
	sess.Options(opts)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	session.ClearRecoveryCookies(c.Writer, s.cookies)

	c.Set(identityKey, nil)
	return nil
}

// Resolve is the per-request middleware. A live session authenticates the
// request and slides its expiry; otherwise the recovery cookies are tried,
// and cleared when they do not check out.
func (s *Synchronizer) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := s.now()
		sess := sessions.Default(c)
		stale := false

		if sid, ok := sess.Get(sessionIDKey).(string); ok && sid != "" {
			rec, err := s.store.Get(ctx, sid)
			if err == nil && rec.Live(now) {
				// a concurrent logout surfaces here as not found
				err = s.slide(ctx, rec, now)
			}
			switch {
			case err == nil && rec.Live(now):
				if err := s.bind(c, sid); err != nil {
					s.log.Warn(ctx, "refreshing session cookie failed", "error", err)
				}
				s.noteTokenMismatch(c, sid)
				c.Set(identityKey, Identity{SessionID: rec.ID, UserID: rec.UserID, Username: rec.Username})
				c.Next()
				return
			case err != nil && !errors.Is(err, common.ErrorNotFound):
				// store unavailable: stay anonymous but keep every cookie
				s.log.Error(ctx, "session lookup failed", "error", err)
				c.Next()
				return
			}
			sess.Delete(sessionIDKey)
			stale = true
		}

		id, err := s.recover(c, now)
		switch {
		case err == nil:
			c.Set(identityKey, id)
			s.log.Info(ctx, "session recovered from cookies", "user_id", id.UserID)
			c.Next()
			return
		case errors.Is(err, errRecoveryRejected):
			s.log.Debug(ctx, "recovery cookies rejected", "error", err)
			session.ClearRecoveryCookies(c.Writer, s.cookies)
		case errors.Is(err, common.ErrorNotFound):
			// no recovery cookies
		default:
			s.log.Error(ctx, "session recovery failed", "error", err)
		}

		if stale {
			if err := sess.Save(); err != nil {
				s.log.Warn(ctx, "dropping stale session id failed", "error", err)
			}
		}
		c.Next()
	}
}

// recover re-binds the session named by a valid recovery token. It returns
// common.ErrorNotFound when the cookies are absent and errRecoveryRejected
// when they do not match a live session of an existing user.
func (s *Synchronizer) recover(c *gin.Context, now time.Time) (Identity, error) {
	ctx := c.Request.Context()

	username, token, ok := session.RecoveryCookies(c.Request)
	if !ok {
		return Identity{}, common.ErrorNotFound
	}

	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", errRecoveryRejected, err)
	}
	if claims.Username != username {
		return Identity{}, fmt.Errorf("%w: username cookie does not match token", errRecoveryRejected)
	}

	rec, err := s.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Identity{}, fmt.Errorf("%w: session gone", errRecoveryRejected)
		}
		return Identity{}, err
	}
	if !rec.Live(now) || rec.UserID != claims.UserID || rec.Username != claims.Username {
		return Identity{}, fmt.Errorf("%w: session does not belong to token", errRecoveryRejected)
	}

	user, err := s.users.FindUser(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.store.Delete(ctx, rec.ID)
			return Identity{}, fmt.Errorf("%w: user gone", errRecoveryRejected)
		}
		return Identity{}, err
	}
	if user.ID != claims.UserID {
		return Identity{}, fmt.Errorf("%w: user id changed", errRecoveryRejected)
	}

	if err := s.slide(ctx, rec, now); err != nil {
		return Identity{}, fmt.Errorf("%w: session gone", errRecoveryRejected)
	}
	token, err = auth.GenerateToken(rec.ID, rec.UserID, rec.Username, s.secret, now, rec.ExpiresAt)
	if err != nil {
		return Identity{}, fmt.Errorf("sign recovery token: %w", err)
	}
	if err := s.bind(c, rec.ID); err != nil {
		return Identity{}, err
	}
	session.SetRecoveryCookies(c.Writer, rec.Username, token, rec.ExpiresAt, s.cookies)

	return Identity{SessionID: rec.ID, UserID: rec.UserID, Username: rec.Username}, nil
}

// slide pushes the record's expiry forward. It returns common.ErrorNotFound
// when the record was deleted since it was read. Any other failed write only
// shortens the session and is logged.
func (s *Synchronizer) slide(ctx context.Context, rec *session.Session, now time.Time) error {
	rec.Touch(now, s.ttl)
	err := s.store.Update(ctx, *rec)
	if errors.Is(err, common.ErrorNotFound) {
		return err
	}
	if err != nil {
		s.log.Warn(ctx, "session touch failed", "error", err)
	}
	return nil
}

func (s *Synchronizer) bind(c *gin.Context, sid string) error {
	sess := sessions.Default(c)
	sess.Set(sessionIDKey, sid)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	return nil
}

// noteTokenMismatch logs when the recovery token names another session
// than the live one. The live session wins.
func (s *Synchronizer) noteTokenMismatch(c *gin.Context, sid string) {
	_, token, ok := session.RecoveryCookies(c.Request)
	if !ok {
		return
	}
	claims, err := auth.ParseToken(token, s.secret)
	if err != nil || claims.SessionID != sid {
		s.log.Debug(c.Request.Context(), "recovery token does not match live session")
	}
}

// sessionCookieOptions are the options for the signed session-id cookie.
func sessionCookieOptions(ttl time.Duration, opts session.CookieOptions) sessions.Options {
	path := opts.Path
	if path == "" {
		path = "/"
	}
	sameSite := opts.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return sessions.Options{
		Path:     path,
		Domain:   opts.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: sameSite,
	}
}
