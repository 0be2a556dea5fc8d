// Package web is the HTTP surface: login, signup, the availability probe
// and the dashboard, with the session/cookie synchronizer in front of them.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templates embed.FS

// Config holds the HTTP-layer settings.
type Config struct {
	SecretKey      []byte
	SessionTTL     time.Duration
	Cookies        session.CookieOptions
	AllowedOrigins []string
}

// NewRouter wires middleware and routes into a gin engine.
func NewRouter(cfg Config, authn Authenticator, store session.Store, log logging.Logger) (*gin.Engine, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, fmt.Errorf("web: empty secret key")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = common.DefaultSessionTTL
	}

	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	log = log.With("module", "http_server")

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(gin.Recovery(), RequestID(), RequestLogger(log))

	if len(cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		corsConfig.ExposeHeaders = []string{requestIDHeader}
		router.Use(cors.New(corsConfig))
	}

	cookieKey, err := auth.DeriveKey(cfg.SecretKey, auth.PurposeSessionCookie)
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}
	tokenKey, err := auth.DeriveKey(cfg.SecretKey, auth.PurposeRecoveryToken)
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}

	cookieStore := cookie.NewStore(cookieKey)
	cookieStore.Options(sessionCookieOptions(cfg.SessionTTL, cfg.Cookies))
	router.Use(sessions.Sessions(common.SessionCookieName, cookieStore))

	sync := NewSynchronizer(store, authn, tokenKey, cfg.SessionTTL, cfg.Cookies, log)
	h := &handlers{auth: authn, sync: sync, log: log}

	router.GET("/health", h.health)

	site := router.Group("/", sync.Resolve())
	{
		site.GET("/", h.index)
		site.GET("/login", h.loginPage)
		site.POST("/login", h.login)
		site.GET("/signup", h.signupPage)
		site.POST("/signup", h.signup)
		site.POST("/check_availability", h.checkAvailability)
		site.GET("/dashboard", h.dashboard)
		site.POST("/dashboard", h.dashboard)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router, nil
}
