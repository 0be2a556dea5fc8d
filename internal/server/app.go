// Package server wires the gatekeeper process together: configuration,
// database pool and migrations, password hasher, session store, the HTTP
// surface and the gRPC health endpoint, plus graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/credentials"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/session"
	"github.com/dmitrijs2005/gatekeeper/internal/server/web"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gatekeeper/internal/server/grpc"
)

const janitorSpec = "@every 1m"

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	sessions session.Store
	closers  []func() error
	auth     *services.AuthService
}

// NewApp opens every dependency named by c. Logs go to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(c.LogFormat, c.LogLevel, w)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN, c.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	hasher, err := credentials.New(c.PasswordHasher, c.LegacyHMACKey)
	if err != nil {
		app.Close()
		return nil, err
	}

	if err := app.initSessionStore(ctx); err != nil {
		app.Close()
		return nil, err
	}

	app.auth = services.NewAuthService(rm.Store(db), rm, hasher, logger)
	return app, nil
}

func (app *App) initSessionStore(ctx context.Context) error {
	switch app.config.SessionStore {
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     app.config.RedisAddr,
			Password: app.config.RedisPassword,
			DB:       app.config.RedisDB,
		})
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis init error: %w", err)
		}
		app.sessions = session.NewRedisStore(client)

	default:
		store := session.NewMemoryStore()
		if err := store.StartJanitor(janitorSpec, func(n int) {
			if n > 0 {
				app.logger.Debug(context.Background(), "expired sessions purged", "count", n)
			}
		}); err != nil {
			return err
		}
		app.closers = append(app.closers, func() error { store.Close(); return nil })
		app.sessions = store
	}
	return nil
}

// Handler builds the HTTP handler for this app.
func (app *App) Handler() (http.Handler, error) {
	gin.SetMode(app.config.GinMode)

	return web.NewRouter(web.Config{
		SecretKey:      []byte(app.config.SecretKey),
		SessionTTL:     app.config.SessionTTL,
		Cookies:        session.CookieOptions{Secure: app.config.CookieSecure},
		AllowedOrigins: app.config.CORSAllowedOrigins,
	}, app.auth, app.sessions, app.logger)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	handler, err := app.Handler()
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := web.NewHTTPServer(app.config.HTTPAddr, handler, app.logger).Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, 0,
		gs.Check{Name: "database", Ping: app.db.PingContext},
		gs.Check{Name: "sessions", Ping: app.sessions.Ping},
	)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then releases every dependency.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases dependencies in reverse order of acquisition.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
