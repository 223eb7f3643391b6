// Package blogit is a blog-listing REST backend built with Go and Echo.
// It stores blog links and users in SQLite, authenticates writes with
// bearer tokens, and serves aggregate statistics over the blog list.
package blogit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/it-innoo/blogit/logger"
)

// App is the central blogit application. It wires together the store,
// cache, token issuer, handlers and middleware.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store
	Cache  *BlogCache
	Tokens *TokenIssuer
	Log    *logger.Logger

	loginLimiter  *LoginLimiter
	registry      *prometheus.Registry
	customRoutes  []func(*App)
	externalStore bool
	ready         bool
}

// New creates a new blogit App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:   cfg,
		Echo:     e,
		registry: prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = logger.NewNop()
	}
	return a
}

// Setup opens the store and installs middleware and routes. It is called by
// Start and may be called directly to serve the App from a test server.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if a.Config.Secret == "" {
		return fmt.Errorf("blogit: Secret is required")
	}

	if a.Store == nil {
		path := a.Config.DatabaseFile()
		a.Log.Info("opening database", "path", path, "env", a.Config.Env)
		store, err := NewStore(path)
		if err != nil {
			return fmt.Errorf("blogit: init store: %w", err)
		}
		a.Store = store
	}

	a.Cache = NewBlogCache(a.Store, a.Config.BlogCacheTTL)
	a.Tokens = NewTokenIssuer(a.Config.Secret, a.Config.TokenTTL)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)

	if err := a.registerMetrics(); err != nil {
		return fmt.Errorf("blogit: register metrics: %w", err)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets the App up and serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Log.Info("server running", "addr", a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run starts the server and shuts it down gracefully when ctx is done.
func (a *App) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- a.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("blogit: shutdown: %w", err)
	}
	return <-errc
}

func (a *App) registerMetrics() error {
	return a.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "blogit",
		Name:      "blogs_stored",
		Help:      "Number of blogs in the database.",
	}, func() float64 {
		n, err := a.Store.CountBlogs(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	}))
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/healthz", handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: a.registry,
	}))

	api := e.Group("/api")

	api.GET("/blogs", a.handleListBlogs)
	api.POST("/blogs", a.handleCreateBlog, a.requireAuth)
	api.GET("/blogs/stats", a.handleBlogStats)
	api.GET("/blogs/feed.xml", a.handleFeed)
	api.GET("/blogs/:id", a.handleGetBlog)
	api.PUT("/blogs/:id", a.handleUpdateBlog)
	api.DELETE("/blogs/:id", a.handleDeleteBlog, a.requireAuth)

	api.GET("/users", a.handleListUsers)
	api.POST("/users", a.handleCreateUser)

	api.POST("/login", a.handleLogin)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil && !a.externalStore {
		return a.Store.Close()
	}
	return nil
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
