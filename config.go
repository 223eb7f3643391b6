package blogit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/it-innoo/blogit/logger"
)

// Config holds all configuration for a blogit server.
type Config struct {
	Env  string `yaml:"env"`  // "production" selects DatabasePath, anything else TestDatabasePath
	Name string `yaml:"name"` // Site name used in the feed (default "blogit")
	URL  string `yaml:"url"`  // Public base URL (default "http://localhost:3003")

	Addr             string `yaml:"addr"`               // Listen address (default ":3003")
	DatabasePath     string `yaml:"database_path"`      // SQLite path (default "data/blogit.db")
	TestDatabasePath string `yaml:"test_database_path"` // SQLite path outside production (default "data/blogit_test.db")

	Secret   string        `yaml:"secret"`    // Required: token signing secret
	TokenTTL time.Duration `yaml:"token_ttl"` // Token lifetime, 0 or less means tokens never expire

	LogMode     string   `yaml:"log_mode"`     // "production" for JSON logs
	CORSOrigins []string `yaml:"cors_origins"` // Allowed origins (default ["*"])

	BlogCacheTTL  time.Duration `yaml:"blog_cache_ttl"` // Blog list cache TTL (default 1min)
	RateLimit     float64       `yaml:"rate_limit"`     // API requests per second per IP, negative disables (default 20)
	RateBurst     int           `yaml:"rate_burst"`     // API burst per IP (default 40)
	LoginAttempts int           `yaml:"login_attempts"` // Failed logins allowed per window (default 5)
	LoginWindow   time.Duration `yaml:"login_window"`   // Failed login window (default 1min)
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Name == "" {
		c.Name = "blogit"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3003"
	}
	if c.Addr == "" {
		c.Addr = ":3003"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blogit.db"
	}
	if c.TestDatabasePath == "" {
		c.TestDatabasePath = "data/blogit_test.db"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.BlogCacheTTL <= 0 {
		c.BlogCacheTTL = time.Minute
	}
	if c.TokenTTL < 0 {
		c.TokenTTL = 0
	}
	if c.RateLimit == 0 {
		c.RateLimit = 20
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 40
	}
	if c.LoginAttempts <= 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow <= 0 {
		c.LoginWindow = time.Minute
	}
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	c.setDefaults()
	return c
}

// IsProduction reports whether the server runs against the production
// database.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DatabaseFile returns the database the server should open.
func (c Config) DatabaseFile() string {
	if c.IsProduction() {
		return c.DatabasePath
	}
	return c.TestDatabasePath
}

// LoadConfig reads the optional YAML file at path and then applies
// environment overrides. Missing values are left for setDefaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("blogit: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("blogit: parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BLOGIT_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("TEST_DATABASE_PATH"); v != "" {
		c.TestDatabasePath = v
	}
	if v := os.Getenv("SECRET"); v != "" {
		c.Secret = v
	}
	if v := os.Getenv("LOG_MODE"); v != "" {
		c.LogMode = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("blogit: TOKEN_TTL: %w", err)
		}
		c.TokenTTL = d
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("blogit: RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger replaces the default development logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithStore makes the App use an already opened store instead of opening
// Config.DatabaseFile. The App then does not close it.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
		a.externalStore = true
	}
}
