package splotch

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stjepangolemac/splotch/imaging"
	"github.com/stjepangolemac/splotch/views"
)

// SiteConfig holds all configuration for a splotch site.
type SiteConfig struct {
	Title       string   `mapstructure:"title"`
	Author      string   `mapstructure:"author"`
	Bio         string   `mapstructure:"bio"`
	Description string   `mapstructure:"description"`
	URL         string   `mapstructure:"url"`     // canonical, no trailing slash
	Twitter     string   `mapstructure:"twitter"` // handle without @
	Keywords    []string `mapstructure:"keywords"`
	Lang        string   `mapstructure:"lang"`
	TrackingID  string   `mapstructure:"tracking_id"`

	ThemeColor      string `mapstructure:"theme_color"`
	BackgroundColor string `mapstructure:"background_color"`

	ContentDir string `mapstructure:"content_dir"`
	AssetsDir  string `mapstructure:"assets_dir"` // avatar and favicon sources
	StaticDir  string `mapstructure:"static_dir"` // copied verbatim into the output
	OutputDir  string `mapstructure:"output_dir"`

	Addr         string `mapstructure:"addr"`
	DatabasePath string `mapstructure:"database_path"`

	AnalyticsEnabled       bool   `mapstructure:"analytics_enabled"`
	AnalyticsDatabasePath  string `mapstructure:"analytics_database_path"`
	AnalyticsRetentionDays int    `mapstructure:"analytics_retention_days"`

	AdminPassword string `mapstructure:"admin_password"` // empty disables /admin
	SessionSecret string `mapstructure:"session_secret"`
	CookieSecure  bool   `mapstructure:"cookie_secure"`

	PostCacheTTL   time.Duration `mapstructure:"post_cache_ttl"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	Workers        int           `mapstructure:"workers"`
}

func (c *SiteConfig) setDefaults() {
	if c.Title == "" {
		c.Title = "Splotch"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Lang == "" {
		c.Lang = "en"
	}
	if c.ThemeColor == "" {
		c.ThemeColor = "#d43900"
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = "#ffffff"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content/blog"
	}
	if c.AssetsDir == "" {
		c.AssetsDir = "content/assets"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.OutputDir == "" {
		c.OutputDir = "public"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/splotch.db"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsRetentionDays <= 0 {
		c.AnalyticsRetentionDays = 365
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// AdminEnabled reports whether the admin area is served.
func (c SiteConfig) AdminEnabled() bool {
	return c.AdminPassword != ""
}

func (c SiteConfig) validate() error {
	if c.AdminEnabled() && len(c.SessionSecret) < 32 {
		return errors.New("session_secret must be at least 32 characters when admin_password is set")
	}
	return nil
}

func (c SiteConfig) site(avatar imaging.Variant) views.Site {
	return views.Site{
		Title:       c.Title,
		Description: c.Description,
		Author:      c.Author,
		Bio:         c.Bio,
		URL:         c.URL,
		Twitter:     strings.TrimPrefix(c.Twitter, "@"),
		Lang:        c.Lang,
		TrackingID:  c.TrackingID,
		Keywords:    c.Keywords,
		Avatar:      avatar,
		Analytics:   c.AnalyticsEnabled,
		ThemeColor:  c.ThemeColor,
	}
}

// LoadConfig reads file (splotch.yaml when empty) and SPLOTCH_* environment
// variables, after loading a .env file if one exists. A missing config file
// is not an error.
func LoadConfig(file string) (SiteConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return SiteConfig{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("splotch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("splotch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return SiteConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.setDefaults()
	return cfg, cfg.validate()
}

// Unmarshal only sees env-only keys once they are bound.
var configKeys = []string{
	"title", "author", "bio", "description", "url", "twitter", "keywords",
	"lang", "tracking_id", "theme_color", "background_color",
	"content_dir", "assets_dir", "static_dir", "output_dir",
	"addr", "database_path",
	"analytics_enabled", "analytics_database_path", "analytics_retention_days",
	"admin_password", "session_secret", "cookie_secure",
	"post_cache_ttl", "metrics_enabled", "workers",
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithFs replaces the source and output filesystems, which default to the
// working directory and OutputDir on disk.
func WithFs(src, out afero.Fs) Option {
	return func(a *App) {
		a.src = src
		a.out = out
	}
}

// WithCustomRoutes registers additional routes before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
