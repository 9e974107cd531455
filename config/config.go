// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultKeywords are the additive names scanned for when KEYWORDS is unset.
var DefaultKeywords = []string{
	"polyvinyl alcohol",
	"poly(vinyl alcohol)",
	"polyvinyl acetate",
	"vinyl alcohol polymer",
	"pvoh",
	"pval",
	"pva",
}

// Config holds every runtime setting.
type Config struct {
	ServerPort  string
	CORSOrigins []string

	MongoURI               string
	MongoDatabase          string
	ProductsCollection     string
	ContributorsCollection string

	CachePath string
	LiveOnly  bool // disables the offline cache entirely

	RefreshInterval time.Duration
	ViewCacheTTL    time.Duration
	PDFTimeout      time.Duration

	AdminToken string
	Keywords   []string

	QuotaNew      int
	QuotaTrusted  int
	QuotaVerified int

	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("cors_origins", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("mongodb_uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb_database", "registry")
	v.SetDefault("mongodb_collection", "products")
	v.SetDefault("mongodb_contributors_collection", "contributors")
	v.SetDefault("cache_path", "./data/cache")
	v.SetDefault("live_only", false)
	v.SetDefault("refresh_interval", 5*time.Minute)
	v.SetDefault("view_cache_ttl", time.Minute)
	v.SetDefault("pdf_timeout", 15*time.Second)
	v.SetDefault("admin_token", "")
	v.SetDefault("keywords", strings.Join(DefaultKeywords, ","))
	v.SetDefault("quota_new", 3)
	v.SetDefault("quota_trusted", 10)
	v.SetDefault("quota_verified", 1000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerPort:             v.GetString("server_port"),
		CORSOrigins:            splitList(v.GetString("cors_origins")),
		MongoURI:               v.GetString("mongodb_uri"),
		MongoDatabase:          v.GetString("mongodb_database"),
		ProductsCollection:     v.GetString("mongodb_collection"),
		ContributorsCollection: v.GetString("mongodb_contributors_collection"),
		CachePath:              v.GetString("cache_path"),
		LiveOnly:               v.GetBool("live_only"),
		RefreshInterval:        v.GetDuration("refresh_interval"),
		ViewCacheTTL:           v.GetDuration("view_cache_ttl"),
		PDFTimeout:             v.GetDuration("pdf_timeout"),
		AdminToken:             v.GetString("admin_token"),
		Keywords:               splitList(v.GetString("keywords")),
		QuotaNew:               v.GetInt("quota_new"),
		QuotaTrusted:           v.GetInt("quota_trusted"),
		QuotaVerified:          v.GetInt("quota_verified"),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for settings the service cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.MongoURI == "" || c.MongoDatabase == "" || c.ProductsCollection == "" {
		errs = append(errs, errors.New("MONGODB_URI, MONGODB_DATABASE and MONGODB_COLLECTION must be set"))
	}
	if !c.LiveOnly && c.CachePath == "" {
		errs = append(errs, errors.New("CACHE_PATH must be set unless LIVE_ONLY is enabled"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval))
	}
	if len(c.Keywords) == 0 {
		errs = append(errs, errors.New("KEYWORDS must list at least one keyword"))
	}
	if c.QuotaNew < 0 || c.QuotaTrusted < 0 || c.QuotaVerified < 0 {
		errs = append(errs, errors.New("quota limits must not be negative"))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(c *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
