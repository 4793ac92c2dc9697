package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Face match modes.
const (
	MatchModeScan     = "scan"     // load every descriptor and compare in Go
	MatchModePgvector = "pgvector" // nearest neighbour computed by PostgreSQL
	MatchModeHNSW     = "hnsw"     // in-memory HNSW graph with exact re-ranking
)

type Config struct {
	Web      WebConfig
	Auth     AuthConfig
	Face     FaceConfig
	Database DatabaseConfig
	Log      LogConfig
}

type WebConfig struct {
	Host           string   `env:"WEB_HOST" envDefault:"0.0.0.0"`
	Port           int      `env:"WEB_PORT" envDefault:"8080"`
	SessionSecret  string   `env:"WEB_SESSION_SECRET"`
	AllowedOrigins []string `env:"WEB_ALLOWED_ORIGINS" envSeparator:","`
	SecureCookies  bool     `env:"WEB_SECURE_COOKIES"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`
}

type FaceConfig struct {
	Threshold    float64       `env:"FACE_MATCH_THRESHOLD" envDefault:"0.6"`
	Mode         string        `env:"FACE_MATCH_MODE" envDefault:"scan"`
	IndexRefresh time.Duration `env:"FACE_INDEX_REFRESH" envDefault:"1m"` // hnsw index rebuild interval in serve, 0 disables
}

type DatabaseConfig struct {
	URL          string `env:"DATABASE_URL"`                           // PostgreSQL connection URL
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"` // Maximum open connections
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`  // Maximum idle connections
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"` // console or json
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Face.Mode = strings.ToLower(strings.TrimSpace(cfg.Face.Mode))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that env parsing cannot express.
func (c *Config) Validate() error {
	switch c.Face.Mode {
	case MatchModeScan, MatchModePgvector, MatchModeHNSW:
	default:
		return fmt.Errorf("FACE_MATCH_MODE must be one of scan, pgvector, hnsw (got %q)", c.Face.Mode)
	}
	if c.Face.Threshold <= 0 {
		return errors.New("FACE_MATCH_THRESHOLD must be positive")
	}
	if c.Face.IndexRefresh < 0 {
		return errors.New("FACE_INDEX_REFRESH must not be negative")
	}
	if c.Auth.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("WEB_PORT out of range: %d", c.Web.Port)
	}
	return nil
}

// Addr returns the host:port the web server binds to.
func (c *WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
