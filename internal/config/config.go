package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Pipeline   PipelineConfig
	Slack      SlackConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	Secret string //nolint:gosec // G117: JWT signing secret config
	TTL    time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// PipelineConfig holds manifest assembly settings shared by the server and
// the CLI.
type PipelineConfig struct {
	Concurrency  int
	FontPatterns []string
	Filesystem   string
	NodeRoot     string
	OutputDir    string
}

// SlackConfig holds Slack notification settings.
type SlackConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("FONTMANIFEST_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("FONTMANIFEST_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("FONTMANIFEST_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("FONTMANIFEST_JWT_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("FONTMANIFEST_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("FONTMANIFEST_SERVER_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rps, err := getEnvFloat("FONTMANIFEST_RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	burst, err := getEnvInt("FONTMANIFEST_RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("FONTMANIFEST_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	pipeline, err := LoadPipeline()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("FONTMANIFEST_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("FONTMANIFEST_DB_USER", "fontmanifest"),
			Password: getEnv("FONTMANIFEST_DB_PASSWORD", ""),
			DBName:   getEnv("FONTMANIFEST_DB_NAME", "fontmanifest_dev"),
			SSLMode:  getEnv("FONTMANIFEST_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("FONTMANIFEST_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("FONTMANIFEST_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret: getEnv("FONTMANIFEST_JWT_SECRET", ""),
			TTL:    tokenTTL,
		},
		Server: ServerConfig{
			Addr:           getEnv("FONTMANIFEST_SERVER_ADDR", ":8080"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			CORSOrigins:    getEnvList("FONTMANIFEST_CORS_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Pipeline: *pipeline,
		Slack: SlackConfig{
			WebhookURL: getEnv("FONTMANIFEST_SLACK_WEBHOOK_URL", ""),
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// LoadPipeline reads only the pipeline settings. The CLI uses it to assemble
// without server credentials.
func LoadPipeline() (*PipelineConfig, error) {
	concurrency, err := getEnvInt("FONTMANIFEST_PIPELINE_CONCURRENCY", 8)
	if err != nil {
		return nil, fmt.Errorf("config.LoadPipeline: %w", err)
	}

	p := &PipelineConfig{
		Concurrency:  concurrency,
		FontPatterns: getEnvList("FONTMANIFEST_FONT_PATTERNS", nil),
		Filesystem:   getEnv("FONTMANIFEST_FILESYSTEM", "output"),
		NodeRoot:     getEnv("FONTMANIFEST_NODE_ROOT", "/.next"),
		OutputDir:    getEnv("FONTMANIFEST_OUTPUT_DIR", ""),
	}

	err = p.validate()
	if err != nil {
		return nil, fmt.Errorf("config.LoadPipeline: %w", err)
	}

	return p, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("FONTMANIFEST_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("FONTMANIFEST_JWT_SECRET must be at least 32 characters")
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("FONTMANIFEST_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("FONTMANIFEST_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("FONTMANIFEST_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("FONTMANIFEST_JWT_TTL must be positive, got %s", c.JWT.TTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("FONTMANIFEST_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("FONTMANIFEST_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("FONTMANIFEST_RATE_LIMIT_RPS must be positive, got %g", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("FONTMANIFEST_RATE_LIMIT_BURST must be >= 1, got %d", c.Server.RateLimitBurst)
	}

	return c.Pipeline.validate()
}

func (p *PipelineConfig) validate() error {
	if p.Concurrency < 1 {
		return fmt.Errorf("FONTMANIFEST_PIPELINE_CONCURRENCY must be >= 1, got %d", p.Concurrency)
	}
	if p.Filesystem == "" {
		return errors.New("FONTMANIFEST_FILESYSTEM must not be empty")
	}
	if !strings.HasPrefix(p.NodeRoot, "/") {
		return fmt.Errorf("FONTMANIFEST_NODE_ROOT must be absolute, got %q", p.NodeRoot)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
