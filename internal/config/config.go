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
	Slack      SlackConfig
	Exec       ExecConfig
	Docker     DockerConfig
	Policy     PolicyConfig
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

// JWTConfig holds JWT authentication settings. Operator tokens are issued
// out-of-band; agents authenticate with API keys instead.
type JWTConfig struct {
	Secret string //nolint:gosec // G117: JWT signing secret config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// SlackConfig holds Slack notification settings. Outbound only: pending
// actions are posted to the approval channel, approvals come back via the API.
type SlackConfig struct {
	BotToken        string
	ApprovalChannel string
}

// ExecConfig selects and bounds the command runner.
type ExecConfig struct {
	Runner  string // "local" or "docker"
	Timeout time.Duration
}

// DockerConfig holds container runtime settings for the docker runner.
type DockerConfig struct {
	Host         string
	ImageDefault string
	CPULimit     string
	MemLimit     string
}

// PolicyConfig holds the safety-engine knobs: sliding-window rate limits,
// circuit breaker tuning, and the pending-approval TTL.
type PolicyConfig struct {
	RateWindow       time.Duration
	RateMax          int
	RateMaxTier3     int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	BreakerQueue     int
	ApprovalTTL      time.Duration
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("AEGIS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("AEGIS_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("AEGIS_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("AEGIS_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("AEGIS_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	execTimeout, err := getEnvDuration("AEGIS_EXEC_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateWindow, err := getEnvDuration("AEGIS_RATE_WINDOW", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateMax, err := getEnvInt("AEGIS_RATE_MAX", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateMaxTier3, err := getEnvInt("AEGIS_RATE_MAX_TIER3", 2)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	breakerThreshold, err := getEnvInt("AEGIS_BREAKER_THRESHOLD", 3)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	breakerCooldown, err := getEnvDuration("AEGIS_BREAKER_COOLDOWN", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	breakerQueue, err := getEnvInt("AEGIS_BREAKER_QUEUE", 16)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	approvalTTL, err := getEnvDuration("AEGIS_APPROVAL_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("AEGIS_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("AEGIS_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("AEGIS_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("AEGIS_DB_USER", "aegis"),
			Password: getEnv("AEGIS_DB_PASSWORD", ""),
			DBName:   getEnv("AEGIS_DB_NAME", "aegis_dev"),
			SSLMode:  getEnv("AEGIS_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("AEGIS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("AEGIS_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret: getEnv("AEGIS_JWT_SECRET", ""),
		},
		Server: ServerConfig{
			Addr:         getEnv("AEGIS_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Slack: SlackConfig{
			BotToken:        getEnv("AEGIS_SLACK_BOT_TOKEN", ""),
			ApprovalChannel: getEnv("AEGIS_SLACK_APPROVAL_CHANNEL", ""),
		},
		Exec: ExecConfig{
			Runner:  getEnv("AEGIS_EXEC_RUNNER", "local"),
			Timeout: execTimeout,
		},
		Docker: DockerConfig{
			Host:         getEnv("AEGIS_DOCKER_HOST", "unix:///var/run/docker.sock"),
			ImageDefault: getEnv("AEGIS_DOCKER_IMAGE_DEFAULT", "alpine:3.20"),
			CPULimit:     getEnv("AEGIS_DOCKER_CPU_LIMIT", "1"),
			MemLimit:     getEnv("AEGIS_DOCKER_MEM_LIMIT", "512m"),
		},
		Policy: PolicyConfig{
			RateWindow:       rateWindow,
			RateMax:          rateMax,
			RateMaxTier3:     rateMaxTier3,
			BreakerThreshold: breakerThreshold,
			BreakerCooldown:  breakerCooldown,
			BreakerQueue:     breakerQueue,
			ApprovalTTL:      approvalTTL,
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// APIKeyHashes parses AEGIS_API_KEY_HASHES into a sha256-hex -> agent-name
// map. Format: comma-separated "name:hexhash" pairs.
func APIKeyHashes() (map[string]string, error) {
	raw := os.Getenv("AEGIS_API_KEY_HASHES")
	if raw == "" {
		return map[string]string{}, nil
	}

	hashes := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, hash, found := strings.Cut(pair, ":")
		if !found || name == "" || len(hash) != 64 {
			return nil, fmt.Errorf("config.APIKeyHashes: malformed entry %q, want name:sha256hex", pair)
		}
		hashes[strings.ToLower(hash)] = name
	}
	return hashes, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("AEGIS_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("AEGIS_JWT_SECRET must be at least 32 characters")
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("AEGIS_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("AEGIS_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("AEGIS_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("AEGIS_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("AEGIS_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Exec.Runner != "local" && c.Exec.Runner != "docker" {
		return fmt.Errorf("AEGIS_EXEC_RUNNER must be 'local' or 'docker', got %q", c.Exec.Runner)
	}
	if c.Exec.Timeout <= 0 {
		return fmt.Errorf("AEGIS_EXEC_TIMEOUT must be positive, got %s", c.Exec.Timeout)
	}
	if c.Slack.BotToken != "" && c.Slack.ApprovalChannel == "" {
		return errors.New("AEGIS_SLACK_APPROVAL_CHANNEL is required when AEGIS_SLACK_BOT_TOKEN is set")
	}
	if c.Policy.RateWindow <= 0 {
		return fmt.Errorf("AEGIS_RATE_WINDOW must be positive, got %s", c.Policy.RateWindow)
	}
	if c.Policy.RateMax < 1 {
		return fmt.Errorf("AEGIS_RATE_MAX must be >= 1, got %d", c.Policy.RateMax)
	}
	if c.Policy.RateMaxTier3 < 1 {
		return fmt.Errorf("AEGIS_RATE_MAX_TIER3 must be >= 1, got %d", c.Policy.RateMaxTier3)
	}
	if c.Policy.BreakerThreshold < 1 {
		return fmt.Errorf("AEGIS_BREAKER_THRESHOLD must be >= 1, got %d", c.Policy.BreakerThreshold)
	}
	if c.Policy.BreakerCooldown <= 0 {
		return fmt.Errorf("AEGIS_BREAKER_COOLDOWN must be positive, got %s", c.Policy.BreakerCooldown)
	}
	if c.Policy.BreakerQueue < 1 {
		return fmt.Errorf("AEGIS_BREAKER_QUEUE must be >= 1, got %d", c.Policy.BreakerQueue)
	}
	if c.Policy.ApprovalTTL <= 0 {
		return fmt.Errorf("AEGIS_APPROVAL_TTL must be positive, got %s", c.Policy.ApprovalTTL)
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
