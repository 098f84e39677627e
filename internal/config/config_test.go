package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "AEGIS_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "AEGIS_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "AEGIS_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
		{name: "preserves whitespace", key: "AEGIS_TEST_GETENV_WS", setVal: strPtr("  spaced  "), fallback: "x", want: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AEGIS_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "AEGIS_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "parses negative int", key: "AEGIS_TEST_INT_NEG", setVal: strPtr("-1"), fallback: 0, want: -1},
		{name: "parses zero", key: "AEGIS_TEST_INT_ZERO", setVal: strPtr("0"), fallback: 99, want: 0},
		{name: "returns fallback for empty string", key: "AEGIS_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "AEGIS_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "AEGIS_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
		{name: "errors on hex", key: "AEGIS_TEST_INT_HEX", setVal: strPtr("0xFF"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AEGIS_TEST_BOOL_UNSET", setVal: nil, fallback: false, want: false},
		{name: "fallback true when unset", key: "AEGIS_TEST_BOOL_UNSETTRUE", setVal: nil, fallback: true, want: true},
		{name: "parses true", key: "AEGIS_TEST_BOOL_TRUE", setVal: strPtr("true"), fallback: false, want: true},
		{name: "parses false", key: "AEGIS_TEST_BOOL_FALSE", setVal: strPtr("false"), fallback: true, want: false},
		{name: "parses 1", key: "AEGIS_TEST_BOOL_ONE", setVal: strPtr("1"), fallback: false, want: true},
		{name: "parses 0", key: "AEGIS_TEST_BOOL_ZERO", setVal: strPtr("0"), fallback: true, want: false},
		{name: "parses TRUE uppercase", key: "AEGIS_TEST_BOOL_UPPER", setVal: strPtr("TRUE"), fallback: false, want: true},
		{name: "errors on invalid", key: "AEGIS_TEST_BOOL_INV", setVal: strPtr("yes"), fallback: false, wantErr: true},
		{name: "errors on numeric non-bool", key: "AEGIS_TEST_BOOL_NUM", setVal: strPtr("2"), fallback: false, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvBool(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AEGIS_TEST_DUR_UNSET", setVal: nil, fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses seconds", key: "AEGIS_TEST_DUR_SEC", setVal: strPtr("30s"), fallback: 0, want: 30 * time.Second},
		{name: "parses minutes", key: "AEGIS_TEST_DUR_MIN", setVal: strPtr("15m"), fallback: 0, want: 15 * time.Minute},
		{name: "parses composite", key: "AEGIS_TEST_DUR_COMP", setVal: strPtr("1h30m"), fallback: 0, want: 90 * time.Minute},
		{name: "parses zero", key: "AEGIS_TEST_DUR_ZERO", setVal: strPtr("0s"), fallback: 5 * time.Second, want: 0},
		{name: "errors on invalid", key: "AEGIS_TEST_DUR_INV", setVal: strPtr("notaduration"), fallback: 0, wantErr: true},
		{name: "errors on bare number", key: "AEGIS_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// Load() error cases
// ---------------------------------------------------------------------------

func TestLoad_MissingJWTSecret(t *testing.T) {
	// All defaults apply; JWT secret is empty => must fail.
	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "AEGIS_JWT_SECRET")
}

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		errMsg string
	}{
		// DB_PORT parse errors
		{name: "DB_PORT not a number", envKey: "AEGIS_DB_PORT", envVal: "abc", errMsg: "AEGIS_DB_PORT"},
		{name: "DB_PORT float", envKey: "AEGIS_DB_PORT", envVal: "3.14", errMsg: "AEGIS_DB_PORT"},

		// DB_PORT validation errors (parses fine, fails bounds)
		{name: "DB_PORT zero", envKey: "AEGIS_DB_PORT", envVal: "0", errMsg: "AEGIS_DB_PORT"},
		{name: "DB_PORT negative", envKey: "AEGIS_DB_PORT", envVal: "-1", errMsg: "AEGIS_DB_PORT"},
		{name: "DB_PORT too high", envKey: "AEGIS_DB_PORT", envVal: "65536", errMsg: "AEGIS_DB_PORT"},

		// DB_MAX_CONNS
		{name: "DB_MAX_CONNS zero", envKey: "AEGIS_DB_MAX_CONNS", envVal: "0", errMsg: "AEGIS_DB_MAX_CONNS"},
		{name: "DB_MAX_CONNS not a number", envKey: "AEGIS_DB_MAX_CONNS", envVal: "many", errMsg: "AEGIS_DB_MAX_CONNS"},

		// Server timeouts
		{name: "SERVER_READ_TIMEOUT invalid", envKey: "AEGIS_SERVER_READ_TIMEOUT", envVal: "notduration", errMsg: "AEGIS_SERVER_READ_TIMEOUT"},
		{name: "SERVER_WRITE_TIMEOUT zero", envKey: "AEGIS_SERVER_WRITE_TIMEOUT", envVal: "0s", errMsg: "AEGIS_SERVER_WRITE_TIMEOUT"},

		// Redis DB
		{name: "REDIS_DB not a number", envKey: "AEGIS_REDIS_DB", envVal: "abc", errMsg: "AEGIS_REDIS_DB"},

		// Executor
		{name: "EXEC_RUNNER unknown", envKey: "AEGIS_EXEC_RUNNER", envVal: "firecracker", errMsg: "AEGIS_EXEC_RUNNER"},
		{name: "EXEC_TIMEOUT invalid", envKey: "AEGIS_EXEC_TIMEOUT", envVal: "soon", errMsg: "AEGIS_EXEC_TIMEOUT"},
		{name: "EXEC_TIMEOUT zero", envKey: "AEGIS_EXEC_TIMEOUT", envVal: "0s", errMsg: "AEGIS_EXEC_TIMEOUT"},

		// Policy knobs
		{name: "RATE_WINDOW zero", envKey: "AEGIS_RATE_WINDOW", envVal: "0s", errMsg: "AEGIS_RATE_WINDOW"},
		{name: "RATE_MAX zero", envKey: "AEGIS_RATE_MAX", envVal: "0", errMsg: "AEGIS_RATE_MAX"},
		{name: "RATE_MAX_TIER3 zero", envKey: "AEGIS_RATE_MAX_TIER3", envVal: "0", errMsg: "AEGIS_RATE_MAX_TIER3"},
		{name: "BREAKER_THRESHOLD zero", envKey: "AEGIS_BREAKER_THRESHOLD", envVal: "0", errMsg: "AEGIS_BREAKER_THRESHOLD"},
		{name: "BREAKER_COOLDOWN negative", envKey: "AEGIS_BREAKER_COOLDOWN", envVal: "-1m", errMsg: "AEGIS_BREAKER_COOLDOWN"},
		{name: "BREAKER_QUEUE zero", envKey: "AEGIS_BREAKER_QUEUE", envVal: "0", errMsg: "AEGIS_BREAKER_QUEUE"},
		{name: "APPROVAL_TTL zero", envKey: "AEGIS_APPROVAL_TTL", envVal: "0s", errMsg: "AEGIS_APPROVAL_TTL"},

		// Self-hosted
		{name: "SELF_HOSTED not a bool", envKey: "AEGIS_SELF_HOSTED", envVal: "yes", errMsg: "AEGIS_SELF_HOSTED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Always set JWT secret so failures are from the var under test.
			t.Setenv("AEGIS_JWT_SECRET", "test-secret-for-error-cases-32ch!")
			t.Setenv(tc.envKey, tc.envVal)

			cfg, err := Load()
			require.Error(t, err, "expected error for %s=%q", tc.envKey, tc.envVal)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoad_SlackChannelRequiredWithToken(t *testing.T) {
	t.Setenv("AEGIS_JWT_SECRET", "test-secret-that-is-at-least-32ch")
	t.Setenv("AEGIS_SLACK_BOT_TOKEN", "xoxb-test")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "AEGIS_SLACK_APPROVAL_CHANNEL")
}

// ---------------------------------------------------------------------------
// Load() happy paths
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	// Only the required JWT secret is set; everything else uses defaults.
	t.Setenv("AEGIS_JWT_SECRET", "my-dev-secret-at-least-32-chars!!")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Database defaults.
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "aegis", cfg.Database.User)
	assert.Empty(t, cfg.Database.Password)
	assert.Equal(t, "aegis_dev", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxConns)

	// Redis defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Empty(t, cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	// Server defaults.
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)

	// Slack defaults.
	assert.Empty(t, cfg.Slack.BotToken)
	assert.Empty(t, cfg.Slack.ApprovalChannel)

	// Executor defaults.
	assert.Equal(t, "local", cfg.Exec.Runner)
	assert.Equal(t, 30*time.Second, cfg.Exec.Timeout)

	// Docker defaults.
	assert.Equal(t, "unix:///var/run/docker.sock", cfg.Docker.Host)
	assert.Equal(t, "alpine:3.20", cfg.Docker.ImageDefault)
	assert.Equal(t, "1", cfg.Docker.CPULimit)
	assert.Equal(t, "512m", cfg.Docker.MemLimit)

	// Policy defaults.
	assert.Equal(t, 60*time.Second, cfg.Policy.RateWindow)
	assert.Equal(t, 5, cfg.Policy.RateMax)
	assert.Equal(t, 2, cfg.Policy.RateMaxTier3)
	assert.Equal(t, 3, cfg.Policy.BreakerThreshold)
	assert.Equal(t, 60*time.Second, cfg.Policy.BreakerCooldown)
	assert.Equal(t, 16, cfg.Policy.BreakerQueue)
	assert.Equal(t, time.Hour, cfg.Policy.ApprovalTTL)

	// Self-hosted default.
	assert.False(t, cfg.SelfHosted)
}

func TestLoad_AllCustomValues(t *testing.T) {
	envs := map[string]string{
		// Database
		"AEGIS_DB_HOST":      "db.prod.internal",
		"AEGIS_DB_PORT":      "5433",
		"AEGIS_DB_USER":      "prod_user",
		"AEGIS_DB_PASSWORD":  "s3cret!",
		"AEGIS_DB_NAME":      "aegis_prod",
		"AEGIS_DB_SSLMODE":   "require",
		"AEGIS_DB_MAX_CONNS": "50",
		// Redis
		"AEGIS_REDIS_ADDR":     "redis.prod:6380",
		"AEGIS_REDIS_PASSWORD": "redis-pass",
		"AEGIS_REDIS_DB":       "3",
		// JWT
		"AEGIS_JWT_SECRET": "prod-jwt-secret-256-bits-long!!!",
		// Server
		"AEGIS_SERVER_ADDR":          ":9090",
		"AEGIS_SERVER_READ_TIMEOUT":  "5s",
		"AEGIS_SERVER_WRITE_TIMEOUT": "15s",
		// Slack
		"AEGIS_SLACK_BOT_TOKEN":        "xoxb-test",
		"AEGIS_SLACK_APPROVAL_CHANNEL": "#ops-approvals",
		// Executor
		"AEGIS_EXEC_RUNNER":  "docker",
		"AEGIS_EXEC_TIMEOUT": "90s",
		// Docker
		"AEGIS_DOCKER_HOST":          "tcp://docker:2375",
		"AEGIS_DOCKER_IMAGE_DEFAULT": "myregistry/runner:v2",
		"AEGIS_DOCKER_CPU_LIMIT":     "4",
		"AEGIS_DOCKER_MEM_LIMIT":     "8g",
		// Policy
		"AEGIS_RATE_WINDOW":       "120s",
		"AEGIS_RATE_MAX":          "10",
		"AEGIS_RATE_MAX_TIER3":    "4",
		"AEGIS_BREAKER_THRESHOLD": "5",
		"AEGIS_BREAKER_COOLDOWN":  "5m",
		"AEGIS_BREAKER_QUEUE":     "32",
		"AEGIS_APPROVAL_TTL":      "4h",
		// Self-hosted
		"AEGIS_SELF_HOSTED": "true",
	}

	for k, v := range envs {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Database
	assert.Equal(t, "db.prod.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "prod_user", cfg.Database.User)
	assert.Equal(t, "s3cret!", cfg.Database.Password)
	assert.Equal(t, "aegis_prod", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 50, cfg.Database.MaxConns)

	// Redis
	assert.Equal(t, "redis.prod:6380", cfg.Redis.Addr)
	assert.Equal(t, "redis-pass", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)

	// JWT
	assert.Equal(t, "prod-jwt-secret-256-bits-long!!!", cfg.JWT.Secret)

	// Server
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)

	// Slack
	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)
	assert.Equal(t, "#ops-approvals", cfg.Slack.ApprovalChannel)

	// Executor
	assert.Equal(t, "docker", cfg.Exec.Runner)
	assert.Equal(t, 90*time.Second, cfg.Exec.Timeout)

	// Docker
	assert.Equal(t, "tcp://docker:2375", cfg.Docker.Host)
	assert.Equal(t, "myregistry/runner:v2", cfg.Docker.ImageDefault)
	assert.Equal(t, "4", cfg.Docker.CPULimit)
	assert.Equal(t, "8g", cfg.Docker.MemLimit)

	// Policy
	assert.Equal(t, 120*time.Second, cfg.Policy.RateWindow)
	assert.Equal(t, 10, cfg.Policy.RateMax)
	assert.Equal(t, 4, cfg.Policy.RateMaxTier3)
	assert.Equal(t, 5, cfg.Policy.BreakerThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Policy.BreakerCooldown)
	assert.Equal(t, 32, cfg.Policy.BreakerQueue)
	assert.Equal(t, 4*time.Hour, cfg.Policy.ApprovalTTL)

	// Self-hosted
	assert.True(t, cfg.SelfHosted)
}

// ---------------------------------------------------------------------------
// APIKeyHashes() parsing
// ---------------------------------------------------------------------------

func TestAPIKeyHashes(t *testing.T) {
	hash1 := "a3f5c1d2e4b60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
	hash2 := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

	t.Run("empty env yields empty map", func(t *testing.T) {
		t.Setenv("AEGIS_API_KEY_HASHES", "")
		got, err := APIKeyHashes()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("single entry", func(t *testing.T) {
		t.Setenv("AEGIS_API_KEY_HASHES", "homelab-agent:"+hash1)
		got, err := APIKeyHashes()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{hash1: "homelab-agent"}, got)
	})

	t.Run("multiple entries with whitespace", func(t *testing.T) {
		t.Setenv("AEGIS_API_KEY_HASHES", "agent-a:"+hash1+" , agent-b:"+hash2)
		got, err := APIKeyHashes()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{hash1: "agent-a", hash2: "agent-b"}, got)
	})

	t.Run("hash is lowercased", func(t *testing.T) {
		upper := "A3F5C1D2E4B60718293A4B5C6D7E8F90A1B2C3D4E5F60718293A4B5C6D7E8F90"
		t.Setenv("AEGIS_API_KEY_HASHES", "agent-a:"+upper)
		got, err := APIKeyHashes()
		require.NoError(t, err)
		assert.Equal(t, "agent-a", got[hash1])
	})

	t.Run("missing name fails", func(t *testing.T) {
		t.Setenv("AEGIS_API_KEY_HASHES", ":"+hash1)
		_, err := APIKeyHashes()
		require.Error(t, err)
	})

	t.Run("truncated hash fails", func(t *testing.T) {
		t.Setenv("AEGIS_API_KEY_HASHES", "agent-a:abcdef")
		_, err := APIKeyHashes()
		require.Error(t, err)
	})

	t.Run("missing separator fails", func(t *testing.T) {
		t.Setenv("AEGIS_API_KEY_HASHES", hash1)
		_, err := APIKeyHashes()
		require.Error(t, err)
	})
}

// ---------------------------------------------------------------------------
// DSN() output format
// ---------------------------------------------------------------------------

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "default dev values",
			cfg: DatabaseConfig{
				Host: "localhost", Port: 5432, User: "aegis",
				Password: "", DBName: "aegis_dev", SSLMode: "disable",
			},
			want: "host=localhost port=5432 user=aegis password= dbname=aegis_dev sslmode=disable",
		},
		{
			name: "production values",
			cfg: DatabaseConfig{
				Host: "db.prod", Port: 5433, User: "admin",
				Password: "p@ss!", DBName: "aegis_prod", SSLMode: "require",
			},
			want: "host=db.prod port=5433 user=admin password=p@ss! dbname=aegis_prod sslmode=require",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.cfg.DSN())
		})
	}
}

// ---------------------------------------------------------------------------
// validate() direct tests
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	// validBase returns a Config that passes validation.
	validBase := func() *Config {
		return &Config{
			Database: DatabaseConfig{Port: 5432, MaxConns: 25},
			JWT:      JWTConfig{Secret: "test-secret-that-is-at-least-32ch"},
			Server: ServerConfig{
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			},
			Exec: ExecConfig{Runner: "local", Timeout: 30 * time.Second},
			Policy: PolicyConfig{
				RateWindow:       time.Minute,
				RateMax:          5,
				RateMaxTier3:     2,
				BreakerThreshold: 3,
				BreakerCooldown:  time.Minute,
				BreakerQueue:     16,
				ApprovalTTL:      time.Hour,
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validBase().validate())
	})

	t.Run("empty JWT secret fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.JWT.Secret = ""
		assert.ErrorContains(t, c.validate(), "AEGIS_JWT_SECRET")
	})

	t.Run("JWT secret too short fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.JWT.Secret = "only-31-characters-long-secret!"
		assert.ErrorContains(t, c.validate(), "AEGIS_JWT_SECRET")
	})

	t.Run("port 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Database.Port = 0
		assert.ErrorContains(t, c.validate(), "AEGIS_DB_PORT")
	})

	t.Run("port 65536 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Database.Port = 65536
		assert.ErrorContains(t, c.validate(), "AEGIS_DB_PORT")
	})

	t.Run("MaxConns 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Database.MaxConns = 0
		assert.ErrorContains(t, c.validate(), "AEGIS_DB_MAX_CONNS")
	})

	t.Run("docker runner passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Exec.Runner = "docker"
		assert.NoError(t, c.validate())
	})

	t.Run("unknown runner fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Exec.Runner = "ssh"
		assert.ErrorContains(t, c.validate(), "AEGIS_EXEC_RUNNER")
	})

	t.Run("negative exec timeout fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Exec.Timeout = -time.Second
		assert.ErrorContains(t, c.validate(), "AEGIS_EXEC_TIMEOUT")
	})

	t.Run("rate max tier3 above rate max is allowed", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Policy.RateMaxTier3 = 100
		assert.NoError(t, c.validate())
	})

	t.Run("breaker threshold 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Policy.BreakerThreshold = 0
		assert.ErrorContains(t, c.validate(), "AEGIS_BREAKER_THRESHOLD")
	})

	t.Run("approval TTL 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Policy.ApprovalTTL = 0
		assert.ErrorContains(t, c.validate(), "AEGIS_APPROVAL_TTL")
	})
}

// ---------------------------------------------------------------------------
// Test helper
// ---------------------------------------------------------------------------

func strPtr(s string) *string {
	return &s
}
