package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/aegis/internal/classify"
	"github.com/gosuda/aegis/internal/config"
	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/executor"
	"github.com/gosuda/aegis/internal/guard"
	"github.com/gosuda/aegis/internal/metrics"
	"github.com/gosuda/aegis/internal/notify"
	"github.com/gosuda/aegis/internal/policy"
	"github.com/gosuda/aegis/internal/server"
	"github.com/gosuda/aegis/internal/store/postgres"
	redisstore "github.com/gosuda/aegis/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("AEGIS_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("AEGIS_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	apiKeyHashes, err := config.APIKeyHashes()
	if err != nil {
		return err
	}
	if len(apiKeyHashes) == 0 {
		log.Warn().Msg("AEGIS_API_KEY_HASHES is empty; agents cannot authenticate")
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	m := metrics.New()

	// Guards: sliding-window rate limiters and per-key circuit breakers.
	limiter := guard.NewRateLimiter(cfg.Policy.RateWindow, cfg.Policy.RateMax)
	tier3Limit := guard.NewRateLimiter(cfg.Policy.RateWindow, cfg.Policy.RateMaxTier3)
	breakers := guard.NewBreakerSet(cfg.Policy.BreakerThreshold, cfg.Policy.BreakerCooldown, cfg.Policy.BreakerQueue)
	breakers.OnTransition(func(key string, from, to guard.BreakerState) {
		m.ObserveBreakerTransition(to)

		var event domain.AuditEventType
		switch to {
		case guard.BreakerOpen:
			event = domain.AuditBreakerOpened
		case guard.BreakerClosed:
			event = domain.AuditBreakerClosed
		default:
			return
		}
		entry := &domain.AuditEntry{
			ID:        uuid.New(),
			Actor:     "system:breaker",
			EventType: event,
			Detail:    map[string]any{"breaker": key, "from": string(from), "to": string(to)},
			CreatedAt: time.Now(),
		}
		if auditErr := store.Audit().Record(context.Background(), entry); auditErr != nil {
			log.Warn().Err(auditErr).Str("breaker", key).Msg("breaker transition audit failed")
		}
	})

	// Select the command runner.
	var runner executor.Runner
	switch cfg.Exec.Runner {
	case "docker":
		sandbox, runnerErr := executor.NewSandboxRunner(
			cfg.Docker.Host,
			cfg.Docker.ImageDefault,
			cfg.Docker.CPULimit,
			cfg.Docker.MemLimit,
		)
		if runnerErr != nil {
			return fmt.Errorf("sandbox runner: %w", runnerErr)
		}
		runner = sandbox
	default:
		runner = executor.NewLocalRunner()
	}

	classifier := classify.Default()
	exec := executor.New(classifier, limiter, breakers, runner, store.Audit(), m, cfg.Exec.Timeout)

	// Slack notifier for pending approvals, when configured.
	var notifier notify.Notifier = notify.Nop{}
	if cfg.Slack.BotToken != "" {
		notifier = notify.NewSlackNotifier(slacklib.New(cfg.Slack.BotToken), cfg.Slack.ApprovalChannel)
		log.Info().Str("channel", cfg.Slack.ApprovalChannel).Msg("Slack approval notifications enabled")
	}

	engine := policy.NewEngine(policy.Config{
		Classifier:  classifier,
		Executor:    exec,
		Tier3Limit:  tier3Limit,
		Actions:     store.Actions(),
		PreAuth:     store.PreAuth(),
		Audit:       store.Audit(),
		Notifier:    notifier,
		PubSub:      pubsub,
		Metrics:     m,
		ApprovalTTL: cfg.Policy.ApprovalTTL,
	})

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(cfg, store, pubsub, engine, m, apiKeyHashes)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("runner", cfg.Exec.Runner).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
