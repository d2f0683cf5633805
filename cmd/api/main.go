package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/smart-schedule/internal/api/router"
	"github.com/wolfman30/smart-schedule/internal/app/bootstrap"
	appconfig "github.com/wolfman30/smart-schedule/internal/config"
	"github.com/wolfman30/smart-schedule/internal/conversation"
	"github.com/wolfman30/smart-schedule/internal/observability/metrics"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/internal/webchat"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting smart-schedule API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()

	pool, err := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	repo, err := bootstrap.BuildRepository(ctx, pool, cfg, logger)
	if err != nil {
		logger.Error("failed to build schedule repository", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	history := bootstrap.BuildHistoryStore(redisClient, cfg, logger)

	llm, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build llm client", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	notifier, err := bootstrap.BuildNotifier(ctx, cfg, logger.Component("notify"))
	if err != nil {
		logger.Error("failed to build notifier", "error", err)
		os.Exit(1)
	}

	metricsHandler, chatMetrics := setupMetrics()
	chatService := bootstrap.BuildChatService(cfg, llm, repo, history, chatMetrics, notifier, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		ChatHandler:        conversation.NewHandler(chatService, logger),
		WebChatHandler:     webchat.NewHandler(chatService, logger.Component("webchat")),
		ScheduleHandler:    schedule.NewHandler(repo, logger),
		MetricsHandler:     metricsHandler,
		HealthChecks:       healthChecks(pool, redisClient),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := newServer(cfg, r)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// newServer sizes the write timeout so a slow LLM turn still gets its reply out.
func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewChatMetrics(reg)
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
