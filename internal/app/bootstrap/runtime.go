package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/smart-schedule/internal/config"
	"github.com/wolfman30/smart-schedule/internal/conversation"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || cfg.UseMemoryStore || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildHistoryStore picks Redis when a client is available and falls back
// to process memory otherwise.
func BuildHistoryStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) conversation.HistoryStore {
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient == nil {
		logger.Info("using in-memory session history", "ttl", cfg.SessionTTL.String())
		return conversation.NewMemoryHistoryStore(cfg.SessionTTL)
	}
	logger.Info("using redis session history", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL.String())
	return conversation.NewRedisHistoryStore(redisClient, cfg.SessionTTL)
}

// ConnectPostgresPool opens a pgx pool, or returns nil when no URL is set.
func ConnectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, nil
}

// BuildRepository returns the Postgres repository when a pool exists and
// the in-memory repository (seeded with the default catalog) otherwise.
func BuildRepository(ctx context.Context, pool *pgxpool.Pool, cfg *appconfig.Config, logger *logging.Logger) (schedule.Repository, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if pool != nil && !cfg.UseMemoryStore {
		return schedule.NewPostgresRepository(pool), nil
	}
	repo := schedule.NewInMemoryRepository()
	if _, err := schedule.Seed(ctx, repo, schedule.DefaultCatalog()); err != nil {
		return nil, fmt.Errorf("bootstrap: seed memory catalog: %w", err)
	}
	logger.Warn("using in-memory schedule store; appointments are lost on restart")
	return repo, nil
}
