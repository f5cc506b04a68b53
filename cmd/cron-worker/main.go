package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pactum-labs/pactum-gateway/internal/cron"
	"github.com/pactum-labs/pactum-gateway/internal/delivery"
	"github.com/pactum-labs/pactum-gateway/internal/escrow"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	"github.com/pactum-labs/pactum-gateway/internal/payments"
	"github.com/pactum-labs/pactum-gateway/internal/registry"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/config"
	"github.com/pactum-labs/pactum-gateway/pkg/db"
	"github.com/pactum-labs/pactum-gateway/pkg/instance"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
	"github.com/pactum-labs/pactum-gateway/pkg/metrics"
	"github.com/pactum-labs/pactum-gateway/pkg/migrate"
	"github.com/pactum-labs/pactum-gateway/pkg/outbox"
	"github.com/pactum-labs/pactum-gateway/pkg/redis"
)

const lockKeyFormat = "pactum:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	marketRepo := market.NewRepository(dbClient.DB())
	marketService, err := newMarketService(cfg, dbClient, marketRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create market service", err)
		os.Exit(1)
	}

	orderTTL, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger: logg,
		Market: marketService,
		TTL:    cfg.Market.StaleOrderTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order ttl job", err)
		os.Exit(1)
	}

	eventCleanup, err := cron.NewAgentEventCleanupJob(cron.AgentEventCleanupJobParams{
		Logger:     logg,
		Repository: marketRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create agent event cleanup job", err)
		os.Exit(1)
	}

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(orderTTL, eventCleanup, outboxRetention),
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// newMarketService assembles the orchestrator the expiry job calls into.
// The cron worker never verifies deposits or dispatches deliveries, but
// the orchestrator's wiring is uniform across binaries.
func newMarketService(cfg *config.Config, dbClient *db.Client, repo market.Repository, logg *logger.Logger) (*market.Service, error) {
	chainClient, escrowAddr, tokenAddr, err := newChainClient(cfg, logg)
	if err != nil {
		return nil, err
	}

	verifier, err := payments.NewVerifier(chainClient, escrowAddr, logg)
	if err != nil {
		return nil, err
	}

	dispatcher, err := delivery.NewDispatcher(cfg.Market.DeliveryTimeout, logg)
	if err != nil {
		return nil, err
	}

	agentRegistry, err := registry.NewStore(dbClient.DB())
	if err != nil {
		return nil, err
	}

	return market.NewService(market.Deps{
		Repo:       repo,
		Tx:         dbClient,
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Verifier:   verifier,
		Dispatcher: dispatcher,
		Registry:   agentRegistry,
		Config: market.Config{
			EscrowContract: escrowAddr,
			TokenContract:  tokenAddr,
			PaymentExpiry:  cfg.Market.PaymentExpiry,
		},
		Logger: logg,
	})
}

func newChainClient(cfg *config.Config, logg *logger.Logger) (chain.Client, chain.Address, chain.Address, error) {
	escrowAddr, err := parseContract(cfg.Chain.EscrowContract)
	if err != nil {
		return nil, "", "", fmt.Errorf("escrow contract: %w", err)
	}
	tokenAddr, err := parseContract(cfg.Chain.TokenContract)
	if err != nil {
		return nil, "", "", fmt.Errorf("token contract: %w", err)
	}

	if !cfg.Chain.IsEmbedded() {
		client, err := chain.NewRPCClient(cfg.Chain, logg)
		return client, escrowAddr, tokenAddr, err
	}

	if tokenAddr.IsZero() {
		tokenAddr = chain.Address("0x00000000000000000000000000000000000000c0")
	}
	engine, err := escrow.NewEngine(escrow.EngineConfig{
		Address: escrowAddr,
		Token:   escrow.NewToken(tokenAddr),
		Owner:   chain.Address("0x0000000000000000000000000000000000000a11"),
		Window:  cfg.Market.ConfirmationWindow,
	})
	if err != nil {
		return nil, "", "", err
	}
	backend, err := escrow.NewBackend(engine)
	if err != nil {
		return nil, "", "", err
	}
	return backend, engine.Address(), tokenAddr, nil
}

// parseContract normalizes a configured contract address; checksummed
// input must match the lowercase addresses the chain reports in logs.
func parseContract(raw string) (chain.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return chain.ParseAddress(raw)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
