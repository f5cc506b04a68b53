package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pactum-labs/pactum-gateway/internal/delivery"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	"github.com/pactum-labs/pactum-gateway/internal/payments"
	"github.com/pactum-labs/pactum-gateway/internal/registry"
	"github.com/pactum-labs/pactum-gateway/internal/watcher"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/config"
	"github.com/pactum-labs/pactum-gateway/pkg/db"
	"github.com/pactum-labs/pactum-gateway/pkg/instance"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
	"github.com/pactum-labs/pactum-gateway/pkg/metrics"
	"github.com/pactum-labs/pactum-gateway/pkg/migrate"
	"github.com/pactum-labs/pactum-gateway/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "chain-watcher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "chain-watcher"

	logg = logger.New(logger.Options{
		ServiceName: "chain-watcher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	// The embedded ledger lives inside the api process; a standalone
	// watcher has nothing to tail there.
	if cfg.Chain.IsEmbedded() {
		logg.Error(context.Background(), "chain-watcher requires rpc chain mode",
			errors.New("embedded chain mode selected"))
		os.Exit(1)
	}

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

	chainClient, err := chain.NewRPCClient(cfg.Chain, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap chain client", err)
		os.Exit(1)
	}

	escrowAddr, err := parseContract(cfg.Chain.EscrowContract)
	if err != nil {
		logg.Error(context.Background(), "invalid escrow contract address in config", err)
		os.Exit(1)
	}
	tokenAddr, err := parseContract(cfg.Chain.TokenContract)
	if err != nil {
		logg.Error(context.Background(), "invalid token contract address in config", err)
		os.Exit(1)
	}

	verifier, err := payments.NewVerifier(chainClient, escrowAddr, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment verifier", err)
		os.Exit(1)
	}

	dispatcher, err := delivery.NewDispatcher(cfg.Market.DeliveryTimeout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery dispatcher", err)
		os.Exit(1)
	}

	agentRegistry, err := registry.NewStore(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create agent registry", err)
		os.Exit(1)
	}

	marketService, err := market.NewService(market.Deps{
		Repo:       market.NewRepository(dbClient.DB()),
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
	if err != nil {
		logg.Error(context.Background(), "failed to create market service", err)
		os.Exit(1)
	}

	watcherMetrics := metrics.NewWatcherMetrics(prometheus.DefaultRegisterer)
	w, err := watcher.New(chainClient, marketService, watcher.NewCursorStore(dbClient.DB()), watcher.Config{
		Escrow:            escrowAddr,
		PollInterval:      cfg.Chain.PollInterval,
		ConfirmationDepth: cfg.Chain.ConfirmationDepth,
		MaxBlockSpan:      cfg.Chain.MaxBlockSpan,
	}, watcherMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create watcher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"escrow":   string(escrowAddr),
		"network":  cfg.Chain.Network,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting chain watcher")

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "chain watcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "chain watcher shutting down gracefully")
}

// parseContract normalizes a configured contract address; checksummed
// input must match the lowercase addresses the chain reports in logs.
func parseContract(raw string) (chain.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return chain.ParseAddress(raw)
}
