package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pactum-labs/pactum-gateway/api"
	"github.com/pactum-labs/pactum-gateway/api/routes"
	"github.com/pactum-labs/pactum-gateway/internal/address"
	"github.com/pactum-labs/pactum-gateway/internal/auth"
	"github.com/pactum-labs/pactum-gateway/internal/delivery"
	"github.com/pactum-labs/pactum-gateway/internal/escrow"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	"github.com/pactum-labs/pactum-gateway/internal/payments"
	"github.com/pactum-labs/pactum-gateway/internal/registry"
	"github.com/pactum-labs/pactum-gateway/pkg/auth/challenge"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/config"
	"github.com/pactum-labs/pactum-gateway/pkg/db"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
	"github.com/pactum-labs/pactum-gateway/pkg/maps"
	"github.com/pactum-labs/pactum-gateway/pkg/migrate"
	"github.com/pactum-labs/pactum-gateway/pkg/outbox"
	"github.com/pactum-labs/pactum-gateway/pkg/redis"
)

// Deterministic contract addresses for embedded mode, where no real
// deployment exists to point at.
const (
	devEscrowContract = "0x00000000000000000000000000000000000000e5"
	devTokenContract  = "0x00000000000000000000000000000000000000c0"
	devEscrowOwner    = "0x0000000000000000000000000000000000000a11"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	escrowAddr, tokenAddr, err := contractAddresses(cfg)
	if err != nil {
		logg.Error(context.Background(), "invalid contract address in config", err)
		os.Exit(1)
	}
	chainClient, err := newChainClient(cfg, escrowAddr, tokenAddr, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap chain client", err)
		os.Exit(1)
	}

	// Identities and reviews are append-only, so the registry binding is
	// durable: token ids and the reviewed set survive restarts.
	agentRegistry, err := registry.NewStore(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create agent registry", err)
		os.Exit(1)
	}

	challenges, err := challenge.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create challenge manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.Deps{
		Challenges: challenges,
		Registry:   agentRegistry,
		JWT:        cfg.JWT,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
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

	var addressChecker market.AddressChecker
	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			logg.Error(context.Background(), "failed to create maps client", err)
			os.Exit(1)
		}
		addressChecker = address.NewChecker(mapsClient, logg)
	}

	marketService, err := market.NewService(market.Deps{
		Repo:       market.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Verifier:   verifier,
		Dispatcher: dispatcher,
		Registry:   agentRegistry,
		Addresses:  addressChecker,
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

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, chainClient, authService, marketService)
	server := api.NewServer(cfg, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       server.Addr,
		"chain_mode": cfg.Chain.Mode,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

// contractAddresses resolves the escrow and token contract addresses,
// substituting deterministic dev addresses in embedded mode. Config values
// go through ParseAddress so checksummed input matches the lowercase
// addresses the chain reports in logs.
func contractAddresses(cfg *config.Config) (chain.Address, chain.Address, error) {
	escrowAddr, err := parseContract(cfg.Chain.EscrowContract)
	if err != nil {
		return "", "", fmt.Errorf("escrow contract: %w", err)
	}
	tokenAddr, err := parseContract(cfg.Chain.TokenContract)
	if err != nil {
		return "", "", fmt.Errorf("token contract: %w", err)
	}
	if cfg.Chain.IsEmbedded() {
		if escrowAddr.IsZero() {
			escrowAddr = chain.Address(devEscrowContract)
		}
		if tokenAddr.IsZero() {
			tokenAddr = chain.Address(devTokenContract)
		}
	}
	return escrowAddr, tokenAddr, nil
}

func parseContract(raw string) (chain.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return chain.ParseAddress(raw)
}

// newChainClient selects the chain backend: a JSON-RPC node in rpc mode,
// an in-process escrow ledger in embedded mode.
func newChainClient(cfg *config.Config, escrowAddr, tokenAddr chain.Address, logg *logger.Logger) (chain.Client, error) {
	if !cfg.Chain.IsEmbedded() {
		return chain.NewRPCClient(cfg.Chain, logg)
	}

	engine, err := escrow.NewEngine(escrow.EngineConfig{
		Address: escrowAddr,
		Token:   escrow.NewToken(tokenAddr),
		Owner:   chain.Address(devEscrowOwner),
		Window:  cfg.Market.ConfirmationWindow,
	})
	if err != nil {
		return nil, err
	}
	return escrow.NewBackend(engine)
}
