package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pactum-labs/pactum-gateway/api/controllers"
	"github.com/pactum-labs/pactum-gateway/api/middleware"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/config"
	"github.com/pactum-labs/pactum-gateway/pkg/db"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
	"github.com/pactum-labs/pactum-gateway/pkg/redis"
)

// MarketService is everything the HTTP surface needs from the order
// orchestrator.
type MarketService interface {
	controllers.RegisterService
	controllers.AgentDirectory
	controllers.ItemService
	controllers.AddressService
	controllers.PurchaseService
	controllers.OrderService
	controllers.EventFeed
	controllers.StatsService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	chainClient chain.Client,
	authService controllers.AuthService,
	marketService MarketService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	challengePolicy := middleware.NewAuthRateLimitPolicy(
		"challenge",
		cfg.AuthRateLimit.ChallengeWindow,
		cfg.AuthRateLimit.ChallengeIPLimit,
		cfg.AuthRateLimit.ChallengeWalletLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterWalletLimit,
	)

	rateLimited := func(policy middleware.AuthRateLimitPolicy) func(http.Handler) http.Handler {
		if redisClient == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.AuthRateLimit(policy, redisClient, logg)
	}

	var redisPinger db.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger, chainClient))
	})

	r.Route("/market", func(r chi.Router) {
		r.Get("/", controllers.MarketInfo())

		// Public catalog: browsing needs no token.
		r.Get("/items", controllers.SearchItems(marketService, logg))
		r.Get("/items/{itemId}", controllers.ItemDetail(marketService, logg))
		r.Get("/agents", controllers.ListAgents(marketService, logg))
		r.Get("/agents/{wallet}", controllers.AgentDetail(marketService, logg))
		r.Get("/activity", controllers.Activity(marketService, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Use(rateLimited(challengePolicy))
			r.Post("/challenge", controllers.AuthChallenge(authService, logg))
			r.Post("/verify", controllers.AuthVerify(authService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if redisClient != nil {
				r.Use(middleware.Idempotency(redisClient, logg))
			}

			r.With(rateLimited(registerPolicy)).Post("/register", controllers.Register(marketService, logg))
			r.With(rateLimited(registerPolicy)).Post("/register/seller", controllers.RegisterSeller(marketService, logg))

			r.Post("/items", controllers.CreateItem(marketService, logg))
			r.Patch("/items/{itemId}", controllers.UpdateItem(marketService, logg))
			r.Delete("/items/{itemId}", controllers.DeleteItem(marketService, logg))
			r.Get("/my-items", controllers.MyItems(marketService, logg))

			r.Put("/address", controllers.PutAddress(marketService, logg))
			r.Get("/address", controllers.GetAddress(marketService, logg))

			r.Post("/buy/{itemId}", controllers.Buy(marketService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(marketService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(marketService, logg))
				r.Get("/{orderId}/messages", controllers.OrderMessages(marketService, logg))
				r.Post("/{orderId}/messages", controllers.PostOrderMessage(marketService, logg))
				r.Post("/{orderId}/deliver", controllers.DeliverOrder(marketService, logg))
				r.Post("/{orderId}/review", controllers.ReviewOrder(marketService, logg))
			})

			r.Get("/events", controllers.ListEvents(marketService, logg))
			r.Get("/stats", controllers.Stats(marketService, logg))
		})
	})

	return r
}
