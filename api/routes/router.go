package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopledger-backend/api/controllers"
	"github.com/angelmondragon/shopledger-backend/api/middleware"
	"github.com/angelmondragon/shopledger-backend/internal/balances"
	"github.com/angelmondragon/shopledger-backend/internal/earnings"
	"github.com/angelmondragon/shopledger-backend/internal/ledger"
	"github.com/angelmondragon/shopledger-backend/internal/settlements"
	"github.com/angelmondragon/shopledger-backend/pkg/config"
	"github.com/angelmondragon/shopledger-backend/pkg/db"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/shopledger-backend/pkg/redis"
)

// Store is the redis surface the HTTP layer needs.
type Store interface {
	pkgredis.IdempotencyStore
	pkgredis.Pinger
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type shopResolver interface {
	ResolveForSeller(ctx context.Context, sellerID uuid.UUID) (*models.Shop, error)
}

// Services groups the domain services mounted on the router.
type Services struct {
	Balances    balances.Service
	Ledger      ledger.Service
	Shops       shopResolver
	Settlements settlements.Service
	Earnings    earnings.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store Store,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		limiterStore     interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
		}
		deps = []controllers.Dependency{}
	)
	if dbP != nil {
		deps = append(deps, controllers.Dependency{Name: "postgres", Ping: dbP.Ping})
	}
	if store != nil {
		idempotencyStore = store
		limiterStore = store
		deps = append(deps, controllers.Dependency{Name: "redis", Ping: store.Ping})
	}

	settlementPolicy := middleware.NewRateLimitPolicy(
		"settlement-request",
		cfg.HTTP.SettlementRequestWindow,
		cfg.HTTP.SettlementRequestLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps...))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/seller", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.MemberRoleSeller, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/balance", controllers.SellerBalance(svc.Balances, logg))
		r.Get("/ledger", controllers.SellerLedger(svc.Shops, svc.Ledger, logg))
		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", controllers.SellerListSettlements(svc.Settlements, logg))
			r.With(middleware.RateLimit(settlementPolicy, limiterStore, logg)).
				Post("/", controllers.SellerCreateSettlement(svc.Settlements, logg))
			r.Get("/{settlementId}", controllers.SellerGetSettlement(svc.Settlements, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.MemberRoleAdmin, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", controllers.AdminListSettlements(svc.Settlements, logg))
			r.Get("/{settlementId}", controllers.AdminGetSettlement(svc.Settlements, logg))
			r.Post("/{settlementId}/approve", controllers.AdminApproveSettlement(svc.Settlements, logg))
			r.Post("/{settlementId}/process", controllers.AdminProcessSettlement(svc.Settlements, logg))
			r.Post("/{settlementId}/complete", controllers.AdminCompleteSettlement(svc.Settlements, logg))
			r.Post("/{settlementId}/reject", controllers.AdminRejectSettlement(svc.Settlements, logg))
		})
		r.Post("/orders/{orderId}/settle", controllers.AdminSettleOrder(svc.Earnings, logg))
	})

	return r
}
