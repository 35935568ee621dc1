// Package app assembles the ledger services shared by the api, worker and
// cron binaries.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/shopledger-backend/internal/balances"
	"github.com/angelmondragon/shopledger-backend/internal/earnings"
	"github.com/angelmondragon/shopledger-backend/internal/ledger"
	"github.com/angelmondragon/shopledger-backend/internal/orders"
	"github.com/angelmondragon/shopledger-backend/internal/settlements"
	"github.com/angelmondragon/shopledger-backend/internal/shops"
	"github.com/angelmondragon/shopledger-backend/pkg/config"
	"github.com/angelmondragon/shopledger-backend/pkg/db"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
	"github.com/angelmondragon/shopledger-backend/pkg/metrics"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox"
)

type Services struct {
	Shops       *shops.Repository
	Balances    balances.Service
	Ledger      ledger.Service
	Settlements settlements.Service
	Earnings    earnings.Service
	Outbox      *outbox.Repository
	Metrics     *metrics.SettlementMetrics
}

// Build wires repositories and services over one database client. A nil
// registerer skips metrics.
func Build(cfg *config.Config, client *db.Client, reg prometheus.Registerer, logg *logger.Logger) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if client == nil {
		return nil, fmt.Errorf("database client required")
	}
	conn := client.DB()

	var settlementMetrics *metrics.SettlementMetrics
	if reg != nil {
		settlementMetrics = metrics.NewSettlementMetrics(reg)
	}

	shopRepo := shops.NewRepository(conn)
	balanceRepo := balances.NewRepository(conn)
	entryRepo := ledger.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)

	calc, err := settlements.NewCalculator(cfg.Settlement.CommissionPercent)
	if err != nil {
		return nil, fmt.Errorf("settlement calculator: %w", err)
	}

	balanceLedger, err := balances.NewLedger(balances.LedgerParams{
		Repo:    balanceRepo,
		Entries: entryRepo,
		Metrics: settlementMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("balance ledger: %w", err)
	}

	balanceSvc, err := balances.NewService(balanceRepo, shopRepo)
	if err != nil {
		return nil, fmt.Errorf("balance service: %w", err)
	}
	ledgerSvc, err := ledger.NewService(entryRepo)
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}

	settlementSvc, err := settlements.NewService(settlements.ServiceParams{
		DB:         client,
		Repo:       settlements.NewRepository(conn),
		Shops:      shopRepo,
		Ledger:     balanceLedger,
		Calculator: calc,
		Outbox:     emitter,
		Config:     cfg.Settlement,
		Metrics:    settlementMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("settlement service: %w", err)
	}

	earningSvc, err := earnings.NewService(earnings.ServiceParams{
		DB:         client,
		Repo:       earnings.NewRepository(conn),
		Orders:     orders.NewRepository(conn),
		Shops:      shopRepo,
		Ledger:     balanceLedger,
		Calculator: calc,
		Outbox:     emitter,
		Config:     cfg.Settlement,
		Metrics:    settlementMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("earnings service: %w", err)
	}

	return &Services{
		Shops:       shopRepo,
		Balances:    balanceSvc,
		Ledger:      ledgerSvc,
		Settlements: settlementSvc,
		Earnings:    earningSvc,
		Outbox:      outboxRepo,
		Metrics:     settlementMetrics,
	}, nil
}
