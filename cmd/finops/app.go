package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	grpcadapter "github.com/simaogato/finops-backend/internal/adapter/grpc"
	"github.com/simaogato/finops-backend/internal/adapter/dispatch"
	"github.com/simaogato/finops-backend/internal/adapter/repository/memory"
	"github.com/simaogato/finops-backend/internal/adapter/repository/redisstore"
	"github.com/simaogato/finops-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/finops-backend/internal/config"
	"github.com/simaogato/finops-backend/internal/domain"
	"github.com/simaogato/finops-backend/internal/usecase/cadence"
	"github.com/simaogato/finops-backend/internal/usecase/dashboard"
	"github.com/simaogato/finops-backend/internal/usecase/seeder"
)

// app holds the wired services shared by every command
type app struct {
	records   domain.RecordRepository
	rules     domain.RuleRepository
	reminders domain.ReminderRepository

	cadence   *cadence.Service
	dashboard *dashboard.DashboardService
	server    *grpcadapter.Server

	closers []func() error
}

// newApp wires stores, dispatcher and services from the configuration
// Logic:
//  1. Open the configured stores (and migrate SQL schemas)
//  2. Build the dispatcher
//  3. Build the services and seed the default rules
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{}

	// 1. Stores
	if err := a.openStores(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	// 2. Dispatcher
	dispatcher, err := a.dispatcher(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 3. Services
	engine, err := cadence.NewEngine(cfg.Policy(), log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.cadence = cadence.NewService(engine, a.rules, a.reminders, dispatcher, log)
	a.cadence.ConfirmOnHandOff = cfg.Dispatch.ConfirmOnHandOff
	a.dashboard = dashboard.NewDashboardService(a.records, a.cadence, cfg.Boundaries())
	a.server = grpcadapter.NewServer(a.cadence, a.dashboard)

	systemSeeder := seeder.NewSystemSeeder(a.rules, a.records)
	if err := systemSeeder.Seed(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to seed default rules: %w", err)
	}

	if cfg.Seed.Demo {
		seeded, err := systemSeeder.SeedDemo(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to seed demo records: %w", err)
		}
		log.Info().Int("records", seeded).Msg("Demo records seeded")
	}

	log.Debug().
		Str("store", cfg.Store.Driver).
		Str("dispatch", cfg.Dispatch.Driver).
		Msg("Services wired")

	return a, nil
}

func (a *app) openStores(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Driver {
	case config.StoreSQLite, config.StorePostgres:
		db, err := sqlstore.Open(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)

		if err := db.Migrate(ctx); err != nil {
			return err
		}

		a.records = sqlstore.NewRecordRepository(db)
		a.rules = sqlstore.NewRuleRepository(db)
		a.reminders = sqlstore.NewReminderRepository(db)

	case config.StoreRedis:
		client, err := redisstore.NewClient(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)

		a.records = memory.NewRecordStore()
		a.rules = memory.NewRuleStore()
		a.reminders = redisstore.NewReminderStore(client, cfg.Store.RedisPrefix)

	default:
		a.records = memory.NewRecordStore()
		a.rules = memory.NewRuleStore()
		a.reminders = memory.NewReminderStore()
	}

	return nil
}

func (a *app) dispatcher(cfg *config.Config, log zerolog.Logger) (cadence.Dispatcher, error) {
	if cfg.Dispatch.Driver != config.DispatchNATS {
		return dispatch.NewLogDispatcher(log), nil
	}

	conn, err := dispatch.Connect(cfg.Dispatch.NATSURL, "finops")
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		return conn.Drain()
	})

	return dispatch.NewNATSPublisher(conn, cfg.Dispatch.SubjectPrefix, log), nil
}

// Close releases every connection opened by newApp, newest first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Failed to close connection")
		}
	}
	a.closers = nil
}
