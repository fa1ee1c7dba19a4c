package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
	"github.com/sahaproshurik/bazarcikpmbot/internal/config"
	"github.com/sahaproshurik/bazarcikpmbot/internal/db/postgres"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/admin"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/business"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/casino"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/efficiency"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/loans"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/members"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/tax"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/work"
	"github.com/sahaproshurik/bazarcikpmbot/internal/jobs"
	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Core — ядро экономики без Telegram: хранилище, сервисы, обработчики
// и планировщик. Его же использует economyctl.
type Core struct {
	cfg    *config.Config
	sender gateway.Sender

	Store store.Store
	DB    *pgxpool.Pool
	Guard *concurrency.Guard
	Clock clock.Clock

	Members    *members.Service
	Ledger     *economy.Service
	Casino     *casino.Service
	Efficiency *efficiency.Service
	Work       *work.Service
	Loans      *loans.Service
	Business   *business.Service
	Admin      *admin.Service
	Scheduler  *jobs.Scheduler

	memberHandler     *members.Handler
	economyHandler    *economy.Handler
	casinoHandler     *casino.Handler
	efficiencyHandler *efficiency.Handler
	workHandler       *work.Handler
	loanHandler       *loans.Handler
	businessHandler   *business.Handler
	adminHandler      *admin.Handler
}

// NewCore открывает хранилище и собирает все фичи. sender получает
// ответы команд и объявления тиков.
func NewCore(ctx context.Context, cfg *config.Config, sender gateway.Sender) (*Core, error) {
	c := &Core{
		cfg:    cfg,
		sender: sender,
		Guard:  concurrency.NewGuard(),
		Clock:  clock.RealClock{},
	}

	// === 1. Хранилище ===
	if err := c.openStore(ctx); err != nil {
		return nil, err
	}

	// === 2. Репозитории и сервисы ===
	if err := c.buildServices(ctx); err != nil {
		c.Close()
		return nil, err
	}

	// === 3. Обработчики ===
	loc := cfg.Location()
	c.memberHandler = members.NewHandler(c.Members, sender)
	c.economyHandler = economy.NewHandler(c.Ledger, c.Guard, c.Members, sender)
	c.casinoHandler = casino.NewHandler(c.Casino, sender)
	c.efficiencyHandler = efficiency.NewHandler(c.Efficiency, sender)
	c.workHandler = work.NewHandler(c.Work, c.Members, sender)
	c.loanHandler = loans.NewHandler(c.Loans, sender, loc)
	c.businessHandler = business.NewHandler(c.Business, c.Members, sender, loc)
	c.adminHandler = admin.NewHandler(c.Admin, c.Members, sender)

	// === 4. Фоновые тики ===
	c.Scheduler = jobs.NewScheduler(loc, c.Guard)
	c.registerTicks()
	c.Admin.SetTicks(c.Scheduler)

	return c, nil
}

func (c *Core) openStore(ctx context.Context) error {
	switch c.cfg.StoreBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, c.cfg)
		if err != nil {
			return fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		migrations := []postgres.Migration{
			{Version: 1, SQL: store.MigrationDatasets},
		}
		if err := postgres.Migrate(ctx, pool, migrations); err != nil {
			pool.Close()
			return fmt.Errorf("ошибка миграций: %w", err)
		}
		c.DB = pool
		c.Store = store.NewPostgresStore(pool)
	default:
		fs, err := store.NewFileStore(c.cfg.StoreDir)
		if err != nil {
			return fmt.Errorf("ошибка открытия хранилища: %w", err)
		}
		c.Store = fs
	}
	log.WithField("backend", c.cfg.StoreBackend).Info("Хранилище открыто")
	return nil
}

func (c *Core) buildServices(ctx context.Context) error {
	memberRepo, err := members.NewRepository(ctx, c.Store)
	if err != nil {
		return err
	}
	c.Members = members.NewService(memberRepo, c.Clock)

	economyRepo, err := economy.NewRepository(ctx, c.Store)
	if err != nil {
		return err
	}
	c.Ledger = economy.NewService(economyRepo, c.Clock, c.cfg.EconomyStartingCash)

	policy := tax.NewPolicy(c.cfg.TaxRewardThreshold, c.cfg.TaxRewardRate)
	timers := clock.RealTimers{}

	casinoRepo, err := casino.NewRepository(ctx, c.Store)
	if err != nil {
		return err
	}
	c.Casino = casino.NewService(casino.Options{
		Ledger:           c.Ledger,
		Repo:             casinoRepo,
		Policy:           policy,
		Guard:            c.Guard,
		Clock:            c.Clock,
		Timers:           timers,
		BlackjackTimeout: c.cfg.BlackjackTimeout,
	})

	if c.Efficiency, err = efficiency.NewService(ctx, c.Store); err != nil {
		return err
	}

	workRepo, err := work.NewRepository(ctx, c.Store)
	if err != nil {
		return err
	}
	c.Work = work.NewService(work.Options{
		Repo:          workRepo,
		Ledger:        c.Ledger,
		Efficiency:    c.Efficiency,
		Policy:        policy,
		Guard:         c.Guard,
		Clock:         c.Clock,
		Timers:        timers,
		FaultCooldown: c.cfg.WorkFaultCooldown,
		IdleTTL:       c.cfg.WorkSessionIdleTTL,
	})

	loanRepo, err := loans.NewRepository(ctx, c.Store)
	if err != nil {
		return err
	}
	c.Loans = loans.NewService(loans.Options{
		Repo:         loanRepo,
		Ledger:       c.Ledger,
		Tenure:       c.Members,
		Guard:        c.Guard,
		Clock:        c.Clock,
		MaxDoublings: c.cfg.LoanMaxDoublings,
	})

	businessRepo, err := business.NewRepository(ctx, c.Store)
	if err != nil {
		return err
	}
	effects, err := business.NewEffects(ctx, c.Store, c.Clock)
	if err != nil {
		return err
	}
	c.Business = business.NewService(business.Options{
		Repo:    businessRepo,
		Effects: effects,
		Ledger:  c.Ledger,
		Guard:   c.Guard,
		Clock:   c.Clock,
	})

	c.Admin = admin.NewService(admin.Options{
		AdminIDs:     c.cfg.AdminIDs,
		PasswordHash: c.cfg.AdminPasswordHash,
		SessionTTL:   c.cfg.AdminSessionTTL,
		Ledger:       c.Ledger,
		Effects:      effects,
	})
	return nil
}

// Routes собирает таблицу команд. Команды выключенных фич отвечают,
// что функция отключена.
func (c *Core) Routes() ([]gateway.Route, []gateway.CallbackRoute) {
	var routes []gateway.Route
	var callbacks []gateway.CallbackRoute

	add := func(enabled bool, r []gateway.Route, cb []gateway.CallbackRoute) {
		if !enabled {
			r = gateway.Disabled(r, c.sender)
			cb = gateway.DisabledCallbacks(cb, c.sender)
		}
		routes = append(routes, r...)
		callbacks = append(callbacks, cb...)
	}

	add(true, c.memberHandler.Routes(), nil)
	add(true, c.economyHandler.Routes(), nil)
	add(true, c.adminHandler.Routes(), nil)
	add(c.cfg.FeatureCasinoEnabled, c.casinoHandler.Routes(), c.casinoHandler.Callbacks())
	add(c.cfg.FeatureWorkEnabled, append(c.workHandler.Routes(), c.efficiencyHandler.Routes()...), c.workHandler.Callbacks())
	add(c.cfg.FeatureLoansEnabled, c.loanHandler.Routes(), nil)
	add(c.cfg.FeatureBusinessEnabled, c.businessHandler.Routes(), nil)
	return routes, callbacks
}

// NewMembers — обработчик вступления в чат.
func (c *Core) NewMembers() *members.Handler {
	return c.memberHandler
}

// Close закрывает пул соединений, если он открыт.
func (c *Core) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
}
