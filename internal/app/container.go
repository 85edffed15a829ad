package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"parcelhub/internal/config"
	"parcelhub/internal/http/handlers"
	"parcelhub/internal/http/middleware/ratelimit"
	"parcelhub/internal/http/pprofserver"
	"parcelhub/internal/http/router"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
	"parcelhub/internal/repository"
	"parcelhub/internal/retry"
	"parcelhub/internal/service/invoice"
	"parcelhub/internal/service/ledger"
	"parcelhub/internal/service/parcel"
	"parcelhub/internal/service/settlement"
	"parcelhub/internal/service/transfer"
	"parcelhub/internal/transport/kafka"
)

type dbConnectFunc func(context.Context, logx.Logger, string, retry.Config) (*pgxpool.Pool, error)

type migrateFunc func(context.Context, *pgxpool.Pool) error

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	loadConfig func() (*config.Config, error)
	dbConnect  dbConnectFunc
	migrate    migrateFunc
	logFatalf  func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		loadConfig: config.Load,
		dbConnect:  connectDbWithRetry,
		migrate:    repository.Migrate,
		logFatalf:  log.Fatalf,
	}
}

// WithConfig replaces config.Load.
func (b *ContainerBuilder) WithConfig(fn func() (*config.Config, error)) *ContainerBuilder {
	if fn != nil {
		b.loadConfig = fn
	}
	return b
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithMigrate sets the schema migration step run right after connecting.
func (b *ContainerBuilder) WithMigrate(fn migrateFunc) *ContainerBuilder {
	if fn != nil {
		b.migrate = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds the API container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// MustBuildWorker builds the worker container.
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	container, err := b.buildWorker(ctx)
	if err != nil {
		b.logFatalf("failed to build worker container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) base(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerMetrics(container); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := registerDb(container, b.dbConnect, b.migrate); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerStore(container); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := registerDomainServices(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return container, nil
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container, err := b.base(ctx)
	if err != nil {
		return nil, err
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

func (b *ContainerBuilder) buildWorker(ctx context.Context) (*dig.Container, error) {
	container, err := b.base(ctx)
	if err != nil {
		return nil, err
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds the API container with production defaults.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

// MustBuildWorkerContainer builds the worker container with production defaults.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildWorker(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

// operationTimeout bounds every service call.
type operationTimeout time.Duration

func registerCore(container *dig.Container, ctx context.Context, loadConfig func() (*config.Config, error)) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		loadConfig,
		func(cfg *config.Config) operationTimeout {
			return operationTimeout(cfg.OperationTimeout)
		},
	)
}

func registerMetrics(container *dig.Container) error {
	return provideAll(container, provideMetrics)
}

func registerDb(container *dig.Container, dbConnect dbConnectFunc, migrate migrateFunc) error {
	providerDB := func(ctx context.Context, logger logx.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
		pool, err := dbConnect(ctx, logger, cfg.DB.DSN(), dbStartupRetry)
		if err != nil {
			return nil, err
		}
		if migrate != nil {
			if err := migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return pool, nil
	}
	return provideAll(container, providerDB)
}

type runnerIn struct {
	dig.In

	Store   *repository.Store
	Logger  logx.Logger
	Config  *config.Config
	Retries prometheus.Counter `name:"store_retries_total"`
}

func registerStore(container *dig.Container) error {
	return provideAll(container,
		repository.NewStore,
		func(in runnerIn) storetx.Runner {
			return repository.NewRetryingRunner(in.Store, in.Logger, in.Retries, retry.Config(in.Config.StoreRetry))
		},
	)
}

type parcelServiceIn struct {
	dig.In

	Runner      storetx.Runner
	Poster      *ledger.Poster
	Publisher   parcel.Publisher
	Transitions *prometheus.CounterVec `name:"parcel_transitions_total"`
	Timeout     operationTimeout
	Logger      logx.Logger
}

type invoiceServiceIn struct {
	dig.In

	Runner    storetx.Runner
	Poster    *ledger.Poster
	Generated prometheus.Counter `name:"invoices_generated_total"`
	Timeout   operationTimeout
	Logger    logx.Logger
}

func newParcelEventsPublisher(cfg *config.Config) (*kafka.Publisher, error) {
	return kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.ParcelEventsTopic)
}

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		ledger.NewPoster,
		newParcelEventsPublisher,
		func(p *kafka.Publisher) parcel.Publisher {
			if p == nil {
				return parcel.NopPublisher{}
			}
			return p
		},
		func(in parcelServiceIn) *parcel.Service {
			return parcel.NewService(in.Runner, in.Poster, in.Publisher, in.Transitions, time.Duration(in.Timeout), in.Logger)
		},
		func(p *parcel.Service, r storetx.Runner, timeout operationTimeout, logger logx.Logger) *transfer.Service {
			return transfer.NewService(p, r, time.Duration(timeout), logger)
		},
		func(r storetx.Runner, timeout operationTimeout, logger logx.Logger) *settlement.Service {
			return settlement.NewService(r, time.Duration(timeout), logger)
		},
		func(in invoiceServiceIn) *invoice.Service {
			return invoice.NewService(in.Runner, in.Poster, in.Generated, time.Duration(in.Timeout), in.Logger)
		},
		func(r storetx.Runner, p *ledger.Poster, timeout operationTimeout, logger logx.Logger) *ledger.Service {
			return ledger.NewService(r, p, time.Duration(timeout), logger)
		},
	)
}

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewKeyedLimiter(clock, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

type rateLimitIn struct {
	dig.In

	Logger  logx.Logger
	Counter prometheus.Counter `name:"rate_limit_exceeded_total"`
	Limiter ratelimit.Limiter
}

type routerIn struct {
	dig.In

	Logger      logx.Logger
	RateLimit   *ratelimit.Middleware
	Base        *handlers.Handlers
	Parcels     *handlers.ParcelHandler
	Transfers   *handlers.TransferHandler
	Settlements *handlers.SettlementHandler
	Invoices    *handlers.InvoiceHandler
	Ledger      *handlers.LedgerHandler
}

type pprofOut struct {
	dig.Out

	Server *http.Server `name:"pprof_server"`
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	pprofProvider := func(cfg *config.Config, logger logx.Logger) pprofOut {
		if !cfg.Pprof.Enabled {
			return pprofOut{}
		}
		return pprofOut{Server: pprofserver.NewServer(cfg.Pprof, logger)}
	}
	return provideAll(container,
		func(logger logx.Logger, pool *pgxpool.Pool) *handlers.Handlers {
			return handlers.New(logger, pool)
		},
		func(logger logx.Logger, s *parcel.Service) *handlers.ParcelHandler {
			return handlers.NewParcelHandler(logger, s)
		},
		func(logger logx.Logger, s *transfer.Service) *handlers.TransferHandler {
			return handlers.NewTransferHandler(logger, s)
		},
		func(logger logx.Logger, s *settlement.Service) *handlers.SettlementHandler {
			return handlers.NewSettlementHandler(logger, s)
		},
		func(logger logx.Logger, s *invoice.Service) *handlers.InvoiceHandler {
			return handlers.NewInvoiceHandler(logger, s)
		},
		func(logger logx.Logger, s *ledger.Service) *handlers.LedgerHandler {
			return handlers.NewLedgerHandler(logger, s)
		},
		func() ratelimit.Clock { return ratelimit.RealClock{} },
		newRateLimiter,
		func(in rateLimitIn) *ratelimit.Middleware {
			return ratelimit.New(in.Logger, in.Counter, in.Limiter)
		},
		func(in routerIn) http.Handler {
			return router.New(router.Deps{
				Logger:      in.Logger,
				RateLimit:   in.RateLimit,
				Base:        in.Base,
				Parcels:     in.Parcels,
				Transfers:   in.Transfers,
				Settlements: in.Settlements,
				Invoices:    in.Invoices,
				Ledger:      in.Ledger,
			})
		},
		serverProvider,
		pprofProvider,
	)
}
