package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"parcelhub/internal/logx"
	"parcelhub/internal/transport/kafka"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the HTTP API.
type Runner struct {
	runFn func(*dig.Container) error
	exit  func(int)
}

// NewRunner returns a Runner bound to the API run loop.
func NewRunner() *Runner {
	return &Runner{runFn: run, exit: os.Exit}
}

// MustRun starts the API from the container and exits the process on failure.
func MustRun(container *dig.Container) {
	NewRunner().MustRun(container)
}

// MustRun runs until the container's context is done.
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}

	logger := logx.Nop()
	_ = container.Invoke(func(l logx.Logger) { logger = l })

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Info("startup aborted: startup timeout exceeded")
	default:
		logger.Error("run error", logx.Err(err))
		if r.exit != nil {
			r.exit(1)
		}
	}
}

type appIn struct {
	dig.In

	Ctx       context.Context
	Server    *http.Server
	Pprof     *http.Server `name:"pprof_server" optional:"true"`
	Pool      *pgxpool.Pool
	Publisher *kafka.Publisher `optional:"true"`
	Logger    logx.Logger
}

func run(container *dig.Container) error {
	return container.Invoke(appRun)
}

func appRun(in appIn) error {
	servers := []*http.Server{in.Server}
	if in.Pprof != nil {
		servers = append(servers, in.Pprof)
	}

	g, ctx := errgroup.WithContext(in.Ctx)
	for _, srv := range servers {
		g.Go(func() error { return serve(srv, in.Logger) })
	}
	g.Go(func() error {
		<-ctx.Done()
		in.Logger.Info("shutting down parcelhub")
		for _, srv := range servers {
			gracefulShutdown(srv, in.Logger, shutdownTimeout)
		}
		return nil
	})

	err := g.Wait()
	closeResources(in)
	if err != nil {
		return err
	}
	return in.Ctx.Err()
}

func serve(srv *http.Server, logger logx.Logger) error {
	logger.Info("parcelhub listening", logx.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return nil
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.String("addr", srv.Addr), logx.Err(err))
	}
}

func closeResources(in appIn) {
	if err := in.Publisher.Close(); err != nil {
		in.Logger.Error("kafka publisher close error", logx.Err(err))
	}
	if in.Pool != nil {
		in.Pool.Close()
	}
}
