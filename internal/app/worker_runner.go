package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/service/invoice"
	"parcelhub/internal/transport/kafka"
)

// WorkerRunner runs the verification consumer and the invoice scheduler.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun runs the worker until its context is cancelled and panics on any other error.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

type workerIn struct {
	dig.In

	Ctx       context.Context
	Pool      *pgxpool.Pool
	Logger    logx.Logger
	Consumer  *kafka.Consumer
	Publisher *kafka.Publisher
	Conn      *grpc.ClientConn
	Invoices  *invoice.Service
	Interval  invoiceInterval
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(in workerIn) error {
	if in.Logger == nil {
		in.Logger = logx.Nop()
	}
	if in.Consumer == nil {
		return fmt.Errorf("kafka consumer is nil: worker container misconfigured")
	}
	defer closeWorker(in)

	g, ctx := errgroup.WithContext(in.Ctx)
	g.Go(func() error { return in.Consumer.Run(ctx) })
	if in.Invoices != nil && in.Interval > 0 {
		g.Go(func() error {
			return runInvoiceLoop(ctx, in.Logger, in.Invoices, time.Duration(in.Interval))
		})
	}

	in.Logger.Info("parcelhub-worker started", logx.Duration("invoice_interval", time.Duration(in.Interval)))
	return g.Wait()
}

// runInvoiceLoop generates invoices for every merchant with cleared parcels on
// each tick. A failed round is logged and retried on the next tick.
func runInvoiceLoop(ctx context.Context, logger logx.Logger, gen invoiceGenerator, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			invs, err := gen.Generate(ctx, domain.SystemScope(), nil)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("invoice generation failed", logx.Err(err))
				continue
			}
			if len(invs) > 0 {
				logger.Info("invoices generated", logx.Int("count", len(invs)))
			}
		}
	}
}

func closeWorker(in workerIn) {
	if in.Consumer != nil {
		if err := in.Consumer.Close(); err != nil {
			in.Logger.Error("kafka close error", logx.Err(err))
		}
	}
	if err := in.Publisher.Close(); err != nil {
		in.Logger.Error("kafka publisher close error", logx.Err(err))
	}
	if in.Conn != nil {
		if err := in.Conn.Close(); err != nil {
			in.Logger.Error("verification conn close error", logx.Err(err))
		}
	}
	if in.Pool != nil {
		in.Pool.Close()
	}
}
