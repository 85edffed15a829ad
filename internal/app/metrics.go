package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"parcelhub/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal prometheus.Counter     `name:"rate_limit_exceeded_total"`
	GatewayRetriesTotal    prometheus.Counter     `name:"gateway_retries_total"`
	StoreRetriesTotal      prometheus.Counter     `name:"store_retries_total"`
	InvoicesGeneratedTotal prometheus.Counter     `name:"invoices_generated_total"`
	ParcelTransitions      *prometheus.CounterVec `name:"parcel_transitions_total"`
	VerificationEvents     *prometheus.CounterVec `name:"verification_events_total"`
	Ledger                 *metrics.Ledger
}

// provideMetrics registers every collector with the default registerer.
// A collector that is already registered is reused, so building a second
// container in one process is fine.
func provideMetrics() (metricsOut, error) {
	var (
		out metricsOut
		err error
	)
	if out.RateLimitExceededTotal, err = register("rate_limit_exceeded_total", metrics.NewRateLimitExceededTotal()); err != nil {
		return out, err
	}
	if out.GatewayRetriesTotal, err = register("gateway_retries_total", metrics.NewGatewayRetriesTotal()); err != nil {
		return out, err
	}
	if out.StoreRetriesTotal, err = register("store_retries_total", metrics.NewStoreRetriesTotal()); err != nil {
		return out, err
	}
	if out.InvoicesGeneratedTotal, err = register("invoices_generated_total", metrics.NewInvoicesGeneratedTotal()); err != nil {
		return out, err
	}
	if out.ParcelTransitions, err = register("parcel_transitions_total", metrics.NewParcelTransitionsTotal()); err != nil {
		return out, err
	}
	if out.VerificationEvents, err = register("verification_events_total", metrics.NewVerificationEventsTotal()); err != nil {
		return out, err
	}

	l := metrics.NewLedger()
	if l.Postings, err = register("ledger_postings_total", l.Postings); err != nil {
		return out, err
	}
	if l.Inconsistencies, err = register("ledger_inconsistencies_total", l.Inconsistencies); err != nil {
		return out, err
	}
	out.Ledger = l
	return out, nil
}

func register[T prometheus.Collector](name string, c T) (T, error) {
	err := prometheus.DefaultRegisterer.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("register %s: %w", name, err)
}
