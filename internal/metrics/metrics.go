package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewStoreRetriesTotal returns a counter of whole-transaction retries after transient store errors
func NewStoreRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_retries_total",
		Help: "Total number of transaction retries after transient store errors",
	})
}

// Ledger groups the collectors reported by the ledger poster.
type Ledger struct {
	Postings        *prometheus.CounterVec
	Inconsistencies prometheus.Counter
}

// NewLedger returns ledger collectors.
func NewLedger() *Ledger {
	return &Ledger{
		Postings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_postings_total",
			Help: "Ledger rows appended, by direction and reference type",
		}, []string{"type", "reference_type"}),
		Inconsistencies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_inconsistencies_total",
			Help: "Number of writes halted because the projection disagreed with the ledger",
		}),
	}
}

// Collectors returns every collector for registration.
func (l *Ledger) Collectors() []prometheus.Collector {
	return []prometheus.Collector{l.Postings, l.Inconsistencies}
}

// NewParcelTransitionsTotal returns a counter of committed parcel transitions by target status
func NewParcelTransitionsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcel_transitions_total",
		Help: "Committed parcel status transitions by target status",
	}, []string{"to"})
}

// NewInvoicesGeneratedTotal returns a counter of persisted merchant invoices
func NewInvoicesGeneratedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoices_generated_total",
		Help: "Total number of merchant invoices generated",
	})
}

// NewVerificationEventsTotal returns a counter of consumed verification events by result
func NewVerificationEventsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_events_total",
		Help: "Delivery verification events consumed, by result",
	}, []string{"result"})
}
