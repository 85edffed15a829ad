package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parcelhub/internal/http/handlers"
	mw "parcelhub/internal/http/middleware"
	"parcelhub/internal/http/middleware/ratelimit"
	"parcelhub/internal/logx"
)

// Deps groups everything the router mounts.
type Deps struct {
	Logger      logx.Logger
	RateLimit   *ratelimit.Middleware
	Metrics     http.Handler
	Base        *handlers.Handlers
	Parcels     *handlers.ParcelHandler
	Transfers   *handlers.TransferHandler
	Settlements *handlers.SettlementHandler
	Invoices    *handlers.InvoiceHandler
	Ledger      *handlers.LedgerHandler
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logx.Nop()
	}
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Observability(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type", middleware.RequestIDHeader,
			mw.HeaderUserID, mw.HeaderRole, mw.HeaderHubID, mw.HeaderRiderID, mw.HeaderMerchantID,
		},
		MaxAge: 300,
	}))
	if d.RateLimit != nil {
		r.Use(d.RateLimit.Handler())
	}

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", d.Metrics)
	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	r.Group(func(r chi.Router) {
		r.Use(mw.Scope(d.Logger))
		mountParcels(r, d)
		mountRemittances(r, d.Transfers)
		mountSettlements(r, d.Settlements)
		mountInvoices(r, d.Invoices)
		mountMerchants(r, d.Ledger)
	})

	return r
}

func mountParcels(r chi.Router, d Deps) {
	p, t := d.Parcels, d.Transfers
	r.Post("/parcels", p.Create)
	r.Route("/parcels/{id}", func(r chi.Router) {
		r.Get("/", p.Get)
		r.Get("/history", p.History)
		r.Post("/pickup/dispatch", p.DispatchPickup())
		r.Post("/pickup/confirm", p.ConfirmPickup())
		r.Post("/receive", p.ReceiveAtHub())
		r.Post("/assign", p.AssignRider())
		r.Post("/dispatch", p.Dispatch())
		r.Post("/outcome", p.RecordOutcome())
		r.Post("/redeliver", p.PrepareRedelivery())
		r.Post("/receive-failed", p.ReceiveFailed())
		r.Post("/third-party", p.HandToThirdParty())
		r.Post("/cancel", p.Cancel())
		r.Post("/return", p.SpawnReturn())
		r.Post("/transfer", t.Transfer())
		r.Post("/transfer/accept", t.Accept())
		r.Post("/return-to-merchant", t.ReturnToMerchant())
	})
}

func mountRemittances(r chi.Router, t *handlers.TransferHandler) {
	r.Route("/remittances", func(r chi.Router) {
		r.Get("/", t.ListRemittances)
		r.Post("/", t.CreateRemittance)
		r.Patch("/{id}", t.UpdateRemittance())
		r.Delete("/{id}", t.DeleteRemittance)
		r.Post("/{id}/approve", t.ApproveRemittance())
		r.Post("/{id}/reject", t.RejectRemittance())
	})
}

func mountSettlements(r chi.Router, s *handlers.SettlementHandler) {
	r.Get("/riders/{id}/settlement/preview", s.Preview)
	r.Get("/riders/{id}/settlements", s.List)
	r.Post("/riders/{id}/settlements", s.Record)
	r.Post("/settlements/{id}/approve", s.Approve())
	r.Post("/settlements/{id}/reject", s.Reject())
}

func mountInvoices(r chi.Router, i *handlers.InvoiceHandler) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", i.List)
		r.Get("/clearance", i.Clearance)
		r.Post("/generate", i.Generate)
		r.Get("/{id}", i.Get)
		r.Post("/{id}/processing", i.MarkProcessing())
		r.Post("/{id}/pay", i.MarkPaid())
	})
}

func mountMerchants(r chi.Router, l *handlers.LedgerHandler) {
	r.Route("/merchants/{id}", func(r chi.Router) {
		r.Get("/finance", l.Finance)
		r.Get("/transactions", l.Transactions)
		r.Get("/ledger/verify", l.Verify)
		r.Post("/adjustments", l.PostAdjustment())
		r.Put("/hold", l.SetHold())
	})
}
