package app

import (
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"parcelhub/internal/config"
	"parcelhub/internal/http/middleware/ratelimit"
	"parcelhub/internal/metrics"
)

type httpServersIn struct {
	dig.In

	Main  *http.Server
	Pprof *http.Server `name:"pprof_server" optional:"true"`
}

func buildAPI(t *testing.T, cfg *config.Config) *dig.Container {
	t.Helper()

	c, err := testBuilder(cfg).build(t.Context())
	require.NoError(t, err)
	return c
}

func withRegistry(t *testing.T, reg prometheus.Registerer) {
	t.Helper()
	old := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	t.Cleanup(func() { prometheus.DefaultRegisterer = old })
}

func TestRegisterHTTP_PprofDisabled_ReturnsNilPprofServer(t *testing.T) {
	cfg := testConfig()
	cfg.Pprof = config.PprofConfig{Enabled: false, Addr: "0.0.0.0:6060"}

	err := buildAPI(t, cfg).Invoke(func(in httpServersIn) {
		require.NotNil(t, in.Main)
		require.Equal(t, ":8080", in.Main.Addr)
		require.Nil(t, in.Pprof)
	})
	require.NoError(t, err)
}

func TestRegisterHTTP_PprofEnabled_ProvidesPprofServer(t *testing.T) {
	cfg := testConfig()
	cfg.Pprof = config.PprofConfig{Enabled: true, Addr: "127.0.0.1:6060", User: "u", Pass: "p"}

	err := buildAPI(t, cfg).Invoke(func(in httpServersIn) {
		require.NotNil(t, in.Main)
		require.NotNil(t, in.Pprof)
		require.Equal(t, "127.0.0.1:6060", in.Pprof.Addr)
		require.NotNil(t, in.Pprof.Handler)
	})
	require.NoError(t, err)
}

func TestRegisterHTTP_RateLimiterFollowsConfig(t *testing.T) {
	off := testConfig()
	require.NoError(t, buildAPI(t, off).Invoke(func(l ratelimit.Limiter) {
		require.IsType(t, ratelimit.NopLimiter{}, l)
	}))

	on := testConfig()
	on.RateLimit = config.RateLimitConfig{Enabled: true, Rate: 5, Burst: 10}
	require.NoError(t, buildAPI(t, on).Invoke(func(l ratelimit.Limiter) {
		require.IsType(t, &ratelimit.KeyedLimiter{}, l)
	}))
}

func TestProvideMetrics_Success_RegistersAndReturnsCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	withRegistry(t, reg)

	out, err := provideMetrics()
	require.NoError(t, err)
	require.NotNil(t, out.RateLimitExceededTotal)
	require.NotNil(t, out.GatewayRetriesTotal)
	require.NotNil(t, out.StoreRetriesTotal)
	require.NotNil(t, out.InvoicesGeneratedTotal)
	require.NotNil(t, out.ParcelTransitions)
	require.NotNil(t, out.VerificationEvents)
	require.NotNil(t, out.Ledger)

	out.ParcelTransitions.WithLabelValues("DELIVERED").Inc()
	out.Ledger.Postings.WithLabelValues("CREDIT", "COD_COLLECTED").Inc()
	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["parcel_transitions_total"])
	require.True(t, names["ledger_postings_total"])
}

func TestProvideMetrics_AlreadyRegistered_ReturnsExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	withRegistry(t, reg)

	existingRL := metrics.NewRateLimitExceededTotal()
	existingGR := metrics.NewGatewayRetriesTotal()
	existingLedger := metrics.NewLedger()
	require.NoError(t, reg.Register(existingRL))
	require.NoError(t, reg.Register(existingGR))
	require.NoError(t, reg.Register(existingLedger.Postings))

	out, err := provideMetrics()
	require.NoError(t, err)

	require.Same(t, existingRL, out.RateLimitExceededTotal)
	require.Same(t, existingGR, out.GatewayRetriesTotal)
	require.Same(t, existingLedger.Postings, out.Ledger.Postings)
}

type errRegisterer struct{ err error }

func (e errRegisterer) Register(prometheus.Collector) error  { return e.err }
func (e errRegisterer) MustRegister(...prometheus.Collector) {}
func (e errRegisterer) Unregister(prometheus.Collector) bool { return false }

func TestProvideMetrics_RegisterError_NotAlreadyRegistered(t *testing.T) {
	withRegistry(t, errRegisterer{err: errors.New("boom")})

	_, err := provideMetrics()
	require.Error(t, err)
	require.Contains(t, err.Error(), "register rate_limit_exceeded_total")
}
