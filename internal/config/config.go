package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config stores service settings.
type Config struct {
	Port             int
	OperationTimeout time.Duration

	DB           DB
	StoreRetry   Retry
	Kafka        Kafka
	Verification Verification
	Invoice      Invoice
	RateLimit    RateLimitConfig
	Pprof        PprofConfig
}

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns a postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		d.User, d.Pass, net.JoinHostPort(d.Host, d.Port), d.Name)
}

// Retry stores bounded exponential backoff settings.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Kafka stores broker settings. Empty Brokers disables the consumer and producer.
type Kafka struct {
	Brokers           []string
	GroupID           string
	VerificationTopic string
	ParcelEventsTopic string
}

// Verification stores the delivery verification service client settings.
// Empty Host disables the authoritative re-read.
type Verification struct {
	Host  string
	Retry Retry
}

// Invoice stores invoice scheduler settings. Zero interval disables the scheduler.
type Invoice struct {
	AutoGenerateInterval time.Duration
}

// RateLimitConfig stores HTTP rate limiting settings.
type RateLimitConfig struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// PprofConfig stores pprof server settings.
type PprofConfig struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:             DefaultPort(),
		OperationTimeout: DefaultOperationTimeout(),
		DB:               DefaultDB(),
		StoreRetry:       DefaultStoreRetry(),
		Kafka:            DefaultKafka(),
		Verification:     Verification{Retry: DefaultVerificationRetry()},
		Invoice:          DefaultInvoice(),
		RateLimit:        DefaultRateLimit(),
		Pprof:            DefaultPprof(),
	}
	e := envReader{}

	cfg.Port = e.int("PORT", cfg.Port)
	cfg.OperationTimeout = e.duration("OPERATION_TIMEOUT", cfg.OperationTimeout)

	cfg.DB.Host = e.str("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = e.str("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = e.str("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Pass = e.str("POSTGRES_PASSWORD", cfg.DB.Pass)
	cfg.DB.Name = e.str("POSTGRES_DB", cfg.DB.Name)
	if _, err := strconv.Atoi(cfg.DB.Port); err != nil {
		e.fail("POSTGRES_PORT", cfg.DB.Port)
	}

	cfg.StoreRetry = e.retry("STORE_RETRY", cfg.StoreRetry)

	cfg.Kafka.Brokers = e.list("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.GroupID = e.str("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	cfg.Kafka.VerificationTopic = e.str("KAFKA_VERIFICATION_TOPIC", cfg.Kafka.VerificationTopic)
	cfg.Kafka.ParcelEventsTopic = e.str("KAFKA_PARCEL_EVENTS_TOPIC", cfg.Kafka.ParcelEventsTopic)

	cfg.Verification.Host = e.str("VERIFICATION_SERVICE_HOST", cfg.Verification.Host)
	cfg.Verification.Retry = e.retry("VERIFICATION_RETRY", cfg.Verification.Retry)

	cfg.Invoice.AutoGenerateInterval = e.duration("INVOICE_AUTO_GENERATE_INTERVAL", cfg.Invoice.AutoGenerateInterval)

	cfg.RateLimit.Enabled = e.bool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Rate = e.float("RATE_LIMIT_RATE", cfg.RateLimit.Rate)
	cfg.RateLimit.Burst = e.int("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	cfg.RateLimit.TTL = e.duration("RATE_LIMIT_TTL", cfg.RateLimit.TTL)
	cfg.RateLimit.MaxBuckets = e.int("RATE_LIMIT_MAX_BUCKETS", cfg.RateLimit.MaxBuckets)

	cfg.Pprof.Enabled = e.bool("PPROF_ENABLED", cfg.Pprof.Enabled)
	cfg.Pprof.Addr = e.str("PPROF_ADDR", cfg.Pprof.Addr)
	cfg.Pprof.User = e.str("PPROF_USER", cfg.Pprof.User)
	cfg.Pprof.Pass = e.str("PPROF_PASS", cfg.Pprof.Pass)

	if e.err != nil {
		return nil, e.err
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.DurationVar(&cfg.OperationTimeout, "operation-timeout", cfg.OperationTimeout, "timeout of a single core operation")
	pflag.DurationVar(&cfg.Invoice.AutoGenerateInterval, "invoice-interval", cfg.Invoice.AutoGenerateInterval, "invoice auto generation interval, 0 disables")
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Port)
	case c.OperationTimeout <= 0:
		return fmt.Errorf("invalid operation timeout: %s", c.OperationTimeout)
	case c.Invoice.AutoGenerateInterval < 0:
		return fmt.Errorf("invalid invoice interval: %s", c.Invoice.AutoGenerateInterval)
	case c.StoreRetry.MaxAttempts < 1:
		return fmt.Errorf("invalid store retry attempts: %d", c.StoreRetry.MaxAttempts)
	case c.Verification.Retry.MaxAttempts < 1:
		return fmt.Errorf("invalid verification retry attempts: %d", c.Verification.Retry.MaxAttempts)
	case c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0):
		return fmt.Errorf("invalid rate limit: rate=%v burst=%d", c.RateLimit.Rate, c.RateLimit.Burst)
	case len(c.Kafka.Brokers) > 0 && (c.Kafka.GroupID == "" || c.Kafka.VerificationTopic == ""):
		return fmt.Errorf("kafka group id and verification topic are required when brokers are set")
	}
	return nil
}

// envReader keeps the first malformed value instead of silently falling back.
type envReader struct {
	err error
}

func (e *envReader) fail(key, raw string) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %q", key, raw)
	}
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return n
}

func (e *envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return d
}

func (e *envReader) list(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *envReader) retry(prefix string, def Retry) Retry {
	return Retry{
		MaxAttempts: e.int(prefix+"_ATTEMPTS", def.MaxAttempts),
		BaseDelay:   e.duration(prefix+"_BASE_DELAY", def.BaseDelay),
		MaxDelay:    e.duration(prefix+"_MAX_DELAY", def.MaxDelay),
	}
}
