package config

import "time"

const defaultPort = 8080

const defaultOperationTimeout = 3 * time.Second

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "parcelhub",
	Pass: "parcelhub",
	Name: "parcelhub",
}

var defaultStoreRetry = Retry{
	MaxAttempts: 3,
	BaseDelay:   50 * time.Millisecond,
	MaxDelay:    400 * time.Millisecond,
}

var defaultVerificationRetry = Retry{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    200 * time.Millisecond,
}

var defaultKafka = Kafka{
	GroupID:           "parcelhub-worker",
	VerificationTopic: "delivery.verifications",
	ParcelEventsTopic: "parcel.events",
}

var defaultInvoice = Invoice{
	AutoGenerateInterval: 0,
}

var defaultRateLimit = RateLimitConfig{
	Enabled:    false,
	Rate:       20,
	Burst:      40,
	TTL:        5 * time.Minute,
	MaxBuckets: 10000,
}

var defaultPprof = PprofConfig{
	Enabled: false,
	Addr:    "127.0.0.1:6060",
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultOperationTimeout returns the default timeout of a single core operation.
func DefaultOperationTimeout() time.Duration {
	return defaultOperationTimeout
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultStoreRetry returns the default transient store retry settings.
func DefaultStoreRetry() Retry {
	return defaultStoreRetry
}

// DefaultVerificationRetry returns the default verification gateway retry settings.
func DefaultVerificationRetry() Retry {
	return defaultVerificationRetry
}

// DefaultKafka returns the default kafka settings.
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultInvoice returns the default invoice scheduler settings.
func DefaultInvoice() Invoice {
	return defaultInvoice
}

// DefaultRateLimit returns the default rate limit settings.
func DefaultRateLimit() RateLimitConfig {
	return defaultRateLimit
}

// DefaultPprof returns the default pprof settings.
func DefaultPprof() PprofConfig {
	return defaultPprof
}
