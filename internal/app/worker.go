package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"parcelhub/internal/config"
	"parcelhub/internal/domain"
	verifier "parcelhub/internal/gateway/verification"
	"parcelhub/internal/logx"
	"parcelhub/internal/retry"
	"parcelhub/internal/service/invoice"
	"parcelhub/internal/service/parcel"
	"parcelhub/internal/service/verification"
	"parcelhub/internal/transport/kafka"
)

// gatewayTimeout bounds one authoritative re-read, retries included.
const gatewayTimeout = 2 * time.Second

// invoiceInterval is how often the worker generates due invoices; 0 disables it.
type invoiceInterval time.Duration

type verificationReader interface {
	GetByParcelID(ctx context.Context, parcelID int64) (*verifier.Verification, error)
}

type eventHandler interface {
	Handle(ctx context.Context, e verification.Event) error
}

type invoiceGenerator interface {
	Generate(ctx context.Context, scope domain.Scope, merchantID *int64) ([]domain.MerchantInvoice, error)
}

type gatewayIn struct {
	dig.In

	Conn    *grpc.ClientConn
	Config  *config.Config
	Logger  logx.Logger
	Retries prometheus.Counter `name:"gateway_retries_total"`
}

type processorIn struct {
	dig.In

	Parcels *parcel.Service
	Events  *prometheus.CounterVec `name:"verification_events_total"`
	Logger  logx.Logger
}

func newVerificationConn(cfg *config.Config) (*grpc.ClientConn, error) {
	host := strings.TrimSpace(cfg.Verification.Host)
	if host == "" {
		return nil, nil
	}
	conn, err := grpc.NewClient(host, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("verification client %s: %w", host, err)
	}
	return conn, nil
}

func newVerificationReader(in gatewayIn) verificationReader {
	if in.Conn == nil {
		return nil
	}
	return verifier.NewRetryingGateway(
		verifier.NewGRPCGateway(in.Conn),
		in.Logger,
		in.Retries,
		retry.Config(in.Config.Verification.Retry),
	)
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		newVerificationConn,
		newVerificationReader,
		func(in processorIn) *verification.Processor {
			return verification.NewProcessor(in.Parcels, in.Events, in.Logger)
		},
		func(p *verification.Processor, gw verificationReader, logger logx.Logger) kafka.HandleFunc {
			return makeVerificationHandler(p, gw, logger)
		},
		func(cfg *config.Config, logger logx.Logger, h kafka.HandleFunc) (*kafka.Consumer, error) {
			return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.VerificationTopic, h)
		},
		func(cfg *config.Config) invoiceInterval {
			return invoiceInterval(cfg.Invoice.AutoGenerateInterval)
		},
	)
}

// makeVerificationHandler applies verification events. With a gateway, a
// delivery_verified event is only trusted after the verification service
// confirms it; the gateway's values replace whatever the message carried.
func makeVerificationHandler(p eventHandler, gw verificationReader, logger logx.Logger) kafka.HandleFunc {
	if logger == nil {
		logger = logx.Nop()
	}
	return func(ctx context.Context, event verification.Event) error {
		if gw == nil || !strings.EqualFold(strings.TrimSpace(event.Event), "delivery_verified") {
			return p.Handle(ctx, event)
		}

		gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
		defer cancel()

		v, err := gw.GetByParcelID(gwCtx, event.ParcelID)
		if err != nil {
			return err
		}
		if v == nil {
			logger.Warn("verification unknown to verification service",
				logx.Int64("parcel_id", event.ParcelID),
			)
			return nil
		}
		if !v.Completed() {
			return kafka.Permanent(fmt.Errorf("verification of parcel %d is %s, not final", event.ParcelID, v.Status))
		}

		event.RiderID = v.RiderID
		event.SelectedStatus = v.SelectedStatus
		event.CollectedAmount = v.CollectedAmount
		event.ExpectedCODAmount = v.ExpectedCODAmount
		if !v.VerifiedAt.IsZero() {
			event.VerifiedAt = v.VerifiedAt
		}
		return p.Handle(ctx, event)
	}
}

var _ invoiceGenerator = (*invoice.Service)(nil)
