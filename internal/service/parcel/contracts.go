package parcel

import (
	"context"
	"time"

	"parcelhub/internal/domain"
	"parcelhub/internal/ports/storetx"
	"parcelhub/internal/service/ledger"
)

// Poster posts ledger rows inside the caller's transaction.
type Poster interface {
	Post(ctx context.Context, tx storetx.LedgerStore, now time.Time, in ledger.Posting) (ledger.Result, error)
}

// Publisher emits committed parcel events to downstream consumers.
type Publisher interface {
	PublishParcelEvent(ctx context.Context, e domain.ParcelEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// PublishParcelEvent does nothing.
func (NopPublisher) PublishParcelEvent(context.Context, domain.ParcelEvent) error { return nil }
