//go:generate mockgen -source=contracts.go -destination=verification_mocks_test.go -package=verification_test

package verification

import (
	"context"

	"parcelhub/internal/domain"
)

// OutcomePort is the subset of the parcel state machine the processor drives.
type OutcomePort interface {
	ApplyOutcome(ctx context.Context, scope domain.Scope, in domain.VerificationResult) (domain.TransitionResult, error)
	Get(ctx context.Context, id int64) (domain.Parcel, error)
}
