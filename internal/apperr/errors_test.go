package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"parcelhub/internal/apperr"
)

func TestError_IsMatchesKind(t *testing.T) {
	t.Parallel()

	err := apperr.Conflictf("parcel %d is %s", 1, "IN_HUB")
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.NotErrorIs(t, err, apperr.ErrInvalid)
	require.Equal(t, "state conflict: parcel 1 is IN_HUB", err.Error())
}

func TestError_CustodyMismatchIsAlsoConflict(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("receive: %w", apperr.Custodyf("not yours to receive"))
	require.ErrorIs(t, err, apperr.ErrCustodyMismatch)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, apperr.KindCustodyMismatch, apperr.KindOf(err))
}

func TestError_ConflictIsNotCustody(t *testing.T) {
	t.Parallel()

	require.NotErrorIs(t, apperr.Conflictf("x"), apperr.ErrCustodyMismatch)
}

func TestTransient_UnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := apperr.Transient(cause)
	require.ErrorIs(t, err, apperr.ErrTransient)
	require.ErrorIs(t, err, cause)
	require.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want apperr.Kind
	}{
		{nil, ""},
		{apperr.Invalidf("x"), apperr.KindValidation},
		{apperr.ErrInvalid, apperr.KindValidation},
		{apperr.NotFoundf("x"), apperr.KindNotFound},
		{apperr.Inconsistentf("x"), apperr.KindLedgerInconsistency},
		{errors.New("boom"), apperr.KindInternal},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, apperr.KindOf(tc.err))
	}
}

func TestPublicMessage_HidesInternals(t *testing.T) {
	t.Parallel()

	require.Equal(t, "collected_amount is required", apperr.PublicMessage(apperr.Invalidf("collected_amount is required")))
	require.Equal(t, "internal error", apperr.PublicMessage(errors.New("pq: secret detail")))
	require.Equal(t, "internal error", apperr.PublicMessage(apperr.Inconsistentf("merchant 7 balance drift")))
	require.Equal(t, "temporarily unavailable, retry", apperr.PublicMessage(apperr.Transient(errors.New("x"))))
	require.Equal(t, "not found", apperr.PublicMessage(apperr.ErrNotFound))
}
