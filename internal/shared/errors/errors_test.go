package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
)

var errSentinel = apperrors.New(apperrors.ErrCodeNotPending, "entry is not pending")

func TestKind_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("resolve withdrawal: %w", errSentinel)

	assert.Equal(t, apperrors.ErrCodeNotPending, apperrors.Kind(err))
	assert.True(t, stderrors.Is(err, errSentinel))
	assert.True(t, apperrors.IsConflict(err))
}

func TestKind_PlainErrorIsStorage(t *testing.T) {
	err := fmt.Errorf("failed to update wallet: %w", stderrors.New("connection reset"))

	assert.Equal(t, apperrors.ErrCodeStorage, apperrors.Kind(err))
	assert.False(t, apperrors.IsConflict(err))
	assert.Equal(t, "", apperrors.Kind(nil))
}

func TestIs_FamilyMatchByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", apperrors.NotFound("offering"))

	assert.True(t, stderrors.Is(err, apperrors.New(apperrors.ErrCodeNotFound, "")))
	assert.False(t, stderrors.Is(err, apperrors.New(apperrors.ErrCodeConflict, "")))
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	storage := apperrors.Storage("failed to append entry", stderrors.New("pq: relation does not exist"))
	assert.Equal(t, "internal error", apperrors.PublicMessage(storage))
	assert.Equal(t, "internal error", apperrors.PublicMessage(stderrors.New("boom")))

	wrapped := apperrors.Wrap(stderrors.New("dial tcp: timeout"), apperrors.ErrCodeGatewayUnavailable, "payment gateway unavailable")
	assert.Equal(t, "payment gateway unavailable", apperrors.PublicMessage(wrapped))
	assert.NotContains(t, apperrors.PublicMessage(wrapped), "dial tcp")
}
