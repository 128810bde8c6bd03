package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappedErrorKeepsCategoryAndSentinel(t *testing.T) {
	err := fmt.Errorf("create order: %w", CatalogItemNotFound("ticket", "t-42"))

	assert.True(t, errors.Is(err, ErrCatalogItemNotFound))
	assert.Equal(t, NotFound, CategoryOf(err))
	assert.Equal(t, http.StatusNotFound, StatusOf(err))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "ticket t-42 not found", appErr.PublicError)
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := errors.New("connection reset")

	assert.Equal(t, Internal, CategoryOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
}

func TestInternalMessageStaysOutOfPublicError(t *testing.T) {
	err := NewPaymentProvider("payment link unavailable", errors.New("dial tcp: timeout")).
		WithInternal("momo create for order %s", "o-1")

	assert.Equal(t, "payment link unavailable", err.PublicError)
	assert.Contains(t, err.Error(), "momo create for order o-1")
	assert.Contains(t, err.Error(), "dial tcp: timeout")
	assert.Equal(t, http.StatusBadGateway, err.StatusCode)
}

func TestStateTransitionError(t *testing.T) {
	err := InvalidStateTransition("o-1", "SUCCESS", "FAILED")

	assert.True(t, errors.Is(err, ErrInvalidStateTransition))
	assert.True(t, Is(err, StateConflict))
	assert.Equal(t, http.StatusConflict, StatusOf(err))
}
