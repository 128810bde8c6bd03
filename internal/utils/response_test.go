package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-booking/internal/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorUsesCategoryStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, apperror.OrderNotFound("o-1")))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "NOT_FOUND", body.Message)
	assert.Equal(t, "order o-1 not found", body.Error)
}

func TestWriteErrorUnknownIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteErrorWithData(rec, errors.New("boom"), map[string]string{"orderId": "o-1"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"boom"`)
	assert.Contains(t, rec.Body.String(), `"orderId":"o-1"`)
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[GenerateRequestID()] = true
	}
	assert.Len(t, seen, 50)

	_, err := uuid.Parse(GenerateRequestID())
	assert.NoError(t, err)
}
