package catalog_api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type stubCatalog map[string]*models.ServiceDetails

func (s stubCatalog) GetServiceDetails(_ context.Context, id string) (*models.ServiceDetails, error) {
	if d, ok := s[id]; ok {
		return d, nil
	}
	return nil, apperror.CatalogItemNotFound("service", id)
}

func TestGetService(t *testing.T) {
	h := &Handler{
		Catalog: stubCatalog{"svc-1": {Service: models.Service{ID: "svc-1", ServiceName: "Riverside"}}},
		Logger:  logger.Discard(),
	}
	r := chi.NewRouter()
	r.Get("/api/services/{serviceId}", h.GetService)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/services/svc-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Riverside")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/services/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "service missing not found")
}
