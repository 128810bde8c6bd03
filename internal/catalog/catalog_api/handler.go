package catalog_api

import (
	"context"
	"fmt"
	"net/http"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type CatalogReader interface {
	GetServiceDetails(ctx context.Context, id string) (*models.ServiceDetails, error)
}

type Handler struct {
	Catalog CatalogReader
	Logger  *logger.Logger
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceId")
	h.Logger.Info("API", fmt.Sprintf("GetService: serviceId=%s", serviceID))

	details, err := h.Catalog.GetServiceDetails(r.Context(), serviceID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetService: %v", err))
		utils.WriteError(w, err)
		return
	}

	if err := utils.WriteSuccess(w, http.StatusOK, "service retrieved", details); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetService: failed to encode response: %v", err))
	}
}
