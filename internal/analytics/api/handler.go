package analytics_api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/analytics"
	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type AnalyticsService interface {
	GetOrderStats(ctx context.Context) (*analytics.OrderStats, error)
	GetRevenueByService(ctx context.Context, p analytics.Period) ([]analytics.ServiceRevenue, error)
	GetDiscountUsage(ctx context.Context, p analytics.Period) ([]analytics.DiscountUsage, error)
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service AnalyticsService
	Logger  *logger.Logger
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/orders", h.GetOrderStats)
		r.Get("/services/revenue", h.GetRevenueByService)
		r.Get("/discounts", h.GetDiscountUsage)
	})
}

func (h *Handler) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetOrderStats(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("GetOrderStats: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "order stats retrieved", stats)
}

func (h *Handler) GetRevenueByService(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	revenue, err := h.Service.GetRevenueByService(r.Context(), p)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("GetRevenueByService: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "revenue retrieved", revenue)
}

func (h *Handler) GetDiscountUsage(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	usage, err := h.Service.GetDiscountUsage(r.Context(), p)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("GetDiscountUsage: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "discount usage retrieved", usage)
}

// periodFromQuery reads from/to as YYYY-MM-DD dates; to is inclusive.
func periodFromQuery(r *http.Request) (analytics.Period, error) {
	const layout = "2006-01-02"
	q := r.URL.Query()
	from, err := time.Parse(layout, q.Get("from"))
	if err != nil {
		return analytics.Period{}, apperror.NewValidation("from must be a YYYY-MM-DD date")
	}
	to, err := time.Parse(layout, q.Get("to"))
	if err != nil {
		return analytics.Period{}, apperror.NewValidation("to must be a YYYY-MM-DD date")
	}
	return analytics.Period{From: from, To: to.AddDate(0, 0, 1)}, nil
}
