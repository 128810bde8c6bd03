package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
	"ms-booking/internal/order/discount"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

// SatisfiedDiscounts lists the discounts usable for a service, province or
// category.
func (h *Handler) SatisfiedDiscounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := discount.SatisfiedQuery{
		ServiceID:    q.Get("serviceId"),
		ProvinceCode: q.Get("provinceCode"),
		Category:     models.ServiceType(q.Get("category")),
	}
	if query.Category != "" && !query.Category.Valid() {
		utils.WriteError(w, apperror.NewValidation(fmt.Sprintf("unknown category %q", query.Category)))
		return
	}

	found, err := h.Discounts.ResolveSatisfiedDiscounts(r.Context(), query)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SatisfiedDiscounts: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "discounts retrieved", found)
}

func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	found, err := h.Discounts.ListDiscounts(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListDiscounts: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "discounts retrieved", found)
}

func (h *Handler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.Discounts.GetDiscount(r.Context(), chi.URLParam(r, "discountId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "discount retrieved", d)
}

func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req models.DiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateDiscount: failed to decode request body: %v", err))
		utils.WriteError(w, apperror.NewValidation("invalid request body"))
		return
	}

	d, err := h.Discounts.CreateDiscount(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateDiscount: %v", err))
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateDiscount: created %s (%s)", d.ID, d.Code))
	utils.WriteSuccess(w, http.StatusCreated, "discount created", d)
}

func (h *Handler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	discountID := chi.URLParam(r, "discountId")

	var req models.DiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperror.NewValidation("invalid request body"))
		return
	}

	d, err := h.Discounts.UpdateDiscount(r.Context(), discountID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateDiscount: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "discount updated", d)
}

func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	discountID := chi.URLParam(r, "discountId")
	h.Logger.Info("API", fmt.Sprintf("DeleteDiscount: discountId=%s", discountID))

	if err := h.Discounts.DeleteDiscount(r.Context(), discountID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteDiscount: %v", err))
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
