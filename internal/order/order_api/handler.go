package order_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/order/discount"
	"ms-booking/internal/payment/momo"
	"ms-booking/internal/utils"
	"ms-booking/internal/voucher"

	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	CreateOrder(ctx context.Context, id auth.Identity, req models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	ListOrders(ctx context.Context, id auth.Identity, page, size int) (*models.OrderPage, error)
	GetOrder(ctx context.Context, id auth.Identity, orderID string) (*models.OrderWithLines, error)
	UpdateOrderStatus(ctx context.Context, id auth.Identity, orderID string, to models.OrderStatus) (*models.Order, error)
	HandleCallback(ctx context.Context, orderID string, resultCode int) (*models.Order, error)
	RetryPayment(ctx context.Context, id auth.Identity, orderID string) (string, error)
	PaymentStatus(ctx context.Context, id auth.Identity, orderID string) (*models.PaymentStatusResponse, error)
	Voucher(ctx context.Context, id auth.Identity, orderID string) ([]byte, error)
	VerifyVoucher(ctx context.Context, id auth.Identity, token string) (*voucher.Payload, error)
}

type DiscountService interface {
	ResolveSatisfiedDiscounts(ctx context.Context, q discount.SatisfiedQuery) ([]models.Discount, error)
	CreateDiscount(ctx context.Context, req models.DiscountRequest) (*models.Discount, error)
	UpdateDiscount(ctx context.Context, id string, req models.DiscountRequest) (*models.Discount, error)
	GetDiscount(ctx context.Context, id string) (*models.Discount, error)
	ListDiscounts(ctx context.Context) ([]models.Discount, error)
	DeleteDiscount(ctx context.Context, id string) error
}

// NotificationVerifier checks gateway signatures on payment results.
type NotificationVerifier interface {
	VerifyNotification(n momo.Notification) bool
}

type Handler struct {
	Orders    OrderService
	Discounts DiscountService
	Momo      NotificationVerifier
	// ConfirmationURL is where the browser lands after the gateway return.
	ConfirmationURL string
	// VerifyCallbackSignature also enforces signatures on the browser return.
	VerifyCallbackSignature bool
	// BusyRetryDelay is how long the browser return waits before retrying an
	// order another callback is settling.
	BusyRetryDelay time.Duration
	Logger         *logger.Logger
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "CreateOrder: received request")

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to decode request body: %v", err))
		utils.WriteError(w, apperror.NewValidation("invalid request body"))
		return
	}

	resp, err := h.Orders.CreateOrder(r.Context(), identity(r), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
		if resp != nil {
			// the order exists, only the payment link is missing
			utils.WriteErrorWithData(w, err, resp)
			return
		}
		utils.WriteError(w, err)
		return
	}

	if err := utils.WriteSuccess(w, http.StatusCreated, "order created", resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateOrder: order %s created", resp.OrderID))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page", 0)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	size, err := intQuery(r, "size", 0)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	result, err := h.Orders.ListOrders(r.Context(), identity(r), page, size)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListOrders: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "orders retrieved", result)
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewValidation(fmt.Sprintf("%s must be an integer", key))
	}
	return v, nil
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("GetOrder: orderId=%s", orderID))

	result, err := h.Orders.GetOrder(r.Context(), identity(r), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "order retrieved", result)
}

// UpdateOrderStatus is the admin path onto the same PENDING-only transition
// the payment callbacks use.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var req models.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperror.NewValidation("invalid request body"))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpdateOrderStatus: orderId=%s status=%s", orderID, req.Status))

	updated, err := h.Orders.UpdateOrderStatus(r.Context(), identity(r), orderID, req.Status)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrderStatus: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "order status updated", updated)
}

func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("RetryPayment: orderId=%s", orderID))

	payURL, err := h.Orders.RetryPayment(r.Context(), identity(r), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RetryPayment: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "payment link created", map[string]string{
		"orderId": orderID,
		"payUrl":  payURL,
	})
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	status, err := h.Orders.PaymentStatus(r.Context(), identity(r), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PaymentStatus: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "payment status retrieved", status)
}

func (h *Handler) Voucher(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("Voucher: orderId=%s", orderID))

	png, err := h.Orders.Voucher(r.Context(), identity(r), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Voucher: %v", err))
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=voucher-%s.png", orderID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Voucher: failed to write image: %v", err))
	}
}

func (h *Handler) VerifyVoucher(w http.ResponseWriter, r *http.Request) {
	var req models.VoucherVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		utils.WriteError(w, apperror.NewValidation("token is required"))
		return
	}

	payload, err := h.Orders.VerifyVoucher(r.Context(), identity(r), req.Token)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("VerifyVoucher: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "voucher valid", payload)
}
