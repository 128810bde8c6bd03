package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
	"ms-booking/internal/payment/momo"
	"ms-booking/internal/utils"
)

const (
	callbackStatusError = "ERROR"
	// callbackStatusProcessing means the IPN was still settling the order;
	// the confirmation page polls the order for the outcome.
	callbackStatusProcessing = "PROCESSING"

	defaultBusyRetryDelay = 500 * time.Millisecond
)

// MomoCallback handles the browser return from the gateway. It always ends in
// a redirect to the confirmation page, whose status parameter tells the
// outcome apart.
func (h *Handler) MomoCallback(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "MomoCallback: received return")

	n, err := momo.NotificationFromQuery(r.URL.Query())
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("MomoCallback: %v", err))
		h.redirect(w, r, "", callbackStatusError)
		return
	}

	if h.VerifyCallbackSignature && !h.Momo.VerifyNotification(n) {
		h.Logger.LogSecurity("MOMO_BAD_SIGNATURE", fmt.Sprintf("return for order %s", n.OrderID))
		h.redirect(w, r, n.OrderID, callbackStatusError)
		return
	}

	order, err := h.Orders.HandleCallback(r.Context(), n.OrderID, n.ResultCode)
	if errors.Is(err, apperror.ErrOrderBusy) {
		// the IPN holds the order lock, give it a moment and look again
		h.Logger.Info("API", fmt.Sprintf("MomoCallback: order %s busy, retrying once", n.OrderID))
		if !h.waitBusy(r) {
			h.redirect(w, r, n.OrderID, callbackStatusProcessing)
			return
		}
		order, err = h.Orders.HandleCallback(r.Context(), n.OrderID, n.ResultCode)
	}

	switch {
	case err == nil:
		h.redirect(w, r, n.OrderID, string(order.Status))
	case errors.Is(err, apperror.ErrInvalidStateTransition) && order != nil:
		// the IPN usually gets there first, report what was settled
		h.redirect(w, r, n.OrderID, string(order.Status))
	case errors.Is(err, apperror.ErrOrderBusy):
		h.redirect(w, r, n.OrderID, callbackStatusProcessing)
	default:
		h.Logger.Error("API", fmt.Sprintf("MomoCallback: order %s: %v", n.OrderID, err))
		h.redirect(w, r, n.OrderID, callbackStatusError)
	}
}

// waitBusy sleeps for the busy retry delay. It reports false when the client
// went away first.
func (h *Handler) waitBusy(r *http.Request) bool {
	delay := h.BusyRetryDelay
	if delay <= 0 {
		delay = defaultBusyRetryDelay
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, orderID, status string) {
	q := url.Values{}
	if orderID != "" {
		q.Set("orderId", orderID)
	}
	q.Set("status", status)
	http.Redirect(w, r, h.ConfirmationURL+"?"+q.Encode(), http.StatusFound)
}

// MomoIPN handles the gateway's server-to-server notification. The body must
// carry a valid signature.
func (h *Handler) MomoIPN(w http.ResponseWriter, r *http.Request) {
	var n momo.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		h.Logger.Error("API", fmt.Sprintf("MomoIPN: failed to decode body: %v", err))
		utils.WriteError(w, apperror.NewValidation("invalid notification body"))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("MomoIPN: orderId=%s resultCode=%d respondedAt=%s", n.OrderID, n.ResultCode, n.RespondedAt().Format(time.RFC3339)))

	if n.OrderID == "" {
		utils.WriteError(w, apperror.NewValidation("orderId is required"))
		return
	}
	if !h.Momo.VerifyNotification(n) {
		h.Logger.LogSecurity("MOMO_BAD_SIGNATURE", fmt.Sprintf("IPN for order %s", n.OrderID))
		utils.WriteError(w, apperror.NewValidation("invalid signature"))
		return
	}

	order, err := h.Orders.HandleCallback(r.Context(), n.OrderID, n.ResultCode)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("MomoIPN: order %s: %v", n.OrderID, err))
		if order != nil {
			utils.WriteErrorWithData(w, err, map[string]models.OrderStatus{"status": order.Status})
			return
		}
		utils.WriteError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("MomoIPN: order %s is %s", order.OrderID, order.Status))
	w.WriteHeader(http.StatusNoContent)
}
