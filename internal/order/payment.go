package order

import (
	"context"
	"errors"
	"fmt"

	"ms-booking/internal/apperror"
	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/voucher"
)

// RetryPayment issues a fresh payment link for a PENDING order whose first
// attempt failed or expired.
func (s *OrderService) RetryPayment(ctx context.Context, id auth.Identity, orderID string) (string, error) {
	order, err := s.ownedOrder(ctx, id, orderID)
	if err != nil {
		return "", err
	}
	if order.Status != models.OrderStatusPending {
		return "", apperror.InvalidStateTransition(orderID, string(order.Status), string(models.OrderStatusPending))
	}
	s.logger.LogPayment("RETRY", orderID, "requesting new payment link")
	return s.requestPayment(ctx, *order)
}

// PaymentStatus asks the gateway how the order's last payment request went.
func (s *OrderService) PaymentStatus(ctx context.Context, id auth.Identity, orderID string) (*models.PaymentStatusResponse, error) {
	order, err := s.ownedOrder(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentRequestID == "" {
		return nil, apperror.NewValidation("order has no payment request yet")
	}

	status, err := s.Payments.QueryTransactionStatus(ctx, orderID, order.PaymentRequestID)
	if err != nil {
		return nil, err
	}
	return &models.PaymentStatusResponse{
		OrderID:     orderID,
		OrderStatus: order.Status,
		RequestID:   status.RequestID,
		ErrorCode:   status.ErrorCode.String(),
		Message:     status.Message,
		TransID:     status.TransID.String(),
		Amount:      status.Amount.String(),
		PayType:     status.PayType,
	}, nil
}

// Voucher renders the QR voucher of a paid order.
func (s *OrderService) Voucher(ctx context.Context, id auth.Identity, orderID string) ([]byte, error) {
	order, err := s.ownedOrder(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusSuccess {
		return nil, apperror.New(apperror.StateConflict, fmt.Sprintf("order %s is %s, vouchers are issued for paid orders only", orderID, order.Status), nil)
	}

	full, err := s.DB.GetOrderWithLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	png, err := s.Vouchers.PNG(voucher.PayloadFor(*full, s.now()))
	if err != nil {
		return nil, apperror.NewInternal("failed to generate voucher", err)
	}
	s.logger.LogOrder("VOUCHER", orderID, "voucher issued")
	return png, nil
}

// VerifyVoucher decodes a scanned token and checks it still names a paid
// order.
func (s *OrderService) VerifyVoucher(ctx context.Context, id auth.Identity, token string) (*voucher.Payload, error) {
	if !id.HasRole(models.RoleAdmin, models.RoleProvider) {
		return nil, apperror.NewForbidden("only staff can verify vouchers")
	}
	payload, err := s.Vouchers.Decrypt(token)
	if err != nil {
		if errors.Is(err, voucher.ErrInvalidToken) {
			return nil, apperror.NewValidation("voucher is not valid")
		}
		return nil, apperror.NewInternal("failed to read voucher", err)
	}

	order, err := s.DB.GetOrderByID(ctx, payload.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusSuccess {
		return nil, apperror.New(apperror.StateConflict, fmt.Sprintf("order %s is %s", order.OrderID, order.Status), nil)
	}
	s.logger.LogSecurity("VOUCHER_VERIFIED", fmt.Sprintf("order %s checked by %s", order.OrderID, id.UserID))
	return payload, nil
}
