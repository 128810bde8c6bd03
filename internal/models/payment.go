package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderEvent is the payload published on order lifecycle topics.
type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        string          `json:"orderId"`
	UserID         string          `json:"userId"`
	Status         OrderStatus     `json:"status"`
	PreviousStatus OrderStatus     `json:"previousStatus,omitempty"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
	Timestamp      time.Time       `json:"timestamp"`
}

const (
	OrderEventCreated       = "ORDER_CREATED"
	OrderEventStatusChanged = "ORDER_STATUS_CHANGED"
)

// PaymentStatusResponse is the reconciliation view of a provider transaction.
type PaymentStatusResponse struct {
	OrderID     string      `json:"orderId"`
	OrderStatus OrderStatus `json:"orderStatus"`
	RequestID   string      `json:"requestId"`
	ErrorCode   string      `json:"errorCode"`
	Message     string      `json:"message"`
	TransID     string      `json:"transId,omitempty"`
	Amount      string      `json:"amount,omitempty"`
	PayType     string      `json:"payType,omitempty"`
}

type VoucherVerifyRequest struct {
	Token string `json:"token"`
}
