package momo

import (
	"crypto/hmac"
	"net/url"
	"strconv"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/utils"
)

// Notification is the payment result the gateway delivers, either on the
// browser return URL as query parameters or as the IPN JSON body.
type Notification struct {
	PartnerCode  string     `json:"partnerCode"`
	OrderID      string     `json:"orderId"`
	RequestID    string     `json:"requestId"`
	Amount       flexString `json:"amount"`
	OrderInfo    string     `json:"orderInfo"`
	OrderType    string     `json:"orderType"`
	TransID      flexString `json:"transId"`
	ResultCode   int        `json:"resultCode"`
	Message      string     `json:"message"`
	PayType      string     `json:"payType"`
	ResponseTime flexString `json:"responseTime"`
	ExtraData    string     `json:"extraData"`
	Signature    string     `json:"signature"`
}

func (n Notification) Succeeded() bool {
	return n.ResultCode == 0
}

// RespondedAt is the gateway's response time, sent as Unix milliseconds. It
// is zero when absent or malformed.
func (n Notification) RespondedAt() time.Time {
	ms, err := strconv.ParseInt(n.ResponseTime.String(), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return utils.UnixMilliToTime(ms).UTC()
}

// NotificationFromQuery reads a notification from return URL parameters.
// orderId and an integer resultCode are required.
func NotificationFromQuery(q url.Values) (Notification, error) {
	orderID := q.Get("orderId")
	if orderID == "" {
		return Notification{}, apperror.NewValidation("orderId is required")
	}
	resultCode, err := strconv.Atoi(q.Get("resultCode"))
	if err != nil {
		return Notification{}, apperror.NewValidation("resultCode must be an integer")
	}

	return Notification{
		PartnerCode:  q.Get("partnerCode"),
		OrderID:      orderID,
		RequestID:    q.Get("requestId"),
		Amount:       flexString(q.Get("amount")),
		OrderInfo:    q.Get("orderInfo"),
		OrderType:    q.Get("orderType"),
		TransID:      flexString(q.Get("transId")),
		ResultCode:   resultCode,
		Message:      q.Get("message"),
		PayType:      q.Get("payType"),
		ResponseTime: flexString(q.Get("responseTime")),
		ExtraData:    q.Get("extraData"),
		Signature:    q.Get("signature"),
	}, nil
}

// notificationSignatureData is the alphabetical key=value string the gateway
// signs result notifications with.
func notificationSignatureData(accessKey string, n Notification) string {
	return "accessKey=" + accessKey +
		"&amount=" + n.Amount.String() +
		"&extraData=" + n.ExtraData +
		"&message=" + n.Message +
		"&orderId=" + n.OrderID +
		"&orderInfo=" + n.OrderInfo +
		"&orderType=" + n.OrderType +
		"&partnerCode=" + n.PartnerCode +
		"&payType=" + n.PayType +
		"&requestId=" + n.RequestID +
		"&responseTime=" + n.ResponseTime.String() +
		"&resultCode=" + strconv.Itoa(n.ResultCode) +
		"&transId=" + n.TransID.String()
}

// SignNotification computes the signature the gateway would attach to n.
func (c *Client) SignNotification(n Notification) string {
	return c.Sign(notificationSignatureData(c.cfg.AccessKey, n))
}

// VerifyNotification reports whether n carries a valid gateway signature.
func (c *Client) VerifyNotification(n Notification) bool {
	if n.Signature == "" {
		return false
	}
	expected := c.SignNotification(n)
	return hmac.Equal([]byte(expected), []byte(n.Signature))
}
