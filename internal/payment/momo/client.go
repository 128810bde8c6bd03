// Package momo talks to the MoMo wallet gateway: payment-link creation,
// transaction status queries, and verification of the provider's callbacks.
package momo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ms-booking/internal/apperror"
	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/utils"
)

const (
	requestTypeCapture = "captureMoMoWallet"
	requestTypeStatus  = "transactionStatus"
)

type Client struct {
	cfg          config.MomoConfig
	httpClient   *http.Client
	logger       *logger.Logger
	newRequestID func() string
}

func NewClient(cfg config.MomoConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       log,
		newRequestID: utils.GenerateRequestID,
	}
}

// PaymentResult is what the order flow needs from a created payment link.
type PaymentResult struct {
	PayURL    string
	RequestID string
}

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      string `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	ReturnURL   string `json:"returnUrl"`
	NotifyURL   string `json:"notifyUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Signature   string `json:"signature"`
}

type createResponse struct {
	RequestID    string     `json:"requestId"`
	OrderID      string     `json:"orderId"`
	ErrorCode    flexString `json:"errorCode"`
	Message      string     `json:"message"`
	LocalMessage string     `json:"localMessage"`
	PayURL       string     `json:"payUrl"`
	RequestType  string     `json:"requestType"`
	Signature    string     `json:"signature"`
}

type statusRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	OrderID     string `json:"orderId"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
}

// TransactionStatus is the provider's view of a payment. A non-zero
// ErrorCode is a normal answer here (unpaid, cancelled, unknown).
type TransactionStatus struct {
	RequestID    string     `json:"requestId"`
	OrderID      string     `json:"orderId"`
	ExtraData    string     `json:"extraData"`
	Amount       flexString `json:"amount"`
	TransID      flexString `json:"transId"`
	PayType      string     `json:"payType"`
	ErrorCode    flexString `json:"errorCode"`
	Message      string     `json:"message"`
	LocalMessage string     `json:"localMessage"`
	RequestType  string     `json:"requestType"`
	Signature    string     `json:"signature"`
}

func (s *TransactionStatus) Paid() bool {
	return s.ErrorCode.String() == "0"
}

// Sign returns the hex HMAC-SHA256 of data under the partner secret.
func (c *Client) Sign(data string) string {
	return sign(c.cfg.SecretKey, data)
}

func sign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// createSignatureData lays the fields out in the order the gateway hashes
// them. requestType is sent but not signed.
func createSignatureData(r createRequest) string {
	return "partnerCode=" + r.PartnerCode +
		"&accessKey=" + r.AccessKey +
		"&requestId=" + r.RequestID +
		"&amount=" + r.Amount +
		"&orderId=" + r.OrderID +
		"&orderInfo=" + r.OrderInfo +
		"&returnUrl=" + r.ReturnURL +
		"&notifyUrl=" + r.NotifyURL +
		"&extraData=" + r.ExtraData
}

func statusSignatureData(r statusRequest) string {
	return "partnerCode=" + r.PartnerCode +
		"&accessKey=" + r.AccessKey +
		"&requestId=" + r.RequestID +
		"&orderId=" + r.OrderID +
		"&requestType=" + r.RequestType
}

// CreatePayment asks the gateway for a payment link for amount (whole VND).
// A rejected request comes back as a PAYMENT_PROVIDER apperror wrapping a
// *ProviderError.
func (c *Client) CreatePayment(ctx context.Context, orderID string, amount int64) (*PaymentResult, error) {
	req := createRequest{
		PartnerCode: c.cfg.PartnerCode,
		AccessKey:   c.cfg.AccessKey,
		RequestID:   c.newRequestID(),
		Amount:      strconv.FormatInt(amount, 10),
		OrderID:     orderID,
		OrderInfo:   "Payment for order " + orderID,
		ReturnURL:   c.cfg.ReturnURL,
		NotifyURL:   c.cfg.NotifyURL,
		RequestType: requestTypeCapture,
		ExtraData:   "",
	}
	req.Signature = c.Sign(createSignatureData(req))

	c.logger.LogPayment("CREATE", orderID, fmt.Sprintf("Requesting payment link: requestId=%s amount=%s", req.RequestID, req.Amount))

	var res createResponse
	if err := c.post(ctx, c.cfg.CreateOrderURL, req, &res); err != nil {
		c.logger.LogPayment("CREATE_FAILED", orderID, err.Error())
		return nil, apperror.NewPaymentProvider("payment provider is unavailable", err)
	}

	if res.ErrorCode.String() != "0" {
		perr := &ProviderError{Code: res.ErrorCode.String(), Message: res.Message, LocalMessage: res.LocalMessage}
		c.logger.LogPayment("CREATE_REJECTED", orderID, perr.Error())
		return nil, apperror.NewPaymentProvider(fmt.Sprintf("payment provider rejected the request: %s", res.Message), perr)
	}
	if res.PayURL == "" {
		perr := &ProviderError{Code: res.ErrorCode.String(), Message: "response carried no payUrl"}
		c.logger.LogPayment("CREATE_REJECTED", orderID, perr.Error())
		return nil, apperror.NewPaymentProvider("payment provider returned no payment link", perr)
	}

	c.logger.LogPayment("CREATED", orderID, fmt.Sprintf("Payment link ready: requestId=%s", req.RequestID))
	return &PaymentResult{PayURL: res.PayURL, RequestID: req.RequestID}, nil
}

// QueryTransactionStatus asks the gateway for the state of a payment
// previously created with requestID.
func (c *Client) QueryTransactionStatus(ctx context.Context, orderID, requestID string) (*TransactionStatus, error) {
	req := statusRequest{
		PartnerCode: c.cfg.PartnerCode,
		AccessKey:   c.cfg.AccessKey,
		RequestID:   requestID,
		OrderID:     orderID,
		RequestType: requestTypeStatus,
	}
	req.Signature = c.Sign(statusSignatureData(req))

	var res TransactionStatus
	if err := c.post(ctx, c.cfg.QueryStatusURL, req, &res); err != nil {
		c.logger.LogPayment("STATUS_FAILED", orderID, err.Error())
		return nil, apperror.NewPaymentProvider("payment provider is unavailable", err)
	}

	c.logger.LogPayment("STATUS", orderID, fmt.Sprintf("errorCode=%s message=%q", res.ErrorCode, res.Message))
	return &res, nil
}

func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal momo request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build momo request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &ProviderError{Code: "NETWORK", Message: "request to payment provider failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Code: "NETWORK", Message: "failed to read payment provider response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ProviderError{Code: "DECODE", Message: "unreadable payment provider response", Err: err}
	}
	return nil
}
