package momo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/config"
	"ms-booking/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(config.MomoConfig{
		PartnerCode:    "MOMO_PARTNER",
		AccessKey:      "access",
		SecretKey:      "secret",
		CreateOrderURL: server.URL + "/create",
		QueryStatusURL: server.URL + "/query",
		ReturnURL:      "http://localhost/return",
		NotifyURL:      "http://localhost/ipn",
		Timeout:        2 * time.Second,
	}, logger.Discard())
	c.newRequestID = func() string { return "req-1" }
	return c
}

func TestSignKnownVector(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		sign("key", "The quick brown fox jumps over the lazy dog"))
}

func TestCreatePaymentSuccess(t *testing.T) {
	var got createRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"errorCode":0,"message":"Success","payUrl":"https://pay.example/o-1","requestId":"req-1","orderId":"o-1"}`))
	})

	res, err := c.CreatePayment(context.Background(), "o-1", 160000)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/o-1", res.PayURL)
	assert.Equal(t, "req-1", res.RequestID)

	assert.Equal(t, "160000", got.Amount)
	assert.Equal(t, requestTypeCapture, got.RequestType)
	expectedData := "partnerCode=MOMO_PARTNER&accessKey=access&requestId=req-1&amount=160000&orderId=o-1" +
		"&orderInfo=Payment for order o-1&returnUrl=http://localhost/return&notifyUrl=http://localhost/ipn&extraData="
	assert.Equal(t, sign("secret", expectedData), got.Signature)
}

func TestCreatePaymentRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errorCode":"49","message":"Invalid amount","localMessage":"So tien khong hop le"}`))
	})

	res, err := c.CreatePayment(context.Background(), "o-1", 1)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, apperror.PaymentProvider, apperror.CategoryOf(err))

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "49", perr.Code)
	assert.Equal(t, "Invalid amount", perr.Message)
	assert.Equal(t, "So tien khong hop le", perr.LocalMessage)
}

func TestCreatePaymentHTTPFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})

	_, err := c.CreatePayment(context.Background(), "o-1", 1000)
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "HTTP_503", perr.Code)
	assert.Equal(t, http.StatusBadGateway, apperror.StatusOf(err))
}

func TestCreatePaymentHonorsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.CreatePayment(ctx, "o-1", 1000)
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "NETWORK", perr.Code)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestQueryTransactionStatus(t *testing.T) {
	var got statusRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"errorCode":"0","message":"Success","amount":160000,"transId":2147483648,"payType":"qr","orderId":"o-1","requestId":"req-9"}`))
	})

	status, err := c.QueryTransactionStatus(context.Background(), "o-1", "req-9")
	require.NoError(t, err)
	assert.True(t, status.Paid())
	assert.Equal(t, "160000", status.Amount.String())
	assert.Equal(t, "2147483648", status.TransID.String())

	assert.Equal(t, requestTypeStatus, got.RequestType)
	assert.Equal(t, sign("secret", "partnerCode=MOMO_PARTNER&accessKey=access&requestId=req-9&orderId=o-1&requestType=transactionStatus"), got.Signature)
}

func TestQueryTransactionStatusUnpaidIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errorCode":1006,"message":"Transaction denied by user"}`))
	})

	status, err := c.QueryTransactionStatus(context.Background(), "o-1", "req-9")
	require.NoError(t, err)
	assert.False(t, status.Paid())
	assert.Equal(t, "1006", status.ErrorCode.String())
}

func TestNotificationSignature(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(`{
		"partnerCode":"MOMO_PARTNER","orderId":"o-1","requestId":"req-1","amount":160000,
		"orderInfo":"Payment for order o-1","orderType":"momo_wallet","transId":4088878653,
		"resultCode":0,"message":"Successful.","payType":"qr","responseTime":1721720663942,"extraData":""
	}`), &n))

	expected := sign("secret", "accessKey=access&amount=160000&extraData=&message=Successful.&orderId=o-1"+
		"&orderInfo=Payment for order o-1&orderType=momo_wallet&partnerCode=MOMO_PARTNER&payType=qr"+
		"&requestId=req-1&responseTime=1721720663942&resultCode=0&transId=4088878653")
	assert.Equal(t, expected, c.SignNotification(n))

	assert.False(t, c.VerifyNotification(n), "missing signature")
	n.Signature = expected
	assert.True(t, c.VerifyNotification(n))
	n.ResultCode = 1006
	assert.False(t, c.VerifyNotification(n), "tampered result code")
}

func TestNotificationFromQuery(t *testing.T) {
	n, err := NotificationFromQuery(url.Values{"orderId": {"o-1"}, "resultCode": {"1006"}, "transId": {"77"}})
	require.NoError(t, err)
	assert.Equal(t, "o-1", n.OrderID)
	assert.False(t, n.Succeeded())
	assert.Equal(t, "77", n.TransID.String())

	_, err = NotificationFromQuery(url.Values{"resultCode": {"0"}})
	assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))

	_, err = NotificationFromQuery(url.Values{"orderId": {"o-1"}, "resultCode": {"abc"}})
	assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))
}

func TestNotificationRespondedAt(t *testing.T) {
	n := Notification{ResponseTime: flexString("1750000000000")}
	assert.Equal(t, time.UnixMilli(1750000000000).UTC(), n.RespondedAt())
	assert.True(t, Notification{}.RespondedAt().IsZero())
}
