package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8084", cfg.Server.Port)
	assert.True(t, cfg.Order.RoomWeight.Equal(decimal.RequireFromString("0.3")))
	assert.True(t, cfg.Order.DepositRate.Equal(decimal.RequireFromString("0.3")))
	assert.Equal(t, "total", cfg.Order.PaymentAmountBasis)
	assert.Equal(t, 10*time.Second, cfg.Momo.Timeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Momo.VerifyCallbackSignature)
	assert.Equal(t, 500*time.Millisecond, cfg.Momo.CallbackBusyRetry)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("MOMO_TIMEOUT", "3s")
	t.Setenv("ORDER_ROOM_WEIGHT", "1")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("DB_CONNECT_RETRIES", "not-a-number")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Momo.Timeout)
	assert.True(t, cfg.Order.RoomWeight.Equal(decimal.NewFromInt(1)))
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 5, cfg.Database.ConnectRetries)
}
