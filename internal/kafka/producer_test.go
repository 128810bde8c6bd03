package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ms-booking/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesKeyedJSON(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w, logger: logger.Discard()}

	err := p.Publish(context.Background(), "booking.order.created", "o-1", map[string]string{"orderId": "o-1"})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "booking.order.created", msg.Topic)
	assert.Equal(t, "o-1", string(msg.Key))

	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "o-1", body["orderId"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{writer: &recordingWriter{err: boom}, logger: logger.Discard()}

	err := p.Publish(context.Background(), "t", "k", struct{}{})
	assert.ErrorIs(t, err, boom)
}

func TestPublishRejectsUnmarshalableValue(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w, logger: logger.Discard()}

	err := p.Publish(context.Background(), "t", "k", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, w.messages)
}

func TestEnsureTopicsNeedsBrokers(t *testing.T) {
	assert.Error(t, EnsureTopicsExist(context.Background(), nil, []string{"t"}, logger.Discard()))
}
