package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbook/pkg/kafka"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []segkafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func header(m segkafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	pub := NewKafkaPublisher(kafka.NewProducerWithWriter(w, "bookings.events"), logger.Discard())

	b := &model.Booking{
		ID:       "65a1f0c2e4b0a1b2c3d4e5f6",
		Hotel:    "65a1f0c2e4b0a1b2c3d4e5a1",
		User:     "65a1f0c2e4b0a1b2c3d4e5c3",
		CheckIn:  time.Date(2030, 1, 1, 14, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2030, 1, 3, 12, 0, 0, 0, time.UTC),
	}
	ctx := logger.WithRequestID(context.Background(), "req-1")

	pub.Publish(ctx, TypeCreated, b)

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, b.ID, string(m.Key))
	assert.Equal(t, TypeCreated, header(m, kafka.HeaderEventType))
	assert.Equal(t, "req-1", header(m, kafka.HeaderCorrelationID))
	assert.Equal(t, Source, header(m, kafka.HeaderSource))

	var got model.Booking
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, b.Hotel, got.Hotel)
	assert.True(t, b.CheckIn.Equal(got.CheckIn))
}

func TestKafkaPublisher_FailureIsSwallowed(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	pub := NewKafkaPublisher(kafka.NewProducerWithWriter(w, "bookings.events"), logger.Discard())

	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), TypeDeleted, &model.Booking{ID: "b1"})
	})
	assert.Empty(t, w.msgs)
}
