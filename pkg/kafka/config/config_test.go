package kafka_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DisabledByDefault(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "")

	cfg := Load()

	assert.False(t, cfg.Enabled())
	assert.Equal(t, DefaultBookingsTopic, cfg.BookingsTopic)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_SplitsBrokers(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv(EnvKafkaBookingsTopic, "bookings.v2")

	cfg := Load()

	assert.True(t, cfg.Enabled())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, "bookings.v2", cfg.BookingsTopic)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		Brokers:              []string{"k:9092"},
		ProducerMaxAttempts:  0,
		ProducerBatchTimeout: time.Millisecond,
		ProducerRequireAcks:  7,
		ProducerCompression:  "brotli",
	}

	err := cfg.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "1. BookingsTopic cannot be empty")
	assert.Contains(t, err.Error(), "ProducerCompression")
	assert.Contains(t, err.Error(), "ProducerRequireAcks")
}
