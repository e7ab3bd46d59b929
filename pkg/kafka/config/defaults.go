package kafka_config

import "time"

const (
	// empty disables publishing
	DefaultKafkaBrokers  = ""
	DefaultBookingsTopic = "bookings.events"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
)
