package kafka_middleware

import (
	"context"

	"hotelbook/pkg/kafka"
	"hotelbook/pkg/metrics"
)

// MetricsProducerMiddleware counts publishes per topic and outcome.
func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		metrics.ObservePublish(msg.Topic, err)
		return err
	}
}
