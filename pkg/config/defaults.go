package config

import "time"

const (
	DefaultMongoURI             = "mongodb://localhost:27017"
	DefaultMongoDatabaseName    = "hotelbook"
	DefaultMongoConnTimeout     = 10 * time.Second
	DefaultMongoUseTransactions = false

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMaxPageLimit = 100

	DefaultIntegrityMaxRetries    = 3
	DefaultIntegrityRetryInterval = 50 * time.Millisecond

	DefaultRedisDB      = 0
	DefaultRedisTimeout = 5 * time.Second
)
