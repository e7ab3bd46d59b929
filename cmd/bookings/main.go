package main

import (
	"hotelbook/internal/admin"
	bookingevents "hotelbook/internal/bookings/events"
	bookinghandler "hotelbook/internal/bookings/handler"
	bookingrepo "hotelbook/internal/bookings/repository"
	bookingservice "hotelbook/internal/bookings/service"
	bookingvalidator "hotelbook/internal/bookings/validator"
	"hotelbook/internal/health"
	hotelhandler "hotelbook/internal/hotels/handler"
	hotelrepo "hotelbook/internal/hotels/repository"
	hotelservice "hotelbook/internal/hotels/service"
	hotelvalidator "hotelbook/internal/hotels/validator"
	"hotelbook/internal/integrity"
	userhandler "hotelbook/internal/users/handler"
	userrepo "hotelbook/internal/users/repository"
	userservice "hotelbook/internal/users/service"
	uservalidator "hotelbook/internal/users/validator"
	"hotelbook/pkg/app"
	"hotelbook/pkg/config"
	"hotelbook/pkg/contracts"
	"hotelbook/pkg/kafka"
	kafka_config "hotelbook/pkg/kafka/config"
	kafka_middleware "hotelbook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	publisher := initPublisher(cfg, serverApp)
	handlers := initHandlers(cfg, publisher)

	serverApp.SetApp(initHealth(cfg), handlers...)
	serverApp.Run()
}

// initPublisher returns a no-op publisher when no brokers are configured.
func initPublisher(cfg *config.Config, serverApp *app.Application) bookingevents.Publisher {
	kafkaCfg := kafka_config.Load()
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka brokers not set, booking events disabled")
		return bookingevents.NewNoopPublisher()
	}
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.BookingsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware())
	serverApp.OnShutdown("kafka-producer", producer.Close)

	return bookingevents.NewKafkaPublisher(producer, cfg.Log)
}

func initHandlers(cfg *config.Config, publisher bookingevents.Publisher) []contracts.Handler {
	bookings := bookingrepo.NewMongoBookingRepository(cfg)
	hotels := hotelrepo.NewMongoHotelRepository(cfg)
	users := userrepo.NewMongoUserRepository(cfg)

	manager := integrity.NewManager(hotels, users, integrity.Config{
		MaxRetries:    cfg.IntegrityMaxRetries,
		RetryInterval: cfg.IntegrityRetryInterval,
	}, cfg.Log)

	bookingService := bookingservice.NewBookingService(
		bookings,
		hotels,
		users,
		manager,
		bookingvalidator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)
	hotelService := hotelservice.NewHotelService(
		hotels,
		bookings,
		manager,
		hotelvalidator.NewHotelValidator(cfg.Log),
		publisher,
		cfg,
	)
	userService := userservice.NewUserService(
		users,
		bookings,
		manager,
		uservalidator.NewUserValidator(cfg.Log),
		publisher,
		cfg,
	)
	reconciler := integrity.NewReconciler(bookings, hotels, users, cfg.Log)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return []contracts.Handler{
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		hotelhandler.NewHotelHandler(hotelService, cfg.Log),
		userhandler.NewUserHandler(userService, cfg.Log),
		admin.NewHandler(reconciler, cfg.Log),
	}
}

func initHealth(cfg *config.Config) *health.Handler {
	deps := map[string]health.Pinger{
		"mongo": health.MongoPinger(cfg.Client.Mongo),
	}
	if cfg.Client.Redis != nil {
		deps["redis"] = health.RedisPinger(cfg.Client.Redis)
	}
	return health.NewHandler(deps, cfg.Log)
}
