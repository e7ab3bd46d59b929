package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	bookingrepo "hotelbook/internal/bookings/repository"
	hotelrepo "hotelbook/internal/hotels/repository"
	"hotelbook/internal/integrity"
	userrepo "hotelbook/internal/users/repository"
	"hotelbook/pkg/config"
)

const JobName = "reconcile"

// One repair pass over hotel and user booking lists, for running on a
// schedule.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(JobName)
	cfg.SetMongo()

	reconciler := integrity.NewReconciler(
		bookingrepo.NewMongoBookingRepository(cfg),
		hotelrepo.NewMongoHotelRepository(cfg),
		userrepo.NewMongoUserRepository(cfg),
		cfg.Log,
	)

	report, err := reconciler.Run(ctx)
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Reconcile failed", "error", err)
	}
	cfg.Log.Info("Reconcile job done", "orphans", report.Orphans, "duration", report.Duration)
}
