package integrity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelbook/pkg/logger"
	"hotelbook/pkg/metrics"
)

// BookingRef is the part of a booking the reconciler needs.
type BookingRef struct {
	ID    string
	Hotel string
	User  string
}

// BookingScanner streams booking references and re-reads a single one.
// LookupRef reports false when the booking does not exist.
type BookingScanner interface {
	ForEachRef(ctx context.Context, fn func(BookingRef) error) error
	LookupRef(ctx context.Context, id string) (BookingRef, bool, error)
}

// Owners is an owner collection that can be both edited and scanned.
type Owners interface {
	BackReferences
	ForEachOwner(ctx context.Context, fn func(ownerID string, bookings []string) error) error
}

type Report struct {
	BookingsScanned int           `json:"bookingsScanned"`
	HotelsAttached  int           `json:"hotelsAttached"`
	UsersAttached   int           `json:"usersAttached"`
	HotelsPulled    int           `json:"hotelsPulled"`
	UsersPulled     int           `json:"usersPulled"`
	Orphans         int           `json:"orphans"`
	Duration        time.Duration `json:"duration"`
}

// Reconciler repairs back-reference lists left inconsistent by writes that
// ran without a transaction and failed half way.
type Reconciler struct {
	bookings BookingScanner
	hotels   Owners
	users    Owners
	log      *logger.Logger
}

func NewReconciler(bookings BookingScanner, hotels, users Owners, log *logger.Logger) *Reconciler {
	return &Reconciler{bookings: bookings, hotels: hotels, users: users, log: log}
}

// Run re-adds every booking to its owners, then pulls listed ids whose
// booking is gone or now belongs to another owner.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}
	refs := make(map[string]BookingRef)

	err := r.bookings.ForEachRef(ctx, func(ref BookingRef) error {
		refs[ref.ID] = ref
		report.BookingsScanned++

		added, err := r.ensure(ctx, r.hotels, ref.Hotel, ref.ID, report)
		if err != nil {
			return err
		}
		if added {
			report.HotelsAttached++
		}
		added, err = r.ensure(ctx, r.users, ref.User, ref.ID, report)
		if err != nil {
			return err
		}
		if added {
			report.UsersAttached++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookings: %w", err)
	}

	report.HotelsPulled, err = r.prune(ctx, r.hotels, refs, func(ref BookingRef) string { return ref.Hotel })
	if err != nil {
		return nil, fmt.Errorf("failed to prune hotels: %w", err)
	}
	report.UsersPulled, err = r.prune(ctx, r.users, refs, func(ref BookingRef) string { return ref.User })
	if err != nil {
		return nil, fmt.Errorf("failed to prune users: %w", err)
	}

	metrics.ObserveReconcile(OwnerHotel, "attached", report.HotelsAttached)
	metrics.ObserveReconcile(OwnerUser, "attached", report.UsersAttached)
	metrics.ObserveReconcile(OwnerHotel, "pulled", report.HotelsPulled)
	metrics.ObserveReconcile(OwnerUser, "pulled", report.UsersPulled)

	report.Duration = time.Since(start)
	r.log.FromContext(ctx).Info("Reconcile finished",
		"bookings_scanned", report.BookingsScanned,
		"hotels_attached", report.HotelsAttached,
		"users_attached", report.UsersAttached,
		"hotels_pulled", report.HotelsPulled,
		"users_pulled", report.UsersPulled,
		"orphans", report.Orphans,
		"duration", report.Duration,
	)
	return report, nil
}

func (r *Reconciler) ensure(ctx context.Context, owners Owners, ownerID, bookingID string, report *Report) (bool, error) {
	added, err := owners.AddBooking(ctx, ownerID, bookingID)
	if errors.Is(err, ErrOwnerNotFound) {
		report.Orphans++
		r.log.FromContext(ctx).Warn("Booking references a missing owner", "booking_id", bookingID, "owner_id", ownerID)
		return false, nil
	}
	return added, err
}

func (r *Reconciler) prune(ctx context.Context, owners Owners, refs map[string]BookingRef, ownerOf func(BookingRef) string) (int, error) {
	type stale struct{ owner, booking string }
	var pending []stale

	err := owners.ForEachOwner(ctx, func(ownerID string, bookings []string) error {
		for _, id := range bookings {
			ref, ok := refs[id]
			if !ok || ownerOf(ref) != ownerID {
				pending = append(pending, stale{owner: ownerID, booking: id})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// edits happen after the cursor is closed. The scan is a snapshot, so
	// each candidate is re-read and kept if it has since become valid.
	pulled := 0
	for _, s := range pending {
		ref, found, err := r.bookings.LookupRef(ctx, s.booking)
		if err != nil {
			return pulled, err
		}
		if found && ownerOf(ref) == s.owner {
			continue
		}
		removed, err := owners.RemoveBooking(ctx, s.owner, s.booking)
		if err != nil && !errors.Is(err, ErrOwnerNotFound) {
			return pulled, err
		}
		if removed {
			pulled++
		}
	}
	return pulled, nil
}
