// Package integrity keeps the booking lists held by hotels and users in step
// with the bookings that reference them.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	mongotx "hotelbook/pkg/db/mongo"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/metrics"
)

// ErrOwnerNotFound is returned by a BackReferences store when the owner
// document does not exist.
var ErrOwnerNotFound = errors.New("owner not found")

const (
	OwnerHotel = "hotel"
	OwnerUser  = "user"

	opAttach = "attach"
	opDetach = "detach"
)

// BackReferences edits the booking id list of one owner collection. Both
// methods are single-document atomic and safe to repeat. The bool reports
// whether the list actually changed.
type BackReferences interface {
	AddBooking(ctx context.Context, ownerID, bookingID string) (bool, error)
	RemoveBooking(ctx context.Context, ownerID, bookingID string) (bool, error)
}

type Config struct {
	MaxRetries    int
	RetryInterval time.Duration
}

type Manager struct {
	hotels BackReferences
	users  BackReferences
	cfg    Config
	log    *logger.Logger
}

func NewManager(hotels, users BackReferences, cfg Config, log *logger.Logger) *Manager {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Manager{hotels: hotels, users: users, cfg: cfg, log: log}
}

// Attach adds bookingID to the hotel and the user. A missing owner is a
// NotFound error and is never retried.
func (m *Manager) Attach(ctx context.Context, bookingID, hotelID, userID string) error {
	if err := m.attachOne(ctx, OwnerHotel, m.hotels, hotelID, bookingID); err != nil {
		return err
	}
	return m.attachOne(ctx, OwnerUser, m.users, userID, bookingID)
}

// Detach removes bookingID from both owners. Owners that no longer exist,
// or lists that never held the id, are skipped.
func (m *Manager) Detach(ctx context.Context, bookingID, hotelID, userID string) error {
	if err := m.detachOne(ctx, OwnerHotel, m.hotels, hotelID, bookingID); err != nil {
		return err
	}
	return m.detachOne(ctx, OwnerUser, m.users, userID, bookingID)
}

// Move re-homes bookingID from one hotel to another. The new hotel is
// attached first so the booking is never unreferenced.
func (m *Manager) Move(ctx context.Context, bookingID, fromHotel, toHotel string) error {
	if fromHotel == toHotel {
		return nil
	}
	if err := m.attachOne(ctx, OwnerHotel, m.hotels, toHotel, bookingID); err != nil {
		return err
	}
	return m.detachOne(ctx, OwnerHotel, m.hotels, fromHotel, bookingID)
}

func (m *Manager) attachOne(ctx context.Context, owner string, refs BackReferences, ownerID, bookingID string) error {
	err := m.write(ctx, opAttach, owner, ownerID, bookingID, refs.AddBooking)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOwnerNotFound):
		metrics.ObserveIntegrity(opAttach, owner, "missing")
		return apperrors.NotFoundWithID(ownerResource(owner), ownerID)
	default:
		return m.failed(ctx, opAttach, owner, ownerID, bookingID, err)
	}
}

func (m *Manager) detachOne(ctx context.Context, owner string, refs BackReferences, ownerID, bookingID string) error {
	if ownerID == "" {
		return nil
	}
	err := m.write(ctx, opDetach, owner, ownerID, bookingID, refs.RemoveBooking)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOwnerNotFound):
		metrics.ObserveIntegrity(opDetach, owner, "missing")
		m.log.FromContext(ctx).Debug("Detach skipped, owner is gone",
			"owner", owner, "owner_id", ownerID, "booking_id", bookingID)
		return nil
	default:
		return m.failed(ctx, opDetach, owner, ownerID, bookingID, err)
	}
}

func (m *Manager) failed(ctx context.Context, op, owner, ownerID, bookingID string, err error) error {
	metrics.ObserveIntegrity(op, owner, "failed")
	m.log.FromContext(ctx).Error("Back-reference write failed",
		"op", op, "owner", owner, "owner_id", ownerID, "booking_id", bookingID, "error", err)
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.IntegrityFailure(fmt.Sprintf("failed to %s booking %s on %s %s", op, bookingID, owner, ownerID), err)
}

type writeFunc func(ctx context.Context, ownerID, bookingID string) (bool, error)

// write runs fn once inside a session, where the driver retries the whole
// transaction, and with bounded exponential backoff otherwise.
func (m *Manager) write(ctx context.Context, op, owner, ownerID, bookingID string, fn writeFunc) error {
	if mongotx.InTransaction(ctx) {
		_, err := fn(ctx, ownerID, bookingID)
		if err == nil {
			metrics.ObserveIntegrity(op, owner, "ok")
		}
		return err
	}

	attempt := func() error {
		_, err := fn(ctx, ownerID, bookingID)
		if errors.Is(err, ErrOwnerNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		metrics.ObserveIntegrity(op, owner, "retry")
		m.log.FromContext(ctx).Warn("Retrying back-reference write",
			"op", op, "owner", owner, "owner_id", ownerID, "booking_id", bookingID,
			"wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(attempt, m.backOff(ctx), notify); err != nil {
		return err
	}
	metrics.ObserveIntegrity(op, owner, "ok")
	return nil
}

func (m *Manager) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = m.cfg.RetryInterval
	eb.MaxInterval = 20 * m.cfg.RetryInterval
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(m.cfg.MaxRetries)), ctx)
}

func ownerResource(owner string) string {
	if owner == OwnerHotel {
		return "Hotel"
	}
	return "User"
}
