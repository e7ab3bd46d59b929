package integrity

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errTransient = errors.New("connection reset")

// memoryOwners is an in-memory owner collection with optional injected
// failures.
type memoryOwners struct {
	mu    sync.Mutex
	lists map[string]map[string]struct{}
	failN int
	calls int
}

func newMemoryOwners(ids ...string) *memoryOwners {
	o := &memoryOwners{lists: make(map[string]map[string]struct{})}
	for _, id := range ids {
		o.lists[id] = make(map[string]struct{})
	}
	return o
}

func (o *memoryOwners) AddBooking(_ context.Context, ownerID, bookingID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.failN > 0 {
		o.failN--
		return false, errTransient
	}
	list, ok := o.lists[ownerID]
	if !ok {
		return false, ErrOwnerNotFound
	}
	if _, exists := list[bookingID]; exists {
		return false, nil
	}
	list[bookingID] = struct{}{}
	return true, nil
}

func (o *memoryOwners) RemoveBooking(_ context.Context, ownerID, bookingID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.failN > 0 {
		o.failN--
		return false, errTransient
	}
	list, ok := o.lists[ownerID]
	if !ok {
		return false, ErrOwnerNotFound
	}
	if _, exists := list[bookingID]; !exists {
		return false, nil
	}
	delete(list, bookingID)
	return true, nil
}

func (o *memoryOwners) ForEachOwner(_ context.Context, fn func(string, []string) error) error {
	o.mu.Lock()
	snapshot := make(map[string][]string, len(o.lists))
	for id := range o.lists {
		snapshot[id] = o.bookingsLocked(id)
	}
	o.mu.Unlock()

	for id, bookings := range snapshot {
		if err := fn(id, bookings); err != nil {
			return err
		}
	}
	return nil
}

func (o *memoryOwners) bookings(ownerID string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bookingsLocked(ownerID)
}

func (o *memoryOwners) bookingsLocked(ownerID string) []string {
	out := []string{}
	for id := range o.lists[ownerID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type memoryBookings []BookingRef

func (b memoryBookings) ForEachRef(_ context.Context, fn func(BookingRef) error) error {
	for _, ref := range b {
		if err := fn(ref); err != nil {
			return err
		}
	}
	return nil
}

func (b memoryBookings) LookupRef(_ context.Context, id string) (BookingRef, bool, error) {
	for _, ref := range b {
		if ref.ID == id {
			return ref, true, nil
		}
	}
	return BookingRef{}, false, nil
}

// lateScanner yields a stale subset of rows, then runs afterScan once the
// cursor is exhausted. Lookups see every row.
type lateScanner struct {
	rows      memoryBookings
	scanned   memoryBookings
	afterScan func()
}

func (s lateScanner) ForEachRef(ctx context.Context, fn func(BookingRef) error) error {
	if err := s.scanned.ForEachRef(ctx, fn); err != nil {
		return err
	}
	if s.afterScan != nil {
		s.afterScan()
	}
	return nil
}

func (s lateScanner) LookupRef(ctx context.Context, id string) (BookingRef, bool, error) {
	return s.rows.LookupRef(ctx, id)
}
