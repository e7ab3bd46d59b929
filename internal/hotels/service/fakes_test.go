package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hotelbook/internal/bookings/events"
	hotelserrors "hotelbook/internal/hotels/errors"
	"hotelbook/internal/integrity"
	mongotx "hotelbook/pkg/db/mongo"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"
)

type memoryHotels struct {
	mu   sync.Mutex
	rows map[string]model.Hotel
}

func newMemoryHotels() *memoryHotels {
	return &memoryHotels{rows: make(map[string]model.Hotel)}
}

func (r *memoryHotels) nameTaken(name, except string) bool {
	for id, h := range r.rows {
		if id != except && h.Name == name {
			return true
		}
	}
	return false
}

func (r *memoryHotels) Create(_ context.Context, h *model.Hotel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(h.Name, "") {
		return hotelserrors.ErrDuplicateName
	}
	h.ID = primitive.NewObjectID().Hex()
	if h.Bookings == nil {
		h.Bookings = []string{}
	}
	r.rows[h.ID] = *h
	return nil
}

func (r *memoryHotels) FindByID(_ context.Context, id string) (*model.Hotel, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, hotelserrors.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rows[id]
	if !ok {
		return nil, hotelserrors.ErrNotFound
	}
	h.Bookings = append([]string(nil), h.Bookings...)
	return &h, nil
}

func (r *memoryHotels) Find(_ context.Context, req query.Request) ([]*model.Hotel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Hotel
	for _, h := range r.rows {
		h := h
		h.Bookings = append([]string(nil), h.Bookings...)
		out = append(out, &h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	start := int(req.Page.Offset())
	if start > len(out) {
		start = len(out)
	}
	end := start + req.Page.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (r *memoryHotels) Count(context.Context, query.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memoryHotels) Update(_ context.Context, id string, p model.HotelPatch) (*model.Hotel, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, hotelserrors.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rows[id]
	if !ok {
		return nil, hotelserrors.ErrNotFound
	}
	if p.Name != nil {
		if r.nameTaken(*p.Name, id) {
			return nil, hotelserrors.ErrDuplicateName
		}
		h.Name = *p.Name
	}
	if p.Address != nil {
		h.Address = *p.Address
	}
	if p.Tel != nil {
		h.Tel = *p.Tel
	}
	r.rows[id] = h
	return &h, nil
}

func (r *memoryHotels) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return hotelserrors.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryHotels) FindSummaries(context.Context, []string) (map[string]model.HotelSummary, error) {
	return map[string]model.HotelSummary{}, nil
}

func (r *memoryHotels) AddBooking(_ context.Context, hotelID, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rows[hotelID]
	if !ok {
		return false, integrity.ErrOwnerNotFound
	}
	for _, b := range h.Bookings {
		if b == bookingID {
			return true, nil
		}
	}
	h.Bookings = append(h.Bookings, bookingID)
	r.rows[hotelID] = h
	return true, nil
}

func (r *memoryHotels) RemoveBooking(_ context.Context, hotelID, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rows[hotelID]
	if !ok {
		return false, integrity.ErrOwnerNotFound
	}
	kept := h.Bookings[:0]
	for _, b := range h.Bookings {
		if b != bookingID {
			kept = append(kept, b)
		}
	}
	h.Bookings = kept
	r.rows[hotelID] = h
	return true, nil
}

func (r *memoryHotels) ForEachOwner(ctx context.Context, fn func(string, []string) error) error {
	r.mu.Lock()
	rows := make(map[string][]string, len(r.rows))
	for id, h := range r.rows {
		rows[id] = append([]string(nil), h.Bookings...)
	}
	r.mu.Unlock()
	for id, list := range rows {
		if err := fn(id, list); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryHotels) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

type memoryBookingStore struct {
	mu   sync.Mutex
	rows map[string]model.Booking
}

func (s *memoryBookingStore) put(b model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[b.ID] = b
}

func (s *memoryBookingStore) FindByHotel(_ context.Context, hotelID string) ([]*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Booking
	for _, b := range s.rows {
		if b.Hotel == hotelID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryBookingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *memoryBookingStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[id]
	return ok
}

type detachCall struct {
	bookingID, hotelID, userID string
}

type recordingDetacher struct {
	mu    sync.Mutex
	calls []detachCall
	err   error
}

func (d *recordingDetacher) Detach(_ context.Context, bookingID, hotelID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, detachCall{bookingID, hotelID, userID})
	return nil
}

// failingUsers accepts every user list edit except removal of failOn.
type failingUsers struct {
	failOn string
}

func (u *failingUsers) AddBooking(context.Context, string, string) (bool, error) {
	return true, nil
}

func (u *failingUsers) RemoveBooking(_ context.Context, _, bookingID string) (bool, error) {
	if bookingID == u.failOn {
		return false, errDetach
	}
	return true, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, b *model.Booking) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType+":"+b.ID)
}

var (
	_ events.Publisher = (*recordingPublisher)(nil)
	_ Detacher         = (*recordingDetacher)(nil)
	_ BookingStore     = (*memoryBookingStore)(nil)

	_ integrity.BackReferences = (*failingUsers)(nil)

	errDetach = errors.New("user list unavailable")
)
