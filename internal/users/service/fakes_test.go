package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hotelbook/internal/bookings/events"
	"hotelbook/internal/integrity"
	userserrors "hotelbook/internal/users/errors"
	"hotelbook/internal/users/repository"
	mongotx "hotelbook/pkg/db/mongo"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"
)

type memoryUsers struct {
	mu   sync.Mutex
	rows map[string]model.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{rows: make(map[string]model.User)}
}

func (r *memoryUsers) emailTaken(email, except string) bool {
	for id, u := range r.rows {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r *memoryUsers) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	} else if !primitive.IsValidObjectID(u.ID) {
		return userserrors.ErrInvalidID
	}
	if _, ok := r.rows[u.ID]; ok || r.emailTaken(u.Email, "") {
		return userserrors.ErrDuplicate
	}
	if u.Bookings == nil {
		u.Bookings = []string{}
	}
	r.rows[u.ID] = *u
	return nil
}

func (r *memoryUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, userserrors.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	u.Bookings = append([]string(nil), u.Bookings...)
	return &u, nil
}

func (r *memoryUsers) Find(_ context.Context, req query.Request) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.rows {
		u := u
		out = append(out, &u)
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

func (r *memoryUsers) Count(context.Context, query.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memoryUsers) Update(_ context.Context, id string, p model.UserPatch) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	if p.Email != nil {
		if r.emailTaken(*p.Email, id) {
			return nil, userserrors.ErrDuplicate
		}
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Tel != nil {
		u.Tel = *p.Tel
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	r.rows[id] = u
	return &u, nil
}

func (r *memoryUsers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return userserrors.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryUsers) FindSummaries(context.Context, []string) (map[string]model.UserSummary, error) {
	return map[string]model.UserSummary{}, nil
}

func (r *memoryUsers) AddBooking(_ context.Context, userID, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[userID]
	if !ok {
		return false, integrity.ErrOwnerNotFound
	}
	for _, b := range u.Bookings {
		if b == bookingID {
			return false, nil
		}
	}
	u.Bookings = append(u.Bookings, bookingID)
	r.rows[userID] = u
	return true, nil
}

func (r *memoryUsers) RemoveBooking(_ context.Context, userID, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[userID]
	if !ok {
		return false, integrity.ErrOwnerNotFound
	}
	kept := u.Bookings[:0]
	for _, b := range u.Bookings {
		if b != bookingID {
			kept = append(kept, b)
		}
	}
	u.Bookings = kept
	r.rows[userID] = u
	return true, nil
}

func (r *memoryUsers) ForEachOwner(_ context.Context, fn func(string, []string) error) error {
	r.mu.Lock()
	rows := make(map[string][]string, len(r.rows))
	for id, u := range r.rows {
		rows[id] = append([]string(nil), u.Bookings...)
	}
	r.mu.Unlock()
	for id, list := range rows {
		if err := fn(id, list); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryUsers) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
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

func (s *memoryBookingStore) FindByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Booking
	for _, b := range s.rows {
		if b.User == userID {
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
}

func (d *recordingDetacher) Detach(_ context.Context, bookingID, hotelID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, detachCall{bookingID, hotelID, userID})
	return nil
}

// failingHotels accepts every hotel list edit except removal of failOn.
type failingHotels struct {
	failOn string
}

func (h *failingHotels) AddBooking(context.Context, string, string) (bool, error) {
	return true, nil
}

func (h *failingHotels) RemoveBooking(_ context.Context, _, bookingID string) (bool, error) {
	if bookingID == h.failOn {
		return false, errHotelList
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
	_ repository.UserRepository = (*memoryUsers)(nil)
	_ events.Publisher          = (*recordingPublisher)(nil)
	_ Detacher                  = (*recordingDetacher)(nil)
	_ BookingStore              = (*memoryBookingStore)(nil)

	_ integrity.BackReferences = (*failingHotels)(nil)

	errHotelList = errors.New("hotel list unavailable")
)
