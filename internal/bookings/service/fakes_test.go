package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	bookingserrors "hotelbook/internal/bookings/errors"
	hotelserrors "hotelbook/internal/hotels/errors"
	"hotelbook/internal/integrity"
	mongotx "hotelbook/pkg/db/mongo"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"
)

// memoryBookings is a BookingRepository over a map. Only equality and in
// conditions on hotel, user and id are honoured by Find and Count.
type memoryBookings struct {
	mu        sync.Mutex
	rows      map[string]model.Booking
	createErr error
	seq       int
}

func newMemoryBookings() *memoryBookings {
	return &memoryBookings{rows: make(map[string]model.Booking)}
}

func (r *memoryBookings) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	b.ID = primitive.NewObjectID().Hex()
	b.CreatedAt = time.Unix(int64(r.seq), 0).UTC()
	b.UpdatedAt = b.CreatedAt
	r.rows[b.ID] = *b
	return nil
}

func (r *memoryBookings) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, bookingserrors.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (r *memoryBookings) matching(f query.Filter) []model.Booking {
	var out []model.Booking
	for _, b := range r.rows {
		if matches(b, f) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func matches(b model.Booking, f query.Filter) bool {
	for _, c := range f.Conditions() {
		var got string
		switch c.Field {
		case "hotel":
			got = b.Hotel
		case "user":
			got = b.User
		case "id":
			got = b.ID
		default:
			continue
		}
		found := false
		for _, v := range c.Values {
			if v == got {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *memoryBookings) Find(_ context.Context, req query.Request) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(req.Filter)
	start := int(req.Page.Offset())
	if start > len(all) {
		start = len(all)
	}
	end := start + req.Page.Limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]*model.Booking, 0, end-start)
	for i := start; i < end; i++ {
		b := all[i]
		out = append(out, &b)
	}
	return out, nil
}

func (r *memoryBookings) Count(_ context.Context, f query.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(f))), nil
}

func (r *memoryBookings) Update(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[b.ID]; !ok {
		return bookingserrors.ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	r.rows[b.ID] = *b
	return nil
}

func (r *memoryBookings) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryBookings) FindByHotel(_ context.Context, hotelID string) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.rows {
		if b.Hotel == hotelID {
			b := b
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r *memoryBookings) FindByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.rows {
		if b.User == userID {
			b := b
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r *memoryBookings) ForEachRef(_ context.Context, fn func(integrity.BookingRef) error) error {
	r.mu.Lock()
	refs := make([]integrity.BookingRef, 0, len(r.rows))
	for _, b := range r.rows {
		refs = append(refs, integrity.BookingRef{ID: b.ID, Hotel: b.Hotel, User: b.User})
	}
	r.mu.Unlock()
	for _, ref := range refs {
		if err := fn(ref); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryBookings) LookupRef(_ context.Context, id string) (integrity.BookingRef, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return integrity.BookingRef{}, false, nil
	}
	return integrity.BookingRef{ID: b.ID, Hotel: b.Hotel, User: b.User}, true, nil
}

func (r *memoryBookings) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func (r *memoryBookings) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// memoryOwners backs both hotels and users: a name per id plus a booking set.
// failAdd and failRemove inject errors per owner id. Edits honour ctx.
type memoryOwners struct {
	mu         sync.Mutex
	names      map[string]string
	lists      map[string][]string
	failAdd    map[string]error
	failRemove map[string]error
}

func newMemoryOwners() *memoryOwners {
	return &memoryOwners{
		names:      make(map[string]string),
		lists:      make(map[string][]string),
		failAdd:    make(map[string]error),
		failRemove: make(map[string]error),
	}
}

func (o *memoryOwners) add(name string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := primitive.NewObjectID().Hex()
	o.names[id] = name
	o.lists[id] = []string{}
	return id
}

func (o *memoryOwners) bookings(id string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := append([]string{}, o.lists[id]...)
	sort.Strings(out)
	return out
}

func (o *memoryOwners) AddBooking(ctx context.Context, ownerID, bookingID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.failAdd[ownerID]; err != nil {
		return false, err
	}
	list, ok := o.lists[ownerID]
	if !ok {
		return false, integrity.ErrOwnerNotFound
	}
	for _, id := range list {
		if id == bookingID {
			return false, nil
		}
	}
	o.lists[ownerID] = append(list, bookingID)
	return true, nil
}

func (o *memoryOwners) RemoveBooking(ctx context.Context, ownerID, bookingID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.failRemove[ownerID]; err != nil {
		return false, err
	}
	list, ok := o.lists[ownerID]
	if !ok {
		return false, integrity.ErrOwnerNotFound
	}
	out := list[:0]
	removed := false
	for _, id := range list {
		if id == bookingID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	o.lists[ownerID] = out
	return removed, nil
}

func (o *memoryOwners) ForEachOwner(_ context.Context, fn func(string, []string) error) error {
	o.mu.Lock()
	snapshot := make(map[string][]string, len(o.lists))
	for id, list := range o.lists {
		snapshot[id] = append([]string{}, list...)
	}
	o.mu.Unlock()
	for id, list := range snapshot {
		if err := fn(id, list); err != nil {
			return err
		}
	}
	return nil
}

type memoryHotels struct{ *memoryOwners }

func (h memoryHotels) FindByID(_ context.Context, id string) (*model.Hotel, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, hotelserrors.ErrInvalidID
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	name, ok := h.names[id]
	if !ok {
		return nil, hotelserrors.ErrNotFound
	}
	return &model.Hotel{ID: id, Name: name, Bookings: append([]string{}, h.lists[id]...)}, nil
}

func (h memoryHotels) FindSummaries(_ context.Context, ids []string) (map[string]model.HotelSummary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]model.HotelSummary)
	for _, id := range ids {
		if name, ok := h.names[id]; ok {
			out[id] = model.HotelSummary{ID: id, Name: name}
		}
	}
	return out, nil
}

type memoryUsers struct{ *memoryOwners }

func (u memoryUsers) FindSummaries(_ context.Context, ids []string) (map[string]model.UserSummary, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]model.UserSummary)
	for _, id := range ids {
		if name, ok := u.names[id]; ok {
			out[id] = model.UserSummary{ID: id, Name: name}
		}
	}
	return out, nil
}

// cancelAfterAttach attaches normally, then cancels the request and reports
// the attach as failed, as a request timeout landing mid-write would.
type cancelAfterAttach struct {
	Integrity
	cancel context.CancelFunc
}

func (c cancelAfterAttach) Attach(ctx context.Context, bookingID, hotelID, userID string) error {
	if err := c.Integrity.Attach(ctx, bookingID, hotelID, userID); err != nil {
		return err
	}
	c.cancel()
	return apperrors.IntegrityFailure("attach booking "+bookingID, ctx.Err())
}

type recordedEvent struct {
	eventType string
	bookingID string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, b *model.Booking) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType: eventType, bookingID: b.ID})
}
