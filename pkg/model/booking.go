package model

import (
	"time"
)

type Booking struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Hotel     string    `json:"hotel" bson:"hotel" validate:"required,mongodb"`
	User      string    `json:"user" bson:"user" validate:"required,mongodb"`
	CheckIn   time.Time `json:"checkIn" bson:"checkIn" validate:"required"`
	CheckOut  time.Time `json:"checkOut" bson:"checkOut" validate:"required,gtfield=CheckIn"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// BookingView is a booking with its owners resolved to summaries. Fields
// left out by a projection are omitted from the JSON.
type BookingView struct {
	ID        string        `json:"id"`
	Hotel     *HotelSummary `json:"hotel,omitempty"`
	User      *UserSummary  `json:"user,omitempty"`
	CheckIn   *time.Time    `json:"checkIn,omitempty"`
	CheckOut  *time.Time    `json:"checkOut,omitempty"`
	CreatedAt *time.Time    `json:"createdAt,omitempty"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
}

// NewBookingView builds a view of b. Owners missing from the summary maps
// are reported by id only.
func NewBookingView(b *Booking, hotels map[string]HotelSummary, users map[string]UserSummary) BookingView {
	v := BookingView{ID: b.ID}
	if b.Hotel != "" {
		hs, ok := hotels[b.Hotel]
		if !ok {
			hs = HotelSummary{ID: b.Hotel}
		}
		v.Hotel = &hs
	}
	if b.User != "" {
		us, ok := users[b.User]
		if !ok {
			us = UserSummary{ID: b.User}
		}
		v.User = &us
	}
	v.CheckIn = timePtr(b.CheckIn)
	v.CheckOut = timePtr(b.CheckOut)
	v.CreatedAt = timePtr(b.CreatedAt)
	v.UpdatedAt = timePtr(b.UpdatedAt)
	return v
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type CreateBookingRequest struct {
	Hotel    string    `json:"hotel" validate:"required,mongodb"`
	CheckIn  time.Time `json:"checkIn" validate:"required"`
	CheckOut time.Time `json:"checkOut" validate:"required"`
}

// BookingPatch enumerates the only mutable booking fields. Nil means
// unchanged.
type BookingPatch struct {
	Hotel    *string    `json:"hotel,omitempty" validate:"omitempty,mongodb"`
	CheckIn  *time.Time `json:"checkIn,omitempty"`
	CheckOut *time.Time `json:"checkOut,omitempty"`
}

func (p BookingPatch) IsEmpty() bool {
	return p.Hotel == nil && p.CheckIn == nil && p.CheckOut == nil
}

// Apply returns a copy of b with the patch applied.
func (p BookingPatch) Apply(b Booking) Booking {
	if p.Hotel != nil {
		b.Hotel = *p.Hotel
	}
	if p.CheckIn != nil {
		b.CheckIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		b.CheckOut = *p.CheckOut
	}
	return b
}
