package model

import "time"

type Hotel struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=50"`
	Address   string    `json:"address" bson:"address" validate:"required,min=2,max=200"`
	Tel       string    `json:"tel" bson:"tel" validate:"required,e164"`
	Bookings  []string  `json:"bookings,omitempty" bson:"bookings"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type HotelSummary struct {
	ID      string `json:"id" bson:"_id"`
	Name    string `json:"name" bson:"name"`
	Address string `json:"address" bson:"address"`
	Tel     string `json:"tel" bson:"tel"`
}

type CreateHotelRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=50"`
	Address string `json:"address" validate:"required,min=2,max=200"`
	Tel     string `json:"tel" validate:"required,e164"`
}

type HotelPatch struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Address *string `json:"address,omitempty" validate:"omitempty,min=2,max=200"`
	Tel     *string `json:"tel,omitempty" validate:"omitempty,e164"`
}

func (p HotelPatch) IsEmpty() bool {
	return p.Name == nil && p.Address == nil && p.Tel == nil
}
