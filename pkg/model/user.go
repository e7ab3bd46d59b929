package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Tel       string    `json:"tel" bson:"tel"`
	Role      Role      `json:"role" bson:"role"`
	Bookings  []string  `json:"bookings" bson:"bookings"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type UserSummary struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}

// CreateUserRequest registers a user profile. ID pins the profile to an
// existing token subject; when empty a new id is generated.
type CreateUserRequest struct {
	ID    string `json:"id,omitempty" validate:"omitempty,mongodb"`
	Name  string `json:"name" validate:"required,min=2,max=50"`
	Email string `json:"email" validate:"required,email,max=254"`
	Tel   string `json:"tel" validate:"required,e164"`
	Role  Role   `json:"role,omitempty" validate:"omitempty,oneof=USER ADMIN"`
}

type UserPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Tel   *string `json:"tel,omitempty" validate:"omitempty,e164"`
	Role  *Role   `json:"role,omitempty" validate:"omitempty,oneof=USER ADMIN"`
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Tel == nil && p.Role == nil
}
