// Package authz decides what a caller may see and change. It never touches
// storage: callers hand it filters to narrow or entities they already fetched.
package authz

import (
	"context"

	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"
)

// OwnerField is the booking field holding the owning user's id.
const OwnerField = "user"

type Caller struct {
	ID   string
	Role model.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

// ScopeFilter narrows f to what caller may list. Admins see everything; any
// other caller is pinned to their own bookings whatever f already says.
func ScopeFilter(caller Caller, f query.Filter) query.Filter {
	if caller.IsAdmin() {
		return f
	}
	return f.And(query.Eq(OwnerField, caller.ID))
}

func CanView(caller Caller, b *model.Booking) error {
	return checkOwner(caller, b, "not authorized to view this booking")
}

func CanMutate(caller Caller, b *model.Booking) error {
	return checkOwner(caller, b, "not authorized to modify this booking")
}

func checkOwner(caller Caller, b *model.Booking, msg string) error {
	if caller.IsAdmin() || (caller.ID != "" && b.User == caller.ID) {
		return nil
	}
	return apperrors.Unauthorized(msg)
}

// RequireAdmin fails unless caller is an admin.
func RequireAdmin(caller Caller, action string) error {
	if caller.IsAdmin() {
		return nil
	}
	return apperrors.Unauthorized("only admins may " + action)
}

// RequireSelfOrAdmin fails unless caller is an admin or is the user userID.
func RequireSelfOrAdmin(caller Caller, userID, action string) error {
	if caller.IsAdmin() || (caller.ID != "" && caller.ID == userID) {
		return nil
	}
	return apperrors.Unauthorized("not authorized to " + action)
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
