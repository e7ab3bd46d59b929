package service

import (
	"context"
	"errors"
	"net/url"

	"golang.org/x/sync/errgroup"

	"hotelbook/internal/bookings/events"
	userserrors "hotelbook/internal/users/errors"
	"hotelbook/internal/users/repository"
	"hotelbook/internal/users/validator"
	"hotelbook/pkg/authz"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"
	"hotelbook/pkg/sanitizer"
)

type UserService interface {
	List(ctx context.Context, caller authz.Caller, raw url.Values) (*query.Result[*model.User], error)
	Get(ctx context.Context, caller authz.Caller, id string) (*model.User, error)
	Create(ctx context.Context, caller authz.Caller, req *model.CreateUserRequest) (*model.User, error)
	Update(ctx context.Context, caller authz.Caller, id string, patch *model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, caller authz.Caller, id string) (*model.User, error)
}

// BookingStore is what a user delete needs to cascade.
type BookingStore interface {
	FindByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	Delete(ctx context.Context, id string) error
}

type Detacher interface {
	Detach(ctx context.Context, bookingID, hotelID, userID string) error
}

type userService struct {
	repo      repository.UserRepository
	bookings  BookingStore
	integrity Detacher
	validator *validator.UserValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	bookings BookingStore,
	integrity Detacher,
	validator *validator.UserValidator,
	publisher events.Publisher,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		bookings:  bookings,
		integrity: integrity,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *userService) List(ctx context.Context, caller authz.Caller, raw url.Values) (*query.Result[*model.User], error) {
	if err := authz.RequireAdmin(caller, "list users"); err != nil {
		return nil, err
	}
	log := s.cfg.Log.FromContext(ctx)
	req := query.ParseRequest(raw, s.cfg.MaxPageLimit)

	var total int64
	var users []*model.User

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if total, err = s.repo.Count(gctx, req.Filter); err != nil {
			log.Error("Failed to count users", "error", err)
			return apperrors.Internal("Failed to count users", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if users, err = s.repo.Find(gctx, req); err != nil {
			log.Error("Failed to list users", "error", err)
			return apperrors.Internal("Failed to retrieve users", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &query.Result[*model.User]{
		Items:      users,
		Total:      total,
		Pagination: req.Page.Navigate(total),
	}, nil
}

func (s *userService) Get(ctx context.Context, caller authz.Caller, id string) (*model.User, error) {
	user, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireSelfOrAdmin(caller, user.ID, "view this user"); err != nil {
		return nil, err
	}
	return user, nil
}

// Create registers a profile. A non-admin may only register their own token
// subject, always with the USER role; an admin may create any user.
func (s *userService) Create(ctx context.Context, caller authz.Caller, req *model.CreateUserRequest) (*model.User, error) {
	log := s.cfg.Log.FromContext(ctx)

	if !caller.IsAdmin() {
		if req.ID != "" && req.ID != caller.ID {
			return nil, apperrors.Unauthorized("not authorized to register another user")
		}
		if req.Role != "" && req.Role != model.RoleUser {
			return nil, apperrors.Unauthorized("only admins may assign roles")
		}
		req.ID = caller.ID
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Tel = sanitizer.PhoneOrRaw(req.Tel)
	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, err
	}

	user := &model.User{ID: req.ID, Name: req.Name, Email: req.Email, Tel: req.Tel, Role: req.Role}
	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, userserrors.ErrDuplicate):
			return nil, apperrors.Conflict("a user with this id or email already exists")
		case errors.Is(err, userserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		log.Error("Failed to create user", "caller_id", caller.ID, "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	log.Info("User created successfully", "id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Update(ctx context.Context, caller authz.Caller, id string, patch *model.UserPatch) (*model.User, error) {
	log := s.cfg.Log.FromContext(ctx)

	if _, err := s.fetch(ctx, id); err != nil {
		return nil, err
	}
	if err := authz.RequireSelfOrAdmin(caller, id, "modify this user"); err != nil {
		log.Warn("User update refused", "id", id, "caller_id", caller.ID)
		return nil, err
	}
	if patch.Role != nil {
		if err := authz.RequireAdmin(caller, "assign roles"); err != nil {
			return nil, err
		}
	}
	sanitizePatch(patch)
	if err := s.validator.ValidatePatch(patch); err != nil {
		return nil, err
	}

	user, err := s.repo.Update(ctx, id, *patch)
	if err != nil {
		switch {
		case errors.Is(err, userserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("User", id)
		case errors.Is(err, userserrors.ErrDuplicate):
			return nil, apperrors.Conflict("a user with this email already exists")
		}
		log.Error("Failed to update user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update user", err)
	}

	log.Info("User updated successfully", "id", id)
	return user, nil
}

// Delete removes the user and every booking they hold. Each booking leaves
// both owner lists before its row goes.
func (s *userService) Delete(ctx context.Context, caller authz.Caller, id string) (*model.User, error) {
	if err := authz.RequireAdmin(caller, "delete users"); err != nil {
		return nil, err
	}
	log := s.cfg.Log.FromContext(ctx)

	user, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	var removed []*model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		removed = removed[:0]
		bookings, err := s.bookings.FindByUser(txCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to load user bookings", err)
		}
		for _, b := range bookings {
			if err := s.integrity.Detach(txCtx, b.ID, b.Hotel, id); err != nil {
				return err
			}
			if err := s.bookings.Delete(txCtx, b.ID); err != nil {
				return apperrors.Internal("Failed to delete booking "+b.ID, err)
			}
			removed = append(removed, b)
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			if errors.Is(err, userserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("User", id)
			}
			return apperrors.Internal("Failed to delete user", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to delete user", "id", id, "bookings_removed", len(removed), "error", err)
		return nil, err
	}

	for _, b := range removed {
		s.publisher.Publish(ctx, events.TypeDeleted, b)
	}
	log.Info("User deleted successfully", "id", id, "bookings_removed", len(removed))
	return user, nil
}

func (s *userService) fetch(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, userserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("User", id)
		case errors.Is(err, userserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func sanitizePatch(p *model.UserPatch) {
	if p.Name != nil {
		v := sanitizer.NormalizeName(*p.Name)
		p.Name = &v
	}
	if p.Email != nil {
		v := sanitizer.NormalizeEmail(*p.Email)
		p.Email = &v
	}
	if p.Tel != nil {
		v := sanitizer.PhoneOrRaw(*p.Tel)
		p.Tel = &v
	}
}
