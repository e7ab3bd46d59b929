package service

import (
	"context"
	"errors"
	"net/url"

	"golang.org/x/sync/errgroup"

	"hotelbook/internal/bookings/events"
	hotelserrors "hotelbook/internal/hotels/errors"
	"hotelbook/internal/hotels/repository"
	"hotelbook/internal/hotels/validator"
	"hotelbook/pkg/authz"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"
	"hotelbook/pkg/sanitizer"
)

type HotelService interface {
	List(ctx context.Context, caller authz.Caller, raw url.Values) (*query.Result[*model.Hotel], error)
	Get(ctx context.Context, caller authz.Caller, id string) (*model.Hotel, error)
	Create(ctx context.Context, caller authz.Caller, req *model.CreateHotelRequest) (*model.Hotel, error)
	Update(ctx context.Context, caller authz.Caller, id string, patch *model.HotelPatch) (*model.Hotel, error)
	Delete(ctx context.Context, caller authz.Caller, id string) (*model.Hotel, error)
}

// BookingStore is what a hotel delete needs to cascade.
type BookingStore interface {
	FindByHotel(ctx context.Context, hotelID string) ([]*model.Booking, error)
	Delete(ctx context.Context, id string) error
}

type Detacher interface {
	Detach(ctx context.Context, bookingID, hotelID, userID string) error
}

type hotelService struct {
	repo      repository.HotelRepository
	bookings  BookingStore
	integrity Detacher
	validator *validator.HotelValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewHotelService(
	repo repository.HotelRepository,
	bookings BookingStore,
	integrity Detacher,
	validator *validator.HotelValidator,
	publisher events.Publisher,
	cfg *config.Config,
) HotelService {
	return &hotelService{
		repo:      repo,
		bookings:  bookings,
		integrity: integrity,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *hotelService) List(ctx context.Context, caller authz.Caller, raw url.Values) (*query.Result[*model.Hotel], error) {
	log := s.cfg.Log.FromContext(ctx)
	req := query.ParseRequest(raw, s.cfg.MaxPageLimit)

	var total int64
	var hotels []*model.Hotel

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if total, err = s.repo.Count(gctx, req.Filter); err != nil {
			log.Error("Failed to count hotels", "error", err)
			return apperrors.Internal("Failed to count hotels", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if hotels, err = s.repo.Find(gctx, req); err != nil {
			log.Error("Failed to list hotels", "error", err)
			return apperrors.Internal("Failed to retrieve hotels", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, h := range hotels {
		redact(caller, h)
	}
	return &query.Result[*model.Hotel]{
		Items:      hotels,
		Total:      total,
		Pagination: req.Page.Navigate(total),
	}, nil
}

func (s *hotelService) Get(ctx context.Context, caller authz.Caller, id string) (*model.Hotel, error) {
	hotel, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	redact(caller, hotel)
	return hotel, nil
}

func (s *hotelService) Create(ctx context.Context, caller authz.Caller, req *model.CreateHotelRequest) (*model.Hotel, error) {
	if err := authz.RequireAdmin(caller, "create hotels"); err != nil {
		return nil, err
	}
	sanitizeCreate(req)
	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, err
	}

	hotel := &model.Hotel{Name: req.Name, Address: req.Address, Tel: req.Tel}
	if err := s.repo.Create(ctx, hotel); err != nil {
		if errors.Is(err, hotelserrors.ErrDuplicateName) {
			return nil, apperrors.Conflict("a hotel named " + req.Name + " already exists")
		}
		s.cfg.Log.FromContext(ctx).Error("Failed to create hotel", "name", req.Name, "error", err)
		return nil, apperrors.Internal("Failed to create hotel", err)
	}

	s.cfg.Log.FromContext(ctx).Info("Hotel created successfully", "id", hotel.ID, "name", hotel.Name)
	return hotel, nil
}

func (s *hotelService) Update(ctx context.Context, caller authz.Caller, id string, patch *model.HotelPatch) (*model.Hotel, error) {
	if err := authz.RequireAdmin(caller, "update hotels"); err != nil {
		return nil, err
	}
	sanitizePatch(patch)
	if err := s.validator.ValidatePatch(patch); err != nil {
		return nil, err
	}

	hotel, err := s.repo.Update(ctx, id, *patch)
	if err != nil {
		switch {
		case errors.Is(err, hotelserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Hotel", id)
		case errors.Is(err, hotelserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid hotel ID format")
		case errors.Is(err, hotelserrors.ErrDuplicateName):
			return nil, apperrors.Conflict("a hotel with this name already exists")
		}
		s.cfg.Log.FromContext(ctx).Error("Failed to update hotel", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update hotel", err)
	}

	s.cfg.Log.FromContext(ctx).Info("Hotel updated successfully", "id", id)
	return hotel, nil
}

// Delete removes the hotel and every booking at it. Each booking leaves both
// owner lists before its row goes, so a failure part way never leaves the
// surviving hotel listing a deleted booking.
func (s *hotelService) Delete(ctx context.Context, caller authz.Caller, id string) (*model.Hotel, error) {
	if err := authz.RequireAdmin(caller, "delete hotels"); err != nil {
		return nil, err
	}
	log := s.cfg.Log.FromContext(ctx)

	hotel, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	var removed []*model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		removed = removed[:0]
		bookings, err := s.bookings.FindByHotel(txCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to load hotel bookings", err)
		}
		for _, b := range bookings {
			if err := s.integrity.Detach(txCtx, b.ID, id, b.User); err != nil {
				return err
			}
			if err := s.bookings.Delete(txCtx, b.ID); err != nil {
				return apperrors.Internal("Failed to delete booking "+b.ID, err)
			}
			removed = append(removed, b)
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			if errors.Is(err, hotelserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Hotel", id)
			}
			return apperrors.Internal("Failed to delete hotel", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to delete hotel", "id", id, "bookings_removed", len(removed), "error", err)
		return nil, err
	}

	for _, b := range removed {
		s.publisher.Publish(ctx, events.TypeDeleted, b)
	}
	log.Info("Hotel deleted successfully", "id", id, "bookings_removed", len(removed))
	return hotel, nil
}

func (s *hotelService) fetch(ctx context.Context, id string) (*model.Hotel, error) {
	hotel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, hotelserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Hotel", id)
		case errors.Is(err, hotelserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid hotel ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve hotel", err)
	}
	return hotel, nil
}

// redact hides booking ids from callers who may not see other guests'
// bookings.
func redact(caller authz.Caller, h *model.Hotel) {
	if !caller.IsAdmin() {
		h.Bookings = nil
	}
}

func sanitizeCreate(req *model.CreateHotelRequest) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Address = sanitizer.NormalizeAddress(req.Address)
	req.Tel = sanitizer.PhoneOrRaw(req.Tel)
}

func sanitizePatch(p *model.HotelPatch) {
	if p.Name != nil {
		v := sanitizer.NormalizeName(*p.Name)
		p.Name = &v
	}
	if p.Address != nil {
		v := sanitizer.NormalizeAddress(*p.Address)
		p.Address = &v
	}
	if p.Tel != nil {
		v := sanitizer.PhoneOrRaw(*p.Tel)
		p.Tel = &v
	}
}
