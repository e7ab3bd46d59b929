package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	bookingserrors "hotelbook/internal/bookings/errors"
	"hotelbook/internal/bookings/events"
	"hotelbook/internal/bookings/repository"
	"hotelbook/internal/bookings/validator"
	hotelserrors "hotelbook/internal/hotels/errors"
	"hotelbook/pkg/authz"
	"hotelbook/pkg/config"
	mongotx "hotelbook/pkg/db/mongo"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/metrics"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"
	"hotelbook/pkg/sanitizer"
)

const undoTimeout = 5 * time.Second

type BookingService interface {
	List(ctx context.Context, caller authz.Caller, raw url.Values) (*query.Result[model.BookingView], error)
	ListByHotel(ctx context.Context, caller authz.Caller, hotelID string, raw url.Values) (*query.Result[model.BookingView], error)
	Get(ctx context.Context, caller authz.Caller, id string) (*model.BookingView, error)
	Create(ctx context.Context, caller authz.Caller, req *model.CreateBookingRequest) (*model.BookingView, error)
	Update(ctx context.Context, caller authz.Caller, id string, patch *model.BookingPatch) (*model.BookingView, error)
	Delete(ctx context.Context, caller authz.Caller, id string) (*model.BookingView, error)
}

// HotelLookup is the read side of hotels that bookings depend on.
type HotelLookup interface {
	FindByID(ctx context.Context, id string) (*model.Hotel, error)
	FindSummaries(ctx context.Context, ids []string) (map[string]model.HotelSummary, error)
}

type UserLookup interface {
	FindSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error)
}

// Integrity maintains the owners' booking lists.
type Integrity interface {
	Attach(ctx context.Context, bookingID, hotelID, userID string) error
	Detach(ctx context.Context, bookingID, hotelID, userID string) error
	Move(ctx context.Context, bookingID, fromHotel, toHotel string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	hotels    HotelLookup
	users     UserLookup
	integrity Integrity
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	hotels HotelLookup,
	users UserLookup,
	integrity Integrity,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		hotels:    hotels,
		users:     users,
		integrity: integrity,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *bookingService) List(ctx context.Context, caller authz.Caller, raw url.Values) (*query.Result[model.BookingView], error) {
	req := query.ParseRequest(raw, s.cfg.MaxPageLimit)
	return s.list(ctx, caller, req)
}

func (s *bookingService) ListByHotel(ctx context.Context, caller authz.Caller, hotelID string, raw url.Values) (*query.Result[model.BookingView], error) {
	if _, err := s.findHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	req := query.ParseRequest(raw, s.cfg.MaxPageLimit)
	req = req.WithFilter(req.Filter.And(query.Eq("hotel", hotelID)))
	return s.list(ctx, caller, req)
}

func (s *bookingService) list(ctx context.Context, caller authz.Caller, req query.Request) (*query.Result[model.BookingView], error) {
	log := s.cfg.Log.FromContext(ctx)
	req = req.WithFilter(authz.ScopeFilter(caller, req.Filter))

	var total int64
	var bookings []*model.Booking

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, req.Filter)
		if err != nil {
			log.Error("Failed to count bookings", "error", err)
			return apperrors.Internal("Failed to count bookings", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bookings, err = s.repo.Find(gctx, req)
		if err != nil {
			log.Error("Failed to list bookings", "error", err)
			return apperrors.Internal("Failed to retrieve bookings", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views, err := s.populate(ctx, bookings...)
	if err != nil {
		return nil, err
	}

	log.Debug("Bookings listed",
		"caller_id", caller.ID,
		"count", len(views),
		"total", total,
		"page", req.Page.Number,
	)
	return &query.Result[model.BookingView]{
		Items:      views,
		Total:      total,
		Pagination: req.Page.Navigate(total),
	}, nil
}

func (s *bookingService) Get(ctx context.Context, caller authz.Caller, id string) (*model.BookingView, error) {
	booking, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanView(caller, booking); err != nil {
		return nil, err
	}
	return s.view(ctx, booking)
}

func (s *bookingService) Create(ctx context.Context, caller authz.Caller, req *model.CreateBookingRequest) (view *model.BookingView, err error) {
	defer func() { metrics.ObserveBooking("create", err) }()
	log := s.cfg.Log.FromContext(ctx)

	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, err
	}
	if err := validator.ValidateStay(req.CheckIn, req.CheckOut, s.now()); err != nil {
		return nil, err
	}
	hotel, err := s.findHotel(ctx, req.Hotel)
	if err != nil {
		return nil, err
	}

	var booking *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		// fresh value per attempt, a retried transaction must not reuse the id
		booking = &model.Booking{
			Hotel:    hotel.ID,
			User:     caller.ID,
			CheckIn:  req.CheckIn.UTC(),
			CheckOut: req.CheckOut.UTC(),
		}
		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		if err := s.integrity.Attach(txCtx, booking.ID, booking.Hotel, booking.User); err != nil {
			if !mongotx.InTransaction(txCtx) {
				undoCtx, cancel := undoContext(txCtx)
				s.compensateCreate(undoCtx, booking)
				cancel()
			}
			return err
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to create booking", "hotel_id", req.Hotel, "caller_id", caller.ID, "error", err)
		return nil, err
	}

	log.Info("Booking created successfully",
		"id", booking.ID,
		"hotel_id", booking.Hotel,
		"user_id", booking.User,
		"check_in", booking.CheckIn,
		"check_out", booking.CheckOut,
	)
	s.publisher.Publish(ctx, events.TypeCreated, booking)
	return s.view(ctx, booking)
}

// compensateCreate undoes a booking whose owners could not all be attached.
// Anything it cannot undo is left for the reconciler.
func (s *bookingService) compensateCreate(ctx context.Context, booking *model.Booking) {
	log := s.cfg.Log.FromContext(ctx)
	if err := s.integrity.Detach(ctx, booking.ID, booking.Hotel, booking.User); err != nil {
		log.Error("Compensation detach failed", "id", booking.ID, "error", err)
	}
	if err := s.repo.Delete(ctx, booking.ID); err != nil && !errors.Is(err, bookingserrors.ErrNotFound) {
		log.Error("Compensation delete failed", "id", booking.ID, "error", err)
		return
	}
	log.Warn("Booking creation rolled back", "id", booking.ID)
}

func (s *bookingService) Update(ctx context.Context, caller authz.Caller, id string, patch *model.BookingPatch) (view *model.BookingView, err error) {
	defer func() { metrics.ObserveBooking("update", err) }()
	log := s.cfg.Log.FromContext(ctx)

	existing, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanMutate(caller, existing); err != nil {
		log.Warn("Booking update refused", "id", id, "caller_id", caller.ID)
		return nil, err
	}
	if err := s.validator.ValidatePatch(patch); err != nil {
		return nil, err
	}

	merged := patch.Apply(*existing)
	if err := validator.ValidateStay(merged.CheckIn, merged.CheckOut, s.now()); err != nil {
		return nil, err
	}
	moved := merged.Hotel != existing.Hotel
	if moved {
		if _, err := s.findHotel(ctx, merged.Hotel); err != nil {
			return nil, err
		}
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		next := merged
		if err := s.repo.Update(txCtx, &next); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		if !moved {
			return nil
		}
		if err := s.integrity.Move(txCtx, id, existing.Hotel, merged.Hotel); err != nil {
			if !mongotx.InTransaction(txCtx) {
				undoCtx, cancel := undoContext(txCtx)
				s.restore(undoCtx, existing, merged.Hotel)
				cancel()
			}
			return err
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to update booking", "id", id, "error", err)
		return nil, err
	}

	updated, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info("Booking updated successfully", "id", id, "moved", moved)
	s.publisher.Publish(ctx, events.TypeUpdated, updated)
	return s.view(ctx, updated)
}

// restore puts the row back on its previous hotel and pulls it from the hotel
// the failed move may already have attached it to.
func (s *bookingService) restore(ctx context.Context, previous *model.Booking, toHotel string) {
	log := s.cfg.Log.FromContext(ctx)
	prev := *previous
	if err := s.repo.Update(ctx, &prev); err != nil {
		log.Error("Failed to restore booking after move failure", "id", prev.ID, "error", err)
		return
	}
	if err := s.integrity.Detach(ctx, prev.ID, toHotel, ""); err != nil {
		log.Error("Failed to detach booking from move target", "id", prev.ID, "hotel_id", toHotel, "error", err)
	}
}

func (s *bookingService) Delete(ctx context.Context, caller authz.Caller, id string) (view *model.BookingView, err error) {
	defer func() { metrics.ObserveBooking("delete", err) }()
	log := s.cfg.Log.FromContext(ctx)

	existing, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanMutate(caller, existing); err != nil {
		log.Warn("Booking delete refused", "id", id, "caller_id", caller.ID)
		return nil, err
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.integrity.Detach(txCtx, existing.ID, existing.Hotel, existing.User); err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.Internal("Failed to delete booking", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to delete booking", "id", id, "error", err)
		return nil, err
	}

	log.Info("Booking deleted successfully", "id", id)
	s.publisher.Publish(ctx, events.TypeDeleted, existing)
	return s.view(ctx, existing)
}

// --- Helpers ---

// undoContext keeps the request's values but not its deadline or
// cancellation, so compensation still runs after a timeout or disconnect.
func undoContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), undoTimeout)
}

func (s *bookingService) fetch(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", id)
		case errors.Is(err, bookingserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) findHotel(ctx context.Context, id string) (*model.Hotel, error) {
	hotel, err := s.hotels.FindByID(ctx, id)
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

func (s *bookingService) view(ctx context.Context, booking *model.Booking) (*model.BookingView, error) {
	views, err := s.populate(ctx, booking)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// populate resolves hotel and user summaries for every booking with one
// lookup per owner collection.
func (s *bookingService) populate(ctx context.Context, bookings ...*model.Booking) ([]model.BookingView, error) {
	if len(bookings) == 0 {
		return []model.BookingView{}, nil
	}

	hotelIDs := make([]string, 0, len(bookings))
	userIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		hotelIDs = append(hotelIDs, b.Hotel)
		userIDs = append(userIDs, b.User)
	}
	hotelIDs = sanitizer.UniqueIDs(hotelIDs)
	userIDs = sanitizer.UniqueIDs(userIDs)

	var hotels map[string]model.HotelSummary
	var users map[string]model.UserSummary

	g, gctx := errgroup.WithContext(ctx)
	if len(hotelIDs) > 0 {
		g.Go(func() error {
			var err error
			hotels, err = s.hotels.FindSummaries(gctx, hotelIDs)
			return err
		})
	}
	if len(userIDs) > 0 {
		g.Go(func() error {
			var err error
			users, err = s.users.FindSummaries(gctx, userIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.cfg.Log.FromContext(ctx).Error("Failed to load booking owners", "error", err)
		return nil, apperrors.Internal("Failed to load booking owners", err)
	}

	views := make([]model.BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, model.NewBookingView(b, hotels, users))
	}
	return views, nil
}
