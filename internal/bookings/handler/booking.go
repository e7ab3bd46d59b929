package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"hotelbook/internal/bookings/service"
	"hotelbook/pkg/authz"
	apperrors "hotelbook/pkg/errors"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "List")
	if !ok {
		return
	}

	res, err := h.service.List(r.Context(), caller, r.URL.Query())
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteList(w, res, "Bookings retrieved successfully"); err != nil {
		h.log.Error("failed to write list response", "handler", "List", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) ListByHotel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "ListByHotel")
	if !ok {
		return
	}

	res, err := h.service.ListByHotel(r.Context(), caller, ps.ByName("id"), r.URL.Query())
	if err != nil {
		h.writeError(w, "ListByHotel", err)
		return
	}

	if err := httputil.WriteList(w, res, "Bookings retrieved successfully"); err != nil {
		h.log.Error("failed to write list response", "handler", "ListByHotel", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Get")
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, view, "Booking retrieved successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Get", "operation", "WriteItem", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.create(w, r, "")
}

// CreateForHotel takes the hotel from the path; a hotel in the body must
// agree with it.
func (h *BookingHandler) CreateForHotel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.create(w, r, ps.ByName("id"))
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request, hotelID string) {
	caller, ok := h.caller(w, r, "Create")
	if !ok {
		return
	}

	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}
	if hotelID != "" {
		if req.Hotel != "" && req.Hotel != hotelID {
			h.writeError(w, "Create", apperrors.InvalidInput("hotel in body does not match the hotel in the path"))
			return
		}
		req.Hotel = hotelID
	}

	view, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusCreated, view, "Booking created successfully"); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteItem", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Update")
	if !ok {
		return
	}

	var patch model.BookingPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	view, err := h.service.Update(r.Context(), caller, ps.ByName("id"), &patch)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, view, "Booking updated successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Update", "operation", "WriteItem", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Delete")
	if !ok {
		return
	}

	view, err := h.service.Delete(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, view, "Booking deleted successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Delete", "operation", "WriteItem", "error", err)
	}
}

// RegisterRoutes mounts the booking routes. The hotel-scoped routes share
// the :id wildcard with /api/v1/hotels/:id, as httprouter requires.
func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings", h.List)
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/:id", h.Get)
	router.PATCH("/api/v1/bookings/:id", h.Update)
	router.DELETE("/api/v1/bookings/:id", h.Delete)
	router.GET("/api/v1/hotels/:id/bookings", h.ListByHotel)
	router.POST("/api/v1/hotels/:id/bookings", h.CreateForHotel)
}

func (h *BookingHandler) caller(w http.ResponseWriter, r *http.Request, handler string) (authz.Caller, bool) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthenticated("authentication required"))
	}
	return caller, ok
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
