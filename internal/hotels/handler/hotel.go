package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"hotelbook/internal/hotels/service"
	"hotelbook/pkg/authz"
	apperrors "hotelbook/pkg/errors"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
)

type HotelHandler struct {
	service service.HotelService
	log     *logger.Logger
}

func NewHotelHandler(service service.HotelService, log *logger.Logger) *HotelHandler {
	return &HotelHandler{
		service: service,
		log:     log,
	}
}

func (h *HotelHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "List")
	if !ok {
		return
	}

	res, err := h.service.List(r.Context(), caller, r.URL.Query())
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteList(w, res, "Hotels retrieved successfully"); err != nil {
		h.log.Error("failed to write list response", "handler", "List", "operation", "WriteList", "error", err)
	}
}

func (h *HotelHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Get")
	if !ok {
		return
	}

	hotel, err := h.service.Get(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, hotel, "Hotel retrieved successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Get", "operation", "WriteItem", "error", err)
	}
}

func (h *HotelHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "Create")
	if !ok {
		return
	}

	var req model.CreateHotelRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	hotel, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusCreated, hotel, "Hotel created successfully"); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteItem", "error", err)
	}
}

func (h *HotelHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Update")
	if !ok {
		return
	}

	var patch model.HotelPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	hotel, err := h.service.Update(r.Context(), caller, ps.ByName("id"), &patch)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, hotel, "Hotel updated successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Update", "operation", "WriteItem", "error", err)
	}
}

func (h *HotelHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Delete")
	if !ok {
		return
	}

	hotel, err := h.service.Delete(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, hotel, "Hotel deleted successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Delete", "operation", "WriteItem", "error", err)
	}
}

func (h *HotelHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/hotels", h.List)
	router.POST("/api/v1/hotels", h.Create)
	router.GET("/api/v1/hotels/:id", h.Get)
	router.PATCH("/api/v1/hotels/:id", h.Update)
	router.DELETE("/api/v1/hotels/:id", h.Delete)
}

func (h *HotelHandler) caller(w http.ResponseWriter, r *http.Request, handler string) (authz.Caller, bool) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthenticated("authentication required"))
	}
	return caller, ok
}

func (h *HotelHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
