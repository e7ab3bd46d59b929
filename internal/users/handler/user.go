package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"hotelbook/internal/users/service"
	"hotelbook/pkg/authz"
	apperrors "hotelbook/pkg/errors"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
)

type UserHandler struct {
	service service.UserService
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log,
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "List")
	if !ok {
		return
	}

	res, err := h.service.List(r.Context(), caller, r.URL.Query())
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteList(w, res, "Users retrieved successfully"); err != nil {
		h.log.Error("failed to write list response", "handler", "List", "operation", "WriteList", "error", err)
	}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Get")
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, user, "User retrieved successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Get", "operation", "WriteItem", "error", err)
	}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "Create")
	if !ok {
		return
	}

	var req model.CreateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	user, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusCreated, user, "User created successfully"); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteItem", "error", err)
	}
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Update")
	if !ok {
		return
	}

	var patch model.UserPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	user, err := h.service.Update(r.Context(), caller, ps.ByName("id"), &patch)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, user, "User updated successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Update", "operation", "WriteItem", "error", err)
	}
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "Delete")
	if !ok {
		return
	}

	user, err := h.service.Delete(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, user, "User deleted successfully"); err != nil {
		h.log.Error("failed to write item response", "handler", "Delete", "operation", "WriteItem", "error", err)
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/users", h.List)
	router.POST("/api/v1/users", h.Create)
	router.GET("/api/v1/users/:id", h.Get)
	router.PATCH("/api/v1/users/:id", h.Update)
	router.PUT("/api/v1/users/:id", h.Update)
	router.DELETE("/api/v1/users/:id", h.Delete)
}

func (h *UserHandler) caller(w http.ResponseWriter, r *http.Request, handler string) (authz.Caller, bool) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthenticated("authentication required"))
	}
	return caller, ok
}

func (h *UserHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
