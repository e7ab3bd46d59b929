package admin

import (
	"context"
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"

	"hotelbook/internal/integrity"
	"hotelbook/pkg/authz"
	apperrors "hotelbook/pkg/errors"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/logger"
)

type Reconciler interface {
	Run(ctx context.Context) (*integrity.Report, error)
}

type Handler struct {
	reconciler Reconciler
	running    sync.Mutex
	log        *logger.Logger
}

func NewHandler(reconciler Reconciler, log *logger.Logger) *Handler {
	return &Handler{reconciler: reconciler, log: log}
}

// Reconcile runs one repair pass synchronously. Overlapping requests are
// refused rather than queued.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthenticated("authentication required"))
		return
	}
	if err := authz.RequireAdmin(caller, "run the reconciler"); err != nil {
		h.writeError(w, err)
		return
	}
	if !h.running.TryLock() {
		h.writeError(w, apperrors.Conflict("a reconcile pass is already running"))
		return
	}
	defer h.running.Unlock()

	h.log.FromContext(r.Context()).Info("Reconcile requested", "caller", caller.ID)
	report, err := h.reconciler.Run(r.Context())
	if err != nil {
		h.writeError(w, apperrors.Internal("Reconcile failed", err))
		return
	}

	if err := httputil.WriteItem(w, http.StatusOK, report, "Reconcile finished"); err != nil {
		h.log.Error("failed to write item response", "handler", "Reconcile", "operation", "WriteItem", "error", err)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/admin/reconcile", h.Reconcile)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Reconcile", "operation", "WriteError", "error", writeErr)
	}
}
