package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/internal/spares/service"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// MovementHandler handles stock movement endpoints
type MovementHandler struct {
	movements *repository.MovementRepository
	approval  *service.ApprovalService
	logger    *logger.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(movements *repository.MovementRepository, approval *service.ApprovalService, log *logger.Logger) *MovementHandler {
	return &MovementHandler{
		movements: movements,
		approval:  approval,
		logger:    log,
	}
}

// List lists movements, optionally filtered by spare
func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	spareID := r.URL.Query().Get("spare_id")

	movements, total, err := h.movements.List(r.Context(), spareID, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, movements, paginationMeta(page, perPage, total))
}

// Get gets a movement by ID
func (h *MovementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.movements.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, m)
}

// Complete marks a movement as completed, stamping the verifier
func (h *MovementHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.approval.CompleteMovement(r.Context(), callerFrom(r), id); err != nil {
		httputil.Error(w, err)
		return
	}

	m, err := h.movements.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, m)
}
