package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/internal/spares/service"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// MSLHandler handles minimum stock level endpoints
type MSLHandler struct {
	msl     *repository.MSLRepository
	scanner *service.MSLScanner
	logger  *logger.Logger
}

// NewMSLHandler creates a new MSL handler
func NewMSLHandler(msl *repository.MSLRepository, scanner *service.MSLScanner, log *logger.Logger) *MSLHandler {
	return &MSLHandler{
		msl:     msl,
		scanner: scanner,
		logger:  log,
	}
}

type createMSLBody struct {
	SpareID              string     `json:"spare_id" validate:"required,uuid"`
	CityTierID           string     `json:"city_tier_id" validate:"required,uuid"`
	MinimumStockLevelQty int        `json:"minimum_stock_level_qty" validate:"gte=0"`
	MaximumStockLevelQty int        `json:"maximum_stock_level_qty" validate:"gt=0"`
	EffectiveFrom        *time.Time `json:"effective_from"`
	EffectiveTo          *time.Time `json:"effective_to"`
}

// Create creates an MSL threshold
func (h *MSLHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createMSLBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}
	if body.MaximumStockLevelQty < body.MinimumStockLevelQty {
		httputil.Error(w, errors.BadRequest("maximum stock level must not be below the minimum"))
		return
	}

	msl := &repository.SparePartMSL{
		SpareID:              body.SpareID,
		CityTierID:           body.CityTierID,
		MinimumStockLevelQty: body.MinimumStockLevelQty,
		MaximumStockLevelQty: body.MaximumStockLevelQty,
		IsActive:             true,
		EffectiveTo:          body.EffectiveTo,
	}
	if body.EffectiveFrom != nil {
		msl.EffectiveFrom = *body.EffectiveFrom
	}

	if err := h.msl.Create(r.Context(), msl); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, msl)
}

// ListBySpare lists all MSL rows for a spare
func (h *MSLHandler) ListBySpare(w http.ResponseWriter, r *http.Request) {
	spareID := chi.URLParam(r, "id")

	rows, err := h.msl.ListBySpare(r.Context(), spareID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// Deactivate closes out an MSL row
func (h *MSLHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.msl.Deactivate(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Scan triggers an MSL scan on demand
func (h *MSLHandler) Scan(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)

	result, err := h.scanner.Scan(r.Context(), caller.UserID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}
