package handler

import (
	"net/http"
	"strconv"

	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// InventoryHandler handles stock ledger read endpoints
type InventoryHandler struct {
	inventory *repository.InventoryRepository
	logger    *logger.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory *repository.InventoryRepository, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory: inventory,
		logger:    log,
	}
}

// List lists ledger rows at a location
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	locationType := r.URL.Query().Get("location_type")
	locationID := r.URL.Query().Get("location_id")

	if !movement.ValidLocationKind(locationType) {
		httputil.Error(w, errors.BadRequest("unknown location type: "+locationType))
		return
	}

	if locationID == "" {
		rows, err := h.inventory.ListByLocationType(r.Context(), locationType)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, rows)
		return
	}

	rows, err := h.inventory.ListByLocation(r.Context(), locationType, locationID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// Get returns the ledger row for one spare at one location
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	spareID := r.URL.Query().Get("spare_id")
	locationType := r.URL.Query().Get("location_type")
	locationID := r.URL.Query().Get("location_id")

	if spareID == "" || locationID == "" || !movement.ValidLocationKind(locationType) {
		httputil.Error(w, errors.BadRequest("spare_id, location_type and location_id are required"))
		return
	}

	inv, err := h.inventory.Get(r.Context(), spareID, locationType, locationID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

type availabilityResponse struct {
	SpareID   string `json:"spare_id"`
	GoodQty   int    `json:"good_qty"`
	Requested int    `json:"requested"`
	Available bool   `json:"available"`
}

// Availability reports whether the good bucket covers a quantity.
// Advisory only: approval re-validates under a row lock.
func (h *InventoryHandler) Availability(w http.ResponseWriter, r *http.Request) {
	spareID := r.URL.Query().Get("spare_id")
	locationType := r.URL.Query().Get("location_type")
	locationID := r.URL.Query().Get("location_id")
	qty, _ := strconv.Atoi(r.URL.Query().Get("qty"))

	if spareID == "" || locationID == "" || !movement.ValidLocationKind(locationType) {
		httputil.Error(w, errors.BadRequest("spare_id, location_type and location_id are required"))
		return
	}
	if qty <= 0 {
		httputil.Error(w, errors.InvalidQuantity("qty must be greater than zero"))
		return
	}

	good, available, err := h.inventory.CheckAvailable(r.Context(), spareID, locationType, locationID, qty)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, availabilityResponse{
		SpareID:   spareID,
		GoodQty:   good,
		Requested: qty,
		Available: available,
	})
}
