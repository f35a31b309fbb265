package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// LocationHandler handles location endpoints
type LocationHandler struct {
	locations *repository.LocationRepository
	logger    *logger.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locations *repository.LocationRepository, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		locations: locations,
		logger:    log,
	}
}

type createLocationBody struct {
	Name         string  `json:"name" validate:"required"`
	LocationType string  `json:"location_type" validate:"required"`
	CityTierID   *string `json:"city_tier_id"`
	PlantID      *string `json:"plant_id"`
}

// Create creates a location
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createLocationBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}
	if !movement.ValidLocationKind(body.LocationType) {
		httputil.Error(w, errors.BadRequest("unknown location type: "+body.LocationType))
		return
	}

	loc := &repository.Location{
		Name:         body.Name,
		LocationType: body.LocationType,
		CityTierID:   body.CityTierID,
		PlantID:      body.PlantID,
		IsActive:     true,
	}

	if err := h.locations.Create(r.Context(), loc); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, loc)
}

// Get gets a location by ID
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	loc, err := h.locations.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, loc)
}

// List lists active locations of a kind
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locationType := r.URL.Query().Get("location_type")
	if !movement.ValidLocationKind(locationType) {
		httputil.Error(w, errors.BadRequest("unknown location type: "+locationType))
		return
	}

	locations, err := h.locations.ListByType(r.Context(), locationType)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, locations)
}
