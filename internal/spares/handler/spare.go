package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/internal/spares/service"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// SpareHandler handles spare master-data endpoints
type SpareHandler struct {
	spares  *repository.SpareRepository
	pricing *service.PricingService
	logger  *logger.Logger
}

// NewSpareHandler creates a new spare handler
func NewSpareHandler(spares *repository.SpareRepository, pricing *service.PricingService, log *logger.Logger) *SpareHandler {
	return &SpareHandler{
		spares:  spares,
		pricing: pricing,
		logger:  log,
	}
}

type createSpareBody struct {
	PartNumber  string  `json:"part_number" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	UnitPrice   string  `json:"unit_price" validate:"required"`
	GSTRate     string  `json:"gst_rate" validate:"required"`
	HSNCode     *string `json:"hsn_code"`
}

// Create creates a spare
func (h *SpareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createSpareBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}

	unitPrice, err := decimal.NewFromString(body.UnitPrice)
	if err != nil {
		httputil.Error(w, errors.BadRequest("unit_price must be a decimal number"))
		return
	}
	gstRate, err := decimal.NewFromString(body.GSTRate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("gst_rate must be a decimal number"))
		return
	}

	spare := &repository.Spare{
		PartNumber: body.PartNumber,
		Name:       body.Name,
		UnitPrice:  unitPrice,
		GSTRate:    gstRate,
		HSNCode:    body.HSNCode,
		IsActive:   true,
	}
	if body.Description != "" {
		spare.Description = &body.Description
	}

	if err := h.spares.Create(r.Context(), spare); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, spare)
}

// Get gets a spare by ID
func (h *SpareHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	spare, err := h.spares.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, spare)
}

// List lists active spares
func (h *SpareHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	spares, total, err := h.spares.List(r.Context(), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, spares, paginationMeta(page, perPage, total))
}

// ReturnPrice resolves the price to attach to a defective return
func (h *SpareHandler) ReturnPrice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	serviceCenterID := r.URL.Query().Get("service_center_id")
	plantID := r.URL.Query().Get("plant_id")

	if serviceCenterID == "" || plantID == "" {
		httputil.Error(w, errors.BadRequest("service_center_id and plant_id are required"))
		return
	}

	info, err := h.pricing.ReturnPrice(r.Context(), id, serviceCenterID, plantID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, info)
}
