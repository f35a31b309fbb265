package handler

import (
	"net/http"

	"github.com/fieldstock/fieldstock-backend/internal/spares/service"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// ConsumptionHandler handles direct consumption endpoints
type ConsumptionHandler struct {
	consumption *service.ConsumptionService
	logger      *logger.Logger
}

// NewConsumptionHandler creates a new consumption handler
func NewConsumptionHandler(consumption *service.ConsumptionService, log *logger.Logger) *ConsumptionHandler {
	return &ConsumptionHandler{
		consumption: consumption,
		logger:      log,
	}
}

type consumeBody struct {
	SpareID      string `json:"spare_id" validate:"required,uuid"`
	LocationType string `json:"location_type" validate:"required"`
	LocationID   string `json:"location_id" validate:"required,uuid"`
	Qty          int    `json:"qty" validate:"required,gt=0"`
	InWarranty   bool   `json:"in_warranty"`
	ReferenceNo  string `json:"reference_no"`
}

// Create records a consumption against a service call
func (h *ConsumptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body consumeBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}

	m, err := h.consumption.Consume(r.Context(), callerFrom(r), service.ConsumeInput{
		SpareID:      body.SpareID,
		LocationType: body.LocationType,
		LocationID:   body.LocationID,
		Qty:          body.Qty,
		InWarranty:   body.InWarranty,
		ReferenceNo:  body.ReferenceNo,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, m)
}
