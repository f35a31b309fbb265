package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// InvoiceHandler handles purchase invoice endpoints
type InvoiceHandler struct {
	invoices *repository.InvoiceRepository
	logger   *logger.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices *repository.InvoiceRepository, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoices: invoices,
		logger:   log,
	}
}

type createInvoiceBody struct {
	InvoiceNo       string `json:"invoice_no" validate:"required"`
	PlantID         string `json:"plant_id" validate:"required,uuid"`
	ServiceCenterID string `json:"service_center_id" validate:"required,uuid"`
	Lines           []struct {
		SpareID   string  `json:"spare_id" validate:"required,uuid"`
		Qty       int     `json:"qty" validate:"required,gt=0"`
		UnitPrice string  `json:"unit_price" validate:"required"`
		GSTRate   string  `json:"gst_rate" validate:"required"`
		HSNCode   *string `json:"hsn_code"`
	} `json:"lines" validate:"required,min=1,dive"`
}

// Create records an inbound invoice with its lines
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createInvoiceBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}

	inv := &repository.PurchaseInvoice{
		InvoiceNo:       body.InvoiceNo,
		PlantID:         body.PlantID,
		ServiceCenterID: body.ServiceCenterID,
	}

	var lines []*repository.PurchaseInvoiceLine
	for _, l := range body.Lines {
		unitPrice, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			httputil.Error(w, errors.BadRequest("unit_price must be a decimal number"))
			return
		}
		gstRate, err := decimal.NewFromString(l.GSTRate)
		if err != nil {
			httputil.Error(w, errors.BadRequest("gst_rate must be a decimal number"))
			return
		}
		lines = append(lines, &repository.PurchaseInvoiceLine{
			SpareID:   l.SpareID,
			Qty:       l.Qty,
			UnitPrice: unitPrice,
			GSTRate:   gstRate,
			HSNCode:   l.HSNCode,
		})
	}

	if err := h.invoices.Create(r.Context(), inv, lines); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, inv)
}
