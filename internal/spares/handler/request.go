// Package handler exposes the spares service over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fieldstock/fieldstock-backend/internal/spares/service"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// RequestHandler handles spare request endpoints
type RequestHandler struct {
	requests *service.RequestService
	approval *service.ApprovalService
	logger   *logger.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requests *service.RequestService, approval *service.ApprovalService, log *logger.Logger) *RequestHandler {
	return &RequestHandler{
		requests: requests,
		approval: approval,
		logger:   log,
	}
}

type createRequestBody struct {
	Reason          string `json:"reason" validate:"required"`
	SourceType      string `json:"source_type"`
	SourceID        string `json:"source_id"`
	DestinationType string `json:"destination_type" validate:"required"`
	DestinationID   string `json:"destination_id" validate:"required,uuid"`
	Remarks         string `json:"remarks"`
	Items           []struct {
		SpareID string `json:"spare_id" validate:"required,uuid"`
		Qty     int    `json:"qty" validate:"required,gt=0"`
	} `json:"items" validate:"required,min=1,dive"`
}

// Create creates a new spare request
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}

	input := service.CreateRequestInput{
		Reason:          body.Reason,
		SourceType:      body.SourceType,
		SourceID:        body.SourceID,
		DestinationType: body.DestinationType,
		DestinationID:   body.DestinationID,
		Remarks:         body.Remarks,
	}
	for _, item := range body.Items {
		input.Items = append(input.Items, service.CreateRequestItem{
			SpareID: item.SpareID,
			Qty:     item.Qty,
		})
	}

	req, err := h.requests.Create(r.Context(), callerFrom(r), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, req)
}

// Get gets a request with its items
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := h.requests.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, req)
}

// List lists requests, optionally filtered by status
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	status := r.URL.Query().Get("status")

	requests, total, err := h.requests.List(r.Context(), status, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, requests, paginationMeta(page, perPage, total))
}

type approveRequestBody struct {
	Items []struct {
		ItemID      string `json:"item_id" validate:"required,uuid"`
		ApprovedQty int    `json:"approved_qty" validate:"gte=0"`
	} `json:"items" validate:"required,min=1,dive"`
	Remarks string `json:"remarks"`
}

// Approve approves a pending request and settles the stock ledger
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body approveRequestBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}

	input := service.ApproveInput{
		RequestID:    id,
		ApprovedQtys: make(map[string]int, len(body.Items)),
		Remarks:      body.Remarks,
	}
	for _, item := range body.Items {
		input.ApprovedQtys[item.ItemID] = item.ApprovedQty
	}

	result, err := h.approval.Approve(r.Context(), callerFrom(r), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

type cancelRequestBody struct {
	Remarks string `json:"remarks"`
}

// Cancel cancels a pending or approved request
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body cancelRequestBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.approval.Cancel(r.Context(), callerFrom(r), id, body.Remarks); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// callerFrom maps the authenticated caller into the service-layer identity.
func callerFrom(r *http.Request) service.Caller {
	c := httputil.GetCaller(r.Context())
	return service.Caller{
		UserID:       c.UserID,
		LocationType: c.LocationType,
		LocationID:   c.LocationID,
	}
}

func pagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func paginationMeta(page, perPage int, total int64) *httputil.Meta {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	return &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
