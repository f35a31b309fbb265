package service

import (
	"context"

	"github.com/fieldstock/fieldstock-backend/internal/spares/events"
	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// CreateRequestInput describes a new spare request. The business intent
// is derived from Reason and SourceType by the classifier, never passed
// in by the caller.
type CreateRequestInput struct {
	Reason          string
	SourceType      string
	SourceID        string
	DestinationType string
	DestinationID   string
	Remarks         string
	Items           []CreateRequestItem
}

// CreateRequestItem is one spare line on a new request.
type CreateRequestItem struct {
	SpareID string
	Qty     int
}

// RequestService creates and reads spare requests.
type RequestService struct {
	requests  *repository.RequestRepository
	publisher *events.SpareEventPublisher
	logger    *logger.Logger
}

// NewRequestService creates a new request service
func NewRequestService(requests *repository.RequestRepository, publisher *events.SpareEventPublisher, log *logger.Logger) *RequestService {
	return &RequestService{
		requests:  requests,
		publisher: publisher,
		logger:    log.WithComponent("request"),
	}
}

// Create classifies and persists a new request with its items.
func (s *RequestService) Create(ctx context.Context, caller Caller, input CreateRequestInput) (*repository.SpareRequest, error) {
	if len(input.Items) == 0 {
		return nil, errors.BadRequest("a request needs at least one item")
	}
	for _, item := range input.Items {
		if item.Qty <= 0 {
			return nil, errors.InvalidQuantity("requested quantity must be greater than zero")
		}
	}
	if !movement.ValidLocationKind(input.DestinationType) {
		return nil, errors.BadRequest("unknown destination location type: " + input.DestinationType)
	}
	if input.SourceType != "" && !movement.ValidLocationKind(input.SourceType) {
		return nil, errors.BadRequest("unknown source location type: " + input.SourceType)
	}

	requestType := movement.Classify(input.Reason, movement.LocationKind(input.SourceType))

	req := &repository.SpareRequest{
		RequestType:     string(requestType),
		Reason:          input.Reason,
		DestinationType: input.DestinationType,
		DestinationID:   input.DestinationID,
		CreatedBy:       strPtr(caller.UserID),
	}
	if input.SourceType != "" {
		req.SourceType = strPtr(input.SourceType)
		req.SourceID = strPtr(input.SourceID)
	}
	if input.Remarks != "" {
		req.Remarks = strPtr(input.Remarks)
	}
	for _, item := range input.Items {
		req.Items = append(req.Items, &repository.SpareRequestItem{
			SpareID:      item.SpareID,
			RequestedQty: item.Qty,
		})
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("spare_request_id", req.ID).
		Str("request_type", req.RequestType).
		Int("items", len(req.Items)).
		Msg("request created")

	s.publisher.RequestCreated(ctx, req)
	return req, nil
}

// Get returns a request with its items.
func (s *RequestService) Get(ctx context.Context, id string) (*repository.SpareRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// List lists requests, optionally filtered by status.
func (s *RequestService) List(ctx context.Context, status string, page, perPage int) ([]*repository.SpareRequest, int64, error) {
	return s.requests.List(ctx, status, page, perPage)
}
