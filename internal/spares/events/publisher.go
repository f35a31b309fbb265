// Package events publishes spares domain events to the message broker.
package events

import (
	"context"

	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/messaging"
)

// Publisher is the event publishing boundary the services depend on.
// Satisfied by messaging.Publisher in production and by a recording mock
// in tests.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// SpareEventPublisher publishes domain events for the spares service.
// Publishing is best-effort: failures are logged, never surfaced to the
// caller, since the ledger transaction has already committed.
type SpareEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewSpareEventPublisher creates a new spare event publisher
func NewSpareEventPublisher(publisher Publisher, log *logger.Logger) *SpareEventPublisher {
	return &SpareEventPublisher{
		publisher: publisher,
		logger:    log.WithComponent("events"),
	}
}

// MovementRecorded publishes a movement-recorded event
func (p *SpareEventPublisher) MovementRecorded(ctx context.Context, m *repository.StockMovement) {
	payload := messaging.MovementRecordedEvent{
		MovementID:      m.ID,
		MovementType:    m.MovementType,
		Bucket:          m.Bucket,
		BucketOperation: m.BucketOperation,
		SpareID:         m.SpareID,
		TotalQty:        m.TotalQty,
		SAPRelevant:     m.SAPRelevant,
	}
	if m.ReferenceType != nil {
		payload.ReferenceType = *m.ReferenceType
	}
	if m.ReferenceNo != nil {
		payload.ReferenceNo = *m.ReferenceNo
	}
	if m.SourceType != nil {
		payload.SourceType = *m.SourceType
	}
	if m.SourceID != nil {
		payload.SourceID = *m.SourceID
	}
	if m.DestinationType != nil {
		payload.DestinationType = *m.DestinationType
	}
	if m.DestinationID != nil {
		payload.DestinationID = *m.DestinationID
	}
	if m.CreatedBy != nil {
		payload.CreatedBy = *m.CreatedBy
	}

	if err := p.publisher.Publish(ctx, messaging.EventMovementRecorded, payload); err != nil {
		p.logger.Error().Err(err).Str("movement_id", m.ID).Msg("failed to publish movement recorded event")
	}
}

// MovementCompleted publishes a movement-completed event
func (p *SpareEventPublisher) MovementCompleted(ctx context.Context, movementID, verifiedBy string) {
	payload := messaging.MovementCompletedEvent{
		MovementID: movementID,
		VerifiedBy: verifiedBy,
	}
	if err := p.publisher.Publish(ctx, messaging.EventMovementCompleted, payload); err != nil {
		p.logger.Error().Err(err).Str("movement_id", movementID).Msg("failed to publish movement completed event")
	}
}

// RequestCreated publishes a request-created event
func (p *SpareEventPublisher) RequestCreated(ctx context.Context, req *repository.SpareRequest) {
	payload := messaging.RequestCreatedEvent{
		RequestID:   req.ID,
		RequestType: req.RequestType,
		Reason:      req.Reason,
		ItemCount:   len(req.Items),
	}
	if req.CreatedBy != nil {
		payload.CreatedBy = *req.CreatedBy
	}
	if err := p.publisher.Publish(ctx, messaging.EventRequestCreated, payload); err != nil {
		p.logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to publish request created event")
	}
}

// RequestApproved publishes a request-approved event
func (p *SpareEventPublisher) RequestApproved(ctx context.Context, requestID, requestType string, itemsProcessed, totalQtyApproved int, approvedBy string) {
	payload := messaging.RequestApprovedEvent{
		RequestID:        requestID,
		RequestType:      requestType,
		ItemsProcessed:   itemsProcessed,
		TotalQtyApproved: totalQtyApproved,
		ApprovedBy:       approvedBy,
	}
	if err := p.publisher.Publish(ctx, messaging.EventRequestApproved, payload); err != nil {
		p.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to publish request approved event")
	}
}

// RequestCancelled publishes a request-cancelled event
func (p *SpareEventPublisher) RequestCancelled(ctx context.Context, requestID, cancelledBy, remarks string) {
	payload := messaging.RequestCancelledEvent{
		RequestID:   requestID,
		CancelledBy: cancelledBy,
		Remarks:     remarks,
	}
	if err := p.publisher.Publish(ctx, messaging.EventRequestCancelled, payload); err != nil {
		p.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to publish request cancelled event")
	}
}

// ReplenishmentGenerated publishes a replenishment-generated event
func (p *SpareEventPublisher) ReplenishmentGenerated(ctx context.Context, requestID, spareID, locationID, plantID string, requestedQty int) {
	payload := messaging.ReplenishmentGeneratedEvent{
		RequestID:    requestID,
		SpareID:      spareID,
		LocationID:   locationID,
		PlantID:      plantID,
		RequestedQty: requestedQty,
	}
	if err := p.publisher.Publish(ctx, messaging.EventReplenishmentGenerated, payload); err != nil {
		p.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to publish replenishment generated event")
	}
}
