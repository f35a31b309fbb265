// Package consumers hosts the service's own event subscriptions.
package consumers

import (
	"context"

	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/messaging"
)

// MovementEventConsumer advances SAP-relevant dispatch movements from
// pending to in_transit once their recorded event is on the broker. The
// downstream sync reads the same events; this keeps the local movement
// status aligned with what has been handed off.
type MovementEventConsumer struct {
	consumer  *messaging.Consumer
	movements *repository.MovementRepository
	logger    *logger.Logger
}

// NewMovementEventConsumer creates a new movement event consumer
func NewMovementEventConsumer(rmq *messaging.RabbitMQ, movements *repository.MovementRepository, log *logger.Logger) (*MovementEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "spares-service.movement-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeSpareEvents, "spares.movement.#"); err != nil {
		return nil, err
	}

	c := &MovementEventConsumer{
		consumer:  consumer,
		movements: movements,
		logger:    log.WithComponent("movement_consumer"),
	}

	consumer.RegisterHandler(messaging.EventMovementRecorded, c.handleMovementRecorded)

	return c, nil
}

// Start starts consuming messages
func (c *MovementEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *MovementEventConsumer) handleMovementRecorded(ctx context.Context, event *messaging.Event) error {
	var data messaging.MovementRecordedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	if !data.SAPRelevant {
		return nil
	}

	c.logger.Info().
		Str("movement_id", data.MovementID).
		Str("movement_type", data.MovementType).
		Msg("dispatch movement handed off, marking in transit")

	err := c.movements.UpdateStatus(ctx, data.MovementID, movement.MovementInTransit, "")
	if err != nil {
		// Already completed or cancelled by the time the event arrives;
		// nothing to align.
		if errors.Is(err, errors.ErrConflict) || errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}

	return nil
}
