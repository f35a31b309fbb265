package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/fieldstock/fieldstock-backend/internal/spares/events"
	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// ConsumeInput records a spare consumed directly during a repair,
// outside the request flow.
type ConsumeInput struct {
	SpareID      string
	LocationType string
	LocationID   string
	Qty          int
	InWarranty   bool
	ReferenceNo  string
}

// ConsumptionService records one-sided consumption movements: the good
// bucket at the consuming location decreases with no counterpart
// increase anywhere.
type ConsumptionService struct {
	db        *database.DB
	table     *movement.Table
	inventory *repository.InventoryRepository
	movements *repository.MovementRepository
	publisher *events.SpareEventPublisher
	logger    *logger.Logger
}

// NewConsumptionService creates a new consumption service
func NewConsumptionService(
	db *database.DB,
	table *movement.Table,
	inventory *repository.InventoryRepository,
	movements *repository.MovementRepository,
	publisher *events.SpareEventPublisher,
	log *logger.Logger,
) *ConsumptionService {
	return &ConsumptionService{
		db:        db,
		table:     table,
		inventory: inventory,
		movements: movements,
		publisher: publisher,
		logger:    log.WithComponent("consumption"),
	}
}

// Consume records the consumption movement and decrements the ledger in
// one transaction.
func (s *ConsumptionService) Consume(ctx context.Context, caller Caller, input ConsumeInput) (*repository.StockMovement, error) {
	if input.Qty <= 0 {
		return nil, errors.InvalidQuantity("consumed quantity must be greater than zero")
	}
	if !movement.ValidLocationKind(input.LocationType) {
		return nil, errors.BadRequest("unknown location type: " + input.LocationType)
	}

	movementType := movement.ConsumptionIW
	if !input.InWarranty {
		movementType = movement.ConsumptionOOW
	}

	effect, ok := s.table.Effect(movementType)
	if !ok {
		return nil, errors.Configuration("no ledger effect for movement type " + string(movementType))
	}

	m := &repository.StockMovement{
		MovementType:    string(movementType),
		Bucket:          string(effect.Bucket),
		BucketOperation: string(effect.Operation),
		SpareID:         input.SpareID,
		TotalQty:        input.Qty,
		SourceType:      strPtr(input.LocationType),
		SourceID:        strPtr(input.LocationID),
		SAPRelevant:     effect.SAPRelevant,
		Status:          string(movement.MovementCompleted),
		CreatedBy:       strPtr(caller.UserID),
	}
	if input.ReferenceNo != "" {
		m.ReferenceType = strPtr("service_call")
		m.ReferenceNo = strPtr(input.ReferenceNo)
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.movements.InsertTx(tx, m); err != nil {
			return err
		}
		return s.inventory.ApplyTx(tx, input.SpareID, input.LocationType, input.LocationID,
			effect.Bucket, effect.Operation, input.Qty)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("spare_id", input.SpareID).
		Str("movement_type", string(movementType)).
		Int("qty", input.Qty).
		Msg("consumption recorded")

	s.publisher.MovementRecorded(ctx, m)
	return m, nil
}
