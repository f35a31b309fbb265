// Package service holds the spares business logic: the approval
// transaction processor, direct consumption, the MSL scanner and its
// scheduler, and return pricing.
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

// Caller identifies who is acting and where they hold stock.
type Caller struct {
	UserID       string
	LocationType string
	LocationID   string
}

// ApproveInput is the approval call contract.
type ApproveInput struct {
	RequestID    string
	ApprovedQtys map[string]int // item ID -> approved qty
	Remarks      string
}

// ApprovalResult reports what an approval committed.
type ApprovalResult struct {
	StockMovementID  string   `json:"stock_movement_id"`
	MovementIDs      []string `json:"movement_ids"`
	ItemsProcessed   int      `json:"items_processed"`
	TotalQtyApproved int      `json:"total_qty_approved"`
}

// ApprovalService turns an approved request into ledger mutations and
// movement records inside one database transaction. A single *sqlx.Tx
// handle is threaded through every sub-operation, so any failure rolls
// back all ledger and movement writes together.
type ApprovalService struct {
	db        *database.DB
	table     *movement.Table
	inventory *repository.InventoryRepository
	movements *repository.MovementRepository
	requests  *repository.RequestRepository
	publisher *events.SpareEventPublisher
	logger    *logger.Logger
}

// NewApprovalService creates a new approval service
func NewApprovalService(
	db *database.DB,
	table *movement.Table,
	inventory *repository.InventoryRepository,
	movements *repository.MovementRepository,
	requests *repository.RequestRepository,
	publisher *events.SpareEventPublisher,
	log *logger.Logger,
) *ApprovalService {
	return &ApprovalService{
		db:        db,
		table:     table,
		inventory: inventory,
		movements: movements,
		requests:  requests,
		publisher: publisher,
		logger:    log.WithComponent("approval"),
	}
}

const referenceTypeSpareRequest = "spare_request"

// Approve executes the approval procedure atomically. Per-item approved
// quantities are clamped to the requested quantity; items that end up
// with a non-positive quantity are skipped, not zero-recorded. Any
// insufficiency or write failure rolls the whole batch back.
func (s *ApprovalService) Approve(ctx context.Context, caller Caller, input ApproveInput) (*ApprovalResult, error) {
	var result ApprovalResult
	var requestType string
	var recorded []*repository.StockMovement

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		req, err := s.requests.GetForUpdateTx(tx, input.RequestID)
		if err != nil {
			return err
		}
		requestType = req.RequestType

		if req.Status != string(movement.RequestPending) {
			return errors.InvalidTransition(req.Status, string(movement.RequestApproved))
		}

		// Authorization boundary: only the receiving location approves.
		if caller.LocationID != req.DestinationID {
			return errors.Unauthorized("caller location does not match the request destination")
		}

		legs, ok := s.table.Legs(movement.RequestType(req.RequestType))
		if !ok {
			return errors.Configuration("no movement mapping for request type " + req.RequestType)
		}

		type approvedItem struct {
			item *repository.SpareRequestItem
			qty  int
		}
		var approved []approvedItem
		for _, item := range req.Items {
			qty := input.ApprovedQtys[item.ID]
			if qty > item.RequestedQty {
				qty = item.RequestedQty
			}
			if qty <= 0 {
				continue
			}
			approved = append(approved, approvedItem{item: item, qty: qty})
		}

		if len(approved) == 0 {
			return errors.InvalidQuantity("no item has a positive approved quantity")
		}

		// Pre-validate every decrease leg under a row lock before
		// writing anything, so the batch is all-or-nothing.
		for _, leg := range legs {
			effect, ok := s.table.Effect(leg)
			if !ok {
				return errors.Configuration("no ledger effect for movement type " + string(leg))
			}
			if effect.Operation != movement.OperationDecrease {
				continue
			}

			locType, locID, err := legLocation(req, effect.At)
			if err != nil {
				return err
			}

			for _, a := range approved {
				inv, err := s.inventory.GetForUpdateTx(tx, a.item.SpareID, locType, locID)
				if err != nil {
					return err
				}
				if inv.Qty(effect.Bucket) < a.qty {
					return errors.InsufficientStock(a.item.SpareID, a.qty, inv.Qty(effect.Bucket))
				}
			}
		}

		for _, a := range approved {
			for _, leg := range legs {
				effect, _ := s.table.Effect(leg)

				locType, locID, err := legLocation(req, effect.At)
				if err != nil {
					return err
				}

				m := &repository.StockMovement{
					MovementType:    string(leg),
					Bucket:          string(effect.Bucket),
					BucketOperation: string(effect.Operation),
					SpareID:         a.item.SpareID,
					TotalQty:        a.qty,
					ReferenceType:   strPtr(referenceTypeSpareRequest),
					ReferenceNo:     strPtr(req.RequestNo),
					SourceType:      req.SourceType,
					SourceID:        req.SourceID,
					DestinationType: strPtr(req.DestinationType),
					DestinationID:   strPtr(req.DestinationID),
					SAPRelevant:     effect.SAPRelevant,
					CreatedBy:       strPtr(caller.UserID),
				}
				if err := s.movements.InsertTx(tx, m); err != nil {
					return err
				}
				result.MovementIDs = append(result.MovementIDs, m.ID)
				recorded = append(recorded, m)

				// Receipt legs settle the in-transit build-up of their
				// dispatch leg before crediting the final bucket.
				if effect.DrainsInTransit {
					if err := s.inventory.ApplyTx(tx, a.item.SpareID, locType, locID,
						movement.BucketInTransit, movement.OperationDecrease, a.qty); err != nil {
						return err
					}
				}

				if err := s.inventory.ApplyTx(tx, a.item.SpareID, locType, locID,
					effect.Bucket, effect.Operation, a.qty); err != nil {
					return err
				}
			}

			if err := s.requests.UpdateItemApprovedQtyTx(tx, a.item.ID, a.qty); err != nil {
				return err
			}

			result.ItemsProcessed++
			result.TotalQtyApproved += a.qty
		}

		if input.Remarks != "" {
			if err := s.requests.UpdateRemarksTx(tx, req.ID, input.Remarks); err != nil {
				return err
			}
		}

		return s.requests.UpdateStatusTx(tx, req.ID,
			movement.RequestPending, movement.RequestApproved, caller.UserID)
	})
	if err != nil {
		return nil, err
	}

	if len(result.MovementIDs) > 0 {
		result.StockMovementID = result.MovementIDs[0]
	}

	s.logger.Info().
		Str("spare_request_id", input.RequestID).
		Int("items_processed", result.ItemsProcessed).
		Int("total_qty_approved", result.TotalQtyApproved).
		Msg("request approved")

	s.publisher.RequestApproved(ctx, input.RequestID, requestType,
		result.ItemsProcessed, result.TotalQtyApproved, caller.UserID)
	for _, m := range recorded {
		s.publisher.MovementRecorded(ctx, m)
	}

	return &result, nil
}

// Cancel cancels a pending or approved request.
func (s *ApprovalService) Cancel(ctx context.Context, caller Caller, requestID, remarks string) error {
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		req, err := s.requests.GetForUpdateTx(tx, requestID)
		if err != nil {
			return err
		}
		if err := s.requests.UpdateStatusTx(tx, req.ID,
			movement.RequestStatus(req.Status), movement.RequestCancelled, caller.UserID); err != nil {
			return err
		}
		if remarks != "" {
			return s.requests.UpdateRemarksTx(tx, req.ID, remarks)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("spare_request_id", requestID).Msg("request cancelled")
	s.publisher.RequestCancelled(ctx, requestID, caller.UserID, remarks)
	return nil
}

// CompleteMovement marks a movement as completed, stamping the verifier.
func (s *ApprovalService) CompleteMovement(ctx context.Context, caller Caller, movementID string) error {
	if err := s.movements.UpdateStatus(ctx, movementID, movement.MovementCompleted, caller.UserID); err != nil {
		return err
	}

	s.publisher.MovementCompleted(ctx, movementID, caller.UserID)
	return nil
}

// legLocation resolves which end of the request a ledger effect applies to.
func legLocation(req *repository.SpareRequest, at movement.End) (string, string, error) {
	switch at {
	case movement.AtSource:
		if req.SourceType == nil || req.SourceID == nil {
			return "", "", errors.Configuration("request has no source location for a source-side movement")
		}
		return *req.SourceType, *req.SourceID, nil
	case movement.AtDestination:
		return req.DestinationType, req.DestinationID, nil
	default:
		return "", "", errors.Configuration("unknown movement end: " + string(at))
	}
}

func strPtr(s string) *string {
	return &s
}
