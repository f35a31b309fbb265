package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// StockMovement is an immutable record of a single physical stock event.
// Bucket and BucketOperation are always the values derived from
// MovementType; only status and the verification fields may change after
// insert.
type StockMovement struct {
	ID              string     `db:"id" json:"id"`
	MovementType    string     `db:"movement_type" json:"movement_type"`
	Bucket          string     `db:"bucket" json:"bucket"`
	BucketOperation string     `db:"bucket_operation" json:"bucket_operation"`
	SpareID         string     `db:"spare_id" json:"spare_id"`
	TotalQty        int        `db:"total_qty" json:"total_qty"`
	ReferenceType   *string    `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceNo     *string    `db:"reference_no" json:"reference_no,omitempty"`
	SourceType      *string    `db:"source_type" json:"source_type,omitempty"`
	SourceID        *string    `db:"source_id" json:"source_id,omitempty"`
	DestinationType *string    `db:"destination_type" json:"destination_type,omitempty"`
	DestinationID   *string    `db:"destination_id" json:"destination_id,omitempty"`
	SAPRelevant     bool       `db:"sap_relevant" json:"sap_relevant"`
	Status          string     `db:"status" json:"status"`
	CreatedBy       *string    `db:"created_by" json:"created_by,omitempty"`
	VerifiedBy      *string    `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// MovementRepository handles stock movement persistence
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

const movementColumns = `id, movement_type, bucket, bucket_operation, spare_id, total_qty,
	       reference_type, reference_no, source_type, source_id, destination_type, destination_id,
	       sap_relevant, status, created_by, verified_by, verified_at, created_at`

// InsertTx inserts a movement record inside tx. The caller is responsible
// for having derived bucket and bucket_operation from the movement table.
func (r *MovementRepository) InsertTx(tx *sqlx.Tx, m *StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = string(movement.MovementPending)
	}

	query := `
		INSERT INTO stock_movements (
			id, movement_type, bucket, bucket_operation, spare_id, total_qty,
			reference_type, reference_no, source_type, source_id,
			destination_type, destination_id, sap_relevant, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`

	err := tx.QueryRowx(query,
		m.ID, m.MovementType, m.Bucket, m.BucketOperation, m.SpareID, m.TotalQty,
		m.ReferenceType, m.ReferenceNo, m.SourceType, m.SourceID,
		m.DestinationType, m.DestinationID, m.SAPRelevant, m.Status, m.CreatedBy,
	).Scan(&m.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetByID gets a movement by ID
func (r *MovementRepository) GetByID(ctx context.Context, id string) (*StockMovement, error) {
	var m StockMovement

	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements WHERE id = $1
	`
	err := r.db.GetContext(ctx, &m, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("stock movement")
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// ListByReference returns all movements recorded for one originating
// request, oldest first.
func (r *MovementRepository) ListByReference(ctx context.Context, referenceType, referenceNo string) ([]*StockMovement, error) {
	var movements []*StockMovement

	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE reference_type = $1 AND reference_no = $2
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &movements, query, referenceType, referenceNo); err != nil {
		return nil, err
	}

	return movements, nil
}

// List lists movements with pagination, optionally filtered by spare.
func (r *MovementRepository) List(ctx context.Context, spareID string, page, perPage int) ([]*StockMovement, int64, error) {
	var total int64
	var movements []*StockMovement

	countQuery := `SELECT COUNT(*) FROM stock_movements`
	args := []interface{}{}

	if spareID != "" {
		countQuery += ` WHERE spare_id = $1`
		args = append(args, spareID)
	}

	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
	`
	if spareID != "" {
		query += ` WHERE spare_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, perPage, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, perPage, offset)
	}

	if err := r.db.SelectContext(ctx, &movements, query, args...); err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

// UpdateStatus transitions a movement's status. Completion stamps
// verified_by and verified_at.
func (r *MovementRepository) UpdateStatus(ctx context.Context, id string, status movement.MovementStatus, verifiedBy string) error {
	var query string
	var args []interface{}

	if status == movement.MovementCompleted {
		query = `
			UPDATE stock_movements
			SET status = $2, verified_by = $3, verified_at = NOW()
			WHERE id = $1 AND status IN ('pending', 'in_transit')
		`
		args = []interface{}{id, status, verifiedBy}
	} else {
		query = `
			UPDATE stock_movements
			SET status = $2
			WHERE id = $1 AND status IN ('pending', 'in_transit')
		`
		args = []interface{}{id, status}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		// Either the movement does not exist or it is already terminal.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return errors.Conflict("movement is already in a terminal status")
	}

	return nil
}
