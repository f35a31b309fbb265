package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// SpareRequest is the business-intent envelope: why material should move,
// from where, to where. Items carry the per-spare quantities.
type SpareRequest struct {
	ID              string    `db:"id" json:"id"`
	RequestNo       string    `db:"request_no" json:"request_no"`
	RequestType     string    `db:"request_type" json:"request_type"`
	Reason          string    `db:"reason" json:"reason"`
	SourceType      *string   `db:"source_type" json:"source_type,omitempty"`
	SourceID        *string   `db:"source_id" json:"source_id,omitempty"`
	DestinationType string    `db:"destination_type" json:"destination_type"`
	DestinationID   string    `db:"destination_id" json:"destination_id"`
	Status          string    `db:"status" json:"status"`
	Remarks         *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedBy       *string   `db:"created_by" json:"created_by,omitempty"`
	ApprovedBy      *string   `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	Items []*SpareRequestItem `db:"-" json:"items,omitempty"`
}

// SpareRequestItem is one spare line on a request. approved_qty never
// exceeds requested_qty; the schema backstops this.
type SpareRequestItem struct {
	ID           string `db:"id" json:"id"`
	RequestID    string `db:"request_id" json:"request_id"`
	SpareID      string `db:"spare_id" json:"spare_id"`
	RequestedQty int    `db:"requested_qty" json:"requested_qty"`
	ApprovedQty  int    `db:"approved_qty" json:"approved_qty"`
}

// RequestRepository handles spare request persistence
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, request_no, request_type, reason, source_type, source_id,
	       destination_type, destination_id, status, remarks, created_by, approved_by,
	       created_at, updated_at`

// Create creates a request together with its items in one transaction.
func (r *RequestRepository) Create(ctx context.Context, req *SpareRequest) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return r.CreateTx(tx, req)
	})
}

// CreateTx creates a request and its items inside tx. The MSL scanner
// uses this directly to batch its generated requests.
func (r *RequestRepository) CreateTx(tx *sqlx.Tx, req *SpareRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.RequestNo == "" {
		req.RequestNo = generateRequestNo()
	}
	if req.Status == "" {
		req.Status = string(movement.RequestPending)
	}

	query := `
		INSERT INTO spare_requests (
			id, request_no, request_type, reason, source_type, source_id,
			destination_type, destination_id, status, remarks, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err := tx.QueryRowx(query,
		req.ID, req.RequestNo, req.RequestType, req.Reason, req.SourceType, req.SourceID,
		req.DestinationType, req.DestinationID, req.Status, req.Remarks, req.CreatedBy,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	for _, item := range req.Items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.RequestID = req.ID

		itemQuery := `
			INSERT INTO spare_request_items (id, request_id, spare_id, requested_qty, approved_qty)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(itemQuery, item.ID, item.RequestID, item.SpareID, item.RequestedQty, item.ApprovedQty); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
	}

	return nil
}

// GetByID gets a request with its items
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*SpareRequest, error) {
	var req SpareRequest

	query := `
		SELECT ` + requestColumns + `
		FROM spare_requests WHERE id = $1
	`
	err := r.db.GetContext(ctx, &req, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("spare request")
	}
	if err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT id, request_id, spare_id, requested_qty, approved_qty
		FROM spare_request_items WHERE request_id = $1
		ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &req.Items, itemsQuery, id); err != nil {
		return nil, err
	}

	return &req, nil
}

// GetForUpdateTx loads a request and its items inside tx with a row lock
// on the request, so two approvals of the same request serialize.
func (r *RequestRepository) GetForUpdateTx(tx *sqlx.Tx, id string) (*SpareRequest, error) {
	var req SpareRequest

	query := `
		SELECT ` + requestColumns + `
		FROM spare_requests WHERE id = $1
		FOR UPDATE
	`
	err := tx.Get(&req, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("spare request")
	}
	if err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT id, request_id, spare_id, requested_qty, approved_qty
		FROM spare_request_items WHERE request_id = $1
		ORDER BY id
	`
	if err := tx.Select(&req.Items, itemsQuery, id); err != nil {
		return nil, err
	}

	return &req, nil
}

// List lists requests with pagination, optionally filtered by status.
func (r *RequestRepository) List(ctx context.Context, status string, page, perPage int) ([]*SpareRequest, int64, error) {
	var total int64
	var requests []*SpareRequest

	countQuery := `SELECT COUNT(*) FROM spare_requests`
	args := []interface{}{}

	if status != "" {
		countQuery += ` WHERE status = $1`
		args = append(args, status)
	}

	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := `
		SELECT ` + requestColumns + `
		FROM spare_requests
	`
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, perPage, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, perPage, offset)
	}

	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// UpdateStatusTx transitions a request's status inside tx. The guard on
// the current status makes illegal transitions fail with no effect.
func (r *RequestRepository) UpdateStatusTx(tx *sqlx.Tx, id string, from, to movement.RequestStatus, actorID string) error {
	if !movement.CanTransition(from, to) {
		return errors.InvalidTransition(string(from), string(to))
	}

	var query string
	var args []interface{}

	if to == movement.RequestApproved {
		query = `
			UPDATE spare_requests
			SET status = $3, approved_by = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2
		`
		args = []interface{}{id, from, to, actorID}
	} else {
		query = `
			UPDATE spare_requests
			SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2
		`
		args = []interface{}{id, from, to}
	}

	result, err := tx.Exec(query, args...)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.InvalidTransition(string(from), string(to))
	}

	return nil
}

// UpdateRemarksTx stamps approval or cancellation remarks on the request.
func (r *RequestRepository) UpdateRemarksTx(tx *sqlx.Tx, id, remarks string) error {
	query := `
		UPDATE spare_requests SET remarks = $2, updated_at = NOW() WHERE id = $1
	`
	result, err := tx.Exec(query, id, remarks)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("spare request")
	}

	return nil
}

// UpdateItemApprovedQtyTx records the approved quantity for one item
// inside tx. The approved_lte_requested constraint backstops the clamp
// done by the approval processor.
func (r *RequestRepository) UpdateItemApprovedQtyTx(tx *sqlx.Tx, itemID string, approvedQty int) error {
	query := `
		UPDATE spare_request_items SET approved_qty = $2 WHERE id = $1
	`
	result, err := tx.Exec(query, itemID, approvedQty)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("request item")
	}

	return nil
}

// HasPendingForSpareAndDestination reports whether a pending request for
// the spare already targets the destination. The MSL scanner uses this
// as its duplicate guard.
func (r *RequestRepository) HasPendingForSpareAndDestination(ctx context.Context, spareID, destinationID string) (bool, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM spare_requests sr
		JOIN spare_request_items sri ON sri.request_id = sr.id
		WHERE sri.spare_id = $1 AND sr.destination_id = $2 AND sr.status = 'pending'
	`
	if err := r.db.GetContext(ctx, &count, query, spareID, destinationID); err != nil {
		return false, err
	}

	return count > 0, nil
}

func generateRequestNo() string {
	return fmt.Sprintf("SR-%s-%s", time.Now().UTC().Format("20060102"), uuid.New().String()[:8])
}
