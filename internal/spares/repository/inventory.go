package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// SpareInventory is a ledger row: the three bucket quantities for one
// spare at one location. Rows are created lazily on first movement in
// and never deleted; zero is a valid steady state.
type SpareInventory struct {
	ID           string    `db:"id" json:"id"`
	SpareID      string    `db:"spare_id" json:"spare_id"`
	LocationType string    `db:"location_type" json:"location_type"`
	LocationID   string    `db:"location_id" json:"location_id"`
	GoodQty      int       `db:"good_qty" json:"good_qty"`
	DefectiveQty int       `db:"defective_qty" json:"defective_qty"`
	InTransitQty int       `db:"in_transit_qty" json:"in_transit_qty"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Qty returns the quantity held in the given bucket.
func (s *SpareInventory) Qty(b movement.Bucket) int {
	switch b {
	case movement.BucketGood:
		return s.GoodQty
	case movement.BucketDefective:
		return s.DefectiveQty
	case movement.BucketInTransit:
		return s.InTransitQty
	}
	return 0
}

// InventoryRepository owns all reads and writes of the quantity ledger.
// Mutations go through ApplyTx so they share the caller's transaction
// with the movement insert that triggered them.
type InventoryRepository struct {
	db *database.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const inventoryColumns = `id, spare_id, location_type, location_id, good_qty, defective_qty, in_transit_qty, updated_at`

// Get returns the ledger row for (spare, location). If no row exists a
// zeroed record is returned, never nil.
func (r *InventoryRepository) Get(ctx context.Context, spareID, locationType, locationID string) (*SpareInventory, error) {
	var inv SpareInventory

	query := `
		SELECT ` + inventoryColumns + `
		FROM spare_inventory
		WHERE spare_id = $1 AND location_type = $2 AND location_id = $3
	`
	err := r.db.GetContext(ctx, &inv, query, spareID, locationType, locationID)
	if err == sql.ErrNoRows {
		return &SpareInventory{
			SpareID:      spareID,
			LocationType: locationType,
			LocationID:   locationID,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &inv, nil
}

// GetForUpdateTx reads the ledger row inside tx with a row-level write
// lock, so concurrent approvals against the same spare+location serialize
// on the availability check. Absent rows return a zeroed record.
func (r *InventoryRepository) GetForUpdateTx(tx *sqlx.Tx, spareID, locationType, locationID string) (*SpareInventory, error) {
	var inv SpareInventory

	query := `
		SELECT ` + inventoryColumns + `
		FROM spare_inventory
		WHERE spare_id = $1 AND location_type = $2 AND location_id = $3
		FOR UPDATE
	`
	err := tx.Get(&inv, query, spareID, locationType, locationID)
	if err == sql.ErrNoRows {
		return &SpareInventory{
			SpareID:      spareID,
			LocationType: locationType,
			LocationID:   locationID,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &inv, nil
}

// CheckAvailable returns the good-bucket quantity at a location and
// whether it covers qty. Pre-flight only: the authoritative check is the
// guarded decrement in ApplyTx.
func (r *InventoryRepository) CheckAvailable(ctx context.Context, spareID, locationType, locationID string, qty int) (int, bool, error) {
	inv, err := r.Get(ctx, spareID, locationType, locationID)
	if err != nil {
		return 0, false, err
	}
	return inv.GoodQty, inv.GoodQty >= qty, nil
}

// ApplyTx mutates one bucket of the (spare, location) ledger row inside
// tx. Increases create the row if absent. Decreases are guarded: if the
// bucket does not cover qty the statement matches no row and
// InsufficientStock is returned, so the bucket can never go negative.
func (r *InventoryRepository) ApplyTx(tx *sqlx.Tx, spareID, locationType, locationID string, bucket movement.Bucket, op movement.Operation, qty int) error {
	if qty <= 0 {
		return errors.InvalidQuantity("quantity must be greater than zero")
	}

	col, err := bucketColumn(bucket)
	if err != nil {
		return err
	}

	switch op {
	case movement.OperationIncrease:
		query := fmt.Sprintf(`
			INSERT INTO spare_inventory (spare_id, location_type, location_id, %[1]s)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT ON CONSTRAINT uq_spare_inventory_location
			DO UPDATE SET %[1]s = spare_inventory.%[1]s + $4, updated_at = NOW()
		`, col)
		if _, err := tx.Exec(query, spareID, locationType, locationID, qty); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil

	case movement.OperationDecrease:
		query := fmt.Sprintf(`
			UPDATE spare_inventory
			SET %[1]s = %[1]s - $4, updated_at = NOW()
			WHERE spare_id = $1 AND location_type = $2 AND location_id = $3 AND %[1]s >= $4
		`, col)
		result, err := tx.Exec(query, spareID, locationType, locationID, qty)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			available := 0
			if inv, err := r.GetForUpdateTx(tx, spareID, locationType, locationID); err == nil {
				available = inv.Qty(bucket)
			}
			return errors.InsufficientStock(spareID, qty, available)
		}
		return nil

	default:
		return errors.BadRequest("unknown bucket operation: " + string(op))
	}
}

// ListByLocationType returns all ledger rows at locations of the given
// kind. The MSL scanner uses this as its point-in-time read.
func (r *InventoryRepository) ListByLocationType(ctx context.Context, locationType string) ([]*SpareInventory, error) {
	var rows []*SpareInventory

	query := `
		SELECT ` + inventoryColumns + `
		FROM spare_inventory
		WHERE location_type = $1
		ORDER BY location_id, spare_id
	`
	if err := r.db.SelectContext(ctx, &rows, query, locationType); err != nil {
		return nil, err
	}

	return rows, nil
}

// ListByLocation returns all ledger rows held at a single location.
func (r *InventoryRepository) ListByLocation(ctx context.Context, locationType, locationID string) ([]*SpareInventory, error) {
	var rows []*SpareInventory

	query := `
		SELECT ` + inventoryColumns + `
		FROM spare_inventory
		WHERE location_type = $1 AND location_id = $2
		ORDER BY spare_id
	`
	if err := r.db.SelectContext(ctx, &rows, query, locationType, locationID); err != nil {
		return nil, err
	}

	return rows, nil
}

func bucketColumn(b movement.Bucket) (string, error) {
	switch b {
	case movement.BucketGood:
		return "good_qty", nil
	case movement.BucketDefective:
		return "defective_qty", nil
	case movement.BucketInTransit:
		return "in_transit_qty", nil
	default:
		return "", errors.BadRequest("unknown bucket: " + string(b))
	}
}
