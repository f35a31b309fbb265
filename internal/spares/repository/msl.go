package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// SparePartMSL is an effective-dated minimum/maximum stock level for a
// spare within a city tier. At most one row should be active for a
// (spare, tier) pair at any instant; the scanner validates this rather
// than the schema, so duplicates are detectable.
type SparePartMSL struct {
	ID                   string     `db:"id" json:"id"`
	SpareID              string     `db:"spare_id" json:"spare_id"`
	CityTierID           string     `db:"city_tier_id" json:"city_tier_id"`
	MinimumStockLevelQty int        `db:"minimum_stock_level_qty" json:"minimum_stock_level_qty"`
	MaximumStockLevelQty int        `db:"maximum_stock_level_qty" json:"maximum_stock_level_qty"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	EffectiveFrom        time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo          *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// MSLRepository handles minimum stock level persistence
type MSLRepository struct {
	db *database.DB
}

// NewMSLRepository creates a new MSL repository
func NewMSLRepository(db *database.DB) *MSLRepository {
	return &MSLRepository{db: db}
}

const mslColumns = `id, spare_id, city_tier_id, minimum_stock_level_qty, maximum_stock_level_qty,
	       is_active, effective_from, effective_to, created_at`

// ActiveForSpareAndTier returns every active MSL row for (spare, tier)
// whose effective window contains at. The caller decides how to treat
// zero or multiple matches.
func (r *MSLRepository) ActiveForSpareAndTier(ctx context.Context, spareID, cityTierID string, at time.Time) ([]*SparePartMSL, error) {
	var rows []*SparePartMSL

	query := `
		SELECT ` + mslColumns + `
		FROM spare_part_msl
		WHERE spare_id = $1 AND city_tier_id = $2
		  AND is_active = TRUE
		  AND effective_from <= $3
		  AND (effective_to IS NULL OR effective_to > $3)
		ORDER BY effective_from DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query, spareID, cityTierID, at); err != nil {
		return nil, err
	}

	return rows, nil
}

// Create creates an MSL row
func (r *MSLRepository) Create(ctx context.Context, msl *SparePartMSL) error {
	if msl.ID == "" {
		msl.ID = uuid.New().String()
	}
	if msl.EffectiveFrom.IsZero() {
		msl.EffectiveFrom = time.Now().UTC()
	}

	query := `
		INSERT INTO spare_part_msl (
			id, spare_id, city_tier_id, minimum_stock_level_qty, maximum_stock_level_qty,
			is_active, effective_from, effective_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		msl.ID, msl.SpareID, msl.CityTierID, msl.MinimumStockLevelQty, msl.MaximumStockLevelQty,
		msl.IsActive, msl.EffectiveFrom, msl.EffectiveTo,
	).Scan(&msl.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// ListBySpare returns all MSL rows for a spare, newest first.
func (r *MSLRepository) ListBySpare(ctx context.Context, spareID string) ([]*SparePartMSL, error) {
	var rows []*SparePartMSL

	query := `
		SELECT ` + mslColumns + `
		FROM spare_part_msl
		WHERE spare_id = $1
		ORDER BY effective_from DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query, spareID); err != nil {
		return nil, err
	}

	return rows, nil
}

// Deactivate closes out an MSL row, ending its effective window now.
func (r *MSLRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE spare_part_msl
		SET is_active = FALSE, effective_to = NOW()
		WHERE id = $1 AND is_active = TRUE
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("MSL record")
	}

	return nil
}
