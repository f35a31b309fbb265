package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// Spare is the master-data record for a spare part. The price fields are
// the fallback when no inbound invoice line matches a return.
type Spare struct {
	ID          string          `db:"id" json:"id"`
	PartNumber  string          `db:"part_number" json:"part_number"`
	Name        string          `db:"name" json:"name"`
	Description *string         `db:"description" json:"description,omitempty"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	GSTRate     decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	HSNCode     *string         `db:"hsn_code" json:"hsn_code,omitempty"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// SpareRepository handles spare master-data persistence
type SpareRepository struct {
	db *database.DB
}

// NewSpareRepository creates a new spare repository
func NewSpareRepository(db *database.DB) *SpareRepository {
	return &SpareRepository{db: db}
}

const spareColumns = `id, part_number, name, description, unit_price, gst_rate, hsn_code, is_active, created_at, updated_at`

// Create creates a spare
func (r *SpareRepository) Create(ctx context.Context, s *Spare) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO spares (id, part_number, name, description, unit_price, gst_rate, hsn_code, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.PartNumber, s.Name, s.Description, s.UnitPrice, s.GSTRate, s.HSNCode, s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetByID gets a spare by ID
func (r *SpareRepository) GetByID(ctx context.Context, id string) (*Spare, error) {
	var s Spare

	query := `
		SELECT ` + spareColumns + `
		FROM spares WHERE id = $1
	`
	err := r.db.GetContext(ctx, &s, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("spare")
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// GetByPartNumber gets a spare by its part number
func (r *SpareRepository) GetByPartNumber(ctx context.Context, partNumber string) (*Spare, error) {
	var s Spare

	query := `
		SELECT ` + spareColumns + `
		FROM spares WHERE part_number = $1
	`
	err := r.db.GetContext(ctx, &s, query, partNumber)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("spare")
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// List lists active spares with pagination
func (r *SpareRepository) List(ctx context.Context, page, perPage int) ([]*Spare, int64, error) {
	var total int64
	var spares []*Spare

	countQuery := `SELECT COUNT(*) FROM spares WHERE is_active = TRUE`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := `
		SELECT ` + spareColumns + `
		FROM spares
		WHERE is_active = TRUE
		ORDER BY part_number
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &spares, query, perPage, offset); err != nil {
		return nil, 0, err
	}

	return spares, total, nil
}
