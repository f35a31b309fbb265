package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// Location is a party that holds stock. Service centers carry a city
// tier (for MSL lookups) and an upstream plant (replenishment source).
type Location struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	LocationType string    `db:"location_type" json:"location_type"`
	CityTierID   *string   `db:"city_tier_id" json:"city_tier_id,omitempty"`
	PlantID      *string   `db:"plant_id" json:"plant_id,omitempty"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LocationRepository handles location persistence
type LocationRepository struct {
	db *database.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

const locationColumns = `id, name, location_type, city_tier_id, plant_id, is_active, created_at, updated_at`

// Create creates a location
func (r *LocationRepository) Create(ctx context.Context, loc *Location) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}

	query := `
		INSERT INTO locations (id, name, location_type, city_tier_id, plant_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		loc.ID, loc.Name, loc.LocationType, loc.CityTierID, loc.PlantID, loc.IsActive,
	).Scan(&loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetByID gets a location by ID
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*Location, error) {
	var loc Location

	query := `
		SELECT ` + locationColumns + `
		FROM locations WHERE id = $1
	`
	err := r.db.GetContext(ctx, &loc, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("location")
	}
	if err != nil {
		return nil, err
	}

	return &loc, nil
}

// ListByType lists active locations of the given kind.
func (r *LocationRepository) ListByType(ctx context.Context, locationType string) ([]*Location, error) {
	var locations []*Location

	query := `
		SELECT ` + locationColumns + `
		FROM locations
		WHERE location_type = $1 AND is_active = TRUE
		ORDER BY name
	`
	if err := r.db.SelectContext(ctx, &locations, query, locationType); err != nil {
		return nil, err
	}

	return locations, nil
}
