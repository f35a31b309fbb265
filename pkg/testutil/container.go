// Package testutil provides testing utilities for the FieldStock backend.
// It includes a testcontainers PostgreSQL instance, a sqlmock wrapper,
// mock factories, and common test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "fieldstock_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "fieldstock_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateSpareSchema creates the spares service schema. Constraint names
// matter: the database error mapper translates them into API errors.
func (c *PostgresContainer) CreateSpareSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS city_tiers (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(100) UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS spares (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			part_number VARCHAR(100) NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			unit_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			gst_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
			hsn_code VARCHAR(16),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_spares_part_number UNIQUE (part_number)
		);

		CREATE TABLE IF NOT EXISTS locations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			location_type VARCHAR(30) NOT NULL,
			city_tier_id UUID REFERENCES city_tiers(id),
			plant_id UUID,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT location_type_valid CHECK (location_type IN
				('warehouse','plant','service_center','technician','customer','supplier','branch'))
		);

		CREATE TABLE IF NOT EXISTS spare_inventory (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			spare_id UUID NOT NULL REFERENCES spares(id),
			location_type VARCHAR(30) NOT NULL,
			location_id UUID NOT NULL,
			good_qty INTEGER NOT NULL DEFAULT 0,
			defective_qty INTEGER NOT NULL DEFAULT 0,
			in_transit_qty INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_spare_inventory_location UNIQUE (spare_id, location_type, location_id),
			CONSTRAINT qty_non_negative CHECK (good_qty >= 0 AND defective_qty >= 0 AND in_transit_qty >= 0)
		);

		CREATE TABLE IF NOT EXISTS spare_requests (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			request_no VARCHAR(64) NOT NULL,
			request_type VARCHAR(40) NOT NULL,
			reason VARCHAR(40) NOT NULL,
			source_type VARCHAR(30),
			source_id UUID,
			destination_type VARCHAR(30) NOT NULL,
			destination_id UUID NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			remarks TEXT,
			created_by UUID,
			approved_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_spare_requests_request_no UNIQUE (request_no),
			CONSTRAINT request_status_valid CHECK (status IN
				('pending','approved','verified','completed','cancelled'))
		);

		CREATE TABLE IF NOT EXISTS spare_request_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			request_id UUID NOT NULL REFERENCES spare_requests(id),
			spare_id UUID NOT NULL REFERENCES spares(id),
			requested_qty INTEGER NOT NULL,
			approved_qty INTEGER NOT NULL DEFAULT 0,
			CONSTRAINT requested_qty_positive CHECK (requested_qty > 0),
			CONSTRAINT approved_lte_requested CHECK (approved_qty <= requested_qty)
		);

		CREATE TABLE IF NOT EXISTS stock_movements (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			movement_type VARCHAR(40) NOT NULL,
			bucket VARCHAR(20) NOT NULL,
			bucket_operation VARCHAR(10) NOT NULL,
			spare_id UUID NOT NULL REFERENCES spares(id),
			total_qty INTEGER NOT NULL,
			reference_type VARCHAR(30),
			reference_no VARCHAR(64),
			source_type VARCHAR(30),
			source_id UUID,
			destination_type VARCHAR(30),
			destination_id UUID,
			sap_relevant BOOLEAN NOT NULL DEFAULT FALSE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_by UUID,
			verified_by UUID,
			verified_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT movement_qty_positive CHECK (total_qty > 0),
			CONSTRAINT movement_status_valid CHECK (status IN
				('pending','in_transit','completed','cancelled'))
		);

		CREATE TABLE IF NOT EXISTS spare_part_msl (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			spare_id UUID NOT NULL REFERENCES spares(id),
			city_tier_id UUID NOT NULL REFERENCES city_tiers(id),
			minimum_stock_level_qty INTEGER NOT NULL,
			maximum_stock_level_qty INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			effective_from TIMESTAMPTZ NOT NULL,
			effective_to TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT msl_max_gte_min CHECK (maximum_stock_level_qty >= minimum_stock_level_qty)
		);

		CREATE TABLE IF NOT EXISTS purchase_invoices (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			invoice_no VARCHAR(64) NOT NULL,
			plant_id UUID NOT NULL,
			service_center_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_purchase_invoices_invoice_no UNIQUE (invoice_no)
		);

		CREATE TABLE IF NOT EXISTS purchase_invoice_lines (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			invoice_id UUID NOT NULL REFERENCES purchase_invoices(id),
			spare_id UUID NOT NULL REFERENCES spares(id),
			qty INTEGER NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			gst_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
			hsn_code VARCHAR(16)
		);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create spares schema: %w", err)
	}

	return nil
}
