package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Fixture helpers seed rows directly so repository and service tests can
// build scenarios without going through the API surface. Each helper
// returns the generated ID.

// SeedCityTier inserts a city tier
func (s *IntegrationSuite) SeedCityTier(t *testing.T, ctx context.Context, name string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO city_tiers (id, name) VALUES ($1, $2)`, id, name)
	if err != nil {
		t.Fatalf("failed to seed city tier: %v", err)
	}
	return id
}

// SeedSpare inserts a spare part
func (s *IntegrationSuite) SeedSpare(t *testing.T, ctx context.Context, partNumber, name string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO spares (id, part_number, name, unit_price, gst_rate) VALUES ($1, $2, $3, 100.00, 18.00)`,
		id, partNumber, name)
	if err != nil {
		t.Fatalf("failed to seed spare: %v", err)
	}
	return id
}

// SeedLocation inserts a location. cityTierID and plantID may be empty.
func (s *IntegrationSuite) SeedLocation(t *testing.T, ctx context.Context, name, locationType, cityTierID, plantID string) string {
	t.Helper()
	id := uuid.New().String()

	var tier, plant interface{}
	if cityTierID != "" {
		tier = cityTierID
	}
	if plantID != "" {
		plant = plantID
	}

	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO locations (id, name, location_type, city_tier_id, plant_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)`,
		id, name, locationType, tier, plant)
	if err != nil {
		t.Fatalf("failed to seed location: %v", err)
	}
	return id
}

// SeedInventory inserts a ledger row with explicit bucket quantities
func (s *IntegrationSuite) SeedInventory(t *testing.T, ctx context.Context, spareID, locationType, locationID string, good, defective, inTransit int) {
	t.Helper()
	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO spare_inventory (spare_id, location_type, location_id, good_qty, defective_qty, in_transit_qty)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		spareID, locationType, locationID, good, defective, inTransit)
	if err != nil {
		t.Fatalf("failed to seed inventory: %v", err)
	}
}

// SeedMSL inserts an active MSL row effective from yesterday
func (s *IntegrationSuite) SeedMSL(t *testing.T, ctx context.Context, spareID, cityTierID string, minQty, maxQty int) string {
	t.Helper()
	id := uuid.New().String()
	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO spare_part_msl (id, spare_id, city_tier_id, minimum_stock_level_qty, maximum_stock_level_qty, is_active, effective_from)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
		id, spareID, cityTierID, minQty, maxQty, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("failed to seed MSL: %v", err)
	}
	return id
}

// SeedInvoice inserts a purchase invoice with one line for the spare,
// backdating created_at so FIFO ordering can be exercised.
func (s *IntegrationSuite) SeedInvoice(t *testing.T, ctx context.Context, spareID, serviceCenterID, plantID string, unitPrice string, createdAt time.Time) string {
	t.Helper()
	invoiceID := uuid.New().String()
	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO purchase_invoices (id, invoice_no, plant_id, service_center_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		invoiceID, "INV-"+invoiceID[:8], plantID, serviceCenterID, createdAt)
	if err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}

	_, err = s.RawDB.ExecContext(ctx,
		`INSERT INTO purchase_invoice_lines (id, invoice_id, spare_id, qty, unit_price, gst_rate, hsn_code)
		 VALUES ($1, $2, $3, 10, $4, 18.00, '8473')`,
		uuid.New().String(), invoiceID, spareID, unitPrice)
	if err != nil {
		t.Fatalf("failed to seed invoice line: %v", err)
	}
	return invoiceID
}

// InventoryQuantities reads the bucket quantities for (spare, location)
// directly, for asserting ledger state after a scenario.
func (s *IntegrationSuite) InventoryQuantities(t *testing.T, ctx context.Context, spareID, locationType, locationID string) (good, defective, inTransit int) {
	t.Helper()
	row := struct {
		Good      int `db:"good_qty"`
		Defective int `db:"defective_qty"`
		InTransit int `db:"in_transit_qty"`
	}{}
	err := s.RawDB.GetContext(ctx, &row,
		`SELECT good_qty, defective_qty, in_transit_qty
		 FROM spare_inventory
		 WHERE spare_id = $1 AND location_type = $2 AND location_id = $3`,
		spareID, locationType, locationID)
	if err != nil {
		t.Fatalf("failed to read inventory: %v", err)
	}
	return row.Good, row.Defective, row.InTransit
}
