package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

type fakeInventoryLister struct {
	rows []*repository.SpareInventory
}

func (f *fakeInventoryLister) ListByLocationType(ctx context.Context, locationType string) ([]*repository.SpareInventory, error) {
	return f.rows, nil
}

type fakeLocationGetter struct {
	locations map[string]*repository.Location
}

func (f *fakeLocationGetter) GetByID(ctx context.Context, id string) (*repository.Location, error) {
	loc, ok := f.locations[id]
	if !ok {
		return nil, errors.NotFound("location")
	}
	return loc, nil
}

type fakeMSLLookup struct {
	rows map[string][]*repository.SparePartMSL // spareID+cityTierID
}

func (f *fakeMSLLookup) ActiveForSpareAndTier(ctx context.Context, spareID, cityTierID string, at time.Time) ([]*repository.SparePartMSL, error) {
	return f.rows[spareID+cityTierID], nil
}

type fakeRequestCreator struct {
	created []*repository.SpareRequest
	pending map[string]bool // spareID+destinationID
}

func (f *fakeRequestCreator) Create(ctx context.Context, req *repository.SpareRequest) error {
	req.ID = "req-" + req.Items[0].SpareID
	f.created = append(f.created, req)
	return nil
}

func (f *fakeRequestCreator) HasPendingForSpareAndDestination(ctx context.Context, spareID, destinationID string) (bool, error) {
	return f.pending[spareID+destinationID], nil
}

type fakeReplenishmentPublisher struct {
	published []string // request IDs
}

func (f *fakeReplenishmentPublisher) ReplenishmentGenerated(ctx context.Context, requestID, spareID, locationID, plantID string, requestedQty int) {
	f.published = append(f.published, requestID)
}

func scannerFixture() (*fakeInventoryLister, *fakeLocationGetter, *fakeMSLLookup, *fakeRequestCreator, *fakeReplenishmentPublisher) {
	tierID := "tier-1"
	plantID := "plant-1"

	inventory := &fakeInventoryLister{}
	locations := &fakeLocationGetter{
		locations: map[string]*repository.Location{
			"sc-1": {ID: "sc-1", Name: "Service Center 1", LocationType: "service_center", CityTierID: &tierID, PlantID: &plantID},
		},
	}
	msl := &fakeMSLLookup{rows: map[string][]*repository.SparePartMSL{}}
	requests := &fakeRequestCreator{pending: map[string]bool{}}
	publisher := &fakeReplenishmentPublisher{}

	return inventory, locations, msl, requests, publisher
}

func newTestScanner(inv *fakeInventoryLister, loc *fakeLocationGetter, msl *fakeMSLLookup, req *fakeRequestCreator, pub *fakeReplenishmentPublisher) *MSLScanner {
	return NewMSLScanner(inv, loc, msl, req, pub, logger.New("test", "test"))
}

func TestMSLScannerGeneratesShortageRequest(t *testing.T) {
	inventory, locations, msl, requests, publisher := scannerFixture()

	inventory.rows = []*repository.SpareInventory{
		{SpareID: "spare-1", LocationType: "service_center", LocationID: "sc-1", GoodQty: 5},
	}
	msl.rows["spare-1tier-1"] = []*repository.SparePartMSL{
		{SpareID: "spare-1", CityTierID: "tier-1", MinimumStockLevelQty: 10, MaximumStockLevelQty: 50},
	}

	scanner := newTestScanner(inventory, locations, msl, requests, publisher)
	result, err := scanner.Scan(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, result.Generated, 1)
	assert.Equal(t, 45, result.Generated[0].RequestedQty)
	assert.Equal(t, "spare-1", result.Generated[0].SpareID)
	assert.Equal(t, "sc-1", result.Generated[0].LocationID)
	assert.Equal(t, 0, result.Skipped)

	require.Len(t, requests.created, 1)
	req := requests.created[0]
	assert.Equal(t, "CFU", req.RequestType)
	assert.Equal(t, "plant-1", *req.SourceID)
	assert.Equal(t, "sc-1", req.DestinationID)
	assert.Equal(t, 45, req.Items[0].RequestedQty)

	assert.Len(t, publisher.published, 1)
}

func TestMSLScannerAboveMinimumEmitsNothing(t *testing.T) {
	inventory, locations, msl, requests, publisher := scannerFixture()

	inventory.rows = []*repository.SpareInventory{
		{SpareID: "spare-1", LocationType: "service_center", LocationID: "sc-1", GoodQty: 20},
	}
	msl.rows["spare-1tier-1"] = []*repository.SparePartMSL{
		{SpareID: "spare-1", CityTierID: "tier-1", MinimumStockLevelQty: 10, MaximumStockLevelQty: 50},
	}

	scanner := newTestScanner(inventory, locations, msl, requests, publisher)
	result, err := scanner.Scan(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Empty(t, result.Generated)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, requests.created)
}

func TestMSLScannerSkipsRowWithoutActiveMSL(t *testing.T) {
	inventory, locations, msl, requests, publisher := scannerFixture()

	inventory.rows = []*repository.SpareInventory{
		{SpareID: "spare-no-msl", LocationType: "service_center", LocationID: "sc-1", GoodQty: 0},
	}

	scanner := newTestScanner(inventory, locations, msl, requests, publisher)
	result, err := scanner.Scan(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Empty(t, result.Generated)
	assert.Equal(t, 1, result.Skipped)
}

func TestMSLScannerSkipsDuplicateActiveMSL(t *testing.T) {
	inventory, locations, msl, requests, publisher := scannerFixture()

	inventory.rows = []*repository.SpareInventory{
		{SpareID: "spare-1", LocationType: "service_center", LocationID: "sc-1", GoodQty: 0},
	}
	msl.rows["spare-1tier-1"] = []*repository.SparePartMSL{
		{MinimumStockLevelQty: 10, MaximumStockLevelQty: 50},
		{MinimumStockLevelQty: 15, MaximumStockLevelQty: 60},
	}

	scanner := newTestScanner(inventory, locations, msl, requests, publisher)
	result, err := scanner.Scan(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Empty(t, result.Generated)
	assert.Equal(t, 1, result.Skipped)
}

func TestMSLScannerSkipsLocationWithoutPlantMapping(t *testing.T) {
	inventory, locations, msl, requests, publisher := scannerFixture()

	tierID := "tier-1"
	locations.locations["sc-2"] = &repository.Location{
		ID: "sc-2", LocationType: "service_center", CityTierID: &tierID,
	}
	inventory.rows = []*repository.SpareInventory{
		{SpareID: "spare-1", LocationType: "service_center", LocationID: "sc-2", GoodQty: 0},
	}

	scanner := newTestScanner(inventory, locations, msl, requests, publisher)
	result, err := scanner.Scan(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Empty(t, result.Generated)
	assert.Equal(t, 1, result.Skipped)
}

func TestMSLScannerSkipsWhenPendingRequestExists(t *testing.T) {
	inventory, locations, msl, requests, publisher := scannerFixture()

	inventory.rows = []*repository.SpareInventory{
		{SpareID: "spare-1", LocationType: "service_center", LocationID: "sc-1", GoodQty: 5},
	}
	msl.rows["spare-1tier-1"] = []*repository.SparePartMSL{
		{MinimumStockLevelQty: 10, MaximumStockLevelQty: 50},
	}
	requests.pending["spare-1sc-1"] = true

	scanner := newTestScanner(inventory, locations, msl, requests, publisher)
	result, err := scanner.Scan(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Empty(t, result.Generated)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, requests.created)
}

func TestMSLScannerBadRowDoesNotAbortScan(t *testing.T) {
	inventory, locations, msl, requests, publisher := scannerFixture()

	inventory.rows = []*repository.SpareInventory{
		// Unknown location: skipped with a warning.
		{SpareID: "spare-1", LocationType: "service_center", LocationID: "sc-missing", GoodQty: 0},
		// Healthy shortfall row: still processed.
		{SpareID: "spare-2", LocationType: "service_center", LocationID: "sc-1", GoodQty: 2},
	}
	msl.rows["spare-2tier-1"] = []*repository.SparePartMSL{
		{MinimumStockLevelQty: 5, MaximumStockLevelQty: 30},
	}

	scanner := newTestScanner(inventory, locations, msl, requests, publisher)
	result, err := scanner.Scan(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, result.Generated, 1)
	assert.Equal(t, "spare-2", result.Generated[0].SpareID)
	assert.Equal(t, 28, result.Generated[0].RequestedQty)
	assert.Equal(t, 1, result.Skipped)
}

func TestMSLScannerExactlyAtMinimumGenerates(t *testing.T) {
	inventory, locations, msl, requests, publisher := scannerFixture()

	// qty_good == minimum triggers replenishment (threshold is inclusive).
	inventory.rows = []*repository.SpareInventory{
		{SpareID: "spare-1", LocationType: "service_center", LocationID: "sc-1", GoodQty: 10},
	}
	msl.rows["spare-1tier-1"] = []*repository.SparePartMSL{
		{MinimumStockLevelQty: 10, MaximumStockLevelQty: 50},
	}

	scanner := newTestScanner(inventory, locations, msl, requests, publisher)
	result, err := scanner.Scan(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, result.Generated, 1)
	assert.Equal(t, 40, result.Generated[0].RequestedQty)
}
