package service

import (
	"context"
	"time"

	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// Narrow views of the repositories the scanner reads. Tests substitute
// fakes; production wires the real repositories.
type inventoryLister interface {
	ListByLocationType(ctx context.Context, locationType string) ([]*repository.SpareInventory, error)
}

type locationGetter interface {
	GetByID(ctx context.Context, id string) (*repository.Location, error)
}

type mslLookup interface {
	ActiveForSpareAndTier(ctx context.Context, spareID, cityTierID string, at time.Time) ([]*repository.SparePartMSL, error)
}

type requestCreator interface {
	Create(ctx context.Context, req *repository.SpareRequest) error
	HasPendingForSpareAndDestination(ctx context.Context, spareID, destinationID string) (bool, error)
}

type replenishmentPublisher interface {
	ReplenishmentGenerated(ctx context.Context, requestID, spareID, locationID, plantID string, requestedQty int)
}

// GeneratedRequest describes one replenishment request a scan created.
type GeneratedRequest struct {
	RequestID    string `json:"request_id"`
	SpareID      string `json:"spare_id"`
	LocationID   string `json:"location_id"`
	RequestedQty int    `json:"requested_qty"`
}

// ScanResult reports what a scan generated and what it skipped.
type ScanResult struct {
	Generated []GeneratedRequest `json:"generated"`
	Skipped   int                `json:"skipped"`
}

// MSLScanner walks every service-center ledger row, compares the good
// bucket against the active MSL threshold for the spare and the
// location's city tier, and generates replenishment requests for
// shortfalls. A bad row is skipped with a warning, never aborts the
// scan. The scan takes a point-in-time read; races with concurrent
// approvals are acceptable because approval re-validates availability.
type MSLScanner struct {
	inventory inventoryLister
	locations locationGetter
	msl       mslLookup
	requests  requestCreator
	publisher replenishmentPublisher
	logger    *logger.Logger
}

// NewMSLScanner creates a new MSL scanner
func NewMSLScanner(
	inventory inventoryLister,
	locations locationGetter,
	msl mslLookup,
	requests requestCreator,
	publisher replenishmentPublisher,
	log *logger.Logger,
) *MSLScanner {
	return &MSLScanner{
		inventory: inventory,
		locations: locations,
		msl:       msl,
		requests:  requests,
		publisher: publisher,
		logger:    log.WithComponent("msl_scanner"),
	}
}

// Scan runs one full MSL pass. userID is recorded as the creator of the
// generated requests.
func (s *MSLScanner) Scan(ctx context.Context, userID string) (*ScanResult, error) {
	rows, err := s.inventory.ListByLocationType(ctx, string(movement.LocationServiceCenter))
	if err != nil {
		return nil, err
	}

	result := &ScanResult{}
	now := time.Now().UTC()
	locationCache := make(map[string]*repository.Location)

	for _, row := range rows {
		loc, ok := locationCache[row.LocationID]
		if !ok {
			loc, err = s.locations.GetByID(ctx, row.LocationID)
			if err != nil {
				s.logger.Warn().Err(err).
					Str("location_id", row.LocationID).
					Msg("scan: location lookup failed, skipping row")
				result.Skipped++
				continue
			}
			locationCache[row.LocationID] = loc
		}

		if loc.CityTierID == nil {
			s.logger.Warn().
				Str("location_id", loc.ID).
				Msg("scan: location has no city tier, skipping row")
			result.Skipped++
			continue
		}
		if loc.PlantID == nil {
			s.logger.Warn().
				Str("location_id", loc.ID).
				Msg("scan: location has no upstream plant mapping, skipping row")
			result.Skipped++
			continue
		}

		msls, err := s.msl.ActiveForSpareAndTier(ctx, row.SpareID, *loc.CityTierID, now)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("spare_id", row.SpareID).
				Msg("scan: MSL lookup failed, skipping row")
			result.Skipped++
			continue
		}
		if len(msls) == 0 {
			s.logger.Warn().
				Str("spare_id", row.SpareID).
				Str("city_tier_id", *loc.CityTierID).
				Msg("scan: no active MSL for spare and tier, skipping row")
			result.Skipped++
			continue
		}
		if len(msls) > 1 {
			s.logger.Warn().
				Str("spare_id", row.SpareID).
				Str("city_tier_id", *loc.CityTierID).
				Int("count", len(msls)).
				Msg("scan: multiple active MSL rows for spare and tier, skipping row")
			result.Skipped++
			continue
		}
		msl := msls[0]

		if row.GoodQty > msl.MinimumStockLevelQty {
			continue
		}

		shortage := msl.MaximumStockLevelQty - row.GoodQty
		if shortage <= 0 {
			continue
		}

		// Duplicate guard: a pending request for the same spare and
		// destination absorbs this shortfall already.
		pending, err := s.requests.HasPendingForSpareAndDestination(ctx, row.SpareID, loc.ID)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("spare_id", row.SpareID).
				Msg("scan: pending-request check failed, skipping row")
			result.Skipped++
			continue
		}
		if pending {
			s.logger.Debug().
				Str("spare_id", row.SpareID).
				Str("location_id", loc.ID).
				Msg("scan: pending replenishment request exists, skipping row")
			result.Skipped++
			continue
		}

		req := &repository.SpareRequest{
			RequestType:     string(movement.RequestCFU),
			Reason:          movement.ReasonMSL,
			SourceType:      strPtr(string(movement.LocationPlant)),
			SourceID:        loc.PlantID,
			DestinationType: string(movement.LocationServiceCenter),
			DestinationID:   loc.ID,
			CreatedBy:       strPtr(userID),
			Items: []*repository.SpareRequestItem{
				{SpareID: row.SpareID, RequestedQty: shortage},
			},
		}
		if err := s.requests.Create(ctx, req); err != nil {
			s.logger.Error().Err(err).
				Str("spare_id", row.SpareID).
				Str("location_id", loc.ID).
				Msg("scan: failed to create replenishment request")
			result.Skipped++
			continue
		}

		result.Generated = append(result.Generated, GeneratedRequest{
			RequestID:    req.ID,
			SpareID:      row.SpareID,
			LocationID:   loc.ID,
			RequestedQty: shortage,
		})

		s.publisher.ReplenishmentGenerated(ctx, req.ID, row.SpareID, loc.ID, *loc.PlantID, shortage)
	}

	s.logger.Info().
		Int("generated", len(result.Generated)).
		Int("skipped", result.Skipped).
		Msg("MSL scan completed")

	return result, nil
}
