package service

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// PriceInfo is the authoritative pricing attached to a return or credit.
type PriceInfo struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	GSTRate   decimal.Decimal `json:"gst_rate"`
	HSNCode   string          `json:"hsn_code,omitempty"`
	Source    string          `json:"source"` // "invoice" or "master"
}

// PricingService resolves return pricing by FIFO invoice matching with a
// master-data fallback. It does no quantity consumption accounting on
// the invoice line.
type PricingService struct {
	invoices *repository.InvoiceRepository
	spares   *repository.SpareRepository
	logger   *logger.Logger
}

// NewPricingService creates a new pricing service
func NewPricingService(invoices *repository.InvoiceRepository, spares *repository.SpareRepository, log *logger.Logger) *PricingService {
	return &PricingService{
		invoices: invoices,
		spares:   spares,
		logger:   log.WithComponent("pricing"),
	}
}

// ReturnPrice returns the oldest inbound invoice line's price for the
// spare at the service center sourced from the plant. When no invoice
// line matches, the spare's master-data price is used.
func (s *PricingService) ReturnPrice(ctx context.Context, spareID, serviceCenterID, plantID string) (*PriceInfo, error) {
	line, err := s.invoices.OldestLine(ctx, spareID, serviceCenterID, plantID)
	if err == nil {
		info := &PriceInfo{
			UnitPrice: line.UnitPrice,
			GSTRate:   line.GSTRate,
			Source:    "invoice",
		}
		if line.HSNCode != nil {
			info.HSNCode = *line.HSNCode
		}
		return info, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	s.logger.Debug().
		Str("spare_id", spareID).
		Str("service_center_id", serviceCenterID).
		Msg("no invoice line found, falling back to master price")

	spare, err := s.spares.GetByID(ctx, spareID)
	if err != nil {
		return nil, err
	}

	info := &PriceInfo{
		UnitPrice: spare.UnitPrice,
		GSTRate:   spare.GSTRate,
		Source:    "master",
	}
	if spare.HSNCode != nil {
		info.HSNCode = *spare.HSNCode
	}
	return info, nil
}
