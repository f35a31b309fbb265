package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/pkg/database"
)

// PurchaseInvoice is an inbound invoice from a plant to a service center.
type PurchaseInvoice struct {
	ID              string    `db:"id" json:"id"`
	InvoiceNo       string    `db:"invoice_no" json:"invoice_no"`
	PlantID         string    `db:"plant_id" json:"plant_id"`
	ServiceCenterID string    `db:"service_center_id" json:"service_center_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// PurchaseInvoiceLine is one spare line on an inbound invoice, carrying
// the authoritative price, tax rate and HSN code.
type PurchaseInvoiceLine struct {
	ID        string          `db:"id" json:"id"`
	InvoiceID string          `db:"invoice_id" json:"invoice_id"`
	SpareID   string          `db:"spare_id" json:"spare_id"`
	Qty       int             `db:"qty" json:"qty"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	GSTRate   decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	HSNCode   *string         `db:"hsn_code" json:"hsn_code,omitempty"`
}

// InvoiceRepository handles purchase invoice persistence
type InvoiceRepository struct {
	db *database.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create creates an invoice together with its lines in one transaction.
func (r *InvoiceRepository) Create(ctx context.Context, inv *PurchaseInvoice, lines []*PurchaseInvoiceLine) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO purchase_invoices (id, invoice_no, plant_id, service_center_id)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`
		if err := tx.QueryRowx(query, inv.ID, inv.InvoiceNo, inv.PlantID, inv.ServiceCenterID).Scan(&inv.CreatedAt); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		for _, line := range lines {
			if line.ID == "" {
				line.ID = uuid.New().String()
			}
			line.InvoiceID = inv.ID

			lineQuery := `
				INSERT INTO purchase_invoice_lines (id, invoice_id, spare_id, qty, unit_price, gst_rate, hsn_code)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`
			if _, err := tx.Exec(lineQuery, line.ID, line.InvoiceID, line.SpareID, line.Qty, line.UnitPrice, line.GSTRate, line.HSNCode); err != nil {
				if appErr := database.MapPQError(err); appErr != nil {
					return appErr
				}
				return err
			}
		}

		return nil
	})
}

// OldestLine returns the earliest inbound invoice line for the spare at
// the service center sourced from the plant, by invoice creation time
// ascending. sql.ErrNoRows is returned untranslated so the pricing
// service can apply its master-data fallback.
func (r *InvoiceRepository) OldestLine(ctx context.Context, spareID, serviceCenterID, plantID string) (*PurchaseInvoiceLine, error) {
	var line PurchaseInvoiceLine

	query := `
		SELECT pil.id, pil.invoice_id, pil.spare_id, pil.qty, pil.unit_price, pil.gst_rate, pil.hsn_code
		FROM purchase_invoice_lines pil
		JOIN purchase_invoices pi ON pi.id = pil.invoice_id
		WHERE pil.spare_id = $1 AND pi.service_center_id = $2 AND pi.plant_id = $3
		ORDER BY pi.created_at ASC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &line, query, spareID, serviceCenterID, plantID); err != nil {
		return nil, err
	}

	return &line, nil
}
