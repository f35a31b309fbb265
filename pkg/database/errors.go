package database

import (
	"strings"

	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/lib/pq"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "qty_non_negative"):
		// The schema backstops the ledger invariant; the repository should
		// have caught this first and returned INSUFFICIENT_STOCK.
		return errors.Conflict("stock quantity would become negative")

	case strings.Contains(constraint, "approved_lte_requested"):
		return errors.InvalidQuantity("approved quantity exceeds requested quantity")

	case strings.Contains(constraint, "location_type_valid"):
		return errors.Validation(map[string]string{
			"location_type": "must be one of: warehouse, plant, service_center, technician, customer, supplier, branch",
		})

	case strings.Contains(constraint, "request_status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: pending, approved, verified, completed, cancelled",
		})

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: pending, in_transit, completed, cancelled",
		})

	case strings.Contains(constraint, "qty_positive"):
		return errors.InvalidQuantity("quantity must be greater than zero")

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "spare_inventory_location"):
		return "an inventory row for this spare and location already exists"
	case strings.Contains(constraint, "part_number"):
		return "a spare with this part number already exists"
	default:
		return "a record with these values already exists"
	}
}
