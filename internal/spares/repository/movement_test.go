package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/testutil"
)

func newMovementFixture(t *testing.T) (*testutil.MockDB, *repository.MovementRepository) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	db := database.Wrap(mockDB.DB, logger.New("test", "test"))
	return mockDB, repository.NewMovementRepository(db)
}

func movementRow(id, status string) *sqlmock.Rows {
	return testutil.MockRows(
		"id", "movement_type", "bucket", "bucket_operation", "spare_id", "total_qty",
		"reference_type", "reference_no", "source_type", "source_id",
		"destination_type", "destination_id", "sap_relevant", "status",
		"created_by", "verified_by", "verified_at", "created_at",
	).AddRow(id, "TECH_ISSUE_OUT", "GOOD", "DECREASE", "spare-1", 5,
		nil, nil, "service_center", "sc-1",
		"technician", "tech-1", false, status,
		nil, nil, nil, time.Now().UTC())
}

func TestInsertTxDefaultsToPending(t *testing.T) {
	mockDB, repo := newMovementFixture(t)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now().UTC()))
	mockDB.ExpectCommit()

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	m := &repository.StockMovement{
		MovementType:    string(movement.TechIssueOut),
		Bucket:          string(movement.BucketGood),
		BucketOperation: string(movement.OperationDecrease),
		SpareID:         "spare-1",
		TotalQty:        5,
	}
	err = repo.InsertTx(tx, m)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, string(movement.MovementPending), m.Status)
	assert.False(t, m.CreatedAt.IsZero())

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateStatusCompleteStampsVerifier(t *testing.T) {
	mockDB, repo := newMovementFixture(t)

	mockDB.ExpectExec("SET status = $2, verified_by = $3, verified_at = NOW()").
		WithArgs("mov-1", "completed", "tech-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "mov-1", movement.MovementCompleted, "tech-1")
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateStatusConflictWhenTerminal(t *testing.T) {
	mockDB, repo := newMovementFixture(t)

	// The status guard matches no row; the follow-up read distinguishes a
	// terminal movement from a missing one.
	mockDB.ExpectExec("UPDATE stock_movements").
		WithArgs("mov-1", "completed", "tech-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("FROM stock_movements").
		WithArgs("mov-1").
		WillReturnRows(movementRow("mov-1", "completed"))

	err := repo.UpdateStatus(context.Background(), "mov-1", movement.MovementCompleted, "tech-1")
	assert.True(t, errors.Is(err, errors.ErrConflict))

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateStatusNotFound(t *testing.T) {
	mockDB, repo := newMovementFixture(t)

	mockDB.ExpectExec("UPDATE stock_movements").
		WithArgs("mov-404", "in_transit").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("FROM stock_movements").
		WithArgs("mov-404").
		WillReturnError(sql.ErrNoRows)

	err := repo.UpdateStatus(context.Background(), "mov-404", movement.MovementInTransit, "")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
