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

func newInventoryFixture(t *testing.T) (*testutil.MockDB, *repository.InventoryRepository) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	db := database.Wrap(mockDB.DB, logger.New("test", "test"))
	return mockDB, repository.NewInventoryRepository(db)
}

func inventoryRow(good, defective, inTransit int) *sqlmock.Rows {
	return testutil.MockRows(
		"id", "spare_id", "location_type", "location_id",
		"good_qty", "defective_qty", "in_transit_qty", "updated_at",
	).AddRow("inv-1", "spare-1", "service_center", "sc-1", good, defective, inTransit, time.Now().UTC())
}

func TestInventoryGetReturnsZeroRecordWhenAbsent(t *testing.T) {
	mockDB, repo := newInventoryFixture(t)

	mockDB.ExpectQuery("FROM spare_inventory").
		WithArgs("spare-1", "service_center", "sc-1").
		WillReturnError(sql.ErrNoRows)

	inv, err := repo.Get(context.Background(), "spare-1", "service_center", "sc-1")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, "spare-1", inv.SpareID)
	assert.Equal(t, 0, inv.GoodQty)
	assert.Equal(t, 0, inv.DefectiveQty)
	assert.Equal(t, 0, inv.InTransitQty)

	mockDB.ExpectationsWereMet(t)
}

func TestInventoryCheckAvailable(t *testing.T) {
	mockDB, repo := newInventoryFixture(t)

	mockDB.ExpectQuery("FROM spare_inventory").
		WithArgs("spare-1", "service_center", "sc-1").
		WillReturnRows(inventoryRow(5, 0, 0))

	available, ok, err := repo.CheckAvailable(context.Background(), "spare-1", "service_center", "sc-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, available)
	assert.True(t, ok)

	mockDB.ExpectQuery("FROM spare_inventory").
		WithArgs("spare-1", "service_center", "sc-1").
		WillReturnRows(inventoryRow(5, 0, 0))

	available, ok, err = repo.CheckAvailable(context.Background(), "spare-1", "service_center", "sc-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 5, available)
	assert.False(t, ok)

	mockDB.ExpectationsWereMet(t)
}

func TestApplyTxIncreaseUpsertsLedgerRow(t *testing.T) {
	mockDB, repo := newInventoryFixture(t)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("INSERT INTO spare_inventory").
		WithArgs("spare-1", "technician", "tech-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	err = repo.ApplyTx(tx, "spare-1", "technician", "tech-1", movement.BucketGood, movement.OperationIncrease, 4)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	mockDB.ExpectationsWereMet(t)
}

func TestApplyTxDecreaseGuardReportsAvailable(t *testing.T) {
	mockDB, repo := newInventoryFixture(t)

	// The guarded UPDATE matches no row when the bucket cannot cover the
	// quantity; the repo then re-reads the row to report what was on hand.
	mockDB.ExpectBegin()
	mockDB.ExpectExec("SET good_qty = good_qty - $4").
		WithArgs("spare-1", "service_center", "sc-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("FROM spare_inventory").
		WithArgs("spare-1", "service_center", "sc-1").
		WillReturnRows(inventoryRow(3, 0, 0))
	mockDB.ExpectRollback()

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	err = repo.ApplyTx(tx, "spare-1", "service_center", "sc-1", movement.BucketGood, movement.OperationDecrease, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "3", appErr.Details["available"])
	assert.Equal(t, "10", appErr.Details["requested"])

	require.NoError(t, tx.Rollback())
	mockDB.ExpectationsWereMet(t)
}

func TestApplyTxDecreaseTargetsRequestedBucket(t *testing.T) {
	mockDB, repo := newInventoryFixture(t)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("SET defective_qty = defective_qty - $4").
		WithArgs("spare-1", "plant", "plant-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	err = repo.ApplyTx(tx, "spare-1", "plant", "plant-1", movement.BucketDefective, movement.OperationDecrease, 2)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	mockDB.ExpectationsWereMet(t)
}

func TestApplyTxRejectsNonPositiveQuantity(t *testing.T) {
	mockDB, repo := newInventoryFixture(t)

	mockDB.ExpectBegin()
	mockDB.ExpectRollback()

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	err = repo.ApplyTx(tx, "spare-1", "service_center", "sc-1", movement.BucketGood, movement.OperationIncrease, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))

	err = repo.ApplyTx(tx, "spare-1", "service_center", "sc-1", movement.BucketGood, movement.OperationDecrease, -1)
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))

	require.NoError(t, tx.Rollback())
	mockDB.ExpectationsWereMet(t)
}
