package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldstock/fieldstock-backend/internal/spares/events"
	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/internal/spares/service"
	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/messaging"
	"github.com/fieldstock/fieldstock-backend/pkg/testutil"
)

type approvalFixture struct {
	mockDB    *testutil.MockDB
	publisher *testutil.MockPublisher
	svc       *service.ApprovalService
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "test")
	db := database.Wrap(mockDB.DB, log)

	pub := testutil.NewMockPublisher()
	eventPub := events.NewSpareEventPublisher(pub, log)

	svc := service.NewApprovalService(
		db,
		movement.DefaultTable(),
		repository.NewInventoryRepository(db),
		repository.NewMovementRepository(db),
		repository.NewRequestRepository(db),
		eventPub,
		log,
	)

	return &approvalFixture{mockDB: mockDB, publisher: pub, svc: svc}
}

func requestRows(status string) *sqlmock.Rows {
	now := time.Now()
	return testutil.MockRows(
		"id", "request_no", "request_type", "reason", "source_type", "source_id",
		"destination_type", "destination_id", "status", "remarks", "created_by", "approved_by",
		"created_at", "updated_at",
	).AddRow(
		"req-1", "SR-20260831-abc", "TECH_ISSUE", "replacement", "service_center", "sc-1",
		"technician", "tech-1", status, nil, "user-1", nil,
		now, now,
	)
}

func itemRows(items ...[3]interface{}) *sqlmock.Rows {
	rows := testutil.MockRows("id", "request_id", "spare_id", "requested_qty", "approved_qty")
	for _, it := range items {
		rows.AddRow(it[0], "req-1", it[1], it[2], 0)
	}
	return rows
}

func inventoryRows(spareID, locType, locID string, good, defective, inTransit int) *sqlmock.Rows {
	return testutil.MockRows(
		"id", "spare_id", "location_type", "location_id",
		"good_qty", "defective_qty", "in_transit_qty", "updated_at",
	).AddRow("inv-1", spareID, locType, locID, good, defective, inTransit, time.Now())
}

func movementInsertRows() *sqlmock.Rows {
	return testutil.MockRows("created_at").AddRow(time.Now())
}

var techCaller = service.Caller{UserID: "approver-1", LocationType: "technician", LocationID: "tech-1"}

func TestApprovalTechIssueHappyPath(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("pending"))
	f.mockDB.ExpectQuery("FROM spare_request_items").
		WillReturnRows(itemRows([3]interface{}{"item-1", "spare-7", 10}))

	// Pre-validation locks the source ledger row.
	f.mockDB.ExpectQuery("FROM spare_inventory").
		WillReturnRows(inventoryRows("spare-7", "service_center", "sc-1", 100, 0, 0))

	// TECH_ISSUE_OUT: decrease good at the service center.
	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("SET good_qty = good_qty - $4").
		WithArgs("spare-7", "service_center", "sc-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// TECH_ISSUE_IN: increase good at the technician.
	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("INSERT INTO spare_inventory").
		WithArgs("spare-7", "technician", "tech-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	f.mockDB.ExpectExec("UPDATE spare_request_items SET approved_qty").
		WithArgs("item-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectExec("UPDATE spare_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectCommit()

	result, err := f.svc.Approve(context.Background(), techCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 10},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 10, result.TotalQtyApproved)
	assert.Len(t, result.MovementIDs, 2)
	assert.Equal(t, result.MovementIDs[0], result.StockMovementID)

	f.publisher.AssertEventPublished(t, messaging.EventRequestApproved)
	f.publisher.AssertEventPublished(t, messaging.EventMovementRecorded)
	f.mockDB.ExpectationsWereMet(t)
}

func TestApprovalPersistsRemarks(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("pending"))
	f.mockDB.ExpectQuery("FROM spare_request_items").
		WillReturnRows(itemRows([3]interface{}{"item-1", "spare-7", 10}))
	f.mockDB.ExpectQuery("FROM spare_inventory").
		WillReturnRows(inventoryRows("spare-7", "service_center", "sc-1", 100, 0, 0))

	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("SET good_qty = good_qty - $4").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("INSERT INTO spare_inventory").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectExec("UPDATE spare_request_items SET approved_qty").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Remarks land on the request row before the status transition.
	f.mockDB.ExpectExec("SET remarks = $2").
		WithArgs("req-1", "partial shipment acceptable").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectExec("UPDATE spare_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectCommit()

	_, err := f.svc.Approve(context.Background(), techCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 10},
		Remarks:      "partial shipment acceptable",
	})
	require.NoError(t, err)
	f.mockDB.ExpectationsWereMet(t)
}

func TestApprovalInsufficientStockRollsBack(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("pending"))
	f.mockDB.ExpectQuery("FROM spare_request_items").
		WillReturnRows(itemRows([3]interface{}{"item-1", "spare-7", 10}))

	// Only 3 units available at the source: the whole batch aborts with
	// no ledger or movement writes.
	f.mockDB.ExpectQuery("FROM spare_inventory").
		WillReturnRows(inventoryRows("spare-7", "service_center", "sc-1", 3, 0, 0))
	f.mockDB.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), techCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 10},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	f.publisher.AssertNoEventsPublished(t)
	f.mockDB.ExpectationsWereMet(t)
}

func TestApprovalFailureAfterDecreaseRollsBack(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("pending"))
	f.mockDB.ExpectQuery("FROM spare_request_items").
		WillReturnRows(itemRows([3]interface{}{"item-1", "spare-7", 10}))
	f.mockDB.ExpectQuery("FROM spare_inventory").
		WillReturnRows(inventoryRows("spare-7", "service_center", "sc-1", 100, 0, 0))

	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("SET good_qty = good_qty - $4").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Failure injected between the source decrease and the destination
	// increase: everything must roll back together.
	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("INSERT INTO spare_inventory").
		WillReturnError(assert.AnError)
	f.mockDB.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), techCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 10},
	})
	require.Error(t, err)

	f.publisher.AssertNoEventsPublished(t)
	f.mockDB.ExpectationsWereMet(t)
}

func TestApprovalRejectsWrongCallerLocation(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("pending"))
	f.mockDB.ExpectQuery("FROM spare_request_items").
		WillReturnRows(itemRows([3]interface{}{"item-1", "spare-7", 10}))
	f.mockDB.ExpectRollback()

	otherCaller := service.Caller{UserID: "approver-1", LocationType: "technician", LocationID: "tech-9"}
	_, err := f.svc.Approve(context.Background(), otherCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 10},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	f.mockDB.ExpectationsWereMet(t)
}

func TestApprovalRejectsNonPendingRequest(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("approved"))
	f.mockDB.ExpectQuery("FROM spare_request_items").
		WillReturnRows(itemRows([3]interface{}{"item-1", "spare-7", 10}))
	f.mockDB.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), techCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 10},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	f.mockDB.ExpectationsWereMet(t)
}

func TestApprovalClampsApprovedQtyToRequested(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("pending"))
	f.mockDB.ExpectQuery("FROM spare_request_items").
		WillReturnRows(itemRows([3]interface{}{"item-1", "spare-7", 10}))
	f.mockDB.ExpectQuery("FROM spare_inventory").
		WillReturnRows(inventoryRows("spare-7", "service_center", "sc-1", 100, 0, 0))

	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	// Caller asked for 50 but only 10 were requested: the clamp wins.
	f.mockDB.ExpectExec("SET good_qty = good_qty - $4").
		WithArgs("spare-7", "service_center", "sc-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("INSERT INTO spare_inventory").
		WithArgs("spare-7", "technician", "tech-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	f.mockDB.ExpectExec("UPDATE spare_request_items SET approved_qty").
		WithArgs("item-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectExec("UPDATE spare_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectCommit()

	result, err := f.svc.Approve(context.Background(), techCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 50},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.TotalQtyApproved)
	f.mockDB.ExpectationsWereMet(t)
}

func TestApprovalSkipsItemsWithoutPositiveQty(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("pending"))
	f.mockDB.ExpectQuery("FROM spare_request_items").WillReturnRows(itemRows(
		[3]interface{}{"item-1", "spare-7", 10},
		[3]interface{}{"item-2", "spare-8", 5},
	))

	// Only item-1 is validated and processed; item-2 was approved at 0.
	f.mockDB.ExpectQuery("FROM spare_inventory").
		WillReturnRows(inventoryRows("spare-7", "service_center", "sc-1", 100, 0, 0))

	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("SET good_qty = good_qty - $4").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectQuery("INSERT INTO stock_movements").WillReturnRows(movementInsertRows())
	f.mockDB.ExpectExec("INSERT INTO spare_inventory").
		WillReturnResult(sqlmock.NewResult(0, 1))

	f.mockDB.ExpectExec("UPDATE spare_request_items SET approved_qty").
		WithArgs("item-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectExec("UPDATE spare_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectCommit()

	result, err := f.svc.Approve(context.Background(), techCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 10, "item-2": 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 10, result.TotalQtyApproved)
	f.mockDB.ExpectationsWereMet(t)
}

func TestApprovalRejectsAllZeroApprovals(t *testing.T) {
	f := newApprovalFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("FROM spare_requests").WillReturnRows(requestRows("pending"))
	f.mockDB.ExpectQuery("FROM spare_request_items").
		WillReturnRows(itemRows([3]interface{}{"item-1", "spare-7", 10}))
	f.mockDB.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), techCaller, service.ApproveInput{
		RequestID:    "req-1",
		ApprovedQtys: map[string]int{"item-1": 0},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
	f.mockDB.ExpectationsWereMet(t)
}
