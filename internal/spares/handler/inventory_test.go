package handler_test

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldstock/fieldstock-backend/internal/spares/handler"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/testutil"
)

func newInventoryRouter(t *testing.T) (*testutil.MockDB, http.Handler) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("test", "test")
	db := database.Wrap(mockDB.DB, log)
	h := handler.NewInventoryHandler(repository.NewInventoryRepository(db), log)

	r := chi.NewRouter()
	r.Get("/inventory/availability", h.Availability)
	r.Get("/inventory/item", h.Get)
	return mockDB, r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAvailabilityReportsGoodBucket(t *testing.T) {
	mockDB, router := newInventoryRouter(t)

	mockDB.ExpectQuery("FROM spare_inventory").
		WithArgs("spare-1", "service_center", "sc-1").
		WillReturnRows(testutil.MockRows(
			"id", "spare_id", "location_type", "location_id",
			"good_qty", "defective_qty", "in_transit_qty", "updated_at",
		).AddRow("inv-1", "spare-1", "service_center", "sc-1", 8, 0, 0, time.Now().UTC()))

	req := httptest.NewRequest("GET", "/inventory/availability?spare_id=spare-1&location_type=service_center&location_id=sc-1&qty=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "spare-1", data["spare_id"])
	assert.Equal(t, float64(8), data["good_qty"])
	assert.Equal(t, float64(5), data["requested"])
	assert.Equal(t, true, data["available"])

	mockDB.ExpectationsWereMet(t)
}

func TestAvailabilityRejectsMissingParams(t *testing.T) {
	mockDB, router := newInventoryRouter(t)

	req := httptest.NewRequest("GET", "/inventory/availability?location_type=service_center&qty=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)

	mockDB.ExpectationsWereMet(t)
}

func TestAvailabilityRejectsNonPositiveQty(t *testing.T) {
	mockDB, router := newInventoryRouter(t)

	req := httptest.NewRequest("GET", "/inventory/availability?spare_id=spare-1&location_type=service_center&location_id=sc-1&qty=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_QUANTITY", resp.Error.Code)

	mockDB.ExpectationsWereMet(t)
}

func TestInventoryGetReturnsZeroRowForUnknownLocation(t *testing.T) {
	mockDB, router := newInventoryRouter(t)

	mockDB.ExpectQuery("FROM spare_inventory").
		WithArgs("spare-9", "technician", "tech-9").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest("GET", "/inventory/item?spare_id=spare-9&location_type=technician&location_id=tech-9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), data["good_qty"])
	assert.Equal(t, float64(0), data["defective_qty"])
	assert.Equal(t, float64(0), data["in_transit_qty"])

	mockDB.ExpectationsWereMet(t)
}
