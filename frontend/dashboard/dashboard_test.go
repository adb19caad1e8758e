package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessioncontext "stockmaster/frontend/shared/context"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/config"
	"stockmaster/infrastructure/report"
	"stockmaster/infrastructure/sqlite/sqlitetest"
	"stockmaster/models"
)

func TestPeriodDefaultsToCurrentMonth(t *testing.T) {
	opts := report.Options{Location: time.UTC}
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	m, y, err := period(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), opts, now)
	require.NoError(t, err)
	assert.Equal(t, 2, m)
	assert.Equal(t, 2026, y)

	m, y, err = period(httptest.NewRequest(http.MethodGet, "/api/dashboard?month=11&year=2024", nil), opts, now)
	require.NoError(t, err)
	assert.Equal(t, 11, m)
	assert.Equal(t, 2024, y)

	_, _, err = period(httptest.NewRequest(http.MethodGet, "/api/dashboard?month=x", nil), opts, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestChartAndSummaryHandlers(t *testing.T) {
	db := sqlitetest.Open(t)
	opts := report.Options{PriceBasis: config.PriceBasisCurrent, Location: time.UTC}
	sqlitetest.Exec(t, db, `INSERT INTO products (sku, name, quantity, cost_price, price) VALUES ('A', 'Alpha', 2, 1, 5)`)
	sqlitetest.Exec(t, db, `INSERT INTO movements (product_id, product_name, kind, quantity, old_stock, new_stock, created_at) VALUES (1, 'Alpha', 'stock-out', 3, 5, 2, ?)`,
		time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC))

	rec := httptest.NewRecorder()
	ChartQueryHandler(db, opts).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/chart?month=2&year=2024", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var chart chartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chart))
	require.Len(t, chart.Days, 29)
	assert.EqualValues(t, 3, chart.Days[28].Exits)
	assert.InDelta(t, 15.0, chart.Days[28].Revenue, 0.001)

	rec = httptest.NewRecorder()
	SummaryQueryHandler(db, opts).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?month=13&year=2024", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	SummaryQueryHandler(db, opts).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?month=2&year=2024", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var s report.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 1, s.Totals.LowStockCount)
	assert.EqualValues(t, 3, s.Totals.MonthlyExits)
}

func TestDashboardPageRenders(t *testing.T) {
	db := sqlitetest.Open(t)
	sqlitetest.Exec(t, db, `INSERT INTO products (sku, name, quantity) VALUES ('A<1>', 'Alpha', 1)`)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(sessioncontext.NewContextWithSession(req.Context(), models.Session{User: models.User{Name: "Op", Role: models.RoleOperator}}))
	rec := httptest.NewRecorder()
	DashboardPageQueryHandler(db, report.Options{Location: time.UTC}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!doctype html>"))
	assert.Contains(t, body, "A&lt;1&gt;")
	assert.Contains(t, body, "Low stock")
}
