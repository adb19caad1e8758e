package movements

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/ledger"
	"stockmaster/infrastructure/sqlite/sqlitetest"
	"stockmaster/models"
)

func TestCreateMovementAndList(t *testing.T) {
	db := sqlitetest.Open(t)
	ctx := context.Background()
	actor := models.Actor{UserID: 2, Name: "Op"}
	auditSvc := audit.NewService(db)
	t.Cleanup(auditSvc.Close)

	sqlitetest.Exec(t, db, `INSERT INTO products (sku, name, quantity) VALUES ('A', 'Alpha', 3)`)

	m, err := CreateMovement(ctx, db, auditSvc, actor, ledger.MovementInput{ProductID: 1, Kind: models.MovementStockIn, Quantity: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, m.NewStock)

	_, err = CreateMovement(ctx, db, auditSvc, actor, ledger.MovementInput{ProductID: 1, Kind: models.MovementStockOut, Quantity: 9})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	rows, err := ListMovements(ctx, db, ListFilter{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.MovementStockIn, rows[0].Kind)

	auditSvc.Flush()
	var logs []models.SystemLog
	require.NoError(t, db.R.NewSelect().Model(&logs).Scan(ctx))
	require.Len(t, logs, 1)
	assert.Equal(t, audit.ActionMovementCreate, logs[0].Action)
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter(httptest.NewRequest("GET", "/api/movements?product_id=4&kind=stock-out&from=2025-01-01&limit=5", nil))
	require.NoError(t, err)
	assert.EqualValues(t, 4, f.ProductID)
	assert.Equal(t, "stock-out", f.Kind)
	assert.Equal(t, 5, f.Limit)
	assert.Equal(t, 2025, f.From.Year())

	_, err = parseFilter(httptest.NewRequest("GET", "/api/movements?from=yesterday", nil))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
