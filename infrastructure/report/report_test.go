package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/config"
	"stockmaster/infrastructure/ledger"
	"stockmaster/infrastructure/sqlite/sqlitetest"
	"stockmaster/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummarizeEmptyMonthHasZeroBucketsPerDay(t *testing.T) {
	cases := []struct {
		month, year, days int
	}{
		{2, 2023, 28},
		{2, 2024, 29},
		{4, 2025, 30},
		{1, 2025, 31},
		{12, 1999, 31},
	}
	for _, tc := range cases {
		s, err := Summarize(nil, nil, tc.month, tc.year, Options{Location: time.UTC})
		require.NoError(t, err)
		require.Len(t, s.Days, tc.days, "month %d/%d", tc.month, tc.year)
		for i, d := range s.Days {
			assert.Equal(t, i+1, d.Day)
			assert.Zero(t, d.Entries)
			assert.Zero(t, d.Exits)
			assert.Zero(t, d.Cost)
			assert.Zero(t, d.Revenue)
		}
		assert.Equal(t, Totals{}, s.Totals)
	}
}

func TestSummarizeRejectsInvalidMonth(t *testing.T) {
	_, err := Summarize(nil, nil, 13, 2025, Options{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, DirectionEntry, Classify(models.Movement{Kind: models.MovementCreation}))
	assert.Equal(t, DirectionEntry, Classify(models.Movement{Kind: models.MovementAdjustmentIn}))
	assert.Equal(t, DirectionExit, Classify(models.Movement{Kind: models.MovementLiquidation}))
	assert.Equal(t, DirectionExit, Classify(models.Movement{Kind: models.MovementAdjustmentOut}))
	assert.Equal(t, DirectionEntry, Classify(models.Movement{Kind: models.MovementAdjustment, OldStock: 1, NewStock: 4}))
	assert.Equal(t, DirectionExit, Classify(models.Movement{Kind: models.MovementAdjustment, OldStock: 4, NewStock: 1}))
	assert.Equal(t, DirectionNone, Classify(models.Movement{Kind: "unknown"}))
}

func TestSummarizeTotalsAndBuckets(t *testing.T) {
	at := func(day int) time.Time { return time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC) }
	minStock := int64(2)
	products := []models.Product{
		{ID: 1, SKU: "A", Quantity: 5, CostPrice: dec("2"), Price: dec("5")},
		{ID: 2, SKU: "B", Quantity: 20, MinStock: &minStock, CostPrice: dec("1.10"), Price: dec("3")},
	}
	movements := []models.Movement{
		{ProductID: 1, Kind: models.MovementStockIn, Quantity: 4, CreatedAt: at(3)},
		{ProductID: 2, Kind: models.MovementStockOut, Quantity: 2, CreatedAt: at(3)},
		{ProductID: 2, Kind: models.MovementAdjustment, OldStock: 22, NewStock: 20, Quantity: 2, CreatedAt: at(31)},
		{ProductID: 9, Kind: models.MovementLiquidation, Quantity: 7, UnitPrice: dec("100"), CreatedAt: at(10)},
		{ProductID: 1, Kind: models.MovementStockIn, Quantity: 99, CreatedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	s, err := Summarize(products, movements, 3, 2025, Options{Location: time.UTC, PriceBasis: config.PriceBasisCurrent})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Totals.TotalProducts)
	assert.Equal(t, 1, s.Totals.LowStockCount)
	require.Len(t, s.LowStock, 1)
	assert.Equal(t, "A", s.LowStock[0].SKU)
	assert.EqualValues(t, models.DefaultMinStock, s.LowStock[0].MinStock)

	assert.EqualValues(t, 4, s.Totals.MonthlyEntries)
	assert.EqualValues(t, 11, s.Totals.MonthlyExits)
	assert.InDelta(t, 8.0, s.Totals.MonthlyCost, 1e-9)
	// deleted product 9 prices at zero on the current basis
	assert.InDelta(t, 12.0, s.Totals.MonthlyRevenue, 1e-9)
	assert.InDelta(t, 32.0, s.Totals.TotalStockValue, 1e-9)
	assert.InDelta(t, 85.0, s.Totals.PotentialRevenue, 1e-9)

	assert.EqualValues(t, 4, s.Days[2].Entries)
	assert.EqualValues(t, 2, s.Days[2].Exits)
	assert.EqualValues(t, 7, s.Days[9].Exits)
	assert.EqualValues(t, 2, s.Days[30].Exits)

	hist, err := Summarize(products, movements, 3, 2025, Options{Location: time.UTC, PriceBasis: config.PriceBasisHistorical})
	require.NoError(t, err)
	assert.InDelta(t, 700.0, hist.Totals.MonthlyRevenue, 1e-9)
}

func TestLoadSummaryCreateThenReduceScenario(t *testing.T) {
	db := sqlitetest.Open(t)
	actor := models.Actor{UserID: 1, Name: "Ana"}
	qty := int64(10)
	newQty := int64(7)

	sqlitetest.Write(t, db, func(ctx context.Context, tx bun.Tx) error {
		p, err := ledger.CreateProduct(ctx, tx, actor, ledger.ProductInput{
			SKU: "A", Name: "A", Quantity: &qty, CostPrice: dec("2"), Price: dec("5"),
		})
		if err != nil {
			return err
		}
		_, err = ledger.UpdateProduct(ctx, tx, actor, p.ID, ledger.ProductPatch{Quantity: &newQty})
		return err
	})

	now := time.Now().UTC()
	s, err := LoadSummary(context.Background(), db, int(now.Month()), now.Year(), Options{Location: time.UTC})
	require.NoError(t, err)

	assert.EqualValues(t, 3, s.Totals.MonthlyExits)
	assert.InDelta(t, 0.0, s.Totals.MonthlyCost, 1e-9)
	assert.InDelta(t, 15.0, s.Totals.MonthlyRevenue, 1e-9)
	assert.InDelta(t, 14.0, s.Totals.TotalStockValue, 1e-9)
	assert.EqualValues(t, 10, s.Totals.MonthlyEntries)
}
