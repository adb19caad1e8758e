// Package report aggregates products and movements into monthly dashboard
// figures.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/config"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

// Options controls pricing and the calendar used for bucketing.
type Options struct {
	PriceBasis string
	Location   *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

type Totals struct {
	TotalProducts    int     `json:"total_products"`
	LowStockCount    int     `json:"low_stock_count"`
	MonthlyEntries   int64   `json:"monthly_entries"`
	MonthlyExits     int64   `json:"monthly_exits"`
	MonthlyCost      float64 `json:"monthly_cost"`
	MonthlyRevenue   float64 `json:"monthly_revenue"`
	TotalStockValue  float64 `json:"total_stock_value"`
	PotentialRevenue float64 `json:"potential_revenue"`
}

type DayBucket struct {
	Day     int     `json:"day"`
	Entries int64   `json:"entries"`
	Exits   int64   `json:"exits"`
	Cost    float64 `json:"cost"`
	Revenue float64 `json:"revenue"`
}

type LowStockItem struct {
	ID       int64  `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	MinStock int64  `json:"min_stock"`
}

type Summary struct {
	Month    int            `json:"month"`
	Year     int            `json:"year"`
	Totals   Totals         `json:"totals"`
	Days     []DayBucket    `json:"days"`
	LowStock []LowStockItem `json:"low_stock"`
}

// Direction of a movement kind.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionEntry
	DirectionExit
)

// Classify maps a movement to entry or exit. Plain adjustments follow the
// sign of the stock change.
func Classify(m models.Movement) Direction {
	switch m.Kind {
	case models.MovementCreation, models.MovementStockIn, models.MovementAdjustmentIn:
		return DirectionEntry
	case models.MovementStockOut, models.MovementLiquidation, models.MovementAdjustmentOut:
		return DirectionExit
	case models.MovementAdjustment:
		switch {
		case m.NewStock > m.OldStock:
			return DirectionEntry
		case m.NewStock < m.OldStock:
			return DirectionExit
		}
	}
	return DirectionNone
}

// MonthRange returns the first and last instant of month in loc.
func MonthRange(month, year int, loc *time.Location) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, apperr.Validation("month must be between 1 and 12", map[string]int{"month": month})
	}
	if year < 1 {
		return time.Time{}, time.Time{}, apperr.Validation("year must be positive", map[string]int{"year": year})
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return first, last, nil
}

// DaysIn returns the number of calendar days of month.
func DaysIn(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Summarize builds the monthly summary from already loaded rows. Movements
// outside the month are ignored.
func Summarize(products []models.Product, movements []models.Movement, month, year int, opts Options) (Summary, error) {
	loc := opts.location()
	first, last, err := MonthRange(month, year, loc)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Month:    month,
		Year:     year,
		Days:     make([]DayBucket, DaysIn(month, year)),
		LowStock: []LowStockItem{},
	}
	for i := range s.Days {
		s.Days[i].Day = i + 1
	}

	byID := make(map[int64]models.Product, len(products))
	stockValue := decimal.Zero
	potential := decimal.Zero
	for _, p := range products {
		byID[p.ID] = p
		qty := decimal.NewFromInt(p.Quantity)
		stockValue = stockValue.Add(qty.Mul(p.CostPrice))
		potential = potential.Add(qty.Mul(p.Price))
		if p.LowStock() {
			s.LowStock = append(s.LowStock, LowStockItem{
				ID: p.ID, SKU: p.SKU, Name: p.Name, Quantity: p.Quantity, MinStock: p.ReorderPoint(),
			})
		}
	}
	sort.Slice(s.LowStock, func(i, j int) bool {
		if s.LowStock[i].Quantity != s.LowStock[j].Quantity {
			return s.LowStock[i].Quantity < s.LowStock[j].Quantity
		}
		return s.LowStock[i].SKU < s.LowStock[j].SKU
	})

	dayCost := make([]decimal.Decimal, len(s.Days))
	dayRevenue := make([]decimal.Decimal, len(s.Days))
	for _, m := range movements {
		at := m.CreatedAt.In(loc)
		if at.Before(first) || at.After(last) {
			continue
		}
		idx := at.Day() - 1
		qty := decimal.NewFromInt(m.Quantity)
		cost, price := unitPrices(m, byID, opts.PriceBasis)

		switch Classify(m) {
		case DirectionEntry:
			s.Days[idx].Entries += m.Quantity
			// Opening stock is not a purchase.
			if m.Kind != models.MovementCreation {
				dayCost[idx] = dayCost[idx].Add(qty.Mul(cost))
			}
		case DirectionExit:
			s.Days[idx].Exits += m.Quantity
			dayRevenue[idx] = dayRevenue[idx].Add(qty.Mul(price))
		}
	}

	monthCost := decimal.Zero
	monthRevenue := decimal.Zero
	for i := range s.Days {
		s.Days[i].Cost = dayCost[i].InexactFloat64()
		s.Days[i].Revenue = dayRevenue[i].InexactFloat64()
		s.Totals.MonthlyEntries += s.Days[i].Entries
		s.Totals.MonthlyExits += s.Days[i].Exits
		monthCost = monthCost.Add(dayCost[i])
		monthRevenue = monthRevenue.Add(dayRevenue[i])
	}

	s.Totals.TotalProducts = len(products)
	s.Totals.LowStockCount = len(s.LowStock)
	s.Totals.MonthlyCost = monthCost.InexactFloat64()
	s.Totals.MonthlyRevenue = monthRevenue.InexactFloat64()
	s.Totals.TotalStockValue = stockValue.InexactFloat64()
	s.Totals.PotentialRevenue = potential.InexactFloat64()
	return s, nil
}

// unitPrices picks the movement snapshot or the product's current prices.
// A deleted product prices at zero under the current basis.
func unitPrices(m models.Movement, products map[int64]models.Product, basis string) (decimal.Decimal, decimal.Decimal) {
	if basis == config.PriceBasisHistorical {
		return m.UnitCost, m.UnitPrice
	}
	p, ok := products[m.ProductID]
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	return p.CostPrice, p.Price
}

// LoadSummary reads every product and the month's movements in one read
// transaction and summarizes them.
func LoadSummary(ctx context.Context, db *sqlite.DB, month, year int, opts Options) (Summary, error) {
	first, last, err := MonthRange(month, year, opts.location())
	if err != nil {
		return Summary{}, err
	}

	var products []models.Product
	var movements []models.Movement
	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&products).Order("id ASC").Scan(ctx); err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		if err := tx.NewSelect().Model(&movements).
			Where("created_at >= ?", first.UTC()).
			Where("created_at <= ?", last.UTC()).
			Order("id ASC").
			Scan(ctx); err != nil {
			return fmt.Errorf("load movements: %w", err)
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(products, movements, month, year, opts)
}
