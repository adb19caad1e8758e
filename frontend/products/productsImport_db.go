package products

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/ledger"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

// ParseCSV reads products in export format. Columns are matched by header
// name; only sku and name are required.
func ParseCSV(reader io.Reader) ([]ledger.ProductInput, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Validation("CSV file is empty", nil)
	}
	if err != nil {
		return nil, apperr.Validation("invalid CSV header", err.Error())
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["sku"]; !ok {
		return nil, apperr.Validation("invalid CSV header; expected at least sku,name", nil)
	}
	if _, ok := cols["name"]; !ok {
		return nil, apperr.Validation("invalid CSV header; expected at least sku,name", nil)
	}

	rows := make([]ledger.ProductInput, 0)
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("line %d: malformed CSV", line), err.Error())
		}
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if get("sku") == "" && get("name") == "" {
			continue
		}

		in := ledger.ProductInput{
			SKU:      get("sku"),
			Name:     get("name"),
			Category: get("category"),
			Location: get("location"),
		}
		if b := get("barcode"); b != "" {
			in.Barcode = &b
		}
		if in.Quantity, err = optionalInt(get("quantity")); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("line %d: invalid quantity", line), nil)
		}
		if in.MinStock, err = optionalInt(get("min_stock")); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("line %d: invalid min_stock", line), nil)
		}
		if in.CostPrice, err = optionalDecimal(get("cost_price")); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("line %d: invalid cost_price", line), nil)
		}
		if in.Price, err = optionalDecimal(get("price")); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("line %d: invalid price", line), nil)
		}
		rows = append(rows, in)
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("CSV file has no product rows", nil)
	}
	return rows, nil
}

// ImportCSV creates every new SKU of the file in a single transaction.
func ImportCSV(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, reader io.Reader) (ledger.ImportResult, error) {
	rows, err := ParseCSV(reader)
	if err != nil {
		return ledger.ImportResult{}, err
	}

	var res ledger.ImportResult
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		res, err = ledger.Import(ctx, tx, actor, rows)
		return err
	})
	if err != nil {
		return ledger.ImportResult{}, err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionProductImport,
		Description: fmt.Sprintf("Imported %d products, skipped %d existing", len(res.Created), len(res.Skipped)),
		Actor:       actor,
		Metadata:    map[string]any{"created": len(res.Created), "skipped": res.Skipped},
	})
	return res, nil
}

func optionalInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}
