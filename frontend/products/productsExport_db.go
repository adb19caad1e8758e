package products

import (
	"encoding/csv"
	"io"
	"strconv"

	"stockmaster/models"
)

// WriteCSV writes products in the format ParseCSV reads.
func WriteCSV(w io.Writer, rows []models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range rows {
		barcode := ""
		if p.Barcode != nil {
			barcode = *p.Barcode
		}
		minStock := ""
		if p.MinStock != nil {
			minStock = strconv.FormatInt(*p.MinStock, 10)
		}
		if err := cw.Write([]string{
			p.SKU,
			barcode,
			p.Name,
			p.Category,
			strconv.FormatInt(p.Quantity, 10),
			minStock,
			p.CostPrice.StringFixed(2),
			p.Price.StringFixed(2),
			p.Location,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
