package products

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"stockmaster/models"
)

// labelCode is what the product label encodes: the barcode when set, else the SKU.
func labelCode(p models.Product) string {
	if p.Barcode != nil && strings.TrimSpace(*p.Barcode) != "" {
		return strings.TrimSpace(*p.Barcode)
	}
	return p.SKU
}

func renderProductLabelPDF(p models.Product) ([]byte, error) {
	code := labelCode(p)
	barcodePNG, err := renderCode128PNG(code, 900, 200)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: 100, Ht: 50},
	})
	pdf.SetTitle("Product Label "+p.SKU, false)
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 6, tr(truncate(p.Name, 40)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("SKU %s  |  %s", p.SKU, p.Price.StringFixed(2))), "", 1, "C", false, 0, "")

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	imageName := fmt.Sprintf("product-barcode-%d", p.ID)
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
	pdf.ImageOptions(imageName, 8, 17, 84, 22, false, opt, 0, "")

	pdf.SetY(41)
	pdf.SetFont("Courier", "B", 11)
	pdf.CellFormat(0, 5, code, "", 1, "C", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func renderStockReportPDF(rows []models.Product, printedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Stock Report", false)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	widths := []float64{35, 80, 40, 22, 22, 26, 26, 26}
	headers := []string{"SKU", "Name", "Category", "Qty", "Min", "Cost", "Price", "Value"}
	printHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range headers {
			align := "L"
			if i >= 3 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 8, h, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, "Stock Report", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, "Printed "+printedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
		printHeader()
	})
	pdf.AddPage()

	total := decimal.Zero
	var units int64
	low := 0
	for _, p := range rows {
		value := decimal.NewFromInt(p.Quantity).Mul(p.CostPrice)
		total = total.Add(value)
		units += p.Quantity
		if p.LowStock() {
			low++
			pdf.SetTextColor(180, 0, 0)
		}
		cells := []string{
			truncate(p.SKU, 18),
			truncate(p.Name, 45),
			truncate(p.Category, 20),
			fmt.Sprintf("%d", p.Quantity),
			fmt.Sprintf("%d", p.ReorderPoint()),
			p.CostPrice.StringFixed(2),
			p.Price.StringFixed(2),
			value.StringFixed(2),
		}
		for i, c := range cells {
			align := "L"
			if i >= 3 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, fmt.Sprintf("Products: %d   Units: %d   Low stock: %d   Stock value: %s",
		len(rows), units, low, total.StringFixed(2)), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("encode code128 %q: %w", value, err)
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, fmt.Errorf("scale barcode: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
