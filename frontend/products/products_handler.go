package products

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/ledger"
	"stockmaster/infrastructure/sqlite"
)

func ListProductsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := ListFilter{
			Search:   q.Get("search"),
			Category: q.Get("category"),
			LowStock: q.Get("low_stock") == "true" || q.Get("low_stock") == "1",
		}
		if raw := q.Get("supplier_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				respond.Error(w, r, apperr.Validation("invalid supplier_id", nil))
				return
			}
			f.SupplierID = id
		}
		rows, err := ListProducts(r.Context(), db, f)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, rows)
	}
}

func GetProductQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.PathID(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		p, err := GetProduct(r.Context(), db, id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, p)
	}
}

func CreateProductCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var in ledger.ProductInput
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		p, err := CreateProduct(r.Context(), db, auditSvc, actor, in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusCreated, p)
	}
}

func UpdateProductCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := respond.PathID(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var patch ledger.ProductPatch
		if err := respond.Decode(r, &patch); err != nil {
			respond.Error(w, r, err)
			return
		}
		p, err := UpdateProduct(r.Context(), db, auditSvc, actor, id, patch)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, p)
	}
}

func DeleteProductCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := respond.PathID(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := DeleteProduct(r.Context(), db, auditSvc, actor, id); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{"deleted": id})
	}
}

func BatchDeleteProductsCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var req batchDeleteRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		res, err := DeleteProducts(r.Context(), db, auditSvc, actor, req.IDs)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, res)
	}
}

// ImportProductsCommandHandler accepts a multipart "file" field or a raw CSV body.
func ImportProductsCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		var body io.Reader
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(10 << 20); err != nil {
				respond.Error(w, r, apperr.Validation("invalid upload", nil))
				return
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				respond.Error(w, r, apperr.Validation("file is required", nil))
				return
			}
			defer file.Close()
			body = file
		} else {
			raw, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
			if err != nil {
				respond.Error(w, r, apperr.Validation("cannot read body", nil))
				return
			}
			body = bytes.NewReader(raw)
		}

		res, err := ImportCSV(r.Context(), db, auditSvc, actor, body)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, importResponse{
			ImportResult: res,
			CreatedCount: len(res.Created),
			SkippedCount: len(res.Skipped),
		})
	}
}

func ExportProductsCSVHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListProducts(r.Context(), db, ListFilter{})
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		filename := fmt.Sprintf("products-%s.csv", time.Now().Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := WriteCSV(w, rows); err != nil {
			slog.Error("products export: write csv failed", slog.Any("err", err))
		}
	}
}

func StockReportPDFHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListProducts(r.Context(), db, ListFilter{LowStock: r.URL.Query().Get("low_stock") == "true"})
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		pdf, err := renderStockReportPDF(rows, time.Now())
		if err != nil {
			respond.Error(w, r, fmt.Errorf("render stock report: %w", err))
			return
		}
		writePDF(w, "stock-report.pdf", pdf)
	}
}

func ProductLabelPDFHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.PathID(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		p, err := GetProduct(r.Context(), db, id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		pdf, err := renderProductLabelPDF(p)
		if err != nil {
			respond.Error(w, r, apperr.Validation("product code cannot be encoded as a barcode", err.Error()))
			return
		}
		writePDF(w, "label-"+strings.ReplaceAll(p.SKU, `"`, "")+".pdf", pdf)
	}
}

func writePDF(w http.ResponseWriter, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
