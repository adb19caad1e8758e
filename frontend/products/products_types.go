package products

import "stockmaster/infrastructure/ledger"

// ListFilter narrows the product list.
type ListFilter struct {
	Search     string
	Category   string
	SupplierID int64
	LowStock   bool
}

type batchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type importResponse struct {
	ledger.ImportResult
	CreatedCount int `json:"created_count"`
	SkippedCount int `json:"skipped_count"`
}

// csvHeader is shared by export and import so an export re-imports cleanly.
var csvHeader = []string{"sku", "barcode", "name", "category", "quantity", "min_stock", "cost_price", "price", "location"}
