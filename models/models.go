package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// DefaultMinStock is the reorder threshold applied when a product has none.
const DefaultMinStock int64 = 15

// User represents an authenticated app user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             int64      `bun:"id,pk,autoincrement" json:"id"`
	Name           string     `bun:"name,notnull" json:"name"`
	Email          string     `bun:"email,unique,notnull" json:"email"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	Role           string     `bun:"role,notnull" json:"role"`
	Active         bool       `bun:"active,notnull" json:"active"`
	Protected      bool       `bun:"protected,notnull" json:"protected"`
	ResetTokenHash *string    `bun:"reset_token_hash" json:"-"`
	ResetExpiresAt *time.Time `bun:"reset_expires_at" json:"-"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is used by middleware and auth handlers.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        string    `bun:"id,pk"`
	UserID    int64     `bun:"user_id,notnull"`
	User      User      `bun:"rel:belongs-to,join:user_id=id"`
	UserRoles []string  `bun:"-"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Expired returns true when the session expiry time has passed.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Actor identifies who performed a change, denormalized onto ledger and log rows.
type Actor struct {
	UserID    int64
	Name      string
	Role      string
	Protected bool
}

// ActorFromUser builds the acting identity for a user.
func ActorFromUser(u User) Actor {
	return Actor{UserID: u.ID, Name: u.Name, Role: u.Role, Protected: u.Protected}
}

// Category groups products; products also carry its name as a plain label.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,unique,notnull" json:"name"`
	Slug      string    `bun:"slug,unique,notnull" json:"slug"`
	Color     string    `bun:"color,notnull" json:"color"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Supplier is a product source.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers,alias:sp"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	TaxID       *string   `bun:"tax_id" json:"tax_id,omitempty"`
	ContactName string    `bun:"contact_name,notnull" json:"contact_name"`
	Email       string    `bun:"email,notnull" json:"email"`
	Phone       string    `bun:"phone,notnull" json:"phone"`
	Address     string    `bun:"address,notnull" json:"address"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Product is the mutable stock record; quantity mirrors the movement ledger.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID         int64           `bun:"id,pk,autoincrement" json:"id"`
	SKU        string          `bun:"sku,unique,notnull" json:"sku"`
	Barcode    *string         `bun:"barcode" json:"barcode,omitempty"`
	Name       string          `bun:"name,notnull" json:"name"`
	Category   string          `bun:"category,notnull" json:"category"`
	CategoryID *int64          `bun:"category_id" json:"category_id,omitempty"`
	Quantity   int64           `bun:"quantity,notnull" json:"quantity"`
	MinStock   *int64          `bun:"min_stock" json:"min_stock,omitempty"`
	CostPrice  decimal.Decimal `bun:"cost_price,notnull" json:"cost_price"`
	Price      decimal.Decimal `bun:"price,notnull" json:"price"`
	Location   string          `bun:"location,notnull" json:"location"`
	SupplierID *int64          `bun:"supplier_id" json:"supplier_id,omitempty"`
	CreatedAt  time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// ReorderPoint returns the low-stock threshold for the product.
func (p Product) ReorderPoint() int64 {
	if p.MinStock == nil {
		return DefaultMinStock
	}
	return *p.MinStock
}

// LowStock reports whether quantity is at or below the reorder point.
func (p Product) LowStock() bool {
	return p.Quantity <= p.ReorderPoint()
}

const (
	MovementCreation      = "creation"
	MovementStockIn       = "stock-in"
	MovementStockOut      = "stock-out"
	MovementAdjustment    = "adjustment"
	MovementLiquidation   = "liquidation"
	MovementAdjustmentIn  = "adjustment-in"
	MovementAdjustmentOut = "adjustment-out"
)

// Movement is an append-only ledger row. Quantity is always positive;
// direction comes from Kind (or OldStock/NewStock for adjustments).
type Movement struct {
	bun.BaseModel `bun:"table:movements,alias:m"`

	ID          int64           `bun:"id,pk,autoincrement" json:"id"`
	ProductID   int64           `bun:"product_id,notnull" json:"product_id"`
	ProductName string          `bun:"product_name,notnull" json:"product_name"`
	Kind        string          `bun:"kind,notnull" json:"kind"`
	Quantity    int64           `bun:"quantity,notnull" json:"quantity"`
	OldStock    int64           `bun:"old_stock,notnull" json:"old_stock"`
	NewStock    int64           `bun:"new_stock,notnull" json:"new_stock"`
	UnitCost    decimal.Decimal `bun:"unit_cost,notnull" json:"unit_cost"`
	UnitPrice   decimal.Decimal `bun:"unit_price,notnull" json:"unit_price"`
	UserID      *int64          `bun:"user_id" json:"user_id,omitempty"`
	UserName    string          `bun:"user_name,notnull" json:"user_name"`
	Note        string          `bun:"note,notnull" json:"note"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"created_at"`
}

const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// SystemLog captures administrative actions for security review.
type SystemLog struct {
	bun.BaseModel `bun:"table:system_logs,alias:sl"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Action      string    `bun:"action,notnull" json:"action"`
	Description string    `bun:"description,notnull" json:"description"`
	UserID      *int64    `bun:"user_id" json:"user_id,omitempty"`
	UserName    string    `bun:"user_name,notnull" json:"user_name"`
	Level       string    `bun:"level,notnull" json:"level"`
	Metadata    string    `bun:"metadata,notnull" json:"metadata,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
}
