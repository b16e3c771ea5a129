package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Backup files carry prices and totals as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type ProductInput struct {
	Name  string          `json:"name" validate:"required,max=120"`
	SKU   string          `json:"sku" validate:"required,max=40"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0"`
}

type ProductPatch struct {
	Name  *string          `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	SKU   *string          `json:"sku,omitempty" validate:"omitempty,min=1,max=40"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// ProductSnapshot is the automatic backup written after every catalog mutation.
type ProductSnapshot struct {
	Products  []Product `json:"products"`
	Timestamp string    `json:"timestamp"`
	Version   string    `json:"version"`
}

// SaleRecord is one finalized (or pending) quick-sale line.
type SaleRecord struct {
	ID          int64           `json:"id"`
	ProductID   int             `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Timestamp   time.Time       `json:"timestamp"`
}

type SummaryItem struct {
	ProductID   int             `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}

type ReportType string

const (
	ReportTypeTemp  ReportType = "temp"
	ReportTypeDaily ReportType = "daily"
)

func (t ReportType) Valid() bool {
	return t == ReportTypeTemp || t == ReportTypeDaily
}

type Report struct {
	ReportID   string          `json:"reportId"`
	DailySales []SummaryItem   `json:"dailySales"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	Type       ReportType      `json:"type"`
	Date       string          `json:"date"`
}

// Clone returns a deep copy so callers can never alias store-owned rows.
func (r Report) Clone() Report {
	out := r
	out.DailySales = make([]SummaryItem, len(r.DailySales))
	copy(out.DailySales, r.DailySales)
	return out
}

// TempReport lives only for the current process and is never persisted.
type TempReport struct {
	Report
	TempID string `json:"tempId"`
}

// ReportRef addresses either a durable report (ReportID) or a temp report (TempID).
type ReportRef struct {
	ReportID string `json:"reportId,omitempty"`
	TempID   string `json:"tempId,omitempty"`
}

func (r ReportRef) IsTemp() bool {
	return r.TempID != ""
}

// Envelope wraps every exported backup file.
type Envelope struct {
	ExportType string          `json:"exportType"`
	ExportedAt string          `json:"exportedAt"`
	Key        string          `json:"key"`
	Version    string          `json:"version,omitempty"`
	Data       json.RawMessage `json:"data"`
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notification struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// Storage keys shared by the catalog, the report store and backup files.
const (
	KeyProducts       = "products_data"
	KeyProductsBackup = "products_backup"
	KeyReports        = "reports_data"
	KeyUsers          = "users_data"
)

const (
	ExportTypeProducts = "products_backup"
	ExportTypeReports  = "reports_backup"
)

// ReportDateLayout is the label format used when a day is closed.
const ReportDateLayout = "2006-01-02 15:04:05"

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
