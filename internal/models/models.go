package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DisplayLayout is the timestamp format shown to staff for stock rows (M/D/YY h:mm:ss AM).
const DisplayLayout = "1/2/06 3:04:05 PM"

// DisplayTime is a timestamp that serializes in DisplayLayout.
type DisplayTime time.Time

// MarshalJSON renders the time for display
func (t DisplayTime) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(time.Time(t).Format(DisplayLayout))
}

// Scan lets sqlx read timestamps straight into a DisplayTime
func (t *DisplayTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = DisplayTime(v)
	case nil:
		*t = DisplayTime{}
	default:
		return fmt.Errorf("cannot scan %T into DisplayTime", src)
	}
	return nil
}

// String returns the display form
func (t DisplayTime) String() string {
	return time.Time(t).Format(DisplayLayout)
}

// Company is the metadata row backing one physical product table
type Company struct {
	ID         int64       `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	CreatedAt  DisplayTime `db:"created_at" json:"created_at"`
	ModelCount *int        `db:"-" json:"model_count,omitempty"`
}

// Model is a stocked product living in its company's table
type Model struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Discount  decimal.Decimal `db:"discount" json:"discount"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Packages  int             `db:"packages" json:"packages"`
	CreatedAt DisplayTime     `db:"created_at" json:"created_at"`
}

// Client is a customer exports are attributed to
type Client struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasEmail reports whether the client can be notified
func (c *Client) HasEmail() bool {
	return c.Email != nil && *c.Email != ""
}

// LineItem is the snapshot of one model inside an export
type LineItem struct {
	ID       int64           `json:"id"`
	Table    string          `json:"table"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
	Quantity int             `json:"quantity"`
	Packages int             `json:"packages"`
	Pairs    decimal.Decimal `json:"pairs"`
}

// LineItems is stored as a JSON document in the exports table
type LineItems []LineItem

// Value implements driver.Valuer
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *LineItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = LineItems{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into LineItems", src)
	}
}

// Export is the immutable record of a completed sale
type Export struct {
	ID            int64     `db:"id" json:"id"`
	ClientID      int64     `db:"client_id" json:"client_id"`
	Data          LineItems `db:"data" json:"data"`
	InvoiceNumber string    `db:"invoice_number" json:"invoice_number"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ExportSummary is the per-export rollup shown in a client's history
type ExportSummary struct {
	Models   int             `json:"models"`
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Net      decimal.Decimal `json:"net"`
	Packages int             `json:"packages"`
}

// User is a staff account
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Password  string    `db:"password" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LogEntry is an append-only audit record
type LogEntry struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Action    string    `db:"action" json:"action"`
	Status    string    `db:"status" json:"status"`
	Severity  int       `db:"severity" json:"severity"`
	IP        string    `db:"ip" json:"ip"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	Details   string    `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Backup is a completed database dump
type Backup struct {
	ID        int64     `db:"id" json:"id"`
	Type      string    `db:"type" json:"type"`
	FilePath  string    `db:"file_path" json:"file_path"`
	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Audit statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
)

// Backup types
const (
	BackupDaily   = "daily"
	BackupWeekly  = "weekly"
	BackupMonthly = "monthly"
)

// Backup statuses
const (
	BackupStatusCompleted = "COMPLETED"
	BackupStatusFailed    = "FAILED"
)

// Session is the server-side state behind a session cookie
type Session struct {
	LoggedIn bool   `json:"loggedIn"`
	Username string `json:"username"`
}
