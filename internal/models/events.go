package models

import "time"

// Event types
const (
	EventTypeExportCreated = "EXPORT_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ExportCreatedEvent is published once an export is persisted and the client has an email
type ExportCreatedEvent struct {
	BaseEvent
	ExportID      int64  `json:"export_id"`
	InvoiceNumber string `json:"invoice_number"`
	ClientName    string `json:"client_name"`
	Email         string `json:"email"`
	PDFURL        string `json:"pdf_url"`
}

// ExportNotification is what the notifier needs to tell a client about an invoice
type ExportNotification struct {
	ExportID      int64
	InvoiceNumber string
	ClientName    string
	Email         string
	PDFURL        string
}
