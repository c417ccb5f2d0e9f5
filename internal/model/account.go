package model

import "time"

// Account is a tenant: its carrier credentials plus its printers.
// Rows are managed by the admin tool; the pipeline reads them only.
type Account struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	CarrierAPIKey string    `db:"carrier_api_key"`
	WebhookSecret *string   `db:"webhook_secret"` // nullable; nil => signature-exempt
	IsActive      bool      `db:"is_active"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type Printer struct {
	ID             string      `db:"id"`
	AccountID      string      `db:"account_id"`
	Name           string      `db:"name"`
	RelayAPIKey    string      `db:"relay_api_key"`
	RelayPrinterID int64       `db:"relay_printer_id"`
	Format         LabelFormat `db:"format"` // format the printer accepts
	IsDefault      bool        `db:"is_default"`
	IsActive       bool        `db:"is_active"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}
