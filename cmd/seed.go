package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/labelgw/label-gateway/internal/config"
	"github.com/labelgw/label-gateway/internal/db"
	"github.com/labelgw/label-gateway/internal/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo accounts and printers",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo accounts...")

		if err := seedAccounts(sqlDB); err != nil {
			return err
		}
		if err := seedPrinters(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

func strptr(s string) *string { return &s }

// seedAccounts inserts deterministic demo accounts (idempotent).
func seedAccounts(dbx *sqlx.DB) error {
	accounts := []model.Account{
		{
			ID:            "acct_demo_a",
			Name:          "Warehouse A",
			CarrierAPIKey: "EZAK_demo_a",
			WebhookSecret: strptr("whsec_demo_a"),
			IsActive:      true,
		},
		{
			ID:            "acct_demo_b",
			Name:          "Warehouse B",
			CarrierAPIKey: "EZAK_demo_b",
			WebhookSecret: nil, // signature-exempt
			IsActive:      true,
		},
		{
			ID:            "acct_suspended",
			Name:          "Suspended Shipper",
			CarrierAPIKey: "EZAK_suspended",
			WebhookSecret: nil,
			IsActive:      false,
		},
	}

	// idempotent upsert based on id (PRIMARY KEY)
	const q = `
INSERT INTO accounts
    (id, name, carrier_api_key, webhook_secret, is_active, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name            = VALUES(name),
    carrier_api_key = VALUES(carrier_api_key),
    webhook_secret  = VALUES(webhook_secret),
    is_active       = VALUES(is_active),
    updated_at      = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, a := range accounts {
		if _, err := tx.Exec(q, a.ID, a.Name, a.CarrierAPIKey, a.WebhookSecret, a.IsActive, now, now); err != nil {
			return fmt.Errorf("insert account %q: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	return nil
}

// seedPrinters gives Warehouse A a default thermal printer; Warehouse B
// stays printer-less to exercise the awaiting-printer path.
func seedPrinters(dbx *sqlx.DB) error {
	printers := []model.Printer{
		{
			ID:             "prn_demo_a",
			AccountID:      "acct_demo_a",
			Name:           "Dock Zebra",
			RelayAPIKey:    "PNK_demo_a",
			RelayPrinterID: 70001234,
			Format:         model.FormatZPL,
			IsDefault:      true,
			IsActive:       true,
		},
	}

	const q = `
INSERT INTO printers
    (id, account_id, name, relay_api_key, relay_printer_id, format, is_default, is_active, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name             = VALUES(name),
    relay_api_key    = VALUES(relay_api_key),
    relay_printer_id = VALUES(relay_printer_id),
    format           = VALUES(format),
    is_default       = VALUES(is_default),
    is_active        = VALUES(is_active),
    updated_at       = VALUES(updated_at)
`
	now := time.Now()
	for _, p := range printers {
		if _, err := dbx.Exec(q, p.ID, p.AccountID, p.Name, p.RelayAPIKey, p.RelayPrinterID, p.Format.String(), p.IsDefault, p.IsActive, now, now); err != nil {
			return fmt.Errorf("insert printer %q: %w", p.ID, err)
		}
	}
	return nil
}
