package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/labelgw/label-gateway/internal/model"
)

// AccountsRepository is the read-only view of tenant configuration the
// pipeline consumes. Rows are written by the external admin tool.
type AccountsRepository interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetDefaultActivePrinter(ctx context.Context, accountID string) (*model.Printer, error)
}

type AccountsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAccountsRepository(db *sqlx.DB) *AccountsRepositoryImpl {
	return &AccountsRepositoryImpl{db: db}
}

var _ AccountsRepository = (*AccountsRepositoryImpl)(nil)

func (r *AccountsRepositoryImpl) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a, `
		SELECT id, name, carrier_api_key, webhook_secret, is_active, created_at, updated_at
		  FROM accounts
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetDefaultActivePrinter returns nil when the account has no usable
// default printer; an inactive owning account disqualifies all of its
// printers.
func (r *AccountsRepositoryImpl) GetDefaultActivePrinter(ctx context.Context, accountID string) (*model.Printer, error) {
	var p model.Printer
	err := r.db.GetContext(ctx, &p, `
		SELECT p.id, p.account_id, p.name, p.relay_api_key, p.relay_printer_id,
		       p.format, p.is_default, p.is_active, p.created_at, p.updated_at
		  FROM printers p
		  JOIN accounts a ON a.id = p.account_id
		 WHERE p.account_id = ?
		   AND p.is_default = 1
		   AND p.is_active = 1
		   AND a.is_active = 1
		 LIMIT 1
	`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
