package repository

import (
	"database/sql"
	"fmt"

	"github.com/bankops/backoffice/internal/models"
)

// UpsertTransfer records a settled ledger transfer in the projection table.
// The transfer id is the ledger-assigned idempotency key: if a row already
// exists the write is a no-op and redelivered events leave exactly one row.
func (r *Repository) UpsertTransfer(record *models.TransferRecord) error {
	query := `
		INSERT INTO transfers (transfer_id, from_account_id, to_account_id,
		                       amount, currency, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (transfer_id) DO NOTHING`
	_, err := r.db.Exec(query, record.TransferID, record.FromAccountID,
		record.ToAccountID, record.Amount, record.Currency,
		record.Description, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert transfer %s: %w", record.TransferID, err)
	}
	return nil
}

// FindTransfersByAccount returns the projected transfer history touching an
// account, newest first. This is the reporting read path; it can trail the
// ledger and that is accepted.
func (r *Repository) FindTransfersByAccount(accountID string) ([]*models.TransferRecord, error) {
	query := `
		SELECT transfer_id, from_account_id, to_account_id, amount, currency,
		       description, created_at
		FROM transfers
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var records []*models.TransferRecord
	for rows.Next() {
		record := &models.TransferRecord{}
		if err := rows.Scan(&record.TransferID, &record.FromAccountID,
			&record.ToAccountID, &record.Amount, &record.Currency,
			&record.Description, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transfers: %w", err)
	}
	return records, nil
}

// SaveFundingAccount maps a customer to the deposit account scheduled loan
// payments are drawn from. Called at account opening.
func (r *Repository) SaveFundingAccount(customerID, accountID string) error {
	query := `
		INSERT INTO funding_accounts (customer_id, account_id, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (customer_id) DO UPDATE SET account_id = EXCLUDED.account_id`
	if _, err := r.db.Exec(query, customerID, accountID); err != nil {
		return fmt.Errorf("failed to save funding account: %w", err)
	}
	return nil
}

// FindFundingAccount resolves the deposit account for a customer.
func (r *Repository) FindFundingAccount(customerID string) (string, error) {
	var accountID string
	err := r.db.QueryRow(`
		SELECT account_id FROM funding_accounts WHERE customer_id = $1`, customerID).
		Scan(&accountID)
	if err == sql.ErrNoRows {
		return "", ErrNoFundingAccount
	}
	if err != nil {
		return "", fmt.Errorf("failed to find funding account: %w", err)
	}
	return accountID, nil
}
