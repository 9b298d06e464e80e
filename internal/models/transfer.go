package models

import "time"

// TransferRecord is the relational projection of a settled ledger transfer.
// It exists for reporting and history only; the ledger remains the source of
// truth for balances. Rows are immutable once written.
type TransferRecord struct {
	TransferID    string    `json:"transfer_id"`
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// FundingAccount maps a customer to the deposit account that scheduled loan
// payments are drawn from. Written at account opening.
type FundingAccount struct {
	CustomerID string    `json:"customer_id"`
	AccountID  string    `json:"account_id"`
	CreatedAt  time.Time `json:"created_at"`
}
