package repository

import (
	"database/sql"
	"errors"
)

// Domain conditions surfaced by the store. Callers test with errors.Is and
// map them to their own failure handling.
var (
	ErrPlanNotFound     = errors.New("payment plan not found")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrDuplicateInvoice = errors.New("invoice already exists for this due date")
	ErrNoFundingAccount = errors.New("no funding account for customer")
)

// Repository provides database operations over the back-office relational
// store: payment plans, invoices, projected transfers and funding-account
// mappings. The ledger owns balances; nothing here is authoritative for
// money.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}
