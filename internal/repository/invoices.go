package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bankops/backoffice/internal/models"
)

// CreateInvoice bills one due-date occurrence for an account. A partial
// unique index on (account_id, due_date) for non-paid invoices guarantees at
// most one open invoice per plan per cycle; a conflict surfaces as
// ErrDuplicateInvoice rather than a second row.
func (r *Repository) CreateInvoice(accountID string, amount int64, dueDate time.Time) (*models.Invoice, error) {
	invoice := &models.Invoice{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		DueDate:   dueDate,
		Status:    models.InvoiceStatusPending,
	}
	query := `
		INSERT INTO invoices (id, account_id, amount, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(query, invoice.ID, invoice.AccountID, invoice.Amount,
		invoice.DueDate, invoice.Status).
		Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateInvoice
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return invoice, nil
}

// FindOpenInvoice returns the pending or overdue invoice for an account and
// due date, if one exists. The scheduler reuses it instead of billing twice.
func (r *Repository) FindOpenInvoice(accountID string, dueDate time.Time) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	query := `
		SELECT id, account_id, amount, due_date, status, created_at, updated_at
		FROM invoices
		WHERE account_id = $1 AND due_date = $2 AND status <> $3`
	err := r.db.QueryRow(query, accountID, dueDate, models.InvoiceStatusPaid).
		Scan(&invoice.ID, &invoice.AccountID, &invoice.Amount, &invoice.DueDate,
			&invoice.Status, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open invoice: %w", err)
	}
	return invoice, nil
}

// MarkInvoicePaid transitions an invoice to paid.
func (r *Repository) MarkInvoicePaid(id string) error {
	result, err := r.db.Exec(`
		UPDATE invoices
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, models.InvoiceStatusPaid)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	return requireRowAffected(result, ErrInvoiceNotFound)
}

// FindOverdueCandidates returns pending invoices whose due date has passed.
// The overdue sweep transitions them to overdue.
func (r *Repository) FindOverdueCandidates(asOf time.Time) ([]*models.Invoice, error) {
	query := `
		SELECT id, account_id, amount, due_date, status, created_at, updated_at
		FROM invoices
		WHERE due_date < $1 AND status = $2
		ORDER BY due_date`
	rows, err := r.db.Query(query, asOf, models.InvoiceStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue candidates: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice := &models.Invoice{}
		if err := rows.Scan(&invoice.ID, &invoice.AccountID, &invoice.Amount,
			&invoice.DueDate, &invoice.Status, &invoice.CreatedAt, &invoice.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	return invoices, nil
}

// MarkInvoiceOverdue transitions a pending invoice to overdue. Invoices that
// were paid between query and update are left alone.
func (r *Repository) MarkInvoiceOverdue(id string) error {
	result, err := r.db.Exec(`
		UPDATE invoices
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3`, id, models.InvoiceStatusOverdue, models.InvoiceStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark invoice overdue: %w", err)
	}
	return requireRowAffected(result, ErrInvoiceNotFound)
}
