package models

import "time"

// InvoiceStatus is the lifecycle state of a billed payment.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Invoice represents one billed due-date occurrence for a payment plan.
type Invoice struct {
	ID        string        `json:"id"`
	AccountID string        `json:"account_id"`
	Amount    int64         `json:"amount"`
	DueDate   time.Time     `json:"due_date"`
	Status    InvoiceStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
