package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bankops/backoffice/internal/models"
)

// SavePlan persists a new payment plan. Plans are created once at loan
// origination; servicing state is mutated via the Update methods below and
// rows are never physically deleted outside of test cleanup.
func (r *Repository) SavePlan(plan *models.PaymentPlan) error {
	fees, err := json.Marshal(plan.Fees)
	if err != nil {
		return fmt.Errorf("failed to encode fees: %w", err)
	}
	query := `
		INSERT INTO payment_plans (
			account_id, customer_id, principal_amount, monthly_payment,
			interest_rate, term_months, loan_type, payment_frequency,
			fees, remaining_payments, next_payment_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err = r.db.QueryRow(query,
		plan.AccountID, plan.CustomerID, plan.PrincipalAmount, plan.MonthlyPayment,
		plan.InterestRate, plan.TermMonths, plan.LoanType, plan.PaymentFrequency,
		fees, plan.RemainingPayments, plan.NextPaymentDate).
		Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save payment plan: %w", err)
	}
	return nil
}

// FindPlanByAccountID retrieves the payment plan for a loan account.
func (r *Repository) FindPlanByAccountID(accountID string) (*models.PaymentPlan, error) {
	query := `
		SELECT account_id, customer_id, principal_amount, monthly_payment,
		       interest_rate, term_months, loan_type, payment_frequency,
		       fees, remaining_payments, next_payment_date, created_at, updated_at
		FROM payment_plans
		WHERE account_id = $1`
	plan, err := scanPlan(r.db.QueryRow(query, accountID))
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment plan: %w", err)
	}
	return plan, nil
}

// FindAllPlans lists every payment plan, newest first.
func (r *Repository) FindAllPlans() ([]*models.PaymentPlan, error) {
	query := `
		SELECT account_id, customer_id, principal_amount, monthly_payment,
		       interest_rate, term_months, loan_type, payment_frequency,
		       fees, remaining_payments, next_payment_date, created_at, updated_at
		FROM payment_plans
		ORDER BY created_at DESC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment plans: %w", err)
	}
	defer rows.Close()
	return collectPlans(rows)
}

// FindPaymentsDue returns active plans whose next payment date is on or
// before asOf. Completed plans (no remaining payments) are excluded.
func (r *Repository) FindPaymentsDue(asOf time.Time) ([]*models.PaymentPlan, error) {
	query := `
		SELECT account_id, customer_id, principal_amount, monthly_payment,
		       interest_rate, term_months, loan_type, payment_frequency,
		       fees, remaining_payments, next_payment_date, created_at, updated_at
		FROM payment_plans
		WHERE next_payment_date <= $1 AND remaining_payments > 0
		ORDER BY next_payment_date`
	rows, err := r.db.Query(query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query due payment plans: %w", err)
	}
	defer rows.Close()
	return collectPlans(rows)
}

// UpdateRemainingPayments sets the remaining payment count for a plan.
func (r *Repository) UpdateRemainingPayments(accountID string, remaining int) error {
	result, err := r.db.Exec(`
		UPDATE payment_plans
		SET remaining_payments = $2, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $1`, accountID, remaining)
	if err != nil {
		return fmt.Errorf("failed to update remaining payments: %w", err)
	}
	return requireRowAffected(result, ErrPlanNotFound)
}

// UpdateNextPaymentDate sets the next due date for a plan.
func (r *Repository) UpdateNextPaymentDate(accountID string, next time.Time) error {
	result, err := r.db.Exec(`
		UPDATE payment_plans
		SET next_payment_date = $2, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $1`, accountID, next)
	if err != nil {
		return fmt.Errorf("failed to update next payment date: %w", err)
	}
	return requireRowAffected(result, ErrPlanNotFound)
}

// DeletePlan removes a plan. Servicing history is auditable and plans are
// never deleted in production flows; this exists for test cleanup only.
func (r *Repository) DeletePlan(accountID string) error {
	result, err := r.db.Exec(`DELETE FROM payment_plans WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete payment plan: %w", err)
	}
	return requireRowAffected(result, ErrPlanNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*models.PaymentPlan, error) {
	plan := &models.PaymentPlan{}
	var fees []byte
	err := row.Scan(
		&plan.AccountID, &plan.CustomerID, &plan.PrincipalAmount, &plan.MonthlyPayment,
		&plan.InterestRate, &plan.TermMonths, &plan.LoanType, &plan.PaymentFrequency,
		&fees, &plan.RemainingPayments, &plan.NextPaymentDate, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(fees) > 0 {
		if err := json.Unmarshal(fees, &plan.Fees); err != nil {
			return nil, fmt.Errorf("failed to decode fees: %w", err)
		}
	}
	return plan, nil
}

func collectPlans(rows *sql.Rows) ([]*models.PaymentPlan, error) {
	var plans []*models.PaymentPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payment plans: %w", err)
	}
	return plans, nil
}

func requireRowAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
