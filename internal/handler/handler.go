// Package handler is the thin HTTP glue over the loan service. Routing,
// validation and documentation concerns live with the surrounding API layer;
// these handlers only decode, delegate and map errors to status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bankops/backoffice/internal/amortization"
	"github.com/bankops/backoffice/internal/ledger"
	"github.com/bankops/backoffice/internal/models"
	"github.com/bankops/backoffice/internal/repository"
	"github.com/bankops/backoffice/internal/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// CreateLoan handles loan origination.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var terms models.LoanTerms
	if err := json.NewDecoder(r.Body).Decode(&terms); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	created, err := h.svc.CreateLoanWithPaymentPlan(r.Context(), terms)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// ListPaymentPlans returns every payment plan.
func (h *Handler) ListPaymentPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPaymentPlans()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if plans == nil {
		plans = []*models.PaymentPlan{}
	}
	respondWithJSON(w, http.StatusOK, plans)
}

// GetPaymentPlan returns the servicing state for a loan account.
func (h *Handler) GetPaymentPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.svc.GetPaymentPlan(mux.Vars(r)["accountId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, plan)
}

// GetAmortizationSchedule returns the full repayment schedule for a loan.
func (h *Handler) GetAmortizationSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.svc.GenerateAmortizationSchedule(mux.Vars(r)["accountId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, schedule)
}

// DisburseLoan pays out loan funds to a customer account.
func (h *Handler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetAccountID string `json:"target_account_id"`
		Amount          int64  `json:"amount,omitempty"`
		Description     string `json:"description,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	disbursement, err := h.svc.DisburseLoan(r.Context(), mux.Vars(r)["accountId"],
		req.TargetAccountID, req.Amount, req.Description)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, disbursement)
}

// GetTransferHistory returns projected transfer history for an account.
func (h *Handler) GetTransferHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.GetTransferHistory(mux.Vars(r)["accountId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if records == nil {
		records = []*models.TransferRecord{}
	}
	respondWithJSON(w, http.StatusOK, records)
}

// DeletePaymentPlan removes a plan originated in error.
func (h *Handler) DeletePaymentPlan(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePaymentPlan(mux.Vars(r)["accountId"]); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetAccountBalance proxies the ledger's live balance for an account.
func (h *Handler) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.GetAccountBalance(r.Context(), mux.Vars(r)["accountId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, balance)
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, amortization.ErrInvalidLoanParameters):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrPlanNotFound):
		respondWithError(w, http.StatusNotFound, "Payment plan not found")
	case errors.Is(err, ledger.ErrAccountNotFound):
		respondWithError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		respondWithError(w, http.StatusUnprocessableEntity, "Insufficient funds")
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
