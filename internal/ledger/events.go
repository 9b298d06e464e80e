package ledger

import "time"

// EventType enumerates the change-event kinds the ledger emits. Every kind
// must be handled explicitly by consumers; the CDC consumer treats an
// unlisted kind as an error, never as something to skip silently.
type EventType string

const (
	EventSinglePhase     EventType = "single_phase"
	EventTwoPhasePending EventType = "two_phase_pending"
	EventTwoPhasePosted  EventType = "two_phase_posted"
	EventTwoPhaseVoided  EventType = "two_phase_voided"
	EventTwoPhaseExpired EventType = "two_phase_expired"
)

// Transfer type tags carried in the code field of ledger transfers.
const (
	TransferCodeDeposit          = 1
	TransferCodeCustomerTransfer = 2
	TransferCodeLoanDisbursement = 3
	TransferCodeLoanPayment      = 4
)

// EventTransfer is the transfer payload embedded in a change event. The id
// is ledger-assigned and globally unique.
type EventTransfer struct {
	ID              string `json:"id"`
	DebitAccountID  string `json:"debit_account_id"`
	CreditAccountID string `json:"credit_account_id"`
	Amount          int64  `json:"amount"`
	PendingID       string `json:"pending_id,omitempty"`
	Ledger          int    `json:"ledger"`
	Code            int    `json:"code"`
	UserData32      uint32 `json:"user_data_32,omitempty"`
}

// Event is one change-data-capture notification from the ledger. Delivery is
// at least once and may be out of order for events sharing a pending_id.
type Event struct {
	Type      EventType     `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Transfer  EventTransfer `json:"transfer"`
	Accounts  []Account     `json:"accounts,omitempty"`
}
