// Package cdc consumes the ledger's change-event stream and projects
// settled transfers into the relational store. The projection is derived,
// best-effort data: the ledger stays authoritative and a failed projection
// must never stall the stream.
package cdc

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/bankops/backoffice/internal/ledger"
	"github.com/bankops/backoffice/internal/models"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_cdc_events_total",
		Help: "Ledger change events received, labeled by event type",
	}, []string{"type"})

	projectionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_cdc_projection_failures_total",
		Help: "Transfer projections that failed and were dropped",
	})

	transfersProjectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_cdc_transfers_projected_total",
		Help: "Transfer records written (or already present) in the projection",
	})
)

// currencyByLedger maps the ledger's numeric ledger code to an ISO currency
// symbol.
var currencyByLedger = map[int]string{
	840: "USD",
	978: "EUR",
	826: "GBP",
	756: "CHF",
	578: "NOK",
	752: "SEK",
	208: "DKK",
}

// descriptionByCode maps the transfer-type tag to a human description for
// transaction history.
var descriptionByCode = map[int]string{
	ledger.TransferCodeDeposit:          "Initial account deposit",
	ledger.TransferCodeCustomerTransfer: "Customer transfer",
	ledger.TransferCodeLoanDisbursement: "Loan disbursement",
	ledger.TransferCodeLoanPayment:      "Loan payment",
}

// TransferStore is the slice of the repository the projector writes to.
type TransferStore interface {
	UpsertTransfer(record *models.TransferRecord) error
}

// Projector turns settled transfer events into immutable history rows. The
// write is an upsert keyed by the ledger-assigned transfer id, so
// redelivered events leave exactly one row.
type Projector struct {
	store TransferStore
	log   *logrus.Logger
}

// NewProjector initializes a transfer projector.
func NewProjector(store TransferStore, log *logrus.Logger) *Projector {
	return &Projector{store: store, log: log}
}

// Project writes the history row for a settled transfer.
func (p *Projector) Project(event ledger.Event) error {
	t := event.Transfer
	record := &models.TransferRecord{
		TransferID:    t.ID,
		FromAccountID: t.DebitAccountID,
		ToAccountID:   t.CreditAccountID,
		Amount:        t.Amount,
		Currency:      currencySymbol(t.Ledger),
		Description:   transferDescription(t.Code),
		CreatedAt:     event.Timestamp,
	}
	if err := p.store.UpsertTransfer(record); err != nil {
		return fmt.Errorf("failed to project transfer %s: %w", t.ID, err)
	}
	transfersProjectedTotal.Inc()
	p.log.Debugf("Projected transfer %s (%s %d)", t.ID, record.Currency, record.Amount)
	return nil
}

func currencySymbol(ledgerCode int) string {
	if symbol, ok := currencyByLedger[ledgerCode]; ok {
		return symbol
	}
	return strconv.Itoa(ledgerCode)
}

func transferDescription(code int) string {
	if description, ok := descriptionByCode[code]; ok {
		return description
	}
	return "Transfer"
}
