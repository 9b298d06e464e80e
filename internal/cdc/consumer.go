package cdc

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bankops/backoffice/internal/ledger"
)

// Consumer subscribes to the ledger event stream and dispatches each event
// to the projector. Handling errors are logged and swallowed: the event can
// be redelivered or reconciled later, but a stalled consumer cannot.
type Consumer struct {
	projector *Projector
	log       *logrus.Logger
}

// NewConsumer initializes a CDC consumer.
func NewConsumer(projector *Projector, log *logrus.Logger) *Consumer {
	return &Consumer{projector: projector, log: log}
}

// Run processes events until the channel closes or ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, events <-chan ledger.Event) {
	for {
		select {
		case <-ctx.Done():
			c.log.Info("CDC consumer stopping")
			return
		case event, ok := <-events:
			if !ok {
				c.log.Info("Ledger event stream closed, CDC consumer stopping")
				return
			}
			eventsTotal.WithLabelValues(string(event.Type)).Inc()
			if err := c.Handle(event); err != nil {
				projectionFailuresTotal.Inc()
				c.log.Errorf("Dropping ledger event %s for transfer %s: %v",
					event.Type, event.Transfer.ID, err)
			}
		}
	}
}

// Handle routes one event by kind. Every known kind is matched explicitly;
// an unlisted kind is an error so new ledger event types surface loudly
// instead of vanishing into a default branch.
func (c *Consumer) Handle(event ledger.Event) error {
	switch event.Type {
	case ledger.EventSinglePhase:
		// Settled atomically, project immediately.
		return c.projector.Project(event)
	case ledger.EventTwoPhasePosted:
		// The pending transfer referenced by pending_id is now final.
		return c.projector.Project(event)
	case ledger.EventTwoPhasePending:
		// Funds reserved but not final. No history row until a posted
		// event arrives for the same pending_id.
		c.log.Debugf("Pending transfer %s reserved", event.Transfer.ID)
		return nil
	case ledger.EventTwoPhaseVoided:
		c.log.Debugf("Pending transfer %s voided", event.Transfer.PendingID)
		return nil
	case ledger.EventTwoPhaseExpired:
		c.log.Debugf("Pending transfer %s expired", event.Transfer.PendingID)
		return nil
	default:
		return fmt.Errorf("unhandled ledger event type %q", event.Type)
	}
}
