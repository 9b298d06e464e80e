package email

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/bankops/backoffice/internal/config"
	"github.com/bankops/backoffice/internal/models"
)

// Sender emails servicing alerts via SMTP. Overdue notifications go to the
// operations mailbox; customer-facing messaging is handled by the
// out-of-scope front ends.
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// NotifyOverdue sends an overdue-invoice alert to the operations mailbox.
func (s *Sender) NotifyOverdue(invoice *models.Invoice) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.OpsEmail}
	e.Subject = fmt.Sprintf("Overdue loan payment: account %s", invoice.AccountID)

	body := fmt.Sprintf(
		"Invoice %s for loan account %s is overdue.\n\n"+
			"Amount due: %d minor units\n"+
			"Due date: %s\n\n"+
			"The payment remains eligible for collection in the next servicing cycle.\n",
		invoice.ID, invoice.AccountID, invoice.Amount,
		invoice.DueDate.Format("2006-01-02"),
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send overdue alert for invoice %s: %v", invoice.ID, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Overdue alert sent to %s for invoice %s", s.cfg.OpsEmail, invoice.ID)
	return nil
}
