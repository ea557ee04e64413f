// Package mailer renders order e-mails and hands them to the configured
// delivery driver.
package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/config"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
)

// Message is a rendered e-mail ready for delivery
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// OrderMailer sends the customer-facing order e-mails
type OrderMailer struct {
	sender  Sender
	shopURL string
}

func NewOrderMailer(sender Sender, shopURL string) *OrderMailer {
	return &OrderMailer{sender: sender, shopURL: shopURL}
}

// NewSender picks the delivery driver named in cfg
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Driver {
	case config.MailSendGrid:
		return NewSendGridSender(cfg.APIKey, cfg.FromAddress, cfg.FromName)
	case config.MailSMTP:
		return NewSMTPSender(cfg), nil
	case config.MailLog, "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

func (m *OrderMailer) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	msg, err := render(confirmationTemplate, fmt.Sprintf("Order confirmed: %s", shortID(order.ID)), order, m.shopURL)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

func (m *OrderMailer) SendStatusUpdate(ctx context.Context, order *domain.Order) error {
	msg, err := render(statusTemplate, fmt.Sprintf("Your order %s is %s", shortID(order.ID), statusLabel(order.Status)), order, m.shopURL)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
