// Package mail delivers invoice reminders over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"

	"backoffice/internal/core"
)

// Message is a single HTML e-mail.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender implements Mailer on top of jordan-wright/email.
type SMTPSender struct {
	cfg  Config
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Send delivers msg. The SMTP exchange does not observe ctx cancellation.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		slog.ErrorContext(ctx, "Failed to send email", "to", msg.To, "subject", msg.Subject, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	slog.InfoContext(ctx, "Email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

var reminderTemplate = template.Must(template.New("reminder").Parse(`<p>{{.Salutation}} {{.Name}},</p>
<p>we kindly remind you that invoice <strong>{{.Number}}</strong> issued on {{.Date}}
for a total of <strong>{{.Total}}</strong> was due on {{.DueDate}} and has not been paid yet.</p>
<p>Please arrange the payment at your earliest convenience.
If you have already paid, please disregard this message.</p>
<p>Kind regards</p>
`))

// ReminderMessage renders the overdue reminder for inv, addressed to its representative.
func ReminderMessage(inv core.Invoice) (Message, error) {
	salutation := "Dear Mr."
	if inv.RepresentativeGender == core.Female {
		salutation = "Dear Ms."
	}
	var buf bytes.Buffer
	err := reminderTemplate.Execute(&buf, map[string]string{
		"Salutation": salutation,
		"Name":       inv.RepresentativeName,
		"Number":     inv.InvoiceNumber,
		"Date":       inv.Date.String(),
		"Total":      inv.Amount.Add(inv.Tax).String(),
		"DueDate":    inv.DueDate.String(),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render reminder: %w", err)
	}
	return Message{
		To:      inv.RepresentativeEmail,
		Subject: "Payment reminder: invoice " + inv.InvoiceNumber,
		HTML:    buf.String(),
	}, nil
}
