package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/jordan-wright/email"

	"backoffice/internal/core"
)

func TestReminderMessage(t *testing.T) {
	inv := core.Invoice{
		InvoiceNumber:        "4/05/2024",
		Date:                 core.NewDate(2024, 5, 2),
		DueDate:              core.NewDate(2024, 6, 1),
		Amount:               core.Money{Cents: 10000},
		Tax:                  core.Money{Cents: 2300},
		RepresentativeName:   "Anna <Rossi>",
		RepresentativeEmail:  "anna@client.test",
		RepresentativeGender: core.Female,
	}
	msg, err := ReminderMessage(inv)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.To != "anna@client.test" || !strings.Contains(msg.Subject, "4/05/2024") {
		t.Fatalf("unexpected header: %+v", msg)
	}
	for _, want := range []string{"Dear Ms.", "123.00", "2024-06-01", "Anna &lt;Rossi&gt;"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("body missing %q:\n%s", want, msg.HTML)
		}
	}
}

func TestSMTPSenderSend(t *testing.T) {
	s := NewSMTPSender(Config{Host: "smtp.test", Port: 587, Username: "u", Password: "p", From: "office@test"})
	var gotAddr string
	var gotEmail *email.Email
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		gotAddr, gotEmail = addr, e
		if auth == nil {
			t.Error("expected auth when username is set")
		}
		return nil
	}

	if err := s.Send(context.Background(), Message{To: "a@b.test", Subject: "hi", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.test:587" || gotEmail.From != "office@test" || string(gotEmail.HTML) != "<p>x</p>" {
		t.Fatalf("unexpected email: %s %+v", gotAddr, gotEmail)
	}
}

func TestSMTPSenderSendError(t *testing.T) {
	s := NewSMTPSender(Config{Host: "smtp.test", Port: 25})
	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("550 rejected") }
	if err := s.Send(context.Background(), Message{To: "a@b.test"}); err == nil {
		t.Fatal("expected error")
	}
}
