package backend

import (
	"context"
	"fmt"
	"log/slog"

	"backoffice/internal/amqp"
	"backoffice/internal/config"
	"backoffice/internal/files"
	"backoffice/internal/mail"
)

// NewMailer returns the SMTP mailer, or nil when SMTP is not configured.
// Services treat a nil mailer as a delivery failure.
func NewMailer(cfg *config.Config) mail.Mailer {
	if !cfg.MailEnabled() {
		slog.Warn("SMTP not configured, reminders are disabled")
		return nil
	}
	return mail.NewSMTPSender(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

// NewFileStore creates the attachment store selected by FILES_BACKEND.
func NewFileStore(ctx context.Context, cfg *config.Config) (files.Store, error) {
	switch cfg.FilesBackend {
	case config.FilesLocal:
		return files.NewLocalStore(cfg.FilesLocalDir, cfg.FilesBaseURL)
	case config.FilesDrive:
		creds, err := cfg.GoogleCredentials()
		if err != nil {
			return nil, err
		}
		return files.NewDriveStore(ctx, creds, cfg.GoogleDriveFolderID)
	case config.FilesNone, "":
		return files.Nop{}, nil
	default:
		return nil, fmt.Errorf("unsupported files backend: %s", cfg.FilesBackend)
	}
}

// NewEventClient connects to the broker, or returns nil when AMQP is not
// configured. Connection failures are returned to the caller.
func NewEventClient(cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	slog.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}
