// Package files stores PDF attachments of invoices, expenses and recurring payments.
package files

import (
	"context"
	"errors"
	"io"
)

// Store uploads attachments and returns a retrievable URL.
type Store interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// ErrDisabled is returned by Nop for every upload.
var ErrDisabled = errors.New("file storage disabled")

// Nop is the Store used when no backend is configured.
type Nop struct{}

func (Nop) Upload(context.Context, string, string, io.Reader) (string, error) {
	return "", ErrDisabled
}

func (Nop) Delete(context.Context, string) error { return nil }
