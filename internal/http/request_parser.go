package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/services"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20

	// Multipart field names of record forms.
	formFieldData = "data"
	formFieldPDF  = "pdf"

	headerUserName  = "X-User-Name"
	headerUserEmail = "X-User-Email"
)

// actorFromRequest reads the acting user from the identity headers, falling
// back to fallback when none are set.
func actorFromRequest(r *http.Request, fallback ledger.Actor) ledger.Actor {
	name := sanitizeInput(r.Header.Get(headerUserName))
	email := sanitizeInput(r.Header.Get(headerUserEmail))
	if name == "" && email == "" {
		return fallback
	}
	if name == "" {
		name = email
	}
	return ledger.Actor{Name: name, Email: email}
}

// decodeJSON decodes a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return bodyError(err)
	}
	return nil
}

// decodeRecord reads a record either from a JSON body or from a multipart form
// with the record as JSON in the "data" field and an optional "pdf" file.
func decodeRecord[T any](w http.ResponseWriter, r *http.Request) (T, *services.Attachment, error) {
	var rec T
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return rec, nil, decodeJSON(w, r, &rec)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return rec, nil, bodyError(err)
	}
	if err := json.Unmarshal([]byte(r.FormValue(formFieldData)), &rec); err != nil {
		return rec, nil, bodyError(err)
	}

	file, header, err := r.FormFile(formFieldPDF)
	if errors.Is(err, http.ErrMissingFile) {
		return rec, nil, nil
	}
	if err != nil {
		return rec, nil, bodyError(err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return rec, &services.Attachment{Name: header.Filename, ContentType: contentType, Body: file}, nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return core.NewValidationError("body", nil, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
	}
	if errors.Is(err, io.EOF) {
		return core.NewValidationError("body", nil, "request body is empty")
	}
	return core.NewValidationError("body", nil, err.Error())
}

// sanitizeInput trims whitespace and drops control characters.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
