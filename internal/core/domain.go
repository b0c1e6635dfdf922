package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	InvoiceCreated InvoiceStatus = "Created"
	InvoiceSent    InvoiceStatus = "Sent"
	InvoicePaid    InvoiceStatus = "Paid"
	InvoiceOverdue InvoiceStatus = "Overdue"
)

const (
	OfferDraft    OfferStatus = "Draft"
	OfferSent     OfferStatus = "Sent"
	OfferAccepted OfferStatus = "Accepted"
	OfferRejected OfferStatus = "Rejected"
)

const (
	Monthly   Frequency = "Monthly"
	Quarterly Frequency = "Quarterly"
	Yearly    Frequency = "Yearly"
)

const (
	Male   Gender = "male"
	Female Gender = "female"
)

const (
	TypeInvoice          RecordType = "Invoice"
	TypeExpense          RecordType = "Expense"
	TypeOffer            RecordType = "Offer"
	TypeRecurringPayment RecordType = "RecurringPayment"
)

type (
	InvoiceStatus string
	OfferStatus   string
	Frequency     string
	Gender        string
	RecordType    string

	// Record is implemented by every persisted entity kind.
	Record interface {
		Kind() RecordType
		RecordID() string
	}

	Invoice struct {
		ID                   string        `json:"id"`
		InvoiceNumber        string        `json:"invoiceNumber"`
		Date                 Date          `json:"date"`
		SentDate             *Date         `json:"sentDate,omitempty"`
		Client               string        `json:"client"`
		Amount               Money         `json:"amount"`
		Tax                  Money         `json:"tax"`
		VATRate              int           `json:"vatRate"`
		Status               InvoiceStatus `json:"status"`
		PDFURL               string        `json:"pdfUrl,omitempty"`
		DueDate              Date          `json:"dueDate"`
		RepresentativeName   string        `json:"representativeName"`
		RepresentativeEmail  string        `json:"representativeEmail"`
		RepresentativeGender Gender        `json:"representativeGender"`
		CreatedAt            time.Time     `json:"createdAt"`
		UpdatedAt            time.Time     `json:"updatedAt"`
	}

	Expense struct {
		ID          string    `json:"id"`
		Date        Date      `json:"date"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		PDFURL      string    `json:"pdfUrl,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// Offer is a quote sent to a client. Days to expiration is derived, see DaysToExpiration.
	Offer struct {
		ID             string      `json:"id"`
		Title          string      `json:"title"`
		Client         string      `json:"client"`
		Amount         Money       `json:"amount"`
		CreatedDate    Date        `json:"createdDate"`
		SentDate       *Date       `json:"sentDate,omitempty"`
		ExpirationDate Date        `json:"expirationDate"`
		Status         OfferStatus `json:"status"`
		GoogleDocsURL  string      `json:"googleDocsUrl,omitempty"`
		Description    string      `json:"description,omitempty"`
	}

	// RecurringPayment is an obligation repeating every Frequency from the NextPayment anchor.
	RecurringPayment struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Amount      Money     `json:"amount"`
		Frequency   Frequency `json:"frequency"`
		Category    string    `json:"category"`
		NextPayment Date      `json:"nextPayment"`
		Active      bool      `json:"active"`
		PDFURL      string    `json:"pdfUrl,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

func (Invoice) Kind() RecordType          { return TypeInvoice }
func (i Invoice) RecordID() string        { return i.ID }
func (Expense) Kind() RecordType          { return TypeExpense }
func (e Expense) RecordID() string        { return e.ID }
func (Offer) Kind() RecordType            { return TypeOffer }
func (o Offer) RecordID() string          { return o.ID }
func (RecurringPayment) Kind() RecordType { return TypeRecurringPayment }
func (r RecurringPayment) RecordID() string {
	return r.ID
}

// IsValid reports whether t names one of the four record kinds.
func (t RecordType) IsValid() bool {
	switch t {
	case TypeInvoice, TypeExpense, TypeOffer, TypeRecurringPayment:
		return true
	}
	return false
}

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceCreated, InvoiceSent, InvoicePaid, InvoiceOverdue:
		return true
	}
	return false
}

func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferDraft, OfferSent, OfferAccepted, OfferRejected:
		return true
	}
	return false
}

func (f Frequency) IsValid() bool {
	switch f {
	case Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (g Gender) IsValid() bool {
	return g == Male || g == Female
}

// invoiceTransitions lists the statuses reachable from each invoice status.
// Paid is terminal.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceCreated: {InvoiceSent, InvoicePaid, InvoiceOverdue},
	InvoiceSent:    {InvoicePaid, InvoiceOverdue},
	InvoiceOverdue: {InvoiceSent, InvoicePaid},
}

// CanTransition returns an error unless the invoice may move to the given status.
func (i Invoice) CanTransition(to InvoiceStatus) error {
	if !to.IsValid() {
		return NewValidationError("status", string(to), "unknown invoice status")
	}
	for _, s := range invoiceTransitions[i.Status] {
		if s == to {
			return nil
		}
	}
	return NewValidationError("status", string(to), "transition from "+string(i.Status)+" not allowed")
}

// IsUnpaidPastDue reports whether the invoice should be swept to Overdue on the given day.
func (i Invoice) IsUnpaidPastDue(today Date) bool {
	if i.Status == InvoicePaid || i.Status == InvoiceOverdue {
		return false
	}
	return !i.DueDate.IsZero() && i.DueDate.Before(today)
}

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrUnknownFrequency = NewValidationError("frequency", nil, "unknown recurring payment frequency")
)

func (i Invoice) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return NewValidationError("date", i.Date.String(), err.Error())
	}
	if err := i.DueDate.Validate(); err != nil {
		return NewValidationError("dueDate", i.DueDate.String(), err.Error())
	}
	if strings.TrimSpace(i.Client) == "" {
		return NewValidationError("client", i.Client, "client is required")
	}
	if err := i.Amount.Validate(); err != nil {
		return NewValidationError("amount", i.Amount.String(), err.Error())
	}
	if i.VATRate < 0 || i.VATRate > 100 {
		return NewValidationError("vatRate", i.VATRate, "must be between 0 and 100")
	}
	if strings.TrimSpace(i.RepresentativeName) == "" {
		return NewValidationError("representativeName", i.RepresentativeName, "representative name is required")
	}
	if _, err := mail.ParseAddress(i.RepresentativeEmail); err != nil {
		return NewValidationError("representativeEmail", i.RepresentativeEmail, "invalid e-mail address")
	}
	if !i.RepresentativeGender.IsValid() {
		return NewValidationError("representativeGender", string(i.RepresentativeGender), "must be male or female")
	}
	if i.Status != "" && !i.Status.IsValid() {
		return NewValidationError("status", string(i.Status), "unknown invoice status")
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return NewValidationError("date", e.Date.String(), err.Error())
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return NewValidationError("description", e.Description, ErrEmptyDescription.Error())
	}
	if len(e.Description) > 200 {
		return NewValidationError("description", len(e.Description), "description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return NewValidationError("amount", e.Amount.String(), err.Error())
	}
	if strings.TrimSpace(e.Category) == "" {
		return NewValidationError("category", e.Category, ErrEmptyCategory.Error())
	}
	return nil
}

func (o Offer) Validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return NewValidationError("title", o.Title, "title is required")
	}
	if strings.TrimSpace(o.Client) == "" {
		return NewValidationError("client", o.Client, "client is required")
	}
	if err := o.Amount.Validate(); err != nil {
		return NewValidationError("amount", o.Amount.String(), err.Error())
	}
	if err := o.ExpirationDate.Validate(); err != nil {
		return NewValidationError("expirationDate", o.ExpirationDate.String(), err.Error())
	}
	if o.Status != "" && !o.Status.IsValid() {
		return NewValidationError("status", string(o.Status), "unknown offer status")
	}
	return nil
}

func (r RecurringPayment) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", r.Name, "name is required")
	}
	if err := r.Amount.Validate(); err != nil {
		return NewValidationError("amount", r.Amount.String(), err.Error())
	}
	if !r.Frequency.IsValid() {
		return ErrUnknownFrequency
	}
	if strings.TrimSpace(r.Category) == "" {
		return NewValidationError("category", r.Category, ErrEmptyCategory.Error())
	}
	if err := r.NextPayment.Validate(); err != nil {
		return NewValidationError("nextPayment", r.NextPayment.String(), err.Error())
	}
	return nil
}
