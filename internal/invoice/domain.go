package invoice

import (
	"errors"
	"time"
)

// EInvoiceStatus enumerates e-invoice lifecycle states.
type EInvoiceStatus string

const (
	StatusDraft       EInvoiceStatus = "DRAFT"
	StatusIRNAssigned EInvoiceStatus = "IRN_ASSIGNED"
	StatusValid       EInvoiceStatus = "VALID"
	StatusCancelled   EInvoiceStatus = "CANCELLED"
	StatusInvalid     EInvoiceStatus = "INVALID"
)

// Terminal reports whether the status admits no further transition.
func (s EInvoiceStatus) Terminal() bool {
	switch s {
	case StatusValid, StatusCancelled, StatusInvalid:
		return true
	}
	return false
}

// Known reports whether s is one of the lifecycle states.
func (s EInvoiceStatus) Known() bool {
	switch s {
	case StatusDraft, StatusIRNAssigned, StatusValid, StatusCancelled, StatusInvalid:
		return true
	}
	return false
}

// canTransition encodes the lifecycle state machine. Re-applying the
// current status is allowed so that redelivered callbacks stay idempotent.
func canTransition(from, to EInvoiceStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusDraft:
		return to == StatusIRNAssigned
	case StatusIRNAssigned:
		return to.Terminal()
	}
	return false
}

// Audit event tags. Every status or IRN mutation appends exactly one
// event in the same unit of work.
const (
	EventIRNAssigned       = "IRN_ASSIGNED"
	EventStatusUpdate      = "GSTN_STATUS_UPDATE"
	EventSignedDocUploaded = "SIGNED_DOC_UPLOADED"
	EventLUTApplied        = "LUT_APPLIED"
	EventGSPSubmission     = "GSP_SUBMISSION"
)

// Invoice is a tax invoice with its regulatory identifiers. EInvoiceIRN
// stays nil until the authority assigns one.
type Invoice struct {
	ID            int64
	InvoiceNumber string
	Date          time.Time
	CustomerName  string
	CustomerGSTIN string
	PlaceOfSupply string
	IsExport      bool
	LUTApplicable bool
	LUTReference  string
	IEC           string
	Currency      string
	EInvoiceIRN   *string
	Status        EInvoiceStatus
	Lines         []Line
}

// Line is one invoice line with its tax components.
type Line struct {
	ID          int64
	InvoiceID   int64
	Description string
	Quantity    float64
	UnitRate    float64
	Amount      float64
	IGST        float64
	CGST        float64
	SGST        float64
}

// TotalAmount sums line amounts.
func (inv Invoice) TotalAmount() float64 {
	var total float64
	for _, line := range inv.Lines {
		total += line.Amount
	}
	return total
}

// AuditEvent is an append-only, immutable trail record.
type AuditEvent struct {
	ID        int64
	InvoiceID int64
	Event     string
	Details   string
	Timestamp time.Time
}

// SignedDocument references an uploaded signed artefact in object storage.
type SignedDocument struct {
	ID         int64
	InvoiceID  int64
	Filename   string
	Locator    string
	UploadedAt time.Time
}

// AuditOutcome reports whether a best-effort audit write outside the
// primary transaction succeeded, so callers can tell full success from
// success with an audit gap.
type AuditOutcome struct {
	Err error
}

// Ok reports whether the audit write succeeded.
func (o AuditOutcome) Ok() bool { return o.Err == nil }

var (
	// ErrInvoiceNotFound indicates no invoice has the given id.
	ErrInvoiceNotFound = errors.New("invoice: not found")
	// ErrInvoiceNotFoundForIRN indicates no invoice holds the given IRN.
	ErrInvoiceNotFoundForIRN = errors.New("invoice: not found for IRN")
	// ErrDuplicateInvoiceNumber indicates the invoice number is taken.
	ErrDuplicateInvoiceNumber = errors.New("invoice: duplicate invoice number")
	// ErrInvalidTransition indicates the requested status change is not
	// allowed by the lifecycle state machine.
	ErrInvalidTransition = errors.New("invoice: invalid status transition")
	// ErrUnknownStatus indicates a status outside the lifecycle states.
	ErrUnknownStatus = errors.New("invoice: unknown status")
)
