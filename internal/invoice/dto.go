package invoice

import (
	"errors"
	"time"
)

// CreateLineInput describes one invoice line for creation.
type CreateLineInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	UnitRate    float64 `json:"unit_rate" validate:"gte=0"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	IGST        float64 `json:"igst" validate:"gte=0"`
	CGST        float64 `json:"cgst" validate:"gte=0"`
	SGST        float64 `json:"sgst" validate:"gte=0"`
}

// CreateInvoiceInput groups fields required to create an invoice.
type CreateInvoiceInput struct {
	InvoiceNumber string            `json:"invoice_number" validate:"required"`
	Date          time.Time         `json:"date"`
	CustomerName  string            `json:"customer_name"`
	CustomerGSTIN string            `json:"customer_gstin"`
	PlaceOfSupply string            `json:"place_of_supply"`
	IsExport      bool              `json:"is_export"`
	LUTApplicable bool              `json:"lut_applicable"`
	IEC           string            `json:"iec"`
	Currency      string            `json:"currency" validate:"required,len=3"`
	Lines         []CreateLineInput `json:"lines" validate:"min=1,dive"`
}

// Validate enforces the minimum the service needs regardless of how the
// input arrived.
func (in CreateInvoiceInput) Validate() error {
	if in.InvoiceNumber == "" {
		return errors.New("invoice: invoice number required")
	}
	if len(in.Currency) != 3 {
		return errors.New("invoice: three-letter currency code required")
	}
	if len(in.Lines) == 0 {
		return errors.New("invoice: at least one line required")
	}
	for _, line := range in.Lines {
		if line.Quantity < 0 || line.UnitRate < 0 || line.Amount < 0 {
			return errors.New("invoice: negative line values")
		}
	}
	return nil
}

// StatusSnapshot is a pure read of the lifecycle position: current status
// plus the most recent audit events, newest first.
type StatusSnapshot struct {
	InvoiceID int64
	IRN       *string
	Status    EInvoiceStatus
	Events    []AuditEvent
}

// SubmitReceipt reports the outcome of an e-invoice submission. When the
// submission was handed to the work queue only JobID is set; otherwise
// IRN/Status carry the authority's answer and Audit the outcome of the
// post-commit informational audit write.
type SubmitReceipt struct {
	InvoiceID int64
	Queued    bool
	JobID     string
	IRN       string
	Status    EInvoiceStatus
	Audit     AuditOutcome
}
