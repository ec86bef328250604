package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/biznooks/biznooks/internal/gateway"
)

// DefaultSnapshotEvents is how many audit events a status snapshot carries
// when the caller does not say.
const DefaultSnapshotEvents = 5

// Service drives invoices through the e-invoice lifecycle and owns the
// audit trail.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create stores a new invoice in DRAFT with its lines, atomically.
func (s *Service) Create(ctx context.Context, in CreateInvoiceInput) (Invoice, error) {
	if err := in.Validate(); err != nil {
		return Invoice{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now().UTC().Truncate(24 * time.Hour)
	}
	inv := Invoice{
		InvoiceNumber: in.InvoiceNumber,
		Date:          date,
		CustomerName:  in.CustomerName,
		CustomerGSTIN: in.CustomerGSTIN,
		PlaceOfSupply: in.PlaceOfSupply,
		IsExport:      in.IsExport,
		LUTApplicable: in.LUTApplicable,
		IEC:           in.IEC,
		Currency:      in.Currency,
		Status:        StatusDraft,
	}
	for _, line := range in.Lines {
		inv.Lines = append(inv.Lines, Line{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitRate:    line.UnitRate,
			Amount:      line.Amount,
			IGST:        line.IGST,
			CGST:        line.CGST,
			SGST:        line.SGST,
		})
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		if err := tx.InsertInvoiceLines(ctx, id, inv.Lines); err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Get returns the invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := s.repo.GetInvoiceWithLines(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv == nil {
		return Invoice{}, ErrInvoiceNotFound
	}
	return *inv, nil
}

// BuildPayload assembles the outbound e-invoice document for the invoice.
func (s *Service) BuildPayload(ctx context.Context, id int64) (gateway.Payload, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return gateway.Payload{}, err
	}
	payload := gateway.Payload{
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.Date.Format("2006-01-02"),
		CustomerName:  inv.CustomerName,
		CustomerGSTIN: inv.CustomerGSTIN,
		PlaceOfSupply: inv.PlaceOfSupply,
		IsExport:      inv.IsExport,
		LUTApplicable: inv.LUTApplicable,
		IEC:           inv.IEC,
		Currency:      inv.Currency,
		TotalAmount:   inv.TotalAmount(),
	}
	for _, line := range inv.Lines {
		payload.Lines = append(payload.Lines, gateway.PayloadLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitRate:    line.UnitRate,
			Amount:      line.Amount,
			IGST:        line.IGST,
			CGST:        line.CGST,
			SGST:        line.SGST,
		})
	}
	return payload, nil
}

// MarkSubmitted records the IRN the authority assigned, moving the
// invoice from DRAFT to IRN_ASSIGNED. The status update and its audit
// event commit in the same unit of work.
func (s *Service) MarkSubmitted(ctx context.Context, id int64, irn string, status EInvoiceStatus) (Invoice, error) {
	if status == "" {
		status = StatusIRNAssigned
	}
	if !status.Known() {
		return Invoice{}, fmt.Errorf("%w: %s", ErrUnknownStatus, status)
	}
	var result Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrInvoiceNotFound
		}
		if !canTransition(inv.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, status)
		}
		if err := tx.UpdateEInvoice(ctx, id, &irn, status); err != nil {
			return err
		}
		if err := tx.InsertAuditEvent(ctx, AuditEvent{
			InvoiceID: id,
			Event:     EventIRNAssigned,
			Details:   "IRN=" + irn,
			Timestamp: s.now().UTC(),
		}); err != nil {
			return err
		}
		inv.EInvoiceIRN = &irn
		inv.Status = status
		result = *inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return result, nil
}

// UpdateByIRN applies an authority status callback, located by IRN rather
// than invoice id. The transition and its audit event commit together.
func (s *Service) UpdateByIRN(ctx context.Context, irn string, status EInvoiceStatus) (Invoice, error) {
	if !status.Known() {
		return Invoice{}, fmt.Errorf("%w: %s", ErrUnknownStatus, status)
	}
	var result Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceByIRNForUpdate(ctx, irn)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrInvoiceNotFoundForIRN
		}
		if !canTransition(inv.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, status)
		}
		if err := tx.UpdateEInvoice(ctx, inv.ID, inv.EInvoiceIRN, status); err != nil {
			return err
		}
		if err := tx.InsertAuditEvent(ctx, AuditEvent{
			InvoiceID: inv.ID,
			Event:     EventStatusUpdate,
			Details:   "status=" + string(status),
			Timestamp: s.now().UTC(),
		}); err != nil {
			return err
		}
		inv.Status = status
		result = *inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return result, nil
}

// AttachSignedDocument records an uploaded signed artefact. No status
// change; the document row and its audit event commit together.
func (s *Service) AttachSignedDocument(ctx context.Context, invoiceID int64, filename, locator string) (SignedDocument, error) {
	doc := SignedDocument{
		InvoiceID:  invoiceID,
		Filename:   filename,
		Locator:    locator,
		UploadedAt: s.now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrInvoiceNotFound
		}
		id, err := tx.InsertSignedDocument(ctx, doc)
		if err != nil {
			return err
		}
		doc.ID = id
		return tx.InsertAuditEvent(ctx, AuditEvent{
			InvoiceID: invoiceID,
			Event:     EventSignedDocUploaded,
			Details:   fmt.Sprintf("%s at %s", filename, locator),
			Timestamp: doc.UploadedAt,
		})
	})
	if err != nil {
		return SignedDocument{}, err
	}
	return doc, nil
}

// ApplyLUT marks an invoice LUT-applicable with an export-concession
// reference.
func (s *Service) ApplyLUT(ctx context.Context, invoiceID int64, reference string) (Invoice, error) {
	var result Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrInvoiceNotFound
		}
		if err := tx.SetLUT(ctx, invoiceID, reference); err != nil {
			return err
		}
		if err := tx.InsertAuditEvent(ctx, AuditEvent{
			InvoiceID: invoiceID,
			Event:     EventLUTApplied,
			Details:   "lut_ref=" + reference,
			Timestamp: s.now().UTC(),
		}); err != nil {
			return err
		}
		inv.LUTApplicable = true
		inv.LUTReference = reference
		result = *inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return result, nil
}

// StatusSnapshot is a pure read: current status plus the k most recent
// audit events, newest first.
func (s *Service) StatusSnapshot(ctx context.Context, invoiceID int64, k int) (StatusSnapshot, error) {
	if k <= 0 {
		k = DefaultSnapshotEvents
	}
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	if inv == nil {
		return StatusSnapshot{}, ErrInvoiceNotFound
	}
	events, err := s.repo.ListAuditEvents(ctx, invoiceID, k)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return StatusSnapshot{
		InvoiceID: inv.ID,
		IRN:       inv.EInvoiceIRN,
		Status:    inv.Status,
		Events:    events,
	}, nil
}

// RecordAudit appends an informational event outside any primary
// transaction. The outcome is reported, never swallowed.
func (s *Service) RecordAudit(ctx context.Context, invoiceID int64, event, details string) AuditOutcome {
	err := s.repo.InsertAuditEvent(ctx, AuditEvent{
		InvoiceID: invoiceID,
		Event:     event,
		Details:   details,
		Timestamp: s.now().UTC(),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit write failed",
			slog.Int64("invoice_id", invoiceID),
			slog.String("event", event),
			slog.Any("error", err))
	}
	return AuditOutcome{Err: err}
}
