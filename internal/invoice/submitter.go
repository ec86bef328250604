package invoice

import (
	"context"
	"log/slog"

	"github.com/biznooks/biznooks/internal/gateway"
)

// Enqueuer hands a submission to a work queue. A nil Enqueuer means the
// submission runs inline and the caller blocks for the full retry
// duration.
type Enqueuer interface {
	EnqueueSubmission(ctx context.Context, invoiceID int64, useSandbox bool) (jobID string, err error)
}

// Submitter orchestrates e-invoice submission: payload build, gateway
// call, IRN recording. The authority is chosen once at construction.
type Submitter struct {
	lifecycle *Service
	authority gateway.Authority
	enqueuer  Enqueuer
	logger    *slog.Logger
}

// NewSubmitter constructs a Submitter. enqueuer may be nil.
func NewSubmitter(lifecycle *Service, authority gateway.Authority, enqueuer Enqueuer, logger *slog.Logger) *Submitter {
	return &Submitter{lifecycle: lifecycle, authority: authority, enqueuer: enqueuer, logger: logger}
}

// Submit either queues the submission or performs it inline, with the
// same return contract either way.
func (s *Submitter) Submit(ctx context.Context, invoiceID int64, useSandbox bool) (SubmitReceipt, error) {
	if s.enqueuer != nil {
		jobID, err := s.enqueuer.EnqueueSubmission(ctx, invoiceID, useSandbox)
		if err != nil {
			return SubmitReceipt{}, err
		}
		return SubmitReceipt{InvoiceID: invoiceID, Queued: true, JobID: jobID}, nil
	}
	return s.Perform(ctx, invoiceID, useSandbox)
}

// Perform runs the submission to completion. A transport failure after
// retry exhaustion leaves the invoice in its pre-submission state; no
// partial IRN is ever recorded.
func (s *Submitter) Perform(ctx context.Context, invoiceID int64, useSandbox bool) (SubmitReceipt, error) {
	payload, err := s.lifecycle.BuildPayload(ctx, invoiceID)
	if err != nil {
		return SubmitReceipt{}, err
	}
	result, err := s.authority.Submit(ctx, payload, useSandbox)
	if err != nil {
		return SubmitReceipt{}, err
	}
	receipt := SubmitReceipt{InvoiceID: invoiceID, IRN: result.IRN, Status: EInvoiceStatus(result.Status)}
	if result.IRN == "" {
		// Authority answered without an IRN; nothing to record yet.
		return receipt, nil
	}
	inv, err := s.lifecycle.MarkSubmitted(ctx, invoiceID, result.IRN, EInvoiceStatus(result.Status))
	if err != nil {
		return SubmitReceipt{}, err
	}
	receipt.Status = inv.Status
	receipt.Audit = s.lifecycle.RecordAudit(ctx, invoiceID, EventGSPSubmission, "irn="+result.IRN)
	if s.logger != nil && result.SignatureChecked && !result.SignatureValid {
		s.logger.Warn("gateway response signature did not verify", slog.Int64("invoice_id", invoiceID))
	}
	return receipt, nil
}
