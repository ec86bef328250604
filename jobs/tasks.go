package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/biznooks/biznooks/internal/invoice"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeEInvoiceSubmit is the task type for e-invoice submission.
	TaskTypeEInvoiceSubmit = "einvoice:submit"
)

// EInvoiceSubmitPayload identifies the invoice to submit and which
// authority environment to reach.
type EInvoiceSubmitPayload struct {
	InvoiceID  int64 `json:"invoice_id"`
	UseSandbox bool  `json:"use_sandbox"`
}

// NewEInvoiceSubmitTask constructs an Asynq task.
func NewEInvoiceSubmitTask(payload EInvoiceSubmitPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeEInvoiceSubmit, data), nil
}

// NewEInvoiceSubmitHandler builds the handler processing
// TaskTypeEInvoiceSubmit tasks. Retry exhaustion inside the gateway client
// surfaces as a task error so Asynq applies its own retry policy on top.
func NewEInvoiceSubmitHandler(submitter *invoice.Submitter, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload EInvoiceSubmitPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		receipt, err := submitter.Perform(ctx, payload.InvoiceID, payload.UseSandbox)
		if err != nil {
			logger.Error("einvoice submission task",
				slog.Int64("invoice_id", payload.InvoiceID),
				slog.Any("error", err))
			return err
		}
		logger.Info("einvoice submitted",
			slog.Int64("invoice_id", receipt.InvoiceID),
			slog.String("irn", receipt.IRN),
			slog.String("status", string(receipt.Status)))
		return nil
	}
}
