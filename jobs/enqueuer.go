package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Client submits jobs to the queue. It satisfies invoice.Enqueuer.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueSubmission queues an e-invoice submission and returns the job ID
// the caller can hand back to the client for correlation.
func (c *Client) EnqueueSubmission(ctx context.Context, invoiceID int64, useSandbox bool) (string, error) {
	task, err := NewEInvoiceSubmitTask(EInvoiceSubmitPayload{InvoiceID: invoiceID, UseSandbox: useSandbox})
	if err != nil {
		return "", err
	}
	jobID := uuid.NewString()
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.TaskID(jobID),
		asynq.MaxRetry(3))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
