package jobs

import (
	"context"
	"encoding/json"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestEnqueueSubmission(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer client.Close()

	jobID, err := client.EnqueueSubmission(context.Background(), 42, true)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	info, err := inspector.GetTaskInfo(QueueDefault, jobID)
	require.NoError(t, err)
	require.Equal(t, TaskTypeEInvoiceSubmit, info.Type)

	var payload EInvoiceSubmitPayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	require.Equal(t, int64(42), payload.InvoiceID)
	require.True(t, payload.UseSandbox)
}

func TestEnqueueSubmissionUniqueJobIDs(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer client.Close()

	first, err := client.EnqueueSubmission(context.Background(), 1, false)
	require.NoError(t, err)
	second, err := client.EnqueueSubmission(context.Background(), 1, false)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
