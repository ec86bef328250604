package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/biznooks/biznooks/internal/invoice"
)

const testSecret = "dev-secret-key"

type memoryNonceStore struct {
	seen map[string]time.Time
}

func newMemoryNonceStore() *memoryNonceStore {
	return &memoryNonceStore{seen: make(map[string]time.Time)}
}

func (s *memoryNonceStore) Insert(ctx context.Context, nonce string, at time.Time) error {
	if _, ok := s.seen[nonce]; ok {
		return ErrReplayedNonce
	}
	s.seen[nonce] = at
	return nil
}

type fakeUpdater struct {
	calls  int
	status invoice.EInvoiceStatus
}

func (u *fakeUpdater) UpdateByIRN(ctx context.Context, irn string, status invoice.EInvoiceStatus) (invoice.Invoice, error) {
	u.calls++
	u.status = status
	irnCopy := irn
	return invoice.Invoice{ID: 1, EInvoiceIRN: &irnCopy, Status: status}, nil
}

func signedEvent(now time.Time, irn, status, nonce string) Event {
	ts := now.Format(time.RFC3339)
	return Event{
		IRN:       irn,
		Status:    status,
		Nonce:     nonce,
		Timestamp: ts,
		Signature: Sign(testSecret, irn, status, nonce, ts),
	}
}

func newTestGuard(store NonceStore, updater StatusUpdater, now time.Time) *Guard {
	guard := NewGuard(store, updater, testSecret, nil)
	guard.WithNow(func() time.Time { return now })
	return guard
}

func TestProcessValidEvent(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	updater := &fakeUpdater{}
	guard := newTestGuard(newMemoryNonceStore(), updater, now)

	inv, err := guard.Process(context.Background(), signedEvent(now, "IRN-1", "VALID", "n1"))
	require.NoError(t, err)
	require.Equal(t, invoice.StatusValid, inv.Status)
	require.Equal(t, 1, updater.calls)
}

func TestProcessReplayedNonce(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	updater := &fakeUpdater{}
	guard := newTestGuard(newMemoryNonceStore(), updater, now)

	ev := signedEvent(now, "IRN-1", "VALID", "n1")
	_, err := guard.Process(context.Background(), ev)
	require.NoError(t, err)

	_, err = guard.Process(context.Background(), ev)
	require.ErrorIs(t, err, ErrReplayedNonce)
	require.Equal(t, 1, updater.calls)
}

func TestProcessMissingNonce(t *testing.T) {
	now := time.Now().UTC()
	guard := newTestGuard(newMemoryNonceStore(), &fakeUpdater{}, now)
	ev := signedEvent(now, "IRN-1", "VALID", "n1")
	ev.Nonce = ""
	_, err := guard.Process(context.Background(), ev)
	require.ErrorIs(t, err, ErrMissingNonce)
}

func TestProcessInvalidTimestamp(t *testing.T) {
	now := time.Now().UTC()
	updater := &fakeUpdater{}
	guard := newTestGuard(newMemoryNonceStore(), updater, now)

	ev := Event{IRN: "IRN-1", Status: "VALID", Nonce: "n1", Timestamp: "not-a-time"}
	ev.Signature = Sign(testSecret, ev.IRN, ev.Status, ev.Nonce, ev.Timestamp)
	_, err := guard.Process(context.Background(), ev)
	require.ErrorIs(t, err, ErrInvalidTimestamp)
	require.Zero(t, updater.calls)
}

func TestProcessTimestampOutOfWindow(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	updater := &fakeUpdater{}
	guard := newTestGuard(newMemoryNonceStore(), updater, now)

	stale := now.Add(-6 * time.Minute)
	_, err := guard.Process(context.Background(), signedEvent(stale, "IRN-1", "VALID", "n1"))
	require.ErrorIs(t, err, ErrTimestampOutOfWindow)
	require.Zero(t, updater.calls)
}

func TestProcessNoTimestampSkipsWindowCheck(t *testing.T) {
	now := time.Now().UTC()
	updater := &fakeUpdater{}
	guard := newTestGuard(newMemoryNonceStore(), updater, now)

	ev := Event{IRN: "IRN-1", Status: "VALID", Nonce: "n1"}
	ev.Signature = Sign(testSecret, ev.IRN, ev.Status, ev.Nonce, "")
	_, err := guard.Process(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, 1, updater.calls)
}

func TestProcessInvalidSignature(t *testing.T) {
	now := time.Now().UTC()
	updater := &fakeUpdater{}
	guard := newTestGuard(newMemoryNonceStore(), updater, now)

	ev := signedEvent(now, "IRN-1", "VALID", "n1")
	ev.Signature = Sign("wrong-secret", ev.IRN, ev.Status, ev.Nonce, ev.Timestamp)
	_, err := guard.Process(context.Background(), ev)
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Zero(t, updater.calls)
}

func TestNonceConsumedEvenWhenLaterChecksFail(t *testing.T) {
	now := time.Now().UTC()
	store := newMemoryNonceStore()
	updater := &fakeUpdater{}
	guard := newTestGuard(store, updater, now)

	ev := signedEvent(now, "IRN-1", "VALID", "n1")
	ev.Signature = "deadbeef"
	_, err := guard.Process(context.Background(), ev)
	require.ErrorIs(t, err, ErrInvalidSignature)

	// Refining the event and resending under the same nonce is rejected.
	fixed := signedEvent(now, "IRN-1", "VALID", "n1")
	_, err = guard.Process(context.Background(), fixed)
	require.ErrorIs(t, err, ErrReplayedNonce)
	require.Zero(t, updater.calls)
}
