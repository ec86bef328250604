// Package webhook validates inbound authority callbacks before any state
// mutation: replay protection first, then timestamp window, then message
// authenticity.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/biznooks/biznooks/internal/invoice"
)

// MaxTimestampSkew is the accepted absolute distance between the event
// timestamp and now.
const MaxTimestampSkew = 300 * time.Second

var (
	// ErrMissingNonce indicates an empty nonce.
	ErrMissingNonce = errors.New("webhook: missing nonce")
	// ErrReplayedNonce indicates the nonce was seen before.
	ErrReplayedNonce = errors.New("webhook: nonce already used")
	// ErrInvalidTimestamp indicates an unparseable timestamp.
	ErrInvalidTimestamp = errors.New("webhook: invalid timestamp")
	// ErrTimestampOutOfWindow indicates skew beyond MaxTimestampSkew.
	ErrTimestampOutOfWindow = errors.New("webhook: timestamp out of acceptable range")
	// ErrInvalidSignature indicates the HMAC did not match.
	ErrInvalidSignature = errors.New("webhook: invalid signature")
)

// Event is an inbound callback from the tax-authority gateway.
type Event struct {
	IRN       string `json:"irn"`
	Status    string `json:"status"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
	Timestamp string `json:"timestamp"`
}

// NonceStore persists seen nonces. Insert must rely on a storage-level
// unique constraint, not a check-then-insert race.
type NonceStore interface {
	Insert(ctx context.Context, nonce string, at time.Time) error
}

// StatusUpdater applies a verified status callback, looked up by IRN.
type StatusUpdater interface {
	UpdateByIRN(ctx context.Context, irn string, status invoice.EInvoiceStatus) (invoice.Invoice, error)
}

// Guard runs the ordered checks and only then lets the lifecycle manager
// mutate anything. It holds no state beyond the append-only nonce set.
type Guard struct {
	nonces    NonceStore
	lifecycle StatusUpdater
	secret    []byte
	logger    *slog.Logger
	now       func() time.Time
}

// NewGuard constructs a Guard with the shared webhook secret.
func NewGuard(nonces NonceStore, lifecycle StatusUpdater, secret string, logger *slog.Logger) *Guard {
	return &Guard{
		nonces:    nonces,
		lifecycle: lifecycle,
		secret:    []byte(secret),
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (g *Guard) WithNow(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// Process validates the event and applies the status update. The nonce is
// consumed before the remaining checks run, so a rejected event cannot be
// refined and resent under the same nonce.
func (g *Guard) Process(ctx context.Context, ev Event) (invoice.Invoice, error) {
	if ev.Nonce == "" {
		return invoice.Invoice{}, ErrMissingNonce
	}
	if err := g.nonces.Insert(ctx, ev.Nonce, g.now().UTC()); err != nil {
		return invoice.Invoice{}, err
	}

	if ev.Timestamp != "" {
		ts, err := parseTimestamp(ev.Timestamp)
		if err != nil {
			return invoice.Invoice{}, ErrInvalidTimestamp
		}
		skew := g.now().UTC().Sub(ts.UTC())
		if skew < 0 {
			skew = -skew
		}
		if skew > MaxTimestampSkew {
			return invoice.Invoice{}, ErrTimestampOutOfWindow
		}
	}

	if !g.verify(canonicalString(ev), ev.Signature) {
		return invoice.Invoice{}, ErrInvalidSignature
	}

	return g.lifecycle.UpdateByIRN(ctx, ev.IRN, invoice.EInvoiceStatus(ev.Status))
}

// canonicalString is the signed representation: irn|status|nonce|timestamp,
// absent fields empty.
func canonicalString(ev Event) string {
	return strings.Join([]string{ev.IRN, ev.Status, ev.Nonce, ev.Timestamp}, "|")
}

// Sign computes the hex HMAC-SHA256 the guard expects; exported so trusted
// peers and tests can produce matching signatures.
func Sign(secret, irn, status, nonce, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join([]string{irn, status, nonce, timestamp}, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Guard) verify(text, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(text))
	expected := mac.Sum(nil)
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, provided)
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}
