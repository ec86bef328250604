package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrGatewaySubmissionFailed indicates the remote authority stayed
// unreachable through every configured retry.
var ErrGatewaySubmissionFailed = errors.New("gateway: submission failed after retries")

// Result is the return contract shared by the simulated and remote
// authorities.
type Result struct {
	Status string `json:"status"`
	IRN    string `json:"irn,omitempty"`
	// SignatureChecked is true when the response carried a signature and
	// a public key was configured. SignatureValid reports the outcome; a
	// failed verification is flagged, not treated as a rejection.
	SignatureChecked bool `json:"-"`
	SignatureValid   bool `json:"-"`
}

// Authority submits e-invoice payloads to a tax-authority gateway. The
// implementation is selected once at construction and never branched per
// call.
type Authority interface {
	Submit(ctx context.Context, payload Payload, useSandbox bool) (Result, error)
}

// Config carries the knobs for authority construction.
type Config struct {
	BaseURL        string
	SandboxURL     string
	Timeout        time.Duration
	Retries        int
	BackoffFactor  float64
	BackoffCeiling time.Duration
	PrivateKeyPath string
	PublicKeyPath  string
}

// NewAuthority selects the simulated authority when no endpoint is
// configured, otherwise a remote authority with the configured keys. A
// missing private key degrades to unsigned submission; an unreadable key
// file is a configuration fault and fails fast.
func NewAuthority(cfg Config, logger *slog.Logger) (Authority, error) {
	if cfg.BaseURL == "" && cfg.SandboxURL == "" {
		return SimulatedAuthority{}, nil
	}
	remote, err := NewRemoteAuthority(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("gateway: configure remote authority: %w", err)
	}
	return remote, nil
}
