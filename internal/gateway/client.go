package gateway

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// RemoteAuthority signs and transmits payloads to a configured gateway
// endpoint, retrying transport failures with exponential backoff.
type RemoteAuthority struct {
	baseURL        string
	sandboxURL     string
	httpClient     *http.Client
	retries        int
	backoffFactor  float64
	backoffCeiling time.Duration
	private        *rsa.PrivateKey
	public         *rsa.PublicKey
	logger         *slog.Logger
	sleep          func(time.Duration)
}

// NewRemoteAuthority constructs a remote authority from configuration.
func NewRemoteAuthority(cfg Config, logger *slog.Logger) (*RemoteAuthority, error) {
	a := &RemoteAuthority{
		baseURL:        cfg.BaseURL,
		sandboxURL:     cfg.SandboxURL,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		retries:        cfg.Retries,
		backoffFactor:  cfg.BackoffFactor,
		backoffCeiling: cfg.BackoffCeiling,
		logger:         logger,
		sleep:          time.Sleep,
	}
	if a.baseURL == "" {
		a.baseURL = a.sandboxURL
	}
	if a.retries < 1 {
		a.retries = 1
	}
	if a.backoffFactor <= 1 {
		a.backoffFactor = 1.5
	}
	if a.backoffCeiling <= 0 {
		a.backoffCeiling = time.Minute
	}
	if cfg.PrivateKeyPath != "" {
		key, err := LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		a.private = key
	}
	if cfg.PublicKeyPath != "" {
		key, err := LoadPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		a.public = key
	}
	return a, nil
}

// WithSleep overrides the backoff wait, used by tests.
func (a *RemoteAuthority) WithSleep(sleep func(time.Duration)) {
	if sleep != nil {
		a.sleep = sleep
	}
}

// Submit serializes the payload once, signs those exact bytes when a
// private key is configured, and POSTs them. Transport failures (timeout,
// connection error, non-2xx) are retried up to the configured count with
// backoff factor^attempt capped at the ceiling; exhaustion surfaces
// ErrGatewaySubmissionFailed wrapping the last error.
func (a *RemoteAuthority) Submit(ctx context.Context, payload Payload, useSandbox bool) (Result, error) {
	body, err := payload.Marshal()
	if err != nil {
		return Result{}, fmt.Errorf("gateway: marshal payload: %w", err)
	}

	urlBase := a.baseURL
	if useSandbox && a.sandboxURL != "" {
		urlBase = a.sandboxURL
	}
	url := strings.TrimRight(urlBase, "/") + "/einvoice/submit"

	var signature string
	if a.private != nil {
		sig, err := signBytes(a.private, body)
		if err != nil {
			return Result{}, fmt.Errorf("gateway: sign payload: %w", err)
		}
		signature = hex.EncodeToString(sig)
	}

	var lastErr error
	for attempt := 1; attempt <= a.retries; attempt++ {
		result, err := a.attempt(ctx, url, body, signature)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt < a.retries {
			a.sleep(a.backoffDelay(attempt))
		}
	}
	return Result{}, fmt.Errorf("%w: %w", ErrGatewaySubmissionFailed, lastErr)
}

func (a *RemoteAuthority) attempt(ctx context.Context, url string, body []byte, signature string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("gateway: decode response: %w", err)
	}

	if a.public != nil {
		if respSig := resp.Header.Get("Signature"); respSig != "" {
			result.SignatureChecked = true
			sig, err := hex.DecodeString(respSig)
			if err == nil && verifyBytes(a.public, raw, sig) == nil {
				result.SignatureValid = true
			} else if a.logger != nil {
				// Flagged, not rejected.
				a.logger.Warn("gateway response signature verification failed", slog.String("irn", result.IRN))
			}
		}
	}
	return result, nil
}

func (a *RemoteAuthority) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(math.Pow(a.backoffFactor, float64(attempt)) * float64(time.Second))
	if delay > a.backoffCeiling {
		return a.backoffCeiling
	}
	return delay
}
