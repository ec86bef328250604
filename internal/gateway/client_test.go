package gateway

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func samplePayload() Payload {
	return Payload{
		InvoiceNumber: "INV-2026-001",
		Date:          "2026-02-01",
		CustomerName:  "Acme Exports",
		Currency:      "USD",
		TotalAmount:   1000,
		Lines: []PayloadLine{
			{Description: "Consulting", Quantity: 1, UnitRate: 1000, Amount: 1000},
		},
	}
}

func newTestRemote(t *testing.T, baseURL string, retries int) *RemoteAuthority {
	t.Helper()
	remote, err := NewRemoteAuthority(Config{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		Retries:        retries,
		BackoffFactor:  1.5,
		BackoffCeiling: time.Minute,
	}, nil)
	require.NoError(t, err)
	return remote
}

func TestSimulatedAuthorityCannedIRN(t *testing.T) {
	result, err := SimulatedAuthority{}.Submit(context.Background(), samplePayload(), false)
	require.NoError(t, err)
	require.Equal(t, "IRN_ASSIGNED", result.Status)
	require.Equal(t, "IRN-SIM-INV-2026-001", result.IRN)
}

func TestNewAuthoritySelectsSimulatorWhenUnconfigured(t *testing.T) {
	authority, err := NewAuthority(Config{}, nil)
	require.NoError(t, err)
	require.IsType(t, SimulatedAuthority{}, authority)
}

func TestSubmitSuccess(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/einvoice/submit", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"IRN_ASSIGNED","irn":"IRN-000042"}`))
	}))
	defer srv.Close()

	remote := newTestRemote(t, srv.URL, 3)
	result, err := remote.Submit(context.Background(), samplePayload(), false)
	require.NoError(t, err)
	require.Equal(t, "IRN-000042", result.IRN)
	require.Equal(t, "IRN_ASSIGNED", result.Status)

	expected, err := samplePayload().Marshal()
	require.NoError(t, err)
	require.Equal(t, expected, gotBody)
}

func TestSubmitRetriesThenFails(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	remote := newTestRemote(t, srv.URL, 3)
	var delays []time.Duration
	remote.WithSleep(func(d time.Duration) { delays = append(delays, d) })

	_, err := remote.Submit(context.Background(), samplePayload(), false)
	require.ErrorIs(t, err, ErrGatewaySubmissionFailed)
	require.Equal(t, 3, attempts)
	require.Len(t, delays, 2)
	require.Greater(t, delays[1], delays[0])
}

func TestSubmitRecoversAfterTransientFailure(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"IRN_ASSIGNED","irn":"IRN-1"}`))
	}))
	defer srv.Close()

	remote := newTestRemote(t, srv.URL, 3)
	remote.WithSleep(func(time.Duration) {})

	result, err := remote.Submit(context.Background(), samplePayload(), false)
	require.NoError(t, err)
	require.Equal(t, "IRN-1", result.IRN)
	require.Equal(t, 3, attempts)
}

func TestBackoffDelayCapped(t *testing.T) {
	remote := newTestRemote(t, "http://127.0.0.1:0", 3)
	remote.backoffFactor = 10
	remote.backoffCeiling = 5 * time.Second
	require.Equal(t, 5*time.Second, remote.backoffDelay(4))
}

func writeKeyPair(t *testing.T) (privPath, pubPath string, key *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()

	privPath = filepath.Join(dir, "gsp.key")
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0o600))

	pubPath = filepath.Join(dir, "gsp.pub")
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o644))
	return privPath, pubPath, key
}

func TestSubmitSignsSerializedBytes(t *testing.T) {
	privPath, _, key := writeKeyPair(t)

	var gotSignature string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Signature")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = body
		_, _ = w.Write([]byte(`{"status":"IRN_ASSIGNED","irn":"IRN-2"}`))
	}))
	defer srv.Close()

	remote, err := NewRemoteAuthority(Config{
		BaseURL:        srv.URL,
		Timeout:        2 * time.Second,
		Retries:        1,
		PrivateKeyPath: privPath,
	}, nil)
	require.NoError(t, err)

	_, err = remote.Submit(context.Background(), samplePayload(), false)
	require.NoError(t, err)
	require.NotEmpty(t, gotSignature)

	sig, err := hex.DecodeString(gotSignature)
	require.NoError(t, err)
	require.NoError(t, verifyBytes(&key.PublicKey, gotBody, sig))
}

func TestSubmitVerifiesResponseSignature(t *testing.T) {
	privPath, pubPath, key := writeKeyPair(t)

	respBody := []byte(`{"status":"IRN_ASSIGNED","irn":"IRN-3"}`)
	sig, err := signBytes(key, respBody)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Signature", hex.EncodeToString(sig))
		_, _ = w.Write(respBody)
	}))
	defer srv.Close()

	remote, err := NewRemoteAuthority(Config{
		BaseURL:        srv.URL,
		Timeout:        2 * time.Second,
		Retries:        1,
		PrivateKeyPath: privPath,
		PublicKeyPath:  pubPath,
	}, nil)
	require.NoError(t, err)

	result, err := remote.Submit(context.Background(), samplePayload(), false)
	require.NoError(t, err)
	require.True(t, result.SignatureChecked)
	require.True(t, result.SignatureValid)
}

func TestSubmitFlagsBadResponseSignature(t *testing.T) {
	privPath, pubPath, _ := writeKeyPair(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Signature", hex.EncodeToString([]byte("bogus")))
		_, _ = w.Write([]byte(`{"status":"IRN_ASSIGNED","irn":"IRN-4"}`))
	}))
	defer srv.Close()

	remote, err := NewRemoteAuthority(Config{
		BaseURL:        srv.URL,
		Timeout:        2 * time.Second,
		Retries:        1,
		PrivateKeyPath: privPath,
		PublicKeyPath:  pubPath,
	}, nil)
	require.NoError(t, err)

	result, err := remote.Submit(context.Background(), samplePayload(), false)
	require.NoError(t, err)
	require.True(t, result.SignatureChecked)
	require.False(t, result.SignatureValid)
	require.Equal(t, "IRN-4", result.IRN)
}

func TestSandboxURLSelectedByFlag(t *testing.T) {
	var hits int
	sandbox := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"status":"IRN_ASSIGNED","irn":"IRN-SBX"}`))
	}))
	defer sandbox.Close()

	remote, err := NewRemoteAuthority(Config{
		BaseURL:    "http://127.0.0.1:1",
		SandboxURL: sandbox.URL,
		Timeout:    2 * time.Second,
		Retries:    1,
	}, nil)
	require.NoError(t, err)

	result, err := remote.Submit(context.Background(), samplePayload(), true)
	require.NoError(t, err)
	require.Equal(t, "IRN-SBX", result.IRN)
	require.Equal(t, 1, hits)
}
