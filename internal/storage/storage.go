package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrPresignUnsupported indicates the backend cannot hand out upload URLs.
var ErrPresignUnsupported = errors.New("storage: presigned uploads not supported by this backend")

// PresignedUpload is a URL the client can PUT to directly, plus any
// headers the backend requires the client to send with that PUT.
type PresignedUpload struct {
	URL     string
	Headers map[string]string
}

// Storage is the object store port for signed regulatory documents.
// Put returns a locator the document row records; PresignPut hands out
// an upload target that bypasses the API process.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PresignPut(ctx context.Context, key string, ttl time.Duration) (PresignedUpload, error)
}

// FileStore writes objects under a base directory. It is the default
// backend when no object store is configured. Presigning is refused:
// there is no URL a client could PUT a local file to.
type FileStore struct {
	base string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(base string) (*FileStore, error) {
	if base == "" {
		return nil, errors.New("storage: base directory required")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating base dir: %w", err)
	}
	return &FileStore{base: base}, nil
}

func (s *FileStore) Put(ctx context.Context, key string, body io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: creating key dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: creating object: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("storage: writing object: %w", err)
	}
	return path, nil
}

func (s *FileStore) PresignPut(ctx context.Context, key string, ttl time.Duration) (PresignedUpload, error) {
	return PresignedUpload{}, ErrPresignUnsupported
}

// resolve joins key under base and refuses traversal outside it.
func (s *FileStore) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage: empty key")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: key escapes base dir: %q", key)
	}
	return filepath.Join(s.base, cleaned), nil
}

// SignedKey builds the canonical object key for an invoice's signed file.
func SignedKey(invoiceID int64, filename string) string {
	return fmt.Sprintf("signed/%d/%s", invoiceID, url.PathEscape(filename))
}
