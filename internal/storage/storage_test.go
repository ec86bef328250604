package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileStorePutAndReadBack(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	locator, err := store.Put(context.Background(), SignedKey(7, "signed.pdf"), strings.NewReader("pdf-bytes"), "application/pdf")
	require.NoError(t, err)

	data, err := os.ReadFile(locator)
	require.NoError(t, err)
	require.Equal(t, "pdf-bytes", string(data))
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.txt", strings.NewReader("x"), "")
	require.Error(t, err)

	_, err = store.Put(context.Background(), "/abs/escape.txt", strings.NewReader("x"), "")
	require.Error(t, err)
}

func TestFileStorePresignUnsupported(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	upload, err := store.PresignPut(context.Background(), SignedKey(7, "signed.pdf"), time.Hour)
	require.ErrorIs(t, err, ErrPresignUnsupported)
	require.Zero(t, upload)
}

func TestSignedKeyEscapesFilename(t *testing.T) {
	require.Equal(t, "signed/7/a%20b.pdf", SignedKey(7, "a b.pdf"))
}
