package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	fs, err := NewLocalFS(dir)
	require.NoError(t, err)
	ctx := context.Background()

	n, err := fs.Put(ctx, "a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = fs.Put(ctx, "a.txt", strings.NewReader("again"))
	assert.ErrorIs(t, err, ErrBlobExists)

	rc, err := fs.Open(ctx, "a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, fs.Delete(ctx, "a.txt"))
	assert.ErrorIs(t, fs.Delete(ctx, "a.txt"), os.ErrNotExist)

	for _, bad := range []string{"", "..", "../escape.txt", `dir\file`} {
		_, err := fs.Put(ctx, bad, strings.NewReader("x"))
		assert.Error(t, err, bad)
	}
}

func TestLocalFSCancelledPut(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = fs.Put(ctx, "late.txt", strings.NewReader("data"))
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(filepath.Join(fs.Dir(), "late.txt"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
