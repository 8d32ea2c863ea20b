package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leeforge/shrink/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenReader struct{ n int }

func (r *brokenReader) Read(p []byte) (int, error) {
	if r.n > 0 {
		k := copy(p, strings.Repeat("x", r.n))
		r.n -= k
		return k, nil
	}
	return 0, io.ErrUnexpectedEOF
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestLocalProvider_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jpg")
	p := NewLocalProvider(0o600)

	n, err := p.Write(context.Background(), path, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, []string{"out.jpg"}, listDir(t, dir), "no temp files left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLocalProvider_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(path, []byte("previous content"), 0o644))

	_, err := NewLocalProvider(0).Write(context.Background(), path, strings.NewReader("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestLocalProvider_FailedWriteKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	_, err := NewLocalProvider(0).Write(context.Background(), path, &brokenReader{n: 64})
	require.ErrorIs(t, err, errors.ErrEncode)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, path, errors.FromError(err).Details["path"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
	assert.Equal(t, []string{"out.png"}, listDir(t, dir))
}

func TestLocalProvider_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.jpg")

	_, err := NewLocalProvider(0).Write(context.Background(), path, strings.NewReader("x"))
	require.ErrorIs(t, err, errors.ErrEncode)

	_, statErr := os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(statErr), "parent directory must not be created")
}

func TestLocalProvider_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalProvider(0).Write(ctx, filepath.Join(dir, "out.jpg"), strings.NewReader("x"))
	require.ErrorIs(t, err, errors.ErrEncode)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, listDir(t, dir))
}

func TestLocalProvider_ExistsAndRemove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.png")
	p := NewLocalProvider(0)

	ok, err := p.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.Write(ctx, path, strings.NewReader("a"))
	require.NoError(t, err)

	ok, err = p.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Remove(ctx, path))
	require.NoError(t, p.Remove(ctx, path), "removing twice is fine")
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: "local", FileMode: 0o600})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())

	_, err = NewProvider(ProviderConfig{Type: "oss"})
	assert.Error(t, err)
}

func TestLocalProvider_ExistsDirectory(t *testing.T) {
	ok, err := NewLocalProvider(0).Exists(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok, "a directory is not a saved image")
}
