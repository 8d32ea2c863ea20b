package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("abc"), 0o644))

	isDir, exists, err := Exists(dir)
	require.NoError(t, err)
	assert.True(t, isDir)
	assert.True(t, exists)

	isDir, exists, err = Exists(file)
	require.NoError(t, err)
	assert.False(t, isDir)
	assert.True(t, exists)

	_, exists, err = Exists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "0 B", HumanSize(0))
	assert.Equal(t, "0 B", HumanSize(-5))
	assert.Equal(t, "512 B", HumanSize(512))
	assert.Equal(t, "1.5 KiB", HumanSize(1536))
	assert.Equal(t, "2.0 MiB", HumanSize(2*1024*1024))
}

func TestSavings(t *testing.T) {
	assert.InDelta(t, 75.0, Savings(400, 100), 1e-9)
	assert.InDelta(t, -50.0, Savings(100, 150), 1e-9)
	assert.Zero(t, Savings(0, 10))
}
