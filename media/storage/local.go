package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/leeforge/shrink/errors"
	"github.com/leeforge/shrink/utils"
)

const defaultFileMode os.FileMode = 0o644

// LocalProvider implements Provider for the local filesystem.
//
// Writes go to a hidden temp file next to the destination which is synced
// and renamed over it, so a failed save never leaves a partial image
// behind. The parent directory must already exist.
type LocalProvider struct {
	mode os.FileMode
}

// NewLocalProvider creates a local provider writing files with mode.
func NewLocalProvider(mode os.FileMode) *LocalProvider {
	if mode == 0 {
		mode = defaultFileMode
	}
	return &LocalProvider{mode: mode}
}

// Write saves r to path atomically.
func (p *LocalProvider) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, p.fail(path, err)
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, p.mode)
	if err != nil {
		return 0, p.fail(path, err)
	}

	n, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, p.fail(path, err)
	}
	return n, nil
}

// Exists reports whether a regular file is present at path.
func (p *LocalProvider) Exists(ctx context.Context, path string) (bool, error) {
	isDir, exists, err := utils.Exists(path)
	return exists && !isDir, err
}

// Remove deletes path. A missing file is not an error.
func (p *LocalProvider) Remove(ctx context.Context, path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (p *LocalProvider) Name() string {
	return "local"
}

func (p *LocalProvider) fail(path string, err error) error {
	return errors.WrapWithType(err, errors.ErrorTypeEncode, "cannot write image").
		WithDetail("path", path).
		WithDetail("provider", p.Name())
}
