package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Provider writes encoded images to their destination.
type Provider interface {
	// Write stores everything read from r at path, replacing any existing
	// file only once the new content is complete. It returns the number
	// of bytes written.
	Write(ctx context.Context, path string, r io.Reader) (int64, error)
	Exists(ctx context.Context, path string) (bool, error)
	Remove(ctx context.Context, path string) error
	Name() string
}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Type     string      `mapstructure:"type" json:"type" default:"local"`
	FileMode os.FileMode `mapstructure:"file_mode" json:"file_mode" default:"420"`
}

// NewProvider creates the provider named by config.Type.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case "", "local":
		return NewLocalProvider(config.FileMode), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}
