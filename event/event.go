// Package event defines the events published by the editing session and
// the bus they travel on.
package event

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBusClosed is returned when publishing to a closed Bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrPublishTimeout is returned when the publish buffer is full and context expires.
	ErrPublishTimeout = errors.New("event publish timeout: buffer full")
)

// Topics published by the session.
const (
	ImageLoaded     = "image.loaded"
	ImageLoadFailed = "image.load_failed"
	ImagePreviewed  = "image.previewed"
	ImageSaved      = "image.saved"
	ImageSaveFailed = "image.save_failed"
	SessionReset    = "session.reset"
)

// Event is a single notification.
type Event struct {
	Name      string    // e.g. "image.saved"
	Data      any       // one of the payload types below
	Source    string    // publishing component
	Timestamp time.Time // set by the bus when zero
}

// Handler is the typed handler for events.
type Handler func(ctx context.Context, event Event) error

// Subscription represents an active event subscription.
type Subscription interface {
	Unsubscribe()
}

// Publisher is the side of the bus that components write to.
type Publisher interface {
	// Publish sends an event. Blocks if buffer is full until ctx expires.
	Publish(ctx context.Context, event Event) error
}

// Bus is the single notification mechanism between the core and the
// presentation layer.
type Bus interface {
	Publisher

	// Subscribe registers a handler for a topic. Returns a Subscription for unsubscribing.
	Subscribe(topic string, handler Handler) Subscription

	// Close drains pending events and waits for in-flight handlers to complete.
	Close() error
}

// ImageInfo describes an image that was loaded or written.
type ImageInfo struct {
	Path   string
	Width  int
	Height int
	Size   int64
	Format string
	Mode   string
}

// Preview is the payload of ImagePreviewed.
type Preview struct {
	Seq           uint64
	Width         int
	Height        int
	Format        string
	EstimatedSize int64
}

// Failure is the payload of ImageLoadFailed and ImageSaveFailed.
type Failure struct {
	Path string
	Err  error
}
