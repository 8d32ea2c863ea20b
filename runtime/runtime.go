package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leeforge/shrink/config"
	"github.com/leeforge/shrink/event"
	"github.com/leeforge/shrink/logging"
	"github.com/leeforge/shrink/media/processor"
	"github.com/leeforge/shrink/media/queue"
	"github.com/leeforge/shrink/media/session"
	"github.com/leeforge/shrink/media/storage"
	"github.com/leeforge/shrink/metrics"
	"go.uber.org/zap"
)

const defaultEventBuffer = 64

// Options holds what the presentation layer supplies to NewRuntime.
type Options struct {
	// Logger overrides the logger built from the logging config.
	Logger logging.Logger
	// OnPreview receives the newest preview from the background queue.
	OnPreview   func(queue.Outcome)
	EventBuffer int // default 64
}

// Runtime wires the editing core together from an AppConfig.
type Runtime struct {
	config atomic.Pointer[config.AppConfig]
	logger logging.Logger

	bus       event.Bus
	storage   storage.Provider
	converter *processor.Converter
	session   *session.Session
	previews  *queue.PreviewQueue
	metrics   *metrics.Collector

	closeOnce sync.Once
	closeErr  error
}

// NewRuntime builds every component and starts the preview worker.
func NewRuntime(cfg *config.AppConfig, opts Options) (*Runtime, error) {
	if cfg == nil {
		defaults := config.DefaultAppConfig()
		cfg = &defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	bg, err := cfg.Editor.BackgroundColor()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewProvider(cfg.Storage)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Init(cfg.Logging)
	}

	bus := newEventBus(opts.EventBuffer, logger)
	collector := metrics.NewCollector()
	collector.Watch(bus)

	converter := processor.NewConverter(bg)
	sess := session.New(session.Options{
		Converter: converter,
		Storage:   store,
		Decode:    processor.DecodeOptions{AutoOrient: cfg.Editor.AutoOrient},
		Events:    bus,
		Logger:    logger,
	})
	previews := queue.NewPreviewQueue(sess, queue.Options{
		Buffer:   cfg.Editor.PreviewBuffer,
		OnResult: opts.OnPreview,
		Logger:   logger,
	})
	previews.Start()

	logger.Info("runtime ready",
		zap.String("storage", store.Name()),
		zap.Int("quality", cfg.Editor.Quality),
		zap.Int("max_width", cfg.Editor.MaxWidth),
		zap.Bool("auto_orient", cfg.Editor.AutoOrient))

	r := &Runtime{
		logger:    logger,
		bus:       bus,
		storage:   store,
		converter: converter,
		session:   sess,
		previews:  previews,
		metrics:   collector,
	}
	own := *cfg
	r.config.Store(&own)
	return r, nil
}

// ApplyConfig swaps in a reloaded configuration. Only the editor slider
// defaults take effect on a running runtime; the rest applies on restart.
func (r *Runtime) ApplyConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("invalid config: nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	own := *cfg
	r.config.Store(&own)
	r.logger.Info("config applied",
		zap.Int("quality", own.Editor.Quality),
		zap.Int("max_width", own.Editor.MaxWidth))
	return nil
}

// Config returns the current configuration snapshot. Callers must not modify it.
func (r *Runtime) Config() *config.AppConfig { return r.config.Load() }
func (r *Runtime) Logger() logging.Logger { return r.logger }
func (r *Runtime) Events() event.Bus { return r.bus }
func (r *Runtime) Storage() storage.Provider { return r.storage }
func (r *Runtime) Converter() *processor.Converter { return r.converter }
func (r *Runtime) Session() *session.Session { return r.session }
func (r *Runtime) Previews() *queue.PreviewQueue { return r.previews }
func (r *Runtime) Metrics() *metrics.Collector { return r.metrics }

// InitialParameters returns the slider positions from the editor config.
func (r *Runtime) InitialParameters() processor.Parameters {
	cfg := r.config.Load()
	return processor.Parameters{
		Quality:  cfg.Editor.Quality,
		MaxWidth: cfg.Editor.MaxWidth,
	}
}

// Publish sends an event on the runtime bus.
func (r *Runtime) Publish(ctx context.Context, e event.Event) error {
	return r.bus.Publish(ctx, e)
}

// Close stops the preview worker, drains the event bus and flushes logs.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		if err := r.previews.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := r.bus.Close(); err != nil {
			errs = append(errs, err)
		}
		r.logger.Info("runtime closed")
		_ = r.logger.Sync()
		if err := logging.CloseAllWriters(); err != nil {
			errs = append(errs, err)
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}
