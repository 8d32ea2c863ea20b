// Package session holds the single-image editing state: the loaded
// source, the last transformed output and the load/preview/save actions.
package session

import (
	"bytes"
	"context"
	"image"
	"sync"

	"github.com/leeforge/shrink/errors"
	"github.com/leeforge/shrink/event"
	"github.com/leeforge/shrink/logging"
	"github.com/leeforge/shrink/media/processor"
	"github.com/leeforge/shrink/media/storage"
	"github.com/leeforge/shrink/utils"
	"go.uber.org/zap"
)

// State is the session lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	// StateSaved is a Loaded state whose source came from the last save.
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateSaved:
		return "saved"
	default:
		return "empty"
	}
}

// IsLoaded reports whether a source image is present.
func (s State) IsLoaded() bool {
	return s != StateEmpty
}

// PreviewResult is what the preview pane shows.
type PreviewResult struct {
	Image         image.Image
	Format        processor.Format
	EstimatedSize int64
	Seq           uint64
}

// SaveResult describes a completed save.
type SaveResult struct {
	Path   string
	Format processor.Format
	Size   int64
	// FormatGuessed is set when the path's extension was not recognised
	// and JPEG was written.
	FormatGuessed bool
	// Source is the re-opened output, now the session's source.
	Source *processor.SourceImage
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Converter *processor.Converter
	Storage   storage.Provider
	Decode    processor.DecodeOptions
	Events    event.Publisher
	Logger    logging.Logger
}

// Session is an EditSession. All actions are serialized.
type Session struct {
	mu sync.Mutex

	state  State
	source *processor.SourceImage
	output image.Image
	seq    uint64

	converter *processor.Converter
	storage   storage.Provider
	decode    processor.DecodeOptions
	events    event.Publisher
	logger    logging.Logger
}

// New creates an empty session.
func New(opts Options) *Session {
	if opts.Converter == nil {
		opts.Converter = processor.NewConverter(nil)
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewLocalProvider(0)
	}
	return &Session{
		converter: opts.Converter,
		storage:   opts.Storage,
		decode:    opts.Decode,
		events:    opts.Events,
		logger:    logging.OrNop(opts.Logger).Named("session"),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Source returns the loaded image, or nil in the Empty state.
func (s *Session) Source() *processor.SourceImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Output returns the last transformed image, or nil.
func (s *Session) Output() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Load decodes the file at path and makes it the source. On failure the
// session is left exactly as it was.
func (s *Session) Load(ctx context.Context, path string) (*processor.SourceImage, error) {
	ctx = logging.WithAction(ctx, "load")
	log := logging.FromContext(ctx, s.logger).With(zap.String("path", path))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewDecode(path, err)
	}

	src, err := processor.DecodeFile(path, s.decode)
	if err != nil {
		log.Warn("load failed", zap.Error(err))
		s.publish(ctx, event.ImageLoadFailed, event.Failure{Path: path, Err: err})
		return nil, err
	}

	s.source = src
	s.output = nil
	s.state = StateLoaded

	log.Info("image loaded",
		zap.Int("width", src.Width()),
		zap.Int("height", src.Height()),
		zap.String("mode", src.Mode.String()),
		zap.String("size", utils.HumanSize(src.Size)))
	s.publish(ctx, event.ImageLoaded, imageInfo(src))
	return src, nil
}

// Preview resizes the source and encodes it in memory in its natural
// format to estimate the output size. Nothing is written to disk.
func (s *Session) Preview(ctx context.Context, params processor.Parameters) (*PreviewResult, error) {
	ctx = logging.WithAction(ctx, "preview")
	log := logging.FromContext(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsLoaded() {
		return nil, errors.NewNotLoaded()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapWithType(err, errors.ErrorTypeInternal, "preview cancelled")
	}

	resized, err := processor.Resize(s.source.Image, params.MaxWidth)
	if err != nil {
		return nil, err
	}
	format := processor.ChooseDefaultFormat(resized)
	encoded, err := s.converter.Encode(resized, format, params.Quality)
	if err != nil {
		return nil, err
	}

	s.output = resized
	s.seq++

	b := resized.Bounds()
	result := &PreviewResult{
		Image:         resized,
		Format:        format,
		EstimatedSize: encoded.Len(),
		Seq:           s.seq,
	}
	log.Debug("preview ready",
		zap.Uint64("seq", result.Seq),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
		zap.String("format", format.String()),
		zap.String("estimated", utils.HumanSize(result.EstimatedSize)))
	s.publish(ctx, event.ImagePreviewed, event.Preview{
		Seq:           result.Seq,
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        format.String(),
		EstimatedSize: result.EstimatedSize,
	})
	return result, nil
}

// SaveAs transforms the source with params and writes it to path. The
// format follows the extension of path; unknown extensions are written as
// JPEG. The written file is then re-opened and becomes the new source, so
// further edits start from what is on disk.
func (s *Session) SaveAs(ctx context.Context, path string, params processor.Parameters) (*SaveResult, error) {
	ctx = logging.WithAction(ctx, "save")
	log := logging.FromContext(ctx, s.logger).With(zap.String("path", path))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsLoaded() {
		return nil, errors.NewNotLoaded()
	}

	result, err := s.save(ctx, path, params)
	if err != nil {
		log.Warn("save failed", zap.Error(err))
		s.publish(ctx, event.ImageSaveFailed, event.Failure{Path: path, Err: err})
		return nil, err
	}

	log.Info("image saved",
		zap.String("format", result.Format.String()),
		zap.String("size", utils.HumanSize(result.Size)),
		zap.Float64("savings_pct", utils.Savings(s.source.Size, result.Size)))

	s.source = result.Source
	s.output = nil
	s.state = StateSaved
	s.publish(ctx, event.ImageSaved, imageInfo(result.Source))
	return result, nil
}

func (s *Session) save(ctx context.Context, path string, params processor.Parameters) (*SaveResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	resized, err := processor.Resize(s.source.Image, params.MaxWidth)
	if err != nil {
		return nil, err
	}
	format, known := processor.FormatFromPath(path)
	encoded, err := s.converter.Encode(resized, format, params.Quality)
	if err != nil {
		return nil, err
	}

	n, err := s.storage.Write(ctx, path, bytes.NewReader(encoded.Data))
	if err != nil {
		return nil, err
	}

	// The write stands even if reading it back fails.
	reopened, err := processor.DecodeFile(path, s.decode)
	if err != nil {
		return nil, err
	}

	return &SaveResult{
		Path:          path,
		Format:        format,
		Size:          n,
		FormatGuessed: !known,
		Source:        reopened,
	}, nil
}

// Reset discards the source and output unconditionally.
func (s *Session) Reset() {
	s.mu.Lock()
	s.state = StateEmpty
	s.source = nil
	s.output = nil
	s.mu.Unlock()

	s.logger.Debug("session reset")
	s.publish(context.Background(), event.SessionReset, nil)
}

func (s *Session) publish(ctx context.Context, name string, data any) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(context.WithoutCancel(ctx), event.Event{
		Name:   name,
		Data:   data,
		Source: "session",
	})
	if err != nil {
		s.logger.Warn("publish event failed", zap.String("event", name), zap.Error(err))
	}
}

func imageInfo(src *processor.SourceImage) event.ImageInfo {
	return event.ImageInfo{
		Path:   src.Path,
		Width:  src.Width(),
		Height: src.Height(),
		Size:   src.Size,
		Format: src.Format,
		Mode:   src.Mode.String(),
	}
}
