package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// stderr is the terminal sink; tests swap it out.
var stderr io.Writer = os.Stderr

// levelWriter writes one level to <Director>/<date>/<level>.log, rotated by lumberjack.
type levelWriter struct {
	config  Config
	level   string
	mu      sync.Mutex
	date    string
	current *lumberjack.Logger
}

func newLevelWriter(config Config, level string) *levelWriter {
	return &levelWriter{
		config: config,
		level:  level,
	}
}

// Write implements io.Writer.
func (w *levelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	date := time.Now().Format("2006-01-02")
	if w.current == nil || w.date != date {
		w.rotateTo(date)
	}
	return w.current.Write(p)
}

// Sync implements zapcore.WriteSyncer. lumberjack writes straight to the file.
func (w *levelWriter) Sync() error {
	return nil
}

// rotateTo closes the previous day's file and opens a writer for date.
// Callers hold w.mu.
func (w *levelWriter) rotateTo(date string) {
	if w.current != nil {
		_ = w.current.Close()
	}

	dirPath := filepath.Join(w.config.Director, date)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		dirPath = w.config.Director
		_ = os.MkdirAll(dirPath, 0755)
	}

	w.date = date
	w.current = &lumberjack.Logger{
		Filename:   filepath.Join(dirPath, w.level+".log"),
		MaxSize:    w.config.MaxSize,
		MaxBackups: w.config.MaxBackups,
		MaxAge:     w.config.MaxAge,
		Compress:   w.config.Compress,
		LocalTime:  true,
	}
}

// Close closes the open file, if any.
func (w *levelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	return err
}

var (
	writerRegistry   []*levelWriter
	writerRegistryMu sync.Mutex
)

// getWriteSyncer creates a file WriteSyncer for level and registers it for CloseAllWriters.
func getWriteSyncer(config Config, level string) zapcore.WriteSyncer {
	w := newLevelWriter(config, level)

	writerRegistryMu.Lock()
	writerRegistry = append(writerRegistry, w)
	writerRegistryMu.Unlock()

	return w
}

// CloseAllWriters closes every log file opened by this package.
func CloseAllWriters() error {
	writerRegistryMu.Lock()
	defer writerRegistryMu.Unlock()

	var lastErr error
	for _, w := range writerRegistry {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	writerRegistry = nil
	return lastErr
}

var _ io.WriteCloser = (*levelWriter)(nil)
