// Logger backends: slog-based (default), append-only file with async
// buffering, and a no-op used when auditing is disabled.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"waterflow/pkg/logger"
)

// SlogLogger writes audit entries through the application logger,
// one structured record per entry.
type SlogLogger struct {
	config *Config
}

// NewSlogLogger creates a logger backed by the shared slog instance.
func NewSlogLogger(cfg *Config) *SlogLogger {
	return &SlogLogger{config: cfg}
}

func (l *SlogLogger) Log(_ context.Context, entry *Entry) error {
	if !l.config.Enabled {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	logger.Log.Info("audit",
		"action", string(entry.Action),
		"outcome", string(entry.Outcome),
		"entry", json.RawMessage(data),
	)
	return nil
}

func (l *SlogLogger) Close() error {
	return nil
}

// FileLogger appends JSON-line audit entries to a file. Writes go through
// a buffered channel so request handlers never block on disk I/O; a
// background goroutine drains the channel and flushes periodically.
type FileLogger struct {
	config *Config
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	buffer chan *Entry
	done   chan struct{}
}

// NewFileLogger opens (or creates) the audit file and starts the writer loop.
func NewFileLogger(cfg *Config) (*FileLogger, error) {
	if cfg.FilePath == "" {
		cfg.FilePath = "audit.log"
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	l := &FileLogger{
		config: cfg,
		file:   file,
		writer: bufio.NewWriter(file),
		buffer: make(chan *Entry, bufferSize),
		done:   make(chan struct{}),
	}

	go l.processLoop()

	return l, nil
}

// Log queues the entry for asynchronous writing. When the buffer is full
// the entry is written synchronously instead of being dropped.
func (l *FileLogger) Log(_ context.Context, entry *Entry) error {
	if !l.config.Enabled {
		return nil
	}

	select {
	case l.buffer <- entry:
		return nil
	default:
		return l.writeEntry(entry)
	}
}

// Close stops the writer loop, drains the buffer, and closes the file.
func (l *FileLogger) Close() error {
	close(l.done)

	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		select {
		case entry := <-l.buffer:
			if err := l.writeEntryUnsafe(entry); err != nil {
				logger.Log.Warn("Failed to write audit entry during shutdown", "error", err)
			}
		default:
			if err := l.writer.Flush(); err != nil {
				logger.Log.Warn("Failed to flush audit writer", "error", err)
			}
			return l.file.Close()
		}
	}
}

func (l *FileLogger) processLoop() {
	flushPeriod := l.config.FlushPeriod
	if flushPeriod <= 0 {
		flushPeriod = 5 * time.Second
	}

	ticker := time.NewTicker(flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case entry := <-l.buffer:
			if err := l.writeEntry(entry); err != nil {
				logger.Log.Warn("Failed to write audit entry", "error", err)
			}
		case <-ticker.C:
			l.flush()
		}
	}
}

func (l *FileLogger) writeEntry(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeEntryUnsafe(entry)
}

// writeEntryUnsafe assumes the caller holds l.mu.
func (l *FileLogger) writeEntryUnsafe(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = l.writer.Write(append(data, '\n'))
	return err
}

func (l *FileLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		logger.Log.Warn("Failed to flush audit writer", "error", err)
	}
}

// New returns a Logger for the configured backend. A nil config gets
// defaults; a disabled config gets a NoopLogger.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if !cfg.Enabled {
		return &NoopLogger{}, nil
	}

	switch cfg.Backend {
	case "file":
		return NewFileLogger(cfg)
	case "log", "":
		return NewSlogLogger(cfg), nil
	default:
		logger.Log.Warn("Unknown audit backend, using log", "backend", cfg.Backend)
		return NewSlogLogger(cfg), nil
	}
}

// NoopLogger discards all entries.
type NoopLogger struct{}

func (l *NoopLogger) Log(_ context.Context, _ *Entry) error { return nil }

func (l *NoopLogger) Close() error { return nil }

var (
	globalLogger Logger = &NoopLogger{}
	globalMu     sync.RWMutex
)

// SetGlobal installs the process-wide audit logger.
func SetGlobal(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Get returns the process-wide audit logger.
func Get() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Log records an entry using the process-wide audit logger.
func Log(ctx context.Context, entry *Entry) error {
	return Get().Log(ctx, entry)
}
