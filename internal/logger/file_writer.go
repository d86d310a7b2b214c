package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultBufferSize batches file writes
	DefaultBufferSize = 32 * 1024

	// DefaultFlushInterval is how often buffered log lines reach the OS
	DefaultFlushInterval = 5 * time.Second

	logFilePermissions = 0o600
	logDirPermissions  = 0o700
)

// BufferedFileWriter is a goroutine-safe buffered log file writer with periodic flushing.
type BufferedFileWriter struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	path     string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	closed   bool
}

// NewBufferedFileWriter opens path for appending. A flushInterval of zero
// disables the background flusher; callers then rely on Flush and Close.
func NewBufferedFileWriter(path string, flushInterval time.Duration) (*BufferedFileWriter, error) {
	if err := ensureFileDirectory(path); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w := &BufferedFileWriter{
		file:     file,
		writer:   bufio.NewWriterSize(file, DefaultBufferSize),
		path:     path,
		interval: flushInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if flushInterval > 0 {
		go w.flushLoop()
	} else {
		close(w.done)
	}

	return w, nil
}

func (w *BufferedFileWriter) flushLoop() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = w.Flush()
		case <-w.stop:
			return
		}
	}
}

// Write implements io.Writer
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, os.ErrClosed
	}
	return w.writer.Write(p)
}

// Flush pushes buffered data to the file
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	return w.writer.Flush()
}

// Close stops the flusher, flushes, syncs and closes the file. Safe to call twice.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if w.interval > 0 {
		close(w.stop)
	}
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to flush log file %s: %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to sync log file %s: %w", w.path, err)
	}
	return w.file.Close()
}

// Path returns the file path being written
func (w *BufferedFileWriter) Path() string {
	return w.path
}

// ensureFileDirectory creates the parent directory of filePath if needed
func ensureFileDirectory(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, logDirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
