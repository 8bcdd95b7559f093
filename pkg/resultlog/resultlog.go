package resultlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/report"
	"github.com/projectdiscovery/utils/batcher"
	envutil "github.com/projectdiscovery/utils/env"
)

const (
	batchSizeEnv     = "NETDIAG_RESULT_BATCH_SIZE"
	flushIntervalEnv = "NETDIAG_RESULT_FLUSH_INTERVAL"
)

var (
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
)

// GetBatchSize returns the number of entries written per batch
func GetBatchSize() int {
	return positiveEnv(batchSizeEnv, DefaultBatchSize)
}

// GetFlushInterval returns how long a partial batch waits before it is written.
// The variable holds whole seconds.
func GetFlushInterval() time.Duration {
	secs := positiveEnv(flushIntervalEnv, int(DefaultFlushInterval/time.Second))
	return time.Duration(secs) * time.Second
}

// positiveEnv reads a positive integer from the environment, falling back to def
func positiveEnv(name string, def int) int {
	val, err := strconv.Atoi(envutil.GetEnvOrDefault(name, ""))
	if err != nil || val <= 0 {
		return def
	}
	return val
}

// Writer streams session entries to a JSON lines file in batches
type Writer struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	out     *bufio.Writer
	batcher *batcher.Batcher[report.Entry]
	written int
}

// NewWriter creates (or truncates) path and starts the batcher
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create result log: %w", err)
	}

	w := &Writer{path: path, file: file, out: bufio.NewWriter(file)}
	w.batcher = batcher.New(
		batcher.WithMaxCapacity[report.Entry](GetBatchSize()),
		batcher.WithFlushInterval[report.Entry](GetFlushInterval()),
		batcher.WithFlushCallback[report.Entry](w.flush),
	)

	// Start the batcher
	go w.batcher.Run()

	return w, nil
}

// Append queues an entry for writing
func (w *Writer) Append(entry report.Entry) {
	w.batcher.Append(entry)
}

// Close flushes queued entries and closes the file
func (w *Writer) Close() error {
	w.batcher.Stop()
	w.batcher.WaitDone()

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.out.Flush(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to flush result log: %w", err)
	}
	return w.file.Close()
}

// Written returns the number of entries written to disk so far
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *Writer) flush(entries []report.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	encoder := json.NewEncoder(w.out)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			slog.Error("Failed to write result log entry",
				"path", w.path,
				"session_id", entry.SessionID,
				"error", err)
			continue
		}
		w.written++
	}
	if err := w.out.Flush(); err != nil {
		slog.Error("Failed to flush result log",
			"path", w.path,
			"entry_count", len(entries),
			"error", err)
		return
	}
	slog.Debug("Wrote result log batch",
		"path", w.path,
		"entry_count", len(entries))
}
