package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
	"github.com/otherjamesbrown/granola-mcp/pkg/observability"
	"github.com/otherjamesbrown/granola-mcp/pkg/partition"
)

// FileResult reports what happened to one output file.
type FileResult struct {
	Day     string `json:"day"`
	Path    string `json:"path"`
	Lines   int    `json:"lines"`
	Changed bool   `json:"changed"`
}

// Writer writes rendered days into a directory.
type Writer struct {
	opts    Options
	logger  logging.Logger
	metrics *observability.Metrics
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets the writer's logger.
func WithLogger(l logging.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = l
	}
}

// WithMetrics sets the writer's metrics.
func WithMetrics(m *observability.Metrics) WriterOption {
	return func(w *Writer) {
		w.metrics = m
	}
}

// NewWriter returns a Writer rendering with opts.
func NewWriter(opts Options, wopts ...WriterOption) *Writer {
	w := &Writer{opts: opts, logger: logging.NewNopLogger()}
	for _, o := range wopts {
		o(w)
	}
	return w
}

// WriteDays writes <dir>/<YYYY-MM-DD>.txt for each day. Files whose content
// is already identical are left untouched and reported unchanged. The first
// failure stops the run; results for files already handled are returned
// with the error.
func (w *Writer) WriteDays(dir string, days []partition.Day) ([]FileResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir %s: %w", dir, err)
	}

	results := make([]FileResult, 0, len(days))
	for _, day := range days {
		path := filepath.Join(dir, FileName(day))
		changed, err := WriteFileIfChanged(path, []byte(Render(day, w.opts)))
		if err != nil {
			return results, err
		}
		w.metrics.RecordExportFile(changed)
		w.logger.Debug("export file written",
			logging.F("path", path),
			logging.F("lines", len(day.Lines)),
			logging.F("changed", changed),
		)
		results = append(results, FileResult{Day: day.Key, Path: path, Lines: len(day.Lines), Changed: changed})
	}
	return results, nil
}

// WriteFileIfChanged replaces path with data unless it already holds exactly
// data. The replacement is atomic: data goes to a temp file in the same
// directory, which is synced and renamed over path. The temp file is removed
// on any failure.
func WriteFileIfChanged(path string, data []byte) (changed bool, err error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("export: read %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return false, fmt.Errorf("export: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return false, fmt.Errorf("export: write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return false, fmt.Errorf("export: sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return false, fmt.Errorf("export: close temp: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, fmt.Errorf("export: chmod temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("export: rename: %w", err)
	}
	return true, nil
}
