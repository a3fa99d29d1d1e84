package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/vesselworks/vesseltrace/pkg/config"
)

// localWriter writes reports to a local directory.
type localWriter struct {
	log logrus.FieldLogger
	dir string
}

// Compile-time interface check.
var _ Writer = (*localWriter)(nil)

// NewLocalWriter creates a Writer backed by a local directory.
func NewLocalWriter(
	log logrus.FieldLogger,
	cfg *config.LocalExportConfig,
) Writer {
	return &localWriter{
		log: log.WithField("component", "local-writer"),
		dir: cfg.Dir,
	}
}

// Preflight creates the target directory if needed and verifies it is
// writable.
func (w *localWriter) Preflight(_ context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	probe := filepath.Join(w.dir, ".write-test")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("writing test file to %s: %w", w.dir, err)
	}

	return os.Remove(probe)
}

// WriteReport writes a report file into the export directory.
func (w *localWriter) WriteReport(
	_ context.Context, name string, data []byte,
) error {
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	w.log.WithField("path", path).Debug("Report written")

	return nil
}
