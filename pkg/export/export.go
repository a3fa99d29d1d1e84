// Package export renders per-asset history reports and writes them to
// the configured destinations: a local directory, S3-compatible
// storage, or both.
package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vesselworks/vesseltrace/pkg/config"
	"github.com/vesselworks/vesseltrace/pkg/engine"
	"github.com/vesselworks/vesseltrace/pkg/query"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Writer writes one rendered report to a destination.
type Writer interface {
	// Preflight verifies the destination is reachable and writable.
	// Fails fast on misconfiguration before any report is rendered.
	Preflight(ctx context.Context) error

	// WriteReport writes a single report under the given file name.
	WriteReport(ctx context.Context, name string, data []byte) error
}

// Exporter renders TankHistory reports through the engine and fans
// them out to every configured writer.
type Exporter struct {
	log         logrus.FieldLogger
	engine      *engine.Engine
	writers     []Writer
	concurrency int
}

// NewExporter builds an exporter from the export configuration.
func NewExporter(
	log logrus.FieldLogger,
	eng *engine.Engine,
	cfg *config.ExportConfig,
) (*Exporter, error) {
	e := &Exporter{
		log:         log.WithField("component", "export"),
		engine:      eng,
		concurrency: defaultConcurrency,
	}

	if cfg.Local != nil && cfg.Local.Enabled {
		e.writers = append(e.writers, NewLocalWriter(log, cfg.Local))
	}

	if cfg.S3 != nil && cfg.S3.Enabled {
		w, err := NewS3Writer(log, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("initializing s3 writer: %w", err)
		}

		e.writers = append(e.writers, w)

		if cfg.S3.Concurrency > 0 {
			e.concurrency = cfg.S3.Concurrency
		}
	}

	if len(e.writers) == 0 {
		return nil, fmt.Errorf("no export destination enabled")
	}

	return e, nil
}

// Export renders and writes one report per serial number. An empty
// serial list exports every asset present in the record set. Reports
// are written concurrently under a bounded errgroup.
func (e *Exporter) Export(ctx context.Context, serials []string) error {
	for _, w := range e.writers {
		if err := w.Preflight(ctx); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
	}

	if len(serials) == 0 {
		var err error

		serials, err = e.allSerials(ctx)
		if err != nil {
			return err
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, serial := range serials {
		g.Go(func() error {
			return e.exportOne(gCtx, serial)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	e.log.WithField("assets", len(serials)).Info("Export completed")

	return nil
}

// exportOne renders and writes the report for a single serial number.
func (e *Exporter) exportOne(ctx context.Context, serial string) error {
	h, err := e.engine.GetAssetHistory(ctx, serial)
	if err != nil {
		return fmt.Errorf("building history for %s: %w", serial, err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering report for %s: %w", serial, err)
	}

	name := fmt.Sprintf("history-%s.json", serial)

	for _, w := range e.writers {
		if err := w.WriteReport(ctx, name, data); err != nil {
			return fmt.Errorf("writing report %s: %w", name, err)
		}
	}

	return nil
}

// allSerials collects the distinct asset serial numbers in the record
// set, in first-seen order.
func (e *Exporter) allSerials(ctx context.Context) ([]string, error) {
	tests, err := e.engine.QueryTests(ctx, query.Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing tests: %w", err)
	}

	seen := make(map[string]struct{}, len(tests))
	serials := make([]string, 0, len(tests))

	for _, t := range tests {
		if _, ok := seen[t.Asset.SerialNumber]; ok {
			continue
		}

		seen[t.Asset.SerialNumber] = struct{}{}
		serials = append(serials, t.Asset.SerialNumber)
	}

	return serials, nil
}
