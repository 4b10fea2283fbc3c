package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gramodaya/internal/metrics"
	"gramodaya/internal/metrics/datadog"
	"gramodaya/internal/parser/csv"
	"gramodaya/internal/report"
	"gramodaya/internal/storage"
	"gramodaya/internal/table"
	"gramodaya/internal/transformer"
)

// Runner wires a full cleaning run: load sources, hash PII, dedupe, merge,
// write reports, export.
//
// The function fields are factory seams; production uses NewDefaultRunner,
// tests swap in fakes.
type Runner struct {
	// Out receives log output (alongside the audit log file when configured).
	// Defaults to os.Stderr.
	Out io.Writer

	Open        func(path string) (io.ReadCloser, error)
	NewExporter func(ctx context.Context, cfg storage.Config) (storage.Exporter, error)
	NewMetrics  func(ctx context.Context, cfg MetricsConfig) (metrics.Backend, func() error, error)
}

func NewDefaultRunner() *Runner {
	return &Runner{
		Out: os.Stderr,
		Open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
		NewExporter: storage.New,
		NewMetrics:  newMetricsBackend,
	}
}

func newMetricsBackend(ctx context.Context, cfg MetricsConfig) (metrics.Backend, func() error, error) {
	if cfg.Kind == "" {
		return metrics.Nop{}, func() error { return nil }, nil
	}
	b, err := datadog.NewBackend(ctx, datadog.Options{
		JobName:    cfg.Job,
		Tags:       datadog.ParseTagsCSV(cfg.Tags),
		FlushEvery: time.Duration(cfg.FlushSeconds) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	return b, b.Close, nil
}

// Run executes one cleaning run end to end.
func (r *Runner) Run(ctx context.Context, cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	out := r.Out
	if out == nil {
		out = io.Writer(os.Stderr)
	}

	// The audit log file is recreated per run and receives the same lines as
	// the primary log destination.
	if cfg.Output.AuditLog != "" {
		path := cfg.Output.path(cfg.Output.AuditLog)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		defer f.Close()
		out = io.MultiWriter(out, f)
	}

	logger := log.New(out, "", log.LstdFlags)
	runID := uuid.NewString()
	logger.Printf("run=%s job=%s sources=%d", runID, cfg.Job, len(cfg.Sources))

	m, closeMetrics, err := r.NewMetrics(ctx, cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer func() {
		if err := closeMetrics(); err != nil {
			logger.Printf("metrics close: %v", err)
		}
	}()

	reg, reports, err := r.loadAndClean(ctx, cfg, logger, m)
	if err != nil {
		return err
	}

	p := &Pipeline{
		Registry:       reg,
		Logger:         logger,
		Metrics:        m,
		ReshapeWorkers: cfg.Runtime.ReshapeWorkers,
	}
	merged, warnings, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Output.MergedCSV != "" {
		path := cfg.Output.path(cfg.Output.MergedCSV)
		if err := report.WriteCSV(merged, path); err != nil {
			return err
		}
		logger.Printf("wrote %s rows=%d", path, merged.NumRows())
	}

	if cfg.Output.Reports {
		// Per-source duplicate-key reports share one layout (source + the
		// configured key fields + occurrences) and fold into a single file.
		// Duplicate-row and missing-department reports keep each source's own
		// column layout, so they are written one file per source.
		dupKeys, err := report.Concat("duplicate_keys", reports.dupKeys...)
		if err != nil {
			return err
		}

		toWrite := []struct {
			file string
			t    *table.Table
		}{
			{"missingness_report.csv", report.Missingness(merged)},
			{"duplicate_key_report.csv", dupKeys},
			{"dropped_keys_report.csv", report.DroppedKeys(warnings)},
		}
		for _, t := range reports.dupRows {
			toWrite = append(toWrite, struct {
				file string
				t    *table.Table
			}{t.Name + ".csv", t})
		}
		for _, t := range reports.missingDept {
			toWrite = append(toWrite, struct {
				file string
				t    *table.Table
			}{t.Name + ".csv", t})
		}

		for _, w := range toWrite {
			if w.t == nil {
				continue
			}
			path := cfg.Output.path(w.file)
			if err := report.WriteCSV(w.t, path); err != nil {
				return err
			}
			logger.Printf("wrote %s rows=%d", path, w.t.NumRows())
		}
	}

	if cfg.Storage.Kind != "" {
		if err := r.export(ctx, cfg, merged, logger); err != nil {
			return err
		}
	}

	logger.Printf("run=%s done rows=%d warnings=%d", runID, merged.NumRows(), len(warnings))
	return nil
}

// sourceReports accumulates the per-source audit tables produced while
// loading and cleaning.
type sourceReports struct {
	dupRows     []*table.Table
	dupKeys     []*table.Table
	missingDept []*table.Table
}

// loadAndClean reads every configured source and applies the per-source
// cleaning steps in order: hash PII, dedupe rows, report duplicated keys,
// then split combined exports by department.
func (r *Runner) loadAndClean(ctx context.Context, cfg Config, logger Logger, m metrics.Backend) (*table.Registry, *sourceReports, error) {
	opt := cfg.Parser.options()
	hash := transformer.PIIHash{Fields: cfg.Clean.PIIFields}

	reg := table.NewRegistry()
	reports := &sourceReports{}

	for _, src := range cfg.Sources {
		start := time.Now()
		f, err := r.Open(src.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("source %s: %w", src.Label, err)
		}
		t, err := csv.ReadTable(ctx, f, src.Label, opt)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		m.IncCounter(metrics.CounterRowsTotal, float64(t.NumRows()), metrics.Labels{"kind": "loaded", "source": src.Label})

		if hashed := hash.Apply(t); hashed > 0 {
			logger.Printf("source=%s pii_cells_hashed=%d", src.Label, hashed)
		}

		if cfg.Clean.DedupeRows {
			clean, dup := transformer.DedupeRows(t)
			if dup != nil {
				logger.Printf("source=%s duplicate_rows=%d", src.Label, dup.NumRows())
				reports.dupRows = append(reports.dupRows, dup)
			}
			t = clean
		}

		if fields := cfg.Clean.KeyReportFields; len(fields) > 0 && hasAll(t, fields) {
			rep, err := transformer.KeyUniquenessReport(t, fields)
			if err != nil {
				return nil, nil, err
			}
			if rep != nil {
				logger.Printf("source=%s duplicate_keys=%d", src.Label, rep.NumRows())
				reports.dupKeys = append(reports.dupKeys, rep)
			}
		}

		if src.SplitColumn != "" {
			parts, missing, err := transformer.SplitByColumn(t, src.SplitColumn)
			if err != nil {
				return nil, nil, err
			}
			if missing != nil {
				logger.Printf("source=%s missing_department_rows=%d", src.Label, missing.NumRows())
				reports.missingDept = append(reports.missingDept, missing)
			}
			for _, part := range parts {
				if err := reg.Add(part.Name, part); err != nil {
					return nil, nil, err
				}
				logger.Printf("stage=split source=%s department=%s rows=%d", src.Label, part.Name, part.NumRows())
			}
		} else {
			if err := reg.Add(src.Label, t); err != nil {
				return nil, nil, err
			}
		}
		logger.Printf("stage=load source=%s rows=%d columns=%d duration=%s",
			src.Label, t.NumRows(), len(t.Columns), durMS(start))
	}
	return reg, reports, nil
}

func (r *Runner) export(ctx context.Context, cfg Config, merged *table.Table, logger Logger) error {
	start := time.Now()
	e, err := r.NewExporter(ctx, storage.Config{
		Kind: cfg.Storage.Kind,
		DSN:  os.ExpandEnv(cfg.Storage.DSN),
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer e.Close()

	name := cfg.Storage.Table
	if name == "" {
		name = "clean_data"
	}
	n, err := storage.Export(ctx, e, name, merged)
	if err != nil {
		return err
	}
	logger.Printf("stage=export kind=%s table=%s rows=%d duration=%s",
		cfg.Storage.Kind, name, n, durMS(start))
	return nil
}

func hasAll(t *table.Table, columns []string) bool {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return false
		}
	}
	return true
}
