package pipeline

import (
	"fmt"
	"path/filepath"

	"gramodaya/internal/parser/csv"
)

// Config is the user-provided JSON pipeline config parsed by cmd/gramodaya.
type Config struct {
	Job     string         `json:"job"`
	Sources []SourceConfig `json:"sources"`
	Parser  ParserConfig   `json:"parser"`
	Clean   CleanConfig    `json:"clean"`
	Output  OutputConfig   `json:"output"`
	Storage StorageConfig  `json:"storage"`
	Runtime RuntimeConfig  `json:"runtime"`
	Metrics MetricsConfig  `json:"metrics"`
}

// SourceConfig declares one CSV export. Label order in the config is the
// merge fold order.
type SourceConfig struct {
	Label string `json:"label"`
	Path  string `json:"path"`

	// SplitColumn marks this source as a combined multi-department export:
	// after cleaning it is partitioned into one table per distinct value of
	// this column, each registered under that value as its label. Rows
	// without a department land in the missing-departments report.
	SplitColumn string `json:"split_column"`
}

type ParserConfig struct {
	// Comma is the field delimiter as a one-rune string. Empty means ','.
	Comma string `json:"comma"`

	LazyQuotes bool `json:"lazy_quotes"`

	// NullValues override the default null sentinels when non-nil.
	NullValues []string `json:"null_values"`

	// HeaderMap renames normalized source headers to canonical field names.
	HeaderMap map[string]string `json:"header_map"`
}

func (p ParserConfig) options() csv.Options {
	opt := csv.DefaultOptions()
	if p.Comma != "" {
		opt.Comma = []rune(p.Comma)[0]
	}
	opt.LazyQuotes = p.LazyQuotes
	if p.NullValues != nil {
		opt.NullValues = p.NullValues
	}
	opt.HeaderMap = p.HeaderMap
	return opt
}

type CleanConfig struct {
	// PIIFields are hashed in place (SHA-256, lowercase hex) in every source
	// that carries them.
	PIIFields []string `json:"pii_fields"`

	// DedupeRows drops exact duplicate rows per source, keeping the first
	// occurrence.
	DedupeRows bool `json:"dedupe_rows"`

	// KeyReportFields produce a per-source duplicated-key report (e.g.
	// ["ben_id"]). Sources missing a listed column are skipped.
	KeyReportFields []string `json:"key_report_fields"`
}

// OutputConfig names the run's file outputs, all relative to Dir.
type OutputConfig struct {
	Dir string `json:"dir"`

	// MergedCSV is the cleaned unified table. Empty skips the file.
	MergedCSV string `json:"merged_csv"`

	// AuditLog is the append-only processing log, recreated per run. Empty
	// disables it.
	AuditLog string `json:"audit_log"`

	// Reports enables the diagnostic CSVs (missingness, duplicate rows,
	// duplicate keys, dropped keys) under Dir.
	Reports bool `json:"reports"`
}

func (o OutputConfig) path(name string) string {
	if o.Dir == "" {
		return name
	}
	return filepath.Join(o.Dir, name)
}

type StorageConfig struct {
	// Kind is the exporter backend: "sqlite" | "postgres" | "mssql".
	// Empty disables storage export.
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`

	// Table is the destination table name. Defaults to "clean_data".
	Table string `json:"table"`
}

type RuntimeConfig struct {
	// ReshapeWorkers bounds concurrent reshapes. <=1 means sequential.
	ReshapeWorkers int `json:"reshape_workers"`
}

type MetricsConfig struct {
	// Kind is "datadog" or empty (metrics disabled).
	Kind string `json:"kind"`

	Job string `json:"job"`

	// Tags is a comma-separated tag list, e.g. "env:prod,team:gramodaya".
	Tags string `json:"tags"`

	FlushSeconds int `json:"flush_seconds"`
}

func validateConfig(cfg Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("sources must not be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Sources))
	for i, s := range cfg.Sources {
		if s.Label == "" {
			return fmt.Errorf("sources[%d].label is required", i)
		}
		if s.Path == "" {
			return fmt.Errorf("sources[%d].path is required", i)
		}
		if _, dup := seen[s.Label]; dup {
			return fmt.Errorf("sources[%d].label %q is duplicated", i, s.Label)
		}
		seen[s.Label] = struct{}{}
	}
	if cfg.Storage.Kind != "" && cfg.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required when storage.kind is set")
	}
	switch cfg.Metrics.Kind {
	case "", "datadog":
	default:
		return fmt.Errorf("metrics.kind %q is not supported", cfg.Metrics.Kind)
	}
	return nil
}
