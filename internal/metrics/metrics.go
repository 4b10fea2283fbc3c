// Package metrics defines the minimal metrics surface the pipeline depends
// on. Concrete backends (Datadog, or a no-op) live in subpackages or satisfy
// the interface from the outside; the core never imports a vendor SDK.
package metrics

// Labels are free-form metric tags (e.g. {"stage": "reshape"}).
type Labels map[string]string

// Backend receives counter increments and histogram samples. Implementations
// must be safe for concurrent use; the pipeline reports from worker
// goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Metric names emitted by the pipeline. Backends may translate these to their
// own naming scheme; unknown names should be ignored, not rejected.
const (
	CounterStageTotal  = "gramodaya_stage_total"
	CounterRowsTotal   = "gramodaya_rows_total"
	CounterKeysDropped = "gramodaya_keys_dropped_total"

	HistStageDurationSeconds = "gramodaya_stage_duration_seconds"
)

// Nop discards all metrics. Used when no metrics backend is configured.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}

var _ Backend = Nop{}
