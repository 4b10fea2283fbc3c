// Package pipeline drives the cleaning run: register tables, discover keys,
// classify, reshape long tables, fold-merge everything, and hand the unified
// table to downstream collaborators (reports, export).
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gramodaya/internal/merge"
	"gramodaya/internal/metrics"
	"gramodaya/internal/table"
)

// Logger is the minimal logging interface used by the pipeline.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// State tracks the pipeline's position in its linear lifecycle. There is no
// branching back: a failed stage aborts the run.
type State int

const (
	StateEmpty State = iota
	StateTablesLoaded
	StateKeysDiscovered
	StateClassified
	StateReshaped
	StateMerged
	StateDelivered
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateTablesLoaded:
		return "tables_loaded"
	case StateKeysDiscovered:
		return "keys_discovered"
	case StateClassified:
		return "classified"
	case StateReshaped:
		return "reshaped"
	case StateMerged:
		return "merged"
	case StateDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Pipeline merges the tables in Registry into one unified table.
//
// Each transform is a pure function from tables to tables; nothing is shared
// mutably across stages, so the only concurrency is the optional reshape
// worker pool (independent tables reshaped in parallel). The merge fold is
// inherently sequential.
type Pipeline struct {
	Registry *table.Registry
	Logger   Logger
	Metrics  metrics.Backend

	// ReshapeWorkers bounds concurrent reshapes. <=1 means sequential.
	ReshapeWorkers int

	state    State
	keys     []string
	long     []string
	warnings []merge.Warning
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.state }

// Keys returns the discovered KeySet (valid after key discovery).
func (p *Pipeline) Keys() []string { return append([]string(nil), p.keys...) }

func (p *Pipeline) logger() func(format string, v ...any) {
	if p.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return p.Logger.Printf
}

func (p *Pipeline) metrics() metrics.Backend {
	if p.Metrics == nil {
		return metrics.Nop{}
	}
	return p.Metrics
}

// Run executes the full stage sequence and returns the merged table plus the
// accumulated recoverable warnings.
//
// Errors:
//   - *merge.NoCommonKeyError when key discovery finds no shared columns
//     across two or more tables (fatal; no partial merge is produced).
//   - Any reshape or merge error (fatal).
func (p *Pipeline) Run(ctx context.Context) (*table.Table, []merge.Warning, error) {
	if p.Registry == nil {
		return nil, nil, fmt.Errorf("pipeline: Registry is required")
	}
	logf := p.logger()

	p.state = StateTablesLoaded
	logf("stage=tables_loaded tables=%d", p.Registry.Len())

	if err := p.runStage("discover_keys", p.discoverKeys); err != nil {
		return nil, nil, err
	}
	if err := p.runStage("classify", p.classify); err != nil {
		return nil, nil, err
	}
	if err := p.runStage("reshape", func() error { return p.reshapeAll(ctx) }); err != nil {
		return nil, nil, err
	}

	var result *table.Table
	if err := p.runStage("merge", func() error {
		var err error
		result, err = p.mergeAll()
		return err
	}); err != nil {
		return nil, nil, err
	}

	p.state = StateDelivered
	p.metrics().IncCounter(metrics.CounterRowsTotal, float64(result.NumRows()), metrics.Labels{"kind": "merged"})
	logf("stage=delivered rows=%d columns=%d warnings=%d",
		result.NumRows(), len(result.Columns), len(p.warnings))

	return result, p.warnings, nil
}

// runStage wraps a stage with timing logs and stage metrics, mirroring the
// run-level observability of the rest of the toolchain.
func (p *Pipeline) runStage(name string, fn func() error) error {
	logf := p.logger()
	m := p.metrics()

	start := time.Now()
	err := fn()
	dur := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.IncCounter(metrics.CounterStageTotal, 1, metrics.Labels{"stage": name, "status": status})
	m.ObserveHistogram(metrics.HistStageDurationSeconds, dur.Seconds(), metrics.Labels{"stage": name, "status": status})

	if err != nil {
		logf("stage=%s status=error duration=%s err=%v", name, durMS(start), err)
		return err
	}
	logf("stage=%s ok duration=%s", name, durMS(start))
	return nil
}

func (p *Pipeline) discoverKeys() error {
	keys, err := merge.DiscoverKeys(p.Registry.Tables())
	if err != nil {
		return err
	}
	p.keys = keys
	p.state = StateKeysDiscovered
	p.logger()("stage=discover_keys keys=%d key_set=%v", len(keys), keys)
	return nil
}

func (p *Pipeline) classify() error {
	p.long = p.long[:0]
	// Single-table (or empty) runs have an empty KeySet: nothing to classify,
	// the merge stage passes the table through unchanged.
	if len(p.keys) > 0 {
		for _, label := range p.Registry.Labels() {
			t, _ := p.Registry.Get(label)
			long, err := merge.IsLong(t, p.keys)
			if err != nil {
				return err
			}
			if long {
				p.long = append(p.long, label)
			}
		}
	}
	p.state = StateClassified
	p.logger()("stage=classify long=%d wide=%d", len(p.long), p.Registry.Len()-len(p.long))
	return nil
}

// reshapeAll pivots every long table to wide form. Tables are independent, so
// reshapes run on a bounded worker pool; wide tables pass through untouched.
func (p *Pipeline) reshapeAll(ctx context.Context) error {
	defer func() { p.state = StateReshaped }()
	if len(p.long) == 0 {
		return nil
	}

	workers := p.ReshapeWorkers
	if workers <= 1 || len(p.long) == 1 {
		for _, label := range p.long {
			t, _ := p.Registry.Get(label)
			wide, err := merge.Reshape(t, p.keys)
			if err != nil {
				return err
			}
			if err := p.Registry.Replace(label, wide); err != nil {
				return err
			}
		}
		return nil
	}
	if workers > len(p.long) {
		workers = len(p.long)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	errCh := make(chan error, 1)
	setErr := func(err error) {
		if err == nil {
			return
		}
		select {
		case errCh <- err:
			cancel(err)
		default:
			// First error wins.
		}
	}

	type reshaped struct {
		label string
		wide  *table.Table
	}

	labelCh := make(chan string)
	outCh := make(chan reshaped, len(p.long))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for label := range labelCh {
				select {
				case <-ctx.Done():
					continue
				default:
				}
				t, _ := p.Registry.Get(label)
				wide, err := merge.Reshape(t, p.keys)
				if err != nil {
					setErr(err)
					continue
				}
				outCh <- reshaped{label: label, wide: wide}
			}
		}()
	}

	for _, label := range p.long {
		select {
		case labelCh <- label:
		case <-ctx.Done():
		}
	}
	close(labelCh)
	wg.Wait()
	close(outCh)

	select {
	case err := <-errCh:
		return err
	default:
	}

	// Registry writes happen on the caller goroutine only.
	for r := range outCh {
		if err := p.Registry.Replace(r.label, r.wide); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) mergeAll() (*table.Table, error) {
	merged, warnings, err := merge.MergeAll(p.Registry.Tables(), p.keys)
	if err != nil {
		return nil, err
	}
	p.warnings = append(p.warnings, warnings...)
	p.state = StateMerged

	m := p.metrics()
	logf := p.logger()
	for _, w := range warnings {
		logf("warning: %s", w.Warning())
		if ak, ok := w.(*merge.AmbiguousKeyWarning); ok {
			m.IncCounter(metrics.CounterKeysDropped, float64(len(ak.Keys)), metrics.Labels{
				"left":  ak.Left,
				"right": ak.Right,
			})
			for _, key := range ak.Keys {
				logf("dropped_key left=%s right=%s key=%q", ak.Left, ak.Right, merge.FormatKeyTuple(ak.KeyColumns, key))
			}
		}
	}
	return merged, nil
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }
