package output

import (
	"context"
	"fmt"
	"time"

	"courierdash/internal/engine"
	"courierdash/internal/metrics"
)

// Payload is one evaluated poll, ready for display or persistence.
type Payload struct {
	At       time.Time
	Snapshot metrics.StateSnapshot
	Results  []engine.CheckResult
	Summary  engine.Summary
}

// MetricsSource returns the raw metrics document.
type MetricsSource interface {
	Metrics(ctx context.Context) ([]byte, error)
}

// RunPipeline executes one poll: Fetch -> Reconcile -> Evaluate -> Bundle.
// It returns the payload and the advanced generations. On a fetch failure the
// generations come back reset so the next poll starts from a zero baseline.
func RunPipeline(
	ctx context.Context,
	src MetricsSource,
	gens metrics.Generations,
	cfg engine.Config,
	opts ...metrics.Option,
) (*Payload, metrics.Generations, error) {
	// 1. Fetch
	raw, err := src.Metrics(ctx)
	if err != nil {
		return nil, gens.Reset(), fmt.Errorf("fetch metrics: %w", err)
	}

	// 2. Reconcile against the current generation
	snap := metrics.Reconcile(raw, gens.Current, opts...)

	// 3. Evaluate
	results := engine.Evaluate(snap, cfg)

	// 4. Bundle
	return &Payload{
		At:       time.Now().UTC(),
		Snapshot: snap,
		Results:  results,
		Summary:  engine.Summarize(results),
	}, gens.Advance(snap), nil
}
