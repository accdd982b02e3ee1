package engine

import (
	"cmp"
	"fmt"
	"slices"

	"courierdash/internal/metrics"
)

const (
	StatusHealthy  = "OK"
	StatusWarning  = "WARN"
	StatusCritical = "CRIT"
)

type CheckResult struct {
	Name   string
	Value  float64
	Status string
}

func getStatus(value, warning, critical float64) string {
	if value > critical {
		return StatusCritical
	}
	if value > warning {
		return StatusWarning
	}
	return StatusHealthy
}

func flag(cond bool) (float64, string) {
	if cond {
		return 1, StatusWarning
	}
	return 0, StatusHealthy
}

// Evaluate runs every check against a snapshot. Results are ordered by name.
func Evaluate(snap metrics.StateSnapshot, cfg Config) []CheckResult {
	var result []CheckResult

	for _, s := range snap.SortedSubscriptions() {
		// An orphan has nothing left to process, so only the orphan check applies.
		if !s.Orphaned {
			backlog := 1 - s.PercentageProcessed
			result = append(result, CheckResult{
				Name:   fmt.Sprintf("Backlog %s", s.Name),
				Value:  backlog,
				Status: getStatus(backlog, cfg.Backlog.Warning, cfg.Backlog.Critical),
			})
		}

		value, status := flag(s.Orphaned)
		result = append(result, CheckResult{
			Name:   fmt.Sprintf("Orphaned %s", s.Name),
			Value:  value,
			Status: status,
		})

		_, status = flag(s.Pending > 0 && s.AckedInterval == 0)
		result = append(result, CheckResult{
			Name:   fmt.Sprintf("Stalled %s", s.Name),
			Value:  float64(s.Pending),
			Status: status,
		})

		retries := float64(s.PulledRetriesInterval)
		result = append(result, CheckResult{
			Name:   fmt.Sprintf("Redeliveries %s", s.Name),
			Value:  retries,
			Status: getStatus(retries, cfg.Retries.Warning, cfg.Retries.Critical),
		})
	}

	backlog := 1 - snap.PercentageProcessed
	result = append(result, CheckResult{
		Name:   "Processed",
		Value:  backlog,
		Status: getStatus(backlog, cfg.Backlog.Warning, cfg.Backlog.Critical),
	})

	rss := float64(snap.MemoryResidentSetSize)
	result = append(result, CheckResult{
		Name:   "Memory RSS",
		Value:  rss,
		Status: getStatus(rss, cfg.Memory.Warning, cfg.Memory.Critical),
	})

	slices.SortFunc(result, func(a, b CheckResult) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return result
}
