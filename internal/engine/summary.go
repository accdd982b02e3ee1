package engine

import "fmt"

// Summary folds check results into one severity with a line per problem.
type Summary struct {
	Severity     string
	Warnings     int
	Criticals    int
	Explanations []string
}

func Summarize(results []CheckResult) Summary {
	s := Summary{Severity: StatusHealthy}
	for _, r := range results {
		switch r.Status {
		case StatusCritical:
			s.Criticals++
			s.Severity = StatusCritical
		case StatusWarning:
			s.Warnings++
			if s.Severity == StatusHealthy {
				s.Severity = StatusWarning
			}
		default:
			continue
		}
		s.Explanations = append(s.Explanations, fmt.Sprintf("%s %s: %g", r.Name, severityWord(r.Status), r.Value))
	}
	return s
}

func severityWord(status string) string {
	if status == StatusCritical {
		return "critical"
	}
	return "warning"
}
