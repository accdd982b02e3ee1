package engine

import (
	"errors"
	"fmt"
)

// Thresholds defines warning and critical levels for a check. A value above
// a level trips it.
type Thresholds struct {
	Warning  float64 `mapstructure:"warning"`
	Critical float64 `mapstructure:"critical"`
}

type Config struct {
	Backlog Thresholds `mapstructure:"backlog"` // unprocessed fraction
	Retries Thresholds `mapstructure:"retries"` // redeliveries per interval
	Memory  Thresholds `mapstructure:"memory"`  // bytes
}

func DefaultConfig() Config {
	return Config{
		Backlog: Thresholds{Warning: 0.5, Critical: 0.9},
		Retries: Thresholds{Warning: 10, Critical: 100},
		Memory:  Thresholds{Warning: 512 << 20, Critical: 1 << 30},
	}
}

// Validate reports the first threshold pair that cannot be evaluated.
func (c Config) Validate() error {
	pairs := []struct {
		name string
		t    Thresholds
	}{
		{"backlog", c.Backlog},
		{"retries", c.Retries},
		{"memory", c.Memory},
	}
	for _, p := range pairs {
		if p.t.Warning < 0 || p.t.Critical < 0 {
			return fmt.Errorf("%s must not be negative", p.name)
		}
		if p.t.Warning > p.t.Critical {
			return fmt.Errorf("%s warning %v above critical %v", p.name, p.t.Warning, p.t.Critical)
		}
	}
	if c.Backlog.Critical > 1 {
		return errors.New("backlog must be a fraction between 0 and 1")
	}
	return nil
}
