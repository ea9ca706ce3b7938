package orchestrator

import (
	"fmt"

	"quant-backtest-lab/internal/domain"
)

// Grid expands a parameter grid into run specs ordered by mode, K, then
// threshold as given. A nil threshold means "no threshold". Duplicate
// combinations are dropped.
func Grid(base domain.SimulationConfig, modes []domain.Mode, ks []int, thresholds []*float64) []RunSpec {
	if len(ks) == 0 {
		ks = []int{base.K}
	}
	if len(thresholds) == 0 {
		thresholds = []*float64{base.Threshold}
	}

	seen := make(map[string]struct{})
	var specs []RunSpec
	for _, mode := range modes {
		for _, k := range ks {
			for _, thr := range thresholds {
				cfg := base
				cfg.K = k
				cfg.Threshold = copyThreshold(thr)

				key := fmt.Sprintf("%s|%d|%s", mode, k, thresholdKey(thr))
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}

				specs = append(specs, RunSpec{Mode: mode, Config: cfg})
			}
		}
	}
	return specs
}

func copyThreshold(t *float64) *float64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func thresholdKey(t *float64) string {
	if t == nil {
		return "none"
	}
	return fmt.Sprintf("%g", *t)
}
