package simulation

import "sort"

// PortfolioState is the exact simulator's carried state.
// It is created at run start, replaced once per processed date and
// owned by a single run; concurrent runs never share one.
type PortfolioState struct {
	Wealth   float64
	Holdings []string           // sorted asset IDs held after the last rebalance
	Weights  map[string]float64 // realized weights of Holdings, sum to 1 when non-empty
}

// NewPortfolioState returns the initial state: all cash, no holdings.
func NewPortfolioState(initialCapital float64) PortfolioState {
	return PortfolioState{Wealth: initialCapital}
}

// weight returns the prior weight of asset, 0 when not held.
func (s PortfolioState) weight(asset string) float64 {
	return s.Weights[asset]
}

// unionAssets returns the sorted union of prior holdings and the selection.
// A fixed iteration order keeps floating-point sums reproducible.
func unionAssets(prior []string, sel Selection) []string {
	seen := make(map[string]struct{}, len(prior)+sel.Len())
	out := make([]string, 0, len(prior)+sel.Len())
	for _, a := range prior {
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	for _, r := range sel.Rows {
		if _, ok := seen[r.AssetID]; !ok {
			seen[r.AssetID] = struct{}{}
			out = append(out, r.AssetID)
		}
	}
	sort.Strings(out)
	return out
}
