package domain

import (
	"strings"
	"time"
)

// HoldingsSeparator joins asset IDs in serialized holdings.
const HoldingsSeparator = ","

// DailyReturn is the vectorized simulator output for one date.
type DailyReturn struct {
	Date    time.Time
	RetPort float64 // mean realized log return of the selection
}

// DailyRecord is the exact simulator output for one date.
// Records are emitted in ascending date order and never revised.
type DailyRecord struct {
	Date      time.Time
	RetPort   float64  // ln(wealth_next / wealth)
	Equity    float64  // wealth after costs and returns
	Holdings  []string // sorted asset IDs
	Turnover  float64  // in [0,1]
	CostValue float64  // slippage + commission charged
}

// JoinHoldings serializes holdings as a delimited list.
func JoinHoldings(holdings []string) string {
	return strings.Join(holdings, HoldingsSeparator)
}

// SplitHoldings parses a delimited holdings list. Empty input yields nil.
func SplitHoldings(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, HoldingsSeparator)
}

// AsRecord widens a vectorized result into the persisted record shape.
func (d *DailyReturn) AsRecord() *DailyRecord {
	return &DailyRecord{Date: d.Date, RetPort: d.RetPort}
}
