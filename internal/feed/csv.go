// Package feed reads and writes prediction tables.
//
// A prediction table has one row per (asset, date) with the realized and the
// predicted next-period log return. Missing or non-numeric return cells are
// kept as NaN so the simulators can drop them; structural defects (missing
// columns, unparseable dates) are errors.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"quant-backtest-lab/internal/domain"
)

// Feed errors.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrBadDate       = errors.New("unparseable date")
)

// Column names.
const (
	ColDate     = "date"
	ColAssetID  = "asset_id"
	ColYTrue    = "y_true"
	ColYPred    = "y_pred"
	ColRetBench = "ret_bench"
)

// assetAliases are accepted header names for the asset column.
var assetAliases = []string{ColAssetID, "ticker", "symbol", "asset"}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// ReadPredictions parses a prediction CSV. Columns may appear in any order;
// extra columns are ignored.
func ReadPredictions(r io.Reader) ([]*domain.PredictionRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexHeader(header)

	dateCol, ok := idx[ColDate]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColDate)
	}
	assetCol := -1
	for _, alias := range assetAliases {
		if i, ok := idx[alias]; ok {
			assetCol = i
			break
		}
	}
	if assetCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColAssetID)
	}
	trueCol, ok := idx[ColYTrue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColYTrue)
	}
	predCol, ok := idx[ColYPred]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColYPred)
	}

	var rows []*domain.PredictionRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		d, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rows = append(rows, &domain.PredictionRow{
			AssetID: strings.TrimSpace(rec[assetCol]),
			Date:    d,
			YTrue:   parseReturn(rec[trueCol]),
			YPred:   parseReturn(rec[predCol]),
		})
	}

	return rows, nil
}

// WritePredictions writes rows as CSV with header date,asset_id,y_true,y_pred.
// NaN values are written as empty cells.
func WritePredictions(w io.Writer, rows []*domain.PredictionRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColDate, ColAssetID, ColYTrue, ColYPred}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format("2006-01-02"),
			r.AssetID,
			formatReturn(r.YTrue),
			formatReturn(r.YPred),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadBenchmark parses a (date, ret_bench) CSV of benchmark log returns.
// Rows with a missing return are skipped.
func ReadBenchmark(r io.Reader) ([]*domain.DailyReturn, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexHeader(header)
	dateCol, ok := idx[ColDate]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColDate)
	}
	retCol, ok := idx[ColRetBench]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColRetBench)
	}

	var out []*domain.DailyReturn
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		d, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v := parseReturn(rec[retCol])
		if math.IsNaN(v) {
			continue
		}
		out = append(out, &domain.DailyReturn{Date: d, RetPort: v})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SortCanonical orders rows by (date, asset_id) in place.
func SortCanonical(rows []*domain.PredictionRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].AssetID < rows[j].AssetID
	})
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

// parseReturn maps empty and non-numeric cells to NaN.
func parseReturn(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func formatReturn(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
