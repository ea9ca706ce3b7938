package simulation

import (
	"math"
	"testing"

	"quant-backtest-lab/internal/domain"
)

func TestSelect_TopKByPrediction(t *testing.T) {
	rows := []*domain.PredictionRow{
		row("A", 0, 0.01, 0.01),
		row("B", 0, 0.02, 0.05),
		row("C", 0, 0.03, 0.03),
		row("D", 0, 0.04, -0.02),
	}

	sel := Select(rows, 2, nil)

	if sel.Len() != 2 {
		t.Fatalf("expected 2 selected, got %d", sel.Len())
	}
	if sel.Rows[0].AssetID != "B" || sel.Rows[1].AssetID != "C" {
		t.Errorf("expected rank order [B C], got [%s %s]", sel.Rows[0].AssetID, sel.Rows[1].AssetID)
	}
	for asset, w := range sel.Weights {
		if w != 0.5 {
			t.Errorf("expected weight 0.5 for %s, got %f", asset, w)
		}
	}
}

func TestSelect_KLargerThanCandidates(t *testing.T) {
	rows := []*domain.PredictionRow{
		row("A", 0, 0.01, 0.01),
		row("B", 0, 0.02, 0.02),
	}

	sel := Select(rows, 10, nil)

	if sel.Len() != 2 {
		t.Errorf("expected all 2 assets selected, got %d", sel.Len())
	}
}

func TestSelect_ThresholdIsExclusive(t *testing.T) {
	rows := []*domain.PredictionRow{
		row("A", 0, 0.01, 0.001),
		row("B", 0, 0.02, 0.002),
		row("C", 0, 0.03, 0.0005),
	}

	sel := Select(rows, 5, ptrFloat(0.001))

	if sel.Len() != 1 || sel.Rows[0].AssetID != "B" {
		t.Fatalf("expected only B above threshold, got %v", sel.Assets())
	}
	if sel.Weights["B"] != 1.0 {
		t.Errorf("expected weight 1.0, got %f", sel.Weights["B"])
	}
}

func TestSelect_NothingPassesThreshold(t *testing.T) {
	rows := []*domain.PredictionRow{row("A", 0, 0.01, -0.01)}

	sel := Select(rows, 3, ptrFloat(0))

	if sel.Len() != 0 || sel.Weights != nil {
		t.Errorf("expected empty selection, got %v", sel.Assets())
	}
}

func TestSelect_NonPositiveK(t *testing.T) {
	rows := []*domain.PredictionRow{row("A", 0, 0.01, 0.05)}

	for _, k := range []int{0, -3} {
		sel := Select(rows, k, nil)
		if sel.Len() != 0 {
			t.Errorf("k=%d: expected empty selection, got %v", k, sel.Assets())
		}
	}
}

func TestSelect_TiesKeepInputOrder(t *testing.T) {
	rows := []*domain.PredictionRow{
		row("Z", 0, 0.01, 0.02),
		row("A", 0, 0.02, 0.02),
		row("M", 0, 0.03, 0.02),
	}

	sel := Select(rows, 2, nil)

	if sel.Rows[0].AssetID != "Z" || sel.Rows[1].AssetID != "A" {
		t.Errorf("expected stable tie order [Z A], got [%s %s]", sel.Rows[0].AssetID, sel.Rows[1].AssetID)
	}
	// Assets() is always sorted, independent of rank.
	got := sel.Assets()
	if got[0] != "A" || got[1] != "Z" {
		t.Errorf("expected sorted assets [A Z], got %v", got)
	}
}

func TestSelect_SkipsIncompleteRows(t *testing.T) {
	rows := []*domain.PredictionRow{
		row("A", 0, math.NaN(), 0.09),
		row("B", 0, 0.01, math.NaN()),
		row("C", 0, 0.01, 0.01),
	}

	sel := Select(rows, 3, nil)

	if sel.Len() != 1 || sel.Rows[0].AssetID != "C" {
		t.Errorf("expected only C, got %v", sel.Assets())
	}
}

func TestSelect_WeightsSumToOne(t *testing.T) {
	var rows []*domain.PredictionRow
	for i, a := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		rows = append(rows, row(a, 0, 0, float64(i)*0.001))
	}

	for k := 1; k <= 7; k++ {
		sel := Select(rows, k, nil)
		sum := 0.0
		for _, w := range sel.Weights {
			sum += w
		}
		if !approxEqual(sum, 1.0, 1e-9) {
			t.Errorf("k=%d: weights sum to %.15f", k, sum)
		}
	}
}

func TestSelect_DoesNotReorderInput(t *testing.T) {
	rows := []*domain.PredictionRow{
		row("A", 0, 0, 0.01),
		row("B", 0, 0, 0.03),
	}

	_ = Select(rows, 1, nil)

	if rows[0].AssetID != "A" || rows[1].AssetID != "B" {
		t.Error("Select must not reorder the caller's slice")
	}
}
