// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"quant-backtest-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(mode|k|threshold|initial_capital|slippage_bps|commission_per_trade|trade_epsilon|batch_id)
// A nil threshold hashes as "none". Returns hex-encoded hash (64 characters).
func ComputeRunID(mode domain.Mode, cfg domain.SimulationConfig, batchID string) string {
	threshold := "none"
	if cfg.Threshold != nil {
		threshold = formatFloat(*cfg.Threshold)
	}

	data := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s|%s",
		string(mode),
		cfg.K,
		threshold,
		formatFloat(cfg.InitialCapital),
		formatFloat(cfg.SlippageBps),
		formatFloat(cfg.CommissionPerTrade),
		formatFloat(cfg.TradeEpsilon),
		batchID,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
