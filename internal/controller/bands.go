package controller

import (
	"math/big"

	"github.com/rickgao/peg-stabilizer/internal/model"
)

// Band thresholds in ppm of the target price. Boundary values belong to
// the higher band.
const (
	bandLowPpm      = 10_000  // 1%
	bandModeratePpm = 50_000  // 5%
	bandHighPpm     = 100_000 // 10%
	bandExtremePpm  = 200_000 // 20%
)

// classifyDeviation maps a deviation to its stability band.
func classifyDeviation(devPpm int64) model.StabilityBand {
	switch {
	case devPpm >= bandExtremePpm:
		return model.BandExtreme
	case devPpm >= bandHighPpm:
		return model.BandHigh
	case devPpm >= bandModeratePpm:
		return model.BandModerate
	case devPpm >= bandLowPpm:
		return model.BandLow
	default:
		return model.BandNone
	}
}

// dampingPct returns the percentage of the raw deviation-implied
// adjustment actually applied for a band. BandExtreme never reaches
// here: it halts instead of adjusting.
func dampingPct(band model.StabilityBand) int64 {
	switch band {
	case model.BandLow:
		return 10
	case model.BandModerate:
		return 25
	case model.BandHigh:
		return 50
	default:
		return 0
	}
}

// deviationPpm computes |price - target| / target in parts-per-million,
// floor division, with a wide intermediate product.
func deviationPpm(price, target int64) int64 {
	diff := price - target
	if diff < 0 {
		diff = -diff
	}
	d := new(big.Int).Mul(big.NewInt(diff), big.NewInt(model.PpmScale))
	d.Div(d, big.NewInt(target))
	return d.Int64()
}

// adjustmentMagnitude computes the damped, capped supply adjustment for a
// band. supply × deviation goes through big.Int so the product cannot
// overflow before the divisions bring it back down.
func adjustmentMagnitude(supply, devPpm int64, band model.StabilityBand, maxRebasePct int64) int64 {
	pct := dampingPct(band)
	if pct == 0 {
		return 0
	}

	raw := new(big.Int).Mul(big.NewInt(supply), big.NewInt(devPpm))
	raw.Div(raw, big.NewInt(model.PpmScale))
	raw.Mul(raw, big.NewInt(pct))
	raw.Div(raw, big.NewInt(100))

	damped := raw.Int64()
	cap := supply * maxRebasePct / 100
	if damped > cap {
		damped = cap
	}
	return damped
}
