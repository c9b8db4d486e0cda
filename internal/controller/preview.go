package controller

import "github.com/rickgao/peg-stabilizer/internal/model"

// Projection is a read-only forecast of what a rebase attempt would do.
// When not executable, price fields are still filled where the oracle
// allows, so monitoring keeps a view even while the engine refuses to act.
type Projection struct {
	Executable      bool
	Reason          string // empty when executable
	Price           int64
	Confidence      int
	DeviationPpm    int64
	Band            model.StabilityBand
	WouldHalt       bool
	SupplyDelta     int64
	ProjectedSupply int64
}

// PreviewRebase replicates the readiness, oracle, banding, and delta
// computation of Rebase without mutating anything. It never fails: on
// oracle unavailability it returns a non-executable projection with zero
// price fields.
func (c *Controller) PreviewRebase() Projection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var p Projection

	switch {
	case c.breakerActive:
		p.Reason = "circuit breaker engaged"
	case !c.cooldownElapsed(c.clock().UnixMicro()):
		p.Reason = "cooldown active"
	}

	agg, err := c.oracle.ComputeAggregate()
	if err != nil {
		if p.Reason == "" {
			p.Reason = "oracle unavailable"
		}
		return p
	}

	p.Price = agg.Price
	p.Confidence = agg.Confidence
	if agg.Confidence < c.cfg.MinConfidence && p.Reason == "" {
		p.Reason = "confidence below minimum"
	}

	p.DeviationPpm = deviationPpm(agg.Price, c.cfg.TargetPrice)
	p.Band = classifyDeviation(p.DeviationPpm)
	supply := c.ledger.TotalSupply()
	p.ProjectedSupply = supply

	if p.Band == model.BandExtreme {
		p.WouldHalt = true
	} else {
		delta := adjustmentMagnitude(supply, p.DeviationPpm, p.Band, c.cfg.MaxRebasePct)
		if agg.Price < c.cfg.TargetPrice {
			delta = -delta
		}
		p.SupplyDelta = delta
		p.ProjectedSupply = supply + delta
	}

	p.Executable = p.Reason == ""
	return p
}
