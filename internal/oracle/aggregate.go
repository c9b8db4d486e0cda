package oracle

import (
	"math/big"

	"github.com/rickgao/peg-stabilizer/internal/model"
)

// ComputeAggregate combines the latest quotes of all active sources into a
// single confidence-scored price. It is a pure function of current registry
// state: no caching, no side effects, safe to call arbitrarily often.
//
// A source is excluded from this aggregation (without error) when its quote
// is missing, older than its heartbeat, or non-positive. The result's
// timestamp is the oldest accepted quote, a conservative freshness bound.
func (r *Registry) ComputeAggregate() (model.AggregatedPrice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock().UnixMicro()

	weightedSum := new(big.Int)
	var (
		totalWeight int64
		oldest      int64
		valid       int
		active      int
	)

	for id, src := range r.sources {
		if !src.Active {
			continue
		}
		active++

		q, ok := r.quotes[id]
		if !ok {
			continue
		}
		if now-q.Timestamp > src.HeartbeatUs {
			continue
		}
		if q.Value <= 0 {
			continue
		}

		price := normalize(q.Value, src.Scale)
		weightedSum.Add(weightedSum, price.Mul(price, big.NewInt(src.Weight)))
		totalWeight += src.Weight
		if valid == 0 || q.Timestamp < oldest {
			oldest = q.Timestamp
		}
		valid++
	}

	if valid < r.cfg.MinOracles || totalWeight == 0 {
		return model.AggregatedPrice{}, ErrInsufficientData
	}

	price := weightedSum.Div(weightedSum, big.NewInt(totalWeight))

	return model.AggregatedPrice{
		Price:         price.Int64(),
		Timestamp:     oldest,
		Confidence:    valid * 100 / active,
		ValidSources:  valid,
		ActiveSources: active,
	}, nil
}

// normalize converts a raw reading at the source's scale to canonical
// micro-units. Floor division throughout.
func normalize(value int64, scale int) *big.Int {
	v := big.NewInt(value)
	switch {
	case scale == 6:
		return v
	case scale < 6:
		exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(6-scale)), nil)
		return v.Mul(v, exp)
	default:
		exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale-6)), nil)
		return v.Div(v, exp)
	}
}
