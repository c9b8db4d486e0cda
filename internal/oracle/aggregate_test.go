package oracle

import (
	"errors"
	"testing"
	"time"

	"github.com/rickgao/peg-stabilizer/internal/model"
)

// fixedNow pins the registry clock for deterministic staleness checks.
var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newAggRegistry(t *testing.T) *Registry {
	t.Helper()
	r := newTestRegistry(t)
	r.WithClock(func() time.Time { return fixedNow })
	return r
}

func addSource(t *testing.T, r *Registry, id string, weight int64, scale int) {
	t.Helper()
	if err := r.AddSource(admin, id, weight, time.Minute, scale, ""); err != nil {
		t.Fatalf("AddSource(%s) failed: %v", id, err)
	}
}

func submit(t *testing.T, r *Registry, id string, value int64, age time.Duration) {
	t.Helper()
	ts := fixedNow.Add(-age).UnixMicro()
	if err := r.SubmitQuote(id, value, ts); err != nil {
		t.Fatalf("SubmitQuote(%s) failed: %v", id, err)
	}
}

func TestComputeAggregate_Weighted(t *testing.T) {
	r := newAggRegistry(t)
	addSource(t, r, "a", 50, 6)
	addSource(t, r, "b", 50, 6)

	submit(t, r, "a", 1_000_000, time.Second) // 1.00
	submit(t, r, "b", 1_020_000, time.Second) // 1.02

	agg, err := r.ComputeAggregate()
	if err != nil {
		t.Fatalf("ComputeAggregate failed: %v", err)
	}
	if agg.Price != 1_010_000 {
		t.Errorf("Price = %d, want 1010000", agg.Price)
	}
	if agg.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", agg.Confidence)
	}
	if agg.ValidSources != 2 || agg.ActiveSources != 2 {
		t.Errorf("sources = %d/%d, want 2/2", agg.ValidSources, agg.ActiveSources)
	}
}

func TestComputeAggregate_UnequalWeights(t *testing.T) {
	r := newAggRegistry(t)
	addSource(t, r, "a", 75, 6)
	addSource(t, r, "b", 25, 6)

	submit(t, r, "a", 1_000_000, time.Second)
	submit(t, r, "b", 1_040_000, time.Second)

	agg, err := r.ComputeAggregate()
	if err != nil {
		t.Fatalf("ComputeAggregate failed: %v", err)
	}
	// (75*1.00 + 25*1.04) / 100 = 1.01
	if agg.Price != 1_010_000 {
		t.Errorf("Price = %d, want 1010000", agg.Price)
	}
}

func TestComputeAggregate_StalenessExclusion(t *testing.T) {
	r := newAggRegistry(t)
	addSource(t, r, "fresh", 50, 6)
	addSource(t, r, "stale", 50, 6)

	submit(t, r, "fresh", 1_020_000, time.Second)
	submit(t, r, "stale", 900_000, 2*time.Minute) // heartbeat is 1 minute

	agg, err := r.ComputeAggregate()
	if err != nil {
		t.Fatalf("ComputeAggregate failed: %v", err)
	}
	if agg.Price != 1_020_000 {
		t.Errorf("Price = %d, want the fresh source's value 1020000", agg.Price)
	}
	if agg.Confidence != 50 {
		t.Errorf("Confidence = %d, want 50", agg.Confidence)
	}
	if agg.ValidSources != 1 || agg.ActiveSources != 2 {
		t.Errorf("sources = %d/%d, want 1/2", agg.ValidSources, agg.ActiveSources)
	}
}

func TestComputeAggregate_NonPositiveExcluded(t *testing.T) {
	r := newAggRegistry(t)
	addSource(t, r, "good", 50, 6)
	addSource(t, r, "bad", 50, 6)

	submit(t, r, "good", 1_000_000, time.Second)
	submit(t, r, "bad", 0, time.Second)

	agg, err := r.ComputeAggregate()
	if err != nil {
		t.Fatalf("ComputeAggregate failed: %v", err)
	}
	if agg.Price != 1_000_000 {
		t.Errorf("Price = %d, want 1000000", agg.Price)
	}
	if agg.Confidence != 50 {
		t.Errorf("Confidence = %d, want 50", agg.Confidence)
	}
}

func TestComputeAggregate_ScaleNormalization(t *testing.T) {
	r := newAggRegistry(t)
	addSource(t, r, "cents", 50, 2) // reports in hundredths
	addSource(t, r, "nano", 50, 8)  // reports with 8 decimals

	submit(t, r, "cents", 102, time.Second)        // 1.02
	submit(t, r, "nano", 100_000_000, time.Second) // 1.00

	agg, err := r.ComputeAggregate()
	if err != nil {
		t.Fatalf("ComputeAggregate failed: %v", err)
	}
	if agg.Price != 1_010_000 {
		t.Errorf("Price = %d, want 1010000", agg.Price)
	}
}

func TestComputeAggregate_InsufficientData(t *testing.T) {
	r := newAggRegistry(t)

	// No sources at all.
	if _, err := r.ComputeAggregate(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("empty registry error = %v, want ErrInsufficientData", err)
	}

	// Sources registered but no quotes.
	addSource(t, r, "a", 50, 6)
	if _, err := r.ComputeAggregate(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("no quotes error = %v, want ErrInsufficientData", err)
	}

	// Only a stale quote.
	submit(t, r, "a", 1_000_000, time.Hour)
	if _, err := r.ComputeAggregate(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("all stale error = %v, want ErrInsufficientData", err)
	}
}

func TestComputeAggregate_MinOracles(t *testing.T) {
	r := NewRegistry(Config{MinOracles: 2}, nil, nil)
	r.WithClock(func() time.Time { return fixedNow })

	addSource(t, r, "a", 50, 6)
	addSource(t, r, "b", 50, 6)
	submit(t, r, "a", 1_000_000, time.Second)

	// One valid source out of two active: below MinOracles.
	if _, err := r.ComputeAggregate(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}

	submit(t, r, "b", 1_000_000, time.Second)
	if _, err := r.ComputeAggregate(); err != nil {
		t.Errorf("error = %v, want nil with both sources valid", err)
	}
}

func TestComputeAggregate_OldestTimestamp(t *testing.T) {
	r := newAggRegistry(t)
	addSource(t, r, "a", 50, 6)
	addSource(t, r, "b", 50, 6)

	submit(t, r, "a", 1_000_000, 10*time.Second)
	submit(t, r, "b", 1_000_000, 40*time.Second)

	agg, err := r.ComputeAggregate()
	if err != nil {
		t.Fatalf("ComputeAggregate failed: %v", err)
	}
	want := fixedNow.Add(-40 * time.Second).UnixMicro()
	if agg.Timestamp != want {
		t.Errorf("Timestamp = %d, want oldest contributor %d", agg.Timestamp, want)
	}
}

func TestComputeAggregate_Pure(t *testing.T) {
	r := newAggRegistry(t)
	addSource(t, r, "a", 50, 6)
	submit(t, r, "a", 1_000_000, time.Second)

	first, err := r.ComputeAggregate()
	if err != nil {
		t.Fatalf("ComputeAggregate failed: %v", err)
	}
	second, err := r.ComputeAggregate()
	if err != nil {
		t.Fatalf("second ComputeAggregate failed: %v", err)
	}
	if first != (model.AggregatedPrice{}) && first != second {
		t.Errorf("repeated aggregation diverged: %+v vs %+v", first, second)
	}
}
