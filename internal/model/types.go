package model

import "github.com/google/uuid"

// PriceScale is the canonical fixed-point price scale: 6 decimals,
// so 1,000,000 micro-units = 1.00.
const PriceScale = 1_000_000

// PpmScale expresses deviations in parts-per-million of the target price.
const PpmScale = 1_000_000

// -----------------------------------------------------------------------------
// Oracle Types
// -----------------------------------------------------------------------------

// OracleSource describes a registered price source.
type OracleSource struct {
	ID          string // Primary key (e.g., "chainlink-usd")
	Weight      int64  // Relative weight, strictly positive
	HeartbeatUs int64  // Max tolerated quote age (µs)
	Scale       int    // Decimals of the source's raw readings
	Description string // Display description
	Active      bool   // false = soft-deleted, excluded from aggregation
	CreatedAt   int64  // Registration time (µs since epoch)
	UpdatedAt   int64  // Last config update (µs since epoch)
}

// PriceQuote is an ephemeral reading pushed by a feed adapter.
// Quotes are never persisted; only the latest per source is held.
type PriceQuote struct {
	SourceID  string // Source that produced the reading
	Value     int64  // Raw value at the source's own scale
	Timestamp int64  // Reading time (µs since epoch)
}

// AggregatedPrice is the confidence-scored output of aggregation.
type AggregatedPrice struct {
	Price         int64 // Weighted price (micro-units)
	Timestamp     int64 // Oldest contributing quote (µs since epoch)
	Confidence    int   // Percentage of active sources that contributed (0-100)
	ValidSources  int   // Sources that passed staleness/validity checks
	ActiveSources int   // Sources consulted
}

// -----------------------------------------------------------------------------
// Stabilization Types
// -----------------------------------------------------------------------------

// StabilityBand classifies a price deviation into a damping policy.
type StabilityBand int

const (
	BandNone     StabilityBand = 0 // < 1%: dead zone, no adjustment
	BandLow      StabilityBand = 1 // 1-5%: 10% damping
	BandModerate StabilityBand = 2 // 5-10%: 25% damping
	BandHigh     StabilityBand = 3 // 10-20%: 50% damping
	BandExtreme  StabilityBand = 4 // >= 20%: protective halt
)

// String returns a human-readable band name for logging.
func (b StabilityBand) String() string {
	switch b {
	case BandNone:
		return "none"
	case BandLow:
		return "low"
	case BandModerate:
		return "moderate"
	case BandHigh:
		return "high"
	case BandExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// RebaseRecord is an immutable history entry, indexed by epoch.
type RebaseRecord struct {
	ID           uuid.UUID     // Audit record ID
	Epoch        uint64        // Monotonically increasing, starts at 1
	Timestamp    int64         // Attempt time (µs since epoch)
	Price        int64         // Aggregated price used (micro-units)
	DeviationPpm int64         // |price - target| / target (ppm)
	Band         StabilityBand // Classified band
	SupplyDelta  int64         // Signed supply change (display units)
	NewSupply    int64         // Supply after the record (display units)
	Halted       bool          // true = protective-halt event, supply untouched
}

// ControllerState is a snapshot of the stabilization state machine.
type ControllerState struct {
	LastRebaseTime       int64  // µs since epoch, 0 = never
	RebaseCount          uint64 // Completed rebase attempts (halts excluded)
	CircuitBreakerActive bool   // Latch; cleared only by administrative reset
}
