// Package model defines shared data types used across the peg stabilizer.
//
// Conventions:
//   - Prices: integer micro-units (1,000,000 = 1.00 target units)
//   - Deviations: integer parts-per-million of the target price
//   - Timestamps: int64 microseconds since Unix epoch
//   - IDs: string for oracle sources and holders, uuid.UUID for history records
package model
