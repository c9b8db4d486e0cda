// Package controller implements the stabilization state machine.
//
// A rebase attempt reads the oracle aggregate, classifies the deviation
// from the target into a stability band, applies the band's damping and
// the global cap, and adjusts the ledger. Deviation at or past the top
// band latches the circuit breaker: supply is left untouched and every
// further attempt is refused until an administrative reset. The latch
// never clears from price movement alone.
package controller
