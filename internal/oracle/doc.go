// Package oracle implements the price source registry and aggregator.
//
// Feed adapters push quotes in; aggregation is a pure function of the
// registry state at call time. Sources that are stale, missing, or report
// non-positive values are excluded per call rather than failing the whole
// aggregation, and the confidence score reports how many active sources
// actually contributed.
package oracle
