// Package feed maintains WebSocket connections to quote providers and
// forwards parsed quote frames into the oracle registry. Each endpoint
// gets its own connection with automatic reconnection and exponential
// backoff; a dead feed never takes down the engine, it just goes stale
// and drops out of aggregation.
package feed
