package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// QuoteFrame is the wire format providers push over the socket.
// Value is in the source's native decimal scale; the oracle registry
// normalizes it using the scale registered for the source.
type QuoteFrame struct {
	SourceID  string `json:"source_id"`
	Value     int64  `json:"value"`
	Timestamp int64  `json:"ts"` // microseconds since epoch, 0 = stamp on receipt
}

// TimestampedFrame wraps a parsed frame with its local receive time.
type TimestampedFrame struct {
	Frame      QuoteFrame
	ReceivedAt time.Time
}

// QuoteSink receives parsed quote frames. The oracle registry
// satisfies this.
type QuoteSink interface {
	SubmitQuote(sourceID string, value int64, timestamp int64) error
}

// ClientConfig configures a single feed connection.
type ClientConfig struct {
	URL          string        // WebSocket URL of the quote provider
	PingTimeout  time.Duration // Max time without ping before considering connection stale
	WriteTimeout time.Duration // Write deadline for control frames
	BufferSize   int           // Frame channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// ManagerConfig configures the feed manager.
type ManagerConfig struct {
	Endpoints          []string      // One connection per endpoint
	ReconnectBaseDelay time.Duration // Base wait time for reconnection
	ReconnectMaxDelay  time.Duration // Max wait time for reconnection
	ReadTimeout        time.Duration // Passed through as the client ping timeout
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		ReadTimeout:        30 * time.Second,
	}
}
