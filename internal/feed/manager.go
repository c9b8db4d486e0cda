package feed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ManagerStats provides counters for the feed manager.
type ManagerStats struct {
	FramesReceived int64
	SubmitErrors   int64
	Reconnects     int64
}

// Manager runs one feed connection per configured endpoint and pumps
// parsed frames into the quote sink.
type Manager struct {
	cfg    ManagerConfig
	sink   QuoteSink
	logger *slog.Logger

	cancel context.CancelFunc
	group  *errgroup.Group

	framesReceived atomic.Int64
	submitErrors   atomic.Int64
	reconnects     atomic.Int64

	// newClient is swappable for tests.
	newClient func(ClientConfig, *slog.Logger) Client
}

// NewManager creates a feed manager. Frames are delivered to sink in
// arrival order per endpoint.
func NewManager(cfg ManagerConfig, sink QuoteSink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectBaseDelay == 0 {
		cfg.ReconnectBaseDelay = DefaultManagerConfig().ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay == 0 {
		cfg.ReconnectMaxDelay = DefaultManagerConfig().ReconnectMaxDelay
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultManagerConfig().ReadTimeout
	}

	return &Manager{
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
		newClient: NewClient,
	}
}

// Start launches one connection loop per endpoint. It returns
// immediately; loops run until Stop or ctx cancellation.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.group, ctx = errgroup.WithContext(ctx)

	for _, endpoint := range m.cfg.Endpoints {
		endpoint := endpoint
		m.group.Go(func() error {
			m.runEndpoint(ctx, endpoint)
			return nil
		})
	}

	m.logger.Info("feed manager started", "endpoints", len(m.cfg.Endpoints))
}

// Stop cancels all connection loops and waits for them to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.group != nil {
		m.group.Wait()
	}
	m.logger.Info("feed manager stopped")
}

// Stats returns current counters.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		FramesReceived: m.framesReceived.Load(),
		SubmitErrors:   m.submitErrors.Load(),
		Reconnects:     m.reconnects.Load(),
	}
}

// runEndpoint connects to one endpoint and pumps frames until ctx is
// cancelled, reconnecting with exponential backoff on failure.
func (m *Manager) runEndpoint(ctx context.Context, endpoint string) {
	logger := m.logger.With("endpoint", endpoint)
	wait := m.cfg.ReconnectBaseDelay

	for {
		clientCfg := DefaultClientConfig()
		clientCfg.URL = endpoint
		clientCfg.PingTimeout = m.cfg.ReadTimeout

		cl := m.newClient(clientCfg, logger)
		if err := cl.Connect(ctx); err != nil {
			logger.Warn("feed connect failed", "error", err, "retry_in", wait)

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > m.cfg.ReconnectMaxDelay {
				wait = m.cfg.ReconnectMaxDelay
			}
			m.reconnects.Add(1)
			continue
		}

		// Connected; reset backoff and pump until the connection dies.
		wait = m.cfg.ReconnectBaseDelay
		alive := m.pump(ctx, cl, logger)
		cl.Close()
		if !alive {
			return
		}

		logger.Info("feed disconnected, reconnecting")
		m.reconnects.Add(1)
	}
}

// pump forwards frames to the sink. Returns false when ctx is done,
// true when the connection failed and a reconnect should follow.
func (m *Manager) pump(ctx context.Context, cl Client, logger *slog.Logger) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case err := <-cl.Errors():
			logger.Warn("feed connection error", "error", err)
			return true

		case msg, ok := <-cl.Frames():
			if !ok {
				return true
			}
			m.framesReceived.Add(1)

			ts := msg.Frame.Timestamp
			if ts == 0 {
				ts = msg.ReceivedAt.UnixMicro()
			}

			if err := m.sink.SubmitQuote(msg.Frame.SourceID, msg.Frame.Value, ts); err != nil {
				m.submitErrors.Add(1)
				logger.Warn("quote rejected",
					"source", msg.Frame.SourceID,
					"error", err,
				)
			}
		}
	}
}
