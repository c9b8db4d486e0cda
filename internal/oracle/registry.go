package oracle

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/peg-stabilizer/internal/authz"
	"github.com/rickgao/peg-stabilizer/internal/model"
)

// Errors
var (
	ErrDuplicateSource  = errors.New("source already active")
	ErrUnknownSource    = errors.New("unknown source")
	ErrInactiveSource   = errors.New("source is inactive")
	ErrInvalidWeight    = errors.New("weight must be positive")
	ErrInvalidHeartbeat = errors.New("heartbeat must be positive")
	ErrInvalidScale     = errors.New("scale out of range")
	ErrInsufficientData = errors.New("insufficient oracle data")
)

// maxScale bounds source decimals; anything wider is a config mistake.
const maxScale = 18

// Config holds registry settings.
type Config struct {
	// MinOracles is the minimum number of valid sources required for an
	// aggregation to succeed.
	MinOracles int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MinOracles: 1}
}

// Registry maintains oracle source configuration and the latest quote per
// source. Removal is a soft delete: config is retained for audit, the
// source just stops contributing.
type Registry struct {
	cfg    Config
	auth   authz.Authorizer
	logger *slog.Logger
	clock  func() time.Time

	mu      sync.RWMutex
	sources map[string]*model.OracleSource
	quotes  map[string]model.PriceQuote
}

// NewRegistry creates an empty source registry.
func NewRegistry(cfg Config, auth authz.Authorizer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if auth == nil {
		auth = authz.AllowAll{}
	}
	if cfg.MinOracles < 1 {
		cfg.MinOracles = 1
	}
	return &Registry{
		cfg:     cfg,
		auth:    auth,
		logger:  logger,
		clock:   time.Now,
		sources: make(map[string]*model.OracleSource),
		quotes:  make(map[string]model.PriceQuote),
	}
}

// WithClock overrides the registry clock for deterministic tests.
func (r *Registry) WithClock(clock func() time.Time) {
	if clock != nil {
		r.clock = clock
	}
}

// AddSource registers a price source. Re-adding an inactive id reactivates
// it with the new configuration; an already-active id is rejected.
func (r *Registry) AddSource(caller, id string, weight int64, heartbeat time.Duration, scale int, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.auth.Authorize(caller, authz.OpAddSource); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownSource)
	}
	if weight <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWeight, weight)
	}
	if heartbeat <= 0 {
		return ErrInvalidHeartbeat
	}
	if scale < 0 || scale > maxScale {
		return fmt.Errorf("%w: %d", ErrInvalidScale, scale)
	}
	if existing, ok := r.sources[id]; ok && existing.Active {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, id)
	}

	now := r.clock().UnixMicro()
	src := &model.OracleSource{
		ID:          id,
		Weight:      weight,
		HeartbeatUs: heartbeat.Microseconds(),
		Scale:       scale,
		Description: description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing, ok := r.sources[id]; ok {
		src.CreatedAt = existing.CreatedAt
	}
	r.sources[id] = src

	r.logger.Info("oracle source added",
		"source", id,
		"weight", weight,
		"heartbeat", heartbeat,
		"scale", scale,
		"caller", caller,
	)
	return nil
}

// UpdateSource changes the weight and heartbeat of an existing source.
func (r *Registry) UpdateSource(caller, id string, weight int64, heartbeat time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.auth.Authorize(caller, authz.OpUpdateSource); err != nil {
		return err
	}
	if weight <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWeight, weight)
	}
	if heartbeat <= 0 {
		return ErrInvalidHeartbeat
	}

	src, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	if !src.Active {
		return fmt.Errorf("%w: %s", ErrInactiveSource, id)
	}

	src.Weight = weight
	src.HeartbeatUs = heartbeat.Microseconds()
	src.UpdatedAt = r.clock().UnixMicro()

	r.logger.Info("oracle source updated",
		"source", id,
		"weight", weight,
		"heartbeat", heartbeat,
		"caller", caller,
	)
	return nil
}

// RemoveSource marks a source inactive. Its configuration is retained so
// audit history stays intact.
func (r *Registry) RemoveSource(caller, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.auth.Authorize(caller, authz.OpRemoveSource); err != nil {
		return err
	}

	src, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	if !src.Active {
		return fmt.Errorf("%w: %s", ErrInactiveSource, id)
	}

	src.Active = false
	src.UpdatedAt = r.clock().UnixMicro()
	delete(r.quotes, id)

	r.logger.Info("oracle source removed", "source", id, "caller", caller)
	return nil
}

// SubmitQuote stores the latest reading for a source. Validity (staleness,
// positivity) is judged at aggregation time, not here.
func (r *Registry) SubmitQuote(sourceID string, value, timestamp int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sources[sourceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	if !src.Active {
		return fmt.Errorf("%w: %s", ErrInactiveSource, sourceID)
	}

	r.quotes[sourceID] = model.PriceQuote{
		SourceID:  sourceID,
		Value:     value,
		Timestamp: timestamp,
	}
	return nil
}

// Source returns a source's configuration by id.
func (r *Registry) Source(id string) (model.OracleSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok {
		return model.OracleSource{}, false
	}
	return *src, true
}

// ActiveSources returns the active sources sorted by id.
func (r *Registry) ActiveSources() []model.OracleSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.OracleSource, 0, len(r.sources))
	for _, src := range r.sources {
		if src.Active {
			out = append(out, *src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
