package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/peg-stabilizer/internal/authz"
	"github.com/rickgao/peg-stabilizer/internal/history"
	"github.com/rickgao/peg-stabilizer/internal/ledger"
	"github.com/rickgao/peg-stabilizer/internal/model"
)

// Errors. ErrCooldownActive and ErrBreakerEngaged both wrap ErrNotReady,
// so callers that only care about retryability match on ErrNotReady.
var (
	ErrNotReady          = errors.New("not ready")
	ErrCooldownActive    = fmt.Errorf("%w: cooldown active", ErrNotReady)
	ErrBreakerEngaged    = fmt.Errorf("%w: circuit breaker engaged", ErrNotReady)
	ErrOracleUnavailable = errors.New("oracle unavailable")
)

// Aggregator is the read side of the price oracle.
type Aggregator interface {
	ComputeAggregate() (model.AggregatedPrice, error)
}

// Config holds stabilization policy settings.
type Config struct {
	TargetPrice    int64         // Peg target (micro-units)
	RebaseCooldown time.Duration // Minimum spacing between rebase attempts
	MinConfidence  int           // Oracle confidence floor (0-100)
	MaxRebasePct   int64         // Per-rebase supply change cap (percent)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TargetPrice:    model.PriceScale, // 1.00
		RebaseCooldown: 24 * time.Hour,
		MinConfidence:  50,
		MaxRebasePct:   10,
	}
}

// Controller orchestrates rebase cycles against the oracle and ledger.
// Each mutating operation runs under one lock: price read, supply change,
// and history append are observed together or not at all.
type Controller struct {
	cfg    Config
	auth   authz.Authorizer
	oracle Aggregator
	ledger *ledger.Ledger
	log    *history.Log
	logger *slog.Logger
	clock  func() time.Time

	mu             sync.RWMutex
	lastRebaseTime int64 // µs since epoch, 0 = never
	rebaseCount    uint64
	breakerActive  bool
}

// New creates a stabilization controller.
func New(cfg Config, oracle Aggregator, l *ledger.Ledger, log *history.Log, auth authz.Authorizer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if auth == nil {
		auth = authz.AllowAll{}
	}
	def := DefaultConfig()
	if cfg.TargetPrice <= 0 {
		cfg.TargetPrice = def.TargetPrice
	}
	if cfg.RebaseCooldown <= 0 {
		cfg.RebaseCooldown = def.RebaseCooldown
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.MaxRebasePct <= 0 {
		cfg.MaxRebasePct = def.MaxRebasePct
	}

	return &Controller{
		cfg:    cfg,
		auth:   auth,
		oracle: oracle,
		ledger: l,
		log:    log,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the controller clock for deterministic tests.
func (c *Controller) WithClock(clock func() time.Time) {
	if clock != nil {
		c.clock = clock
	}
}

// CanRebase reports whether a rebase attempt would pass the readiness
// checks: breaker clear and cooldown elapsed.
func (c *Controller) CanRebase() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.breakerActive && c.cooldownElapsed(c.clock().UnixMicro())
}

// CircuitBreakerActive reports the latch state.
func (c *Controller) CircuitBreakerActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.breakerActive
}

// State returns a snapshot of the controller bookkeeping.
func (c *Controller) State() model.ControllerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.ControllerState{
		LastRebaseTime:       c.lastRebaseTime,
		RebaseCount:          c.rebaseCount,
		CircuitBreakerActive: c.breakerActive,
	}
}

// RebaseHistory returns the history record at the given epoch.
func (c *Controller) RebaseHistory(epoch uint64) (model.RebaseRecord, bool) {
	return c.log.ByEpoch(epoch)
}

// Rebase runs one stabilization cycle. On a band-4 deviation it latches
// the circuit breaker and returns the halt record with no error: a halt
// is a deliberate no-op, not a failure. Transient refusals (cooldown,
// breaker, oracle) return errors wrapping ErrNotReady or
// ErrOracleUnavailable; a ledger bounds violation aborts the attempt with
// no bookkeeping change at all.
func (c *Controller) Rebase(caller string) (model.RebaseRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.auth.Authorize(caller, authz.OpRebase); err != nil {
		return model.RebaseRecord{}, err
	}

	now := c.clock()
	nowUs := now.UnixMicro()

	if c.breakerActive {
		return model.RebaseRecord{}, ErrBreakerEngaged
	}
	if !c.cooldownElapsed(nowUs) {
		return model.RebaseRecord{}, ErrCooldownActive
	}

	agg, err := c.oracle.ComputeAggregate()
	if err != nil {
		return model.RebaseRecord{}, fmt.Errorf("%w: %s", ErrOracleUnavailable, err)
	}
	if agg.Confidence < c.cfg.MinConfidence {
		return model.RebaseRecord{}, fmt.Errorf("%w: confidence %d below minimum %d",
			ErrOracleUnavailable, agg.Confidence, c.cfg.MinConfidence)
	}

	devPpm := deviationPpm(agg.Price, c.cfg.TargetPrice)
	band := classifyDeviation(devPpm)
	supply := c.ledger.TotalSupply()

	if band == model.BandExtreme {
		c.breakerActive = true
		rec := model.RebaseRecord{
			ID:           uuid.New(),
			Epoch:        c.log.NextEpoch(),
			Timestamp:    nowUs,
			Price:        agg.Price,
			DeviationPpm: devPpm,
			Band:         band,
			SupplyDelta:  0,
			NewSupply:    supply,
			Halted:       true,
		}
		if err := c.log.Append(rec); err != nil {
			return model.RebaseRecord{}, fmt.Errorf("append halt record: %w", err)
		}
		c.logger.Warn("circuit breaker engaged",
			"epoch", rec.Epoch,
			"price", agg.Price,
			"deviation_ppm", devPpm,
		)
		return rec, nil
	}

	delta := adjustmentMagnitude(supply, devPpm, band, c.cfg.MaxRebasePct)
	if agg.Price < c.cfg.TargetPrice {
		delta = -delta
	}

	newSupply := supply
	if delta != 0 {
		newSupply, err = c.ledger.Rebase(delta)
		if err != nil {
			// Abort the whole attempt: no bookkeeping, no record.
			return model.RebaseRecord{}, fmt.Errorf("rebase aborted: %w", err)
		}
	}

	c.lastRebaseTime = nowUs
	c.rebaseCount++

	rec := model.RebaseRecord{
		ID:           uuid.New(),
		Epoch:        c.log.NextEpoch(),
		Timestamp:    nowUs,
		Price:        agg.Price,
		DeviationPpm: devPpm,
		Band:         band,
		SupplyDelta:  delta,
		NewSupply:    newSupply,
	}
	if err := c.log.Append(rec); err != nil {
		return model.RebaseRecord{}, fmt.Errorf("append rebase record: %w", err)
	}

	c.logger.Info("rebase applied",
		"epoch", rec.Epoch,
		"price", agg.Price,
		"deviation_ppm", devPpm,
		"band", band.String(),
		"delta", delta,
		"new_supply", newSupply,
		"confidence", agg.Confidence,
	)
	return rec, nil
}

// ResetCircuitBreaker clears the latch back to Normal. The cooldown timer
// is deliberately left alone. Idempotent.
func (c *Controller) ResetCircuitBreaker(caller string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.auth.Authorize(caller, authz.OpResetBreaker); err != nil {
		return err
	}

	if c.breakerActive {
		c.breakerActive = false
		c.logger.Info("circuit breaker reset", "caller", caller)
	}
	return nil
}

// cooldownElapsed reports whether nowUs is past the cooldown window.
// Callers must hold the lock.
func (c *Controller) cooldownElapsed(nowUs int64) bool {
	if c.lastRebaseTime == 0 {
		return true
	}
	return nowUs >= c.lastRebaseTime+c.cfg.RebaseCooldown.Microseconds()
}
