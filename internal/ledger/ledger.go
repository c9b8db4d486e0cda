package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
)

// Errors
var (
	ErrAlreadyInitialized  = errors.New("ledger already initialized")
	ErrNotInitialized      = errors.New("ledger not initialized")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidHolder       = errors.New("holder must be non-empty")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSupplyBounds        = errors.New("supply bounds exceeded")
)

// DefaultMaxSupply bounds total supply in display units.
const DefaultMaxSupply = int64(1) << 50

// sharesCeiling is the fixed upper bound for the internal share total.
// Genesis picks the largest value at or below it that divides evenly
// by the initial supply, so sharesPerUnit starts exact.
var sharesCeiling = new(big.Int).Lsh(big.NewInt(1), 128)

// Ledger holds total supply and per-holder share balances.
//
// Shares are big integers: intermediate products (amount × sharesPerUnit)
// can exceed 64 bits long before supply does.
type Ledger struct {
	mu     sync.RWMutex
	logger *slog.Logger

	maxSupply int64

	initialized   bool
	totalSupply   int64    // display units
	totalShares   *big.Int // fixed at genesis, never changes
	sharesPerUnit *big.Int // totalShares / totalSupply, recomputed on rebase
	shares        map[string]*big.Int
}

// New creates an empty ledger. Genesis must be called before any other
// operation.
func New(maxSupply int64, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSupply <= 0 {
		maxSupply = DefaultMaxSupply
	}
	return &Ledger{
		logger:    logger,
		maxSupply: maxSupply,
		shares:    make(map[string]*big.Int),
	}
}

// Genesis performs the one-time supply setup: all shares are credited to
// initialHolder and the share ratio is fixed against initialSupply.
func (l *Ledger) Genesis(initialSupply int64, initialHolder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return ErrAlreadyInitialized
	}
	if initialHolder == "" {
		return ErrInvalidHolder
	}
	if initialSupply <= 0 || initialSupply > l.maxSupply {
		return fmt.Errorf("%w: initial supply %d outside (0, %d]", ErrSupplyBounds, initialSupply, l.maxSupply)
	}

	supply := big.NewInt(initialSupply)

	// Largest share total at or below the ceiling that initialSupply
	// divides evenly.
	remainder := new(big.Int).Mod(sharesCeiling, supply)
	l.totalShares = new(big.Int).Sub(sharesCeiling, remainder)
	l.sharesPerUnit = new(big.Int).Div(l.totalShares, supply)
	l.totalSupply = initialSupply
	l.shares[initialHolder] = new(big.Int).Set(l.totalShares)
	l.initialized = true

	l.logger.Info("ledger genesis",
		"initial_supply", initialSupply,
		"initial_holder", initialHolder,
		"total_shares", l.totalShares.String(),
	)
	return nil
}

// TotalSupply returns the current supply in display units.
func (l *Ledger) TotalSupply() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply
}

// MaxSupply returns the configured supply ceiling.
func (l *Ledger) MaxSupply() int64 {
	return l.maxSupply
}

// BalanceOf returns a holder's balance in display units (floor of its
// proportional share). Unknown holders have balance zero.
func (l *Ledger) BalanceOf(holder string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.shares[holder]
	if !ok || !l.initialized {
		return 0
	}
	return new(big.Int).Div(s, l.sharesPerUnit).Int64()
}

// SharesOf returns a copy of the holder's raw share balance.
func (l *Ledger) SharesOf(holder string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.shares[holder]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(s)
}

// HolderCount returns the number of holders with a share entry.
func (l *Ledger) HolderCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.shares)
}

// Transfer moves amount display units from one holder to another.
// The amount is converted to shares at the current ratio and the shares
// move one-for-one, so rebases never need to touch holder entries.
func (l *Ledger) Transfer(from, to string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return ErrNotInitialized
	}
	if from == "" || to == "" {
		return ErrInvalidHolder
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	shareAmount := new(big.Int).Mul(big.NewInt(amount), l.sharesPerUnit)

	fromShares, ok := l.shares[from]
	if !ok || fromShares.Cmp(shareAmount) < 0 {
		return fmt.Errorf("%w: holder %s", ErrInsufficientBalance, from)
	}

	fromShares.Sub(fromShares, shareAmount)
	toShares, ok := l.shares[to]
	if !ok {
		toShares = new(big.Int)
		l.shares[to] = toShares
	}
	toShares.Add(toShares, shareAmount)

	l.logger.Debug("transfer",
		"from", from,
		"to", to,
		"amount", amount,
	)
	return nil
}

// Rebase adjusts total supply by delta display units and recomputes the
// share ratio. Holder share entries are untouched. The operation is
// all-or-nothing: a delta that would leave supply outside [1, maxSupply]
// is rejected with no mutation. A zero delta is a legal no-op.
//
// Zero supply is excluded because the share ratio would be undefined.
func (l *Ledger) Rebase(delta int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return 0, ErrNotInitialized
	}

	newSupply := l.totalSupply + delta
	if delta > 0 && newSupply < l.totalSupply { // int64 overflow
		return 0, fmt.Errorf("%w: delta %d overflows supply %d", ErrSupplyBounds, delta, l.totalSupply)
	}
	if newSupply < 1 || newSupply > l.maxSupply {
		return 0, fmt.Errorf("%w: supply %d + delta %d outside [1, %d]", ErrSupplyBounds, l.totalSupply, delta, l.maxSupply)
	}

	if delta != 0 {
		l.sharesPerUnit = new(big.Int).Div(l.totalShares, big.NewInt(newSupply))
		l.totalSupply = newSupply
	}

	return newSupply, nil
}
