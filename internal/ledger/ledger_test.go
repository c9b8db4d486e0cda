package ledger

import (
	"errors"
	"testing"
)

func newTestLedger(t *testing.T, initialSupply int64, holder string) *Ledger {
	t.Helper()
	l := New(0, nil)
	if err := l.Genesis(initialSupply, holder); err != nil {
		t.Fatalf("Genesis failed: %v", err)
	}
	return l
}

func TestGenesis(t *testing.T) {
	l := newTestLedger(t, 1_000_000, "treasury")

	if got := l.TotalSupply(); got != 1_000_000 {
		t.Errorf("TotalSupply = %d, want 1000000", got)
	}
	if got := l.BalanceOf("treasury"); got != 1_000_000 {
		t.Errorf("BalanceOf(treasury) = %d, want 1000000", got)
	}
	if got := l.BalanceOf("nobody"); got != 0 {
		t.Errorf("BalanceOf(nobody) = %d, want 0", got)
	}

	// Second genesis must be rejected.
	if err := l.Genesis(500, "other"); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Genesis error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestGenesis_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		supply  int64
		holder  string
		wantErr error
	}{
		{"zero supply", 0, "a", ErrSupplyBounds},
		{"negative supply", -5, "a", ErrSupplyBounds},
		{"empty holder", 100, "", ErrInvalidHolder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(0, nil)
			if err := l.Genesis(tt.supply, tt.holder); !errors.Is(err, tt.wantErr) {
				t.Errorf("Genesis error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransfer(t *testing.T) {
	l := newTestLedger(t, 1_000_000, "treasury")

	if err := l.Transfer("treasury", "alice", 250_000); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	if got := l.BalanceOf("treasury"); got != 750_000 {
		t.Errorf("BalanceOf(treasury) = %d, want 750000", got)
	}
	if got := l.BalanceOf("alice"); got != 250_000 {
		t.Errorf("BalanceOf(alice) = %d, want 250000", got)
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	l := newTestLedger(t, 1000, "treasury")

	if err := l.Transfer("treasury", "alice", 1001); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("Transfer error = %v, want ErrInsufficientBalance", err)
	}
	if err := l.Transfer("ghost", "alice", 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("Transfer from unknown holder error = %v, want ErrInsufficientBalance", err)
	}

	// Failed transfers must not move anything.
	if got := l.BalanceOf("treasury"); got != 1000 {
		t.Errorf("BalanceOf(treasury) = %d, want 1000", got)
	}
	if got := l.BalanceOf("alice"); got != 0 {
		t.Errorf("BalanceOf(alice) = %d, want 0", got)
	}
}

func TestTransfer_InvalidArgs(t *testing.T) {
	l := newTestLedger(t, 1000, "treasury")

	if err := l.Transfer("treasury", "alice", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	if err := l.Transfer("treasury", "alice", -5); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount error = %v, want ErrInvalidAmount", err)
	}
	if err := l.Transfer("treasury", "", 5); !errors.Is(err, ErrInvalidHolder) {
		t.Errorf("empty holder error = %v, want ErrInvalidHolder", err)
	}
}

func TestRebase_Proportionality(t *testing.T) {
	l := newTestLedger(t, 1_000_000, "treasury")

	if err := l.Transfer("treasury", "alice", 300_000); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if err := l.Transfer("treasury", "bob", 100_000); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	newSupply, err := l.Rebase(2_000) // +0.2%
	if err != nil {
		t.Fatalf("Rebase failed: %v", err)
	}
	if newSupply != 1_002_000 {
		t.Errorf("newSupply = %d, want 1002000", newSupply)
	}

	// Each holder scales by newSupply/oldSupply within 1 unit of dust.
	holders := map[string]int64{
		"treasury": 600_000,
		"alice":    300_000,
		"bob":      100_000,
	}
	var sum int64
	for holder, before := range holders {
		want := before * 1_002_000 / 1_000_000
		got := l.BalanceOf(holder)
		if got < want-1 || got > want+1 {
			t.Errorf("BalanceOf(%s) = %d, want %d ±1", holder, got, want)
		}
		sum += got
	}

	// Sum of balances equals supply within (holderCount-1) units of dust.
	dust := newSupply - sum
	if dust < 0 || dust > int64(l.HolderCount()-1) {
		t.Errorf("dust = %d, want within [0, %d]", dust, l.HolderCount()-1)
	}
}

func TestRebase_Contraction(t *testing.T) {
	l := newTestLedger(t, 1_000_000, "treasury")
	if err := l.Transfer("treasury", "alice", 500_000); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	newSupply, err := l.Rebase(-100_000)
	if err != nil {
		t.Fatalf("Rebase failed: %v", err)
	}
	if newSupply != 900_000 {
		t.Errorf("newSupply = %d, want 900000", newSupply)
	}

	for _, holder := range []string{"treasury", "alice"} {
		got := l.BalanceOf(holder)
		if got < 450_000-1 || got > 450_000+1 {
			t.Errorf("BalanceOf(%s) = %d, want 450000 ±1", holder, got)
		}
	}
}

func TestRebase_ZeroDelta(t *testing.T) {
	l := newTestLedger(t, 1_000_000, "treasury")
	if err := l.Transfer("treasury", "alice", 123_456); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	beforeTreasury := l.BalanceOf("treasury")
	beforeAlice := l.BalanceOf("alice")

	newSupply, err := l.Rebase(0)
	if err != nil {
		t.Fatalf("Rebase(0) failed: %v", err)
	}
	if newSupply != 1_000_000 {
		t.Errorf("newSupply = %d, want 1000000", newSupply)
	}
	if got := l.BalanceOf("treasury"); got != beforeTreasury {
		t.Errorf("BalanceOf(treasury) changed: %d -> %d", beforeTreasury, got)
	}
	if got := l.BalanceOf("alice"); got != beforeAlice {
		t.Errorf("BalanceOf(alice) changed: %d -> %d", beforeAlice, got)
	}
}

func TestRebase_SupplyBounds(t *testing.T) {
	l := New(2_000_000, nil)
	if err := l.Genesis(1_000_000, "treasury"); err != nil {
		t.Fatalf("Genesis failed: %v", err)
	}

	tests := []struct {
		name  string
		delta int64
	}{
		{"above max", 1_000_001},
		{"to zero", -1_000_000},
		{"below zero", -2_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.Rebase(tt.delta); !errors.Is(err, ErrSupplyBounds) {
				t.Errorf("Rebase(%d) error = %v, want ErrSupplyBounds", tt.delta, err)
			}
			// Rejected rebase must leave state untouched.
			if got := l.TotalSupply(); got != 1_000_000 {
				t.Errorf("TotalSupply after rejected rebase = %d, want 1000000", got)
			}
			if got := l.BalanceOf("treasury"); got != 1_000_000 {
				t.Errorf("BalanceOf(treasury) after rejected rebase = %d, want 1000000", got)
			}
		})
	}
}

func TestRebase_SharesUntouched(t *testing.T) {
	l := newTestLedger(t, 1_000_000, "treasury")
	if err := l.Transfer("treasury", "alice", 400_000); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	aliceBefore := l.SharesOf("alice")
	treasuryBefore := l.SharesOf("treasury")

	if _, err := l.Rebase(50_000); err != nil {
		t.Fatalf("Rebase failed: %v", err)
	}

	if l.SharesOf("alice").Cmp(aliceBefore) != 0 {
		t.Error("alice's shares changed across rebase")
	}
	if l.SharesOf("treasury").Cmp(treasuryBefore) != 0 {
		t.Error("treasury's shares changed across rebase")
	}
}

func TestUninitialized(t *testing.T) {
	l := New(0, nil)

	if err := l.Transfer("a", "b", 1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Transfer error = %v, want ErrNotInitialized", err)
	}
	if _, err := l.Rebase(1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Rebase error = %v, want ErrNotInitialized", err)
	}
	if got := l.BalanceOf("a"); got != 0 {
		t.Errorf("BalanceOf = %d, want 0", got)
	}
}
