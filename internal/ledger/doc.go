// Package ledger implements the elastic-supply accounting ledger.
//
// Holder balances are stored as high-resolution shares. A rebase only
// recomputes the global shares-per-unit ratio, so its cost is independent
// of holder count. Display-unit balances are derived by floor division;
// the sub-unit remainder ("dust") is permanently absorbed and never swept.
package ledger
