// Package authz provides capability-table authorization for mutating
// operations.
//
// There is a single permission-check function: every mutating operation
// calls Authorize at the top of its critical section, so the check and
// the mutation are atomic.
package authz

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("authz: unauthorized")

// Operation names a permission-gated operation.
type Operation string

const (
	OpAddSource    Operation = "oracle.add_source"
	OpUpdateSource Operation = "oracle.update_source"
	OpRemoveSource Operation = "oracle.remove_source"
	OpRebase       Operation = "controller.rebase"
	OpResetBreaker Operation = "controller.reset_breaker"
)

// Role is a named set of capabilities.
type Role string

const (
	RoleAdmin    Role = "admin"    // all operations
	RoleOperator Role = "operator" // rebase only
)

// capabilities maps each role to its allowed operations.
var capabilities = map[Role]map[Operation]bool{
	RoleAdmin: {
		OpAddSource:    true,
		OpUpdateSource: true,
		OpRemoveSource: true,
		OpRebase:       true,
		OpResetBreaker: true,
	},
	RoleOperator: {
		OpRebase: true,
	},
}

// Authorizer resolves a caller identity to a permitted operation set.
type Authorizer interface {
	// Authorize returns nil iff caller may perform op.
	Authorize(caller string, op Operation) error
}

// Table is a static caller -> role assignment backed by the capability
// table. Callers without an assignment have no capabilities.
type Table struct {
	roles map[string]Role
}

// NewTable builds an authorizer from role assignments.
func NewTable(admins, operators []string) *Table {
	roles := make(map[string]Role, len(admins)+len(operators))
	for _, caller := range operators {
		roles[caller] = RoleOperator
	}
	for _, caller := range admins {
		roles[caller] = RoleAdmin
	}
	return &Table{roles: roles}
}

// Authorize checks the caller's role against the capability table.
func (t *Table) Authorize(caller string, op Operation) error {
	role, ok := t.roles[caller]
	if !ok {
		return fmt.Errorf("%w: caller %q has no role", ErrUnauthorized, caller)
	}
	if !capabilities[role][op] {
		return fmt.Errorf("%w: role %q may not perform %s", ErrUnauthorized, role, op)
	}
	return nil
}

// AllowAll authorizes every caller for every operation. Intended for
// tests and single-operator deployments.
type AllowAll struct{}

func (AllowAll) Authorize(string, Operation) error { return nil }

// FuncAuthorizer adapts a function into an Authorizer.
type FuncAuthorizer func(caller string, op Operation) error

func (f FuncAuthorizer) Authorize(caller string, op Operation) error {
	return f(caller, op)
}
