// Package policy decides which ticket operations a role may perform.
package policy

import "github.com/spec-kit/reimbursement-service/internal/domain"

// Operation names an engine entry point subject to access control.
type Operation string

const (
	OpSubmit      Operation = "submit"
	OpListPending Operation = "list_pending"
	OpHistory     Operation = "history"
	OpProcess     Operation = "process"
	OpView        Operation = "view"
)

// Operations lists every operation known to the policy.
var Operations = []Operation{OpSubmit, OpListPending, OpHistory, OpProcess, OpView}

// Scope describes how much of the ticket set an allowed operation covers.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeSelf
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeSelf:
		return "self"
	case ScopeAll:
		return "all"
	default:
		return "none"
	}
}

var rules = map[domain.Role]map[Operation]Scope{
	domain.RoleEmployee: {
		OpSubmit:      ScopeSelf,
		OpListPending: ScopeSelf,
		OpHistory:     ScopeSelf,
		OpView:        ScopeSelf,
	},
	domain.RoleManager: {
		OpListPending: ScopeAll,
		OpHistory:     ScopeAll,
		OpProcess:     ScopeAll,
		OpView:        ScopeAll,
	},
}

// ScopeFor returns the scope granted to role for op. Unknown roles and
// operations get ScopeNone.
func ScopeFor(role domain.Role, op Operation) Scope {
	ops, ok := rules[role]
	if !ok {
		return ScopeNone
	}
	return ops[op]
}

// Allowed reports whether role may perform op at all.
func Allowed(role domain.Role, op Operation) bool {
	return ScopeFor(role, op) != ScopeNone
}
