// Package tenant derives church-scoping constraints from the authenticated
// principal. Every store query over church-owned rows composes a Scope into
// its WHERE clause; every ownership check goes through Scope.Allows.
package tenant

import "github.com/ebenavides/ekklesia/internal/auth"

// Scope restricts queries to the churches a principal may see. It has three
// shapes: unrestricted (cross-tenant role), bound to one church, or empty.
// A principal without a church assignment and without the cross-tenant role
// gets the empty scope, never an unrestricted one.
type Scope struct {
	unrestricted bool
	empty        bool
	churchID     int64
}

// ScopeFor derives the scope for a principal. Pure.
func ScopeFor(ac auth.AuthContext) Scope {
	if ac.Role.CrossTenant {
		return Scope{unrestricted: true}
	}
	if ac.ChurchID == nil {
		return Scope{empty: true}
	}
	return Scope{churchID: *ac.ChurchID}
}

// ForChurch returns a scope bound to a single church. Used by background
// jobs that operate per church without a principal.
func ForChurch(id int64) Scope {
	return Scope{churchID: id}
}

// Unrestricted returns the cross-tenant scope.
func Unrestricted() Scope {
	return Scope{unrestricted: true}
}

// Where renders the scope as a SQL condition on the given column.
func (s Scope) Where(column string) (string, []any) {
	switch {
	case s.unrestricted:
		return "1 = 1", nil
	case s.empty:
		return "1 = 0", nil
	default:
		return column + " = ?", []any{s.churchID}
	}
}

// Allows reports whether a row owned by churchID is visible in this scope.
func (s Scope) Allows(churchID int64) bool {
	switch {
	case s.unrestricted:
		return true
	case s.empty:
		return false
	default:
		return s.churchID == churchID
	}
}

// IsUnrestricted reports whether the scope spans all churches.
func (s Scope) IsUnrestricted() bool {
	return s.unrestricted
}

// IsEmpty reports whether the scope matches no churches.
func (s Scope) IsEmpty() bool {
	return s.empty
}

// ChurchID returns the bound church id, or 0 when the scope is not bound to
// exactly one church.
func (s Scope) ChurchID() int64 {
	if s.unrestricted || s.empty {
		return 0
	}
	return s.churchID
}
