package tenant

import (
	"testing"

	"github.com/ebenavides/ekklesia/internal/auth"
)

func TestScopeForCrossTenant(t *testing.T) {
	s := ScopeFor(auth.AuthContext{Role: auth.RoleSuperAdmin})
	if !s.IsUnrestricted() {
		t.Error("expected unrestricted scope for cross-tenant role")
	}

	clause, args := s.Where("church_id")
	if clause != "1 = 1" {
		t.Errorf("clause = %q, want %q", clause, "1 = 1")
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
	if !s.Allows(1) || !s.Allows(99) {
		t.Error("unrestricted scope must allow every church")
	}
}

func TestScopeForChurchBound(t *testing.T) {
	churchID := int64(3)
	s := ScopeFor(auth.AuthContext{Role: auth.RoleSecretary, ChurchID: &churchID})

	clause, args := s.Where("m.church_id")
	if clause != "m.church_id = ?" {
		t.Errorf("clause = %q, want %q", clause, "m.church_id = ?")
	}
	if len(args) != 1 || args[0].(int64) != 3 {
		t.Errorf("args = %v, want [3]", args)
	}

	if !s.Allows(3) {
		t.Error("expected scope to allow its own church")
	}
	if s.Allows(4) {
		t.Error("expected scope to reject another church")
	}
	if s.ChurchID() != 3 {
		t.Errorf("ChurchID = %d, want 3", s.ChurchID())
	}
}

// A principal with no church and a non-cross-tenant role must see nothing,
// never everything.
func TestScopeForNoChurch(t *testing.T) {
	s := ScopeFor(auth.AuthContext{Role: auth.RoleSecretary})
	if !s.IsEmpty() {
		t.Fatal("expected empty scope for churchless non-cross-tenant principal")
	}

	clause, args := s.Where("church_id")
	if clause != "1 = 0" {
		t.Errorf("clause = %q, want %q", clause, "1 = 0")
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
	if s.Allows(1) {
		t.Error("empty scope must not allow any church")
	}
}

func TestForChurch(t *testing.T) {
	s := ForChurch(8)
	if s.IsUnrestricted() || s.IsEmpty() {
		t.Fatal("expected church-bound scope")
	}
	if !s.Allows(8) || s.Allows(9) {
		t.Error("ForChurch must allow exactly its church")
	}
}
