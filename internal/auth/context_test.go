package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	churchID := int64(2)
	ac := AuthContext{
		UserID:   1,
		Email:    "pastor@example.com",
		Role:     RolePastor,
		ChurchID: &churchID,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.Email != "pastor@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "pastor@example.com")
	}
	if got.Role.ID != RolePastor.ID {
		t.Errorf("Role.ID = %d, want %d", got.Role.ID, RolePastor.ID)
	}
	if got.ChurchID == nil || *got.ChurchID != 2 {
		t.Errorf("ChurchID = %v, want 2", got.ChurchID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestChurchID(t *testing.T) {
	churchID := int64(42)
	ctx := WithAuth(context.Background(), AuthContext{ChurchID: &churchID})
	if ChurchID(ctx) != 42 {
		t.Errorf("ChurchID = %d, want 42", ChurchID(ctx))
	}
}

func TestChurchIDAbsent(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: RoleSuperAdmin})
	if ChurchID(ctx) != 0 {
		t.Errorf("ChurchID = %d, want 0 for cross-tenant principal", ChurchID(ctx))
	}
	if ChurchID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestIsCrossTenant(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: RoleSuperAdmin})
	if !IsCrossTenant(ctx) {
		t.Error("expected IsCrossTenant = true for superadmin")
	}

	ctx = WithAuth(context.Background(), AuthContext{Role: RoleSecretary})
	if IsCrossTenant(ctx) {
		t.Error("expected IsCrossTenant = false for secretary")
	}

	if IsCrossTenant(context.Background()) {
		t.Error("expected IsCrossTenant = false for missing context")
	}
}
