package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(7, "pastor@example.com", RolePastor.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Email != "pastor@example.com" {
		t.Errorf("email = %q, want %q", claims.Email, "pastor@example.com")
	}
	if claims.RoleID != RolePastor.ID {
		t.Errorf("role_id = %d, want %d", claims.RoleID, RolePastor.ID)
	}

	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("parse user id: %v", err)
	}
	if userID != 7 {
		t.Errorf("user id = %d, want 7", userID)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(1, "a@example.com", RoleSecretary.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := issuer.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-one", time.Hour)
	other := NewTokenIssuer("secret-two", time.Hour)

	token, err := issuer.Issue(1, "a@example.com", RoleSecretary.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestVerifyGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, err := issuer.Verify("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
