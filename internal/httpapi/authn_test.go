package httpapi

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	v, err := NewVerifier([]byte("secret"))
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	signed, err := v.GenerateToken("op-1", []string{RoleSysAdmin, "viewer"}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := v.ParseAndValidate(signed)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "op-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if !claims.HasRole(RoleSysAdmin) {
		t.Fatal("expected sys_admin role")
	}
	if claims.HasRole("other") {
		t.Fatal("unexpected role")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	v1, _ := NewVerifier([]byte("secret-a"))
	v2, _ := NewVerifier([]byte("secret-b"))
	signed, err := v1.GenerateToken("op-1", []string{RoleSysAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := v2.ParseAndValidate(signed); !errors.Is(err, ErrInvalidAuthToken) {
		t.Fatalf("err = %v, want ErrInvalidAuthToken", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	v, _ := NewVerifier([]byte("secret"))
	for _, raw := range []string{"", "   ", "not.a.jwt"} {
		if _, err := v.ParseAndValidate(raw); !errors.Is(err, ErrInvalidAuthToken) {
			t.Fatalf("raw %q: err = %v, want ErrInvalidAuthToken", raw, err)
		}
	}
}

func TestGenerateTokenRequiresInputs(t *testing.T) {
	v, _ := NewVerifier([]byte("secret"))
	if _, err := v.GenerateToken("", []string{RoleSysAdmin}, time.Hour); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := v.GenerateToken("op-1", []string{RoleSysAdmin}, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
