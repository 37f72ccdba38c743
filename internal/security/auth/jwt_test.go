package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("secret", "placements")

	token, err := tm.GenerateToken("JBLOGGS", "delius", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username != "JBLOGGS" {
		t.Fatalf("unexpected username %q", claims.Username)
	}
	if claims.AuthSource != "delius" {
		t.Fatalf("unexpected auth source %q", claims.AuthSource)
	}
	if claims.Issuer != "placements" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestGenerateTokenRequiresUsername(t *testing.T) {
	tm := NewTokenManager("secret", "placements")

	if _, err := tm.GenerateToken("", "delius", time.Hour); err == nil {
		t.Fatalf("expected error for empty username")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", "placements").GenerateToken("JBLOGGS", "delius", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := NewTokenManager("secret-b", "placements").ValidateToken(token); err == nil {
		t.Fatalf("expected validation failure with a different secret")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", "placements")

	token, err := tm.GenerateToken("JBLOGGS", "delius", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := tm.ValidateToken(token); err == nil {
		t.Fatalf("expected validation failure for expired token")
	}
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("Bearer abc.def.ghi")
	if err != nil || token != "abc.def.ghi" {
		t.Fatalf("unexpected result: %q / %v", token, err)
	}

	if _, err := ExtractToken("abc.def.ghi"); err == nil {
		t.Fatalf("expected error for missing scheme")
	}
	if _, err := ExtractToken(""); err == nil {
		t.Fatalf("expected error for empty header")
	}
}
