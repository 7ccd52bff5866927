package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := GenerateToken("test-secret", "dev", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Fatalf("expected a three-part JWT, got %q", token)
	}

	subject, err := ParseToken("test-secret", token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if subject != "dev" {
		t.Errorf("subject = %q, want %q", subject, "dev")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := GenerateToken("correct-secret", "dev", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ParseToken("other-secret", token); err == nil {
		t.Error("expected an error for a token signed with a different secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	token, err := GenerateToken("test-secret", "dev", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ParseToken("test-secret", token); err == nil {
		t.Error("expected an error for an expired token")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := ParseToken("test-secret", "not-a-token"); err == nil {
		t.Error("expected an error for a malformed token")
	}
}
