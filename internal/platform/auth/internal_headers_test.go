package auth

import (
	"strconv"
	"testing"
	"time"
)

func TestComputeInternalAuthSignatureDeterministic(t *testing.T) {
	sig1, err := ComputeInternalAuthSignature("secret", "1700000000", "POST", "/nc", "req-1", "user-1", "user@example.com", "editor")
	if err != nil {
		t.Fatalf("compute signature: %v", err)
	}
	sig2, err := ComputeInternalAuthSignature("secret", "1700000000", "POST", "/nc", "req-1", "user-1", "user@example.com", "editor")
	if err != nil {
		t.Fatalf("compute signature: %v", err)
	}
	if sig1 != sig2 {
		t.Fatalf("expected deterministic signature, got %q and %q", sig1, sig2)
	}
}

func TestComputeInternalAuthSignatureRequiresSecret(t *testing.T) {
	if _, err := ComputeInternalAuthSignature("", "1700000000", "GET", "/nc", "", "user-1", "", ""); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := ComputeInternalAuthSignature("secret", "", "GET", "/nc", "", "user-1", "", ""); err == nil {
		t.Fatal("expected error for empty timestamp")
	}
}

func TestVerifyInternalAuthSignature(t *testing.T) {
	sig, err := ComputeInternalAuthSignature("secret", "1700000000", "POST", "/nc/7/transition", "req-9", "user-2", "u2@example.com", "quality")
	if err != nil {
		t.Fatalf("compute signature: %v", err)
	}

	if err := VerifyInternalAuthSignature("secret", "1700000000", "POST", "/nc/7/transition", "req-9", "user-2", "u2@example.com", "quality", sig); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := VerifyInternalAuthSignature("secret", "1700000000", "POST", "/nc/7/transition", "req-9", "user-2", "u2@example.com", "admin", sig); err == nil {
		t.Fatal("expected error for tampered roles")
	}
	if err := VerifyInternalAuthSignature("other-secret", "1700000000", "POST", "/nc/7/transition", "req-9", "user-2", "u2@example.com", "quality", sig); err == nil {
		t.Fatal("expected error for wrong secret")
	}
	if err := VerifyInternalAuthSignature("secret", "1700000000", "POST", "/nc/7/transition", "req-9", "user-2", "u2@example.com", "quality", ""); err == nil {
		t.Fatal("expected error for empty signature")
	}
}

func TestVerifyInternalAuthTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	if err := VerifyInternalAuthTimestamp("1700000000", now, 5*time.Minute); err != nil {
		t.Fatalf("expected fresh timestamp to pass, got %v", err)
	}
	if err := VerifyInternalAuthTimestamp(strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10), now, 5*time.Minute); err == nil {
		t.Fatal("expected error for stale timestamp")
	}
	if err := VerifyInternalAuthTimestamp(strconv.FormatInt(now.Add(10*time.Minute).Unix(), 10), now, 5*time.Minute); err == nil {
		t.Fatal("expected error for future timestamp")
	}
	if err := VerifyInternalAuthTimestamp("not-a-number", now, 5*time.Minute); err == nil {
		t.Fatal("expected error for non-numeric timestamp")
	}
	if err := VerifyInternalAuthTimestamp("", now, 5*time.Minute); err == nil {
		t.Fatal("expected error for empty timestamp")
	}
}
