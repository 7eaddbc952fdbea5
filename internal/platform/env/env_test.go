package env

import (
	"testing"
	"time"
)

func TestStringFallsBackOnUnsetOrBlank(t *testing.T) {
	t.Setenv("CVSAIR_TEST_BLANK", "   ")
	if got := String("CVSAIR_TEST_BLANK", "fallback"); got != "fallback" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
	if got := String("CVSAIR_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("missing value should fall back, got %q", got)
	}

	t.Setenv("CVSAIR_TEST_SET", " value ")
	if got := String("CVSAIR_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("set value should be trimmed, got %q", got)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("CVSAIR_TEST_INT", "42")
	got, err := Int("CVSAIR_TEST_INT", 7)
	if err != nil {
		t.Fatalf("parse int: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}

	t.Setenv("CVSAIR_TEST_INT_BAD", "forty-two")
	if _, err := Int("CVSAIR_TEST_INT_BAD", 7); err == nil {
		t.Fatal("expected error for non-numeric value")
	}

	got, err = Int("CVSAIR_TEST_INT_MISSING", 7)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d, want default 7", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("CVSAIR_TEST_BOOL", "true")
	got, err := Bool("CVSAIR_TEST_BOOL", false)
	if err != nil {
		t.Fatalf("parse bool: %v", err)
	}
	if !got {
		t.Fatal("got false, want true")
	}

	t.Setenv("CVSAIR_TEST_BOOL_BAD", "yep")
	if _, err := Bool("CVSAIR_TEST_BOOL_BAD", false); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("CVSAIR_TEST_DURATION", "90s")
	got, err := Duration("CVSAIR_TEST_DURATION", time.Second)
	if err != nil {
		t.Fatalf("parse duration: %v", err)
	}
	if got != 90*time.Second {
		t.Fatalf("got %v, want 90s", got)
	}

	t.Setenv("CVSAIR_TEST_DURATION_BAD", "90")
	if _, err := Duration("CVSAIR_TEST_DURATION_BAD", time.Second); err == nil {
		t.Fatal("expected error for unitless duration")
	}
}
