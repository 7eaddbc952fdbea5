package requestid

import "testing"

func TestNew(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatalf("new request id: %v", err)
	}
	if len(id) != 32 {
		t.Fatalf("request id length = %d, want 32 hex chars", len(id))
	}

	other, err := New()
	if err != nil {
		t.Fatalf("new request id: %v", err)
	}
	if id == other {
		t.Fatal("consecutive ids should differ")
	}
}
