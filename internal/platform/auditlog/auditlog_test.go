package auditlog

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	valid := Event{
		OccurredAt:   time.Now().UTC(),
		Actor:        "user-1",
		Action:       "nc.create",
		ResourceType: "nonconformity",
		ResourceID:   "42",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Event)
	}{
		{name: "zero time", mutate: func(e *Event) { e.OccurredAt = time.Time{} }},
		{name: "blank actor", mutate: func(e *Event) { e.Actor = "  " }},
		{name: "blank action", mutate: func(e *Event) { e.Action = "" }},
		{name: "blank resource type", mutate: func(e *Event) { e.ResourceType = "" }},
		{name: "blank resource id", mutate: func(e *Event) { e.ResourceID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid
			tc.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestInsertRequiresQueryer(t *testing.T) {
	_, err := Insert(context.Background(), nil, Event{
		OccurredAt:   time.Now().UTC(),
		Actor:        "user-1",
		Action:       "nc.create",
		ResourceType: "nonconformity",
		ResourceID:   "42",
	})
	if err == nil {
		t.Fatal("expected error for nil queryer")
	}
}

func TestComputeIntegritySHA256Deterministic(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := Event{
		OccurredAt:   occurred,
		Actor:        "user-1",
		Action:       "nc.transition",
		ResourceType: "nonconformity",
		ResourceID:   "42",
		RequestID:    "req-1",
		IP:           net.ParseIP("10.0.0.7"),
		UserAgent:    "test-agent",
	}
	payload, _ := json.Marshal(map[string]any{"from": "yeni", "to": "triyaj"})

	sum1, err := ComputeIntegritySHA256(event, payload)
	if err != nil {
		t.Fatalf("compute integrity: %v", err)
	}
	sum2, err := ComputeIntegritySHA256(event, payload)
	if err != nil {
		t.Fatalf("compute integrity: %v", err)
	}
	if sum1 != sum2 {
		t.Fatalf("integrity hash not deterministic: %q vs %q", sum1, sum2)
	}
	if len(sum1) != 64 {
		t.Fatalf("integrity hash length = %d, want 64 hex chars", len(sum1))
	}

	tampered := event
	tampered.ResourceID = "43"
	sum3, err := ComputeIntegritySHA256(tampered, payload)
	if err != nil {
		t.Fatalf("compute integrity: %v", err)
	}
	if sum3 == sum1 {
		t.Fatal("different events should hash differently")
	}
}

func TestComputeIntegritySHA256NilIP(t *testing.T) {
	event := Event{
		OccurredAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Actor:        "user-1",
		Action:       "nc.create",
		ResourceType: "nonconformity",
		ResourceID:   "42",
	}
	payload, _ := json.Marshal(map[string]any{})

	sum, err := ComputeIntegritySHA256(event, payload)
	if err != nil {
		t.Fatalf("compute integrity: %v", err)
	}
	if sum == "" {
		t.Fatal("expected non-empty hash for event without ip")
	}
}
