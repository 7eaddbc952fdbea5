package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestCanTransitionAllowsEveryTableEdge(t *testing.T) {
	edges := [][2]Status{
		{StatusYeni, StatusTriyaj},
		{StatusTriyaj, StatusBolumAcik},
		{StatusBolumAcik, StatusAksiyonPlanlandi},
		{StatusAksiyonPlanlandi, StatusAksiyonTamamlandi},
		{StatusAksiyonTamamlandi, StatusKaliteIncelemesi},
		{StatusKaliteIncelemesi, StatusDogrulandi},
		{StatusKaliteIncelemesi, StatusIade},
		{StatusDogrulandi, StatusKapatildi},
		{StatusIade, StatusBolumAcik},
		{StatusKapatildi, StatusYenidenAcildi},
		{StatusYenidenAcildi, StatusBolumAcik},
	}
	for _, edge := range edges {
		if !CanTransition(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be allowed", edge[0], edge[1])
		}
	}
}

func TestCanTransitionRejectsEverythingOffTable(t *testing.T) {
	all := []Status{
		StatusYeni, StatusTriyaj, StatusBolumAcik, StatusAksiyonPlanlandi,
		StatusAksiyonTamamlandi, StatusKaliteIncelemesi, StatusDogrulandi,
		StatusIade, StatusKapatildi, StatusYenidenAcildi,
	}
	allowed := map[[2]Status]bool{}
	for from, tos := range statusTransitions {
		for _, to := range tos {
			allowed[[2]Status{from, to}] = true
		}
	}
	for _, from := range all {
		for _, to := range all {
			if allowed[[2]Status{from, to}] {
				continue
			}
			if CanTransition(from, to) {
				t.Fatalf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestCanTransitionUnknownFromAllowsNothing(t *testing.T) {
	if CanTransition(Status("bilinmeyen"), StatusTriyaj) {
		t.Fatalf("unknown from-status must have an empty successor set")
	}
}

func TestSkippingTriageIsRejected(t *testing.T) {
	if CanTransition(StatusYeni, StatusBolumAcik) {
		t.Fatalf("yeni -> bolum_acik must go through triyaj")
	}
}

func TestReopenEdge(t *testing.T) {
	if !CanTransition(StatusKapatildi, StatusYenidenAcildi) {
		t.Fatalf("closed records must be re-openable")
	}
	if CanTransition(StatusKapatildi, StatusBolumAcik) {
		t.Fatalf("kapatildi is terminal except for the re-open edge")
	}
}

func TestNormalizeTargetRedirectsCompletion(t *testing.T) {
	if got := NormalizeTarget(StatusAksiyonTamamlandi); got != StatusKaliteIncelemesi {
		t.Fatalf("expected redirect to kalite_incelemesi, got %s", got)
	}
	if got := NormalizeTarget(StatusTriyaj); got != StatusTriyaj {
		t.Fatalf("expected other targets untouched, got %s", got)
	}
}

func TestValidateTransitionNamesBothEndpoints(t *testing.T) {
	err := ValidateTransition(StatusYeni, StatusKapatildi)
	if err == nil {
		t.Fatalf("expected error")
	}
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
	if invalid.From != StatusYeni || invalid.To != StatusKapatildi {
		t.Fatalf("unexpected endpoints: %s -> %s", invalid.From, invalid.To)
	}
	if !strings.Contains(err.Error(), "yeni") || !strings.Contains(err.Error(), "kapatildi") {
		t.Fatalf("error must surface both endpoints: %v", err)
	}
}
