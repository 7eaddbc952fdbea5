package domain

import "fmt"

var statusTransitions = map[Status][]Status{
	StatusYeni:              {StatusTriyaj},
	StatusTriyaj:            {StatusBolumAcik},
	StatusBolumAcik:         {StatusAksiyonPlanlandi},
	StatusAksiyonPlanlandi:  {StatusAksiyonTamamlandi},
	StatusAksiyonTamamlandi: {StatusKaliteIncelemesi},
	StatusKaliteIncelemesi:  {StatusDogrulandi, StatusIade},
	StatusDogrulandi:        {StatusKapatildi},
	StatusIade:              {StatusBolumAcik},
	StatusKapatildi:         {StatusYenidenAcildi},
	StatusYenidenAcildi:     {StatusBolumAcik},
}

// InitialStatus is the status every record is created with.
const InitialStatus = StatusYeni

// CanTransition returns true when the transition is an edge of the table.
// An unknown from-status allows nothing.
func CanTransition(from, to Status) bool {
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if candidate == to {
			return true
		}
	}
	return false
}

// NormalizeTarget applies the completion routing rule: action completion
// always lands directly in quality review.
func NormalizeTarget(to Status) Status {
	if to == StatusAksiyonTamamlandi {
		return StatusKaliteIncelemesi
	}
	return to
}

// InvalidTransitionError reports a transition request that is not an edge
// of the status table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("status transition %q -> %q not allowed", e.From, e.To)
}

// ValidateTransition ensures the requested transition is legal.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
