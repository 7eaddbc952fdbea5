package domain

import (
	"errors"
	"strings"
	"time"
)

// Status is a lifecycle stage of a nonconformity record.
type Status string

const (
	StatusYeni              Status = "yeni"
	StatusTriyaj            Status = "triyaj"
	StatusBolumAcik         Status = "bolum_acik"
	StatusAksiyonPlanlandi  Status = "aksiyon_planlandi"
	StatusAksiyonTamamlandi Status = "aksiyon_tamamlandi"
	StatusKaliteIncelemesi  Status = "kalite_incelemesi"
	StatusDogrulandi        Status = "dogrulandi"
	StatusIade              Status = "iade"
	StatusKapatildi         Status = "kapatildi"
	StatusYenidenAcildi     Status = "yeniden_acildi"
)

func (s Status) Valid() bool {
	switch s {
	case StatusYeni, StatusTriyaj, StatusBolumAcik, StatusAksiyonPlanlandi,
		StatusAksiyonTamamlandi, StatusKaliteIncelemesi, StatusDogrulandi,
		StatusIade, StatusKapatildi, StatusYenidenAcildi:
		return true
	}
	return false
}

// Nonconformity is a tracked quality-incident report. Status is the only
// field the lifecycle engine mutates after creation.
type Nonconformity struct {
	ID               int64
	Code             string
	ReportedDate     *time.Time
	DepartmentID     int64
	ReporterID       int64
	Origin           string
	Title            string
	Description      string
	RootCause        string
	CorrectiveAction string
	ResponsibleID    int64
	DueDate          *time.Time
	Status           Status
	CreatedAt        time.Time
}

func (n Nonconformity) Validate() error {
	if strings.TrimSpace(n.Code) == "" {
		return errors.New("code is required")
	}
	if n.DepartmentID <= 0 {
		return errors.New("department id is required")
	}
	if n.ReporterID <= 0 {
		return errors.New("reporter id is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return errors.New("title is required")
	}
	if !n.Status.Valid() {
		return errors.New("status is invalid")
	}
	return nil
}
