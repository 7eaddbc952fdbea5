package domain

import (
	"errors"
	"time"
)

const (
	AssignmentReasonAuto   = "auto"
	AssignmentReasonManual = "manual"
)

// Assignment records who is responsible for a nonconformity. At most one
// assignment per record may be active at a time; superseded rows are
// deactivated, never deleted.
type Assignment struct {
	ID         int64
	RecordID   int64
	AssigneeID int64
	Reason     string
	Active     bool
	CreatedAt  time.Time
}

func (a Assignment) Validate() error {
	if a.RecordID <= 0 {
		return errors.New("record id is required")
	}
	if a.AssigneeID <= 0 {
		return errors.New("assignee id is required")
	}
	if a.Reason == "" {
		return errors.New("reason is required")
	}
	return nil
}

// AssignmentRule maps a department to its default assignee. Rules are
// read-only to the lifecycle engine; the highest active id per department
// is authoritative.
type AssignmentRule struct {
	ID                int64
	DepartmentID      int64
	DefaultAssigneeID int64
	Active            bool
}
