package domain

import "time"

// Transition is one append-only audit entry for a nonconformity. The
// creation entry has a nil FromStatus; assignment-change markers have both
// statuses nil and carry the detail in Note. Read oldest-first, the
// status-bearing entries chain: each FromStatus equals the previous
// ToStatus.
type Transition struct {
	ID        int64
	RecordID  int64
	From      *Status
	To        *Status
	ActorID   int64
	Note      string
	CreatedAt time.Time
}

// NoteCreate marks the creation entry of the audit trail.
const NoteCreate = "create"

// NoteAssignChange marks an assignment-change entry. The status the record
// held at reassignment time is appended to the note so it is not lost.
const NoteAssignChange = "assign_change"
