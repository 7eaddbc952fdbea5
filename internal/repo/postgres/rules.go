package postgres

import (
	"context"
	"fmt"
)

type AssignmentRuleStore struct {
	db DB
}

func NewAssignmentRuleStore(db DB) *AssignmentRuleStore {
	if db == nil {
		return nil
	}
	return &AssignmentRuleStore{db: db}
}

// FindActiveAssignee returns the default assignee of the most recent active
// rule for the department. Highest id wins when several rules are active.
func (s *AssignmentRuleStore) FindActiveAssignee(ctx context.Context, departmentID int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("assignment rule store not initialized")
	}
	var assigneeID int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT default_assignee_id FROM assignment_rules
		 WHERE department_id = $1 AND active = true
		 ORDER BY id DESC LIMIT 1`,
		departmentID,
	).Scan(&assigneeID)
	if err != nil {
		return 0, handleNotFound(err)
	}
	return assigneeID, nil
}
