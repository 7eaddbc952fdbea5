package postgres

import (
	"context"
	"fmt"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/domain"
)

type AssignmentStore struct {
	db DB
}

func NewAssignmentStore(db DB) *AssignmentStore {
	if db == nil {
		return nil
	}
	return &AssignmentStore{db: db}
}

// DeactivateActive retires the current responsible party, if any. Zero
// affected rows is not an error: unassigned records are valid.
func (s *AssignmentStore) DeactivateActive(ctx context.Context, recordID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("assignment store not initialized")
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE nc_assignments SET active = false WHERE nc_id = $1 AND active = true`,
		recordID,
	)
	if err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	return nil
}

func (s *AssignmentStore) Insert(ctx context.Context, assignment domain.Assignment) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("assignment store not initialized")
	}
	if err := assignment.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO nc_assignments (nc_id, assignee_id, reason, active)
		 VALUES ($1, $2, $3, true)`,
		assignment.RecordID,
		assignment.AssigneeID,
		assignment.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (s *AssignmentStore) GetActive(ctx context.Context, recordID int64) (domain.Assignment, error) {
	if s == nil || s.db == nil {
		return domain.Assignment{}, fmt.Errorf("assignment store not initialized")
	}
	var assignment domain.Assignment
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, nc_id, assignee_id, reason, active, created_at
		 FROM nc_assignments
		 WHERE nc_id = $1 AND active = true`,
		recordID,
	).Scan(
		&assignment.ID,
		&assignment.RecordID,
		&assignment.AssigneeID,
		&assignment.Reason,
		&assignment.Active,
		&assignment.CreatedAt,
	)
	if err != nil {
		return domain.Assignment{}, handleNotFound(err)
	}
	return assignment, nil
}
