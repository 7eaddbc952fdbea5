package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/repo"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/domain"
)

type TransitionStore struct {
	db DB
}

func NewTransitionStore(db DB) *TransitionStore {
	if db == nil {
		return nil
	}
	return &TransitionStore{db: db}
}

func (s *TransitionStore) Append(ctx context.Context, transition domain.Transition) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("transition store not initialized")
	}
	if transition.RecordID <= 0 {
		return fmt.Errorf("record id is required")
	}
	if transition.ActorID <= 0 {
		return fmt.Errorf("actor id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO nc_transitions (nc_id, from_status, to_status, actor_id, note)
		 VALUES ($1, $2, $3, $4, $5)`,
		transition.RecordID,
		nullStatus(transition.From),
		nullStatus(transition.To),
		transition.ActorID,
		transition.Note,
	)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

func (s *TransitionStore) ListByRecord(ctx context.Context, recordID int64) ([]repo.TransitionEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("transition store not initialized")
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT t.id, t.nc_id, t.from_status, t.to_status, t.actor_id, t.note, t.created_at, u.full_name
		 FROM nc_transitions t
		 LEFT JOIN users u ON t.actor_id = u.id
		 WHERE t.nc_id = $1
		 ORDER BY t.created_at DESC, t.id DESC`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	entries := make([]repo.TransitionEntry, 0)
	for rows.Next() {
		var entry repo.TransitionEntry
		var from, to, actorName sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.RecordID,
			&from,
			&to,
			&entry.ActorID,
			&entry.Note,
			&entry.CreatedAt,
			&actorName,
		); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		entry.From = statusPtr(from)
		entry.To = statusPtr(to)
		entry.ActorName = actorName.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	return entries, nil
}
