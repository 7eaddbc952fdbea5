package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/domain"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/repo"
)

type NonconformityStore struct {
	db DB
}

func NewNonconformityStore(db DB) *NonconformityStore {
	if db == nil {
		return nil
	}
	return &NonconformityStore{db: db}
}

func (s *NonconformityStore) Insert(ctx context.Context, record domain.Nonconformity) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("nonconformity store not initialized")
	}
	if err := record.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO nonconformities (
			code,
			reported_date,
			department_id,
			reporter_id,
			origin,
			title,
			description,
			root_cause,
			corrective_action,
			responsible_id,
			due_date,
			status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		strings.TrimSpace(record.Code),
		nullTime(record.ReportedDate),
		record.DepartmentID,
		record.ReporterID,
		nullIfEmpty(record.Origin),
		strings.TrimSpace(record.Title),
		nullIfEmpty(record.Description),
		nullIfEmpty(record.RootCause),
		nullIfEmpty(record.CorrectiveAction),
		nullID(record.ResponsibleID),
		nullTime(record.DueDate),
		string(record.Status),
	).Scan(&id)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, fmt.Errorf("insert nonconformity: %w", repo.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert nonconformity: %w", err)
	}
	return id, nil
}

// LockStatus reads the current status under a row lock. The lock is held
// until the enclosing transaction ends, serializing concurrent
// read-validate-write sequences on the same record.
func (s *NonconformityStore) LockStatus(ctx context.Context, id int64) (domain.Status, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("nonconformity store not initialized")
	}
	var status string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT status FROM nonconformities WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&status)
	if err != nil {
		return "", handleNotFound(err)
	}
	return domain.Status(status), nil
}

// UpdateStatusFrom writes the new status only if the row still holds the
// status that was read. Zero affected rows means a concurrent writer won
// the race and the caller gets repo.ErrConflict.
func (s *NonconformityStore) UpdateStatusFrom(ctx context.Context, id int64, from, to domain.Status) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("nonconformity store not initialized")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE nonconformities SET status = $1 WHERE id = $2 AND status = $3`,
		string(to),
		id,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if rows == 0 {
		return repo.ErrConflict
	}
	return nil
}

const selectNonconformityColumns = `nc.id, nc.code, nc.reported_date, nc.department_id, nc.reporter_id,
	nc.origin, nc.title, nc.description, nc.root_cause, nc.corrective_action,
	nc.responsible_id, nc.due_date, nc.status, nc.created_at,
	d.name, u.full_name`

const selectNonconformityJoins = `FROM nonconformities nc
	LEFT JOIN departments d ON nc.department_id = d.id
	LEFT JOIN nc_assignments nca ON nc.id = nca.nc_id AND nca.active = true
	LEFT JOIN users u ON nca.assignee_id = u.id`

func (s *NonconformityStore) Get(ctx context.Context, id int64) (repo.NonconformitySummary, error) {
	if s == nil || s.db == nil {
		return repo.NonconformitySummary{}, fmt.Errorf("nonconformity store not initialized")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectNonconformityColumns+` `+selectNonconformityJoins+` WHERE nc.id = $1`,
		id,
	)
	summary, err := scanNonconformitySummary(row)
	if err != nil {
		return repo.NonconformitySummary{}, handleNotFound(err)
	}
	return summary, nil
}

func (s *NonconformityStore) List(ctx context.Context, filter repo.NonconformityFilter) ([]repo.NonconformitySummary, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("nonconformity store not initialized")
	}
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("nc.status = $%d", len(args)))
	}
	if filter.DepartmentID > 0 {
		args = append(args, filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("nc.department_id = $%d", len(args)))
	}
	if filter.AssigneeID > 0 {
		args = append(args, filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("nca.assignee_id = $%d", len(args)))
	}

	query := `SELECT ` + selectNonconformityColumns + ` ` + selectNonconformityJoins
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY nc.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list nonconformities: %w", err)
	}
	defer rows.Close()

	summaries := make([]repo.NonconformitySummary, 0)
	for rows.Next() {
		summary, err := scanNonconformitySummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nonconformity: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nonconformities: %w", err)
	}
	return summaries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNonconformitySummary(row rowScanner) (repo.NonconformitySummary, error) {
	var summary repo.NonconformitySummary
	var reportedDate, dueDate sql.NullTime
	var origin, description, rootCause, correctiveAction sql.NullString
	var responsibleID sql.NullInt64
	var status string
	var departmentName, assigneeName sql.NullString
	if err := row.Scan(
		&summary.ID,
		&summary.Code,
		&reportedDate,
		&summary.DepartmentID,
		&summary.ReporterID,
		&origin,
		&summary.Title,
		&description,
		&rootCause,
		&correctiveAction,
		&responsibleID,
		&dueDate,
		&status,
		&summary.CreatedAt,
		&departmentName,
		&assigneeName,
	); err != nil {
		return repo.NonconformitySummary{}, err
	}
	if reportedDate.Valid {
		reported := reportedDate.Time.UTC()
		summary.ReportedDate = &reported
	}
	if dueDate.Valid {
		due := dueDate.Time.UTC()
		summary.DueDate = &due
	}
	summary.Origin = origin.String
	summary.Description = description.String
	summary.RootCause = rootCause.String
	summary.CorrectiveAction = correctiveAction.String
	if responsibleID.Valid {
		summary.ResponsibleID = responsibleID.Int64
	}
	summary.Status = domain.Status(status)
	summary.DepartmentName = departmentName.String
	summary.AssigneeName = assigneeName.String
	return summary, nil
}

func nullID(id int64) sql.NullInt64 {
	if id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
