package postgres

import (
	"context"
	"fmt"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	if db == nil {
		return nil
	}
	return &UserStore{db: db}
}

func (s *UserStore) FindEmail(ctx context.Context, userID int64) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("user store not initialized")
	}
	var email string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT email FROM users WHERE id = $1`,
		userID,
	).Scan(&email)
	if err != nil {
		return "", handleNotFound(err)
	}
	return email, nil
}

// ListActiveQualityEmails returns the addresses of every active user
// holding the quality role.
func (s *UserStore) ListActiveQualityEmails(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("user store not initialized")
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT u.email FROM users u
		 JOIN user_roles ur ON ur.user_id = u.id
		 JOIN roles r ON r.id = ur.role_id
		 WHERE r.code = 'QUALITY' AND u.is_active = true`,
	)
	if err != nil {
		return nil, fmt.Errorf("list quality emails: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan quality email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quality emails: %w", err)
	}
	return emails, nil
}
