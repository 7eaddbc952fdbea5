package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/repo"
)

// TxRunner scopes one transaction per lifecycle operation: all stores
// handed to fn share the same *sql.Tx, committed when fn returns nil and
// rolled back otherwise.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	if db == nil {
		return nil
	}
	return &TxRunner{db: db}
}

func (r *TxRunner) WithinTx(ctx context.Context, fn func(repo.Stores) error) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("tx runner not initialized")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stores := repo.Stores{
		Records:     NewNonconformityStore(tx),
		Assignments: NewAssignmentStore(tx),
		Rules:       NewAssignmentRuleStore(tx),
		Transitions: NewTransitionStore(tx),
		Audit:       NewAuditAppender(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
