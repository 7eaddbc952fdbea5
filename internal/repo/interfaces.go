package repo

import (
	"context"
	"time"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/domain"
)

type NonconformityFilter struct {
	Status       domain.Status
	DepartmentID int64
	AssigneeID   int64
	Limit        int
}

// NonconformitySummary is a list/detail row joined with reference data.
type NonconformitySummary struct {
	domain.Nonconformity
	DepartmentName string
	AssigneeName   string
}

// TransitionEntry is an audit row joined with the actor's name.
type TransitionEntry struct {
	domain.Transition
	ActorName string
}

// Attachment is an uploaded evidence file stored in the object store.
type Attachment struct {
	ID            string
	RecordID      int64
	Filename      string
	ContentType   string
	SizeBytes     int64
	ObjectKey     string
	ContentSHA256 string
	UploadedBy    int64
	CreatedAt     time.Time
}

// NonconformityRepository manages nonconformity rows. Status mutation is
// guarded: LockStatus takes a row lock for the enclosing transaction and
// UpdateStatusFrom only writes when the status still matches what was read.
type NonconformityRepository interface {
	Insert(ctx context.Context, record domain.Nonconformity) (int64, error)
	LockStatus(ctx context.Context, id int64) (domain.Status, error)
	UpdateStatusFrom(ctx context.Context, id int64, from, to domain.Status) error
	Get(ctx context.Context, id int64) (NonconformitySummary, error)
	List(ctx context.Context, filter NonconformityFilter) ([]NonconformitySummary, error)
}

// AssignmentRepository manages responsibility rows; deactivate-then-insert
// keeps at most one active assignment per record.
type AssignmentRepository interface {
	DeactivateActive(ctx context.Context, recordID int64) error
	Insert(ctx context.Context, assignment domain.Assignment) error
	GetActive(ctx context.Context, recordID int64) (domain.Assignment, error)
}

// AssignmentRuleRepository resolves department default assignees. Rules are
// managed elsewhere; this is read-only.
type AssignmentRuleRepository interface {
	FindActiveAssignee(ctx context.Context, departmentID int64) (int64, error)
}

// TransitionRepository appends and reads the per-record audit trail.
type TransitionRepository interface {
	Append(ctx context.Context, transition domain.Transition) error
	ListByRecord(ctx context.Context, recordID int64) ([]TransitionEntry, error)
}

// UserDirectory reads user reference data for notification dispatch.
type UserDirectory interface {
	FindEmail(ctx context.Context, userID int64) (string, error)
	ListActiveQualityEmails(ctx context.Context) ([]string, error)
}

// AttachmentRepository manages attachment metadata rows.
type AttachmentRepository interface {
	Insert(ctx context.Context, attachment Attachment) error
	Get(ctx context.Context, id string) (Attachment, error)
	ListByRecord(ctx context.Context, recordID int64) ([]Attachment, error)
}

// AuditEventAppender ensures append-only platform audit writes.
type AuditEventAppender interface {
	Append(ctx context.Context, event domain.AuditEvent) (int64, error)
}

// Stores bundles the repositories participating in one transaction.
type Stores struct {
	Records     NonconformityRepository
	Assignments AssignmentRepository
	Rules       AssignmentRuleRepository
	Transitions TransitionRepository
	Audit       AuditEventAppender
}

// TxRunner executes fn against a transactional set of stores; every write
// inside fn commits atomically or not at all.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(Stores) error) error
}
