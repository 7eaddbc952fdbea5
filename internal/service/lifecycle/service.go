// Package lifecycle drives nonconformity records through their status
// lifecycle. Every operation executes its writes in one transaction; mail
// dispatch happens after commit and never affects the outcome.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/domain"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/repo"
)

// maxCodeAttempts bounds the create retry loop when a generated record code
// collides with an existing one.
const maxCodeAttempts = 3

type Service struct {
	logger   *slog.Logger
	tx       repo.TxRunner
	users    repo.UserDirectory
	notifier Notifier

	now           func() time.Time
	codeSuffix    func() int
	notifyTimeout time.Duration
}

func NewService(logger *slog.Logger, tx repo.TxRunner, users repo.UserDirectory, notifier Notifier) *Service {
	return &Service{
		logger:        logger,
		tx:            tx,
		users:         users,
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC() },
		codeSuffix:    func() int { return rand.IntN(1_000_000) },
		notifyTimeout: 5 * time.Second,
	}
}

// RequestMeta carries request-scoped context into the audit trail.
type RequestMeta struct {
	Actor     string
	RequestID string
	IP        net.IP
	UserAgent string
}

func (m RequestMeta) actorOr(fallbackID int64) string {
	if strings.TrimSpace(m.Actor) != "" {
		return strings.TrimSpace(m.Actor)
	}
	return "user:" + strconv.FormatInt(fallbackID, 10)
}

type CreateInput struct {
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
}

type CreateResult struct {
	ID   int64
	Code string
}

// Create inserts a new record in the initial status, writes the creation
// audit entry, and resolves the responsible party. "No assignee resolved"
// is a valid outcome, not an error.
func (s *Service) Create(ctx context.Context, input CreateInput, meta RequestMeta) (CreateResult, error) {
	var result CreateResult
	var assigneeID int64

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.newCode()
		record := domain.Nonconformity{
			Code:             code,
			ReportedDate:     input.ReportedDate,
			DepartmentID:     input.DepartmentID,
			ReporterID:       input.ReporterID,
			Origin:           input.Origin,
			Title:            input.Title,
			Description:      input.Description,
			RootCause:        input.RootCause,
			CorrectiveAction: input.CorrectiveAction,
			ResponsibleID:    input.ResponsibleID,
			DueDate:          input.DueDate,
			Status:           domain.InitialStatus,
		}
		if err := record.Validate(); err != nil {
			return CreateResult{}, err
		}

		err := s.tx.WithinTx(ctx, func(stores repo.Stores) error {
			id, err := stores.Records.Insert(ctx, record)
			if err != nil {
				return err
			}

			initial := domain.InitialStatus
			if err := stores.Transitions.Append(ctx, domain.Transition{
				RecordID: id,
				To:       &initial,
				ActorID:  input.ReporterID,
				Note:     domain.NoteCreate,
			}); err != nil {
				return err
			}

			assignee, err := resolveAssignee(ctx, stores.Rules, input.DepartmentID, input.ResponsibleID)
			if err != nil {
				return err
			}
			if assignee > 0 {
				if err := stores.Assignments.Insert(ctx, domain.Assignment{
					RecordID:   id,
					AssigneeID: assignee,
					Reason:     domain.AssignmentReasonAuto,
					Active:     true,
				}); err != nil {
					return err
				}
			}

			if _, err := stores.Audit.Append(ctx, domain.AuditEvent{
				OccurredAt:   s.now(),
				Actor:        meta.actorOr(input.ReporterID),
				Action:       "nc.create",
				ResourceType: "nonconformity",
				ResourceID:   strconv.FormatInt(id, 10),
				RequestID:    meta.RequestID,
				IP:           meta.IP,
				UserAgent:    meta.UserAgent,
				Payload: domain.Metadata{
					"code":        code,
					"department":  input.DepartmentID,
					"assignee_id": assignee,
				},
			}); err != nil {
				return err
			}

			result = CreateResult{ID: id, Code: code}
			assigneeID = assignee
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, repo.ErrDuplicate) && attempt < maxCodeAttempts-1 {
			s.logger.Warn("record code collision, regenerating", "code", code)
			continue
		}
		return CreateResult{}, err
	}

	if assigneeID > 0 {
		s.dispatchAssigned(assigneeID, result.Code)
	}
	return result, nil
}

type ReassignInput struct {
	RecordID   int64
	AssigneeID int64
	ActorID    int64
	Reason     string
}

// Reassign swaps the active assignment. There is no business-rule
// rejection: any actor may hand any record to any user at any stage.
func (s *Service) Reassign(ctx context.Context, input ReassignInput, meta RequestMeta) error {
	if input.RecordID <= 0 {
		return errors.New("record id is required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = domain.AssignmentReasonManual
	}

	return s.tx.WithinTx(ctx, func(stores repo.Stores) error {
		current, err := stores.Records.LockStatus(ctx, input.RecordID)
		if err != nil {
			return err
		}

		if err := stores.Assignments.DeactivateActive(ctx, input.RecordID); err != nil {
			return err
		}
		if err := stores.Assignments.Insert(ctx, domain.Assignment{
			RecordID:   input.RecordID,
			AssigneeID: input.AssigneeID,
			Reason:     reason,
			Active:     true,
		}); err != nil {
			return err
		}

		if err := stores.Transitions.Append(ctx, domain.Transition{
			RecordID: input.RecordID,
			ActorID:  input.ActorID,
			Note:     fmt.Sprintf("%s status=%s", domain.NoteAssignChange, current),
		}); err != nil {
			return err
		}

		if _, err := stores.Audit.Append(ctx, domain.AuditEvent{
			OccurredAt:   s.now(),
			Actor:        meta.actorOr(input.ActorID),
			Action:       "nc.reassign",
			ResourceType: "nonconformity",
			ResourceID:   strconv.FormatInt(input.RecordID, 10),
			RequestID:    meta.RequestID,
			IP:           meta.IP,
			UserAgent:    meta.UserAgent,
			Payload: domain.Metadata{
				"assignee_id": input.AssigneeID,
				"reason":      reason,
			},
		}); err != nil {
			return err
		}
		return nil
	})
}

type TransitionInput struct {
	RecordID int64
	Target   domain.Status
	ActorID  int64
	Note     string
}

type TransitionResult struct {
	FinalStatus domain.Status
}

// Transition moves a record to a new status after validating the edge
// against the transition table. A request for aksiyon_tamamlandi is
// rerouted to kalite_incelemesi before persisting; the audit entry records
// the status actually written.
func (s *Service) Transition(ctx context.Context, input TransitionInput, meta RequestMeta) (TransitionResult, error) {
	if input.RecordID <= 0 {
		return TransitionResult{}, errors.New("record id is required")
	}

	var final domain.Status
	err := s.tx.WithinTx(ctx, func(stores repo.Stores) error {
		current, err := stores.Records.LockStatus(ctx, input.RecordID)
		if err != nil {
			return err
		}

		if err := domain.ValidateTransition(current, input.Target); err != nil {
			return err
		}
		final = domain.NormalizeTarget(input.Target)

		if err := stores.Records.UpdateStatusFrom(ctx, input.RecordID, current, final); err != nil {
			return err
		}

		from := current
		to := final
		if err := stores.Transitions.Append(ctx, domain.Transition{
			RecordID: input.RecordID,
			From:     &from,
			To:       &to,
			ActorID:  input.ActorID,
			Note:     input.Note,
		}); err != nil {
			return err
		}

		if _, err := stores.Audit.Append(ctx, domain.AuditEvent{
			OccurredAt:   s.now(),
			Actor:        meta.actorOr(input.ActorID),
			Action:       "nc.transition",
			ResourceType: "nonconformity",
			ResourceID:   strconv.FormatInt(input.RecordID, 10),
			RequestID:    meta.RequestID,
			IP:           meta.IP,
			UserAgent:    meta.UserAgent,
			Payload: domain.Metadata{
				"from":      string(current),
				"to":        string(final),
				"requested": string(input.Target),
			},
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	if final == domain.StatusKaliteIncelemesi {
		s.dispatchQualityReview(input.RecordID)
	}
	return TransitionResult{FinalStatus: final}, nil
}

func (s *Service) newCode() string {
	return fmt.Sprintf("NCR-%d-%06d", s.now().Year(), s.codeSuffix())
}

// resolveAssignee prefers the department's active rule and falls back to
// the caller-supplied responsible party. Zero means unassigned.
func resolveAssignee(ctx context.Context, rules repo.AssignmentRuleRepository, departmentID int64, fallback int64) (int64, error) {
	assignee, err := rules.FindActiveAssignee(ctx, departmentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fallback, nil
		}
		return 0, err
	}
	if assignee <= 0 {
		return fallback, nil
	}
	return assignee, nil
}
