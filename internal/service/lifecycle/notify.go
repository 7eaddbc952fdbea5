package lifecycle

import (
	"context"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/mailer"
)

// Notifier delivers lifecycle notifications. Implementations must tolerate
// being called concurrently; errors are logged by the caller and never
// change the outcome of the operation that triggered them.
type Notifier interface {
	Assigned(ctx context.Context, email string, code string) error
	QualityReview(ctx context.Context, email string, recordID int64) error
}

// MailNotifier renders the configured templates and hands the result to an
// SMTP sender.
type MailNotifier struct {
	sender    mailer.Sender
	templates mailer.Templates
}

func NewMailNotifier(sender mailer.Sender, templates mailer.Templates) *MailNotifier {
	return &MailNotifier{sender: sender, templates: templates}
}

func (n *MailNotifier) Assigned(ctx context.Context, email string, code string) error {
	subject, body, err := n.templates.RenderAssigned(mailer.AssignedData{Code: code})
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email, subject, body)
}

func (n *MailNotifier) QualityReview(ctx context.Context, email string, recordID int64) error {
	subject, body, err := n.templates.RenderQualityReview(mailer.QualityReviewData{RecordID: recordID})
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email, subject, body)
}

// dispatchAssigned notifies the new assignee in the background. The record
// is already committed; failures are logged and dropped.
func (s *Service) dispatchAssigned(assigneeID int64, code string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		email, err := s.users.FindEmail(ctx, assigneeID)
		if err != nil {
			s.logger.Warn("assignee email lookup failed", "assignee_id", assigneeID, "error", err.Error())
			return
		}
		if email == "" {
			return
		}
		if err := s.notifier.Assigned(ctx, email, code); err != nil {
			s.logger.Warn("assignment mail failed", "assignee_id", assigneeID, "code", code, "error", err.Error())
		}
	}()
}

// dispatchQualityReview notifies every active quality user. Each recipient
// fails independently; one bounce never blocks the rest.
func (s *Service) dispatchQualityReview(recordID int64) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		emails, err := s.users.ListActiveQualityEmails(ctx)
		if err != nil {
			s.logger.Warn("quality user lookup failed", "record_id", recordID, "error", err.Error())
			return
		}
		for _, email := range emails {
			if err := s.notifier.QualityReview(ctx, email, recordID); err != nil {
				s.logger.Warn("quality review mail failed", "record_id", recordID, "to", email, "error", err.Error())
			}
		}
	}()
}
