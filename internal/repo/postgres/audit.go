package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/domain"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/auditlog"
)

type AuditAppender struct {
	db  auditlog.QueryRower
	now func() time.Time
}

func NewAuditAppender(db auditlog.QueryRower) *AuditAppender {
	if db == nil {
		return nil
	}
	return &AuditAppender{db: db, now: time.Now}
}

func (a *AuditAppender) Append(ctx context.Context, event domain.AuditEvent) (int64, error) {
	if a == nil || a.db == nil {
		return 0, errors.New("audit appender not initialized")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = a.now().UTC()
	}
	payload := event.Payload
	if payload == nil {
		payload = domain.Metadata{}
	}
	id, err := auditlog.Insert(ctx, a.db, auditlog.Event{
		OccurredAt:   event.OccurredAt,
		Actor:        event.Actor,
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		RequestID:    event.RequestID,
		IP:           event.IP,
		UserAgent:    event.UserAgent,
		Payload:      payload,
	})
	if err != nil {
		return 0, fmt.Errorf("append audit event: %w", err)
	}
	return id, nil
}
