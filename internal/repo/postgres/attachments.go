package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/repo"
)

type AttachmentStore struct {
	db DB
}

func NewAttachmentStore(db DB) *AttachmentStore {
	if db == nil {
		return nil
	}
	return &AttachmentStore{db: db}
}

func (s *AttachmentStore) Insert(ctx context.Context, attachment repo.Attachment) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("attachment store not initialized")
	}
	if strings.TrimSpace(attachment.ID) == "" {
		return fmt.Errorf("attachment id is required")
	}
	if attachment.RecordID <= 0 {
		return fmt.Errorf("record id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO nc_attachments (
			id, nc_id, filename, content_type, size_bytes, object_key, content_sha256, uploaded_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		strings.TrimSpace(attachment.ID),
		attachment.RecordID,
		strings.TrimSpace(attachment.Filename),
		nullIfEmpty(attachment.ContentType),
		attachment.SizeBytes,
		strings.TrimSpace(attachment.ObjectKey),
		strings.TrimSpace(attachment.ContentSHA256),
		attachment.UploadedBy,
	)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *AttachmentStore) Get(ctx context.Context, id string) (repo.Attachment, error) {
	if s == nil || s.db == nil {
		return repo.Attachment{}, fmt.Errorf("attachment store not initialized")
	}
	var attachment repo.Attachment
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, nc_id, filename, COALESCE(content_type, ''), size_bytes, object_key, content_sha256, uploaded_by, created_at
		 FROM nc_attachments
		 WHERE id = $1`,
		strings.TrimSpace(id),
	).Scan(
		&attachment.ID,
		&attachment.RecordID,
		&attachment.Filename,
		&attachment.ContentType,
		&attachment.SizeBytes,
		&attachment.ObjectKey,
		&attachment.ContentSHA256,
		&attachment.UploadedBy,
		&attachment.CreatedAt,
	)
	if err != nil {
		return repo.Attachment{}, handleNotFound(err)
	}
	return attachment, nil
}

func (s *AttachmentStore) ListByRecord(ctx context.Context, recordID int64) ([]repo.Attachment, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("attachment store not initialized")
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, nc_id, filename, COALESCE(content_type, ''), size_bytes, object_key, content_sha256, uploaded_by, created_at
		 FROM nc_attachments
		 WHERE nc_id = $1
		 ORDER BY created_at DESC`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	attachments := make([]repo.Attachment, 0)
	for rows.Next() {
		var attachment repo.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.RecordID,
			&attachment.Filename,
			&attachment.ContentType,
			&attachment.SizeBytes,
			&attachment.ObjectKey,
			&attachment.ContentSHA256,
			&attachment.UploadedBy,
			&attachment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}
