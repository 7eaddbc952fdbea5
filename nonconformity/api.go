package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/domain"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/auth"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/objectstore"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/repo"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/service/lifecycle"
)

type lifecycleService interface {
	Create(ctx context.Context, input lifecycle.CreateInput, meta lifecycle.RequestMeta) (lifecycle.CreateResult, error)
	Reassign(ctx context.Context, input lifecycle.ReassignInput, meta lifecycle.RequestMeta) error
	Transition(ctx context.Context, input lifecycle.TransitionInput, meta lifecycle.RequestMeta) (lifecycle.TransitionResult, error)
}

type nonconformityAPI struct {
	logger         *slog.Logger
	svc            lifecycleService
	records        repo.NonconformityRepository
	transitions    repo.TransitionRepository
	attachments    repo.AttachmentRepository
	store          *minio.Client
	storeCfg       objectstore.Config
	uploadMaxBytes int64
	uploadTimeout  time.Duration
}

func newNonconformityAPI(
	logger *slog.Logger,
	svc lifecycleService,
	records repo.NonconformityRepository,
	transitions repo.TransitionRepository,
	attachments repo.AttachmentRepository,
	store *minio.Client,
	storeCfg objectstore.Config,
	uploadMaxBytes int64,
	uploadTimeout time.Duration,
) *nonconformityAPI {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = int64(64) << 20
	}
	if uploadTimeout <= 0 {
		uploadTimeout = 5 * time.Minute
	}
	return &nonconformityAPI{
		logger:         logger,
		svc:            svc,
		records:        records,
		transitions:    transitions,
		attachments:    attachments,
		store:          store,
		storeCfg:       storeCfg,
		uploadMaxBytes: uploadMaxBytes,
		uploadTimeout:  uploadTimeout,
	}
}

func (api *nonconformityAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /nc", api.handleCreate)
	mux.HandleFunc("GET /nc", api.handleList)
	mux.HandleFunc("GET /nc/{id}", api.handleGet)
	mux.HandleFunc("POST /nc/{id}/assign", api.handleAssign)
	mux.HandleFunc("POST /nc/{id}/transition", api.handleTransition)

	mux.HandleFunc("POST /nc/{id}/attachments", api.handleUploadAttachment)
	mux.HandleFunc("GET /nc/{id}/attachments", api.handleListAttachments)
	mux.HandleFunc("GET /attachments/{attachment_id}/download", api.handleDownloadAttachment)
}

type createRequest struct {
	ReportedDate     string `json:"reported_date,omitempty"`
	DepartmentID     int64  `json:"department_id"`
	ReporterID       int64  `json:"reporter_id"`
	Origin           string `json:"origin,omitempty"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	RootCause        string `json:"root_cause,omitempty"`
	CorrectiveAction string `json:"corrective_action,omitempty"`
	ResponsibleID    int64  `json:"responsible_id,omitempty"`
	DueDate          string `json:"due_date,omitempty"`
}

type assignRequest struct {
	AssigneeID int64  `json:"assignee_id"`
	ActorID    int64  `json:"actor_id"`
	Reason     string `json:"reason,omitempty"`
}

type transitionRequest struct {
	ToStatus string `json:"to_status"`
	ActorID  int64  `json:"actor_id"`
	Note     string `json:"note,omitempty"`
}

type recordResponse struct {
	ID               int64      `json:"id"`
	Code             string     `json:"code"`
	ReportedDate     *time.Time `json:"reported_date,omitempty"`
	DepartmentID     int64      `json:"department_id"`
	DepartmentName   string     `json:"department_name,omitempty"`
	ReporterID       int64      `json:"reporter_id"`
	Origin           string     `json:"origin,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	RootCause        string     `json:"root_cause,omitempty"`
	CorrectiveAction string     `json:"corrective_action,omitempty"`
	ResponsibleID    int64      `json:"responsible_id,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Status           string     `json:"status"`
	AssigneeName     string     `json:"assignee_name,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type transitionResponse struct {
	ID         int64     `json:"id"`
	FromStatus *string   `json:"from_status"`
	ToStatus   *string   `json:"to_status"`
	ActorID    int64     `json:"actor_id"`
	ActorName  string    `json:"actor_name,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type attachmentResponse struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type,omitempty"`
	SizeBytes     int64     `json:"size_bytes"`
	ContentSHA256 string    `json:"content_sha256"`
	UploadedBy    int64     `json:"uploaded_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func (api *nonconformityAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	reportedDate, err := parseDate(req.ReportedDate)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_reported_date")
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_due_date")
		return
	}
	if req.DepartmentID <= 0 || req.ReporterID <= 0 || strings.TrimSpace(req.Title) == "" {
		api.writeError(w, r, http.StatusBadRequest, "missing_required_fields")
		return
	}

	result, err := api.svc.Create(r.Context(), lifecycle.CreateInput{
		ReportedDate:     reportedDate,
		DepartmentID:     req.DepartmentID,
		ReporterID:       req.ReporterID,
		Origin:           strings.TrimSpace(req.Origin),
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		RootCause:        strings.TrimSpace(req.RootCause),
		CorrectiveAction: strings.TrimSpace(req.CorrectiveAction),
		ResponsibleID:    req.ResponsibleID,
		DueDate:          dueDate,
	}, buildRequestMeta(r))
	if err != nil {
		api.writeServiceError(w, r, err, "create_failed")
		return
	}

	w.Header().Set("Location", "/nc/"+strconv.FormatInt(result.ID, 10))
	api.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"id":      result.ID,
		"code":    result.Code,
	})
}

func (api *nonconformityAPI) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.AssigneeID <= 0 {
		api.writeError(w, r, http.StatusBadRequest, "assignee_id_required")
		return
	}

	err := api.svc.Reassign(r.Context(), lifecycle.ReassignInput{
		RecordID:   id,
		AssigneeID: req.AssigneeID,
		ActorID:    req.ActorID,
		Reason:     strings.TrimSpace(req.Reason),
	}, buildRequestMeta(r))
	if err != nil {
		api.writeServiceError(w, r, err, "assign_failed")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (api *nonconformityAPI) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	target := domain.Status(strings.TrimSpace(req.ToStatus))
	if target == "" {
		api.writeError(w, r, http.StatusBadRequest, "to_status_required")
		return
	}

	result, err := api.svc.Transition(r.Context(), lifecycle.TransitionInput{
		RecordID: id,
		Target:   target,
		ActorID:  req.ActorID,
		Note:     strings.TrimSpace(req.Note),
	}, buildRequestMeta(r))
	if err != nil {
		api.writeServiceError(w, r, err, "transition_failed")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  string(result.FinalStatus),
	})
}

func (api *nonconformityAPI) handleList(w http.ResponseWriter, r *http.Request) {
	filter := repo.NonconformityFilter{
		Status:       domain.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		DepartmentID: parseInt64Query(r, "department_id"),
		AssigneeID:   parseInt64Query(r, "assignee_id"),
		Limit:        clampInt(parseIntQuery(r, "limit", 200), 1, 500),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		api.writeError(w, r, http.StatusBadRequest, "invalid_status")
		return
	}

	items, err := api.records.List(r.Context(), filter)
	if err != nil {
		api.logger.Error("list nonconformities failed", "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "list_failed")
		return
	}

	out := make([]recordResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toRecordResponse(item))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"nonconformities": out})
}

func (api *nonconformityAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}

	summary, err := api.records.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.logger.Error("get nonconformity failed", "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "get_detail_failed")
		return
	}

	history, err := api.transitions.ListByRecord(r.Context(), id)
	if err != nil {
		api.logger.Error("load history failed", "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "get_detail_failed")
		return
	}

	entries := make([]transitionResponse, 0, len(history))
	for _, entry := range history {
		entries = append(entries, transitionResponse{
			ID:         entry.ID,
			FromStatus: statusString(entry.From),
			ToStatus:   statusString(entry.To),
			ActorID:    entry.ActorID,
			ActorName:  entry.ActorName,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}

	record := toRecordResponse(summary)
	api.writeJSON(w, http.StatusOK, map[string]any{
		"nonconformity": record,
		"history":       entries,
	})
}

func (api *nonconformityAPI) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	if api.store == nil {
		api.writeError(w, r, http.StatusServiceUnavailable, "attachments_disabled")
		return
	}

	if _, err := api.records.Get(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	uploadedBy := parseInt64Query(r, "uploaded_by")

	r.Body = http.MaxBytesReader(w, r.Body, api.uploadMaxBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
		return
	}

	attachmentID := uuid.NewString()
	var (
		objectKey     string
		filename      string
		contentType   string
		contentSHA256 string
		sizeBytes     int64
	)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				api.writeError(w, r, http.StatusRequestEntityTooLarge, "upload_too_large")
				return
			}
			api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		if objectKey != "" {
			_ = part.Close()
			api.writeError(w, r, http.StatusBadRequest, "multiple_files_not_supported")
			return
		}

		filename = sanitizeFilename(part.FileName())
		contentType = strings.TrimSpace(part.Header.Get("Content-Type"))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		objectKey = fmt.Sprintf("%d/%s/%s", id, attachmentID, filename)
		hasher := sha256.New()
		counter := &countingWriter{}
		reader := io.TeeReader(part, io.MultiWriter(hasher, counter))

		uploadCtx, cancel := context.WithTimeout(r.Context(), api.uploadTimeout)
		_, putErr := api.store.PutObject(
			uploadCtx,
			api.storeCfg.BucketAttachments,
			objectKey,
			reader,
			-1,
			minio.PutObjectOptions{ContentType: contentType},
		)
		cancel()
		_ = part.Close()
		if putErr != nil {
			var maxErr *http.MaxBytesError
			if errors.As(putErr, &maxErr) {
				api.writeError(w, r, http.StatusRequestEntityTooLarge, "upload_too_large")
				return
			}
			api.logger.Error("attachment upload failed", "error", putErr.Error())
			api.writeError(w, r, http.StatusBadGateway, "upload_failed")
			return
		}
		contentSHA256 = hex.EncodeToString(hasher.Sum(nil))
		sizeBytes = counter.n
	}

	if objectKey == "" {
		api.writeError(w, r, http.StatusBadRequest, "file_required")
		return
	}

	attachment := repo.Attachment{
		ID:            attachmentID,
		RecordID:      id,
		Filename:      filename,
		ContentType:   contentType,
		SizeBytes:     sizeBytes,
		ObjectKey:     objectKey,
		ContentSHA256: contentSHA256,
		UploadedBy:    uploadedBy,
	}
	if err := api.attachments.Insert(r.Context(), attachment); err != nil {
		_ = api.store.RemoveObject(r.Context(), api.storeCfg.BucketAttachments, objectKey, minio.RemoveObjectOptions{})
		api.logger.Error("attachment insert failed", "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Location", "/attachments/"+attachmentID+"/download")
	api.writeJSON(w, http.StatusCreated, attachmentResponse{
		ID:            attachmentID,
		Filename:      filename,
		ContentType:   contentType,
		SizeBytes:     sizeBytes,
		ContentSHA256: contentSHA256,
		UploadedBy:    uploadedBy,
		CreatedAt:     time.Now().UTC(),
	})
}

func (api *nonconformityAPI) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}

	items, err := api.attachments.ListByRecord(r.Context(), id)
	if err != nil {
		api.logger.Error("list attachments failed", "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]attachmentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, attachmentResponse{
			ID:            item.ID,
			Filename:      item.Filename,
			ContentType:   item.ContentType,
			SizeBytes:     item.SizeBytes,
			ContentSHA256: item.ContentSHA256,
			UploadedBy:    item.UploadedBy,
			CreatedAt:     item.CreatedAt,
		})
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"attachments": out})
}

func (api *nonconformityAPI) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	attachmentID := strings.TrimSpace(r.PathValue("attachment_id"))
	if attachmentID == "" {
		api.writeError(w, r, http.StatusBadRequest, "attachment_id_required")
		return
	}
	if api.store == nil {
		api.writeError(w, r, http.StatusServiceUnavailable, "attachments_disabled")
		return
	}

	attachment, err := api.attachments.Get(r.Context(), attachmentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	obj, err := api.store.GetObject(r.Context(), api.storeCfg.BucketAttachments, attachment.ObjectKey, minio.GetObjectOptions{})
	if err != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_error")
		return
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	if attachment.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(attachment.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj)
}

func (api *nonconformityAPI) recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.writeError(w, r, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps lifecycle failures onto transport responses:
// unknown id is 404, an illegal edge is 400 with both endpoints, a lost
// race is 409 and retryable, anything else is 500.
func (api *nonconformityAPI) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var invalid *domain.InvalidTransitionError
	switch {
	case errors.Is(err, repo.ErrNotFound):
		api.writeError(w, r, http.StatusNotFound, "not_found")
	case errors.As(err, &invalid):
		api.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       "invalid_transition",
			"message":     fmt.Sprintf("Cannot transition from %s to %s", invalid.From, invalid.To),
			"from_status": string(invalid.From),
			"to_status":   string(invalid.To),
			"request_id":  r.Header.Get("X-Request-Id"),
		})
	case errors.Is(err, repo.ErrConflict):
		api.writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "conflict",
			"retryable":  true,
			"request_id": r.Header.Get("X-Request-Id"),
		})
	default:
		api.logger.Error("lifecycle operation failed", "error", err.Error(), "request_id", r.Header.Get("X-Request-Id"))
		api.writeError(w, r, http.StatusInternalServerError, fallback)
	}
}

func toRecordResponse(summary repo.NonconformitySummary) recordResponse {
	return recordResponse{
		ID:               summary.ID,
		Code:             summary.Code,
		ReportedDate:     summary.ReportedDate,
		DepartmentID:     summary.DepartmentID,
		DepartmentName:   summary.DepartmentName,
		ReporterID:       summary.ReporterID,
		Origin:           summary.Origin,
		Title:            summary.Title,
		Description:      summary.Description,
		RootCause:        summary.RootCause,
		CorrectiveAction: summary.CorrectiveAction,
		ResponsibleID:    summary.ResponsibleID,
		DueDate:          summary.DueDate,
		Status:           string(summary.Status),
		AssigneeName:     summary.AssigneeName,
		CreatedAt:        summary.CreatedAt,
	}
}

func buildRequestMeta(r *http.Request) lifecycle.RequestMeta {
	meta := lifecycle.RequestMeta{
		RequestID: r.Header.Get("X-Request-Id"),
		IP:        requestIP(r.RemoteAddr),
		UserAgent: r.UserAgent(),
	}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		meta.Actor = identity.Subject
	}
	return meta
}

func statusString(s *domain.Status) *string {
	if s == nil {
		return nil
	}
	out := string(*s)
	return &out
}

// parseDate accepts a bare date or a full RFC 3339 timestamp; an empty
// string means the field was not supplied.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		utc := t.UTC()
		return &utc, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	utc := t.UTC()
	return &utc, nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := path.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == "/" {
		return "attachment.bin"
	}
	return base
}

func requestIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

func (api *nonconformityAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *nonconformityAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func parseInt64Query(r *http.Request, key string) int64 {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
