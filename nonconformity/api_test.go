package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/domain"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/objectstore"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/repo"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/service/lifecycle"
)

type stubLifecycle struct {
	createResult lifecycle.CreateResult
	createErr    error
	createInput  lifecycle.CreateInput
	createMeta   lifecycle.RequestMeta

	reassignErr   error
	reassignInput lifecycle.ReassignInput

	transitionResult lifecycle.TransitionResult
	transitionErr    error
	transitionInput  lifecycle.TransitionInput
}

func (s *stubLifecycle) Create(_ context.Context, input lifecycle.CreateInput, meta lifecycle.RequestMeta) (lifecycle.CreateResult, error) {
	s.createInput = input
	s.createMeta = meta
	return s.createResult, s.createErr
}

func (s *stubLifecycle) Reassign(_ context.Context, input lifecycle.ReassignInput, _ lifecycle.RequestMeta) error {
	s.reassignInput = input
	return s.reassignErr
}

func (s *stubLifecycle) Transition(_ context.Context, input lifecycle.TransitionInput, _ lifecycle.RequestMeta) (lifecycle.TransitionResult, error) {
	s.transitionInput = input
	return s.transitionResult, s.transitionErr
}

type stubRecords struct {
	summary    repo.NonconformitySummary
	getErr     error
	list       []repo.NonconformitySummary
	listErr    error
	lastFilter repo.NonconformityFilter
}

func (s *stubRecords) Insert(context.Context, domain.Nonconformity) (int64, error) {
	return 0, repo.ErrConflict
}

func (s *stubRecords) LockStatus(context.Context, int64) (domain.Status, error) {
	return "", repo.ErrNotFound
}

func (s *stubRecords) UpdateStatusFrom(context.Context, int64, domain.Status, domain.Status) error {
	return repo.ErrConflict
}

func (s *stubRecords) Get(_ context.Context, _ int64) (repo.NonconformitySummary, error) {
	return s.summary, s.getErr
}

func (s *stubRecords) List(_ context.Context, filter repo.NonconformityFilter) ([]repo.NonconformitySummary, error) {
	s.lastFilter = filter
	return s.list, s.listErr
}

type stubTransitions struct {
	entries []repo.TransitionEntry
	err     error
}

func (s *stubTransitions) Append(context.Context, domain.Transition) error { return nil }

func (s *stubTransitions) ListByRecord(context.Context, int64) ([]repo.TransitionEntry, error) {
	return s.entries, s.err
}

type stubAttachments struct {
	items []repo.Attachment
}

func (s *stubAttachments) Insert(context.Context, repo.Attachment) error { return nil }

func (s *stubAttachments) Get(context.Context, string) (repo.Attachment, error) {
	return repo.Attachment{}, repo.ErrNotFound
}

func (s *stubAttachments) ListByRecord(context.Context, int64) ([]repo.Attachment, error) {
	return s.items, nil
}

func newTestAPI(svc lifecycleService, records *stubRecords, transitions *stubTransitions) (*nonconformityAPI, *http.ServeMux) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	api := newNonconformityAPI(logger, svc, records, transitions, &stubAttachments{}, nil, objectstore.Config{}, 1<<20, time.Second)
	mux := http.NewServeMux()
	api.register(mux)
	return api, mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return body
}

func TestCreateReturnsCreated(t *testing.T) {
	svc := &stubLifecycle{createResult: lifecycle.CreateResult{ID: 12, Code: "NCR-2026-000042"}}
	_, mux := newTestAPI(svc, &stubRecords{}, &stubTransitions{})

	payload := `{"department_id":3,"reporter_id":7,"title":"Montaj hatasi","reported_date":"2026-02-11"}`
	req := httptest.NewRequest(http.MethodPost, "/nc", strings.NewReader(payload))
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["code"] != "NCR-2026-000042" {
		t.Fatalf("code = %v", body["code"])
	}
	if got := rec.Header().Get("Location"); got != "/nc/12" {
		t.Fatalf("location = %q", got)
	}
	if svc.createInput.DepartmentID != 3 || svc.createInput.Title != "Montaj hatasi" {
		t.Fatalf("create input = %+v", svc.createInput)
	}
	if svc.createInput.ReportedDate == nil || svc.createInput.ReportedDate.Format("2006-01-02") != "2026-02-11" {
		t.Fatalf("reported date = %v", svc.createInput.ReportedDate)
	}
	if svc.createMeta.RequestID != "req-1" {
		t.Fatalf("request id = %q", svc.createMeta.RequestID)
	}
}

func TestCreateRejectsBadJSON(t *testing.T) {
	_, mux := newTestAPI(&stubLifecycle{}, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "invalid_json" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	_, mux := newTestAPI(&stubLifecycle{}, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc", strings.NewReader(`{"department_id":3,"reporter_id":7,"title":"  "}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "missing_required_fields" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestCreateRejectsBadDate(t *testing.T) {
	_, mux := newTestAPI(&stubLifecycle{}, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc", strings.NewReader(`{"department_id":3,"reporter_id":7,"title":"x","due_date":"11/02/2026"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "invalid_due_date" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestTransitionMapsInvalidEdge(t *testing.T) {
	svc := &stubLifecycle{
		transitionErr: &domain.InvalidTransitionError{From: domain.StatusYeni, To: domain.StatusKapatildi},
	}
	_, mux := newTestAPI(svc, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc/5/transition", strings.NewReader(`{"to_status":"kapatildi","actor_id":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "invalid_transition" {
		t.Fatalf("error = %v", body["error"])
	}
	if body["from_status"] != "yeni" || body["to_status"] != "kapatildi" {
		t.Fatalf("endpoints = %v -> %v", body["from_status"], body["to_status"])
	}
}

func TestTransitionMapsConflict(t *testing.T) {
	svc := &stubLifecycle{transitionErr: repo.ErrConflict}
	_, mux := newTestAPI(svc, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc/5/transition", strings.NewReader(`{"to_status":"triyaj","actor_id":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["retryable"] != true {
		t.Fatalf("retryable = %v", body["retryable"])
	}
}

func TestTransitionMapsNotFound(t *testing.T) {
	svc := &stubLifecycle{transitionErr: repo.ErrNotFound}
	_, mux := newTestAPI(svc, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc/999/transition", strings.NewReader(`{"to_status":"triyaj","actor_id":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestTransitionReturnsFinalStatus(t *testing.T) {
	svc := &stubLifecycle{transitionResult: lifecycle.TransitionResult{FinalStatus: domain.StatusKaliteIncelemesi}}
	_, mux := newTestAPI(svc, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc/5/transition", strings.NewReader(`{"to_status":"aksiyon_tamamlandi","actor_id":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "kalite_incelemesi" {
		t.Fatalf("status = %v", body["status"])
	}
	if svc.transitionInput.Target != domain.StatusAksiyonTamamlandi {
		t.Fatalf("target = %v", svc.transitionInput.Target)
	}
}

func TestAssignRequiresAssignee(t *testing.T) {
	_, mux := newTestAPI(&stubLifecycle{}, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc/5/assign", strings.NewReader(`{"actor_id":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "assignee_id_required" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestAssignForwardsInput(t *testing.T) {
	svc := &stubLifecycle{}
	_, mux := newTestAPI(svc, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc/5/assign", strings.NewReader(`{"assignee_id":9,"actor_id":1,"reason":"escalation"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if svc.reassignInput.RecordID != 5 || svc.reassignInput.AssigneeID != 9 || svc.reassignInput.Reason != "escalation" {
		t.Fatalf("reassign input = %+v", svc.reassignInput)
	}
}

func TestGetRejectsBadID(t *testing.T) {
	_, mux := newTestAPI(&stubLifecycle{}, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodGet, "/nc/abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetMapsNotFound(t *testing.T) {
	records := &stubRecords{getErr: repo.ErrNotFound}
	_, mux := newTestAPI(&stubLifecycle{}, records, &stubTransitions{})

	req := httptest.NewRequest(http.MethodGet, "/nc/404", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetReturnsRecordWithHistory(t *testing.T) {
	yeni := domain.StatusYeni
	triyaj := domain.StatusTriyaj
	records := &stubRecords{
		summary: repo.NonconformitySummary{
			Nonconformity: domain.Nonconformity{
				ID:           5,
				Code:         "NCR-2026-000042",
				DepartmentID: 3,
				ReporterID:   7,
				Title:        "Montaj hatasi",
				Status:       domain.StatusTriyaj,
			},
			DepartmentName: "Kalite",
			AssigneeName:   "Ayse Yilmaz",
		},
	}
	transitions := &stubTransitions{
		entries: []repo.TransitionEntry{
			{Transition: domain.Transition{ID: 1, RecordID: 5, To: &yeni, Note: domain.NoteCreate}},
			{Transition: domain.Transition{ID: 2, RecordID: 5, From: &yeni, To: &triyaj}, ActorName: "Ayse Yilmaz"},
		},
	}
	_, mux := newTestAPI(&stubLifecycle{}, records, transitions)

	req := httptest.NewRequest(http.MethodGet, "/nc/5", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Nonconformity recordResponse       `json:"nonconformity"`
		History       []transitionResponse `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Nonconformity.Code != "NCR-2026-000042" || body.Nonconformity.DepartmentName != "Kalite" {
		t.Fatalf("record = %+v", body.Nonconformity)
	}
	if len(body.History) != 2 {
		t.Fatalf("history length = %d", len(body.History))
	}
	if body.History[0].FromStatus != nil || body.History[0].ToStatus == nil || *body.History[0].ToStatus != "yeni" {
		t.Fatalf("creation entry = %+v", body.History[0])
	}
	if body.History[1].ActorName != "Ayse Yilmaz" {
		t.Fatalf("actor name = %q", body.History[1].ActorName)
	}
}

func TestListForwardsFilters(t *testing.T) {
	records := &stubRecords{}
	_, mux := newTestAPI(&stubLifecycle{}, records, &stubTransitions{})

	req := httptest.NewRequest(http.MethodGet, "/nc?status=triyaj&department_id=3&assignee_id=9&limit=25", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := repo.NonconformityFilter{Status: domain.StatusTriyaj, DepartmentID: 3, AssigneeID: 9, Limit: 25}
	if records.lastFilter != want {
		t.Fatalf("filter = %+v, want %+v", records.lastFilter, want)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	_, mux := newTestAPI(&stubLifecycle{}, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodGet, "/nc?status=bogus", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListClampsLimit(t *testing.T) {
	records := &stubRecords{}
	_, mux := newTestAPI(&stubLifecycle{}, records, &stubTransitions{})

	req := httptest.NewRequest(http.MethodGet, "/nc?limit=99999", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if records.lastFilter.Limit != 500 {
		t.Fatalf("limit = %d, want 500", records.lastFilter.Limit)
	}
}

func TestUploadWithoutStoreIsUnavailable(t *testing.T) {
	_, mux := newTestAPI(&stubLifecycle{}, &stubRecords{}, &stubTransitions{})

	req := httptest.NewRequest(http.MethodPost, "/nc/5/attachments", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
		wantNil bool
	}{
		{raw: "", wantNil: true},
		{raw: "  ", wantNil: true},
		{raw: "2026-02-11", want: "2026-02-11T00:00:00Z"},
		{raw: "2026-02-11T14:30:00+03:00", want: "2026-02-11T11:30:00Z"},
		{raw: "11/02/2026", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseDate(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseDate(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseDate(%q): %v", tc.raw, err)
		}
		if tc.wantNil {
			if got != nil {
				t.Fatalf("parseDate(%q) = %v, want nil", tc.raw, got)
			}
			continue
		}
		if got == nil || got.Format(time.RFC3339) != tc.want {
			t.Fatalf("parseDate(%q) = %v, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":        "report.pdf",
		"../../etc/passwd":  "passwd",
		"":                  "attachment.bin",
		"  ":                "attachment.bin",
		"dir/nested/ek.png": "ek.png",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
