package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven/mocks"
	"github.com/lunavision/facesink/internal/core/services"
)

// stubAuth accepts the token "valid-token" and the API key "valid-key".
type stubAuth struct{}

func (s *stubAuth) GenerateToken(claims *domain.TokenClaims) (string, error) {
	return "valid-token", nil
}

func (s *stubAuth) ParseToken(token string) (*domain.TokenClaims, error) {
	switch token {
	case "valid-token":
		return &domain.TokenClaims{Subject: "uploader"}, nil
	case "expired-token":
		return nil, domain.ErrTokenExpired
	default:
		return nil, domain.ErrTokenInvalid
	}
}

func (s *stubAuth) VerifyAPIKey(key string) bool {
	return key == "valid-key"
}

// pingStub is a Pinger with an injectable failure.
type pingStub struct {
	err error
}

func (p *pingStub) Ping(ctx context.Context) error {
	return p.err
}

type serverFixture struct {
	server   *Server
	store    *mocks.MockArtifactStore
	queue    *mocks.MockTaskQueue
	runStore *mocks.MockRunStore
	notifier *mocks.MockNotifier
	db       *pingStub
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	store := mocks.NewMockArtifactStore()
	queue := mocks.NewMockTaskQueue()
	runStore := mocks.NewMockRunStore()
	notifier := mocks.NewMockNotifier()
	db := &pingStub{}

	uploadService := services.NewUploadService(store, queue, runStore, nil)
	notifyService := services.NewMatchNotifier(notifier, mocks.NewMockPersonDirectory(), nil)

	server := NewServer(
		Config{Version: "test"},
		uploadService,
		notifyService,
		&stubAuth{},
		queue,
		db,
		nil,
		nil,
	)

	return &serverFixture{
		server:   server,
		store:    store,
		queue:    queue,
		runStore: runStore,
		notifier: notifier,
		db:       db,
	}
}

func (f *serverFixture) request(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer valid-token")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	f := newServerFixture(t)

	// No auth header required
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["version"] != "test" {
		t.Errorf("expected version test, got %s", body["version"])
	}
}

func TestHandleReady(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleReady_DatabaseDown(t *testing.T) {
	f := newServerFixture(t)
	f.db.err = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandleUpload(t *testing.T) {
	f := newServerFixture(t)

	body, contentType := multipartBody(t, "doc.json", []byte(`{"faces":[]}`))
	rec := f.request(t, http.MethodPost, "/api/v1/upload", body, contentType)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp UploadResponse
	decodeJSON(t, rec, &resp)
	if resp.Key != "incoming/doc.json" {
		t.Errorf("expected key incoming/doc.json, got %s", resp.Key)
	}
	if resp.Status != "accepted" {
		t.Errorf("expected status accepted, got %s", resp.Status)
	}

	if !f.store.Has("incoming/doc.json") {
		t.Error("expected artifact stored")
	}
	if len(f.queue.Enqueued()) != 1 {
		t.Errorf("expected 1 enqueued task, got %d", len(f.queue.Enqueued()))
	}
}

func TestHandleUpload_RejectsNonJSON(t *testing.T) {
	f := newServerFixture(t)

	body, contentType := multipartBody(t, "doc.txt", []byte("text"))
	rec := f.request(t, http.MethodPost, "/api/v1/upload", body, contentType)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp["error"], ".json") {
		t.Errorf("expected extension hint in error, got %q", resp["error"])
	}
}

func TestHandleUpload_MissingFileField(t *testing.T) {
	f := newServerFixture(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("other", "value")
	writer.Close()

	rec := f.request(t, http.MethodPost, "/api/v1/upload", &buf, writer.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleUpload_NotMultipart(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/upload",
		bytes.NewBufferString(`{"file":"x"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleUpload_StorageFailure(t *testing.T) {
	f := newServerFixture(t)
	f.store.WriteErr = errors.New("bucket gone")

	body, contentType := multipartBody(t, "doc.json", []byte(`{}`))
	rec := f.request(t, http.MethodPost, "/api/v1/upload", body, contentType)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandleRunStatus(t *testing.T) {
	f := newServerFixture(t)

	run := domain.NewRun("doc.json")
	run.Finish(domain.RunStateArchived, "")
	f.runStore.Save(context.Background(), run)

	rec := f.request(t, http.MethodGet, "/api/v1/runs/doc.json", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got domain.Run
	decodeJSON(t, rec, &got)
	if got.State != domain.RunStateArchived {
		t.Errorf("expected state %s, got %s", domain.RunStateArchived, got.State)
	}
	if got.ArtifactName != "doc.json" {
		t.Errorf("expected artifact doc.json, got %s", got.ArtifactName)
	}
}

func TestHandleRunStatus_NotFound(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v1/runs/unknown.json", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleSweep(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/sweep", nil, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var resp SweepResponse
	decodeJSON(t, rec, &resp)
	if resp.TaskID == "" {
		t.Error("expected task id")
	}

	enqueued := f.queue.Enqueued()
	if len(enqueued) != 1 || enqueued[0].Type != domain.TaskTypeSweepIncoming {
		t.Errorf("expected one sweep task enqueued, got %v", enqueued)
	}
}

func TestHandleNotify(t *testing.T) {
	f := newServerFixture(t)

	body := bytes.NewBufferString(`{"recipients":[{"person_id":"p1","email":"alice@example.com"}]}`)
	rec := f.request(t, http.MethodPost, "/api/v1/notify", body, "application/json")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp NotifyResponse
	decodeJSON(t, rec, &resp)
	if len(resp.Outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(resp.Outcomes))
	}
	if !resp.Outcomes[0].Sent {
		t.Errorf("expected sent outcome, got %+v", resp.Outcomes[0])
	}
	if len(f.notifier.Sent()) != 1 {
		t.Errorf("expected 1 delivery, got %d", len(f.notifier.Sent()))
	}
}

func TestHandleNotify_EmptyRecipients(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/notify",
		bytes.NewBufferString(`{"recipients":[]}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleNotify_InvalidBody(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/notify",
		bytes.NewBufferString("not json"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleQueueStats(t *testing.T) {
	f := newServerFixture(t)
	f.queue.Enqueue(context.Background(), domain.NewSweepTask())

	rec := f.request(t, http.MethodGet, "/api/v1/queue/stats", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats map[string]int64
	decodeJSON(t, rec, &stats)
	if stats["pending_count"] != 1 {
		t.Errorf("expected 1 pending, got %d", stats["pending_count"])
	}
}
