package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/facequeue/internal/api/handler"
	mw "github.com/kiranshivaraju/facequeue/internal/api/middleware"
	"github.com/kiranshivaraju/facequeue/internal/submission"
	"github.com/kiranshivaraju/facequeue/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock Submitter ---

type mockSubmitter struct {
	SubmitFunc func(ctx context.Context, u submission.Upload) (*submission.Result, error)
	StatusFunc func(ctx context.Context, jobID string) (*submission.Result, error)

	submitted []submission.Upload
	bodies    [][]byte
}

func (m *mockSubmitter) Submit(ctx context.Context, u submission.Upload) (*submission.Result, error) {
	data, _ := io.ReadAll(u.Body)
	m.submitted = append(m.submitted, u)
	m.bodies = append(m.bodies, data)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, u)
	}
	return &submission.Result{JobID: "job-1", Status: models.JobStatusDone, Verdict: "alice"}, nil
}

func (m *mockSubmitter) Status(ctx context.Context, jobID string) (*submission.Result, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, jobID)
	}
	return &submission.Result{JobID: jobID, Status: models.JobStatusPending}, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

// --- helpers ---

func multipartRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mpw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func statusRequest(jobID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/status/"+jobID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("job_id", jobID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// --- submit ---

func TestSubmit_Done(t *testing.T) {
	svc := &mockSubmitter{}
	h := handler.NewSubmitHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, handler.FileField, "face.jpg", "image/jpeg", []byte("jpeg-bytes")))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "job-1", body["job_id"])
	assert.Equal(t, "done", body["status"])
	assert.Equal(t, "alice", body["result"])

	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "face.jpg", svc.submitted[0].Filename)
	assert.Equal(t, int64(len("jpeg-bytes")), svc.submitted[0].Size)
	assert.Equal(t, "image/jpeg", svc.submitted[0].ContentType)
	assert.Equal(t, []byte("jpeg-bytes"), svc.bodies[0])
	assert.Nil(t, svc.submitted[0].APIKeyID)
}

func TestSubmit_PendingIs202WithoutResult(t *testing.T) {
	svc := &mockSubmitter{SubmitFunc: func(context.Context, submission.Upload) (*submission.Result, error) {
		return &submission.Result{JobID: "job-2", Status: models.JobStatusPending}, nil
	}}
	h := handler.NewSubmitHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, handler.FileField, "face.png", "", []byte("png")))

	assert.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, "job-2", body["job_id"])
	assert.Equal(t, "pending", body["status"])
	_, hasResult := body["result"]
	assert.False(t, hasResult)
}

func TestSubmit_PassesAPIKeyID(t *testing.T) {
	svc := &mockSubmitter{}
	h := handler.NewSubmitHandler(svc, 1<<20)

	keyID := uuid.New()
	req := multipartRequest(t, handler.FileField, "face.jpg", "", []byte("x"))
	req = req.WithContext(mw.SetAPIKeyID(req.Context(), keyID))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.submitted, 1)
	require.NotNil(t, svc.submitted[0].APIKeyID)
	assert.Equal(t, keyID, *svc.submitted[0].APIKeyID)
}

func TestSubmit_MissingField(t *testing.T) {
	svc := &mockSubmitter{}
	h := handler.NewSubmitHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, "otherField", "face.jpg", "", []byte("x")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
	assert.Empty(t, svc.submitted)
}

func TestSubmit_NotMultipart(t *testing.T) {
	svc := &mockSubmitter{}
	h := handler.NewSubmitHandler(svc, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.submitted)
}

func TestSubmit_BodyFarOverLimitNeverReachesService(t *testing.T) {
	svc := &mockSubmitter{}
	h := handler.NewSubmitHandler(svc, 16)

	big := bytes.Repeat([]byte("a"), 3<<20)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, handler.FileField, "big.jpg", "", big))

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, w.Code)
	assert.Empty(t, svc.submitted)
}

func TestSubmit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "validation",
			err:      &submission.ValidationError{Code: submission.CodeInvalidRequest, Message: "File type not allowed"},
			wantCode: http.StatusBadRequest,
			wantBody: "File type not allowed",
		},
		{
			name:     "too large",
			err:      &submission.ValidationError{Code: submission.CodeFileTooLarge, Message: "File too large"},
			wantCode: http.StatusRequestEntityTooLarge,
			wantBody: "File too large",
		},
		{
			name:     "upload",
			err:      fmt.Errorf("%w: %v", submission.ErrUploadFailed, errors.New("s3: access denied")),
			wantCode: http.StatusInternalServerError,
			wantBody: "S3 upload failed",
		},
		{
			name:     "enqueue",
			err:      fmt.Errorf("%w: %v", submission.ErrEnqueueFailed, errors.New("sqs: throttled")),
			wantCode: http.StatusInternalServerError,
			wantBody: "Failed to queue job",
		},
		{
			name:     "unexpected",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSubmitter{SubmitFunc: func(context.Context, submission.Upload) (*submission.Result, error) {
				return nil, tt.err
			}}
			h := handler.NewSubmitHandler(svc, 1<<20)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, multipartRequest(t, handler.FileField, "face.jpg", "", []byte("x")))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, decode(t, w)["error"])
			assert.NotContains(t, w.Body.String(), "s3:")
			assert.NotContains(t, w.Body.String(), "sqs:")
		})
	}
}

// --- status ---

func TestStatus_Pending(t *testing.T) {
	id := uuid.NewString()
	h := handler.NewStatusHandler(&mockSubmitter{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, statusRequest(id))

	assert.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, id, body["job_id"])
	assert.Equal(t, "pending", body["status"])
}

func TestStatus_Done(t *testing.T) {
	id := uuid.NewString()
	svc := &mockSubmitter{StatusFunc: func(_ context.Context, jobID string) (*submission.Result, error) {
		return &submission.Result{JobID: jobID, Status: models.JobStatusDone, Verdict: "NOT_FOUND"}, nil
	}}
	h := handler.NewStatusHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, statusRequest(id))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "done", body["status"])
	assert.Equal(t, "NOT_FOUND", body["result"])
}

func TestStatus_InvalidID(t *testing.T) {
	svc := &mockSubmitter{StatusFunc: func(context.Context, string) (*submission.Result, error) {
		return nil, submission.ErrInvalidJobID
	}}
	h := handler.NewStatusHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, statusRequest("not-a-uuid"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
}

func TestStatus_ReadError(t *testing.T) {
	svc := &mockSubmitter{StatusFunc: func(context.Context, string) (*submission.Result, error) {
		return nil, errors.New("reading result: connection reset")
	}}
	h := handler.NewStatusHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, statusRequest(uuid.NewString()))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

// --- health ---

func TestHealth_AlwaysOK(t *testing.T) {
	w := httptest.NewRecorder()
	handler.NewHealthHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestReady_AllOK(t *testing.T) {
	h := handler.NewReadyHandler(map[string]handler.Pinger{
		"input_bucket": pinger{},
		"queue":        pinger{},
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{"input_bucket": "ok", "queue": "ok"}, body["services"])
}

func TestReady_Degraded(t *testing.T) {
	h := handler.NewReadyHandler(map[string]handler.Pinger{
		"queue": pinger{},
		"redis": pinger{err: errors.New("dial tcp: refused")},
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"queue": "ok", "redis": "degraded"}, body["services"])
}

func TestReady_NoDependencies(t *testing.T) {
	w := httptest.NewRecorder()
	handler.NewReadyHandler(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
