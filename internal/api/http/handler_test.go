package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fetchmill/fetchmill/internal/domain"
	errs "github.com/fetchmill/fetchmill/internal/errors"
)

type mockRunService struct {
	createFn func(ctx context.Context, req *domain.CreateRunRequest) (*domain.Run, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.Run, error)
}

func (m *mockRunService) CreateRun(ctx context.Context, req *domain.CreateRunRequest) (*domain.Run, error) {
	return m.createFn(ctx, req)
}

func (m *mockRunService) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return m.getFn(ctx, id)
}

func newTestHandler(svc RunServiceI) http.Handler {
	h := NewRunHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Post("/runs", h.CreateRun)
	r.Get("/runs/{runID}", h.GetRun)
	return r
}

func TestCreateRun_Accepted(t *testing.T) {
	runID := uuid.New()
	svc := &mockRunService{
		createFn: func(ctx context.Context, req *domain.CreateRunRequest) (*domain.Run, error) {
			require.Len(t, req.Items, 1)
			return &domain.Run{ID: runID, Status: domain.RunStatusPending}, nil
		},
	}

	body := `{"items":[{"url":"http://example.com/file.bin"}]}`
	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	newTestHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, runID.String(), resp["run_id"])
}

func TestCreateRun_InvalidBody(t *testing.T) {
	svc := &mockRunService{
		createFn: func(ctx context.Context, req *domain.CreateRunRequest) (*domain.Run, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()

	newTestHandler(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRun_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty items", `{"items":[]}`},
		{"missing url", `{"items":[{"destination":"/tmp/x"}]}`},
		{"bad url", `{"items":[{"url":"not a url"}]}`},
		{"bad checksum algorithm", `{"items":[{"url":"http://example.com/f","checksum":{"algorithm":"crc32","digest":"abcd"}}]}`},
		{"bad extract format", `{"items":[{"url":"http://example.com/f","extract":{"format":"rar","target_dir":"out"}}]}`},
		{"extract without target", `{"items":[{"url":"http://example.com/f","extract":{"format":"zip"}}]}`},
	}

	svc := &mockRunService{
		createFn: func(ctx context.Context, req *domain.CreateRunRequest) (*domain.Run, error) {
			return nil, fmt.Errorf("unexpected call")
		},
	}
	handler := newTestHandler(svc)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateRun_LargeRunsReachTheService(t *testing.T) {
	runID := uuid.New()
	svc := &mockRunService{
		createFn: func(ctx context.Context, req *domain.CreateRunRequest) (*domain.Run, error) {
			// The structural validator imposes no item ceiling; the
			// service enforces the configured cap.
			require.Len(t, req.Items, 150)
			return &domain.Run{ID: runID, Status: domain.RunStatusPending}, nil
		},
	}

	items := make([]map[string]string, 150)
	for i := range items {
		items[i] = map[string]string{"url": fmt.Sprintf("http://example.com/f%d", i)}
	}
	body, err := json.Marshal(map[string]any{"items": items})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	newTestHandler(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateRun_ServiceError(t *testing.T) {
	svc := &mockRunService{
		createFn: func(ctx context.Context, req *domain.CreateRunRequest) (*domain.Run, error) {
			return nil, fmt.Errorf("run exceeds maximum of 100 items")
		},
	}

	body := `{"items":[{"url":"http://example.com/file.bin"}]}`
	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	newTestHandler(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "maximum")
}

func TestGetRun_Found(t *testing.T) {
	runID := uuid.New()
	svc := &mockRunService{
		getFn: func(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
			assert.Equal(t, runID, id)
			return &domain.Run{
				ID:        runID,
				Status:    domain.RunStatusCompleted,
				Outcomes:  []domain.TaskOutcome{{Index: 0, State: domain.StateSucceeded}},
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/runs/"+runID.String(), nil)
	rec := httptest.NewRecorder()

	newTestHandler(svc).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, runID, resp.ID)
	assert.Equal(t, domain.RunStatusCompleted, resp.Status)
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, domain.StateSucceeded, resp.Outcomes[0].State)
}

func TestGetRun_NotFound(t *testing.T) {
	svc := &mockRunService{
		getFn: func(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
			return nil, errs.ErrRunNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/runs/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()

	newTestHandler(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRun_InvalidID(t *testing.T) {
	svc := &mockRunService{
		getFn: func(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/runs/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	newTestHandler(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
