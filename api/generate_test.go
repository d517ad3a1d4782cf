package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/generate"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/pipeline"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/texts"
)

// mockRunner scripts pipeline behavior for handler tests.
type mockRunner struct {
	runResult  *pipeline.Result
	runErr     error
	lastRun    pipeline.Request
	approved   *texts.Text
	changed    bool
	approveErr error
	lastID     uuid.UUID
	lastStatus texts.Status
}

func (m *mockRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	m.lastRun = req
	if m.runErr != nil {
		return nil, m.runErr
	}
	return m.runResult, nil
}

func (m *mockRunner) Approve(_ context.Context, id uuid.UUID, status texts.Status) (*texts.Text, bool, error) {
	m.lastID, m.lastStatus = id, status
	if m.approveErr != nil {
		return nil, false, m.approveErr
	}
	return m.approved, m.changed, nil
}

func sampleText() *texts.Text {
	return &texts.Text{
		ID: uuid.New(), Topic: "renewable energy",
		Content: "Solar and wind keep growing.", Platform: "LKN",
		WordCount: 295, TargetWords: 300, WithinTolerance: true,
		Status: texts.StatusPending, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

func newGenerateMux(runner Runner) *http.ServeMux {
	mux := http.NewServeMux()
	NewGenerateHandler(runner, log.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestGenerateEndpoint(t *testing.T) {
	runner := &mockRunner{runResult: &pipeline.Result{
		Text: sampleText(),
		Generation: generate.Result{
			WordCount: 295, Target: 300, Attempts: 1, Outcome: generate.Succeeded,
		},
		References: 2,
	}}
	mux := newGenerateMux(runner)

	body := `{"topic": "renewable energy", "search_query": "solar wind growth", "platform": "LKN", "tone": "professional", "length": "Exact (300 words)"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.WithinTolerance)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, 2, resp.References)
	assert.Equal(t, "pending", resp.Text.Status)
	assert.Equal(t, "renewable energy", runner.lastRun.Topic)
	assert.Equal(t, "solar wind growth", runner.lastRun.SearchQuery)
	assert.Equal(t, "LKN", runner.lastRun.Platform)
}

func TestGenerateEndpointInvalidBody(t *testing.T) {
	mux := newGenerateMux(&mockRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateEndpointValidationFailure(t *testing.T) {
	runner := &mockRunner{runErr: pipeline.ErrTopicTooShort}
	mux := newGenerateMux(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"topic": "hi"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "invalid_request", resp.Error)
}

func TestGenerateEndpointExhaustion(t *testing.T) {
	runner := &mockRunner{runErr: generate.ErrExhausted}
	mux := newGenerateMux(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/generate",
		strings.NewReader(`{"topic": "a doomed but valid topic"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "generation_failed", resp.Error)
}

func TestGenerateEndpointDegradedSuccessIsNotAnError(t *testing.T) {
	runner := &mockRunner{runResult: &pipeline.Result{
		Text: sampleText(),
		Generation: generate.Result{
			WordCount: 200, Target: 400, Attempts: 3, Outcome: generate.Exhausted,
		},
	}}
	mux := newGenerateMux(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/generate",
		strings.NewReader(`{"topic": "a stubborn topic", "length": "medium"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.WithinTolerance)
	assert.Equal(t, 3, resp.Attempts)
}
