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

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/texts"
)

// mockTextStore serves canned texts and records list parameters.
type mockTextStore struct {
	texts      map[uuid.UUID]*texts.Text
	listResult []texts.Text
	listErr    error
	lastList   texts.ListParams
	stats      texts.Statistics
}

func newMockTextStore() *mockTextStore {
	return &mockTextStore{texts: make(map[uuid.UUID]*texts.Text)}
}

func (m *mockTextStore) Get(_ context.Context, id uuid.UUID) (*texts.Text, error) {
	t, ok := m.texts[id]
	if !ok {
		return nil, texts.ErrNotFound
	}
	return t, nil
}

func (m *mockTextStore) List(_ context.Context, params texts.ListParams) ([]texts.Text, error) {
	m.lastList = params
	return m.listResult, m.listErr
}

func (m *mockTextStore) GetStatistics(_ context.Context) (*texts.Statistics, error) {
	return &m.stats, nil
}

func newTextsMux(runner Runner, store TextStore) *http.ServeMux {
	mux := http.NewServeMux()
	NewTextsHandler(runner, store, log.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestListTexts(t *testing.T) {
	store := newMockTextStore()
	store.listResult = []texts.Text{*sampleText(), *sampleText()}
	mux := newTextsMux(&mockRunner{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/texts?status=pending&limit=10", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, texts.StatusPending, store.lastList.Status)
	assert.Equal(t, 10, store.lastList.Limit)

	var resp struct {
		Texts []TextResponse `json:"texts"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Texts, 2)
}

func TestListTextsInvalidStatus(t *testing.T) {
	mux := newTextsMux(&mockRunner{}, newMockTextStore())

	req := httptest.NewRequest(http.MethodGet, "/api/texts?status=archived", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetText(t *testing.T) {
	store := newMockTextStore()
	text := sampleText()
	store.texts[text.ID] = text
	mux := newTextsMux(&mockRunner{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/texts/"+text.ID.String(), nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp TextResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, text.ID.String(), resp.ID)
	assert.Equal(t, "renewable energy", resp.Topic)
}

func TestGetTextNotFound(t *testing.T) {
	mux := newTextsMux(&mockRunner{}, newMockTextStore())

	req := httptest.NewRequest(http.MethodGet, "/api/texts/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTextBadID(t *testing.T) {
	mux := newTextsMux(&mockRunner{}, newMockTextStore())

	req := httptest.NewRequest(http.MethodGet, "/api/texts/not-a-uuid", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproval(t *testing.T) {
	approved := sampleText()
	approved.Status = texts.StatusApproved
	runner := &mockRunner{approved: approved, changed: true}
	mux := newTextsMux(runner, newMockTextStore())

	req := httptest.NewRequest(http.MethodPatch,
		"/api/texts/"+approved.ID.String()+"/approval",
		strings.NewReader(`{"status": "approved"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, approved.ID, runner.lastID)
	assert.Equal(t, texts.StatusApproved, runner.lastStatus)

	var resp ApprovalResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, "approved", resp.Text.Status)
}

func TestApprovalIdempotentResubmission(t *testing.T) {
	approved := sampleText()
	approved.Status = texts.StatusApproved
	runner := &mockRunner{approved: approved, changed: false}
	mux := newTextsMux(runner, newMockTextStore())

	req := httptest.NewRequest(http.MethodPatch,
		"/api/texts/"+approved.ID.String()+"/approval",
		strings.NewReader(`{"status": "approved"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ApprovalResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Changed)
}

func TestApprovalRejectsPending(t *testing.T) {
	mux := newTextsMux(&mockRunner{}, newMockTextStore())

	req := httptest.NewRequest(http.MethodPatch,
		"/api/texts/"+uuid.NewString()+"/approval",
		strings.NewReader(`{"status": "pending"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalUnknownText(t *testing.T) {
	runner := &mockRunner{approveErr: texts.ErrNotFound}
	mux := newTextsMux(runner, newMockTextStore())

	req := httptest.NewRequest(http.MethodPatch,
		"/api/texts/"+uuid.NewString()+"/approval",
		strings.NewReader(`{"status": "denied"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatistics(t *testing.T) {
	store := newMockTextStore()
	store.stats = texts.Statistics{Generated: 12, Approved: 5, Denied: 3, UpdatedAt: time.Now()}
	mux := newTextsMux(&mockRunner{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/statistics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp StatisticsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(12), resp.Generated)
	assert.Equal(t, int64(5), resp.Approved)
	assert.Equal(t, int64(3), resp.Denied)
}

func TestParseIntParamBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/texts?limit=9999&offset=-5", nil)

	assert.Equal(t, MaxListLimit, parseIntParam(req, "limit", DefaultListLimit, 1, MaxListLimit))
	assert.Equal(t, 0, parseIntParam(req, "offset", 0, 0, MaxListOffset))
	assert.Equal(t, DefaultListLimit, parseIntParam(req, "missing", DefaultListLimit, 1, MaxListLimit))
}
