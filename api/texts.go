package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/texts"
)

// Listing bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
	MaxListOffset    = 100000
)

// TextsHandler handles text listing, approval, and statistics endpoints.
type TextsHandler struct {
	runner Runner
	store  TextStore
	logger log.Logger
}

// NewTextsHandler creates a texts handler.
func NewTextsHandler(runner Runner, store TextStore, logger log.Logger) *TextsHandler {
	return &TextsHandler{runner: runner, store: store, logger: logger}
}

// RegisterRoutes registers text routes on the given mux.
func (h *TextsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/texts", h.list)
	mux.HandleFunc("GET /api/texts/{id}", h.get)
	mux.HandleFunc("PATCH /api/texts/{id}/approval", h.approval)
	mux.HandleFunc("GET /api/statistics", h.statistics)
}

// TextResponse is the JSON representation of a text.
type TextResponse struct {
	ID              string    `json:"id"`
	Topic           string    `json:"topic"`
	Content         string    `json:"content"`
	Platform        string    `json:"platform,omitempty"`
	Tone            string    `json:"tone,omitempty"`
	Creativity      string    `json:"creativity,omitempty"`
	Provider        string    `json:"provider,omitempty"`
	Model           string    `json:"model,omitempty"`
	WordCount       int       `json:"word_count"`
	TargetWords     int       `json:"target_words"`
	WithinTolerance bool      `json:"within_tolerance"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toTextResponse(t *texts.Text) TextResponse {
	return TextResponse{
		ID:              t.ID.String(),
		Topic:           t.Topic,
		Content:         t.Content,
		Platform:        t.Platform,
		Tone:            t.Tone,
		Creativity:      t.Creativity,
		Provider:        t.Provider,
		Model:           t.Model,
		WordCount:       t.WordCount,
		TargetWords:     t.TargetWords,
		WithinTolerance: t.WithinTolerance,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// list returns texts, newest first.
// Query parameters:
//   - status: filter by approval status (pending, approved, denied)
//   - limit: page size (default 50, max 500)
//   - offset: texts to skip
func (h *TextsHandler) list(w http.ResponseWriter, r *http.Request) {
	params := texts.ListParams{
		Limit:  parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit),
		Offset: parseIntParam(r, "offset", 0, 0, MaxListOffset),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := texts.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status",
				"status must be pending, approved, or denied")
			return
		}
		params.Status = status
	}

	list, err := h.store.List(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to list texts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list texts")
		return
	}

	out := make([]TextResponse, len(list))
	for i := range list {
		out[i] = toTextResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"texts":  out,
		"total":  len(out),
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

func (h *TextsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	text, err := h.store.Get(r.Context(), id)
	if errors.Is(err, texts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "text not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get text", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get text")
		return
	}
	writeJSON(w, http.StatusOK, toTextResponse(text))
}

// ApprovalRequest is the request body for an approval decision.
type ApprovalRequest struct {
	Status string `json:"status"`
}

// ApprovalResponse reports the text's state after the decision. Changed
// is false when the request repeated the current status; counters do not
// move in that case.
type ApprovalResponse struct {
	Text    TextResponse `json:"text"`
	Changed bool         `json:"changed"`
}

func (h *TextsHandler) approval(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	var req ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	status, err := texts.ParseStatus(req.Status)
	if err != nil || status == texts.StatusPending {
		writeError(w, http.StatusBadRequest, "invalid_status",
			"status must be approved or denied")
		return
	}

	text, changed, err := h.runner.Approve(r.Context(), id, status)
	if errors.Is(err, texts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "text not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to update approval", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to update approval")
		return
	}

	writeJSON(w, http.StatusOK, ApprovalResponse{Text: toTextResponse(text), Changed: changed})
}

// StatisticsResponse carries the aggregate counters.
type StatisticsResponse struct {
	Generated int64     `json:"generated"`
	Approved  int64     `json:"approved"`
	Denied    int64     `json:"denied"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *TextsHandler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStatistics(r.Context())
	if err != nil {
		h.logger.Error("failed to read statistics", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to read statistics")
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{
		Generated: stats.Generated,
		Approved:  stats.Approved,
		Denied:    stats.Denied,
		UpdatedAt: stats.UpdatedAt,
	})
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
