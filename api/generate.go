package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/generate"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/pipeline"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/texts"
)

// Runner is the pipeline surface the API needs.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Approve(ctx context.Context, id uuid.UUID, status texts.Status) (*texts.Text, bool, error)
}

// GenerateHandler handles the generation endpoint.
type GenerateHandler struct {
	runner Runner
	logger log.Logger
}

// NewGenerateHandler creates a generate handler.
func NewGenerateHandler(runner Runner, logger log.Logger) *GenerateHandler {
	return &GenerateHandler{runner: runner, logger: logger}
}

// RegisterRoutes registers the generation route on the given mux.
func (h *GenerateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate", h.generate)
}

// GenerateRequest is the request body for a generation run.
type GenerateRequest struct {
	Topic       string `json:"topic"`
	SearchQuery string `json:"search_query,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Tone        string `json:"tone,omitempty"`
	Creativity  string `json:"creativity,omitempty"`
	Length      string `json:"length,omitempty"`
	Model       string `json:"model,omitempty"`
}

// GenerateResponse reports the created text and how generation went.
// WithinTolerance distinguishes a precise result from a degraded success
// so the caller can decide whether to accept or regenerate.
type GenerateResponse struct {
	Text            TextResponse `json:"text"`
	WithinTolerance bool         `json:"within_tolerance"`
	Attempts        int          `json:"attempts"`
	References      int          `json:"references"`
}

func (h *GenerateHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	res, err := h.runner.Run(r.Context(), pipeline.Request{
		Topic:       req.Topic,
		SearchQuery: req.SearchQuery,
		Platform:    req.Platform,
		Tone:        req.Tone,
		Creativity:  req.Creativity,
		Length:      req.Length,
		Model:       req.Model,
	})
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	case errors.Is(err, generate.ErrExhausted):
		writeError(w, http.StatusBadGateway, "generation_failed",
			"all generation attempts failed")
		return
	case err != nil:
		h.logger.Error("generation pipeline failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "generation failed")
		return
	}

	writeJSON(w, http.StatusCreated, GenerateResponse{
		Text:            toTextResponse(res.Text),
		WithinTolerance: res.Generation.WithinTolerance(),
		Attempts:        res.Generation.Attempts,
		References:      res.References,
	})
}
