// Package pipeline orchestrates a generation request end to end: topic
// validation, cached context retrieval, similarity ranking, prompt
// composition, constrained generation, and persistence of the resulting
// artifact. It also drives the approval workflow.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/cache"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/generate"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/llm"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/prompt"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/search"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/texts"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/vector"
)

// Topic length bounds in characters.
const (
	MinTopicLen = 5
	MaxTopicLen = 500
)

// Validation errors. All wrap ErrInvalidRequest so callers can treat
// them as one class.
var (
	ErrInvalidRequest  = errors.New("invalid generation request")
	ErrTopicTooShort   = fmt.Errorf("%w: topic shorter than %d characters", ErrInvalidRequest, MinTopicLen)
	ErrTopicTooLong    = fmt.Errorf("%w: topic longer than %d characters", ErrInvalidRequest, MaxTopicLen)
	ErrTopicUnsafe     = fmt.Errorf("%w: topic contains markup", ErrInvalidRequest)
	ErrUnknownPlatform = fmt.Errorf("%w: unknown platform", ErrInvalidRequest)
)

// rankTopK bounds how many ranked candidates survive similarity
// ranking before prompt composition trims further.
const rankTopK = 5

// unsafePatterns reject topics carrying embedded markup or script.
var unsafePatterns = []string{"<script", "</script", "javascript:", "<iframe", "onerror=", "onload="}

// Retriever finds reference documents for a topic.
type Retriever interface {
	Search(ctx context.Context, query string, size int) []search.Document
}

// Cache stores opaque payloads under namespaced query keys.
type Cache interface {
	Get(ctx context.Context, namespace, query string) ([]byte, bool)
	Set(ctx context.Context, namespace, query string, payload []byte, ttl time.Duration)
}

// Generator produces text constrained to a word-count target.
type Generator interface {
	Generate(ctx context.Context, basePrompt string, targetWords int, opts llm.Options) (generate.Result, error)
}

// Store persists artifacts and statistics.
type Store interface {
	Create(ctx context.Context, params texts.CreateParams) (*texts.Text, error)
	SetStatus(ctx context.Context, id uuid.UUID, status texts.Status) (*texts.Text, bool, error)
	SaveEmbedding(ctx context.Context, textID uuid.UUID, vec []float32) error
}

// Options configure a Pipeline.
type Options struct {
	SearchSize  int           // documents requested from the retriever
	ContextTTL  time.Duration // cache lifetime for retrieved contexts
	VectorTTL   time.Duration // cache lifetime for embeddings
	Model       string        // default generation model
	MaxTokens   int
	Temperature float32
}

// Pipeline wires the generation components together. Safe for concurrent
// use; each Run is an independent synchronous call chain.
type Pipeline struct {
	retriever Retriever
	cache     Cache
	embedder  vector.Embedder // nil disables similarity ranking
	generator Generator
	store     Store
	opts      Options
	logger    log.Logger
}

// New creates a Pipeline. embedder may be nil, in which case references
// keep their retrieval order.
func New(r Retriever, c Cache, e vector.Embedder, g Generator, s Store, opts Options, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	if opts.SearchSize <= 0 {
		opts.SearchSize = search.DefaultSize
	}
	if opts.ContextTTL <= 0 {
		opts.ContextTTL = time.Hour
	}
	if opts.VectorTTL <= 0 {
		opts.VectorTTL = 24 * time.Hour
	}
	return &Pipeline{
		retriever: r, cache: c, embedder: e, generator: g, store: s,
		opts: opts, logger: logger,
	}
}

// Request is a user-submitted generation request.
type Request struct {
	Topic       string
	SearchQuery string // retrieval query; the topic is used when empty
	Platform    string
	Tone        string
	Creativity  string
	Length      string
	Model       string // overrides the default generation model
}

// Validate rejects a request before any backend call.
func (r Request) Validate() error {
	topic := strings.TrimSpace(r.Topic)
	switch {
	case utf8.RuneCountInString(topic) < MinTopicLen:
		return ErrTopicTooShort
	case utf8.RuneCountInString(topic) > MaxTopicLen:
		return ErrTopicTooLong
	}

	lower := strings.ToLower(topic)
	for _, p := range unsafePatterns {
		if strings.Contains(lower, p) {
			return ErrTopicUnsafe
		}
	}

	if r.Platform != "" && !prompt.KnownPlatform(r.Platform) {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, r.Platform)
	}
	return nil
}

// Result is the outcome of one pipeline run.
type Result struct {
	Text       *texts.Text
	Generation generate.Result
	References int // reference documents embedded into the prompt
}

// Run executes the full pipeline for a request. Retrieval, caching, and
// ranking failures degrade softly; only validation failures and total
// generation failure return an error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(req.Topic)
	query := strings.TrimSpace(req.SearchQuery)
	if query == "" {
		query = topic
	}

	docs := p.retrieveContext(ctx, query)
	refs := p.rankReferences(ctx, query, docs)

	basePrompt, target := prompt.Compose(prompt.Request{
		Topic:      topic,
		Platform:   req.Platform,
		Tone:       req.Tone,
		Creativity: req.Creativity,
		Length:     req.Length,
	}, refs)

	opts := llm.Options{
		Model:       req.Model,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
	}
	if opts.Model == "" {
		opts.Model = p.opts.Model
	}

	gen, err := p.generator.Generate(ctx, basePrompt, target, opts)
	if err != nil {
		return nil, fmt.Errorf("generating text for %q: %w", topic, err)
	}

	text, err := p.store.Create(ctx, texts.CreateParams{
		Topic:           topic,
		Content:         gen.Text,
		Platform:        req.Platform,
		Tone:            req.Tone,
		Creativity:      req.Creativity,
		Provider:        gen.Provider,
		Model:           opts.Model,
		WordCount:       gen.WordCount,
		TargetWords:     gen.Target,
		WithinTolerance: gen.WithinTolerance(),
	})
	if err != nil {
		return nil, fmt.Errorf("persisting generated text: %w", err)
	}

	p.logger.Info("pipeline run complete",
		"id", text.ID, "topic", topic, "words", gen.WordCount,
		"target", gen.Target, "outcome", gen.Outcome.String(),
		"references", min(len(refs), prompt.MaxReferences))

	return &Result{Text: text, Generation: gen, References: min(len(refs), prompt.MaxReferences)}, nil
}

// cachedContext is the JSON payload stored in the context namespace.
type cachedContext struct {
	Query     string            `json:"query"`
	Documents []search.Document `json:"documents"`
}

// retrieveContext returns reference documents for the retrieval query,
// consulting the cache first. A cache or search failure yields an empty
// slice.
func (p *Pipeline) retrieveContext(ctx context.Context, query string) []search.Document {
	if payload, ok := p.cache.Get(ctx, cache.NamespaceContext, query); ok {
		var cached cachedContext
		if err := json.Unmarshal(payload, &cached); err == nil {
			p.logger.Debug("context cache hit", "query", query, "documents", len(cached.Documents))
			return cached.Documents
		}
		p.logger.Warn("discarding malformed cached context", "query", query)
	}

	docs := p.retriever.Search(ctx, query, p.opts.SearchSize)
	if len(docs) == 0 {
		return nil
	}

	if payload, err := json.Marshal(cachedContext{Query: query, Documents: docs}); err == nil {
		p.cache.Set(ctx, cache.NamespaceContext, query, payload, p.opts.ContextTTL)
	}
	return docs
}

// rankReferences orders documents by embedding similarity to the
// retrieval query and converts them to prompt references. Without an
// embedder, or when embedding fails, documents keep their retrieval
// order and scores.
func (p *Pipeline) rankReferences(ctx context.Context, query string, docs []search.Document) []prompt.Reference {
	if len(docs) == 0 {
		return nil
	}

	byRetrieval := func() []prompt.Reference {
		refs := make([]prompt.Reference, len(docs))
		for i, d := range docs {
			refs[i] = prompt.Reference{Text: d.Content, Score: d.Score}
		}
		return refs
	}

	if p.embedder == nil || len(docs) == 1 {
		return byRetrieval()
	}

	queryVec := p.embedText(ctx, query)
	if len(queryVec) == 0 {
		return byRetrieval()
	}

	candidates := make([][]float32, len(docs))
	for i, d := range docs {
		candidates[i] = p.embedText(ctx, d.Content)
	}

	ranked := vector.Rank(queryVec, candidates, rankTopK)
	refs := make([]prompt.Reference, 0, len(ranked))
	for _, r := range ranked {
		// Items without an embedding score 0 and sink to the bottom;
		// keep them so retrieval results are never silently dropped.
		refs = append(refs, prompt.Reference{
			Text:  docs[r.Index].Content,
			Score: r.Similarity,
		})
	}
	return refs
}

// embedText returns the embedding for text, consulting the vectors
// namespace first. Failures return nil, which callers treat as "no
// embedding available".
func (p *Pipeline) embedText(ctx context.Context, text string) []float32 {
	if payload, ok := p.cache.Get(ctx, cache.NamespaceVectors, text); ok {
		var vec []float32
		if err := json.Unmarshal(payload, &vec); err == nil {
			return vec
		}
	}

	vec, err := p.embedder.Encode(ctx, text)
	if err != nil {
		p.logger.Warn("embedding failed, skipping similarity for item", "error", err)
		return nil
	}

	if payload, err := json.Marshal(vec); err == nil {
		p.cache.Set(ctx, cache.NamespaceVectors, text, payload, p.opts.VectorTTL)
	}
	return vec
}

// Approve transitions a text to approved or denied. On a transition to
// approved, the content's embedding is computed and persisted so future
// generations can reference it; embedding failures are logged and do not
// undo the approval.
func (p *Pipeline) Approve(ctx context.Context, id uuid.UUID, status texts.Status) (*texts.Text, bool, error) {
	text, changed, err := p.store.SetStatus(ctx, id, status)
	if err != nil {
		return nil, false, err
	}

	if changed && status == texts.StatusApproved && p.embedder != nil {
		if vec := p.embedText(ctx, text.Content); len(vec) > 0 {
			if err := p.store.SaveEmbedding(ctx, text.ID, vec); err != nil {
				p.logger.Warn("saving embedding for approved text failed",
					"id", text.ID, "error", err)
			}
		}
	}
	return text, changed, nil
}
