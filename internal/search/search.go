// Package search provides the context retriever backed by Elasticsearch.
//
// The retriever performs a weighted multi-field match (title above body)
// with fuzzy matching and returns scored reference documents for a topic.
// Backend failures are soft: the retriever logs a warning and returns an
// empty result so the generation pipeline can proceed without references.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
)

// DefaultSize is the number of documents returned when the caller does not
// specify one.
const DefaultSize = 10

// searchTimeout bounds a single search round trip.
const searchTimeout = 10 * time.Second

// Document is a scored reference document returned by the retriever.
// Documents are immutable snapshots of a single retrieval call.
type Document struct {
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags,omitempty"`
	Source     string    `json:"source,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	Score      float64   `json:"score"`
	Highlights []string  `json:"highlights,omitempty"`
}

// Config holds the retriever's connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// Retriever queries Elasticsearch for reference documents.
// Retriever is safe for concurrent use.
type Retriever struct {
	es     *elasticsearch.Client
	index  string
	logger log.Logger
}

// New creates a Retriever for the given cluster and index.
func New(cfg Config, logger log.Logger) (*Retriever, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return &Retriever{es: es, index: cfg.Index, logger: logger}, nil
}

// searchBody is the query sent to Elasticsearch: best-fields multi_match
// with the title weighted above the body, automatic fuzziness, and
// highlighting on title and content.
type searchBody struct {
	Query     map[string]any `json:"query"`
	Highlight map[string]any `json:"highlight"`
	Size      int            `json:"size"`
}

func buildSearchBody(query string, size int) searchBody {
	return searchBody{
		Query: map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "content", "description"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
		Highlight: map[string]any{
			"fields": map[string]any{
				"content": map[string]any{"max_analyzed_offset": 1000000},
				"title":   map[string]any{},
			},
		},
		Size: size,
	}
}

// response mirrors the subset of the Elasticsearch search response we read.
type response struct {
	Hits struct {
		Hits []struct {
			Score     float64             `json:"_score"`
			Source    Document            `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns up to size documents relevant to the query, ordered by
// descending relevance. Documents with identical content are deduplicated.
//
// Connectivity and backend failures never surface to the caller: the
// retriever logs a warning and returns an empty slice.
func (r *Retriever) Search(ctx context.Context, query string, size int) []Document {
	if size <= 0 {
		size = DefaultSize
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(buildSearchBody(query, size)); err != nil {
		r.logger.Warn("encoding search body failed", "error", err)
		return nil
	}

	res, err := r.es.Search(
		r.es.Search.WithContext(ctx),
		r.es.Search.WithIndex(r.index),
		r.es.Search.WithBody(&body),
	)
	if err != nil {
		r.logger.Warn("search backend unreachable, proceeding without context",
			"query", truncate(query, 50), "error", err)
		return nil
	}
	defer res.Body.Close()

	if res.IsError() {
		r.logger.Warn("search backend returned error, proceeding without context",
			"query", truncate(query, 50), "status", res.StatusCode)
		return nil
	}

	var parsed response
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		r.logger.Warn("decoding search response failed", "error", err)
		return nil
	}

	docs := make([]Document, 0, len(parsed.Hits.Hits))
	seen := make(map[string]struct{}, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if _, dup := seen[hit.Source.Content]; dup {
			continue
		}
		seen[hit.Source.Content] = struct{}{}

		doc := hit.Source
		doc.Score = hit.Score
		doc.Highlights = append(hit.Highlight["title"], hit.Highlight["content"]...)
		docs = append(docs, doc)
	}

	r.logger.Debug("search returned documents",
		"query", truncate(query, 50), "count", len(docs))
	return docs
}

// IndexDocument indexes a document so it becomes retrievable as context.
// Unlike Search, indexing failures are real errors: callers seeding the
// index need to know when a write was lost.
func (r *Retriever) IndexDocument(ctx context.Context, id string, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %q: %w", id, err)
	}

	res, err := r.es.Index(r.index, bytes.NewReader(payload),
		r.es.Index.WithContext(ctx),
		r.es.Index.WithDocumentID(id),
	)
	if err != nil {
		return fmt.Errorf("indexing document %q: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing document %q: status %d", id, res.StatusCode)
	}

	r.logger.Debug("indexed document", "id", id)
	return nil
}

// Ping reports whether the search backend is reachable.
func (r *Retriever) Ping(ctx context.Context) error {
	res, err := r.es.Ping(r.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search backend ping: status %d", res.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
