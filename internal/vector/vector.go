// Package vector computes text embeddings and similarity rankings.
//
// Embeddings come from the Gemini embedding API; similarity is plain
// cosine over float32 vectors. Ranking is stable so equally-similar
// candidates keep their retrieval order.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"google.golang.org/genai"
)

// Dim is the embedding dimensionality requested from the backend. The
// text_embeddings column is declared with the same width, so changing
// this requires a schema migration and re-embedding.
const Dim = 768

// Embedder turns text into dense vectors. Implementations must be safe
// for concurrent use.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GeminiEmbedder is an Embedder backed by the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates an embedder for the given model, e.g.
// "gemini-embedding-001".
func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

// Encode embeds a single text.
func (e *GeminiEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch embeds texts in one API call, returning one vector per
// input in the same order.
func (e *GeminiEmbedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(Dim))}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d",
			len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vecs[i] = emb.Values
	}
	return vecs, nil
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// If either vector has zero norm, or the lengths differ, Cosine
// returns 0 so degenerate inputs rank below any real match.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Scored pairs a candidate index with its similarity to the query.
type Scored struct {
	Index      int
	Similarity float64
}

// Rank orders candidates by descending similarity to the query vector
// and returns at most topK of them; topK <= 0 means all. The sort is
// stable: candidates with equal similarity keep their original order.
func Rank(query []float32, candidates [][]float32, topK int) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Index: i, Similarity: Cosine(query, c)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}
