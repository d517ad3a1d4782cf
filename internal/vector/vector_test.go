package vector

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
		{"scaled", []float32{2, 4, 6}, []float32{1, 2, 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineBounded(t *testing.T) {
	a := []float32{0.1, -0.7, 0.3, 0.9}
	b := []float32{-0.5, 0.2, 0.8, -0.1}
	got := Cosine(a, b)
	if got < -1 || got > 1 {
		t.Errorf("Cosine() = %v, want value in [-1, 1]", got)
	}
}

func TestRankOrdersBySimilarity(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},  // orthogonal
		{1, 0},  // identical
		{1, 1},  // partial
		{-1, 0}, // opposite
	}

	ranked := Rank(query, candidates, 0)

	wantOrder := []int{1, 2, 0, 3}
	for i, want := range wantOrder {
		if ranked[i].Index != want {
			t.Fatalf("Rank() order = %v, want indices %v", ranked, wantOrder)
		}
	}
	if ranked[0].Similarity != 1 {
		t.Errorf("top similarity = %v, want 1", ranked[0].Similarity)
	}
}

func TestRankStableOnTies(t *testing.T) {
	query := []float32{1, 0}
	// Both candidates are orthogonal to the query, so similarity ties at 0.
	candidates := [][]float32{
		{0, 1},
		{0, 2},
		{1, 0},
	}

	ranked := Rank(query, candidates, 0)

	if ranked[0].Index != 2 {
		t.Fatalf("Rank() top = %d, want 2", ranked[0].Index)
	}
	if ranked[1].Index != 0 || ranked[2].Index != 1 {
		t.Errorf("tied candidates reordered: got %d, %d, want 0, 1",
			ranked[1].Index, ranked[2].Index)
	}
}

func TestRankDegenerateCandidates(t *testing.T) {
	query := []float32{1, 1}
	candidates := [][]float32{
		{0, 0},    // zero norm
		{1, 1},    // perfect
		{1, 1, 1}, // wrong dimension
	}

	ranked := Rank(query, candidates, 0)

	if ranked[0].Index != 1 {
		t.Fatalf("Rank() top = %d, want the well-formed candidate", ranked[0].Index)
	}
	// Degenerate candidates score 0 and keep their relative order.
	if ranked[1].Index != 0 || ranked[2].Index != 2 {
		t.Errorf("degenerate order = %d, %d, want 0, 2", ranked[1].Index, ranked[2].Index)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank([]float32{1}, nil, 0); len(got) != 0 {
		t.Errorf("Rank() on empty candidates = %v, want empty", got)
	}
}

func TestRankTopK(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},
		{1, 0},
		{1, 1},
	}

	ranked := Rank(query, candidates, 2)
	if len(ranked) != 2 {
		t.Fatalf("Rank() with topK 2 returned %d results", len(ranked))
	}
	if ranked[0].Index != 1 || ranked[1].Index != 2 {
		t.Errorf("Rank() top two = %d, %d, want 1, 2", ranked[0].Index, ranked[1].Index)
	}

	// topK larger than the candidate set returns everything.
	if got := Rank(query, candidates, 10); len(got) != 3 {
		t.Errorf("Rank() with oversized topK returned %d results, want 3", len(got))
	}
}
