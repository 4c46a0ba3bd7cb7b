package memory

import "testing"

func TestRanker_Rank(t *testing.T) {
	r := NewRanker()
	candidates := []candidate{
		{Record: Record{ID: "1", Content: "far"}, Embedding: []float32{-1, 0}},
		{Record: Record{ID: "2", Content: "near"}, Embedding: []float32{1, 0.1}},
		{Record: Record{ID: "3", Content: "mid"}, Embedding: []float32{0, 1}},
	}

	got := r.Rank([]float32{1, 0}, candidates, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].Content != "near" || got[1].Content != "mid" {
		t.Errorf("order = %q, %q", got[0].Content, got[1].Content)
	}
	if got[0].Similarity <= got[1].Similarity {
		t.Error("similarities should be descending")
	}
}

func TestRanker_RankAllWhenKZero(t *testing.T) {
	r := NewRanker()
	candidates := []candidate{
		{Record: Record{ID: "1"}, Embedding: []float32{1}},
		{Record: Record{ID: "2"}, Embedding: []float32{1}},
	}
	if got := r.Rank([]float32{1}, candidates, 0); len(got) != 2 {
		t.Errorf("expected all candidates, got %d", len(got))
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors: %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("length mismatch should be 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector should be 0, got %f", got)
	}
}
