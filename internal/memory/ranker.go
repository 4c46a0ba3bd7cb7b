package memory

import "sort"

// Ranker orders brute-force retrieval candidates when sqlite-vec is not
// available or its index is incomplete.
type Ranker struct{}

// NewRanker creates a new Ranker.
func NewRanker() *Ranker { return &Ranker{} }

// candidate is a stored record together with its embedding.
type candidate struct {
	Record
	Embedding []float32
}

// Rank scores candidates by cosine similarity to query and returns the top k,
// highest first. Ties keep insertion order.
func (r *Ranker) Rank(query []float32, candidates []candidate, k int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		sim := CosineSimilarity(query, c.Embedding)
		// Map cosine from [-1, 1] to [0, 1].
		matches = append(matches, Match{
			ID:         c.ID,
			Content:    c.Content,
			Source:     c.Source,
			Similarity: (sim + 1) / 2,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
