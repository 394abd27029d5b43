package vecstore

import (
	"math"
	"sort"
)

// Chunk is one embedded slice of an uploaded document.
type Chunk struct {
	Content string    `json:"content"`
	Source  string    `json:"source"`
	Vector  []float32 `json:"vector"`
}

// Index is an exact nearest-neighbor index over embedded chunks. It is a plain
// value; concurrency control happens at the Store level via the session lock.
type Index struct {
	Chunks []Chunk `json:"chunks"`
}

func NewIndex() *Index {
	return &Index{}
}

func (ix *Index) Add(chunks ...Chunk) {
	ix.Chunks = append(ix.Chunks, chunks...)
}

// Merge unions the other index's vectors into this one. No deduplication:
// uploading the same document twice doubles its chunks.
func (ix *Index) Merge(other *Index) {
	if other == nil {
		return
	}
	ix.Chunks = append(ix.Chunks, other.Chunks...)
}

func (ix *Index) Len() int {
	return len(ix.Chunks)
}

// SearchMMR returns up to k chunks by maximal marginal relevance: the fetchK
// nearest candidates by cosine similarity are re-ranked to favor diversity
// against already-selected results (lambda 0.5).
func (ix *Index) SearchMMR(query []float32, k, fetchK int) []Chunk {
	if k <= 0 || len(ix.Chunks) == 0 || len(query) == 0 {
		return nil
	}
	if fetchK < k {
		fetchK = k
	}

	type scored struct {
		idx int
		sim float64
	}
	candidates := make([]scored, 0, len(ix.Chunks))
	for i := range ix.Chunks {
		candidates = append(candidates, scored{idx: i, sim: cosineSimilarity(query, ix.Chunks[i].Vector)})
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].sim > candidates[b].sim })
	if len(candidates) > fetchK {
		candidates = candidates[:fetchK]
	}

	const lambda = 0.5
	selected := make([]int, 0, k)
	remaining := candidates
	for len(selected) < k && len(remaining) > 0 {
		bestPos := 0
		bestScore := math.Inf(-1)
		for pos, cand := range remaining {
			redundancy := 0.0
			for _, sel := range selected {
				if sim := cosineSimilarity(ix.Chunks[cand.idx].Vector, ix.Chunks[sel].Vector); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*cand.sim - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		selected = append(selected, remaining[bestPos].idx)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	result := make([]Chunk, len(selected))
	for i, idx := range selected {
		result[i] = ix.Chunks[idx]
	}
	return result
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
