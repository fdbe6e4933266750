// Package search implements the query execution core: the
// Query/Weight/Scorer pipeline, TF-IDF scoring, and the collector
// chain that turns a scored doc stream into ranked results.
package search

import (
	"math"

	"github.com/kestrelsearch/kestrel/core/index"
)

// Similarity computes the scoring-time factors a Weight needs: term
// frequency and inverse-document-frequency contributions, the
// query-level normalization factor, the coordination factor for
// partial boolean matches, and the length norm baked into each
// document's stored norm byte at flush time.
type Similarity interface {
	Tf(freq float32) float32
	Idf(docFreq, numDocs int) float32
	QueryNorm(sumOfSquaredWeights float32) float32
	Coord(overlap, maxOverlap int) float32
	SloppyFreq(distance int) float32
	ComputeNorm(numTokens int, boost float32) byte
	DecodeNormValue(b byte) float32
}

// DefaultSimilarity is the classic Lucene TF-IDF formula:
// score(q,d) = coord(q,d) * queryNorm(q) * sum_t( tf(t,d) * idf(t)^2 * t.boost * norm(t,d) )
type DefaultSimilarity struct{}

func (DefaultSimilarity) Tf(freq float32) float32 {
	return float32(math.Sqrt(float64(freq)))
}

func (DefaultSimilarity) Idf(docFreq, numDocs int) float32 {
	return float32(math.Log(float64(numDocs)/float64(docFreq+1)) + 1.0)
}

func (DefaultSimilarity) QueryNorm(sumOfSquaredWeights float32) float32 {
	if sumOfSquaredWeights == 0 {
		return 1.0
	}
	return float32(1.0 / math.Sqrt(float64(sumOfSquaredWeights)))
}

func (DefaultSimilarity) Coord(overlap, maxOverlap int) float32 {
	if maxOverlap == 0 {
		return 0
	}
	return float32(overlap) / float32(maxOverlap)
}

// SloppyFreq decays a phrase match's contribution as the edit distance
// from an exact phrase match grows: 1/(distance+1).
func (DefaultSimilarity) SloppyFreq(distance int) float32 {
	return 1.0 / float32(distance+1)
}

func (DefaultSimilarity) ComputeNorm(numTokens int, boost float32) byte {
	return index.DefaultSimilarity{}.ComputeNorm(numTokens, boost)
}

func (DefaultSimilarity) DecodeNormValue(b byte) float32 {
	return index.DecodeNormByte(b)
}
