package search

import "testing"

func TestDefaultSimilarityIdfMatchesDocumentedFormula(t *testing.T) {
	// idf = log(numDocs/(docFreq+1)) + 1, per spec and the original
	// DefaultSimilarity.Idf (numDocs, not numDocs+1, in the numerator).
	sim := DefaultSimilarity{}

	got := sim.Idf(3, 10)
	want := float32(1.9162907) // log(10/4) + 1
	if diff := got - want; diff > 1e-5 || diff < -1e-5 {
		t.Fatalf("Idf(3, 10) = %v, want %v", got, want)
	}

	got = sim.Idf(1, 1)
	want = float32(0.30685282) // log(1/2) + 1
	if diff := got - want; diff > 1e-5 || diff < -1e-5 {
		t.Fatalf("Idf(1, 1) = %v, want %v", got, want)
	}
}
