package align

// Similarity converts the edit distance between ref and hyp into a
// percentage: 100 for identical non-empty sequences, 0 when both are empty
// or nothing matches.
func Similarity(ref, hyp []string) float64 {
	return similarityFromDistance(EditDistance(ref, hyp), len(ref), len(hyp))
}

func similarityFromDistance(distance float64, refLen, hypLen int) float64 {
	maxLen := max(refLen, hypLen)
	if maxLen == 0 {
		return 0
	}
	s := 100 * (1 - distance/float64(maxLen))
	return min(max(s, 0), 100)
}
