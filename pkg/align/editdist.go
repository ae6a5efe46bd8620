// Package align scores a recognised phoneme stream against the reference
// pronunciation of a sentence, word by word.
//
// The building blocks are:
//
//   - [EditDistance]: Levenshtein distance over phoneme sequences where
//     insertions and deletions cost 1 and a substitution costs the
//     [ipa.Distance] between the two symbols.
//   - [Similarity]: a 0–100 score derived from the edit distance.
//   - [Align]: a dynamic program that cuts the unsegmented recognised stream
//     into exactly one contiguous segment per reference word so that the
//     summed edit distance is minimal, then scores every word.
//
// Everything in this package is deterministic, allocation-bounded and free of
// shared mutable state, so independent calls may run concurrently.
package align

import "github.com/MrWong99/phonexa/pkg/ipa"

// gapCost is the cost of inserting or deleting one symbol.
const gapCost = 1.0

// EditDistance returns the feature-weighted edit distance between a reference
// symbol sequence and a hypothesis symbol sequence. The result is 0 for equal
// sequences and never exceeds max(len(ref), len(hyp)).
func EditDistance(ref, hyp []string) float64 {
	lr, lh := len(ref), len(hyp)
	if lr == 0 {
		return float64(lh) * gapCost
	}
	if lh == 0 {
		return float64(lr) * gapCost
	}

	// Two rolling rows over the hypothesis.
	prev := make([]float64, lh+1)
	cur := make([]float64, lh+1)
	for j := range prev {
		prev[j] = float64(j) * gapCost
	}

	for i := 1; i <= lr; i++ {
		cur[0] = float64(i) * gapCost
		for j := 1; j <= lh; j++ {
			cur[j] = minCost(
				prev[j]+gapCost,
				cur[j-1]+gapCost,
				prev[j-1]+ipa.Distance(ref[i-1], hyp[j-1]),
			)
		}
		prev, cur = cur, prev
	}
	return prev[lh]
}

func minCost(del, ins, sub float64) float64 {
	m := del
	if ins < m {
		m = ins
	}
	if sub < m {
		m = sub
	}
	return m
}
