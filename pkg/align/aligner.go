package align

import (
	"context"
	"math"
	"slices"

	"github.com/MrWong99/phonexa/pkg/ipa"
)

// FailureMessage is the error text reported when no segmentation exists.
const FailureMessage = "Alignment failed"

// Record is the alignment of one reference word. Records are created by
// [Align] and must be treated as read-only.
type Record struct {
	// Word is the zero-based index of the reference word.
	Word int

	// Reference is the reference word's symbol sequence.
	Reference []string

	// Hypothesis is the contiguous slice of recognised symbols assigned to
	// the word. It may be empty when nothing was recognised.
	Hypothesis []string

	// Start and End delimit Hypothesis within the recognised stream
	// (half-open).
	Start, End int

	// Distance is the feature-weighted edit distance between Reference and
	// Hypothesis.
	Distance float64

	// Similarity is the 0–100 score derived from Distance.
	Similarity float64
}

// Result is the outcome of [Align].
type Result struct {
	// Records holds one entry per reference word, in sentence order. Empty
	// when Failed is true or there are no reference words.
	Records []Record

	// Cuts are the segment boundaries c_0..c_N with c_0 = 0 and c_N equal to
	// the stream length. Nil when Failed is true or there are no reference
	// words.
	Cuts []int

	// Cost is the summed edit distance of all records.
	Cost float64

	// Failed is set when the stream cannot be cut into one non-empty segment
	// per reference word.
	Failed bool
}

// Align partitions hyp into len(refs) contiguous segments, one per reference
// word in order, minimising the summed [EditDistance]. See [AlignContext].
func Align(refs [][]string, hyp []string) Result {
	res, _ := AlignContext(context.Background(), refs, hyp)
	return res
}

// AlignContext is [Align] with cancellation. ctx is checked once per
// reference word; the only error returned is ctx.Err().
//
// Every cut point is considered for every cell, so the segmentation is
// optimal under the edit-distance cost. Segments are non-empty, which makes
// the alignment infeasible (Result.Failed) when there are more reference
// words than recognised symbols. Two degenerate inputs are not failures: no
// reference words yields no records, and an empty stream assigns an empty
// segment to every word.
//
// Among equally good segmentations the one with the earliest cut for the
// last word wins, then recursively for the preceding words.
func AlignContext(ctx context.Context, refs [][]string, hyp []string) (Result, error) {
	n, m := len(refs), len(hyp)
	if n == 0 {
		return Result{Records: []Record{}}, nil
	}
	if m == 0 {
		return alignEmpty(refs), nil
	}

	// score[i*width+j] is the best negated cost covering hyp[:j] with
	// refs[:i]; back holds the start of the i-th segment.
	width := m + 1
	score := make([]float64, (n+1)*width)
	back := make([]int, (n+1)*width)
	for idx := range score {
		score[idx] = math.Inf(-1)
		back[idx] = -1
	}
	score[0] = 0

	maxRef := 0
	for _, r := range refs {
		maxRef = max(maxRef, len(r))
	}
	col := make([]float64, maxRef+1)
	sub := make([]float64, maxRef*m)

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		ref := refs[i-1]
		l := len(ref)

		for r := 0; r < l; r++ {
			for h := 0; h < m; h++ {
				sub[r*m+h] = ipa.Distance(ref[r], hyp[h])
			}
		}

		prevRow := score[(i-1)*width : i*width]
		row := score[i*width : (i+1)*width]
		bp := back[i*width : (i+1)*width]

		for k := 0; k < m; k++ {
			base := prevRow[k]
			if math.IsInf(base, -1) {
				continue
			}
			// Grow the segment hyp[k:j] one symbol at a time, keeping the
			// last edit-distance column against ref.
			for r := 0; r <= l; r++ {
				col[r] = float64(r) * gapCost
			}
			for j := k + 1; j <= m; j++ {
				h := j - 1
				diag := col[0]
				col[0] = float64(j-k) * gapCost
				for r := 1; r <= l; r++ {
					left := col[r]
					col[r] = minCost(
						col[r-1]+gapCost,
						left+gapCost,
						diag+sub[(r-1)*m+h],
					)
					diag = left
				}
				if cand := base - col[l]; cand > row[j] {
					row[j] = cand
					bp[j] = k
				}
			}
		}
	}

	final := score[n*width+m]
	if math.IsInf(final, -1) {
		return Result{Failed: true}, nil
	}

	cuts := make([]int, n+1)
	cuts[n] = m
	for i, j := n, m; i > 0; i-- {
		k := back[i*width+j]
		cuts[i-1] = k
		j = k
	}

	records := make([]Record, n)
	var total float64
	for i := range n {
		records[i] = newRecord(i, refs[i], hyp, cuts[i], cuts[i+1])
		total += records[i].Distance
	}
	return Result{Records: records, Cuts: cuts, Cost: total}, nil
}

// alignEmpty handles an empty recognised stream: each word gets an empty
// segment and costs its full length.
func alignEmpty(refs [][]string) Result {
	records := make([]Record, len(refs))
	var total float64
	for i, ref := range refs {
		records[i] = newRecord(i, ref, nil, 0, 0)
		total += records[i].Distance
	}
	return Result{Records: records, Cuts: make([]int, len(refs)+1), Cost: total}
}

func newRecord(word int, ref, hyp []string, start, end int) Record {
	seg := slices.Clone(hyp[start:end])
	if seg == nil {
		seg = []string{}
	}
	d := EditDistance(ref, seg)
	return Record{
		Word:       word,
		Reference:  slices.Clone(ref),
		Hypothesis: seg,
		Start:      start,
		End:        end,
		Distance:   d,
		Similarity: similarityFromDistance(d, len(ref), len(seg)),
	}
}
