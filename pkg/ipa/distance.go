package ipa

const (
	// UnknownDistance is the distance assigned whenever either symbol is
	// missing from the table.
	UnknownDistance = 1.0

	// CrossKindDistance is the fixed distance between a consonant and a
	// vowel.
	CrossKindDistance = 0.8

	// voicingSoftening scales the distance between two consonants that share
	// place and manner and differ only in voicing.
	voicingSoftening = 0.7

	// heightSoftening scales the distance between two vowels whose heights
	// are one step apart.
	heightSoftening = 0.8
)

// dimWeights weights place/height, manner/backness, voicing/roundedness and
// length respectively.
var dimWeights = [4]float64{0.3, 0.3, 0.2, 0.2}

// weightTotal is the sum of dimWeights. The zero-weighted kind slot is not
// part of it.
var weightTotal = dimWeights[0] + dimWeights[1] + dimWeights[2] + dimWeights[3]

// dimRanges normalises raw per-dimension differences. Indexed by Kind.
var dimRanges = [2][4]float64{
	KindConsonant: {8, 5, 2, 2},
	KindVowel:     {5, 3, 2, 2},
}

// Distance returns the phonetic distance between symbols a and b in
// [0.0, 1.0]. Identical symbols are 0, unknown symbols are
// [UnknownDistance], and a consonant/vowel pair is [CrossKindDistance].
// Otherwise the distance is the range-normalised, weighted sum of feature
// differences, softened for voicing-only consonant pairs and for vowels one
// height step apart.
//
// Distance is symmetric.
func Distance(a, b string) float64 {
	if a == b {
		return 0
	}
	fa, okA := symbolTable[a]
	fb, okB := symbolTable[b]
	if !okA || !okB {
		return UnknownDistance
	}
	return FeatureDistance(fa, fb)
}

// FeatureDistance returns the distance between two feature descriptions.
// It is the table-independent core of [Distance]; a nil argument yields
// [UnknownDistance].
func FeatureDistance(fa, fb Features) float64 {
	if fa == nil || fb == nil {
		return UnknownDistance
	}
	kind := fa.Kind()
	if kind != fb.Kind() {
		return CrossKindDistance
	}

	da, db := fa.dims(), fb.dims()
	ranges := dimRanges[kind]

	var weighted float64
	for i := range da {
		if da[i] == db[i] {
			continue
		}
		weighted += dimWeights[i] * float64(absInt(da[i]-db[i])) / ranges[i]
	}
	d := weighted / weightTotal

	switch kind {
	case KindConsonant:
		if da[0] == db[0] && da[1] == db[1] && da[2] != db[2] {
			d *= voicingSoftening
		}
	case KindVowel:
		if absInt(da[0]-db[0]) == 1 {
			d *= heightSoftening
		}
	}

	return min(d, 1.0)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
