package ipa_test

import (
	"math"
	"testing"

	"github.com/MrWong99/phonexa/pkg/ipa"
)

const eps = 1e-12

func TestDistance_Identity(t *testing.T) {
	t.Parallel()
	for _, sym := range ipa.Symbols() {
		if got := ipa.Distance(sym, sym); got != 0 {
			t.Errorf("Distance(%q, %q) = %v, want 0", sym, sym, got)
		}
	}
}

func TestDistance_SymmetricAndBounded(t *testing.T) {
	t.Parallel()
	syms := append(ipa.Symbols(), "x", "ʔ", "ː", "")
	for _, a := range syms {
		for _, b := range syms {
			ab := ipa.Distance(a, b)
			ba := ipa.Distance(b, a)
			if ab != ba {
				t.Errorf("Distance(%q, %q) = %v but Distance(%q, %q) = %v", a, b, ab, b, a, ba)
			}
			if ab < 0 || ab > 1 {
				t.Errorf("Distance(%q, %q) = %v, out of [0, 1]", a, b, ab)
			}
		}
	}
}

func TestDistance_Values(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"unknown_left", "x", "p", 1.0},
		{"unknown_right", "p", "x", 1.0},
		{"unknown_both", "x", "q", 1.0},
		{"unknown_identical", "x", "x", 0},
		{"consonant_vowel", "p", "a", 0.8},
		{"vowel_consonant", "ə", "ð", 0.8},
		{"voicing_only_softened", "p", "b", 0.07},
		{"voicing_only_fricative", "s", "z", 0.07},
		{"voicing_only_affricate", "tʃ", "dʒ", 0.07},
		{"place_only", "p", "k", 0.225},
		{"place_one_step", "s", "ʃ", 0.0375},
		{"place_and_voicing_not_softened", "p", "g", 0.225 + 0.1},
		{"vowel_height_one_step_softened", "i", "e", 0.048},
		{"vowel_height_two_steps", "i", "ɛ", 0.12},
		{"vowel_length_only", "i", "iː", 0.1},
		{"diphthong_vs_monophthong", "i", "aɪ", 0.54},
		{"g_variants_identical_features", "g", "ɡ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ipa.Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("Distance(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFeatureDistance_ClampsToOne(t *testing.T) {
	t.Parallel()
	got := ipa.FeatureDistance(ipa.Vowel{Height: 20, Backness: 20}, ipa.Vowel{})
	if got != 1.0 {
		t.Errorf("FeatureDistance = %v, want 1.0", got)
	}
}

func TestFeatureDistance_Nil(t *testing.T) {
	t.Parallel()
	if got := ipa.FeatureDistance(nil, ipa.Consonant{}); got != ipa.UnknownDistance {
		t.Errorf("FeatureDistance(nil, c) = %v, want %v", got, ipa.UnknownDistance)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	f, ok := ipa.Lookup("tʃ")
	if !ok {
		t.Fatal("tʃ not found")
	}
	c, isCons := f.(ipa.Consonant)
	if !isCons {
		t.Fatalf("tʃ features = %T, want Consonant", f)
	}
	if c != (ipa.Consonant{Place: 4, Manner: 0, Voicing: 0}) {
		t.Errorf("tʃ = %+v", c)
	}
	if f.Kind() != ipa.KindConsonant {
		t.Errorf("Kind = %v, want consonant", f.Kind())
	}

	v, ok := ipa.Lookup("ɔːɹ")
	if !ok || v.Kind() != ipa.KindVowel {
		t.Errorf("ɔːɹ = %v, %v; want a vowel", v, ok)
	}

	if _, ok := ipa.Lookup("ʔ"); ok {
		t.Error("ʔ should not be in the table")
	}
	if ipa.Known("ʔ") || !ipa.Known("ŋ") {
		t.Error("Known reports wrong membership")
	}
}

func TestMultiCharSymbols_LongestFirst(t *testing.T) {
	t.Parallel()
	multi := ipa.MultiCharSymbols()
	if len(multi) == 0 {
		t.Fatal("no multi-character symbols")
	}
	if multi[0] != "ɑːɹ" && multi[0] != "ɔːɹ" {
		t.Errorf("first symbol = %q, want a three-rune rhotic vowel", multi[0])
	}
	prev := math.MaxInt
	for _, m := range multi {
		n := len([]rune(m))
		if n < 2 {
			t.Errorf("%q is not multi-character", m)
		}
		if n > prev {
			t.Errorf("%q appears after a shorter symbol", m)
		}
		prev = n
	}

	// Mutating the copy must not affect the table.
	multi[0] = "zz"
	if ipa.MultiCharSymbols()[0] == "zz" {
		t.Error("MultiCharSymbols returned shared storage")
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()
	if ipa.KindVowel.String() != "vowel" || ipa.KindConsonant.String() != "consonant" {
		t.Error("unexpected Kind names")
	}
	if ipa.Kind(7).String() != "unknown" {
		t.Error("out-of-range Kind should be unknown")
	}
}
