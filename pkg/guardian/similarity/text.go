package similarity

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

// ErrEmptyVocabulary is returned when neither document contains a term.
var ErrEmptyVocabulary = errors.New("empty vocabulary; documents contain no terms")

// minTokenLength is the shortest run of word characters counted as a term.
const minTokenLength = 2

// scorePrecision is the number of decimal places scores are rounded to.
const scorePrecision = 1e12

// Tokenize lower-cases s and splits it into runs of letters, digits, marks
// and underscores, dropping runs shorter than two characters.
func Tokenize(s string) []string {
	var tokens []string
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isWordRune(r)
	})
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// TextScore returns the cosine similarity of the TF-IDF vectors of a and b,
// fitted on the corpus {a, b}.
//
// Term weights use raw counts and smoothed inverse document frequency
// idf(t) = ln((1+n)/(1+df(t))) + 1, and each vector is L2 normalised.
func TextScore(a, b string) (float64, error) {
	docs := [2]map[string]float64{termCounts(Tokenize(a)), termCounts(Tokenize(b))}

	df := make(map[string]int)
	for _, d := range docs {
		for term := range d {
			df[term]++
		}
	}
	if len(df) == 0 {
		return 0, ErrEmptyVocabulary
	}

	n := float64(len(docs))
	for _, d := range docs {
		for term, tf := range d {
			idf := math.Log((1+n)/(1+float64(df[term]))) + 1
			d[term] = tf * idf
		}
		normalize(d)
	}

	var dot float64
	for term, w := range docs[0] {
		dot += w * docs[1][term]
	}
	return clamp(dot), nil
}

func termCounts(tokens []string) map[string]float64 {
	counts := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

// normalize scales v to unit length; a zero vector is left as is.
func normalize(v map[string]float64) {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for term, w := range v {
		v[term] = w / norm
	}
}

// clamp rounds away floating point noise and bounds s to [0, 1].
func clamp(s float64) float64 {
	s = math.Round(s*scorePrecision) / scorePrecision
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
