// Package tfidf builds L2-normalised TF-IDF vectors over a small corpus of
// short profile documents.
//
// Weighting follows the usual smooth-idf scheme: idf(t) = ln((1+n)/(1+df(t))) + 1,
// tf is the raw count, and every document vector is scaled to unit length.
// Tokens are lowercased runs of two or more word characters.
package tfidf

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var wordRun = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Vector is a sparse document vector keyed by vocabulary index.
type Vector map[int]float64

// Model is a fitted vocabulary with its idf weights.
type Model struct {
	Vocabulary map[string]int
	IDF        []float64
}

// Tokenize lowercases s and returns its tokens in order.
func Tokenize(s string) []string {
	runs := wordRun.FindAllString(strings.ToLower(s), -1)
	tokens := runs[:0]
	for _, r := range runs {
		if utf8.RuneCountInString(r) >= 2 {
			tokens = append(tokens, r)
		}
	}
	return tokens
}

// Fit learns the vocabulary and idf weights of docs. Vocabulary indices
// follow sorted term order.
func Fit(docs []string) *Model {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	m := &Model{
		Vocabulary: make(map[string]int, len(terms)),
		IDF:        make([]float64, len(terms)),
	}
	for i, term := range terms {
		m.Vocabulary[term] = i
		m.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return m
}

// Transform maps doc onto the fitted vocabulary. Unknown terms are ignored
// and a document with no known terms yields an empty vector.
func (m *Model) Transform(doc string) Vector {
	v := make(Vector)
	for _, tok := range Tokenize(doc) {
		if idx, ok := m.Vocabulary[tok]; ok {
			v[idx]++
		}
	}

	var norm float64
	for idx, tf := range v {
		w := tf * m.IDF[idx]
		v[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for idx := range v {
		v[idx] /= norm
	}
	return v
}

// FitTransform fits docs and returns one vector per document, in order.
func FitTransform(docs []string) []Vector {
	m := Fit(docs)
	out := make([]Vector, len(docs))
	for i, doc := range docs {
		out[i] = m.Transform(doc)
	}
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 if either is empty.
func Cosine(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}

	var dot, normA, normB float64
	for idx, w := range a {
		dot += w * b[idx]
		normA += w * w
	}
	for _, w := range b {
		normB += w * w
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
