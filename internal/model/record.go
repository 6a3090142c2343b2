package model

import "strings"

// Record is one idiom and its definition as persisted in CSV
type Record struct {
	Term       string `json:"idiom"`
	Definition string `json:"definition"`
}

// Header is the column row of every CSV this tool writes
var Header = []string{"idiom", "definition"}

// NormalizeTerm returns the comparison key of a term.
// Storage keeps the term as given; only comparisons use this form.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// TermSet is a case-insensitive set of terms
type TermSet map[string]struct{}

// NewTermSet returns an empty set
func NewTermSet() TermSet {
	return make(TermSet)
}

// Add inserts a term
func (s TermSet) Add(term string) {
	s[NormalizeTerm(term)] = struct{}{}
}

// Has reports whether a term (any case) is in the set
func (s TermSet) Has(term string) bool {
	_, ok := s[NormalizeTerm(term)]
	return ok
}

// Len returns the number of distinct terms
func (s TermSet) Len() int {
	return len(s)
}
