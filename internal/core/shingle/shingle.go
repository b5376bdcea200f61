// Package shingle turns raw sentence text into the set of token and character
// n-grams used as MinHash input.
//
// A sentence is normalised (lowercased, punctuation folded to spaces, whitespace
// collapsed) and then decomposed into:
//   - unigrams longer than MinWordLength runes that are not stop words
//   - every consecutive bigram and trigram of tokens
//   - every CharNGramSize-rune window of the normalised string, when the string
//     is longer than charShingleMinLength runes
//
// Only set membership matters downstream, so Extract returns the shingles sorted
// to keep signatures and tests reproducible.
package shingle

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// MinWordLength is the exclusive lower bound on unigram rune length.
	MinWordLength = 2

	// CharNGramSize is the width of character-level shingles.
	CharNGramSize = 5

	charShingleMinLength = 10
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "will": {},
	"with": {}, "but": {}, "they": {}, "have": {}, "had": {}, "what": {}, "each": {},
	"which": {}, "she": {}, "do": {}, "how": {}, "their": {}, "if": {}, "so": {},
	"some": {}, "her": {}, "would": {}, "like": {}, "him": {}, "than": {}, "been": {},
	"who": {}, "now": {}, "did": {}, "get": {}, "come": {}, "made": {}, "may": {},
}

// IsStopWord reports whether token is in the fixed English stop-word list.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// StopWords returns a sorted copy of the stop-word list.
func StopWords() []string {
	words := make([]string, 0, len(stopWords))
	for w := range stopWords {
		words = append(words, w)
	}

	sort.Strings(words)

	return words
}

// Normalize lowercases s, replaces every rune that is neither a word rune
// (letter, digit, underscore) nor whitespace with a space, collapses whitespace
// runs into a single space and trims the result.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false

	for _, r := range strings.ToLower(s) {
		if !isWordRune(r) {
			pendingSpace = true
			continue
		}

		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}

		pendingSpace = false

		b.WriteRune(r)
	}

	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokens splits normalised text on whitespace, dropping empty tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// Extract returns the sorted, de-duplicated shingle set for one sentence.
// Sentences without qualifying tokens may still yield character shingles; a
// sentence that normalises to the empty string yields an empty set.
func Extract(sentence string) []string {
	normalized := Normalize(sentence)
	words := Tokens(normalized)
	set := make(map[string]struct{}, len(words)*3+len(normalized))

	for _, w := range words {
		if len([]rune(w)) > MinWordLength && !IsStopWord(w) {
			set[w] = struct{}{}
		}
	}

	for i := 0; i+1 < len(words); i++ {
		set[words[i]+" "+words[i+1]] = struct{}{}
	}

	if len(words) >= 3 {
		for i := 0; i+2 < len(words); i++ {
			set[words[i]+" "+words[i+1]+" "+words[i+2]] = struct{}{}
		}
	}

	runes := []rune(normalized)
	if len(runes) > charShingleMinLength {
		for i := 0; i+CharNGramSize <= len(runes); i++ {
			gram := string(runes[i : i+CharNGramSize])
			if strings.TrimSpace(gram) != "" {
				set[gram] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}

	sort.Strings(out)

	return out
}
