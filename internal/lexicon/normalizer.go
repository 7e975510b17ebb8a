package lexicon

import (
	"strings"
	"unicode"
)

// maxEditDistance is the largest Levenshtein distance at which a token is
// still considered a misspelling of a lexicon key.
const maxEditDistance = 2

// Normalize corrects known misspellings and abbreviations in text.
//
// The input is split on whitespace; each word is stripped of surrounding
// punctuation and matched against the lexicon, first verbatim, then by
// edit distance against keys sharing the word's first character with
// length within ±2. A correction is applied only when a uniquely best
// candidate sits at distance ≤ 2. Words that are already canonical,
// contain digits, or look like email addresses pass through untouched.
//
// Normalize is idempotent: corrected output consists of canonical terms,
// which are never corrected again.
func (l *Lexicon) Normalize(text string) string {
	fields := strings.Split(text, " ")
	for i, f := range fields {
		fields[i] = l.normalizeField(f)
	}
	return strings.Join(fields, " ")
}

func (l *Lexicon) normalizeField(field string) string {
	core, lead, trail := trimPunct(field)
	if core == "" || !correctable(core) {
		return field
	}
	lower := strings.ToLower(core)
	if l.canonical[lower] {
		return field
	}
	if canon, ok := l.corrections[lower]; ok {
		return lead + canon + trail
	}
	if canon, ok := l.closestKey(lower); ok {
		return lead + canon + trail
	}
	return field
}

// closestKey finds the uniquely best lexicon key within the edit-distance
// budget, restricted to keys sharing the first character and a length
// within ±2 of the word.
func (l *Lexicon) closestKey(word string) (string, bool) {
	best := maxEditDistance + 1
	bestCanon := ""
	unique := false
	for key, canon := range l.corrections {
		if key[0] != word[0] {
			continue
		}
		if d := len(key) - len(word); d > 2 || d < -2 {
			continue
		}
		switch d := levenshtein(word, key); {
		case d < best:
			best, bestCanon, unique = d, canon, true
		case d == best && canon != bestCanon:
			unique = false
		}
	}
	if best > maxEditDistance || !unique {
		return "", false
	}
	return bestCanon, true
}

// correctable filters out words the normalizer must not touch: anything
// with a digit or '@' (amounts, years, emails) and words too short to
// carry a reliable edit-distance signal.
func correctable(word string) bool {
	if len([]rune(word)) < 4 {
		return false
	}
	for _, r := range word {
		if unicode.IsDigit(r) || r == '@' {
			return false
		}
	}
	return true
}

// trimPunct splits a field into leading punctuation, the word core, and
// trailing punctuation so corrections keep the surrounding text intact.
func trimPunct(field string) (core, lead, trail string) {
	runes := []rune(field)
	start, end := 0, len(runes)
	for start < end && !unicode.IsLetter(runes[start]) && !unicode.IsDigit(runes[start]) {
		start++
	}
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsDigit(runes[end-1]) {
		end--
	}
	return string(runes[start:end]), string(runes[:start]), string(runes[end:])
}

// splitWords breaks text into plain word tokens on any non-letter,
// non-digit boundary.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming form.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
