package extract

import (
	"regexp"
	"strings"
)

// Canonical profile field keys. These are the stable internal names; the
// synonym table below maps natural-language phrasings onto them.
const (
	FieldEmail          = "email"
	FieldAddress        = "address"
	FieldGraduationYear = "graduation_year"
)

// fieldSynonyms maps phrases to canonical field keys. Longer phrases are
// checked first so "email address" resolves before "address" gets a vote.
var fieldSynonyms = []struct {
	phrase string
	field  string
}{
	{"email address", FieldEmail},
	{"e-mail address", FieldEmail},
	{"graduation year", FieldGraduationYear},
	{"grad year", FieldGraduationYear},
	{"graduation", FieldGraduationYear},
	{"graduated", FieldGraduationYear},
	{"graduate", FieldGraduationYear},
	{"e-mail", FieldEmail},
	{"email", FieldEmail},
	{"mail", FieldEmail},
	{"address", FieldAddress},
	{"location", FieldAddress},
	{"street", FieldAddress},
	{"home", FieldAddress},
}

// Field looks up which profile field the text is talking about via the
// synonym table. When two distinct canonical fields tie, the result is
// not-found and the caller must ask for clarification.
func Field(text string) Result {
	fields, spans := Fields(text)
	if len(fields) != 1 {
		return notFound(KindFieldName)
	}
	return Result{
		Kind:    KindFieldName,
		RawSpan: spans[fields[0]],
		Value:   fields[0],
		Method:  MethodFuzzy,
		Found:   true,
	}
}

// Fields returns every canonical field the text mentions, in synonym
// precedence order, with the phrase that matched each. Callers use the
// count to tell "nothing mentioned" from "ambiguous". Text claimed by a
// longer synonym is masked, so "email address" resolves to email alone
// rather than also feeding the standalone "address" entry.
func Fields(text string) ([]string, map[string]string) {
	lower := strings.ToLower(text)

	var fields []string
	spans := map[string]string{}
	var claimed [][2]int
	for _, syn := range fieldSynonyms {
		start := phraseIndex(lower, syn.phrase, claimed)
		if start < 0 {
			continue
		}
		claimed = append(claimed, [2]int{start, start + len(syn.phrase)})
		if _, seen := spans[syn.field]; !seen {
			fields = append(fields, syn.field)
			spans[syn.field] = syn.phrase
		}
	}
	return fields, spans
}

// phraseIndex returns the byte offset of the first whole-word occurrence
// of phrase in lower that lies outside every claimed span, or -1. Whole
// words only: substring containment alone would fire "home" on words
// like "hometown".
func phraseIndex(lower, phrase string, claimed [][2]int) int {
	idx := 0
	for {
		i := strings.Index(lower[idx:], phrase)
		if i < 0 {
			return -1
		}
		start := idx + i
		end := start + len(phrase)
		leftOK := start == 0 || !isWordChar(lower[start-1])
		rightOK := end == len(lower) || !isWordChar(lower[end])
		if leftOK && rightOK && !overlapsClaimed(start, end, claimed) {
			return start
		}
		idx = start + 1
	}
}

func overlapsClaimed(start, end int, claimed [][2]int) bool {
	for _, c := range claimed {
		if start < c[1] && end > c[0] {
			return true
		}
	}
	return false
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

// valueSeparators are the tokens that introduce a new value after a field
// mention: "change my address to 123 Main St", "grad year: 2023".
var valueSeparators = []string{" to ", ":", " as ", "=", " is "}

var (
	yearPattern      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	looseYearPattern = regexp.MustCompile(`\b\d{3,4}\b`)
)

// Value extracts the proposed new value for a confirmed field. It finds
// the first separator token after the field mention and takes the tail,
// trimmed of surrounding punctuation; email and graduation-year fields
// additionally narrow the tail with their own patterns.
func Value(text, field string) Result {
	lower := strings.ToLower(text)

	tail := text
	if span := fieldMentionSpan(lower, field); span >= 0 {
		tail = text[span:]
	}

	sepIdx, sepLen := -1, 0
	tailLower := strings.ToLower(tail)
	for _, sep := range valueSeparators {
		if i := strings.Index(tailLower, sep); i >= 0 && (sepIdx == -1 || i < sepIdx) {
			sepIdx, sepLen = i, len(sep)
		}
	}
	if sepIdx >= 0 {
		tail = tail[sepIdx+sepLen:]
	}

	switch field {
	case FieldEmail:
		if r := Email(tail); r.Found {
			return fieldValue(r.Value, r.RawSpan)
		}
		if r := Email(text); r.Found {
			return fieldValue(r.Value, r.RawSpan)
		}
		return notFound(KindFieldValue)
	case FieldGraduationYear:
		if m := yearPattern.FindString(tail); m != "" {
			return fieldValue(m, m)
		}
		if m := yearPattern.FindString(text); m != "" {
			return fieldValue(m, m)
		}
		// A number that doesn't look like a year still gets handed to
		// the validator, which produces the range suggestion.
		if m := looseYearPattern.FindString(tail); m != "" {
			return fieldValue(m, m)
		}
		return notFound(KindFieldValue)
	default:
		if sepIdx < 0 {
			return notFound(KindFieldValue)
		}
		value := strings.Trim(tail, " \t.,:;!?\"'")
		if value == "" {
			return notFound(KindFieldValue)
		}
		return fieldValue(value, value)
	}
}

func fieldValue(value, span string) Result {
	return Result{
		Kind:    KindFieldValue,
		RawSpan: span,
		Value:   value,
		Method:  MethodExact,
		Found:   true,
	}
}

// fieldMentionSpan returns the byte offset just past the first synonym of
// field in lower, or -1 when the field is never mentioned.
func fieldMentionSpan(lower, field string) int {
	best := -1
	for _, syn := range fieldSynonyms {
		if syn.field != field {
			continue
		}
		if i := strings.Index(lower, syn.phrase); i >= 0 {
			end := i + len(syn.phrase)
			if best == -1 || end < best {
				best = end
			}
		}
	}
	return best
}
