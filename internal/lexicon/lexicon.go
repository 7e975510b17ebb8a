// Package lexicon provides the misspelling/abbreviation lexicon and the
// text normalizer that runs before any entity extraction.
//
// The lexicon maps known misspellings and shorthand ("membreshi", "addr")
// to canonical tokens. It is loaded once and read-only at runtime; an
// optional YAML overlay can extend the built-in table per deployment.
package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the correction table plus the affirmative/negative word
// sets used by the confirmation flow. All lookups are case-insensitive.
type Lexicon struct {
	corrections map[string]string // misspelling -> canonical, keys lowercase
	canonical   map[string]bool   // canonical-term set, keys lowercase
	affirmative map[string]bool
	negative    map[string]bool
}

// defaultCorrections is the built-in correction table. Sources are the
// misspellings actually observed in member conversations.
var defaultCorrections = map[string]string{
	"membreshi":  "membership",
	"membeship":  "membership",
	"membershp":  "membership",
	"renue":      "renew",
	"renuew":     "renew",
	"updte":      "update",
	"updat":      "update",
	"proflie":    "profile",
	"profil":     "profile",
	"paymnt":     "payment",
	"paymet":     "payment",
	"adres":      "address",
	"adress":     "address",
	"addr":       "address",
	"emai":       "email",
	"emial":      "email",
	"gradution":  "graduation",
	"graduat":    "graduation",
	"gradyear":   "graduation",
	"feedbck":    "feedback",
	"confrim":    "confirm",
	"cancle":     "cancel",
}

var defaultAffirmative = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "proceed",
	"correct", "go", "continue",
}

var defaultNegative = []string{
	"no", "nope", "cancel", "stop", "nevermind", "abort",
}

// New returns a lexicon with the built-in tables.
func New() *Lexicon {
	l := &Lexicon{
		corrections: make(map[string]string, len(defaultCorrections)),
		canonical:   make(map[string]bool),
		affirmative: make(map[string]bool, len(defaultAffirmative)),
		negative:    make(map[string]bool, len(defaultNegative)),
	}
	for miss, canon := range defaultCorrections {
		l.add(miss, canon)
	}
	for _, w := range defaultAffirmative {
		l.affirmative[w] = true
	}
	for _, w := range defaultNegative {
		l.negative[w] = true
	}
	return l
}

// overlayFile is the on-disk YAML shape for deployment-specific additions.
type overlayFile struct {
	Corrections map[string]string `yaml:"corrections"`
	Affirmative []string          `yaml:"affirmative"`
	Negative    []string          `yaml:"negative"`
}

// LoadOverlay merges a YAML overlay file into the lexicon. Overlay entries
// win over built-ins on key collision. Must be called before the lexicon
// is shared; the lexicon is not safe for concurrent mutation.
func (l *Lexicon) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read lexicon overlay: %w", err)
	}
	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse lexicon overlay %s: %w", path, err)
	}
	for miss, canon := range overlay.Corrections {
		l.add(miss, canon)
	}
	for _, w := range overlay.Affirmative {
		l.affirmative[strings.ToLower(w)] = true
	}
	for _, w := range overlay.Negative {
		l.negative[strings.ToLower(w)] = true
	}
	return nil
}

func (l *Lexicon) add(miss, canon string) {
	miss = strings.ToLower(strings.TrimSpace(miss))
	canon = strings.ToLower(strings.TrimSpace(canon))
	if miss == "" || canon == "" {
		return
	}
	l.corrections[miss] = canon
	l.canonical[canon] = true
}

// Canonical reports whether word is already a canonical term.
func (l *Lexicon) Canonical(word string) bool {
	return l.canonical[strings.ToLower(word)]
}

// Lookup returns the canonical form for an exact (case-insensitive) match.
func (l *Lexicon) Lookup(word string) (string, bool) {
	canon, ok := l.corrections[strings.ToLower(word)]
	return canon, ok
}

// IsAffirmative reports whether the text contains an affirmative word
// ("yes", "confirm", "sure", ...). Checked word by word so that "yes
// please" still confirms.
func (l *Lexicon) IsAffirmative(text string) bool {
	for _, w := range splitWords(text) {
		if l.affirmative[strings.ToLower(w)] {
			return true
		}
	}
	return false
}

// IsNegative reports whether the text contains an explicit refusal word.
func (l *Lexicon) IsNegative(text string) bool {
	for _, w := range splitWords(text) {
		if l.negative[strings.ToLower(w)] {
			return true
		}
	}
	return false
}
