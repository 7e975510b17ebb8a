package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKnownTypos(t *testing.T) {
	l := New()

	tests := []struct {
		in   string
		want string
	}{
		{"renew my membreshi", "renew my membership"},
		{"updte my emai", "update my email"},
		{"change my adress please", "change my address please"},
		{"I want to renue", "I want to renew"},
		{"fix my proflie", "fix my profile"},
		{"paymnt failed", "payment failed"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	l := New()

	inputs := []string{
		"renew my membreshi",
		"updte my emai to john@example.com",
		"pay $100 with my card",
		"perfectly ordinary sentence with no typos",
		"",
		"gradution year 2023",
	}
	for _, in := range inputs {
		once := l.Normalize(in)
		assert.Equal(t, once, l.Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestNormalizeLeavesProtectedTokens(t *testing.T) {
	l := New()

	// Emails, numbers and short words must never be rewritten.
	assert.Equal(t, "mail emial@test.co to me", l.Normalize("mail emial@test.co to me"))
	assert.Equal(t, "pay 100", l.Normalize("pay 100"))
	assert.Equal(t, "my id is a1b2", l.Normalize("my id is a1b2"))
}

func TestNormalizeFuzzyUniqueBest(t *testing.T) {
	l := New()

	// "membershp" is an exact key; "membersip" is distance 1 from it and
	// should still land on "membership" via fuzzy match.
	assert.Equal(t, "membership", l.Normalize("membersip"))

	// No candidate within the length window stays untouched.
	assert.Equal(t, "mbrshp", l.Normalize("mbrshp"))
}

func TestNormalizePreservesPunctuation(t *testing.T) {
	l := New()
	assert.Equal(t, "(update) my address,", l.Normalize("(updte) my adress,"))
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	data := []byte("corrections:\n  pharmcy: pharmacy\naffirmative:\n  - absolutely\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	l := New()
	require.NoError(t, l.LoadOverlay(path))

	assert.Equal(t, "visit the pharmacy", l.Normalize("visit the pharmcy"))
	assert.True(t, l.IsAffirmative("absolutely, do it"))
}

func TestLoadOverlayMissingFile(t *testing.T) {
	l := New()
	assert.Error(t, l.LoadOverlay(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestAffirmativeNegative(t *testing.T) {
	l := New()

	assert.True(t, l.IsAffirmative("yes"))
	assert.True(t, l.IsAffirmative("Sure, go ahead"))
	assert.True(t, l.IsAffirmative("confirm"))
	assert.False(t, l.IsAffirmative("tell me more"))

	assert.True(t, l.IsNegative("no, cancel that"))
	assert.False(t, l.IsNegative("yes"))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"membership", "membreshi", 3},
		{"membership", "membershp", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
