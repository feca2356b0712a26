// Package moderation masks banned words in chat text before it is broadcast.
package moderation

import (
	"slices"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

const separator = ' '

type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the automaton over the normalized word list. An empty
// list yields a moderator that passes text through untouched.
func NewModerator(bannedWords []string, censoredChar rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(bannedWords))
	for _, word := range bannedWords {
		if p := normalizeRunes([]rune(strings.TrimSpace(word))); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if censoredChar == 0 {
		censoredChar = '*'
	}
	if len(patterns) == 0 {
		return &Moderator{censoredChar: censoredChar}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, censoredChar: censoredChar}, nil
}

// Censor replaces every banned word in original with the censor rune and
// reports the matched words in their normalized form. A match has to cover
// whole words: "scrap" or "magic rap" never match "crap".
func (m *Moderator) Censor(original string) (string, []string) {
	if m == nil || m.matcher == nil {
		return original, nil
	}
	origRunes := []rune(original)
	mapping := normalize(origRunes)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	out := slices.Clone(origRunes)
	found := make([]string, 0, len(spans))
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		first, last := mapping.origIdx[start], mapping.origIdx[end-1]
		if !wordEdge(origRunes, first-1) || !wordEdge(origRunes, last+1) {
			continue
		}
		for i := first; i <= last; i++ {
			out[i] = m.censoredChar
		}
		found = append(found, string(span.Word))
	}
	if len(found) == 0 {
		return original, nil
	}

	return string(out), found
}

// normalize folds text for matching. Runs of whitespace collapse into one
// separator so a pattern can never bridge two words.
func normalize(input []rune) textMapping {
	tm := textMapping{
		normalized: make([]rune, 0, len(input)),
		origIdx:    make([]int, 0, len(input)),
	}
	for i, r := range input {
		if unicode.IsSpace(r) {
			if n := len(tm.normalized); n > 0 && tm.normalized[n-1] != separator {
				tm.normalized = append(tm.normalized, separator)
				tm.origIdx = append(tm.origIdx, i)
			}
			continue
		}
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		tm.normalized = append(tm.normalized, unicode.ToLower(clean))
		tm.origIdx = append(tm.origIdx, i)
	}
	return tm
}

func normalizeRunes(input []rune) []rune {
	out := normalize(input).normalized
	for len(out) > 0 && out[len(out)-1] == separator {
		out = out[:len(out)-1]
	}
	return out
}

// wordEdge reports whether position i of the original text lies outside any
// word: before the start, past the end, or on a non letter/digit rune.
func wordEdge(runes []rune, i int) bool {
	if i < 0 || i >= len(runes) {
		return true
	}
	r := runes[i]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// simplifyRune folds common leet substitutions back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
