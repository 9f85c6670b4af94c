// Package moderation masks censored words in message content.
// Matching ignores case, punctuation and common leet substitutions,
// so "B.4.d.g.€r" still matches "badger".
package moderation

import (
	"fmt"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Filter struct {
	machine *goahocorasick.Machine
	mask    rune
}

// folded is the searchable form of a text. positions[i] is the index,
// in the original runes, of folded rune i.
type folded struct {
	runes     []rune
	positions []int
}

// NewFilter builds the automaton for words. Blank words are ignored.
func NewFilter(words []string, mask rune) (*Filter, error) {
	var patterns [][]rune
	for _, word := range words {
		if pattern := fold([]rune(strings.TrimSpace(word))).runes; len(pattern) > 0 {
			patterns = append(patterns, pattern)
		}
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no censored word to build a filter from")
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, fmt.Errorf("building censored words automaton: %w", err)
	}
	return &Filter{machine: machine, mask: mask}, nil
}

// Censor returns content with every matched word masked, rune for rune,
// and whether anything was masked. Spacing and punctuation around a match are kept.
func (f *Filter) Censor(content string) (string, bool) {
	original := []rune(content)
	text := fold(original)
	if len(text.runes) == 0 {
		return content, false
	}
	terms := f.machine.MultiPatternSearch(text.runes, false)
	if len(terms) == 0 {
		return content, false
	}
	for _, term := range terms {
		last := term.Pos + len(term.Word) - 1
		if term.Pos < 0 || last >= len(text.positions) {
			continue
		}
		for i := text.positions[term.Pos]; i <= text.positions[last]; i++ {
			original[i] = f.mask
		}
	}
	return string(original), true
}

func fold(input []rune) folded {
	out := folded{
		runes:     make([]rune, 0, len(input)),
		positions: make([]int, 0, len(input)),
	}
	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out.runes = append(out.runes, unicode.ToLower(r))
		out.positions = append(out.positions, i)
	}
	return out
}

func unleet(r rune) rune {
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
	}
	return r
}

// MaskRune parses a one character setting such as "*".
func MaskRune(s string) (rune, error) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("mask must be a single character, got %q", s)
	}
	return r[0], nil
}
