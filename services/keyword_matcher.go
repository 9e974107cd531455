package services

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// fold case-folds s for case-insensitive comparison. A fresh Caser is used
// per call because Casers are stateful.
func fold(s string) string {
	return cases.Fold().String(s)
}

// KeywordMatch is one accepted keyword occurrence. Position is a byte
// offset into the case-folded text.
type KeywordMatch struct {
	Term     string
	Position int
}

// KeywordMatcher finds additive names in free-form text.
type KeywordMatcher struct {
	terms  []string
	folded []string
}

// NewKeywordMatcher keeps keywords in the given order, skipping blanks.
func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	m := &KeywordMatcher{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		m.terms = append(m.terms, kw)
		m.folded = append(m.folded, fold(kw))
	}
	return m
}

// Keywords returns the configured keywords.
func (m *KeywordMatcher) Keywords() []string {
	return append([]string(nil), m.terms...)
}

type span struct {
	term       string
	start, end int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// Scan returns every accepted occurrence in position order. Candidates are
// all occurrences of all keywords, ordered by start (longer first on a tie);
// a candidate overlapping an already accepted span is discarded.
func (m *KeywordMatcher) Scan(text string) []KeywordMatch {
	lower := fold(text)

	var candidates []span
	for i, kw := range m.folded {
		for off := 0; off <= len(lower)-len(kw); {
			idx := strings.Index(lower[off:], kw)
			if idx < 0 {
				break
			}
			pos := off + idx
			candidates = append(candidates, span{term: m.terms[i], start: pos, end: pos + len(kw)})
			off = pos + 1
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].start != candidates[b].start {
			return candidates[a].start < candidates[b].start
		}
		return candidates[a].end > candidates[b].end
	})

	var accepted []span
	var out []KeywordMatch
	for _, c := range candidates {
		clash := false
		for _, a := range accepted {
			if c.overlaps(a) {
				clash = true
				break
			}
		}
		if clash {
			continue
		}
		accepted = append(accepted, c)
		out = append(out, KeywordMatch{Term: c.term, Position: c.start})
	}
	return out
}

// Match returns the distinct matched keywords ordered by first appearance.
func (m *KeywordMatcher) Match(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, hit := range m.Scan(text) {
		key := fold(hit.Term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, hit.Term)
	}
	return out
}
