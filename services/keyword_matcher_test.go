package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchIsCaseInsensitive(t *testing.T) {
	m := NewKeywordMatcher([]string{"PVA"})
	for _, text := range []string{"contains pva", "contains Pva", "contains PVA"} {
		assert.Equal(t, []string{"PVA"}, m.Match(text), text)
	}
}

func TestMatchFindsEveryOccurrence(t *testing.T) {
	m := NewKeywordMatcher([]string{"pva"})
	hits := m.Scan("PVA film, PVA coating and more pva")
	require.Len(t, hits, 3)
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 10, hits[1].Position)
	assert.Equal(t, []string{"pva"}, m.Match("PVA film, PVA coating and more pva"))
}

func TestMatchLongerKeywordWinsAtSameStart(t *testing.T) {
	m := NewKeywordMatcher([]string{"pva", "pval"})
	hits := m.Scan("Film: PVAL")
	require.Len(t, hits, 1)
	assert.Equal(t, "pval", hits[0].Term)
}

func TestMatchEarlierSpanClaimsOverlap(t *testing.T) {
	m := NewKeywordMatcher([]string{"vinyl alcohol", "polyvinyl alcohol"})
	assert.Equal(t, []string{"polyvinyl alcohol"}, m.Match("made with polyvinyl alcohol film"))
}

func TestMatchSeparateSpansAreBothCounted(t *testing.T) {
	m := NewKeywordMatcher([]string{"pva", "polyvinyl alcohol"})
	hits := m.Scan("Contains Polyvinyl Alcohol (PVA)")
	require.Len(t, hits, 2)
	assert.Equal(t, "polyvinyl alcohol", hits[0].Term)
	assert.Equal(t, 9, hits[0].Position)
	assert.Equal(t, "pva", hits[1].Term)
	assert.Equal(t, []string{"polyvinyl alcohol", "pva"}, m.Match("Contains Polyvinyl Alcohol (PVA)"))
}

func TestMatchNoOverlappingSpans(t *testing.T) {
	keywords := []string{"pva", "pval", "pvoh", "polyvinyl alcohol", "vinyl alcohol", "alcohol", "poly"}
	m := NewKeywordMatcher(keywords)
	texts := []string{
		"polyvinyl alcohol PVAL pvapvoh alcohol",
		"POLYPOLYVINYL ALCOHOLPVA",
		strings.Repeat("pva", 10),
		"",
	}
	for _, text := range texts {
		hits := m.Scan(text)
		for i := range hits {
			for j := i + 1; j < len(hits); j++ {
				a := span{start: hits[i].Position, end: hits[i].Position + len(fold(hits[i].Term))}
				b := span{start: hits[j].Position, end: hits[j].Position + len(fold(hits[j].Term))}
				assert.False(t, a.overlaps(b), "overlap in %q: %v %v", text, hits[i], hits[j])
			}
		}
		assert.Equal(t, m.Match(text), m.Match(text), "idempotent for %q", text)
	}
}

func TestMatchOrdersByFirstAppearance(t *testing.T) {
	m := NewKeywordMatcher([]string{"pvoh", "pva"})
	assert.Equal(t, []string{"pva", "pvoh"}, m.Match("pva first, then pvoh, then pva again"))
}

func TestMatchSkipsBlankKeywords(t *testing.T) {
	m := NewKeywordMatcher([]string{"", "  ", "pva"})
	assert.Equal(t, []string{"pva"}, m.Keywords())
	assert.Empty(t, m.Match("nothing here"))
}
