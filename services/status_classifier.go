package services

import (
	"strings"

	"github.com/Gautam3767/additive_registry_backend/models"
)

// BrandSet holds case-folded brand names.
type BrandSet map[string]struct{}

// NewBrandSet builds a set from brand names.
func NewBrandSet(brands ...string) BrandSet {
	s := make(BrandSet, len(brands))
	for _, b := range brands {
		s.Add(b)
	}
	return s
}

func (s BrandSet) Add(brand string) {
	if b := fold(strings.TrimSpace(brand)); b != "" {
		s[b] = struct{}{}
	}
}

func (s BrandSet) Contains(brand string) bool {
	_, ok := s[fold(strings.TrimSpace(brand))]
	return ok
}

// VerifiedBrands collects brands with at least one approved verified-free record.
func VerifiedBrands(records []models.ProductRecord) BrandSet {
	s := make(BrandSet)
	for _, r := range records {
		if r.Approved && r.Status == models.StatusVerifiedFree {
			s.Add(r.Brand)
		}
	}
	return s
}

// Evidence is what a classification is based on.
type Evidence struct {
	Matches []string

	// ExtractionFailed is set when the text producer errored or returned nothing.
	ExtractionFailed bool
}

// ClassifyStatus applies the decision table: any match means contains, a
// verified brand means verified-free, anything else needs verification.
func ClassifyStatus(matches []string, verified BrandSet, brand string) models.Status {
	switch {
	case len(matches) > 0:
		return models.StatusContains
	case verified.Contains(brand):
		return models.StatusVerifiedFree
	default:
		return models.StatusNeedsVerification
	}
}

// ClassifyEvidence is ClassifyStatus plus the inconclusive outcome: with no
// matches and no usable text, absence of a keyword proves nothing.
func ClassifyEvidence(ev Evidence, verified BrandSet, brand string) models.Status {
	if len(ev.Matches) == 0 && ev.ExtractionFailed {
		return models.StatusInconclusive
	}
	return ClassifyStatus(ev.Matches, verified, brand)
}
