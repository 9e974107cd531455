package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Gautam3767/additive_registry_backend/models"
)

func TestClassifyStatusTable(t *testing.T) {
	verified := NewBrandSet("Acme")
	tests := []struct {
		name    string
		matches []string
		brand   string
		want    models.Status
	}{
		{"matches on verified brand", []string{"pva"}, "Acme", models.StatusContains},
		{"matches on unknown brand", []string{"pva"}, "Other", models.StatusContains},
		{"no matches, verified brand", nil, "acme", models.StatusVerifiedFree},
		{"no matches, unknown brand", nil, "Other", models.StatusNeedsVerification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.matches, verified, tt.brand))
		})
	}
}

func TestClassifyEvidenceInconclusiveOnlyWithoutText(t *testing.T) {
	verified := NewBrandSet("Acme")
	assert.Equal(t, models.StatusInconclusive,
		ClassifyEvidence(Evidence{ExtractionFailed: true}, verified, "Acme"))
	assert.Equal(t, models.StatusContains,
		ClassifyEvidence(Evidence{Matches: []string{"pva"}, ExtractionFailed: true}, verified, "Acme"))
	assert.Equal(t, models.StatusVerifiedFree,
		ClassifyEvidence(Evidence{}, verified, "Acme"))
}

func TestVerifiedBrandsUsesApprovedVerifiedFreeOnly(t *testing.T) {
	recs := []models.ProductRecord{
		{Brand: "Clean Co", Status: models.StatusVerifiedFree, Approved: true},
		{Brand: "Pending Co", Status: models.StatusVerifiedFree, Approved: false},
		{Brand: "Film Co", Status: models.StatusContains, Approved: true},
	}
	set := VerifiedBrands(recs)
	assert.True(t, set.Contains("clean co"))
	assert.False(t, set.Contains("Pending Co"))
	assert.False(t, set.Contains("Film Co"))
}
