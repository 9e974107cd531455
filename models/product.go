package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrNotFound is returned by persistence adapters when a record id is unknown.
var ErrNotFound = errors.New("record not found")

// GlobalRegion is the wildcard region value that matches any region filter.
const GlobalRegion = "Global"

// Status is the additive classification of a product.
type Status string

const (
	StatusContains          Status = "contains"
	StatusVerifiedFree      Status = "verified-free"
	StatusNeedsVerification Status = "needs-verification"
	StatusInconclusive      Status = "inconclusive"
)

// Statuses lists every status value in display order.
var Statuses = []Status{StatusContains, StatusVerifiedFree, StatusNeedsVerification, StatusInconclusive}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts the canonical values case-insensitively, with '_' or
// ' ' in place of '-'.
func ParseStatus(raw string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	s := Status(norm)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q (want one of %s)", raw, joinStatuses())
	}
	return s, nil
}

func joinStatuses() string {
	parts := make([]string, len(Statuses))
	for i, s := range Statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// ProductRecord is the canonical registry entry.
type ProductRecord struct {
	ID          string    `json:"id"`
	Brand       string    `json:"brand"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Percentage  *float64  `json:"percentage,omitempty"`
	Approved    bool      `json:"approved"`
	Country     []string  `json:"country,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	WebsiteURL  string    `json:"websiteUrl,omitempty"`
	SubmittedBy string    `json:"submittedBy,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CandidateRecord is a classified record that has not been persisted yet.
type CandidateRecord struct {
	Brand       string   `json:"brand"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Percentage  *float64 `json:"percentage,omitempty"`
	Country     []string `json:"country,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	VideoURL    string   `json:"videoUrl,omitempty"`
	WebsiteURL  string   `json:"websiteUrl,omitempty"`
}

// ToRecord promotes the candidate to a persisted record.
func (c CandidateRecord) ToRecord(id, submittedBy string, approved bool, now time.Time) ProductRecord {
	return ProductRecord{
		ID:          id,
		Brand:       c.Brand,
		Name:        c.Name,
		Type:        c.Type,
		Description: c.Description,
		Status:      c.Status,
		Percentage:  c.Percentage,
		Approved:    approved,
		Country:     c.Country,
		ImageURL:    c.ImageURL,
		VideoURL:    c.VideoURL,
		WebsiteURL:  c.WebsiteURL,
		SubmittedBy: submittedBy,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// CheckPercentage enforces the status/percentage pairing: a percentage is
// only meaningful for StatusContains and must be a finite number in [0, 100].
func CheckPercentage(status Status, pct *float64) error {
	if pct == nil {
		return nil
	}
	if status != StatusContains {
		return fmt.Errorf("percentage is only allowed with status %q", StatusContains)
	}
	if math.IsNaN(*pct) || math.IsInf(*pct, 0) {
		return errors.New("percentage must be a finite number")
	}
	if *pct < 0 || *pct > 100 {
		return fmt.Errorf("percentage %.2f out of range 0-100", *pct)
	}
	return nil
}
