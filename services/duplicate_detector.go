package services

import (
	"strings"

	"github.com/Gautam3767/additive_registry_backend/models"
)

// ProductKey is the natural key: case-folded, trimmed brand and name.
func ProductKey(brand, name string) string {
	return fold(strings.TrimSpace(brand)) + "\x00" + fold(strings.TrimSpace(name))
}

// IsDuplicate reports whether (brand, name) matches any existing record on
// both fields.
func IsDuplicate(brand, name string, existing []models.ProductRecord) bool {
	key := ProductKey(brand, name)
	for _, r := range existing {
		if ProductKey(r.Brand, r.Name) == key {
			return true
		}
	}
	return false
}

// KeySet indexes natural keys to the id of the first record holding them.
type KeySet map[string]string

// NewKeySet indexes records.
func NewKeySet(records []models.ProductRecord) KeySet {
	s := make(KeySet, len(records))
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add indexes r unless its key is already present.
func (s KeySet) Add(r models.ProductRecord) {
	key := ProductKey(r.Brand, r.Name)
	if _, ok := s[key]; !ok {
		s[key] = r.ID
	}
}

// Lookup returns the id holding (brand, name).
func (s KeySet) Lookup(brand, name string) (string, bool) {
	id, ok := s[ProductKey(brand, name)]
	return id, ok
}
