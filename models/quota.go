package models

import "strings"

// TrustTier classifies contributors for submission quotas.
type TrustTier string

const (
	TierNew      TrustTier = "NEW"
	TierTrusted  TrustTier = "TRUSTED"
	TierVerified TrustTier = "VERIFIED"
	TierAdmin    TrustTier = "ADMIN"
)

// ParseTrustTier returns the tier for raw, and false when it is unknown.
func ParseTrustTier(raw string) (TrustTier, bool) {
	t := TrustTier(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case TierNew, TierTrusted, TierVerified, TierAdmin:
		return t, true
	}
	return "", false
}

// SubmissionQuota is derived on every check and never stored.
// MaxAllowed and RemainingAllowed are -1 when Unlimited is set.
type SubmissionQuota struct {
	TrustTier        TrustTier `json:"trustTier"`
	MaxAllowed       int       `json:"maxAllowed"`
	RemainingAllowed int       `json:"remainingAllowed"`
	Unlimited        bool      `json:"unlimited"`
	Allowed          bool      `json:"allowed"`
}

// Caller identifies who is acting on the registry.
type Caller struct {
	// UserID is the contributor key; anonymous callers get "anon:<ip>".
	UserID    string
	Anonymous bool
	IsAdmin   bool
}
