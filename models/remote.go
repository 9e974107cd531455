package models

import "time"

// RemoteProduct mirrors the remote store schema, where every field name is
// lower-cased with no separators.
type RemoteProduct struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Brand         string    `bson:"brand"`
	Type          string    `bson:"type"`
	Description   string    `bson:"description"`
	PVAStatus     string    `bson:"pvastatus"`
	PVAPercentage *float64  `bson:"pvapercentage"`
	Approved      bool      `bson:"approved"`
	Country       []string  `bson:"country"`
	WebsiteURL    string    `bson:"websiteurl"`
	VideoURL      string    `bson:"videourl"`
	ImageURL      string    `bson:"imageurl"`
	SubmittedBy   string    `bson:"submittedby"`
	CreatedAt     time.Time `bson:"createdat"`
	UpdatedAt     time.Time `bson:"updatedat"`
}

// ToRemote maps a record onto the remote schema.
func ToRemote(p ProductRecord) RemoteProduct {
	return RemoteProduct{
		ID:            p.ID,
		Name:          p.Name,
		Brand:         p.Brand,
		Type:          p.Type,
		Description:   p.Description,
		PVAStatus:     string(p.Status),
		PVAPercentage: p.Percentage,
		Approved:      p.Approved,
		Country:       p.Country,
		WebsiteURL:    p.WebsiteURL,
		VideoURL:      p.VideoURL,
		ImageURL:      p.ImageURL,
		SubmittedBy:   p.SubmittedBy,
		CreatedAt:     p.SubmittedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ToRecord maps a remote document back to the internal record. Unknown
// status strings degrade to StatusNeedsVerification.
func (r RemoteProduct) ToRecord() ProductRecord {
	status, err := ParseStatus(r.PVAStatus)
	if err != nil {
		status = StatusNeedsVerification
	}
	return ProductRecord{
		ID:          r.ID,
		Brand:       r.Brand,
		Name:        r.Name,
		Type:        r.Type,
		Description: r.Description,
		Status:      status,
		Percentage:  r.PVAPercentage,
		Approved:    r.Approved,
		Country:     r.Country,
		ImageURL:    r.ImageURL,
		VideoURL:    r.VideoURL,
		WebsiteURL:  r.WebsiteURL,
		SubmittedBy: r.SubmittedBy,
		SubmittedAt: r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Contributor is a remote contributors document.
type Contributor struct {
	ID        string    `bson:"_id"`
	TrustTier string    `bson:"trusttier"`
	UpdatedAt time.Time `bson:"updatedat"`
}
