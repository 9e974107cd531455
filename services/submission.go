package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Gautam3767/additive_registry_backend/events"
	"github.com/Gautam3767/additive_registry_backend/metrics"
	"github.com/Gautam3767/additive_registry_backend/models"
)

// SubmissionInput is a single contributor submission. Text is the raw text
// extracted from a label, PDF or image by an external producer.
type SubmissionInput struct {
	Brand            string   `json:"brand" validate:"required"`
	Name             string   `json:"name" validate:"required"`
	Type             string   `json:"type" validate:"required"`
	Description      string   `json:"description"`
	Text             string   `json:"text"`
	ExtractionFailed bool     `json:"extractionFailed"`
	Percentage       *float64 `json:"percentage" validate:"omitempty,gte=0,lte=100"`
	Country          []string `json:"country"`
	ImageURL         string   `json:"imageUrl" validate:"omitempty,url"`
	VideoURL         string   `json:"videoUrl" validate:"omitempty,url"`
	WebsiteURL       string   `json:"websiteUrl" validate:"omitempty,url"`
}

// SubmissionResult describes a stored submission.
type SubmissionResult struct {
	Record  models.ProductRecord   `json:"record"`
	Matches []string               `json:"matches"`
	Quota   models.SubmissionQuota `json:"quota"`

	// CachedOffline is set when the remote write failed and the record was
	// kept in the offline cache instead.
	CachedOffline bool `json:"cachedOffline"`
}

// SubmitterConfig wires a Submitter.
type SubmitterConfig struct {
	Remote  RemoteStore
	Cache   RecordCache
	Matcher *KeywordMatcher
	Limiter *SubmissionLimiter
	Bus     *events.Bus
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	NewID   IDGenerator
	Now     Clock
}

// Submitter runs the single-submission flow: match, classify, quota check,
// duplicate check, persist.
type Submitter struct {
	remote   RemoteStore
	cache    RecordCache
	matcher  *KeywordMatcher
	limiter  *SubmissionLimiter
	bus      *events.Bus
	metrics  *metrics.Metrics
	logger   *slog.Logger
	newID    IDGenerator
	now      Clock
	validate *validator.Validate
}

// NewSubmitter builds a Submitter from cfg.
func NewSubmitter(cfg SubmitterConfig) *Submitter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = UUIDv7()
	}
	if cfg.Now == nil {
		cfg.Now = utcNow
	}
	return &Submitter{
		remote:   cfg.Remote,
		cache:    cfg.Cache,
		matcher:  cfg.Matcher,
		limiter:  cfg.Limiter,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "submitter"),
		newID:    cfg.NewID,
		now:      cfg.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Classify matches the text and classifies it against the persisted
// verified brands without storing anything.
func (s *Submitter) Classify(ctx context.Context, brand string, text string, extractionFailed bool) (models.Status, []string, error) {
	existing, err := persistedRecords(ctx, s.remote, s.cache, s.logger)
	if err != nil {
		return "", nil, fmt.Errorf("%w: load existing products: %v", ErrRemoteUnavailable, err)
	}
	matches := s.matcher.Match(text)
	ev := Evidence{Matches: matches, ExtractionFailed: extractionFailed || strings.TrimSpace(text) == ""}
	return ClassifyEvidence(ev, VerifiedBrands(existing), brand), matches, nil
}

// Submit classifies and stores one record. Admin submissions are approved
// immediately; everyone else's wait for moderation.
func (s *Submitter) Submit(ctx context.Context, caller models.Caller, in SubmissionInput) (SubmissionResult, error) {
	in = in.trimmed()
	if err := s.validate.Struct(in); err != nil {
		return SubmissionResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.Percentage != nil && (math.IsNaN(*in.Percentage) || math.IsInf(*in.Percentage, 0)) {
		return SubmissionResult{}, fmt.Errorf("%w: percentage must be a finite number", ErrValidation)
	}

	quota, err := s.limiter.Check(ctx, QuotaRequest{Caller: caller, Count: 1})
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("check quota: %w", err)
	}
	if !quota.Allowed {
		return SubmissionResult{Quota: quota}, fmt.Errorf("%w: %s tier allows %d pending submissions", ErrQuotaExceeded, quota.TrustTier, quota.MaxAllowed)
	}

	existing, err := persistedRecords(ctx, s.remote, s.cache, s.logger)
	if err != nil {
		return SubmissionResult{Quota: quota}, fmt.Errorf("%w: load existing products: %v", ErrRemoteUnavailable, err)
	}
	if IsDuplicate(in.Brand, in.Name, existing) {
		return SubmissionResult{Quota: quota}, fmt.Errorf("%w: %s %s", ErrDuplicate, in.Brand, in.Name)
	}

	matches := s.matcher.Match(in.Text)
	ev := Evidence{Matches: matches, ExtractionFailed: in.ExtractionFailed || strings.TrimSpace(in.Text) == ""}
	status := ClassifyEvidence(ev, VerifiedBrands(existing), in.Brand)

	pct := in.Percentage
	if status != models.StatusContains && pct != nil {
		s.logger.Debug("dropping percentage for non-contains status", "status", status)
		pct = nil
	}
	cand := models.CandidateRecord{
		Brand:       in.Brand,
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
		Status:      status,
		Percentage:  pct,
		Country:     in.Country,
		ImageURL:    in.ImageURL,
		VideoURL:    in.VideoURL,
		WebsiteURL:  in.WebsiteURL,
	}
	rec := cand.ToRecord(s.newID(), caller.UserID, caller.IsAdmin, s.now())
	res := SubmissionResult{Record: rec, Matches: matches}

	if err := s.remote.InsertProduct(ctx, rec); err != nil {
		s.logger.Error("remote insert failed", "id", rec.ID, "error", err)
		if s.cache == nil {
			res.Quota = quota
			return res, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		if cerr := s.cache.Put(ctx, rec); cerr != nil {
			res.Quota = quota
			return res, fmt.Errorf("%w: %v (offline cache write also failed: %v)", ErrRemoteUnavailable, err, cerr)
		}
		res.CachedOffline = true
		s.logger.Warn("submission kept in offline cache", "id", rec.ID)
	}

	s.metrics.Submission(string(status))
	if s.bus != nil {
		s.bus.RequestReload("submission")
	}

	// Pending count changed; report the fresh quota.
	if q, err := s.limiter.Check(ctx, QuotaRequest{Caller: caller, Count: 1}); err == nil {
		res.Quota = q
	} else {
		res.Quota = quota
	}

	s.logger.Info("product submitted",
		"id", rec.ID, "brand", rec.Brand, "name", rec.Name, "status", rec.Status,
		"approved", rec.Approved, "matches", len(matches), "offline", res.CachedOffline)
	if res.CachedOffline {
		return res, fmt.Errorf("%w: stored offline until the remote store recovers", ErrRemoteUnavailable)
	}
	return res, nil
}

func (in SubmissionInput) trimmed() SubmissionInput {
	in.Brand = strings.TrimSpace(in.Brand)
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	in.WebsiteURL = strings.TrimSpace(in.WebsiteURL)
	var regions []string
	for _, c := range in.Country {
		regions = append(regions, SplitRegions(c)...)
	}
	in.Country = regions
	return in
}
