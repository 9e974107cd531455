package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Gautam3767/additive_registry_backend/events"
	"github.com/Gautam3767/additive_registry_backend/metrics"
	"github.com/Gautam3767/additive_registry_backend/models"
)

// DuplicateRow is an input row whose key already exists.
type DuplicateRow struct {
	Row        int       `json:"row"`
	Record     ImportRow `json:"record"`
	ExistingID string    `json:"existingId,omitempty"`
}

// RejectedRow is an input row that failed validation or could not be stored.
type RejectedRow struct {
	Row    int       `json:"row"`
	Record ImportRow `json:"record"`
	Reason string    `json:"reason"`
}

// IngestionResult partitions every input row into exactly one bucket.
type IngestionResult struct {
	Accepted   []models.ProductRecord `json:"accepted"`
	Duplicates []DuplicateRow         `json:"duplicates"`
	Rejected   []RejectedRow          `json:"rejected"`
	Truncated  bool                   `json:"truncated"`
	Notice     string                 `json:"notice,omitempty"`
	Quota      models.SubmissionQuota `json:"quota"`
}

// Total is the number of rows accounted for.
func (r IngestionResult) Total() int {
	return len(r.Accepted) + len(r.Duplicates) + len(r.Rejected)
}

// PipelineConfig wires a BulkIngestionPipeline.
type PipelineConfig struct {
	Remote  RemoteStore
	Cache   RecordCache
	Limiter *SubmissionLimiter
	Bus     *events.Bus
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	NewID   IDGenerator
	Now     Clock
}

// BulkIngestionPipeline validates, deduplicates and stores batches of rows.
//
// Batches run one at a time. Each batch snapshots the persisted key set
// once and adds its own commits to it, so a key repeated inside a batch is
// caught after its first row commits. Writers outside the pipeline can
// still race a running batch; the snapshot is not refreshed per row.
type BulkIngestionPipeline struct {
	remote   RemoteStore
	cache    RecordCache
	limiter  *SubmissionLimiter
	bus      *events.Bus
	metrics  *metrics.Metrics
	logger   *slog.Logger
	newID    IDGenerator
	now      Clock
	validate *validator.Validate

	mu sync.Mutex
}

// NewBulkIngestionPipeline builds a pipeline from cfg.
func NewBulkIngestionPipeline(cfg PipelineConfig) *BulkIngestionPipeline {
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
	return &BulkIngestionPipeline{
		remote:   cfg.Remote,
		cache:    cfg.Cache,
		limiter:  cfg.Limiter,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "bulk_ingestion"),
		newID:    cfg.NewID,
		now:      cfg.Now,
		validate: newRowValidator(),
	}
}

// newRowValidator reports field errors by their csv column name.
func newRowValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("csv"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// IngestCSV parses r and ingests the rows. Parse failures abort before any
// row is processed.
func (p *BulkIngestionPipeline) IngestCSV(ctx context.Context, caller models.Caller, r io.Reader, regions []string) (IngestionResult, error) {
	rows, err := ParseBulkCSV(r)
	if err != nil {
		return IngestionResult{}, err
	}
	return p.Ingest(ctx, caller, rows, regions)
}

// Ingest processes rows strictly in order. A non-empty regions list
// overrides every row's country. Row problems land in the Rejected bucket;
// only batch-level failures (no rows, quota exhausted, remote unreadable)
// return an error, and those leave the store untouched.
func (p *BulkIngestionPipeline) Ingest(ctx context.Context, caller models.Caller, rows []ImportRow, regions []string) (IngestionResult, error) {
	if len(rows) == 0 {
		return IngestionResult{}, fmt.Errorf("%w: no data rows", ErrParse)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var res IngestionResult
	process := rows
	if caller.IsAdmin {
		res.Quota = ComputeQuota(models.TierAdmin, nil, 0, len(rows), true)
	} else {
		q, err := p.limiter.Check(ctx, QuotaRequest{Caller: caller, Bulk: true, Count: len(rows)})
		if err != nil {
			return IngestionResult{}, fmt.Errorf("check quota: %w", err)
		}
		res.Quota = q
		if q.RemainingAllowed == 0 {
			return res, fmt.Errorf("%w: %s tier allows %d pending submissions", ErrQuotaExceeded, q.TrustTier, q.MaxAllowed)
		}
		if len(rows) > q.RemainingAllowed {
			process = rows[:q.RemainingAllowed]
			res.Truncated = true
			res.Notice = fmt.Sprintf("only the first %d of %d rows were processed: %s tier allows %d pending submissions",
				q.RemainingAllowed, len(rows), q.TrustTier, q.MaxAllowed)
		}
	}

	existing, err := persistedRecords(ctx, p.remote, p.cache, p.logger)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("%w: load existing products: %v", ErrRemoteUnavailable, err)
	}
	keys := NewKeySet(existing)
	overrides := cleanRegions(regions)

	for i, row := range process {
		rowNum := i + 1
		row = row.trimmed()

		if reason := p.missingFields(row); reason != "" {
			res.Rejected = append(res.Rejected, RejectedRow{Row: rowNum, Record: row, Reason: reason})
			continue
		}
		cand, reason := row.candidate()
		if reason != "" {
			res.Rejected = append(res.Rejected, RejectedRow{Row: rowNum, Record: row, Reason: reason})
			continue
		}
		if len(overrides) > 0 {
			cand.Country = overrides
		}
		if id, dup := keys.Lookup(cand.Brand, cand.Name); dup {
			res.Duplicates = append(res.Duplicates, DuplicateRow{Row: rowNum, Record: row, ExistingID: id})
			continue
		}

		rec := cand.ToRecord(p.newID(), caller.UserID, caller.IsAdmin, p.now())
		if err := p.remote.InsertProduct(ctx, rec); err != nil {
			p.logger.Error("storing imported row failed", "row", rowNum, "brand", rec.Brand, "name", rec.Name, "error", err)
			res.Rejected = append(res.Rejected, RejectedRow{Row: rowNum, Record: row, Reason: "remote store write failed: " + err.Error()})
			continue
		}
		keys.Add(rec)
		res.Accepted = append(res.Accepted, rec)
	}

	for i := len(process); i < len(rows); i++ {
		res.Rejected = append(res.Rejected, RejectedRow{
			Row:    i + 1,
			Record: rows[i].trimmed(),
			Reason: "not processed: submission quota exceeded",
		})
	}

	p.metrics.IngestionRows("accepted", len(res.Accepted))
	p.metrics.IngestionRows("duplicate", len(res.Duplicates))
	p.metrics.IngestionRows("rejected", len(res.Rejected))
	p.logger.Info("bulk import finished",
		"user", caller.UserID, "admin", caller.IsAdmin, "rows", len(rows),
		"accepted", len(res.Accepted), "duplicates", len(res.Duplicates),
		"rejected", len(res.Rejected), "truncated", res.Truncated)

	if len(res.Accepted) > 0 && p.bus != nil {
		p.bus.RequestReload("bulk import")
	}
	return res, nil
}

func (p *BulkIngestionPipeline) missingFields(row ImportRow) string {
	err := p.validate.Struct(row)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "missing required field(s): " + strings.Join(fields, ", ")
}

func cleanRegions(regions []string) []string {
	var out []string
	for _, r := range regions {
		out = append(out, SplitRegions(r)...)
	}
	return out
}
