package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/Gautam3767/additive_registry_backend/models"
)

// ImportRow is one data row of a bulk import file.
type ImportRow struct {
	Brand       string `csv:"brand" json:"brand" validate:"required"`
	Name        string `csv:"name" json:"name" validate:"required"`
	Type        string `csv:"type" json:"type" validate:"required"`
	Status      string `csv:"status" json:"status" validate:"required"`
	Percentage  string `csv:"percentage,omitempty" json:"percentage,omitempty"`
	Description string `csv:"description,omitempty" json:"description,omitempty"`
	ImageURL    string `csv:"imageurl,omitempty" json:"imageUrl,omitempty"`
	VideoURL    string `csv:"videourl,omitempty" json:"videoUrl,omitempty"`
	WebsiteURL  string `csv:"websiteurl,omitempty" json:"websiteUrl,omitempty"`
	Country     string `csv:"country,omitempty" json:"country,omitempty"`
}

var requiredColumns = []string{"brand", "name", "type", "status"}

var headerAliases = map[string]string{
	"pvastatus":     "status",
	"pvapercentage": "percentage",
	"image":         "imageurl",
	"video":         "videourl",
	"website":       "websiteurl",
	"url":           "websiteurl",
	"region":        "country",
}

func normalizeColumn(col string) string {
	col = strings.TrimPrefix(col, "\ufeff")
	col = strings.ToLower(strings.TrimSpace(col))
	col = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(col)
	if alias, ok := headerAliases[col]; ok {
		return alias
	}
	return col
}

// paddedReader evens out ragged rows so a short row becomes a row-level
// validation problem instead of a decoder failure.
type paddedReader struct {
	r     *csv.Reader
	width int
}

func (p *paddedReader) Read() ([]string, error) {
	rec, err := p.r.Read()
	if err != nil {
		return nil, err
	}
	switch {
	case len(rec) < p.width:
		rec = append(rec, make([]string, p.width-len(rec))...)
	case len(rec) > p.width:
		rec = rec[:p.width]
	}
	return rec, nil
}

// ParseBulkCSV decodes a comma-delimited import file with a header row.
// Whole-file problems (unreadable header, missing required columns, no
// delimiter, zero data rows) are reported as ErrParse.
func ParseBulkCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrParse, err)
	}

	normalized := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, col := range header {
		normalized[i] = normalizeColumn(col)
		present[normalized[i]] = true
	}
	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		if len(header) == 1 {
			return nil, fmt.Errorf("%w: no recognizable comma delimiter in header %q", ErrParse, header[0])
		}
		return nil, fmt.Errorf("%w: missing required column(s): %s", ErrParse, strings.Join(missing, ", "))
	}

	dec, err := csvutil.NewDecoder(&paddedReader{r: cr, width: len(header)}, normalized...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var rows []ImportRow
	for {
		var row ImportRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: data row %d: %v", ErrParse, len(rows)+1, err)
		}
		rows = append(rows, row.trimmed())
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrParse)
	}
	return rows, nil
}

func (r ImportRow) trimmed() ImportRow {
	return ImportRow{
		Brand:       strings.TrimSpace(r.Brand),
		Name:        strings.TrimSpace(r.Name),
		Type:        strings.TrimSpace(r.Type),
		Status:      strings.TrimSpace(r.Status),
		Percentage:  strings.TrimSpace(r.Percentage),
		Description: strings.TrimSpace(r.Description),
		ImageURL:    strings.TrimSpace(r.ImageURL),
		VideoURL:    strings.TrimSpace(r.VideoURL),
		WebsiteURL:  strings.TrimSpace(r.WebsiteURL),
		Country:     strings.TrimSpace(r.Country),
	}
}

// candidate converts a row that passed required-field validation. The
// returned reason is non-empty when the row must be rejected.
func (r ImportRow) candidate() (models.CandidateRecord, string) {
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return models.CandidateRecord{}, err.Error()
	}
	var pct *float64
	if r.Percentage != "" {
		v, err := strconv.ParseFloat(strings.TrimSuffix(r.Percentage, "%"), 64)
		if err != nil {
			return models.CandidateRecord{}, fmt.Sprintf("percentage %q is not a number", r.Percentage)
		}
		pct = &v
	}
	if err := models.CheckPercentage(status, pct); err != nil {
		return models.CandidateRecord{}, err.Error()
	}
	return models.CandidateRecord{
		Brand:       r.Brand,
		Name:        r.Name,
		Type:        r.Type,
		Description: r.Description,
		Status:      status,
		Percentage:  pct,
		Country:     SplitRegions(r.Country),
		ImageURL:    r.ImageURL,
		VideoURL:    r.VideoURL,
		WebsiteURL:  r.WebsiteURL,
	}, ""
}

// SplitRegions splits a region list on ';', '|' or ','.
func SplitRegions(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '|' || r == ','
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

type templateRow struct {
	Brand       string `csv:"brand"`
	Name        string `csv:"name"`
	Type        string `csv:"type"`
	Status      string `csv:"status"`
	Percentage  string `csv:"percentage"`
	Description string `csv:"description"`
	ImageURL    string `csv:"imageUrl"`
	VideoURL    string `csv:"videoUrl"`
	WebsiteURL  string `csv:"websiteUrl"`
}

// TemplateCSV returns the import header plus one example row.
func TemplateCSV() ([]byte, error) {
	example := []templateRow{{
		Brand:       "Example Brand",
		Name:        "Laundry Sheets",
		Type:        "laundry detergent",
		Status:      string(models.StatusContains),
		Percentage:  "12.5",
		Description: "Dissolvable film listed on the ingredient panel",
		ImageURL:    "https://example.com/image.jpg",
		VideoURL:    "",
		WebsiteURL:  "https://example.com/product",
	}}
	out, err := csvutil.Marshal(example)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return out, nil
}
