// Package normalize canonicalizes raw records into a common shape.
package normalize

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jaibojo/txo-crm/internal/model"
)

// entitySuffixes strips legal-entity suffixes so "Acme Corp", "ACME" and
// "Acme Corporation" share one grouping token.
var entitySuffixes = regexp.MustCompile(
	`(?i)\s*,?\s*(LLC|L\.?L\.?C\.?|INC\.?|INCORPORATED|CORP\.?|CORPORATION|` +
		`CO\.?|COMPANY|LTD\.?|LIMITED|L\.?P\.?|LLP|L\.?L\.?P\.?|` +
		`PLLC|P\.?L\.?L\.?C\.?|P\.?C\.?|PVT\.?|PRIVATE|TECHNOLOGIES|DBA|D/B/A)\s*\.?\s*$`)

var (
	multiSpace = regexp.MustCompile(`\s{2,}`)
	tokenStrip = regexp.MustCompile(`[^a-z0-9 ]+`)
	deaccenter = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// dateFormats are the known source-specific date layouts, tried in order.
// The original exports use day-first dates; ISO and timestamp forms appear
// in newer dumps.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
}

// CompanyToken returns the downstream grouping key for a company name:
// diacritics folded, lowercased, legal suffixes and punctuation stripped,
// whitespace collapsed. Empty input yields an empty token.
func CompanyToken(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if folded, _, err := transform.String(deaccenter, n); err == nil {
		n = folded
	}
	// Suffixes may stack ("Acme Corp Inc."); strip until fixed point.
	for {
		stripped := entitySuffixes.ReplaceAllString(n, "")
		if stripped == n {
			break
		}
		n = stripped
	}
	n = strings.ToLower(n)
	n = tokenStrip.ReplaceAllString(n, " ")
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// Email lowercases, trims and syntactically validates an address.
// Invalid addresses come back empty.
func Email(raw string) string {
	e := strings.ToLower(strings.TrimSpace(raw))
	if e == "" {
		return ""
	}
	addr, err := mail.ParseAddress(e)
	if err != nil {
		return ""
	}
	return addr.Address
}

// Date parses a date from the known source formats. Unparseable dates are
// dropped (nil), never sentinel values.
func Date(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// Record projects one RawRecord into a NormalizedRecord. It fails with
// MALFORMED_RECORD when a structured record carries neither a usable email
// nor a name, or when an email-derived record has no usable address.
func Record(raw model.RawRecord) (model.NormalizedRecord, error) {
	f := raw.Fields

	rec := model.NormalizedRecord{
		Source:   raw.Source,
		SourceID: raw.SourceID,
		Name:     strings.TrimSpace(first(f, "name", "full_name", "spoc_name")),
		Email:    Email(first(f, "email", "spoc_email")),
		Title:    strings.TrimSpace(first(f, "title", "job_title", "current_title")),
	}

	company := strings.TrimSpace(first(f, "company", "company_name", "original_company"))
	rec.Company = company
	rec.CompanyToken = CompanyToken(company)

	rec.LinkedInURL = normalizeLinkedIn(first(f, "linkedin_url", "linkedin"))
	rec.FirstContact = Date(first(f, "first_contact_date", "first_contact"))
	rec.LastContact = Date(first(f, "last_contact_date", "last_contact", "last_engagement_date"))
	rec.UpdatedAt = Date(first(f, "updated_at", "dateupdated"))
	if rec.UpdatedAt == nil {
		rec.UpdatedAt = rec.LastContact
	}

	rec.Placements = atoi(first(f, "placements", "total_positions_filled"))
	rec.Revenue = atof(first(f, "revenue", "revenue_generated"))
	rec.CompanySize = strings.ToLower(strings.TrimSpace(first(f, "company_size", "size_bucket")))
	current := strings.TrimSpace(first(f, "current_company"))
	rec.EnrichedCompany = current
	rec.EnrichedCompanyToken = CompanyToken(current)

	switch raw.Source {
	case model.SourceEmail:
		if rec.Email == "" {
			return model.NormalizedRecord{}, eris.Wrapf(model.ErrMalformedRecord,
				"normalize: email record %s has no usable address", raw.SourceID)
		}
		if raw.SentAt != nil {
			t := raw.SentAt.UTC()
			if rec.LastContact == nil {
				rec.LastContact = &t
			}
			if rec.FirstContact == nil {
				rec.FirstContact = &t
			}
			if rec.UpdatedAt == nil {
				rec.UpdatedAt = &t
			}
		}
		switch f["direction"] {
		case "inbound":
			rec.InboundCount = 1
		case "outbound":
			rec.OutboundCount = 1
		}
	default:
		if rec.Email == "" && rec.Name == "" {
			return model.NormalizedRecord{}, eris.Wrapf(model.ErrMalformedRecord,
				"normalize: %s record %s missing both email and name", raw.Source, raw.SourceID)
		}
	}

	if rawEmail := strings.TrimSpace(first(f, "email", "spoc_email")); rawEmail != "" && rec.Email == "" {
		zap.L().Debug("normalize: dropped invalid email",
			zap.String("record", raw.SourceID),
			zap.String("email", rawEmail),
		)
	}

	return rec, nil
}

// normalizeLinkedIn strips protocol, www and trailing slash so URL matching
// is exact on the profile path.
func normalizeLinkedIn(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if u == "" {
		return ""
	}
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	u = strings.TrimSuffix(u, "/")
	if !strings.Contains(u, "linkedin.com/") {
		return ""
	}
	return u
}

func first(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
