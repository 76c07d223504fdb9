// Package model defines the core data types shared across the pipeline.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies where a raw record came from. Source priority for field
// merging is CRM > email > enrichment.
type Source string

const (
	SourceCRM        Source = "crm"
	SourceEmail      Source = "email"
	SourceEnrichment Source = "enrichment"
)

// priority returns the merge priority of a source (lower wins).
func (s Source) priority() int {
	switch s {
	case SourceCRM:
		return 0
	case SourceEmail:
		return 1
	case SourceEnrichment:
		return 2
	default:
		return 3
	}
}

// Before reports whether s outranks other in source-priority field merging.
func (s Source) Before(other Source) bool {
	return s.priority() < other.priority()
}

// RawRecord is one row or message from a single source, immutable once produced.
type RawRecord struct {
	Source   Source            `json:"source"`
	SourceID string            `json:"source_id"`
	Fields   map[string]string `json:"fields"`
	Body     string            `json:"body,omitempty"`
	SentAt   *time.Time        `json:"sent_at,omitempty"`
}

// ID returns the run-unique key of a raw record.
func (r RawRecord) ID() string {
	return string(r.Source) + ":" + r.SourceID
}

// NormalizedRecord is a RawRecord projected into canonical fields.
// Email is either empty or syntactically valid; date fields are absent
// rather than sentinel values when unparseable.
type NormalizedRecord struct {
	Source   Source `json:"source"`
	SourceID string `json:"source_id"`

	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Company      string `json:"company,omitempty"`
	CompanyToken string `json:"company_token,omitempty"`
	Title        string `json:"title,omitempty"`
	LinkedInURL  string `json:"linkedin_url,omitempty"`

	FirstContact *time.Time `json:"first_contact,omitempty"`
	LastContact  *time.Time `json:"last_contact,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`

	// Structured history from the CRM export.
	Placements  int     `json:"placements,omitempty"`
	Revenue     float64 `json:"revenue,omitempty"`
	CompanySize string  `json:"company_size,omitempty"`

	// Conversation counters from the email archive.
	InboundCount  int `json:"inbound_count,omitempty"`
	OutboundCount int `json:"outbound_count,omitempty"`

	// Current employer per the enrichment source. The display name feeds
	// outreach text, the token feeds job-change detection.
	EnrichedCompany      string `json:"enriched_company,omitempty"`
	EnrichedCompanyToken string `json:"enriched_company_token,omitempty"`
}

// ID returns the run-unique key of the underlying raw record.
func (r NormalizedRecord) ID() string {
	return string(r.Source) + ":" + r.SourceID
}

// identityNamespace seeds deterministic identity keys so that the same
// resolution input yields the same key across runs.
var identityNamespace = uuid.MustParse("c1a6d70e-4f3a-4bfb-9a57-2f0f4a9f2b11")

// IdentityKey derives a stable identity key from the strongest available
// anchor: email, then LinkedIn URL, then name plus company token.
func IdentityKey(email, linkedinURL, name, companyToken string) string {
	var anchor string
	switch {
	case email != "":
		anchor = "email:" + email
	case linkedinURL != "":
		anchor = "li:" + linkedinURL
	default:
		anchor = "nc:" + name + "|" + companyToken
	}
	return uuid.NewSHA1(identityNamespace, []byte(anchor)).String()
}

// Identity is the canonical merged contact. It owns its contributing record
// id set but not the records themselves, which stay with the ingestion layer.
type Identity struct {
	Key       string   `json:"key"`
	RecordIDs []string `json:"record_ids"`

	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Company      string `json:"company,omitempty"`
	CompanyToken string `json:"company_token,omitempty"`
	Title        string `json:"title,omitempty"`
	LinkedInURL  string `json:"linkedin_url,omitempty"`

	FirstContact *time.Time `json:"first_contact,omitempty"`
	LastContact  *time.Time `json:"last_contact,omitempty"`

	Placements    int     `json:"placements,omitempty"`
	Revenue       float64 `json:"revenue,omitempty"`
	CompanySize   string  `json:"company_size,omitempty"`
	InboundCount  int     `json:"inbound_count,omitempty"`
	OutboundCount int     `json:"outbound_count,omitempty"`

	EnrichedCompany      string `json:"enriched_company,omitempty"`
	EnrichedCompanyToken string `json:"enriched_company_token,omitempty"`

	Signals []Signal `json:"signals,omitempty"`

	FunnelStage   FunnelStage `json:"funnel_stage,omitempty"`
	FunnelReason  string      `json:"funnel_reason,omitempty"`
	PriorityScore int         `json:"priority_score"`
}

// JobChanged reports whether the enrichment source shows a different
// current employer than the company on record at last contact.
func (id *Identity) JobChanged() bool {
	return id.EnrichedCompanyToken != "" && id.CompanyToken != "" &&
		id.EnrichedCompanyToken != id.CompanyToken
}

// CompanyAggregate groups identities sharing a company token. Derived,
// recomputed on demand, never stored.
type CompanyAggregate struct {
	CompanyToken string
	Company      string
	Identities   []*Identity
}
