package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaibojo/txo-crm/internal/model"
)

func TestCompanyToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Acme", "acme"},
		{"corp suffix", "Acme Corp", "acme"},
		{"corporation suffix", "Acme Corporation", "acme"},
		{"uppercase", "ACME", "acme"},
		{"inc with comma", "Acme, Inc.", "acme"},
		{"stacked suffixes", "Acme Corp Inc.", "acme"},
		{"pvt ltd", "TalentXO Pvt. Ltd.", "talentxo"},
		{"technologies", "Widget Technologies", "widget"},
		{"punctuation", "O'Brien & Sons LLC", "o brien sons"},
		{"diacritics", "Café Société", "cafe societe"},
		{"internal whitespace", "Acme   Widget  Co", "acme widget"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompanyToken(tt.input))
		})
	}
}

func TestCompanyTokenGroupsVariants(t *testing.T) {
	variants := []string{"Acme Corp", "ACME", "Acme Corporation", "acme, inc."}
	want := CompanyToken(variants[0])
	for _, v := range variants {
		assert.Equal(t, want, CompanyToken(v), "variant %q", v)
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "a@example.com", "a@example.com"},
		{"uppercase", "User@Example.COM", "user@example.com"},
		{"padded", "  a@example.com  ", "a@example.com"},
		{"missing at", "not-an-email", ""},
		{"missing domain", "user@", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Email(tt.input))
		})
	}
}

func TestDate(t *testing.T) {
	iso := Date("2024-03-15")
	require.NotNil(t, iso)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *iso)

	// Day-first export format.
	dayFirst := Date("15/03/2024")
	require.NotNil(t, dayFirst)
	assert.Equal(t, *iso, *dayFirst)

	assert.Nil(t, Date("not a date"))
	assert.Nil(t, Date(""))
}

func TestRecordCRM(t *testing.T) {
	raw := model.RawRecord{
		Source:   model.SourceCRM,
		SourceID: "spoc:42",
		Fields: map[string]string{
			"full_name":              "Priya Sharma",
			"email":                  "Priya@Acme.com",
			"company_name":           "Acme Corporation",
			"job_title":              "VP Engineering",
			"linkedin_url":           "https://www.linkedin.com/in/priya-sharma/",
			"last_contact_date":      "2024-01-10",
			"first_contact_date":     "2022-06-01",
			"total_positions_filled": "7",
			"revenue_generated":      "120000.50",
			"company_size":           "Large",
		},
	}

	rec, err := Record(raw)
	require.NoError(t, err)

	assert.Equal(t, "Priya Sharma", rec.Name)
	assert.Equal(t, "priya@acme.com", rec.Email)
	assert.Equal(t, "Acme Corporation", rec.Company)
	assert.Equal(t, "acme", rec.CompanyToken)
	assert.Equal(t, "linkedin.com/in/priya-sharma", rec.LinkedInURL)
	assert.Equal(t, 7, rec.Placements)
	assert.InDelta(t, 120000.50, rec.Revenue, 0.001)
	assert.Equal(t, "large", rec.CompanySize)
	require.NotNil(t, rec.LastContact)
	assert.Equal(t, 2024, rec.LastContact.Year())
	// UpdatedAt falls back to the last contact date.
	require.NotNil(t, rec.UpdatedAt)
	assert.Equal(t, *rec.LastContact, *rec.UpdatedAt)
}

func TestRecordEmailSource(t *testing.T) {
	sent := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	raw := model.RawRecord{
		Source:   model.SourceEmail,
		SourceID: "msg-1#0",
		Fields: map[string]string{
			"name":      "Arun Mehta",
			"email":     "arun@widget.io",
			"direction": "inbound",
		},
		Body:   "hello",
		SentAt: &sent,
	}

	rec, err := Record(raw)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.InboundCount)
	assert.Equal(t, 0, rec.OutboundCount)
	require.NotNil(t, rec.LastContact)
	assert.Equal(t, sent, *rec.LastContact)
	require.NotNil(t, rec.FirstContact)
	assert.Equal(t, sent, *rec.FirstContact)
}

func TestRecordMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  model.RawRecord
	}{
		{
			"email record without address",
			model.RawRecord{
				Source:   model.SourceEmail,
				SourceID: "msg-2#0",
				Fields:   map[string]string{"name": "No Address", "email": "bogus"},
			},
		},
		{
			"structured record missing email and name",
			model.RawRecord{
				Source:   model.SourceCRM,
				SourceID: "spoc:99",
				Fields:   map[string]string{"company_name": "Acme"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Record(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrMalformedRecord)
		})
	}
}

func TestRecordEnrichment(t *testing.T) {
	raw := model.RawRecord{
		Source:   model.SourceEnrichment,
		SourceID: "enrich:priya@acme.com",
		Fields: map[string]string{
			"full_name":        "Priya Sharma",
			"email":            "priya@acme.com",
			"original_company": "Acme Corporation",
			"current_company":  "Widget Technologies",
			"current_title":    "Director of Engineering",
		},
	}

	rec, err := Record(raw)
	require.NoError(t, err)

	assert.Equal(t, "acme", rec.CompanyToken)
	assert.Equal(t, "Widget Technologies", rec.EnrichedCompany)
	assert.Equal(t, "widget", rec.EnrichedCompanyToken)
	assert.Equal(t, "Director of Engineering", rec.Title)
}

func TestNormalizeLinkedIn(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.linkedin.com/in/foo/", "linkedin.com/in/foo"},
		{"http://linkedin.com/in/foo", "linkedin.com/in/foo"},
		{"LINKEDIN.COM/in/Foo", "linkedin.com/in/foo"},
		{"https://twitter.com/foo", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeLinkedIn(tt.input), "input %q", tt.input)
	}
}
