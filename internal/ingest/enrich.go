package ingest

import (
	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/model"
)

// enrichedRow mirrors one row of the LinkedIn enrichment export. The
// current_company column is what employer-change detection keys on.
type enrichedRow struct {
	FullName        string `csv:"full_name"`
	Email           string `csv:"email"`
	LinkedInURL     string `csv:"linkedin_url"`
	OriginalCompany string `csv:"original_company"`
	CurrentCompany  string `csv:"current_company"`
	CurrentTitle    string `csv:"current_title"`
	EnrichedDate    string `csv:"enriched_date"`
}

// ReadEnrichment loads an enrichment CSV as raw records. Enrichment runs
// before resolution; rows merge into identities by email or LinkedIn URL
// like any other source.
func ReadEnrichment(path string) ([]model.RawRecord, error) {
	rows, err := decodeCSV[enrichedRow](path)
	if err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(rows))
	for _, row := range rows {
		id := row.Email
		if id == "" {
			id = row.LinkedInURL
		}
		if id == "" {
			id = row.FullName
		}
		records = append(records, model.RawRecord{
			Source:   model.SourceEnrichment,
			SourceID: "enrich:" + id,
			Fields: map[string]string{
				"full_name":        row.FullName,
				"email":            row.Email,
				"linkedin_url":     row.LinkedInURL,
				"original_company": row.OriginalCompany,
				"current_company":  row.CurrentCompany,
				"current_title":    row.CurrentTitle,
				"updated_at":       row.EnrichedDate,
			},
		})
	}

	zap.L().Info("ingest: loaded enrichment export",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	return records, nil
}
