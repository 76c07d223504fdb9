// Package ingest loads raw records from CRM exports, mailbox archives and
// enrichment dumps. It only collects fields; all cleaning happens in the
// normalize package.
package ingest

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/model"
)

// clientRow mirrors one row of the clients.csv MySQL export. Values stay
// strings here; parsing happens downstream.
type clientRow struct {
	ClientID             string `csv:"client_id"`
	CompanyName          string `csv:"company_name"`
	Industry             string `csv:"industry"`
	CompanySize          string `csv:"company_size"`
	FirstEngagementDate  string `csv:"first_engagement_date"`
	LastEngagementDate   string `csv:"last_engagement_date"`
	TotalPositionsFilled string `csv:"total_positions_filled"`
	RevenueGenerated     string `csv:"revenue_generated"`
}

// spocRow mirrors one row of the spocs.csv export.
type spocRow struct {
	SpocID           string `csv:"spoc_id"`
	ClientID         string `csv:"client_id"`
	FullName         string `csv:"full_name"`
	Email            string `csv:"email"`
	Phone            string `csv:"phone"`
	JobTitle         string `csv:"job_title"`
	LinkedInURL      string `csv:"linkedin_url"`
	FirstContactDate string `csv:"first_contact_date"`
	LastContactDate  string `csv:"last_contact_date"`
	IsActive         string `csv:"is_active"`
}

// ReadCRM loads the SPOC and client exports and joins them on client_id,
// producing one raw record per SPOC carrying its client's engagement
// history. A missing clients file degrades to SPOC-only records.
func ReadCRM(clientsPath, spocsPath string) ([]model.RawRecord, error) {
	clients := map[string]clientRow{}
	if clientsPath != "" {
		rows, err := decodeCSV[clientRow](clientsPath)
		if err != nil {
			if !os.IsNotExist(eris.Cause(err)) {
				return nil, err
			}
			zap.L().Warn("ingest: clients export not found, SPOC records will lack engagement history",
				zap.String("path", clientsPath))
		}
		for _, c := range rows {
			clients[c.ClientID] = c
		}
	}

	spocs, err := decodeCSV[spocRow](spocsPath)
	if err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(spocs))
	for _, s := range spocs {
		fields := map[string]string{
			"full_name":          s.FullName,
			"email":              s.Email,
			"job_title":          s.JobTitle,
			"linkedin_url":       s.LinkedInURL,
			"first_contact_date": s.FirstContactDate,
			"last_contact_date":  s.LastContactDate,
		}
		if c, ok := clients[s.ClientID]; ok {
			fields["company_name"] = c.CompanyName
			fields["company_size"] = c.CompanySize
			fields["total_positions_filled"] = c.TotalPositionsFilled
			fields["revenue_generated"] = c.RevenueGenerated
			if s.LastContactDate == "" {
				fields["last_contact_date"] = c.LastEngagementDate
			}
			if s.FirstContactDate == "" {
				fields["first_contact_date"] = c.FirstEngagementDate
			}
		}
		records = append(records, model.RawRecord{
			Source:   model.SourceCRM,
			SourceID: "spoc:" + s.SpocID,
			Fields:   fields,
		})
	}

	zap.L().Info("ingest: loaded CRM export",
		zap.Int("clients", len(clients)),
		zap.Int("spocs", len(spocs)),
	)
	return records, nil
}

// decodeCSV reads a whole CSV file into typed rows via header mapping.
// Unknown columns are ignored so schema additions in the export do not
// break ingestion.
func decodeCSV[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read header of %s", path)
	}

	var rows []T
	for {
		var row T
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "ingest: decode row in %s", path)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
