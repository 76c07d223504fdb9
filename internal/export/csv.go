package export

import (
	"encoding/csv"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/jaibojo/txo-crm/internal/model"
)

// identityRow is the flat CSV projection of an identity.
type identityRow struct {
	Name          string  `csv:"name"`
	Email         string  `csv:"email"`
	Company       string  `csv:"company"`
	Title         string  `csv:"title"`
	LinkedInURL   string  `csv:"linkedin_url"`
	FunnelStage   string  `csv:"funnel_stage"`
	FunnelReason  string  `csv:"funnel_reason"`
	PriorityScore int     `csv:"priority_score"`
	LastContact   string  `csv:"last_contact"`
	Placements    int     `csv:"placements"`
	Revenue       float64 `csv:"revenue"`
	Signals       string  `csv:"signals"`
}

// WriteIdentitiesCSV writes the ranked identity list to path.
func WriteIdentitiesCSV(path string, ids []*model.Identity) error {
	rows := make([]identityRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, identityRow{
			Name:          id.Name,
			Email:         id.Email,
			Company:       id.Company,
			Title:         id.Title,
			LinkedInURL:   id.LinkedInURL,
			FunnelStage:   string(id.FunnelStage),
			FunnelReason:  id.FunnelReason,
			PriorityScore: id.PriorityScore,
			LastContact:   formatDate(id.LastContact),
			Placements:    id.Placements,
			Revenue:       id.Revenue,
			Signals:       signalSummary(id.Signals),
		})
	}
	return writeCSV(path, rows)
}

// opportunityRow is the flat CSV projection of an opportunity.
type opportunityRow struct {
	Strategy      string `csv:"strategy"`
	Priority      string `csv:"priority"`
	TargetName    string `csv:"target_name"`
	TargetEmail   string `csv:"target_email"`
	ReferenceName string `csv:"reference_name"`
	Company       string `csv:"company"`
	Angle         string `csv:"angle"`
}

// WriteOpportunitiesCSV writes the derived opportunity list to path.
func WriteOpportunitiesCSV(path string, opps []model.Opportunity) error {
	rows := make([]opportunityRow, 0, len(opps))
	for _, opp := range opps {
		rows = append(rows, opportunityRow{
			Strategy:      string(opp.Strategy),
			Priority:      opp.Priority,
			TargetName:    opp.TargetName,
			TargetEmail:   opp.TargetEmail,
			ReferenceName: opp.ReferenceName,
			Company:       opp.Company,
			Angle:         opp.Angle,
		})
	}
	return writeCSV(path, rows)
}

func writeCSV[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "export: encode row in %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
