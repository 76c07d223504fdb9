// Package export writes finished runs to XLSX workbooks and CSV files for
// the sales team.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/model"
)

var identityHeader = []string{
	"Name", "Email", "Company", "Title", "LinkedIn",
	"Funnel Stage", "Reason", "Priority Score",
	"Last Contact", "Placements", "Revenue", "Signals",
}

var opportunityHeader = []string{
	"Strategy", "Priority", "Target", "Target Email",
	"Reference", "Company", "Angle",
}

// WriteXLSX writes one sheet per funnel band plus an opportunities sheet.
// Identities arrive pre-ranked; the per-sheet row order preserves it.
func WriteXLSX(path string, ids []*model.Identity, opps []model.Opportunity) error {
	f := xlsx.NewFile()

	bands := []string{"bottom", "middle", "hidden", "top"}
	byBand := make(map[string][]*model.Identity, len(bands))
	for _, id := range ids {
		byBand[id.FunnelStage.Band()] = append(byBand[id.FunnelStage.Band()], id)
	}

	for _, band := range bands {
		sheet, err := f.AddSheet(bandSheetName(band))
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", band)
		}
		writeHeader(sheet, identityHeader)
		for _, id := range byBand[band] {
			writeIdentityRow(sheet, id)
		}
	}

	sheet, err := f.AddSheet("Opportunities")
	if err != nil {
		return eris.Wrap(err, "export: add opportunities sheet")
	}
	writeHeader(sheet, opportunityHeader)
	for _, opp := range opps {
		row := sheet.AddRow()
		for _, v := range []string{
			string(opp.Strategy), opp.Priority, opp.TargetName, opp.TargetEmail,
			opp.ReferenceName, opp.Company, opp.Angle,
		} {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("export: wrote workbook",
		zap.String("path", path),
		zap.Int("identities", len(ids)),
		zap.Int("opportunities", len(opps)),
	)
	return nil
}

func bandSheetName(band string) string {
	return strings.ToUpper(band[:1]) + band[1:] + " Funnel"
}

func writeHeader(sheet *xlsx.Sheet, header []string) {
	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
}

func writeIdentityRow(sheet *xlsx.Sheet, id *model.Identity) {
	row := sheet.AddRow()
	cells := []string{
		id.Name, id.Email, id.Company, id.Title, id.LinkedInURL,
		string(id.FunnelStage), id.FunnelReason,
		fmt.Sprintf("%d", id.PriorityScore),
		formatDate(id.LastContact),
		fmt.Sprintf("%d", id.Placements),
		fmt.Sprintf("%.2f", id.Revenue),
		signalSummary(id.Signals),
	}
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func signalSummary(signals []model.Signal) string {
	if len(signals) == 0 {
		return ""
	}
	kinds := make([]string, 0, len(signals))
	seen := map[model.SignalKind]bool{}
	for _, s := range signals {
		if !seen[s.Kind] {
			seen[s.Kind] = true
			kinds = append(kinds, string(s.Kind))
		}
	}
	return strings.Join(kinds, ", ")
}
