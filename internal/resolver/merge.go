package resolver

import (
	"sort"
	"strings"

	"github.com/jaibojo/txo-crm/internal/model"
)

// buildIdentity merges one cluster of records into a canonical identity.
// Field policy: the most recently updated contributor wins; fields still
// empty fall back to the first non-empty value in source-priority order
// (CRM > email > enrichment). Counters are summed, history fields take the
// strongest value across contributors.
func buildIdentity(cluster []model.NormalizedRecord, signalsByRecord map[string][]model.Signal) *model.Identity {
	byRecency := make([]model.NormalizedRecord, len(cluster))
	copy(byRecency, cluster)
	sort.SliceStable(byRecency, func(i, j int) bool {
		ti, tj := byRecency[i].UpdatedAt, byRecency[j].UpdatedAt
		switch {
		case ti == nil && tj == nil:
			return byRecency[i].ID() < byRecency[j].ID()
		case ti == nil:
			return false
		case tj == nil:
			return true
		case !ti.Equal(*tj):
			return ti.After(*tj)
		}
		return byRecency[i].ID() < byRecency[j].ID()
	})

	byPriority := make([]model.NormalizedRecord, len(cluster))
	copy(byPriority, cluster)
	sort.SliceStable(byPriority, func(i, j int) bool {
		if byPriority[i].Source != byPriority[j].Source {
			return byPriority[i].Source.Before(byPriority[j].Source)
		}
		return byPriority[i].ID() < byPriority[j].ID()
	})

	pick := func(get func(model.NormalizedRecord) string) string {
		if v := get(byRecency[0]); v != "" {
			return v
		}
		for _, rec := range byPriority {
			if v := get(rec); v != "" {
				return v
			}
		}
		return ""
	}

	id := &model.Identity{
		Name:                 pick(func(r model.NormalizedRecord) string { return r.Name }),
		Email:                pick(func(r model.NormalizedRecord) string { return r.Email }),
		Company:              pick(func(r model.NormalizedRecord) string { return r.Company }),
		CompanyToken:         pick(func(r model.NormalizedRecord) string { return r.CompanyToken }),
		Title:                pick(func(r model.NormalizedRecord) string { return r.Title }),
		LinkedInURL:          pick(func(r model.NormalizedRecord) string { return r.LinkedInURL }),
		CompanySize:          pick(func(r model.NormalizedRecord) string { return r.CompanySize }),
		EnrichedCompany:      pick(func(r model.NormalizedRecord) string { return r.EnrichedCompany }),
		EnrichedCompanyToken: pick(func(r model.NormalizedRecord) string { return r.EnrichedCompanyToken }),
	}

	seen := make(map[string]bool)
	for _, rec := range cluster {
		id.RecordIDs = append(id.RecordIDs, rec.ID())

		if rec.FirstContact != nil && (id.FirstContact == nil || rec.FirstContact.Before(*id.FirstContact)) {
			id.FirstContact = rec.FirstContact
		}
		if rec.LastContact != nil && (id.LastContact == nil || rec.LastContact.After(*id.LastContact)) {
			id.LastContact = rec.LastContact
		}

		// Conversation counters accumulate across the email archive;
		// structured history takes the largest value on record.
		id.InboundCount += rec.InboundCount
		id.OutboundCount += rec.OutboundCount
		if rec.Placements > id.Placements {
			id.Placements = rec.Placements
		}
		if rec.Revenue > id.Revenue {
			id.Revenue = rec.Revenue
		}

		for _, sig := range signalsByRecord[rec.ID()] {
			key := sig.DedupeKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			id.Signals = append(id.Signals, sig)
		}
	}

	sort.Strings(id.RecordIDs)
	sort.SliceStable(id.Signals, func(i, j int) bool {
		if id.Signals[i].Kind != id.Signals[j].Kind {
			return id.Signals[i].Kind < id.Signals[j].Kind
		}
		return id.Signals[i].DedupeKey() < id.Signals[j].DedupeKey()
	})

	id.Key = model.IdentityKey(id.Email, id.LinkedInURL, strings.ToLower(id.Name), id.CompanyToken)
	return id
}
