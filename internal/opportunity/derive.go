// Package opportunity derives cross-identity outreach patterns from the
// resolved, classified, scored identity population. Derivation never mutates
// funnel stages or priority scores.
package opportunity

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/model"
)

// Deriver computes opportunities over a finished identity population.
type Deriver struct {
	cfg config.OpportunityConfig
}

// NewDeriver returns a Deriver with the given thresholds.
func NewDeriver(cfg config.OpportunityConfig) *Deriver {
	return &Deriver{cfg: cfg}
}

// Derive runs all strategies and returns the combined opportunity list.
// Output order is deterministic for a given identity population.
func (d *Deriver) Derive(ids []*model.Identity) []model.Opportunity {
	var opps []model.Opportunity
	opps = append(opps, d.crossSPOC(ids)...)
	opps = append(opps, d.jobChanges(ids)...)
	opps = append(opps, d.dormantReactivation(ids)...)

	zap.L().Info("opportunity: derivation complete",
		zap.Int("identities", len(ids)),
		zap.Int("opportunities", len(opps)),
	)
	return opps
}

// Aggregate groups identities by company token. Identities without a
// company token are skipped; they cannot participate in company patterns.
func Aggregate(ids []*model.Identity) []model.CompanyAggregate {
	byToken := make(map[string]*model.CompanyAggregate)
	for _, id := range ids {
		if id.CompanyToken == "" {
			continue
		}
		agg, ok := byToken[id.CompanyToken]
		if !ok {
			agg = &model.CompanyAggregate{
				CompanyToken: id.CompanyToken,
				Company:      id.Company,
			}
			byToken[id.CompanyToken] = agg
		}
		if agg.Company == "" {
			agg.Company = id.Company
		}
		agg.Identities = append(agg.Identities, id)
	}

	tokens := make([]string, 0, len(byToken))
	for token := range byToken {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	aggs := make([]model.CompanyAggregate, 0, len(tokens))
	for _, token := range tokens {
		agg := byToken[token]
		sort.Slice(agg.Identities, func(i, j int) bool {
			return agg.Identities[i].Key < agg.Identities[j].Key
		})
		aggs = append(aggs, *agg)
	}
	return aggs
}

// crossSPOC pairs every identity at a multi-contact company with each of
// its colleagues as the reference. Onboarding conversations open with the
// colleague the agency already worked with.
func (d *Deriver) crossSPOC(ids []*model.Identity) []model.Opportunity {
	var opps []model.Opportunity
	for _, agg := range Aggregate(ids) {
		if len(agg.Identities) < 2 {
			continue
		}
		for _, target := range agg.Identities {
			for _, ref := range agg.Identities {
				if ref.Key == target.Key {
					continue
				}
				opps = append(opps, model.Opportunity{
					Strategy:      model.StrategyCrossSPOC,
					TargetKey:     target.Key,
					TargetName:    target.Name,
					TargetEmail:   target.Email,
					ReferenceKey:  ref.Key,
					ReferenceName: ref.Name,
					Company:       agg.Company,
					Priority:      model.PriorityHigh,
					Angle: fmt.Sprintf(
						"We worked with %s at %s, would like to connect with %s",
						displayName(ref), agg.Company, displayName(target)),
				})
			}
		}
	}
	return opps
}

// jobChanges emits two opportunities per detected employer change: reach
// out at the new company, and ask for a referral back into the old one.
func (d *Deriver) jobChanges(ids []*model.Identity) []model.Opportunity {
	var opps []model.Opportunity
	for _, id := range ids {
		if !id.JobChanged() {
			continue
		}
		opps = append(opps, model.Opportunity{
			Strategy:    model.StrategySPOCAtNewCompany,
			TargetKey:   id.Key,
			TargetName:  id.Name,
			TargetEmail: id.Email,
			Company:     id.EnrichedCompany,
			Priority:    model.PriorityHigh,
			Angle: fmt.Sprintf(
				"We worked together when you were at %s, would love to work with you at %s",
				id.Company, id.EnrichedCompany),
		})
		opps = append(opps, model.Opportunity{
			Strategy:    model.StrategyReverseReferral,
			TargetKey:   id.Key,
			TargetName:  id.Name,
			TargetEmail: id.Email,
			Company:     id.Company,
			Priority:    model.PriorityMedium,
			Angle: fmt.Sprintf(
				"Since you've moved to %s, could you refer us to your contacts at %s?",
				id.EnrichedCompany, id.Company),
		})
	}
	return opps
}

// dormantReactivation flags dormant identities whose score clears the
// configured floor. Low-score dormant contacts are not worth the outreach.
func (d *Deriver) dormantReactivation(ids []*model.Identity) []model.Opportunity {
	var opps []model.Opportunity
	for _, id := range ids {
		if !id.FunnelStage.Dormant() || id.PriorityScore < d.cfg.DormantMinScore {
			continue
		}
		opps = append(opps, model.Opportunity{
			Strategy:    model.StrategyDormantReactivation,
			TargetKey:   id.Key,
			TargetName:  id.Name,
			TargetEmail: id.Email,
			Company:     id.Company,
			Priority:    model.PriorityMedium,
			Angle:       "Past placement history with no recent contact, worth a reactivation touch",
		})
	}
	return opps
}

func displayName(id *model.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}
