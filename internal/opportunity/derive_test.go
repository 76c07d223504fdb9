package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/model"
)

func testDeriver() *Deriver {
	return NewDeriver(config.OpportunityConfig{DormantMinScore: 60})
}

func byStrategy(opps []model.Opportunity, strategy model.Strategy) []model.Opportunity {
	var out []model.Opportunity
	for _, o := range opps {
		if o.Strategy == strategy {
			out = append(out, o)
		}
	}
	return out
}

func TestAggregate(t *testing.T) {
	ids := []*model.Identity{
		{Key: "b", CompanyToken: "acme", Company: "Acme Inc"},
		{Key: "a", CompanyToken: "acme", Company: "Acme Inc"},
		{Key: "c", CompanyToken: "globex", Company: "Globex"},
		{Key: "d"},
	}
	aggs := Aggregate(ids)

	require.Len(t, aggs, 2, "identities without a company token are skipped")
	assert.Equal(t, "acme", aggs[0].CompanyToken)
	assert.Equal(t, "Acme Inc", aggs[0].Company)
	require.Len(t, aggs[0].Identities, 2)
	assert.Equal(t, "a", aggs[0].Identities[0].Key)
	assert.Equal(t, "b", aggs[0].Identities[1].Key)
	assert.Equal(t, "globex", aggs[1].CompanyToken)
}

func TestCrossSPOCPairing(t *testing.T) {
	ids := []*model.Identity{
		{Key: "a", Name: "Anita Rao", CompanyToken: "acme", Company: "Acme Inc"},
		{Key: "b", Name: "Bilal Khan", CompanyToken: "acme", Company: "Acme Inc"},
		{Key: "c", Name: "Chen Wei", CompanyToken: "acme", Company: "Acme Inc"},
		{Key: "solo", Name: "Dana Fox", CompanyToken: "globex", Company: "Globex"},
	}
	opps := byStrategy(testDeriver().Derive(ids), model.StrategyCrossSPOC)

	// Three colleagues make 3*2 ordered pairs; a lone contact makes none.
	require.Len(t, opps, 6)
	for _, o := range opps {
		assert.Equal(t, model.PriorityHigh, o.Priority)
		assert.NotEqual(t, o.TargetKey, o.ReferenceKey)
		assert.Equal(t, "Acme Inc", o.Company)
	}

	first := opps[0]
	assert.Equal(t, "a", first.TargetKey)
	assert.Equal(t, "b", first.ReferenceKey)
	assert.Equal(t,
		"We worked with Bilal Khan at Acme Inc, would like to connect with Anita Rao",
		first.Angle)
}

func TestJobChanges(t *testing.T) {
	ids := []*model.Identity{
		{
			Key:                  "moved",
			Name:                 "Anita Rao",
			Email:                "anita@globex.com",
			Company:              "Acme Inc",
			CompanyToken:         "acme",
			EnrichedCompany:      "Globex Ltd",
			EnrichedCompanyToken: "globex",
		},
		{Key: "stayed", CompanyToken: "acme", EnrichedCompany: "Acme Inc", EnrichedCompanyToken: "acme"},
	}
	opps := testDeriver().Derive(ids)

	newCo := byStrategy(opps, model.StrategySPOCAtNewCompany)
	require.Len(t, newCo, 1)
	assert.Equal(t, "moved", newCo[0].TargetKey)
	assert.Equal(t, model.PriorityHigh, newCo[0].Priority)
	assert.Equal(t, "Globex Ltd", newCo[0].Company)
	assert.Equal(t,
		"We worked together when you were at Acme Inc, would love to work with you at Globex Ltd",
		newCo[0].Angle)

	referral := byStrategy(opps, model.StrategyReverseReferral)
	require.Len(t, referral, 1)
	assert.Equal(t, model.PriorityMedium, referral[0].Priority)
	assert.Equal(t, "Acme Inc", referral[0].Company)
	assert.Equal(t,
		"Since you've moved to Globex Ltd, could you refer us to your contacts at Acme Inc?",
		referral[0].Angle)
}

func TestDormantReactivationThreshold(t *testing.T) {
	ids := []*model.Identity{
		{Key: "warm-high", FunnelStage: model.StageBottomDormantWarm, PriorityScore: 75},
		{Key: "cold-edge", FunnelStage: model.StageBottomDormantCold, PriorityScore: 60},
		{Key: "warm-low", FunnelStage: model.StageBottomDormantWarm, PriorityScore: 59},
		{Key: "active-high", FunnelStage: model.StageBottomActive, PriorityScore: 95},
	}
	opps := byStrategy(testDeriver().Derive(ids), model.StrategyDormantReactivation)

	require.Len(t, opps, 2)
	assert.Equal(t, "warm-high", opps[0].TargetKey)
	assert.Equal(t, "cold-edge", opps[1].TargetKey)
	assert.Equal(t, model.PriorityMedium, opps[0].Priority)
}

func TestDeriveDoesNotMutateIdentities(t *testing.T) {
	id := &model.Identity{
		Key:           "a",
		FunnelStage:   model.StageBottomDormantWarm,
		PriorityScore: 80,
		CompanyToken:  "acme",
	}
	testDeriver().Derive([]*model.Identity{id})

	assert.Equal(t, model.StageBottomDormantWarm, id.FunnelStage)
	assert.Equal(t, 80, id.PriorityScore)
}

func TestCrossSPOCFallsBackToEmail(t *testing.T) {
	ids := []*model.Identity{
		{Key: "a", Email: "a@acme.com", CompanyToken: "acme", Company: "Acme"},
		{Key: "b", Name: "Bilal Khan", CompanyToken: "acme", Company: "Acme"},
	}
	opps := byStrategy(testDeriver().Derive(ids), model.StrategyCrossSPOC)

	require.Len(t, opps, 2)
	assert.Contains(t, opps[0].Angle, "a@acme.com")
}

func TestEmptyPopulation(t *testing.T) {
	assert.Empty(t, testDeriver().Derive(nil))
}
