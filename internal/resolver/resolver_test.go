package resolver

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/model"
)

func testResolver() *Resolver {
	return NewResolver(nil, config.ResolverConfig{FuzzyThreshold: 0.82})
}

func crmRecord(id, name, email, company string) model.NormalizedRecord {
	return model.NormalizedRecord{
		Source:       model.SourceCRM,
		SourceID:     id,
		Name:         name,
		Email:        email,
		Company:      company,
		CompanyToken: company,
	}
}

func TestResolveMergesByEmail(t *testing.T) {
	records := []model.NormalizedRecord{
		crmRecord("1", "Priya Sharma", "priya@acme.com", "acme"),
		crmRecord("2", "P. Sharma", "priya@acme.com", ""),
	}

	ids, conflicts := testResolver().Resolve(records, nil)
	require.Len(t, ids, 1)
	assert.Empty(t, conflicts)
	assert.Len(t, ids[0].RecordIDs, 2)
	assert.Equal(t, "priya@acme.com", ids[0].Email)
}

func TestResolveMergesByLinkedIn(t *testing.T) {
	a := crmRecord("1", "Priya Sharma", "priya@acme.com", "acme")
	a.LinkedInURL = "linkedin.com/in/priya"
	b := crmRecord("2", "Priya S", "", "")
	b.LinkedInURL = "linkedin.com/in/priya"

	ids, _ := testResolver().Resolve([]model.NormalizedRecord{a, b}, nil)
	require.Len(t, ids, 1)
}

func TestResolveTransitiveClosure(t *testing.T) {
	// A joins B by email, B joins C by LinkedIn: one identity.
	a := crmRecord("1", "Priya Sharma", "priya@acme.com", "acme")
	b := crmRecord("2", "Priya S", "priya@acme.com", "")
	b.LinkedInURL = "linkedin.com/in/priya"
	c := crmRecord("3", "P Sharma", "priya.s@gmail.com", "")
	c.LinkedInURL = "linkedin.com/in/priya"

	ids, _ := testResolver().Resolve([]model.NormalizedRecord{a, b, c}, nil)
	require.Len(t, ids, 1)
	assert.Len(t, ids[0].RecordIDs, 3)
}

func TestResolveKeepsDistinctRecords(t *testing.T) {
	records := []model.NormalizedRecord{
		crmRecord("1", "Priya Sharma", "priya@acme.com", "acme widget"),
		crmRecord("2", "Arun Mehta", "arun@globex.com", "globex widget"),
	}

	ids, conflicts := testResolver().Resolve(records, nil)
	assert.Len(t, ids, 2)
	assert.Empty(t, conflicts)
}

func TestResolveFuzzyNameAndCompany(t *testing.T) {
	// Same person, slightly different name spelling, no email on one side.
	a := crmRecord("1", "Jonathan Smith", "jon@acme.com", "acme")
	b := crmRecord("2", "Jonathon Smith", "", "acme")

	ids, _ := testResolver().Resolve([]model.NormalizedRecord{a, b}, nil)
	require.Len(t, ids, 1)
	assert.Equal(t, "jon@acme.com", ids[0].Email)
}

func TestResolveAmbiguousMergeRefused(t *testing.T) {
	// Near-identical names at the same company but different mailboxes:
	// kept separate and flagged.
	a := crmRecord("1", "Jonathan Smith", "jonathan@acme.com", "acme")
	b := crmRecord("2", "Jonathon Smith", "jon.smith@acme.com", "acme")

	ids, conflicts := testResolver().Resolve([]model.NormalizedRecord{a, b}, nil)
	assert.Len(t, ids, 2)
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts[0].Reason, "conflicting emails")
	assert.True(t, eris.Is(conflicts[0].Err(), model.ErrAmbiguousMerge))
}

func TestResolveOrderIndependence(t *testing.T) {
	base := []model.NormalizedRecord{
		crmRecord("1", "Priya Sharma", "priya@acme.com", "acme"),
		crmRecord("2", "P. Sharma", "priya@acme.com", ""),
		crmRecord("3", "Arun Mehta", "arun@globex.com", "globex"),
		crmRecord("4", "Jonathan Smith", "jon@acme.com", "acme"),
		crmRecord("5", "Jonathon Smith", "", "acme"),
	}

	partition := func(records []model.NormalizedRecord) [][]string {
		ids, _ := testResolver().Resolve(records, nil)
		var p [][]string
		for _, id := range ids {
			p = append(p, id.RecordIDs)
		}
		sort.Slice(p, func(i, j int) bool { return p[i][0] < p[j][0] })
		return p
	}

	want := partition(base)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]model.NormalizedRecord, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.Equal(t, want, partition(shuffled), "trial %d", trial)
	}
}

func TestResolveIdempotent(t *testing.T) {
	records := []model.NormalizedRecord{
		crmRecord("1", "Priya Sharma", "priya@acme.com", "acme"),
		crmRecord("2", "P. Sharma", "priya@acme.com", ""),
	}

	first, _ := testResolver().Resolve(records, nil)
	second, _ := testResolver().Resolve(records, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.Equal(t, first[i].RecordIDs, second[i].RecordIDs)
	}
}

func TestBuildIdentityFieldMerge(t *testing.T) {
	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	a := crmRecord("1", "Priya Sharma", "priya@acme.com", "acme")
	a.Title = "Manager"
	a.UpdatedAt = &older
	a.FirstContact = &older
	a.LastContact = &older
	a.Placements = 3
	a.Revenue = 50000

	b := model.NormalizedRecord{
		Source:       model.SourceEmail,
		SourceID:     "msg-1#0",
		Name:         "Priya Sharma",
		Email:        "priya@acme.com",
		Title:        "Director",
		UpdatedAt:    &newer,
		LastContact:  &newer,
		InboundCount: 1,
	}

	ids, _ := testResolver().Resolve([]model.NormalizedRecord{a, b}, nil)
	require.Len(t, ids, 1)
	id := ids[0]

	// Most recently updated contributor wins contested fields.
	assert.Equal(t, "Director", id.Title)
	// Company only exists on the CRM side; fallback fills it.
	assert.Equal(t, "acme", id.CompanyToken)
	// Span of contact dates, counters summed, history takes the max.
	assert.Equal(t, older, *id.FirstContact)
	assert.Equal(t, newer, *id.LastContact)
	assert.Equal(t, 1, id.InboundCount)
	assert.Equal(t, 3, id.Placements)
	assert.InDelta(t, 50000, id.Revenue, 0.001)
}

func TestBuildIdentityDedupesSignals(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sig := model.Signal{
		Kind:           model.SignalProposalSent,
		SourceRecordID: "crm:1",
		MatchedPhrase:  "proposal",
		OccurredAt:     &at,
		Confidence:     0.7,
	}

	records := []model.NormalizedRecord{
		crmRecord("1", "Priya Sharma", "priya@acme.com", "acme"),
		crmRecord("2", "Priya Sharma", "priya@acme.com", "acme"),
	}
	sigA := sig
	sigA.SourceRecordID = records[0].ID()
	sigB := sig
	sigB.SourceRecordID = records[1].ID()

	signalsByRecord := map[string][]model.Signal{
		records[0].ID(): {sigA},
		records[1].ID(): {sigB},
	}

	ids, _ := testResolver().Resolve(records, signalsByRecord)
	require.Len(t, ids, 1)
	assert.Len(t, ids[0].Signals, 1)
}

func TestIdentityKeyStableAcrossNameVariants(t *testing.T) {
	// Email anchors the key; the merged display name must not change it.
	a := model.IdentityKey("priya@acme.com", "", "priya sharma", "acme")
	b := model.IdentityKey("priya@acme.com", "", "p sharma", "")
	assert.Equal(t, a, b)
}
