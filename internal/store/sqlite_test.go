package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/model"
)

func testSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testSQLite(t)

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Nil(t, got.Report)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)

	report := model.NewRunReport()
	report.RecordsIn = 10
	report.Identities = 4
	report.StageCounts[model.StageTopCold] = 4
	require.NoError(t, s.UpdateRunReport(ctx, run.ID, report))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Report)
	assert.Equal(t, 10, got.Report.RecordsIn)
	assert.Equal(t, 4, got.Report.StageCounts[model.StageTopCold])
}

func TestSQLiteUpdateMissingRun(t *testing.T) {
	ctx := context.Background()
	s := testSQLite(t)

	err := s.UpdateRunStatus(ctx, "no-such-run", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteGetMissingRun(t *testing.T) {
	_, err := testSQLite(t).GetRun(context.Background(), "no-such-run")
	assert.Error(t, err)
}

func TestSQLiteLatestRunPicksCompleted(t *testing.T) {
	ctx := context.Background()
	s := testSQLite(t)

	_, err := s.LatestRun(ctx)
	assert.Error(t, err, "no completed runs yet")

	first, err := s.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunReport(ctx, first.ID, model.NewRunReport()))

	// A newer run that never completed is not the latest.
	second, err := s.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, second.ID, model.RunStatusFailed))

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)
}

func TestSQLiteListRuns(t *testing.T) {
	ctx := context.Background()
	s := testSQLite(t)

	_, err := s.CreateRun(ctx)
	require.NoError(t, err)
	b, err := s.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, b.ID, model.RunStatusFailed))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, b.ID, failed[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteIdentitiesRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := testSQLite(t)

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)

	ids := []*model.Identity{
		{Key: "acme|priya@acme.com", Name: "Priya Sharma", FunnelStage: model.StageBottomActive, PriorityScore: 90, Placements: 3},
		{Key: "globex|raj@globex.com", Name: "Raj Patel", FunnelStage: model.StageTopCold, PriorityScore: 20},
	}
	require.NoError(t, s.SaveIdentities(ctx, run.ID, ids))

	got, err := s.ListIdentities(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by score descending.
	assert.Equal(t, "acme|priya@acme.com", got[0].Key)
	assert.Equal(t, "Priya Sharma", got[0].Name)
	assert.Equal(t, 3, got[0].Placements)
	assert.Equal(t, model.StageBottomActive, got[0].FunnelStage)

	// Saving again upserts rather than duplicating.
	ids[0].PriorityScore = 95
	require.NoError(t, s.SaveIdentities(ctx, run.ID, ids))
	got, err = s.ListIdentities(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 95, got[0].PriorityScore)
}

func TestSQLiteOpportunitiesRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := testSQLite(t)

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)

	opps := []model.Opportunity{
		{Strategy: model.StrategyCrossSPOC, TargetKey: "a", ReferenceKey: "b", Company: "Acme", Priority: model.PriorityHigh, Angle: "intro"},
		{Strategy: model.StrategyReverseReferral, TargetKey: "a", Company: "Acme", Priority: model.PriorityMedium, Angle: "referral"},
	}
	require.NoError(t, s.SaveOpportunities(ctx, run.ID, opps))

	got, err := s.ListOpportunities(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.StrategyCrossSPOC, got[0].Strategy)
	assert.Equal(t, "b", got[0].ReferenceKey)
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Path: filepath.Join(t.TempDir(), "crm.db")}

	st, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer st.Close()

	_, ok := st.(*SQLiteStore)
	assert.True(t, ok)
}
