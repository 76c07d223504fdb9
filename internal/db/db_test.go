package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestCopyRows_EmptyRows(t *testing.T) {
	n, err := CopyRows(context.Background(), nil, "opportunities", []string{"id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyRows(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectCopyFrom(pgx.Identifier{"opportunities"}, []string{"id", "data"}).
		WillReturnResult(2)

	n, err := CopyRows(context.Background(), mock, "opportunities",
		[]string{"id", "data"}, [][]any{{"a", "{}"}, {"b", "{}"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "identities",
		Columns:      []string{"run_id", "key"},
		ConflictKeys: []string{"run_id", "key"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "identities",
		ConflictKeys: []string{"key"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "identities",
		Columns: []string{"run_id", "key"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_TempTableFlow(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_identities" \(LIKE "identities" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_identities"},
		[]string{"run_id", "key", "score"}).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "identities" .* ON CONFLICT \("run_id", "key"\) DO UPDATE SET "score" = EXCLUDED\."score"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "identities",
		Columns:      []string{"run_id", "key", "score"},
		ConflictKeys: []string{"run_id", "key"},
	}, [][]any{{"r1", "a", 90}, {"r1", "b", 20}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"run_id", "key", "data"})
	assert.Equal(t, `"run_id", "key", "data"`, result)
}
