package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileCols = []string{"candidate_id", "cri_score", "confidence_level", "detail"}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "trust_profiles",
		Columns:      profileCols,
		ConflictKeys: []string{"candidate_id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "trust_profiles",
		ConflictKeys: []string{"candidate_id"},
	}, [][]any{{"c1", 80}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "trust_profiles",
		Columns: profileCols,
	}, [][]any{{"c1", 80}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_trust_profiles" \(LIKE "trust_profiles"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_trust_profiles"}, profileCols).WillReturnResult(2)
	mock.ExpectExec(`DELETE FROM "_tmp_upsert_trust_profiles" a USING .* a\."candidate_id" = b\."candidate_id"`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO "trust_profiles" .* ON CONFLICT \("candidate_id"\) DO UPDATE SET "cri_score" = EXCLUDED\."cri_score"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{"c1", 80, "medium", []byte(`{}`)},
		{"c2", 55, "low", []byte(`{}`)},
	}
	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "trust_profiles",
		Columns:      profileCols,
		ConflictKeys: []string{"candidate_id"},
	}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("db down"))

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "trust_profiles",
		Columns:      profileCols,
		ConflictKeys: []string{"candidate_id"},
	}, [][]any{{"c1", 80, "medium", []byte(`{}`)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_InsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_trust_profiles"}, profileCols).WillReturnResult(1)
	mock.ExpectExec("DELETE FROM").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "trust_profiles",
		Columns:      profileCols,
		ConflictKeys: []string{"candidate_id"},
	}, [][]any{{"c1", 80, "medium", []byte(`{}`)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSERT ON CONFLICT for trust_profiles")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"trust_profiles", `"trust_profiles"`},
		{"crew.trust_profiles", `"crew"."trust_profiles"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"candidate_id", "cri_score", "flags"`, quoteAndJoin([]string{"candidate_id", "cri_score", "flags"}))
}
