package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(sqlx.NewDb(db, "postgres"), zap.NewNop()), mock
}

func TestStore_GetAll(t *testing.T) {
	store, mock := setupTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectCollectionQuery)).
		WithArgs("regulations").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"1"}`)).
			AddRow([]byte(`{"id":"2"}`)))

	docs, err := store.GetAll(context.Background(), "regulations")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.JSONEq(t, `{"id":"1"}`, string(docs[0]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetAll_Error(t *testing.T) {
	store, mock := setupTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectCollectionQuery)).
		WithArgs("audit_logs").
		WillReturnError(errors.New("connection refused"))

	_, err := store.GetAll(context.Background(), "audit_logs")
	assert.ErrorContains(t, err, "audit_logs")
}

func TestStore_Upsert(t *testing.T) {
	tests := []struct {
		name    string
		merge   bool
		pattern string
	}{
		{name: "replace", merge: false, pattern: `SET data = EXCLUDED\.data`},
		{name: "merge", merge: true, pattern: `SET data = documents\.data \|\| EXCLUDED\.data`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := setupTestStore(t)
			data := json.RawMessage(`{"id":"15","riskLevel":"High"}`)

			mock.ExpectExec(tt.pattern).
				WithArgs("regulations", "15", []byte(data)).
				WillReturnResult(sqlmock.NewResult(0, 1))

			err := store.Upsert(context.Background(), "regulations", "15", data, tt.merge)
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
