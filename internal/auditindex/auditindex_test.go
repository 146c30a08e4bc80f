package auditindex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/models"
)

// ==========================
// Test Helpers
// ==========================

func createRecord(executionID string) models.EvidenceRecord {
	record := models.EvidenceRecord{
		SchemaVersion: models.SchemaVersion,
	}
	record.Scenario.ScenarioID = "HR-02-SCEN-022"
	record.ExecutionContext.ExecutionID = executionID
	record.ExecutionContext.Timestamp = "2025-06-01T12:00:00Z"
	record.Evaluation.OverallResult = "fail"
	record.Provenance.RecordHash = "c0ffee0000000000000000000000000000000000000000000000000000000000"
	return record
}

// ==========================
// Postgres Store Tests
// ==========================

func TestPostgresStore_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := createRecord("exec-0001")
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO audit_records").
		WithArgs(
			"HR-02-SCEN-022",
			"exec-0001",
			"fail",
			record.Provenance.RecordHash,
			"2025-06-01T12:00:00Z",
			payload,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPostgresStore(db, logger.NewTestLogger(t))
	require.NoError(t, store.Insert(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_records").
		WillReturnError(errors.New("connection reset"))

	store := NewPostgresStore(db, logger.NewTestLogger(t))
	err = store.Insert(context.Background(), createRecord("exec-0002"))
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeDatabaseInsertFailed, commonerrors.CodeOf(err))
	assert.True(t, commonerrors.IsRetryable(err))
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_records").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPostgresStore(db, logger.NewTestLogger(t))
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Elasticsearch Indexer Tests
// ==========================

func createESClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestSearchIndexer_Index(t *testing.T) {
	var gotMethod, gotPath string
	client := createESClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	indexer := NewSearchIndexer(client, "audit-evidence", logger.NewTestLogger(t))
	require.NoError(t, indexer.Index(context.Background(), createRecord("exec-0003")))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/audit-evidence/_doc/exec-0003", gotPath)
}

func TestSearchIndexer_IndexErrorResponse(t *testing.T) {
	client := createESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"mapping conflict"}`))
	})

	indexer := NewSearchIndexer(client, "audit-evidence", logger.NewTestLogger(t))
	err := indexer.Index(context.Background(), createRecord("exec-0004"))
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeIndexWriteFailed, commonerrors.CodeOf(err))
}
