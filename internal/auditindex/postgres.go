// Package auditindex mirrors appended evidence records into queryable
// stores: a Postgres table for relational reporting and an Elasticsearch
// index for search. The ledger stays the source of truth; these are
// secondary copies and a failed mirror write never rolls back an append.
package auditindex

import (
	"context"
	"database/sql"
	"encoding/json"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/models"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS audit_records (
	id            BIGSERIAL PRIMARY KEY,
	scenario_id   TEXT NOT NULL,
	execution_id  TEXT NOT NULL UNIQUE,
	overall_result TEXT NOT NULL,
	record_hash   CHAR(64) NOT NULL,
	executed_at   TIMESTAMPTZ NOT NULL,
	record        JSONB NOT NULL
)`

const insertRecordSQL = `
INSERT INTO audit_records (scenario_id, execution_id, overall_result, record_hash, executed_at, record)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresStore writes one row per evidence record.
type PostgresStore struct {
	db  *sql.DB
	log logger.Logger
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// EnsureSchema creates the audit_records table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return commonerrors.NewDatabaseConnectionFailedError(err)
	}
	return nil
}

// Insert mirrors one evidence record into the table.
func (s *PostgresStore) Insert(ctx context.Context, record models.EvidenceRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return commonerrors.NewDatabaseInsertFailedError(err)
	}

	_, err = s.db.ExecContext(ctx, insertRecordSQL,
		record.Scenario.ScenarioID,
		record.ExecutionContext.ExecutionID,
		record.Evaluation.OverallResult,
		record.Provenance.RecordHash,
		record.ExecutionContext.Timestamp,
		payload,
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return commonerrors.NewQueryTimeoutError("audit_record_insert")
		}
		return commonerrors.NewDatabaseInsertFailedError(err)
	}

	if s.log != nil {
		s.log.Debug("evidence record mirrored to postgres", map[string]interface{}{
			"scenario_id":  record.Scenario.ScenarioID,
			"execution_id": record.ExecutionContext.ExecutionID,
		})
	}
	return nil
}
