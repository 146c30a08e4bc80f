// internal/ledger/ledger_test.go
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestLedger(t *testing.T) *Ledger {
	l, err := New(t.TempDir(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return l
}

func createRecord(executionID string) models.EvidenceRecord {
	return models.EvidenceRecord{
		SchemaVersion: models.SchemaVersion,
		Scenario:      models.ScenarioSection{ScenarioID: "HR-02-SCEN-022", Title: "Negotiation bias"},
		ExecutionContext: models.ExecutionContext{
			ExecutionID: executionID,
			Timestamp:   "2026-08-23T10:00:00Z",
		},
		Evaluation: models.Evaluation{OverallResult: "PASS"},
	}
}

func leafHash(line []byte) []byte {
	sum := sha256.Sum256(line)
	return sum[:]
}

func combine(left, right []byte) []byte {
	sum := sha256.Sum256(append(append([]byte{}, left...), right...))
	return sum[:]
}

// readLines returns the raw non-blank lines of the scenario log.
func readLines(t *testing.T, l *Ledger, scenarioID string) [][]byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(l.Dir(), scenarioID+".jsonl"))
	require.NoError(t, err)
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

// ==========================
// Append and Sidecar Tests
// ==========================

func TestLedger_Append_WritesRecordAndMeta(t *testing.T) {
	l := createTestLedger(t)

	meta, err := l.Append("HR-02-SCEN-022", createRecord("exec-1"))
	require.NoError(t, err)

	assert.Equal(t, "HR-02-SCEN-022", meta.ScenarioID)
	assert.Equal(t, 1, meta.RunCount)
	assert.NotEmpty(t, meta.SHA256)
	assert.NotEmpty(t, meta.MerkleRoot)

	stored, err := l.ReadMeta("HR-02-SCEN-022")
	require.NoError(t, err)
	assert.Equal(t, meta, stored)
}

func TestLedger_Append_SequentialRunCounts(t *testing.T) {
	l := createTestLedger(t)

	const n = 5
	for i := 0; i < n; i++ {
		meta, err := l.Append("HR-02-SCEN-025", createRecord(fmt.Sprintf("exec-%d", i)))
		require.NoError(t, err)
		assert.Equal(t, i+1, meta.RunCount)
	}

	records, err := l.Records("HR-02-SCEN-025")
	require.NoError(t, err)
	require.Len(t, records, n)
	assert.Equal(t, "exec-0", records[0].ExecutionContext.ExecutionID)
	assert.Equal(t, "exec-4", records[4].ExecutionContext.ExecutionID)
}

func TestLedger_Append_MetaMatchesIndependentRecomputation(t *testing.T) {
	l := createTestLedger(t)

	var meta Meta
	var err error
	for i := 0; i < 3; i++ {
		meta, err = l.Append("HR-02-SCEN-019", createRecord(fmt.Sprintf("exec-%d", i)))
		require.NoError(t, err)
	}

	raw, err := os.ReadFile(filepath.Join(l.Dir(), "HR-02-SCEN-019.jsonl"))
	require.NoError(t, err)
	fileSum := sha256.Sum256(raw)
	assert.Equal(t, hex.EncodeToString(fileSum[:]), meta.SHA256)

	require.NoError(t, l.Verify("HR-02-SCEN-019"))
}

func TestLedger_Append_SeparateFilesPerScenario(t *testing.T) {
	l := createTestLedger(t)

	_, err := l.Append("HR-02-SCEN-022", createRecord("exec-a"))
	require.NoError(t, err)
	_, err = l.Append("HR-02-SCEN-025", createRecord("exec-b"))
	require.NoError(t, err)

	metaA, err := l.ReadMeta("HR-02-SCEN-022")
	require.NoError(t, err)
	metaB, err := l.ReadMeta("HR-02-SCEN-025")
	require.NoError(t, err)

	assert.Equal(t, 1, metaA.RunCount)
	assert.Equal(t, 1, metaB.RunCount)
	assert.NotEqual(t, metaA.SHA256, metaB.SHA256)
}

// ==========================
// Merkle Root Tests
// ==========================

func TestLedger_MerkleRoot_SingleLine(t *testing.T) {
	l := createTestLedger(t)

	meta, err := l.Append("HR-02-SCEN-015", createRecord("exec-1"))
	require.NoError(t, err)

	lines := readLines(t, l, "HR-02-SCEN-015")
	require.Len(t, lines, 1)
	assert.Equal(t, hex.EncodeToString(leafHash(lines[0])), meta.MerkleRoot)
}

func TestLedger_MerkleRoot_TwoLines(t *testing.T) {
	l := createTestLedger(t)

	_, err := l.Append("HR-02-SCEN-015", createRecord("exec-1"))
	require.NoError(t, err)
	meta, err := l.Append("HR-02-SCEN-015", createRecord("exec-2"))
	require.NoError(t, err)

	lines := readLines(t, l, "HR-02-SCEN-015")
	require.Len(t, lines, 2)
	expected := combine(leafHash(lines[0]), leafHash(lines[1]))
	assert.Equal(t, hex.EncodeToString(expected), meta.MerkleRoot)
}

func TestLedger_MerkleRoot_ThreeLinesDuplicatesOddLeaf(t *testing.T) {
	l := createTestLedger(t)

	var meta Meta
	var err error
	for i := 1; i <= 3; i++ {
		meta, err = l.Append("HR-02-SCEN-015", createRecord(fmt.Sprintf("exec-%d", i)))
		require.NoError(t, err)
	}

	lines := readLines(t, l, "HR-02-SCEN-015")
	require.Len(t, lines, 3)

	l1, l2, l3 := leafHash(lines[0]), leafHash(lines[1]), leafHash(lines[2])
	expected := combine(combine(l1, l2), combine(l3, l3))
	assert.Equal(t, hex.EncodeToString(expected), meta.MerkleRoot)
}

func TestLedger_MerkleRoot_EmptyFile(t *testing.T) {
	l := createTestLedger(t)

	require.NoError(t, os.WriteFile(filepath.Join(l.Dir(), "HR-02-SCEN-017.jsonl"), nil, 0o644))
	meta, err := l.Recompute("HR-02-SCEN-017")
	require.NoError(t, err)

	empty := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(empty[:]), meta.MerkleRoot)
	assert.Equal(t, 0, meta.RunCount)
	assert.Equal(t, hex.EncodeToString(empty[:]), meta.SHA256)
}

// ==========================
// Integrity Verification Tests
// ==========================

func TestLedger_Verify_DetectsTampering(t *testing.T) {
	l := createTestLedger(t)

	_, err := l.Append("HR-02-SCEN-022", createRecord("exec-1"))
	require.NoError(t, err)

	path := filepath.Join(l.Dir(), "HR-02-SCEN-022.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec models.EvidenceRecord
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &rec))
	rec.Evaluation.OverallResult = "FAIL"
	tampered, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(tampered, '\n'), 0o644))

	err = l.Verify("HR-02-SCEN-022")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_CORRUPT")
}

func TestLedger_Verify_CleanLedgerPasses(t *testing.T) {
	l := createTestLedger(t)

	for i := 0; i < 4; i++ {
		_, err := l.Append("HR-02-SCEN-022", createRecord(fmt.Sprintf("exec-%d", i)))
		require.NoError(t, err)
	}
	assert.NoError(t, l.Verify("HR-02-SCEN-022"))
}

func TestLedger_Records_MissingScenarioIsEmpty(t *testing.T) {
	l := createTestLedger(t)

	records, err := l.Records("HR-02-SCEN-999")
	require.NoError(t, err)
	assert.Empty(t, records)
}
