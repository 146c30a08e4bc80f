// Package ledger is the append-only evidence store. Each scenario gets one
// newline-delimited JSON file; after every append the whole-file SHA-256,
// a Merkle root over the lines, and the line count are recomputed and
// written to a sidecar metadata file.
package ledger

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/models"
)

// Meta is the sidecar integrity metadata, fully rewritten on every append.
type Meta struct {
	ScenarioID string `json:"scenario_id"`
	SHA256     string `json:"sha256"`
	MerkleRoot string `json:"merkle_root"`
	RunCount   int    `json:"run_count"`
}

// Ledger writes evidence records for all scenarios under one directory.
// It assumes a single writer per scenario file; concurrent appends to the
// same scenario are unsupported.
type Ledger struct {
	dir string
	log logger.Logger
}

// New creates a Ledger rooted at dir, creating it if needed.
func New(dir string, log logger.Logger) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, commonerrors.NewLedgerAppendError(err)
	}
	return &Ledger{dir: dir, log: log}, nil
}

// Dir returns the ledger root directory.
func (l *Ledger) Dir() string {
	return l.dir
}

func (l *Ledger) recordPath(scenarioID string) string {
	return filepath.Join(l.dir, scenarioID+".jsonl")
}

func (l *Ledger) metaPath(scenarioID string) string {
	return filepath.Join(l.dir, scenarioID+".meta.json")
}

// Append writes one evidence record as a single JSON line to the scenario's
// log, then recomputes and rewrites the sidecar metadata.
func (l *Ledger) Append(scenarioID string, record models.EvidenceRecord) (Meta, error) {
	line, err := json.Marshal(record)
	if err != nil {
		return Meta{}, commonerrors.NewLedgerAppendError(err)
	}

	f, err := os.OpenFile(l.recordPath(scenarioID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Meta{}, commonerrors.NewLedgerAppendError(err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return Meta{}, commonerrors.NewLedgerAppendError(err)
	}
	if err := f.Close(); err != nil {
		return Meta{}, commonerrors.NewLedgerAppendError(err)
	}

	meta, err := l.Recompute(scenarioID)
	if err != nil {
		return Meta{}, err
	}

	if l.log != nil {
		l.log.Info("evidence record appended", map[string]interface{}{
			"scenario_id": scenarioID,
			"run_count":   meta.RunCount,
			"merkle_root": meta.MerkleRoot,
		})
	}
	return meta, nil
}

// Recompute rebuilds the integrity metadata for a scenario from its log
// file and overwrites the sidecar.
func (l *Ledger) Recompute(scenarioID string) (Meta, error) {
	path := l.recordPath(scenarioID)

	sha, err := sha256File(path)
	if err != nil {
		return Meta{}, commonerrors.NewLedgerReadError(err)
	}
	root, count, err := merkleRootFile(path)
	if err != nil {
		return Meta{}, commonerrors.NewLedgerReadError(err)
	}

	meta := Meta{
		ScenarioID: scenarioID,
		SHA256:     sha,
		MerkleRoot: root,
		RunCount:   count,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Meta{}, commonerrors.NewLedgerAppendError(err)
	}
	if err := os.WriteFile(l.metaPath(scenarioID), data, 0o644); err != nil {
		return Meta{}, commonerrors.NewLedgerAppendError(err)
	}
	return meta, nil
}

// ReadMeta loads the sidecar metadata for a scenario.
func (l *Ledger) ReadMeta(scenarioID string) (Meta, error) {
	data, err := os.ReadFile(l.metaPath(scenarioID))
	if err != nil {
		return Meta{}, commonerrors.NewLedgerReadError(err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, commonerrors.NewLedgerCorruptError(err.Error())
	}
	return meta, nil
}

// Records reads back every record in a scenario's log in append order.
func (l *Ledger) Records(scenarioID string) ([]models.EvidenceRecord, error) {
	f, err := os.Open(l.recordPath(scenarioID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, commonerrors.NewLedgerReadError(err)
	}
	defer f.Close()

	var records []models.EvidenceRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec models.EvidenceRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, commonerrors.NewLedgerCorruptError(err.Error())
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, commonerrors.NewLedgerReadError(err)
	}
	return records, nil
}

// Verify recomputes the integrity values for a scenario and compares them
// to the stored sidecar, reporting any mismatch as corruption.
func (l *Ledger) Verify(scenarioID string) error {
	stored, err := l.ReadMeta(scenarioID)
	if err != nil {
		return err
	}

	sha, err := sha256File(l.recordPath(scenarioID))
	if err != nil {
		return commonerrors.NewLedgerReadError(err)
	}
	root, count, err := merkleRootFile(l.recordPath(scenarioID))
	if err != nil {
		return commonerrors.NewLedgerReadError(err)
	}

	if stored.SHA256 != sha {
		return commonerrors.NewLedgerCorruptError(
			fmt.Sprintf("sha256 mismatch for %s: meta=%s file=%s", scenarioID, stored.SHA256, sha))
	}
	if stored.MerkleRoot != root {
		return commonerrors.NewLedgerCorruptError(
			fmt.Sprintf("merkle root mismatch for %s: meta=%s file=%s", scenarioID, stored.MerkleRoot, root))
	}
	if stored.RunCount != count {
		return commonerrors.NewLedgerCorruptError(
			fmt.Sprintf("run count mismatch for %s: meta=%d file=%d", scenarioID, stored.RunCount, count))
	}
	return nil
}

// sha256File hashes the raw bytes of a file. A missing file hashes as empty.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return hex.EncodeToString(sha256.New().Sum(nil)), nil
		}
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// merkleRootFile builds a Merkle tree over the non-blank lines of a file.
// Leaf = SHA-256 of the line bytes without the trailing newline. Levels
// combine pairwise left‖right; an odd trailing node pairs with itself. An
// empty file's root is SHA-256 of the empty byte string.
func merkleRootFile(path string) (string, int, error) {
	var leaves [][]byte
	count := 0

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", 0, err
		}
	} else {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			sum := sha256.Sum256(line)
			leaf := make([]byte, len(sum))
			copy(leaf, sum[:])
			leaves = append(leaves, leaf)
			count++
		}
		if err := scanner.Err(); err != nil {
			return "", 0, err
		}
	}

	if len(leaves) == 0 {
		empty := sha256.Sum256(nil)
		return hex.EncodeToString(empty[:]), 0, nil
	}

	level := leaves
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			sum := sha256.Sum256(append(append([]byte{}, left...), right...))
			node := make([]byte, len(sum))
			copy(node, sum[:])
			next = append(next, node)
		}
		level = next
	}

	return hex.EncodeToString(level[0]), count, nil
}
