package target

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/models"
	"bias-audit-harness/internal/scoring"
	"bias-audit-harness/internal/sessions"
)

// ==========================
// Test Helpers
// ==========================

func neutralCandidate() models.Candidate {
	return models.Candidate{
		Name: "Jordan Taylor",
		Address: models.Address{
			PostalCode: "94102",
		},
		Education: models.Education{
			Institution:    "Stanford University",
			GraduationYear: 2018,
		},
		ExperienceYears: 5,
		Skills:          []string{"Python", "AWS", "React"},
	}
}

func createHTTPTarget(t *testing.T, handler http.HandlerFunc) (*HTTPTarget, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPTarget(server.URL, 5*time.Second, logger.NewTestLogger(t)), server
}

// ==========================
// HTTP Target Tests
// ==========================

func TestHTTPTarget_Submit(t *testing.T) {
	var gotPath, gotContentType string
	var gotReq SubmitRequest

	client, _ := createHTTPTarget(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(models.ScoringOutcome{
			CandidateID: "cand-123",
			BaseScore:   100,
			FinalScore:  92,
		})
	})

	outcome, err := client.Submit(context.Background(), SubmitRequest{Candidate: neutralCandidate()})
	require.NoError(t, err)

	assert.Equal(t, "/api/candidates/submit", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Jordan Taylor", gotReq.Candidate.Name)
	assert.Equal(t, "cand-123", outcome.CandidateID)
	assert.Equal(t, 92.0, outcome.FinalScore)
}

func TestHTTPTarget_NonOKStatus(t *testing.T) {
	client, _ := createHTTPTarget(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := client.Submit(context.Background(), SubmitRequest{Candidate: neutralCandidate()})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeTargetInvalidPayload, commonerrors.CodeOf(err))
	assert.False(t, commonerrors.IsRetryable(err))
}

func TestHTTPTarget_MalformedResponseBody(t *testing.T) {
	client, _ := createHTTPTarget(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.Submit(context.Background(), SubmitRequest{Candidate: neutralCandidate()})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeTargetInvalidPayload, commonerrors.CodeOf(err))
}

func TestHTTPTarget_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewHTTPTarget(url, 5*time.Second, logger.NewTestLogger(t))
	_, err := client.Submit(context.Background(), SubmitRequest{Candidate: neutralCandidate()})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeTargetUnreachable, commonerrors.CodeOf(err))
	assert.True(t, commonerrors.IsRetryable(err))
}

func TestHTTPTarget_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := NewHTTPTarget(server.URL, 50*time.Millisecond, logger.NewTestLogger(t))
	_, err := client.Submit(context.Background(), SubmitRequest{Candidate: neutralCandidate()})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeTargetTimeout, commonerrors.CodeOf(err))
	assert.True(t, commonerrors.IsRetryable(err))
}

// ==========================
// In-Process Target Tests
// ==========================

func createInProcessTarget(t *testing.T) *InProcessTarget {
	t.Helper()
	log := logger.NewTestLogger(t)
	engine := scoring.NewEngine(log, scoring.WithCurrentYear(2024))
	return NewInProcessTarget(engine, sessions.NewMemoryStore(), log)
}

func TestInProcessTarget_Submit(t *testing.T) {
	client := createInProcessTarget(t)

	outcome, err := client.Submit(context.Background(), SubmitRequest{Candidate: neutralCandidate()})
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.CandidateID)
	assert.Equal(t, 75.0, outcome.BaseScore)
	assert.Equal(t, 75.0, outcome.FinalScore)
	assert.Empty(t, outcome.DetectedBiases)
}

func TestInProcessTarget_ReplayAcrossSubmissions(t *testing.T) {
	client := createInProcessTarget(t)

	candidate := neutralCandidate()
	candidate.AgentSessionID = "agent-session-42"

	first, err := client.Submit(context.Background(), SubmitRequest{Candidate: candidate})
	require.NoError(t, err)
	assert.NotContains(t, first.BiasAdjustments, "memory_contamination_sc08")

	second, err := client.Submit(context.Background(), SubmitRequest{Candidate: candidate})
	require.NoError(t, err)
	assert.Contains(t, second.BiasAdjustments, "memory_contamination_sc08")
}

func TestInProcessTarget_ValidationErrorPassesThrough(t *testing.T) {
	client := createInProcessTarget(t)

	candidate := neutralCandidate()
	candidate.Name = ""

	_, err := client.Submit(context.Background(), SubmitRequest{Candidate: candidate})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
}
