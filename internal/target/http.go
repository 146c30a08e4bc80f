// internal/target/http.go
package target

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/common/metrics"
	"bias-audit-harness/internal/models"
)

// HTTPTarget submits candidates to a remote scoring service. One request per
// probe, fixed timeout, no retries: a flaky target is itself an audit finding
// and must surface as an error, not be smoothed over.
type HTTPTarget struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
}

// NewHTTPTarget creates a client for the scoring service at baseURL.
func NewHTTPTarget(baseURL string, timeout time.Duration, log logger.Logger) *HTTPTarget {
	return &HTTPTarget{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Submit posts one candidate and decodes the scoring outcome.
func (t *HTTPTarget) Submit(ctx context.Context, req SubmitRequest) (models.ScoringOutcome, error) {
	endpoint := t.baseURL + SubmitPath

	body, err := json.Marshal(req)
	if err != nil {
		return models.ScoringOutcome{}, commonerrors.NewTargetInvalidPayloadError(err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.ScoringOutcome{}, commonerrors.NewTargetUnreachableError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		metrics.TargetSubmissions.WithLabelValues("error").Inc()
		if commonerrors.IsTimeout(err) {
			return models.ScoringOutcome{}, commonerrors.NewTargetTimeoutError(endpoint)
		}
		return models.ScoringOutcome{}, commonerrors.NewTargetUnreachableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.TargetSubmissions.WithLabelValues("error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return models.ScoringOutcome{}, commonerrors.NewTargetInvalidPayloadError(
			fmt.Sprintf("status %d: %s", resp.StatusCode, string(snippet)))
	}

	var outcome models.ScoringOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		metrics.TargetSubmissions.WithLabelValues("error").Inc()
		return models.ScoringOutcome{}, commonerrors.NewTargetInvalidPayloadError(err.Error())
	}
	metrics.TargetSubmissions.WithLabelValues("ok").Inc()

	if t.log != nil {
		t.log.Debug("candidate submitted to target", map[string]interface{}{
			"endpoint":     endpoint,
			"candidate_id": outcome.CandidateID,
			"final_score":  outcome.FinalScore,
		})
	}
	return outcome, nil
}
