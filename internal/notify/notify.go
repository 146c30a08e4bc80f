// Package notify delivers violation alerts for failed audit scenarios: an
// SNS publication for on-call routing and an SES email summarizing the
// mitigation actions and their owners.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/models"
)

// SNSPublisher is the publish surface of the SNS client.
type SNSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SESSender is the send surface of the SES client.
type SESSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// Config selects which channels are active and where they deliver.
type Config struct {
	TopicARN   string
	FromEmail  string
	Recipients []string
}

// Notifier fans a failed evidence record out to the configured channels.
// A nil publisher or sender disables that channel.
type Notifier struct {
	sns SNSPublisher
	ses SESSender
	cfg Config
	log logger.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(snsClient SNSPublisher, sesClient SESSender, cfg Config, log logger.Logger) *Notifier {
	return &Notifier{sns: snsClient, ses: sesClient, cfg: cfg, log: log}
}

// violationAlert is the SNS message body.
type violationAlert struct {
	ScenarioID    string   `json:"scenario_id"`
	ExecutionID   string   `json:"execution_id"`
	OverallResult string   `json:"overall_result"`
	Violations    []string `json:"violations"`
	RecordHash    string   `json:"record_hash"`
	Timestamp     string   `json:"timestamp"`
}

// NotifyViolation reports a failed scenario on every active channel. The
// first channel error is returned after all channels were attempted.
func (n *Notifier) NotifyViolation(ctx context.Context, record models.EvidenceRecord) error {
	var firstErr error

	if n.sns != nil && n.cfg.TopicARN != "" {
		if err := n.publishAlert(ctx, record); err != nil {
			firstErr = err
		}
	}
	if n.ses != nil && n.cfg.FromEmail != "" && len(n.cfg.Recipients) > 0 {
		if err := n.sendMitigationEmail(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *Notifier) publishAlert(ctx context.Context, record models.EvidenceRecord) error {
	violations := []string{}
	if record.FailureEvidence != nil {
		violations = record.FailureEvidence.DetectedViolations
	}
	alert := violationAlert{
		ScenarioID:    record.Scenario.ScenarioID,
		ExecutionID:   record.ExecutionContext.ExecutionID,
		OverallResult: record.Evaluation.OverallResult,
		Violations:    violations,
		RecordHash:    record.Provenance.RecordHash,
		Timestamp:     record.ExecutionContext.Timestamp,
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return commonerrors.NewNotificationSendFailedError("sns", err)
	}

	subject := fmt.Sprintf("Audit violation: %s", record.Scenario.ScenarioID)
	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.cfg.TopicARN),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(string(body)),
	})
	if err != nil {
		return commonerrors.NewNotificationSendFailedError("sns", err)
	}

	if n.log != nil {
		n.log.Info("violation alert published", map[string]interface{}{
			"scenario_id":  record.Scenario.ScenarioID,
			"execution_id": record.ExecutionContext.ExecutionID,
		})
	}
	return nil
}

func (n *Notifier) sendMitigationEmail(ctx context.Context, record models.EvidenceRecord) error {
	subject := fmt.Sprintf("Mitigation required: %s (%s)",
		record.Scenario.ScenarioID, record.ExecutionContext.ExecutionID)

	var body strings.Builder
	fmt.Fprintf(&body, "Audit scenario %s failed.\n\n", record.Scenario.ScenarioID)
	if record.FailureEvidence != nil {
		fmt.Fprintf(&body, "%s\n", record.FailureEvidence.Summary)
		for _, v := range record.FailureEvidence.DetectedViolations {
			fmt.Fprintf(&body, "  - %s\n", v)
		}
	}
	fmt.Fprintf(&body, "\nMitigation plan: %s\n", record.Mitigation.MitigationPlan)
	for _, action := range record.Mitigation.MitigationActions {
		fmt.Fprintf(&body, "  %s: %s (owner: %s, due %s)\n",
			action.ActionID, action.Description, action.Owner, action.DueDate)
	}
	fmt.Fprintf(&body, "\nRecord hash: %s\n", record.Provenance.RecordHash)

	recipients := make([]string, len(n.cfg.Recipients))
	copy(recipients, n.cfg.Recipients)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(n.cfg.FromEmail),
		Destination: &sestypes.Destination{ToAddresses: recipients},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body.String())},
			},
		},
	})
	if err != nil {
		return commonerrors.NewNotificationSendFailedError("ses", err)
	}

	if n.log != nil {
		n.log.Info("mitigation email sent", map[string]interface{}{
			"scenario_id": record.Scenario.ScenarioID,
			"recipients":  len(recipients),
		})
	}
	return nil
}
