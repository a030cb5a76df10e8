// Package adjudication is the application layer of claimdesk. It ties FNOL
// intake, the decision pipeline, damage assessment and persistence together.
package adjudication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/claimdesk/internal/bus"
	"github.com/opensource-finance/claimdesk/internal/decision"
	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/metrics"
	"github.com/opensource-finance/claimdesk/internal/pricing"
	"github.com/opensource-finance/claimdesk/internal/repository"
	"github.com/opensource-finance/claimdesk/internal/rulestore"
)

var tracer = otel.Tracer("claimdesk-adjudication")

var (
	// ErrRulesUnavailable means the rule tables could not be read, so no
	// evaluation can run.
	ErrRulesUnavailable = errors.New("rule tables unavailable")

	// ErrNoPayload means a stored claim has no FNOL payload to evaluate.
	ErrNoPayload = errors.New("claim has no stored FNOL payload")
)

// Assessor produces damage labels and a severity from claim photos.
type Assessor interface {
	Assess(ctx context.Context, claimID string, images []string) (domain.DamageAssessment, error)
}

// Options tune a Service.
type Options struct {
	// Async publishes an FNOL-saved event so a worker runs fraud detection.
	Async bool

	// MediaBaseURL prefixes stored photo paths in claim views.
	MediaBaseURL string
}

// Service runs claim use cases against one repository and rule loader.
type Service struct {
	repo      domain.Repository
	rules     *rulestore.Loader
	processor *decision.Processor
	assessor  Assessor
	bus       domain.EventBus
	opts      Options
}

// NewService creates the service. assessor and events may be nil.
func NewService(repo domain.Repository, rules *rulestore.Loader, processor *decision.Processor, assessor Assessor, events domain.EventBus, opts Options) *Service {
	if opts.MediaBaseURL == "" {
		opts.MediaBaseURL = "media/vehicle_damage/"
	}
	return &Service{
		repo:      repo,
		rules:     rules,
		processor: processor,
		assessor:  assessor,
		bus:       events,
		opts:      opts,
	}
}

// SaveFNOL stores an FNOL and reports whether it created a new claim.
func (s *Service) SaveFNOL(ctx context.Context, fnol *domain.FNOL, userID string) (bool, error) {
	fnol.ClaimID = strings.TrimSpace(fnol.ClaimID)
	if fnol.ClaimID == "" {
		return false, fmt.Errorf("%w: claim_id is required", repository.ErrInvalidInput)
	}

	created, err := s.repo.SaveClaim(ctx, fnol, userID)
	if err != nil {
		return false, err
	}

	slog.Info("fnol saved",
		"claim_id", fnol.ClaimID,
		"created", created,
		"user_id", userID,
	)

	if s.opts.Async {
		s.publish(ctx, domain.TopicFNOLSaved, domain.FNOLSavedEvent{ClaimID: fnol.ClaimID, UserID: userID})
	}
	return created, nil
}

// Evaluate runs the decision pipeline over a payload without persisting anything.
// Photo presence is read from stored records when the payload names a claim.
func (s *Service) Evaluate(ctx context.Context, fnol *domain.FNOL) (*domain.EvaluationResult, error) {
	store, err := s.rules.ForClaim(ctx, strings.TrimSpace(fnol.ClaimID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRulesUnavailable, err)
	}

	result := s.processor.Process(ctx, store, fnol)
	metrics.EvaluationsTotal.WithLabelValues(result.Decision, "dry_run").Inc()
	return result, nil
}

// RunFraudDetection evaluates a stored claim, persists the evaluation and moves
// the claim to Fraudulent or Pending Damage Detection in one transaction.
func (s *Service) RunFraudDetection(ctx context.Context, claimID string) (*domain.EvaluationResult, error) {
	ctx, span := tracer.Start(ctx, "adjudication.RunFraudDetection",
		trace.WithAttributes(attribute.String("claim.id", claimID)),
	)
	defer span.End()

	start := time.Now()

	claim, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, spanError(span, err)
	}
	if claim.Payload == nil {
		return nil, spanError(span, fmt.Errorf("%w: %s", ErrNoPayload, claimID))
	}

	fnol := *claim.Payload
	fnol.ClaimID = claim.ClaimID

	store, err := s.rules.ForClaim(ctx, claim.ClaimID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("%w: %v", ErrRulesUnavailable, err))
	}

	result := s.processor.Process(ctx, store, &fnol)
	rec := domain.NewEvaluationRecord(result)
	statusID := decision.ClaimStatusAfterFraudDetection(result)

	if _, err := s.repo.SaveEvaluation(ctx, rec, statusID); err != nil {
		return nil, spanError(span, err)
	}

	metrics.EvaluationsTotal.WithLabelValues(result.Decision, "persisted").Inc()
	span.SetAttributes(
		attribute.String("claim.decision", result.Decision),
		attribute.Int64("claim.status_id", statusID),
	)

	slog.Info("fraud detection completed",
		"claim_id", claim.ClaimID,
		"decision", result.Decision,
		"fraud_score", result.FraudScore,
		"status_id", statusID,
		"evaluation_id", rec.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.publish(ctx, domain.TopicEvaluationCompleted, domain.EvaluationCompletedEvent{
		ClaimID:      claim.ClaimID,
		EvaluationID: rec.ID,
		Decision:     result.Decision,
		StatusID:     statusID,
	})
	return result, nil
}

// LatestEvaluation returns the most recent evaluation record of a claim.
func (s *Service) LatestEvaluation(ctx context.Context, claimID string) (*domain.EvaluationRecord, error) {
	return s.repo.LatestEvaluation(ctx, claimID)
}

// AssessmentOutcome is the result of applying a damage assessment.
// Applied is false when the claim had no evaluation to refine.
type AssessmentOutcome struct {
	ClaimID     string   `json:"claim_id"`
	Damages     []string `json:"damages"`
	Severity    string   `json:"severity"`
	ClaimAmount *float64 `json:"claim_amount,omitempty"`
	Decision    string   `json:"decision,omitempty"`
	ClaimStatus string   `json:"claim_status,omitempty"`
	StatusID    int64    `json:"status_id,omitempty"`
	Applied     bool     `json:"applied"`
	ModelError  string   `json:"model_error,omitempty"`
}

// AssessAndApply sends images to the damage model and applies its output.
// A model failure still prices the claim, with severity unknown and no labels.
func (s *Service) AssessAndApply(ctx context.Context, claimID string, images []string) (*AssessmentOutcome, error) {
	if s.assessor == nil {
		return nil, fmt.Errorf("%w: no damage assessor configured", repository.ErrInvalidInput)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: images are required", repository.ErrInvalidInput)
	}

	assessment, modelErr := s.assessor.Assess(ctx, claimID, images)
	out, err := s.ApplyAssessment(ctx, claimID, assessment)
	if err != nil {
		return nil, err
	}
	if modelErr != nil {
		out.ModelError = modelErr.Error()
	}
	return out, nil
}

// ApplyAssessment stores damage labels and severity on the latest evaluation,
// prices the claim and closes it as auto approved or manual review.
func (s *Service) ApplyAssessment(ctx context.Context, claimID string, a domain.DamageAssessment) (*AssessmentOutcome, error) {
	ctx, span := tracer.Start(ctx, "adjudication.ApplyAssessment",
		trace.WithAttributes(attribute.String("claim.id", claimID)),
	)
	defer span.End()

	labels := trimLabels(a.DamageLabels)
	severity := strings.ToLower(strings.TrimSpace(a.Severity))
	if severity == "" {
		severity = domain.SeverityUnknown
	}

	out := &AssessmentOutcome{ClaimID: claimID, Damages: labels, Severity: severity}

	rec, err := s.repo.LatestEvaluation(ctx, claimID)
	if errors.Is(err, repository.ErrNotFound) {
		slog.Info("damage assessment not applied, claim has no evaluation", "claim_id", claimID)
		return out, nil
	}
	if err != nil {
		return nil, spanError(span, err)
	}

	store, err := s.rules.ForClaim(ctx, claimID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("%w: %v", ErrRulesUnavailable, err))
	}

	amount := pricing.Estimate(store, labels, severity, rec.EstimatedAmount)
	decisionName, statusID := pricing.Outcome(labels, severity)

	rec.DamageLabels = labels
	rec.Severity = severity
	rec.ClaimAmount = &amount
	rec.Decision = decisionName
	rec.ClaimStatus = domain.StatusClosed

	if err := s.repo.UpdateEvaluation(ctx, rec, statusID); err != nil {
		return nil, spanError(span, err)
	}

	metrics.AssessmentsTotal.WithLabelValues(severity, decisionName).Inc()
	slog.Info("damage assessment applied",
		"claim_id", claimID,
		"severity", severity,
		"damage_count", pricing.DamageCount(labels),
		"claim_amount", amount,
		"decision", decisionName,
		"status_id", statusID,
	)

	out.ClaimAmount = &amount
	out.Decision = decisionName
	out.ClaimStatus = domain.StatusClosed
	out.StatusID = statusID
	out.Applied = true
	return out, nil
}

// ListClaimStatuses returns the claim status lookup table.
func (s *Service) ListClaimStatuses(ctx context.Context) ([]*domain.ClaimStatus, error) {
	return s.repo.ListClaimStatuses(ctx)
}

func (s *Service) publish(ctx context.Context, topic string, event any) {
	if s.bus == nil {
		return
	}
	if err := bus.PublishJSON(ctx, s.bus, topic, event); err != nil {
		slog.Error("failed to publish event", "topic", topic, "error", err)
	}
}

func trimLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
