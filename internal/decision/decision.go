// Package decision implements the claim decision pipeline. It turns an FNOL
// payload and a rule snapshot into an approve, review or reject decision.
package decision

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/metrics"
	"github.com/opensource-finance/claimdesk/internal/rules"
)

var tracer = otel.Tracer("claimdesk-decision")

// Processor runs the fixed evaluation sequence:
// fraud rule results, policy, fraud band, photos, then full scoring.
type Processor struct {
	fraud *rules.FraudEvaluator
}

// NewProcessor creates a pipeline over the given fraud evaluator.
func NewProcessor(fraud *rules.FraudEvaluator) *Processor {
	return &Processor{fraud: fraud}
}

// Process evaluates one FNOL against one rule snapshot. It never fails:
// lookups and unparseable fields resolve to their documented defaults.
func (p *Processor) Process(ctx context.Context, store domain.RuleStore, fnol *domain.FNOL) *domain.EvaluationResult {
	_, span := tracer.Start(ctx, "decision.Process",
		trace.WithAttributes(attribute.String("claim.id", fnol.ClaimID)),
	)
	defer span.End()

	start := time.Now()
	result := p.evaluate(store, fnol)
	metrics.EvaluationDurationSeconds.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("claim.decision", result.Decision),
		attribute.String("claim.fraud_score", result.FraudScore),
	)
	return result
}

func (p *Processor) evaluate(store domain.RuleStore, fnol *domain.FNOL) *domain.EvaluationResult {
	result := &domain.EvaluationResult{
		ClaimID:          fnol.ClaimID,
		FraudRuleResults: p.fraud.EvaluateFraudRules(store, fnol),
		FraudScore:       domain.FraudLow,
		Threshold:        domain.DefaultClaimThreshold,
		EstimatedAmount:  fnol.Incident.EstimatedAmount,
	}

	if fnol.Policy.PolicyStatus != "Active" {
		result.Decision = domain.DecisionReject
		result.ClaimStatus = domain.StatusRejected
		result.Reason = domain.ReasonPolicyInactive
		return result
	}

	band, reason := p.fraud.FraudCheck(store, fnol)
	result.FraudScore = band
	if band == domain.FraudHigh {
		if reason == "" {
			reason = domain.ReasonHighFraudRisk
		}
		result.Decision = domain.DecisionReject
		result.ClaimStatus = domain.StatusRejected
		result.Reason = reason
		return result
	}

	if missing, desc := p.fraud.MissingPhotos(store, fnol); missing {
		result.Decision = domain.DecisionManualReview
		result.ClaimStatus = domain.StatusOpen
		result.Reason = desc
		result.DamageConfidence = rules.DamageConfidence(store, fnol.Incident.LossDescription)
		return result
	}

	confidence := rules.DamageConfidence(store, fnol.Incident.LossDescription)
	score := rules.EvaluationScore(confidence, fnol.Incident.EstimatedAmount)
	threshold, tier := rules.Classify(store, fnol.Incident.EstimatedAmount)

	result.DamageConfidence = confidence
	result.EvaluationScore = score
	result.Threshold = threshold
	result.ClaimType = tier

	if score >= threshold {
		result.Decision = domain.DecisionAutoApprove
		result.ClaimStatus = domain.StatusClosed
	} else {
		result.Decision = domain.DecisionManualReview
		result.ClaimStatus = domain.StatusOpen
	}
	return result
}

// ClaimStatusAfterFraudDetection maps a persisted evaluation to the claim's
// next status: Fraudulent on reject or any failed fraud rule, otherwise
// Pending Damage Detection.
func ClaimStatusAfterFraudDetection(r *domain.EvaluationResult) int64 {
	if r.Decision == domain.DecisionReject || r.FraudRuleFailed() {
		return domain.ClaimStatusFraudulent
	}
	return domain.ClaimStatusPendingDamage
}
