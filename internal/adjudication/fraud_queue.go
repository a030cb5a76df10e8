package adjudication

import (
	"context"
	"errors"
	"strings"

	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/repository"
)

// placeholder is shown where a queue row has no customer or reason.
const placeholder = "—"

// ListFraudClaims returns the fraud review queue: every claim that has been
// through fraud detection, with its latest evaluation summarised.
func (s *Service) ListFraudClaims(ctx context.Context) ([]*domain.FraudClaim, error) {
	claims, err := s.repo.ListEvaluatedClaims(ctx)
	if err != nil {
		return nil, err
	}

	queue := make([]*domain.FraudClaim, 0, len(claims))
	for _, c := range claims {
		eval, err := s.repo.LatestEvaluation(ctx, c.ClaimID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		queue = append(queue, fraudClaim(c, eval))
	}
	return queue, nil
}

func fraudClaim(c *domain.ClaimRecord, eval *domain.EvaluationRecord) *domain.FraudClaim {
	customer := c.HolderName
	if customer == "" {
		customer = placeholder
	}

	reason := eval.Reason
	if reason == "" {
		reason = eval.Decision
	}
	indicators := []string{}
	if reason == "" {
		reason = placeholder
	} else {
		indicators = append(indicators, reason)
	}

	amount := eval.EstimatedAmount
	if amount == 0 && eval.ClaimAmount != nil {
		amount = *eval.ClaimAmount
	}

	return &domain.FraudClaim{
		ClaimID:    c.ClaimID,
		Customer:   customer,
		StatusName: c.StatusName,
		UIStatus:   UIStatus(c.StatusName),
		RiskScore:  RiskScore(eval.Decision),
		Reason:     reason,
		Amount:     amount,
		DetectedAt: eval.CreatedAt,
		Indicators: indicators,
	}
}

// UIStatus maps a claim status name to the fraud queue status.
func UIStatus(statusName string) string {
	s := strings.ToLower(strings.TrimSpace(statusName))
	switch {
	case strings.Contains(s, "fraud"):
		return domain.UIStatusConfirmed
	case strings.HasPrefix(s, "closed"), strings.Contains(s, "auto approved"):
		return domain.UIStatusCleared
	default:
		return domain.UIStatusUnderReview
	}
}

// RiskScore maps an evaluation decision to the queue's 0-100 risk score.
func RiskScore(decisionName string) int {
	switch strings.ToLower(strings.TrimSpace(decisionName)) {
	case "reject":
		return 90
	case "manual review":
		return 65
	default:
		return 25
	}
}
