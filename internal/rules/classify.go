package rules

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

var largeClaimDiscount = decimal.RequireFromString("0.7")

// ClaimTier buckets an estimated amount into SIMPLE, MEDIUM or COMPLEX.
func ClaimTier(amount float64) string {
	switch {
	case amount <= domain.ClaimTierSimpleCeiling:
		return domain.ClaimTierSimple
	case amount <= domain.ClaimTierMediumCeiling:
		return domain.ClaimTierMedium
	default:
		return domain.ClaimTierComplex
	}
}

// Classify returns the approval threshold for the claim's tier and the tier name.
// Without a usable active tier row it falls back to 0.75 and a nil tier.
func Classify(store domain.RuleStore, amount float64) (float64, *string) {
	tier := ClaimTier(amount)
	row, ok := store.FindThreshold(tier)
	if !ok {
		return domain.DefaultClaimThreshold, nil
	}

	pct := row.RiskPercentage
	if math.IsNaN(pct) || math.IsInf(pct, 0) || pct < 0 {
		return domain.DefaultClaimThreshold, nil
	}
	return pct / 100, &tier
}

// EvaluationScore converts a damage confidence into a 0..1 score, discounted
// by 30% for claims above the MEDIUM ceiling and rounded to two decimals.
func EvaluationScore(confidence int, amount float64) float64 {
	score := decimal.NewFromInt(int64(confidence)).Div(decimal.NewFromInt(100))
	if amount > domain.ClaimTierMediumCeiling {
		score = score.Mul(largeClaimDiscount)
	}
	return score.Round(2).InexactFloat64()
}
