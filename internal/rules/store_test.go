package rules

import (
	"strings"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

// fakeStore is an in-memory domain.RuleStore for evaluator tests.
type fakeStore struct {
	rules      []domain.RuleDefinition
	damage     []domain.DamageTypeSeverity
	thresholds []domain.ClaimTypeThreshold
	config     map[string]float64
	photos     map[string]bool
}

func (s *fakeStore) FindRule(ruleType, ruleGroup string) (domain.RuleDefinition, bool) {
	for _, r := range s.rules {
		if !r.IsActive || !strings.EqualFold(r.RuleType, ruleType) {
			continue
		}
		if ruleGroup != "" && !strings.EqualFold(r.RuleGroup, ruleGroup) {
			continue
		}
		return r, true
	}
	return domain.RuleDefinition{}, false
}

func (s *fakeStore) ConfigNumber(key string, def float64) float64 {
	if v, ok := s.config[key]; ok {
		return v
	}
	return def
}

func (s *fakeStore) ActiveDamageTypes() []domain.DamageTypeSeverity {
	var out []domain.DamageTypeSeverity
	for _, d := range s.damage {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out
}

func (s *fakeStore) FindThreshold(tier string) (domain.ClaimTypeThreshold, bool) {
	for _, t := range s.thresholds {
		if t.IsActive && strings.EqualFold(t.ClaimTypeName, tier) {
			return t, true
		}
	}
	return domain.ClaimTypeThreshold{}, false
}

func (s *fakeStore) HasPhoto(claimID string) bool {
	return s.photos[claimID]
}

func fraudRule(ruleType, desc, expr string) domain.RuleDefinition {
	return domain.RuleDefinition{
		RuleType:        ruleType,
		RuleGroup:       domain.RuleGroupFraudCheck,
		RuleDescription: desc,
		RuleExpression:  expr,
		IsActive:        true,
	}
}

// allFraudRules returns the four fraud checks, all active.
func allFraudRules() []domain.RuleDefinition {
	return []domain.RuleDefinition{
		fraudRule(domain.RuleTypeEarlyClaim, "Claim filed too soon after policy start", "Claim < 30 days"),
		fraudRule(domain.RuleTypeDataMissing, "Loss description missing", ""),
		fraudRule(domain.RuleTypeVehicleYear, "Vehicle year is in the future", ""),
		fraudRule(domain.RuleTypeMissingPhotos, "Damage photos missing", ""),
	}
}
