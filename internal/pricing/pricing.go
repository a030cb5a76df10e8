// Package pricing estimates claim amounts from damage model output and
// decides the closing outcome of an assessed claim.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

// Rates are the pricing parameters resolved from configuration.
type Rates struct {
	Base               decimal.Decimal
	RatePerDamage      decimal.Decimal
	MultiplierMinor    decimal.Decimal
	MultiplierModerate decimal.Decimal
	MultiplierSevere   decimal.Decimal
}

// LoadRates reads the pricing parameters, falling back to defaults on any miss.
func LoadRates(store domain.RuleStore) Rates {
	num := func(key string, def float64) decimal.Decimal {
		return decimal.NewFromFloat(store.ConfigNumber(key, def))
	}
	return Rates{
		Base:               num(domain.ConfigClaimBaseAmount, domain.DefaultClaimBaseAmount),
		RatePerDamage:      num(domain.ConfigClaimRatePerDamage, domain.DefaultClaimRatePerDamage),
		MultiplierMinor:    num(domain.ConfigMultiplierMinor, domain.DefaultMultiplierMinor),
		MultiplierModerate: num(domain.ConfigMultiplierModerate, domain.DefaultMultiplierModerate),
		MultiplierSevere:   num(domain.ConfigMultiplierSevere, domain.DefaultMultiplierSevere),
	}
}

// Multiplier selects the severity multiplier. Unknown severities price as moderate.
func (r Rates) Multiplier(severity string) decimal.Decimal {
	switch normalizeSeverity(severity) {
	case domain.SeverityMinor:
		return r.MultiplierMinor
	case domain.SeveritySevere:
		return r.MultiplierSevere
	default:
		return r.MultiplierModerate
	}
}

// Estimate prices a claim as (base + damages*rate) * multiplier, never below
// a positive prior estimate, rounded to two decimals. A claim with no real
// damage labels is priced as one damage.
func Estimate(store domain.RuleStore, labels []string, severity string, prior float64) float64 {
	r := LoadRates(store)

	count := DamageCount(labels)
	if count == 0 {
		count = 1
	}

	amount := r.Base.Add(r.RatePerDamage.Mul(decimal.NewFromInt(int64(count)))).Mul(r.Multiplier(severity))
	if prior > 0 {
		amount = decimal.Max(amount, decimal.NewFromFloat(prior))
	}
	return amount.Round(2).InexactFloat64()
}

// DamageCount counts labels that are non-empty and not "none".
func DamageCount(labels []string) int {
	n := 0
	for _, l := range labels {
		if isRealDamage(l) {
			n++
		}
	}
	return n
}

// Outcome decides how an assessed claim closes: Auto Approve when the
// severity is minor or moderate and the model saw real damage, otherwise
// Manual Review. The claim status id is the matching closed status.
func Outcome(labels []string, severity string) (decision string, statusID int64) {
	sev := normalizeSeverity(severity)
	if (sev == domain.SeverityMinor || sev == domain.SeverityModerate) && DamageCount(labels) > 0 {
		return domain.DecisionAutoApprove, domain.ClaimStatusClosedAutoApproved
	}
	return domain.DecisionManualReview, domain.ClaimStatusClosedManualReview
}

func isRealDamage(label string) bool {
	l := strings.TrimSpace(label)
	return l != "" && !strings.EqualFold(l, "none")
}

func normalizeSeverity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
