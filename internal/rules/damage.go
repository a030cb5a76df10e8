package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

const baseDamageConfidence = 50

// DamageConfidence scores a loss description from 0 to 100. It starts at 50
// and adds the severity of every active damage keyword found in the text.
// The sum is clamped and rounded half away from zero.
func DamageConfidence(store domain.RuleStore, description string) int {
	text := strings.ToLower(description)
	total := decimal.NewFromInt(baseDamageConfidence)

	for _, d := range store.ActiveDamageTypes() {
		keyword := strings.ToLower(d.DamageType)
		if keyword == "" || !strings.Contains(text, keyword) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(d.SeverityPercentage))
	}

	total = decimal.Max(decimal.Zero, decimal.Min(total, decimal.NewFromInt(100)))
	return int(total.Round(0).IntPart())
}
