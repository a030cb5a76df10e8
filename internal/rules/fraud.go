package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

var windowPattern = regexp.MustCompile(`\d+`)

// FraudEvaluator runs the fraud checks that are switched on in the rule tables.
type FraudEvaluator struct {
	engine *Engine
	now    func() time.Time
}

// NewFraudEvaluator creates a fraud evaluator. A nil clock means time.Now.
func NewFraudEvaluator(engine *Engine, now func() time.Time) *FraudEvaluator {
	if now == nil {
		now = time.Now
	}
	return &FraudEvaluator{engine: engine, now: now}
}

// FraudCheck returns the fraud band and the reason for it. It stops at the
// first failing check among Early Claim, Data missing and Vehicle Year Invalid.
// Missing Damage Photos never affects the band.
func (f *FraudEvaluator) FraudCheck(store domain.RuleStore, fnol *domain.FNOL) (band, reason string) {
	facts := f.facts(store, fnol)
	for _, ruleType := range bandCheckOrder {
		rule, active := store.FindRule(ruleType, domain.RuleGroupFraudCheck)
		if !active {
			continue
		}
		if !f.engine.Check(ruleType, facts) {
			return domain.FraudHigh, describe(rule)
		}
	}
	return domain.FraudLow, ""
}

// EvaluateFraudRules reports pass/fail for every active fraud check without short-circuiting.
func (f *FraudEvaluator) EvaluateFraudRules(store domain.RuleStore, fnol *domain.FNOL) []domain.FraudRuleResult {
	facts := f.facts(store, fnol)
	results := make([]domain.FraudRuleResult, 0, len(fraudCheckOrder))
	for _, ruleType := range fraudCheckOrder {
		rule, active := store.FindRule(ruleType, domain.RuleGroupFraudCheck)
		if !active {
			continue
		}
		results = append(results, domain.FraudRuleResult{
			RuleType:        ruleType,
			RuleDescription: describe(rule),
			Passed:          f.engine.Check(ruleType, facts),
		})
	}
	return results
}

// MissingPhotos reports whether the photo check is active and failing.
// The returned description is the rule's reason text.
func (f *FraudEvaluator) MissingPhotos(store domain.RuleStore, fnol *domain.FNOL) (bool, string) {
	rule, active := store.FindRule(domain.RuleTypeMissingPhotos, domain.RuleGroupFraudCheck)
	if !active {
		return false, ""
	}
	if f.engine.Check(domain.RuleTypeMissingPhotos, f.facts(store, fnol)) {
		return false, ""
	}
	return true, describe(rule)
}

// HasDamagePhotos checks persisted photo records when a claim id is given,
// otherwise the payload's document flags.
func HasDamagePhotos(store domain.RuleStore, claimID string, docs domain.Documents) bool {
	if claimID != "" {
		return store.HasPhoto(claimID)
	}
	return docs.PhotosUploaded || len(docs.Photos) > 0
}

// EarlyClaimWindow extracts the day window from the Early Claim rule expression.
func EarlyClaimWindow(store domain.RuleStore) int {
	rule, ok := store.FindRule(domain.RuleTypeEarlyClaim, "")
	if !ok || rule.RuleExpression == "" {
		return domain.DefaultEarlyClaimDays
	}
	match := windowPattern.FindString(rule.RuleExpression)
	if match == "" {
		return domain.DefaultEarlyClaimDays
	}
	days, err := strconv.Atoi(match)
	if err != nil {
		return domain.DefaultEarlyClaimDays
	}
	return days
}

func (f *FraudEvaluator) facts(store domain.RuleStore, fnol *domain.FNOL) Facts {
	facts := Facts{
		EarlyClaimWindow: EarlyClaimWindow(store),
		LossDescription:  fnol.Incident.LossDescription,
		CurrentYear:      f.now().Year(),
		HasPhotos:        HasDamagePhotos(store, fnol.ClaimID, fnol.Documents),
	}

	start, okStart := parseDate(fnol.Policy.PolicyStartDate)
	loss, okLoss := parseDate(fnol.Incident.DateTimeOfLoss)
	if okStart && okLoss {
		facts.DatesKnown = true
		facts.DaysSinceStart = int(loss.Sub(start).Hours() / 24)
	}

	if year, ok := fnol.Vehicle.Year.Int(); ok {
		facts.YearKnown = true
		facts.VehicleYear = year
	}
	return facts
}

func describe(rule domain.RuleDefinition) string {
	if d := strings.TrimSpace(rule.RuleDescription); d != "" {
		return d
	}
	return rule.RuleType
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// parseDate returns the calendar date of s in its own offset, at UTC midnight.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
