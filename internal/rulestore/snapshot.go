// Package rulestore serves the configurable rule tables to the evaluation
// engine as immutable snapshots, one per evaluation.
package rulestore

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

// Snapshot is an immutable, indexed view over one read of the rule tables.
// Lookups are case-insensitive and only see active rows.
type Snapshot struct {
	tables     *domain.RuleTables
	rules      map[string][]domain.RuleDefinition
	damage     []domain.DamageTypeSeverity
	thresholds map[string]domain.ClaimTypeThreshold
	config     map[string]string
}

// NewSnapshot indexes the given tables. Rows are considered in id order so
// that duplicate active rows resolve the same way on every load.
func NewSnapshot(t *domain.RuleTables) *Snapshot {
	if t == nil {
		t = &domain.RuleTables{}
	}
	s := &Snapshot{
		tables:     t,
		rules:      make(map[string][]domain.RuleDefinition),
		thresholds: make(map[string]domain.ClaimTypeThreshold),
		config:     make(map[string]string),
	}

	rules := append([]domain.RuleDefinition(nil), t.Rules...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		key := normalize(r.RuleType)
		s.rules[key] = append(s.rules[key], r)
	}

	for _, d := range t.DamageTypes {
		if d.IsActive {
			s.damage = append(s.damage, d)
		}
	}
	sort.SliceStable(s.damage, func(i, j int) bool { return s.damage[i].ID < s.damage[j].ID })

	claimTypes := append([]domain.ClaimTypeThreshold(nil), t.ClaimTypes...)
	sort.SliceStable(claimTypes, func(i, j int) bool { return claimTypes[i].ID < claimTypes[j].ID })
	for _, c := range claimTypes {
		key := normalize(c.ClaimTypeName)
		if _, seen := s.thresholds[key]; c.IsActive && !seen {
			s.thresholds[key] = c
		}
	}

	pricing := append([]domain.PricingParameter(nil), t.Pricing...)
	sort.SliceStable(pricing, func(i, j int) bool { return pricing[i].ID < pricing[j].ID })
	for _, p := range pricing {
		if _, seen := s.config[p.ConfigKey]; p.IsActive && !seen {
			s.config[p.ConfigKey] = p.ConfigValue
		}
	}

	return s
}

// Tables returns the rows the snapshot was built from.
func (s *Snapshot) Tables() *domain.RuleTables {
	return s.tables
}

// FindRule returns the first active rule of ruleType. An empty group matches any group.
func (s *Snapshot) FindRule(ruleType, ruleGroup string) (domain.RuleDefinition, bool) {
	group := normalize(ruleGroup)
	for _, r := range s.rules[normalize(ruleType)] {
		if group == "" || normalize(r.RuleGroup) == group {
			return r, true
		}
	}
	return domain.RuleDefinition{}, false
}

// ConfigNumber returns the active value for key parsed as a float, or def
// when the row is missing, inactive, empty or not a finite number.
func (s *Snapshot) ConfigNumber(key string, def float64) float64 {
	raw, ok := s.config[key]
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// ActiveDamageTypes returns the active damage keyword rows.
func (s *Snapshot) ActiveDamageTypes() []domain.DamageTypeSeverity {
	return s.damage
}

// FindThreshold returns the active tier row for name.
func (s *Snapshot) FindThreshold(tier string) (domain.ClaimTypeThreshold, bool) {
	row, ok := s.thresholds[normalize(tier)]
	return row, ok
}

// HasPhoto always reports false: a bare snapshot knows nothing about claims.
// Use ForClaim to bind photo state.
func (s *Snapshot) HasPhoto(string) bool {
	return false
}

// ForClaim binds the claim's photo state to the snapshot.
func (s *Snapshot) ForClaim(claimID string, hasPhoto bool) *ClaimView {
	return &ClaimView{Snapshot: s, claimID: claimID, hasPhoto: hasPhoto}
}

// ClaimView is a Snapshot plus the photo state of one claim.
type ClaimView struct {
	*Snapshot
	claimID  string
	hasPhoto bool
}

// HasPhoto reports the photo state captured when the view was created.
func (v *ClaimView) HasPhoto(claimID string) bool {
	return claimID != "" && claimID == v.claimID && v.hasPhoto
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
