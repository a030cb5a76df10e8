package domain

import "time"

// RuleDefinition is one administrator-managed business rule.
// RuleExpression is free text; for Early Claim it carries the day window.
type RuleDefinition struct {
	ID              int64     `json:"id" db:"id"`
	RuleType        string    `json:"rule_type" db:"rule_type"`
	RuleGroup       string    `json:"rule_group" db:"rule_group"`
	RuleDescription string    `json:"rule_description" db:"rule_description"`
	RuleExpression  string    `json:"rule_expression" db:"rule_expression"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_date" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_date" db:"updated_at"`
}

// DamageTypeSeverity is a damage keyword and its confidence contribution.
type DamageTypeSeverity struct {
	ID                 int64     `json:"id" db:"id"`
	DamageType         string    `json:"damage_type" db:"damage_type"`
	SeverityPercentage float64   `json:"severity_percentage" db:"severity_percentage"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	CreatedAt          time.Time `json:"created_date" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_date" db:"updated_at"`
}

// ClaimTypeThreshold maps a claim tier to its approval threshold percentage.
type ClaimTypeThreshold struct {
	ID             int64     `json:"id" db:"id"`
	ClaimTypeName  string    `json:"claim_type_name" db:"claim_type_name"`
	RiskPercentage float64   `json:"risk_percentage" db:"risk_percentage"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_date" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_date" db:"updated_at"`
}

// PricingParameter is a key/value pricing configuration row.
// ConfigValue is text and parsed as a float on read.
type PricingParameter struct {
	ID          int64     `json:"id" db:"id"`
	ConfigKey   string    `json:"config_key" db:"config_key"`
	ConfigValue string    `json:"config_value" db:"config_value"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_date" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_date" db:"updated_at"`
}

// FraudRuleResult is the pass/fail outcome of one active fraud check.
type FraudRuleResult struct {
	RuleType        string `json:"rule_type"`
	RuleDescription string `json:"rule_description"`
	Passed          bool   `json:"passed"`
}

// RuleStore is the read contract the evaluation engine depends on.
// Implementations must be safe for repeated calls within one evaluation
// and must never fail: absence is reported through the bool results.
type RuleStore interface {
	// FindRule returns the active rule of the given type. An empty group matches any group.
	FindRule(ruleType, ruleGroup string) (RuleDefinition, bool)

	// ConfigNumber returns the parsed value of an active pricing row, or def.
	ConfigNumber(key string, def float64) float64

	// ActiveDamageTypes returns every active damage keyword row.
	ActiveDamageTypes() []DamageTypeSeverity

	// FindThreshold returns the active tier row matching name.
	FindThreshold(tier string) (ClaimTypeThreshold, bool)

	// HasPhoto reports whether the claim has a persisted, non-empty photo record.
	HasPhoto(claimID string) bool
}

// Rule types recognised by the fraud evaluator.
const (
	RuleTypePolicyStatus   = "Policy Status"
	RuleTypeEarlyClaim     = "Early Claim"
	RuleTypeDataMissing    = "Data missing"
	RuleTypeVehicleYear    = "Vehicle Year Invalid"
	RuleTypeMissingPhotos  = "Missing Damage Photos"
	RuleGroupFraudCheck    = "Fraud Check"
	DefaultEarlyClaimDays  = 30
	DefaultClaimThreshold  = 0.75
	ClaimTierSimple        = "SIMPLE"
	ClaimTierMedium        = "MEDIUM"
	ClaimTierComplex       = "COMPLEX"
	ClaimTierSimpleCeiling = 25000.0
	ClaimTierMediumCeiling = 50000.0
)

// Pricing configuration keys and their defaults.
const (
	ConfigClaimBaseAmount     = "claim_base_amount"
	ConfigClaimRatePerDamage  = "claim_rate_per_damage"
	ConfigMultiplierMinor     = "severity_multiplier_minor"
	ConfigMultiplierModerate  = "severity_multiplier_moderate"
	ConfigMultiplierSevere    = "severity_multiplier_severe"
	DefaultClaimBaseAmount    = 10000.0
	DefaultClaimRatePerDamage = 2000.0
	DefaultMultiplierMinor    = 1.0
	DefaultMultiplierModerate = 1.2
	DefaultMultiplierSevere   = 1.5
)
