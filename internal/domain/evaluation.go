package domain

import (
	"time"
)

// EvaluationResult is the output of the decision pipeline for one FNOL.
// Every field is always serialised; numeric fields default to zero.
type EvaluationResult struct {
	ClaimID          string            `json:"claim_id"`
	Decision         string            `json:"decision"`
	ClaimStatus      string            `json:"claim_status"`
	Reason           string            `json:"reason"`
	FraudRuleResults []FraudRuleResult `json:"fraud_rule_results"`
	DamageConfidence int               `json:"damage_confidence"`
	FraudScore       string            `json:"fraud_score"`
	EvaluationScore  float64           `json:"evaluation_score"`
	Threshold        float64           `json:"threshold"`
	ClaimType        *string           `json:"claim_type"`
	EstimatedAmount  float64           `json:"estimated_amount"`
}

// FraudRuleFailed reports whether any fraud check failed.
func (r *EvaluationResult) FraudRuleFailed() bool {
	for _, fr := range r.FraudRuleResults {
		if !fr.Passed {
			return true
		}
	}
	return false
}

// EvaluationRecord is a persisted evaluation, later refined by damage assessment.
type EvaluationRecord struct {
	ID               int64             `json:"id"`
	ClaimID          string            `json:"claim_id"`
	Decision         string            `json:"decision"`
	ClaimStatus      string            `json:"claim_status"`
	Reason           string            `json:"reason"`
	FraudRuleResults []FraudRuleResult `json:"fraud_rule_results"`
	DamageConfidence int               `json:"damage_confidence"`
	FraudScore       string            `json:"fraud_score"`
	EvaluationScore  float64           `json:"evaluation_score"`
	ThresholdValue   int               `json:"threshold_value"`
	ClaimType        *string           `json:"claim_type"`
	EstimatedAmount  float64           `json:"estimated_amount"`
	ClaimAmount      *float64          `json:"claim_amount"`
	DamageLabels     []string          `json:"llm_damages"`
	Severity         string            `json:"llm_severity"`
	CreatedAt        time.Time         `json:"created_date"`
	UpdatedAt        time.Time         `json:"updated_date"`
}

// NewEvaluationRecord converts a pipeline result into a record ready to persist.
// The threshold is stored as an integer percentage.
func NewEvaluationRecord(r *EvaluationResult) *EvaluationRecord {
	return &EvaluationRecord{
		ClaimID:          r.ClaimID,
		Decision:         r.Decision,
		ClaimStatus:      r.ClaimStatus,
		Reason:           r.Reason,
		FraudRuleResults: r.FraudRuleResults,
		DamageConfidence: r.DamageConfidence,
		FraudScore:       r.FraudScore,
		EvaluationScore:  r.EvaluationScore,
		ThresholdValue:   int(r.Threshold*100 + 0.5),
		ClaimType:        r.ClaimType,
		EstimatedAmount:  r.EstimatedAmount,
	}
}

// DamageAssessment is the output of the external damage model.
type DamageAssessment struct {
	ClaimID      string   `json:"claim_id,omitempty"`
	DamageLabels []string `json:"damages"`
	Severity     string   `json:"severity"`
}

// FraudClaim is one row of the fraud review queue.
type FraudClaim struct {
	ClaimID    string    `json:"complaint_id"`
	Customer   string    `json:"customer"`
	StatusName string    `json:"claim_status"`
	UIStatus   string    `json:"status"`
	RiskScore  int       `json:"riskScore"`
	Reason     string    `json:"reason"`
	Amount     float64   `json:"amount"`
	DetectedAt time.Time `json:"detectedAt"`
	Indicators []string  `json:"indicators"`
}

// Decisions.
const (
	DecisionAutoApprove  = "Auto Approve"
	DecisionManualReview = "Manual Review"
	DecisionReject       = "Reject"
)

// Evaluation claim statuses.
const (
	StatusOpen     = "Open"
	StatusClosed   = "Closed"
	StatusRejected = "Rejected"
)

// Fraud bands. FraudMedium is reserved; no check emits it.
const (
	FraudLow    = "Low"
	FraudMedium = "Medium"
	FraudHigh   = "High"
)

// Severity tags produced by the damage model.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
	SeverityUnknown  = "unknown"
)

// Fraud review queue statuses.
const (
	UIStatusConfirmed   = "confirmed"
	UIStatusCleared     = "cleared"
	UIStatusUnderReview = "under_review"
)

// Fixed pipeline reasons.
const (
	ReasonPolicyInactive = "Policy inactive"
	ReasonHighFraudRisk  = "High fraud risk"
)
