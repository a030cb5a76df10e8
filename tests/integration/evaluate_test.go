//go:build integration
// +build integration

// Package integration provides end-to-end tests against a running claimdesk server.
//
// These tests drive the complete claim lifecycle over HTTP:
//
//	FNOL intake → fraud detection → damage assessment → fraud review queue
//
// The server must be seeded with the default master data first:
//
//	claimctl seed --file configs/seed.yaml
//
// which gives:
//
// | Table         | Rows                                                          |
// |---------------|---------------------------------------------------------------|
// | fraud rules   | Early Claim (30 days), Data missing, Vehicle Year, Photos      |
// | damage codes  | dent 20, scratch 10, crack 15, broken 25, shattered 30, ...   |
// | claim types   | SIMPLE 70, MEDIUM 75, COMPLEX 85                              |
// | pricing       | base 10000, 2000 per damage, x1.0 / x1.2 / x1.5               |
//
// Run with: go test -tags=integration -v ./tests/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL string
	UserID  string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("CLAIMDESK_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL: baseURL,
		UserID:  "integration-tester",
	}
}

// ============================================================================
// Wire types (matching the claimdesk API contract)
// ============================================================================

type FNOL struct {
	ClaimID   string    `json:"claim_id,omitempty"`
	Policy    Policy    `json:"policy"`
	Vehicle   Vehicle   `json:"vehicle"`
	Incident  Incident  `json:"incident"`
	Claimant  Claimant  `json:"claimant"`
	Documents Documents `json:"documents"`
}

type Policy struct {
	PolicyNumber    string `json:"policy_number"`
	PolicyStatus    string `json:"policy_status"`
	PolicyStartDate string `json:"policy_start_date"`
}

type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
}

type Incident struct {
	DateTimeOfLoss  string  `json:"date_time_of_loss"`
	LossDescription string  `json:"loss_description"`
	EstimatedAmount float64 `json:"estimated_amount"`
}

type Claimant struct {
	DriverName string `json:"driver_name"`
}

type Documents struct {
	PhotosUploaded bool     `json:"photos_uploaded"`
	Photos         []string `json:"photos"`
}

type FraudRuleResult struct {
	RuleType string `json:"rule_type"`
	Passed   bool   `json:"passed"`
}

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
}

type AssessmentOutcome struct {
	ClaimAmount *float64 `json:"claim_amount"`
	Decision    string   `json:"decision"`
	StatusID    int64    `json:"status_id"`
	Applied     bool     `json:"applied"`
}

type FraudClaim struct {
	ClaimID   string `json:"complaint_id"`
	UIStatus  string `json:"status"`
	RiskScore int    `json:"riskScore"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func call(t *testing.T, config TestConfig, method, path string, body any, wantStatus int, out any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, config.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", config.UserID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
		}
	}
}

func uniqueClaimID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// cleanFNOL is a claim that passes every fraud check: the policy started two
// years ago, the loss was yesterday and photos were uploaded.
func cleanFNOL(claimID string) FNOL {
	now := time.Now()
	return FNOL{
		ClaimID:  claimID,
		Policy:   Policy{PolicyNumber: "POL-IT-1", PolicyStatus: "Active", PolicyStartDate: now.AddDate(-2, 0, 0).Format("2006-01-02")},
		Vehicle:  Vehicle{Make: "Honda", Model: "City", Year: fmt.Sprint(now.Year() - 3)},
		Incident: Incident{DateTimeOfLoss: now.AddDate(0, 0, -1).Format("2006-01-02T15:04:05"), LossDescription: "Rear bumper dent and scratch", EstimatedAmount: 12000},
		Claimant: Claimant{DriverName: "Integration Driver"},
		Documents: Documents{
			PhotosUploaded: true,
			Photos:         []string{"rear.jpg"},
		},
	}
}

func failedRules(r EvaluationResult) []string {
	var failed []string
	for _, fr := range r.FraudRuleResults {
		if !fr.Passed {
			failed = append(failed, fr.RuleType)
		}
	}
	return failed
}

// ============================================================================
// SCENARIO 1: Dry-run evaluation
// ============================================================================

func TestEvaluate_CleanClaimAutoApproves(t *testing.T) {
	/*
	   SCENARIO: an active policy, old enough, with photos and a dent plus scratch

	   EXPECTED BEHAVIOR:
	   - every fraud check passes → fraud band Low
	   - confidence 50 + dent 20 + scratch 10 + bumper 10 = 90 → score 0.90
	   - 12000 is a SIMPLE claim → threshold 0.70
	   - 0.90 >= 0.70 → Auto Approve
	*/
	config := getTestConfig()

	var result EvaluationResult
	call(t, config, http.MethodPost, "/claims/evaluate", map[string]any{"fnol": cleanFNOL("")}, http.StatusOK, &result)

	if result.Decision != "Auto Approve" {
		t.Errorf("Expected Auto Approve, got %s (%s)", result.Decision, result.Reason)
	}
	if result.FraudScore != "Low" {
		t.Errorf("Expected fraud band Low, got %s", result.FraudScore)
	}
	if result.DamageConfidence != 90 {
		t.Errorf("Expected damage confidence 90, got %d", result.DamageConfidence)
	}
	if result.ClaimType == nil || *result.ClaimType != "SIMPLE" {
		t.Errorf("Expected SIMPLE claim type, got %v", result.ClaimType)
	}
	if failed := failedRules(result); len(failed) > 0 {
		t.Errorf("Expected no failed fraud checks, got %v", failed)
	}
}

func TestEvaluate_InactivePolicyRejects(t *testing.T) {
	config := getTestConfig()

	fnol := cleanFNOL("")
	fnol.Policy.PolicyStatus = "Lapsed"

	var result EvaluationResult
	call(t, config, http.MethodPost, "/claims/evaluate", map[string]any{"fnol": fnol}, http.StatusOK, &result)

	if result.Decision != "Reject" || result.ClaimStatus != "Rejected" {
		t.Errorf("Expected (Reject, Rejected), got (%s, %s)", result.Decision, result.ClaimStatus)
	}
	if result.Reason != "Policy inactive" {
		t.Errorf("Expected inactive policy reason, got %q", result.Reason)
	}
}

func TestEvaluate_EarlyClaimRejects(t *testing.T) {
	/*
	   SCENARIO: the loss happened ten days after the policy started

	   EXPECTED BEHAVIOR:
	   - Early Claim fails (window parsed from "< 30 days") → fraud band High
	   - the rule description becomes the reason
	*/
	config := getTestConfig()

	fnol := cleanFNOL("")
	start := time.Now().AddDate(0, 0, -20)
	fnol.Policy.PolicyStartDate = start.Format("2006-01-02")
	fnol.Incident.DateTimeOfLoss = start.AddDate(0, 0, 10).Format("2006-01-02T15:04:05")

	var result EvaluationResult
	call(t, config, http.MethodPost, "/claims/evaluate", map[string]any{"fnol": fnol}, http.StatusOK, &result)

	if result.Decision != "Reject" || result.FraudScore != "High" {
		t.Errorf("Expected (Reject, High), got (%s, %s)", result.Decision, result.FraudScore)
	}
	if result.Reason != "Claim reported within 30 days of policy start" {
		t.Errorf("Unexpected reason %q", result.Reason)
	}
}

func TestEvaluate_MissingPhotosNeedsReview(t *testing.T) {
	config := getTestConfig()

	fnol := cleanFNOL("")
	fnol.Documents = Documents{}

	var result EvaluationResult
	call(t, config, http.MethodPost, "/claims/evaluate", map[string]any{"fnol": fnol}, http.StatusOK, &result)

	if result.Decision != "Manual Review" {
		t.Errorf("Expected Manual Review, got %s", result.Decision)
	}
	if result.FraudScore != "Low" {
		t.Errorf("Missing photos must not raise the fraud band, got %s", result.FraudScore)
	}
	if result.Reason != "No damage photos were uploaded" {
		t.Errorf("Unexpected reason %q", result.Reason)
	}
}

// ============================================================================
// SCENARIO 2: Full claim lifecycle
// ============================================================================

func TestClaimLifecycle(t *testing.T) {
	/*
	   SCENARIO: save an FNOL, run fraud detection, apply a damage assessment

	   EXPECTED BEHAVIOR:
	   - POST /fnol creates the claim (201), a second save updates it (200)
	   - fraud detection persists an evaluation and moves the claim to
	     Pending Damage Detection (status 4)
	   - applying one minor dent prices the claim at (10000 + 2000) x 1.0
	   - the claim then leaves the fraud review queue as cleared
	*/
	config := getTestConfig()
	claimID := uniqueClaimID("IT-LIFE")
	fnol := cleanFNOL(claimID)

	var saved struct {
		ClaimID string `json:"claim_id"`
		Created bool   `json:"created"`
	}
	call(t, config, http.MethodPost, "/fnol", map[string]any{"fnol": fnol}, http.StatusCreated, &saved)
	if !saved.Created || saved.ClaimID != claimID {
		t.Fatalf("Unexpected save response %+v", saved)
	}
	call(t, config, http.MethodPost, "/fnol", map[string]any{"fnol": fnol}, http.StatusOK, &saved)
	if saved.Created {
		t.Error("Second save should update the claim")
	}

	var result EvaluationResult
	call(t, config, http.MethodPost, "/fnol/"+claimID+"/fraud-detection", nil, http.StatusOK, &result)
	if result.Decision == "Reject" {
		t.Fatalf("Clean claim rejected: %s", result.Reason)
	}

	var claim struct {
		StatusID     int64    `json:"status_id"`
		DamagePhotos []string `json:"damage_photos"`
	}
	call(t, config, http.MethodGet, "/fnol/"+claimID, nil, http.StatusOK, &claim)
	if claim.StatusID != 4 {
		t.Errorf("Expected Pending Damage Detection (4), got %d", claim.StatusID)
	}
	if len(claim.DamagePhotos) != 1 {
		t.Errorf("Expected one photo URL, got %v", claim.DamagePhotos)
	}

	var outcome AssessmentOutcome
	call(t, config, http.MethodPost, "/fnol/"+claimID+"/damage-assessment",
		map[string]any{"damages": []string{"dent"}, "severity": "minor"}, http.StatusOK, &outcome)
	if !outcome.Applied {
		t.Fatal("Expected the assessment to be applied")
	}
	if outcome.ClaimAmount == nil || *outcome.ClaimAmount != 12000 {
		t.Errorf("Expected claim amount 12000, got %v", outcome.ClaimAmount)
	}
	if outcome.StatusID != 5 && outcome.StatusID != 6 {
		t.Errorf("Expected a closed status, got %d", outcome.StatusID)
	}

	var queue struct {
		Claims []FraudClaim `json:"claims"`
	}
	call(t, config, http.MethodGet, "/fraud/claims", nil, http.StatusOK, &queue)
	for _, c := range queue.Claims {
		if c.ClaimID == claimID {
			if c.UIStatus != "cleared" {
				t.Errorf("Expected closed claim to show as cleared, got %q", c.UIStatus)
			}
			return
		}
	}
	t.Errorf("Claim %s missing from the fraud review queue", claimID)
}

func TestFraudulentClaimIsFlagged(t *testing.T) {
	config := getTestConfig()
	claimID := uniqueClaimID("IT-FRAUD")

	fnol := cleanFNOL(claimID)
	fnol.Vehicle.Year = fmt.Sprint(time.Now().Year() + 2)

	call(t, config, http.MethodPost, "/fnol", map[string]any{"fnol": fnol}, http.StatusCreated, nil)

	var result EvaluationResult
	call(t, config, http.MethodPost, "/fnol/"+claimID+"/fraud-detection", nil, http.StatusOK, &result)
	if result.Decision != "Reject" {
		t.Errorf("Expected Reject for a future vehicle year, got %s", result.Decision)
	}

	var claim struct {
		StatusID int64 `json:"status_id"`
	}
	call(t, config, http.MethodGet, "/fnol/"+claimID, nil, http.StatusOK, &claim)
	if claim.StatusID != 3 {
		t.Errorf("Expected Fraudulent (3), got %d", claim.StatusID)
	}
}

// ============================================================================
// SCENARIO 3: Error handling
// ============================================================================

func TestErrorResponses(t *testing.T) {
	config := getTestConfig()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"UnknownClaim", http.MethodGet, "/fnol/does-not-exist", nil, http.StatusNotFound},
		{"UnknownClaimFraudDetection", http.MethodPost, "/fnol/does-not-exist/fraud-detection", nil, http.StatusNotFound},
		{"SaveWithoutClaimID", http.MethodPost, "/fnol", map[string]any{"fnol": cleanFNOL("")}, http.StatusBadRequest},
		{"MissingPayload", http.MethodPost, "/claims/evaluate", map[string]any{}, http.StatusBadRequest},
		{"EmptyAssessment", http.MethodPost, "/fnol/does-not-exist/damage-assessment", map[string]any{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call(t, config, tt.method, tt.path, tt.body, tt.want, nil)
		})
	}
}
