package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

func init() {
	color.NoColor = true
}

func TestLoadSeedFile(t *testing.T) {
	seed, err := loadSeedFile(filepath.Join("..", "..", "configs", "seed.yaml"))
	if err != nil {
		t.Fatalf("loadSeedFile failed: %v", err)
	}
	if len(seed.Rules) != 4 {
		t.Errorf("expected 4 rules, got %d", len(seed.Rules))
	}
	if len(seed.ClaimTypes) != 3 || seed.ClaimTypes[0].ClaimTypeName != domain.ClaimTierSimple {
		t.Errorf("unexpected claim types %+v", seed.ClaimTypes)
	}
	if len(seed.Pricing) != 5 || seed.Pricing[0].ConfigKey != domain.ConfigClaimBaseAmount {
		t.Errorf("unexpected pricing %+v", seed.Pricing)
	}

	if _, err := loadSeedFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplySeedIsIdempotent(t *testing.T) {
	ctx := context.Background()

	cfg := domain.DefaultConfig()
	cfg.Repository.SQLitePath = filepath.Join(t.TempDir(), "claimctl.db")
	svc, cleanup, err := newService(ctx, cfg)
	if err != nil {
		t.Fatalf("newService failed: %v", err)
	}
	defer cleanup()

	seed, err := loadSeedFile(filepath.Join("..", "..", "configs", "seed.yaml"))
	if err != nil {
		t.Fatalf("loadSeedFile failed: %v", err)
	}

	first, err := applySeed(ctx, svc, seed)
	if err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if first.Created != 18 || first.Updated != 0 {
		t.Errorf("expected 18 created, got %+v", first)
	}

	second, err := applySeed(ctx, svc, seed)
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if second.Created != 0 || second.Updated != 18 {
		t.Errorf("expected 18 updated, got %+v", second)
	}

	rules, _ := svc.ListRules(ctx)
	if len(rules) != 4 {
		t.Errorf("expected 4 rules after reseeding, got %d", len(rules))
	}

	result, err := svc.Evaluate(ctx, &domain.FNOL{
		Policy:    domain.Policy{PolicyStatus: "Active"},
		Incident:  domain.Incident{LossDescription: "bumper dent and scratch", EstimatedAmount: 8000},
		Documents: domain.Documents{PhotosUploaded: true},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// 50 + 20 + 10 + 10 = 90 against the seeded SIMPLE threshold of 70.
	if result.DamageConfidence != 90 || result.Decision != domain.DecisionAutoApprove {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestParseFNOL(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  string
		wantErr bool
	}{
		{"Wrapped", `{"fnol":{"claim_id":"CLM-1"}}`, "CLM-1", false},
		{"Bare", `{"claim_id":"CLM-2","vehicle":{"year":2021}}`, "CLM-2", false},
		{"Invalid", `{`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fnol, err := parseFNOL([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFNOL failed: %v", err)
			}
			if fnol.ClaimID != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, fnol.ClaimID)
			}
		})
	}
}

func TestRunReplay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-ID") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			FNOL domain.FNOL `json:"fnol"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.FNOL.ClaimID == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		decision := domain.DecisionAutoApprove
		if strings.HasPrefix(req.FNOL.ClaimID, "R") {
			decision = domain.DecisionReject
		}
		json.NewEncoder(w).Encode(domain.EvaluationResult{ClaimID: req.FNOL.ClaimID, Decision: decision})
	}))
	defer srv.Close()

	corpus := []CorpusEntry{
		{FNOL: &domain.FNOL{ClaimID: "A1"}, Expected: domain.DecisionAutoApprove},
		{FNOL: &domain.FNOL{ClaimID: "A2"}},
		{FNOL: &domain.FNOL{ClaimID: "R1"}, Expected: domain.DecisionAutoApprove},
		{FNOL: &domain.FNOL{ClaimID: "boom"}},
		{FNOL: nil},
	}

	var out bytes.Buffer
	report := runReplay(srv.Client(), srv.URL, "tester", corpus, 3, false, &out)

	if report.Processed != 5 || report.Errors != 2 {
		t.Errorf("expected 5 processed and 2 errors, got %d/%d", report.Processed, report.Errors)
	}
	if report.Decisions[domain.DecisionAutoApprove] != 2 || report.Decisions[domain.DecisionReject] != 1 {
		t.Errorf("unexpected distribution %v", report.Decisions)
	}
	if report.Labelled != 2 || report.Matched != 1 {
		t.Errorf("expected 1 of 2 labelled matches, got %d/%d", report.Matched, report.Labelled)
	}

	printReport(&out, report)
	if !strings.Contains(out.String(), "Matched:     1 / 2") {
		t.Errorf("report missing match line:\n%s", out.String())
	}
}

func TestPercentile(t *testing.T) {
	r := &ReplayReport{}
	if r.Percentile(95) != 0 {
		t.Error("expected zero percentile without samples")
	}

	for i := 10; i >= 1; i-- {
		r.Latencies = append(r.Latencies, time.Duration(i)*time.Millisecond)
	}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, time.Millisecond},
		{50, 5 * time.Millisecond},
		{100, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := r.Percentile(tt.p); got != tt.want {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPrintResult(t *testing.T) {
	tier := domain.ClaimTierSimple
	var out bytes.Buffer
	printResult(&out, &domain.EvaluationResult{
		Decision:    domain.DecisionReject,
		ClaimStatus: domain.StatusRejected,
		Reason:      "Claim reported within 30 days of policy start",
		FraudScore:  domain.FraudHigh,
		ClaimType:   &tier,
		FraudRuleResults: []domain.FraudRuleResult{
			{RuleType: domain.RuleTypeEarlyClaim, Passed: false},
			{RuleType: domain.RuleTypeDataMissing, Passed: true},
		},
	})

	got := out.String()
	for _, want := range []string{"Reject", "FAIL  Early Claim", "PASS  Data missing", "SIMPLE"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
