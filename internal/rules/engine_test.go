package rules

import (
	"testing"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	checks := engine.Checks()
	if len(checks) != len(BuiltinChecks()) {
		t.Errorf("expected %d checks, got %d", len(BuiltinChecks()), len(checks))
	}
}

func TestLoadInvalidCheck(t *testing.T) {
	engine, _ := NewEngine()

	if err := engine.LoadCheck("broken", "this is not valid CEL !!!"); err == nil {
		t.Error("expected error for invalid CEL expression")
	}
	if err := engine.LoadCheck("not-bool", "vehicle_year + 1"); err == nil {
		t.Error("expected error for non-bool expression")
	}
}

func TestEngineChecks(t *testing.T) {
	engine, _ := NewEngine()

	tests := []struct {
		name     string
		ruleType string
		facts    Facts
		want     bool
	}{
		{"early claim unknown dates", domain.RuleTypeEarlyClaim, Facts{EarlyClaimWindow: 30}, true},
		{"early claim inside window", domain.RuleTypeEarlyClaim, Facts{DatesKnown: true, DaysSinceStart: 14, EarlyClaimWindow: 30}, false},
		{"early claim at window", domain.RuleTypeEarlyClaim, Facts{DatesKnown: true, DaysSinceStart: 30, EarlyClaimWindow: 30}, true},
		{"early claim before start", domain.RuleTypeEarlyClaim, Facts{DatesKnown: true, DaysSinceStart: -3, EarlyClaimWindow: 0}, false},
		{"description present", domain.RuleTypeDataMissing, Facts{LossDescription: "rear bumper dent"}, true},
		{"description blank", domain.RuleTypeDataMissing, Facts{LossDescription: " \t\n"}, false},
		{"year unknown", domain.RuleTypeVehicleYear, Facts{CurrentYear: 2024}, true},
		{"year current", domain.RuleTypeVehicleYear, Facts{YearKnown: true, VehicleYear: 2024, CurrentYear: 2024}, true},
		{"year future", domain.RuleTypeVehicleYear, Facts{YearKnown: true, VehicleYear: 2025, CurrentYear: 2024}, false},
		{"photos present", domain.RuleTypeMissingPhotos, Facts{HasPhotos: true}, true},
		{"photos absent", domain.RuleTypeMissingPhotos, Facts{}, false},
		{"unknown check", "Not A Check", Facts{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.Check(tt.ruleType, tt.facts); got != tt.want {
				t.Errorf("Check(%q) = %v, want %v", tt.ruleType, got, tt.want)
			}
		})
	}
}

func TestLoadCheckReplaces(t *testing.T) {
	engine, _ := NewEngine()

	if err := engine.LoadCheck(domain.RuleTypeMissingPhotos, "true"); err != nil {
		t.Fatalf("failed to load check: %v", err)
	}
	if !engine.Check(domain.RuleTypeMissingPhotos, Facts{}) {
		t.Error("expected replaced check to pass")
	}
}
