package rules

import "github.com/opensource-finance/claimdesk/internal/domain"

// BuiltinChecks returns the pass condition of every fraud check, keyed by rule type.
// Whether a check runs at all is decided by the rule tables, not here.
func BuiltinChecks() map[string]string {
	return map[string]string{
		domain.RuleTypeEarlyClaim:    `!dates_known || (days_since_start >= 0 && days_since_start >= early_claim_window)`,
		domain.RuleTypeDataMissing:   `loss_description.trim() != ""`,
		domain.RuleTypeVehicleYear:   `!year_known || vehicle_year <= current_year`,
		domain.RuleTypeMissingPhotos: `has_photos`,
	}
}

// fraudCheckOrder is the fixed order checks are reported in.
var fraudCheckOrder = []string{
	domain.RuleTypeEarlyClaim,
	domain.RuleTypeDataMissing,
	domain.RuleTypeVehicleYear,
	domain.RuleTypeMissingPhotos,
}

// bandCheckOrder lists the checks that drive the fraud band, in priority order.
var bandCheckOrder = []string{
	domain.RuleTypeEarlyClaim,
	domain.RuleTypeDataMissing,
	domain.RuleTypeVehicleYear,
}
