package repository

import "strings"

// Schema definitions for the claimdesk database.
// The same statements run on SQLite and PostgreSQL; only the surrogate key differs.

const schemaClaimStatus = `
CREATE TABLE IF NOT EXISTS claim_status (
    id BIGINT PRIMARY KEY,
    status_name TEXT NOT NULL
);

INSERT INTO claim_status (id, status_name) VALUES
    (1, 'Open'),
    (2, 'Under Review'),
    (3, 'Fraudulent'),
    (4, 'Pending Damage Detection'),
    (5, 'Closed - Auto Approved'),
    (6, 'Closed - Manual Review')
ON CONFLICT (id) DO NOTHING;
`

const schemaClaims = `
CREATE TABLE IF NOT EXISTS fnol_claims (
    claim_id TEXT PRIMARY KEY,
    policy_number TEXT NOT NULL DEFAULT '',
    policy_status TEXT NOT NULL DEFAULT '',
    policy_holder_name TEXT NOT NULL DEFAULT '',
    incident_date_time TEXT NOT NULL DEFAULT '',
    incident_description TEXT NOT NULL DEFAULT '',
    status_id BIGINT NOT NULL DEFAULT 1 REFERENCES claim_status(id),
    payload TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL,
    updated_by TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_fnol_claims_status ON fnol_claims(status_id);

CREATE TABLE IF NOT EXISTS fnol_damage_photos (
    id {{id}},
    claim_id TEXT NOT NULL REFERENCES fnol_claims(claim_id) ON DELETE CASCADE,
    photo_path TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fnol_damage_photos_claim ON fnol_damage_photos(claim_id);
`

const schemaEvaluations = `
CREATE TABLE IF NOT EXISTS claim_evaluations (
    id {{id}},
    claim_id TEXT NOT NULL,
    decision TEXT NOT NULL,
    claim_status TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    fraud_rule_results TEXT NOT NULL,
    damage_confidence INTEGER NOT NULL DEFAULT 0,
    fraud_score TEXT NOT NULL DEFAULT '',
    evaluation_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    threshold_value INTEGER NOT NULL DEFAULT 0,
    claim_type TEXT,
    estimated_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
    claim_amount DOUBLE PRECISION,
    llm_damages TEXT,
    llm_severity TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claim_evaluations_claim ON claim_evaluations(claim_id, created_at);
`

const schemaMasters = `
CREATE TABLE IF NOT EXISTS claim_rules (
    id {{id}},
    rule_type TEXT NOT NULL,
    rule_group TEXT NOT NULL DEFAULT '',
    rule_description TEXT NOT NULL DEFAULT '',
    rule_expression TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS damage_codes (
    id {{id}},
    damage_type TEXT NOT NULL,
    severity_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS claim_types (
    id {{id}},
    claim_type_name TEXT NOT NULL,
    risk_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS pricing_config (
    id {{id}},
    config_key TEXT NOT NULL,
    config_value TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements in order for the given driver.
func AllSchemas(driver string) []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "postgres" {
		id = "BIGSERIAL PRIMARY KEY"
	}

	schemas := []string{
		schemaClaimStatus,
		schemaClaims,
		schemaEvaluations,
		schemaMasters,
	}
	for i, s := range schemas {
		schemas[i] = strings.ReplaceAll(s, "{{id}}", id)
	}
	return schemas
}
