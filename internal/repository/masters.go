package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

// LoadRuleTables reads the four configurable tables inside one transaction so
// that an evaluation never sees a half-applied administrator change.
func (r *SQLRepository) LoadRuleTables(ctx context.Context) (*domain.RuleTables, error) {
	tables := &domain.RuleTables{}
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &tables.Rules, `SELECT * FROM claim_rules ORDER BY id`); err != nil {
			return fmt.Errorf("claim_rules: %w", err)
		}
		if err := tx.SelectContext(ctx, &tables.DamageTypes, `SELECT * FROM damage_codes ORDER BY id`); err != nil {
			return fmt.Errorf("damage_codes: %w", err)
		}
		if err := tx.SelectContext(ctx, &tables.ClaimTypes, `SELECT * FROM claim_types ORDER BY id`); err != nil {
			return fmt.Errorf("claim_types: %w", err)
		}
		if err := tx.SelectContext(ctx, &tables.Pricing, `SELECT * FROM pricing_config ORDER BY id`); err != nil {
			return fmt.Errorf("pricing_config: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load rule tables: %w", err)
	}
	return tables, nil
}

// masterTables are the tables a rule snapshot is built from.
var masterTables = []string{"claim_rules", "damage_codes", "claim_types", "pricing_config"}

// RuleTablesVersion summarises the master tables as row count, highest id and
// latest updated_at per table. Any insert, update or delete made through this
// or another process changes the result.
func (r *SQLRepository) RuleTablesVersion(ctx context.Context) (string, error) {
	parts := make([]string, 0, len(masterTables))
	for _, table := range masterTables {
		var (
			count, maxID int64
			updated      sql.NullString
		)
		row := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(MAX(id), 0), MAX(updated_at) FROM `+table)
		if err := row.Scan(&count, &maxID, &updated); err != nil {
			return "", fmt.Errorf("failed to read %s version: %w", table, err)
		}
		parts = append(parts, fmt.Sprintf("%d/%d/%s", count, maxID, updated.String))
	}
	return strings.Join(parts, ";"), nil
}

// Claim rules

// ListRules returns every claim rule, active or not.
func (r *SQLRepository) ListRules(ctx context.Context) ([]*domain.RuleDefinition, error) {
	var rules []*domain.RuleDefinition
	if err := r.db.SelectContext(ctx, &rules, `SELECT * FROM claim_rules ORDER BY id`); err != nil {
		return nil, err
	}
	return rules, nil
}

// GetRule retrieves a claim rule by id.
func (r *SQLRepository) GetRule(ctx context.Context, id int64) (*domain.RuleDefinition, error) {
	var rule domain.RuleDefinition
	if err := r.db.GetContext(ctx, &rule, r.db.Rebind(`SELECT * FROM claim_rules WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &rule, nil
}

// SaveRule inserts a rule when its id is zero and updates it otherwise.
func (r *SQLRepository) SaveRule(ctx context.Context, rule *domain.RuleDefinition) error {
	if strings.TrimSpace(rule.RuleType) == "" {
		return fmt.Errorf("%w: rule_type is required", ErrInvalidInput)
	}
	return r.saveMaster(ctx, &rule.ID, &rule.CreatedAt, &rule.UpdatedAt, rule,
		`INSERT INTO claim_rules (rule_type, rule_group, rule_description, rule_expression, is_active, created_at, updated_at)
		 VALUES (:rule_type, :rule_group, :rule_description, :rule_expression, :is_active, :created_at, :updated_at)
		 RETURNING id`,
		`UPDATE claim_rules SET rule_type = :rule_type, rule_group = :rule_group,
		 rule_description = :rule_description, rule_expression = :rule_expression,
		 is_active = :is_active, updated_at = :updated_at
		 WHERE id = :id`,
	)
}

// DeleteRule removes a claim rule.
func (r *SQLRepository) DeleteRule(ctx context.Context, id int64) error {
	return r.deleteMaster(ctx, "claim_rules", id)
}

// Damage codes

// ListDamageTypes returns every damage keyword row.
func (r *SQLRepository) ListDamageTypes(ctx context.Context) ([]*domain.DamageTypeSeverity, error) {
	var rows []*domain.DamageTypeSeverity
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM damage_codes ORDER BY id`); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetDamageType retrieves a damage keyword row by id.
func (r *SQLRepository) GetDamageType(ctx context.Context, id int64) (*domain.DamageTypeSeverity, error) {
	var d domain.DamageTypeSeverity
	if err := r.db.GetContext(ctx, &d, r.db.Rebind(`SELECT * FROM damage_codes WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// SaveDamageType inserts or updates a damage keyword row.
func (r *SQLRepository) SaveDamageType(ctx context.Context, d *domain.DamageTypeSeverity) error {
	if strings.TrimSpace(d.DamageType) == "" {
		return fmt.Errorf("%w: damage_type is required", ErrInvalidInput)
	}
	return r.saveMaster(ctx, &d.ID, &d.CreatedAt, &d.UpdatedAt, d,
		`INSERT INTO damage_codes (damage_type, severity_percentage, is_active, created_at, updated_at)
		 VALUES (:damage_type, :severity_percentage, :is_active, :created_at, :updated_at)
		 RETURNING id`,
		`UPDATE damage_codes SET damage_type = :damage_type, severity_percentage = :severity_percentage,
		 is_active = :is_active, updated_at = :updated_at
		 WHERE id = :id`,
	)
}

// DeleteDamageType removes a damage keyword row.
func (r *SQLRepository) DeleteDamageType(ctx context.Context, id int64) error {
	return r.deleteMaster(ctx, "damage_codes", id)
}

// Claim types

// ListClaimTypes returns every tier threshold row.
func (r *SQLRepository) ListClaimTypes(ctx context.Context) ([]*domain.ClaimTypeThreshold, error) {
	var rows []*domain.ClaimTypeThreshold
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM claim_types ORDER BY id`); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetClaimType retrieves a tier threshold row by id.
func (r *SQLRepository) GetClaimType(ctx context.Context, id int64) (*domain.ClaimTypeThreshold, error) {
	var c domain.ClaimTypeThreshold
	if err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT * FROM claim_types WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// SaveClaimType inserts or updates a tier threshold row.
func (r *SQLRepository) SaveClaimType(ctx context.Context, c *domain.ClaimTypeThreshold) error {
	if strings.TrimSpace(c.ClaimTypeName) == "" {
		return fmt.Errorf("%w: claim_type_name is required", ErrInvalidInput)
	}
	return r.saveMaster(ctx, &c.ID, &c.CreatedAt, &c.UpdatedAt, c,
		`INSERT INTO claim_types (claim_type_name, risk_percentage, is_active, created_at, updated_at)
		 VALUES (:claim_type_name, :risk_percentage, :is_active, :created_at, :updated_at)
		 RETURNING id`,
		`UPDATE claim_types SET claim_type_name = :claim_type_name, risk_percentage = :risk_percentage,
		 is_active = :is_active, updated_at = :updated_at
		 WHERE id = :id`,
	)
}

// DeleteClaimType removes a tier threshold row.
func (r *SQLRepository) DeleteClaimType(ctx context.Context, id int64) error {
	return r.deleteMaster(ctx, "claim_types", id)
}

// Pricing configuration

// ListPricing returns every pricing configuration row.
func (r *SQLRepository) ListPricing(ctx context.Context) ([]*domain.PricingParameter, error) {
	var rows []*domain.PricingParameter
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM pricing_config ORDER BY id`); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetPricing retrieves a pricing configuration row by id.
func (r *SQLRepository) GetPricing(ctx context.Context, id int64) (*domain.PricingParameter, error) {
	var p domain.PricingParameter
	if err := r.db.GetContext(ctx, &p, r.db.Rebind(`SELECT * FROM pricing_config WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// SavePricing inserts or updates a pricing configuration row.
func (r *SQLRepository) SavePricing(ctx context.Context, p *domain.PricingParameter) error {
	if strings.TrimSpace(p.ConfigKey) == "" {
		return fmt.Errorf("%w: config_key is required", ErrInvalidInput)
	}
	return r.saveMaster(ctx, &p.ID, &p.CreatedAt, &p.UpdatedAt, p,
		`INSERT INTO pricing_config (config_key, config_value, description, is_active, created_at, updated_at)
		 VALUES (:config_key, :config_value, :description, :is_active, :created_at, :updated_at)
		 RETURNING id`,
		`UPDATE pricing_config SET config_key = :config_key, config_value = :config_value,
		 description = :description, is_active = :is_active, updated_at = :updated_at
		 WHERE id = :id`,
	)
}

// DeletePricing removes a pricing configuration row.
func (r *SQLRepository) DeletePricing(ctx context.Context, id int64) error {
	return r.deleteMaster(ctx, "pricing_config", id)
}

// saveMaster stamps the row and runs insertQuery when *id is zero,
// updateQuery otherwise. Both queries bind by db tag from row.
func (r *SQLRepository) saveMaster(ctx context.Context, id *int64, createdAt, updatedAt *time.Time, row any, insertQuery, updateQuery string) error {
	now := time.Now().UTC()
	*updatedAt = now

	if *id == 0 {
		*createdAt = now
		newID, err := insertReturningID(ctx, r.db, insertQuery, row)
		if err != nil {
			return err
		}
		*id = newID
		return nil
	}

	result, err := r.db.NamedExecContext(ctx, updateQuery, row)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// deleteMaster removes one row by id. table is always a package constant.
func (r *SQLRepository) deleteMaster(ctx context.Context, table string, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
